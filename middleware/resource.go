package middleware

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/duynhne/user-management/config"
)

const unknownService = "unknown-service"

const serviceAccountNamespaceFile = "/var/run/secrets/kubernetes.io/serviceaccount/namespace"

// serviceIdentity is what traces and profiles are tagged with.
type serviceIdentity struct {
	Name        string
	Namespace   string
	Version     string
	Environment string
}

// resolveIdentity prefers OTEL_SERVICE_NAME over the configured name. The
// namespace comes from OTEL_RESOURCE_ATTRIBUTES, the pod's service account,
// POD_NAMESPACE, then "default".
func resolveIdentity(svc config.ServiceConfig) serviceIdentity {
	id := serviceIdentity{
		Name:        firstNonEmpty(os.Getenv("OTEL_SERVICE_NAME"), svc.Name, unknownService),
		Version:     svc.Version,
		Environment: svc.Env,
	}

	ns := resourceAttribute(os.Getenv("OTEL_RESOURCE_ATTRIBUTES"), string(semconv.ServiceNamespaceKey))
	if ns == "" {
		if data, err := os.ReadFile(serviceAccountNamespaceFile); err == nil {
			ns = strings.TrimSpace(string(data))
		}
	}
	id.Namespace = firstNonEmpty(ns, os.Getenv("POD_NAMESPACE"), "default")
	return id
}

// resourceAttribute looks up key in a "k1=v1,k2=v2" list.
func resourceAttribute(list, key string) string {
	for _, pair := range strings.Split(list, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if ok && k == key {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (id serviceIdentity) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(id.Name),
		semconv.ServiceNamespace(id.Namespace),
	}
	if id.Version != "" {
		attrs = append(attrs, semconv.ServiceVersion(id.Version))
	}
	if id.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(id.Environment))
	}
	return attrs
}

// newResource describes this process for the trace exporter. When host or
// process detection partly fails the identity attributes are still returned.
func newResource(ctx context.Context, id serviceIdentity) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithHost(),
		resource.WithAttributes(id.attributes()...),
	)
	if err != nil {
		return resource.NewWithAttributes(semconv.SchemaURL, id.attributes()...),
			fmt.Errorf("detect resource: %w", err)
	}
	return res, nil
}
