package middleware

import (
	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"

	"github.com/duynhne/user-management/config"
)

var profiler *pyroscope.Profiler

// InitProfiling starts continuous profiling. Pyroscope's own messages go
// through logger.
func InitProfiling(cfg *config.Config, logger *zap.Logger) error {
	id := resolveIdentity(cfg.Service)

	p, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: id.Name,
		ServerAddress:   cfg.Profiling.Endpoint,
		Logger:          logger.Named("pyroscope").Sugar(),
		Tags: map[string]string{
			"namespace": id.Namespace,
			"version":   id.Version,
			"env":       id.Environment,
			"storage":   cfg.Database.Backend,
		},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileInuseObjects,
		},
	})
	if err != nil {
		return err
	}
	profiler = p
	return nil
}

// StopProfiling flushes and stops the profiler, if running.
func StopProfiling() {
	if profiler == nil {
		return
	}
	_ = profiler.Stop()
	profiler = nil
}
