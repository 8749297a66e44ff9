package v1

import (
	"errors"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/duynhne/user-management/internal/core/domain"
)

var userInputType = reflect.TypeOf(domain.UserInput{})

// requiredUserFields lists the JSON names of required UserInput fields in declaration order.
var requiredUserFields = func() []string {
	var names []string
	for i := 0; i < userInputType.NumField(); i++ {
		f := userInputType.Field(i)
		if strings.Contains(f.Tag.Get("binding"), "required") {
			names = append(names, jsonName(f))
		}
	}
	return names
}()

// bindUserInput decodes a JSON or form-encoded request body into a UserInput,
// picking the decoder from Content-Type. On failure it returns the
// client-facing error message.
func bindUserInput(c *gin.Context) (domain.UserInput, string, bool) {
	var in domain.UserInput
	err := c.ShouldBind(&in)
	if err == nil {
		return in, "", true
	}

	if errors.Is(err, io.EOF) {
		return in, missingFieldsMessage(requiredUserFields), false
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		missing := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			missing = append(missing, fieldJSONName(fe.StructField()))
		}
		return in, missingFieldsMessage(missing), false
	}

	return in, sanitizeValidationError(err), false
}

func missingFieldsMessage(fields []string) string {
	return "Missing required fields: " + strings.Join(fields, ", ")
}

func fieldJSONName(structField string) string {
	if f, ok := userInputType.FieldByName(structField); ok {
		return jsonName(f)
	}
	return structField
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" {
		return f.Name
	}
	return name
}

// parseUserID reads the :id path parameter; only positive integers are valid.
func parseUserID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidUserID
	}
	return id, nil
}

// sanitizeValidationError returns a user-friendly message for decoding errors.
// Raw decoder errors expose internal structure and are never returned verbatim.
func sanitizeValidationError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if strings.Contains(msg, "cannot unmarshal") {
		return "Invalid field type in request body"
	}
	return "Invalid request body"
}
