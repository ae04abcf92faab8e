package forms

import (
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/tgienger/teamboard/internal/rest/response"
)

type Former interface {
	ParseAndValidate(c *gin.Context) (Former, response.Error)
	ConvertToMap() map[string]interface{}
}

// DecodeJSON reads the request body into request
func DecodeJSON(c *gin.Context, request interface{}) response.Error {
	body, err := io.ReadAll(c.Request.Body)
	defer c.Request.Body.Close()

	if err != nil {
		log.WithError(err).Error("unable to read body")
		return response.NewInternalError()
	}

	if err := json.Unmarshal(body, request); err != nil {
		ve := response.NewValidationError()
		ve.SetError(response.GeneralErrorKey, response.InvalidRequestStructure, "invalid request structure")
		return ve
	}
	return nil
}

// Remarshal converts a decoded JSON object into request. Forms use it when they
// need to tell an explicit null from an absent key.
func Remarshal(raw map[string]any, request interface{}) response.Error {
	data, err := json.Marshal(raw)
	if err != nil {
		return response.NewInternalError()
	}
	if err := json.Unmarshal(data, request); err != nil {
		ve := response.NewValidationError()
		ve.SetError(response.GeneralErrorKey, response.InvalidRequestStructure, "invalid request structure")
		return ve
	}
	return nil
}

// Missed records a missing required field
func Missed(errors map[string]response.ErrorMessage, key string) {
	errors[key] = response.ErrorMessage{
		Code:    response.MissedValue,
		Message: "missed value",
	}
}

// Invalid records a field with an unacceptable value
func Invalid(errors map[string]response.ErrorMessage, key, message string) {
	errors[key] = response.ErrorMessage{
		Code:    response.InvalidValue,
		Message: message,
	}
}

// Result returns the validation error for errors, or nil when there are none
func Result(errors map[string]response.ErrorMessage) response.Error {
	if len(errors) > 0 {
		return response.NewValidationError(errors)
	}
	return nil
}

// ParseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// OptionalDate validates an optional date field. An empty string clears it.
func OptionalDate(errors map[string]response.ErrorMessage, key string, value *string) (*time.Time, bool) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, true
	}
	t, ok := ParseDate(*value)
	if !ok {
		Invalid(errors, key, "invalid date")
		return nil, false
	}
	return &t, true
}
