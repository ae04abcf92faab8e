package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	GeneralErrorKey = "general"

	InvalidRequestStructure = "invalid_request_structure"
	MissedValue             = "missed_value"
	InvalidValue            = "invalid_value"

	codeInternal           = "internal_error"
	codeNotFound           = "not_found"
	codeConflict           = "conflict"
	codeUnauthorized       = "unauthorized"
	codeInvalidCredentials = "invalid_credentials"
	codeForbidden          = "forbidden"
	codeBadRequest         = "bad_request"
	codeTooLarge           = "too_large"
	codeValidation         = "validation_error"
)

// ErrorMessage describes a problem with a single field
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error is an API error carrying its HTTP status
type Error interface {
	error
	Status() int
	SetError(key, code, message string)
}

type apiError struct {
	status  int
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Fields  map[string]ErrorMessage `json:"fields,omitempty"`
}

func (e *apiError) Error() string {
	return e.Message
}

func (e *apiError) Status() int {
	return e.status
}

func (e *apiError) SetError(key, code, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]ErrorMessage)
	}
	e.Fields[key] = ErrorMessage{Code: code, Message: message}
}

func newError(status int, code, message string) Error {
	return &apiError{status: status, Code: code, Message: message}
}

// NewValidationError creates a 400 error, optionally seeded with field errors
func NewValidationError(fields ...map[string]ErrorMessage) Error {
	e := &apiError{status: http.StatusBadRequest, Code: codeValidation, Message: "validation failed"}
	for _, f := range fields {
		for k, v := range f {
			e.SetError(k, v.Code, v.Message)
		}
	}
	return e
}

func NewInternalError() Error {
	return newError(http.StatusInternalServerError, codeInternal, "internal server error")
}

func NewNotFoundError(message string) Error {
	return newError(http.StatusNotFound, codeNotFound, message)
}

func NewConflictError(message string) Error {
	return newError(http.StatusConflict, codeConflict, message)
}

func NewUnauthorizedError() Error {
	return newError(http.StatusUnauthorized, codeUnauthorized, "not authenticated")
}

func NewInvalidCredentialsError() Error {
	return newError(http.StatusUnauthorized, codeInvalidCredentials, "Incorrect username or password")
}

func NewForbiddenError(message string) Error {
	return newError(http.StatusForbidden, codeForbidden, message)
}

func NewBadRequestError(message string) Error {
	return newError(http.StatusBadRequest, codeBadRequest, message)
}

func NewTooLargeError(message string) Error {
	return newError(http.StatusRequestEntityTooLarge, codeTooLarge, message)
}

// HandleError aborts the request with err as the JSON body
func HandleError(err Error, c *gin.Context) {
	c.AbortWithStatusJSON(err.Status(), err)
}
