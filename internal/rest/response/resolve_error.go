package response

import (
	"errors"

	"github.com/tgienger/teamboard/internal/auth"
	"github.com/tgienger/teamboard/internal/board"
	"github.com/tgienger/teamboard/internal/db"
	"github.com/tgienger/teamboard/internal/uploads"
)

// ResolveError maps a domain error to its API error. Unknown errors become a
// 500 whose message is not exposed.
func ResolveError(err error) Error {
	var apiErr Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, db.ErrNotFound):
		return NewNotFoundError(err.Error())
	case errors.Is(err, db.ErrConflict):
		return NewConflictError(err.Error())
	case errors.Is(err, board.ErrInvalidPosition), errors.Is(err, board.ErrInvalidStatus):
		return NewBadRequestError(err.Error())
	case errors.Is(err, auth.ErrUnauthorized):
		return NewUnauthorizedError()
	case errors.Is(err, auth.ErrForbidden):
		return NewForbiddenError(err.Error())
	case errors.Is(err, auth.ErrInvalidPassword):
		return NewBadRequestError(err.Error())
	case errors.Is(err, uploads.ErrUnsupportedType):
		return NewBadRequestError(err.Error())
	case errors.Is(err, uploads.ErrTooLarge):
		return NewTooLargeError(err.Error())
	default:
		return NewInternalError()
	}
}
