package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/tgienger/teamboard/internal/auth"
	"github.com/tgienger/teamboard/internal/board"
	"github.com/tgienger/teamboard/internal/db"
	"github.com/tgienger/teamboard/internal/uploads"
)

func TestResolveError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("task: %w", db.ErrNotFound), http.StatusNotFound},
		{"conflict", fmt.Errorf("user: %w", db.ErrConflict), http.StatusConflict},
		{"bad position", fmt.Errorf("%w: 9", board.ErrInvalidPosition), http.StatusBadRequest},
		{"bad status", board.ErrInvalidStatus, http.StatusBadRequest},
		{"unauthorized", auth.ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", auth.Require(false, "delete"), http.StatusForbidden},
		{"too large", uploads.ErrTooLarge, http.StatusRequestEntityTooLarge},
		{"api error passes through", NewConflictError("taken"), http.StatusConflict},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveError(tt.err)
			if got.Status() != tt.want {
				t.Errorf("status = %d, want %d", got.Status(), tt.want)
			}
		})
	}
}

func TestResolveErrorHidesInternalMessage(t *testing.T) {
	got := ResolveError(errors.New("SELECT failed near users"))
	if got.Error() != "internal server error" {
		t.Errorf("message = %q", got.Error())
	}
}

func TestValidationErrorFields(t *testing.T) {
	ve := NewValidationError(map[string]ErrorMessage{"title": {Code: MissedValue, Message: "missed value"}})
	ve.SetError(GeneralErrorKey, InvalidRequestStructure, "invalid request structure")

	e := ve.(*apiError)
	if len(e.Fields) != 2 {
		t.Fatalf("fields = %+v", e.Fields)
	}
	if e.Fields["title"].Code != MissedValue {
		t.Errorf("title code = %q", e.Fields["title"].Code)
	}
	if ve.Status() != http.StatusBadRequest {
		t.Errorf("status = %d", ve.Status())
	}
}
