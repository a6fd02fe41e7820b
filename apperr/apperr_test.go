package apperr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsKind(t *testing.T) {
	err := Wrap(ErrStateConflict, "order %s is already delivered", "order_1")
	assert.True(t, errors.Is(err, ErrStateConflict))
	assert.Equal(t, "state conflict: order order_1 is already delivered", err.Error())
}

func TestStatusMapping(t *testing.T) {
	cases := map[error]int{
		ErrNotFound:                    http.StatusNotFound,
		ErrStateConflict:               http.StatusConflict,
		ErrPermissionDenied:            http.StatusForbidden,
		ErrValidation:                  http.StatusBadRequest,
		ErrConfiguration:               http.StatusUnprocessableEntity,
		errors.New("database exploded"): http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, Status(Wrap(err, "context")), err.Error())
	}
}
