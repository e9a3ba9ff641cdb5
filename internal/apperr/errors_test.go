package apperr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", Validation("missing user_uuid"), http.StatusBadRequest},
		{"conflict", ErrConflict, http.StatusBadRequest},
		{"not found", NotFound("user"), http.StatusNotFound},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"persistence", Persistence("save record", errors.New("conn reset")), http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestPersistenceKeepsCause(t *testing.T) {
	cause := errors.New("conn reset")
	err := Persistence("save record", cause)
	require.ErrorIs(t, err, ErrPersistence)
	require.ErrorIs(t, err, cause)
	require.NoError(t, Persistence("noop", nil))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "missing user_uuid", Message(Validation("missing user_uuid")))
	assert.Equal(t, "user not found", Message(NotFound("user")))
	assert.Equal(t, "forbidden", Message(ErrForbidden))
	assert.Equal(t, "", Message(Persistence("save record", errors.New("conn reset"))))
	assert.Equal(t, "", Message(errors.New("boom")))
	assert.Equal(t, "", Message(nil))
}
