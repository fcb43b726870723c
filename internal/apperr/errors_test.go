package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	cases := map[int]error{
		http.StatusUnauthorized:        fmt.Errorf("token expired: %w", ErrAuth),
		http.StatusForbidden:           ErrForbidden,
		http.StatusNotFound:            NotFound("product"),
		http.StatusBadRequest:          Invalid("key not allowed"),
		http.StatusConflict:            ErrConflict,
		http.StatusTooManyRequests:     ErrRateLimited,
		http.StatusBadGateway:          Gateway("zid", errors.New("boom")),
		http.StatusInternalServerError: errors.New("disk full"),
	}
	for want, err := range cases {
		assert.Equal(t, want, Status(err), err.Error())
	}
}

func TestGatewayErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Gateway("whatsapp", cause)

	assert.ErrorIs(t, err, ErrGateway)
	assert.ErrorIs(t, err, cause)

	var gw *GatewayError
	assert.True(t, errors.As(err, &gw))
	assert.Equal(t, "whatsapp", gw.Provider)
	assert.Equal(t, "product not found", NotFound("product").Error())
}
