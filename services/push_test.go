package services

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestClassifyFCMError(t *testing.T) {
	assert.NoError(t, classifyFCMError(nil))

	notFound := &googleapi.Error{Code: http.StatusNotFound, Message: "Requested entity was not found."}
	assert.ErrorIs(t, classifyFCMError(notFound), ErrInvalidToken)

	unregistered := &googleapi.Error{Code: http.StatusBadRequest, Errors: []googleapi.ErrorItem{{Reason: "UNREGISTERED"}}}
	assert.ErrorIs(t, classifyFCMError(unregistered), ErrInvalidToken)

	badToken := &googleapi.Error{Code: http.StatusBadRequest, Message: "The registration token is not a valid FCM registration token"}
	assert.ErrorIs(t, classifyFCMError(badToken), ErrInvalidToken)

	unavailable := &googleapi.Error{Code: http.StatusServiceUnavailable, Message: "backend unavailable"}
	err := classifyFCMError(unavailable)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidToken))

	plain := errors.New("dial tcp: timeout")
	assert.Same(t, plain, classifyFCMError(plain))
}

func TestTokenSuffix(t *testing.T) {
	assert.Equal(t, "short", tokenSuffix("short"))
	assert.Equal(t, "…12345678", tokenSuffix("abcdefgh12345678"))
}
