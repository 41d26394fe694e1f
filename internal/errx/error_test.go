package errx

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Transport(QueryFailedMessage, cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Query failed: dial tcp: connection refused", err.Error())
	assert.True(t, IsKind(err, KindTransport))
	assert.False(t, IsKind(err, KindValidation))
}

func TestTransportNil(t *testing.T) {
	call := func() error { return Transport(LoginFailedMessage, nil) }
	err := call()
	assert.NoError(t, err)
	assert.True(t, err == nil)
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"app error", Validation(NoDocumentMessage, nil), NoDocumentMessage},
		{"wrapped app error", fmt.Errorf("ask: %w", Transport(QueryFailedMessage, errors.New("x"))), QueryFailedMessage},
		{"plain error", errors.New("boom"), "fallback"},
		{"nil", nil, "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Message(tt.err, "fallback"))
		})
	}
}
