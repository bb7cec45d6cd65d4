package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUploadError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("dialog: %w", &UploadError{Kind: UploadCancelled, Err: context.Canceled})

	assert.True(t, errors.Is(err, ErrUploadCancelled))
	assert.True(t, IsUploadCancelled(err))
	assert.False(t, errors.Is(err, ErrUploadFailed))
	assert.True(t, errors.Is(err, context.Canceled), "wrapped cause stays reachable")
}

func TestUploadError_Messages(t *testing.T) {
	tests := []struct {
		err  *UploadError
		want string
	}{
		{&UploadError{Kind: UploadCancelled}, "upload cancelled"},
		{&UploadError{Kind: UploadFailed, Status: 500, StatusText: "Internal Server Error"}, "upload failed: Internal Server Error"},
		{&UploadError{Kind: InvalidResponse}, "invalid response format"},
		{&UploadError{Kind: UploadNetwork}, "network error during upload"},
	}
	for _, tt := range tests {
		t.Run(string(tt.err.Kind), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestUploadError_Validation(t *testing.T) {
	assert.True(t, (&UploadError{Kind: UploadFailed, Status: http.StatusBadRequest}).Validation())
	assert.False(t, (&UploadError{Kind: UploadFailed, Status: http.StatusInternalServerError}).Validation())
	assert.False(t, (&UploadError{Kind: InvalidResponse, Status: http.StatusBadRequest}).Validation())
}

func TestTransportError_Messages(t *testing.T) {
	assert.Equal(t, "HTTP 500: Internal Server Error",
		(&TransportError{Status: 500, StatusText: "Internal Server Error"}).Error())
	assert.Equal(t, "GET /x: boom",
		(&TransportError{Method: "GET", URL: "/x", Err: errors.New("boom")}).Error())

	te, ok := IsTransportError(fmt.Errorf("wrapped: %w", &TransportError{Status: 404}))
	assert.True(t, ok)
	assert.True(t, te.ClientError())
}
