package client

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeAPIError_FlatMessage(t *testing.T) {
	t.Parallel()

	err := decodeAPIError(http.StatusNotFound, []byte(`{"error":"post not found"}`), "rid-1")

	var ae *APIError
	require.ErrorAs(t, err, &ae)
	require.Equal(t, http.StatusNotFound, ae.Status)
	require.Equal(t, "post not found", ae.Message)
	require.Equal(t, "rid-1", ae.RequestID)
}

func TestDecodeAPIError_EnvelopeMessage(t *testing.T) {
	t.Parallel()

	err := decodeAPIError(http.StatusBadRequest, []byte(`{"error":{"message":"content is required"}}`), "rid-2")

	var ae *APIError
	require.ErrorAs(t, err, &ae)
	require.Equal(t, "content is required", ae.Message)
}

func TestDecodeAPIError_GarbageBody(t *testing.T) {
	t.Parallel()

	err := decodeAPIError(http.StatusBadGateway, []byte("<html>boom</html>"), "rid-3")

	var ae *APIError
	require.ErrorAs(t, err, &ae)
	require.Equal(t, http.StatusText(http.StatusBadGateway), ae.Message)
}

func TestAsAPIError_Wrapped(t *testing.T) {
	t.Parallel()

	inner := &APIError{Status: http.StatusForbidden, Message: "forbidden"}
	wrapped := fmt.Errorf("client.dispatch: %w", inner)

	ae, ok := AsAPIError(wrapped)
	require.True(t, ok)
	require.Same(t, inner, ae)

	_, ok = AsAPIError(errors.New("plain"))
	require.False(t, ok)
}
