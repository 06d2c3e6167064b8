package meta

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/foltz-ar/checkout-service/internal/conversions/domain"
	"github.com/foltz-ar/checkout-service/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Send(t *testing.T) {
	t.Parallel()

	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v21.0/px-1/events", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"events_received":1,"fbtrace_id":"trace-1"}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(logging.Discard(), Config{PixelID: "px-1", AccessToken: "tok", BaseURL: srv.URL})
	res, err := c.Send(context.Background(), domain.Event{EventName: "ViewContent", EventID: "e1"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.EventsReceived)
	assert.Equal(t, "trace-1", res.FbtraceID)
	assert.Equal(t, "tok", got.AccessToken)
	require.Len(t, got.Data, 1)
	assert.Equal(t, "e1", got.Data[0].EventID)
}

func TestClient_SendError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid parameter"}}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(logging.Discard(), Config{PixelID: "px", AccessToken: "tok", BaseURL: srv.URL})
	_, err := c.Send(context.Background(), domain.Event{EventName: "Purchase"})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.JSONEq(t, `{"error":{"message":"Invalid parameter"}}`, string(apiErr.Body))
}

func TestClient_NotConfiguredSkips(t *testing.T) {
	t.Parallel()

	c := NewClient(logging.Discard(), Config{BaseURL: "http://127.0.0.1:1"})
	res, err := c.Send(context.Background(), domain.Event{EventName: "Purchase"})
	require.NoError(t, err)
	assert.True(t, res.Skipped)
}
