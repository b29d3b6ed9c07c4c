package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/backoffice/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *APIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.WhatsAppConfig{
		AccessToken:   "token",
		PhoneNumberID: "12345",
		BaseURL:       srv.URL + "/",
		APIVersion:    "v20.0",
	})
}

func TestSendTextMessage(t *testing.T) {
	var payload map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v20.0/12345/messages", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	})

	resp, err := client.SendTextMessage(context.Background(), SendTextMessageRequest{To: "221770000000", Body: "hello"})
	require.NoError(t, err)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "wamid.1", resp.Messages[0].ID)

	assert.Equal(t, "whatsapp", payload["messaging_product"])
	assert.Equal(t, "221770000000", payload["to"])
	assert.Equal(t, "text", payload["type"])
	assert.Equal(t, map[string]any{"body": "hello", "preview_url": false}, payload["text"])
}

func TestSendTextMessageAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid parameter","type":"OAuthException","code":100,"fbtrace_id":"trace"}}`))
	})

	_, err := client.SendTextMessage(context.Background(), SendTextMessageRequest{To: "x", Body: "hello"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, 100, apiErr.Code)
	assert.Equal(t, "Invalid parameter", apiErr.Message)
}

type fakeClient struct {
	requests []SendTextMessageRequest
	err      error
}

func (f *fakeClient) SendTextMessage(_ context.Context, req SendTextMessageRequest) (*SendTextMessageResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &SendTextMessageResponse{}, nil
}

func TestReportNotifier(t *testing.T) {
	client := &fakeClient{}
	notifier := NewReportNotifier(client, "221770000000", nil)

	require.NoError(t, notifier.Notify(context.Background(), "Daily report"))
	require.Len(t, client.requests, 1)
	assert.Equal(t, SendTextMessageRequest{To: "221770000000", Body: "Daily report"}, client.requests[0])

	client.err = errors.New("network down")
	assert.Error(t, notifier.Notify(context.Background(), "again"))

	assert.Error(t, NewReportNotifier(client, "", nil).Notify(context.Background(), "nobody"))
}
