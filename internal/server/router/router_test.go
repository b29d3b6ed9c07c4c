package router

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/backoffice/internal/server/handlers"
	"github.com/mamadbah2/backoffice/internal/service/auth"
)

type fakeVerifier struct{}

func (fakeVerifier) Verify(token string) (*auth.Claims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &auth.Claims{UserID: "u1", Username: "admin"}, nil
}

func newEngine() http.Handler {
	h := Handlers{
		Orders:    handlers.NewOrderHandler(nil, nil),
		Payments:  handlers.NewPaymentHandler(nil, nil),
		Stock:     handlers.NewStockHandler(nil, nil),
		Catalog:   handlers.NewCatalogHandler(nil, nil, nil),
		Dashboard: handlers.NewDashboardHandler(nil, nil),
		Users:     handlers.NewUserHandler(nil, nil),
	}
	return New(h, fakeVerifier{}, Options{Env: "test"}, nil)
}

func request(h http.Handler, method, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthcheck(t *testing.T) {
	rec := request(newEngine(), http.MethodGet, "/healthcheck", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	rec := request(newEngine(), http.MethodGet, "/healthcheck", map[string]string{requestIDHeader: "req-42"})

	assert.Equal(t, "req-42", rec.Header().Get(requestIDHeader))
}

func TestSecuredRoutesRequireToken(t *testing.T) {
	engine := newEngine()
	tests := map[string]struct {
		header map[string]string
		error  string
	}{
		"no header":     {error: "missing bearer token"},
		"wrong scheme":  {header: map[string]string{"Authorization": "Basic abc"}, error: "missing bearer token"},
		"invalid token": {header: map[string]string{"Authorization": "Bearer nope"}, error: "invalid or expired token"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			rec := request(engine, http.MethodGet, "/api/orders", tc.header)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"error":"`+tc.error+`"}`, rec.Body.String())
		})
	}
}

func TestValidTokenReachesHandler(t *testing.T) {
	rec := request(newEngine(), http.MethodPost, "/api/users/logout", map[string]string{"Authorization": "Bearer good"})

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	rec := request(newEngine(), http.MethodGet, "/api/unknown", map[string]string{"Authorization": "Bearer good"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
