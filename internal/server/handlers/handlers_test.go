package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/backoffice/internal/domain/apperr"
	"github.com/mamadbah2/backoffice/internal/domain/models"
	"github.com/mamadbah2/backoffice/internal/service/orders"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeOrderService struct {
	created orders.CreateOrderInput
	filter  orders.ListFilter
	deleted string
	err     error
}

func (f *fakeOrderService) Create(_ context.Context, in orders.CreateOrderInput) (*orders.OrderView, error) {
	f.created = in
	if f.err != nil {
		return nil, f.err
	}
	return &orders.OrderView{Order: models.Order{Code: in.OrderCode, Status: in.Status}}, nil
}

func (f *fakeOrderService) Update(_ context.Context, id string, _ orders.UpdateOrderInput) (*orders.OrderView, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &orders.OrderView{Order: models.Order{Code: id}}, nil
}

func (f *fakeOrderService) Delete(_ context.Context, id string) error {
	f.deleted = id
	return f.err
}

func (f *fakeOrderService) Get(_ context.Context, id string) (*orders.OrderView, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &orders.OrderView{Order: models.Order{Code: id}}, nil
}

func (f *fakeOrderService) List(_ context.Context, filter orders.ListFilter) ([]orders.OrderView, error) {
	f.filter = filter
	return []orders.OrderView{}, f.err
}

func orderEngine(svc OrderService) *gin.Engine {
	h := NewOrderHandler(svc, nil)
	r := gin.New()
	r.GET("/api/orders", h.List)
	r.GET("/api/orders/:id", h.Get)
	r.POST("/api/orders", h.Create)
	r.PUT("/api/orders/:id", h.Update)
	r.DELETE("/api/orders/:id", h.Delete)
	return r
}

func serve(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperr.Validation("bad"), http.StatusBadRequest},
		{apperr.NotFound("missing"), http.StatusNotFound},
		{apperr.Conflict("taken"), http.StatusConflict},
		{apperr.Unauthorized("no"), http.StatusUnauthorized},
		{apperr.Internal(errors.New("db"), "load"), http.StatusInternalServerError},
		{errors.New("unclassified"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, StatusOf(tc.err), tc.err.Error())
	}
}

func TestCreateOrder(t *testing.T) {
	svc := &fakeOrderService{}
	rec := serve(orderEngine(svc), http.MethodPost, "/api/orders",
		`{"orderCode":"O1","customerId":"c1","status":"paid","items":[{"productCode":"P1","quantity":2,"price":100}]}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "O1", svc.created.OrderCode)
	assert.Equal(t, models.StatusPaid, svc.created.Status)
	require.Len(t, svc.created.Items, 1)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "O1", body["orderCode"])
}

func TestCreateOrderErrors(t *testing.T) {
	tests := map[string]struct {
		body    string
		err     error
		status  int
		message string
	}{
		"malformed body": {body: `{"orderCode":`, status: http.StatusBadRequest},
		"validation":     {body: `{}`, err: apperr.Validation("orderCode is required"), status: http.StatusBadRequest, message: "orderCode is required"},
		"duplicate code": {body: `{}`, err: apperr.Conflict("order code O1 already exists"), status: http.StatusConflict, message: "order code O1 already exists"},
		"store failure":  {body: `{}`, err: apperr.Internal(errors.New("connection reset"), "save order"), status: http.StatusInternalServerError, message: "internal server error"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			rec := serve(orderEngine(&fakeOrderService{err: tc.err}), http.MethodPost, "/api/orders", tc.body)

			assert.Equal(t, tc.status, rec.Code)
			if tc.message != "" {
				assert.Equal(t, tc.message, errorBody(t, rec))
			}
		})
	}
}

func TestListOrdersFilter(t *testing.T) {
	svc := &fakeOrderService{}
	rec := serve(orderEngine(svc), http.MethodGet, "/api/orders?status=debt&customerId=c1&from=2026-03-01&to=2026-03-31", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StatusDebt, svc.filter.Status)
	assert.Equal(t, "c1", svc.filter.CustomerID)
	assert.Equal(t, "2026-03-01T00:00:00Z", svc.filter.From.Format("2006-01-02T15:04:05Z07:00"))
	assert.Equal(t, "2026-03-31", svc.filter.To.Format(dateLayout))
	assert.Equal(t, 23, svc.filter.To.Hour())
}

func TestListOrdersRejectsBadDate(t *testing.T) {
	rec := serve(orderEngine(&fakeOrderService{}), http.MethodGet, "/api/orders?from=yesterday", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorBody(t, rec), "from must be a date")
}

func TestGetOrderNotFound(t *testing.T) {
	rec := serve(orderEngine(&fakeOrderService{err: apperr.NotFound("order not found")}), http.MethodGet, "/api/orders/abc", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "order not found", errorBody(t, rec))
}

func TestDeleteOrder(t *testing.T) {
	svc := &fakeOrderService{}
	rec := serve(orderEngine(svc), http.MethodDelete, "/api/orders/abc", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", svc.deleted)
	assert.JSONEq(t, `{"message":"order deleted"}`, rec.Body.String())
}
