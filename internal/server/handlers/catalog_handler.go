package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/backoffice/internal/domain/models"
	"github.com/mamadbah2/backoffice/internal/service/catalog"
)

// CustomerService manages customers for HTTP.
type CustomerService interface {
	Page(ctx context.Context, page, pageSize int64, search string) (*catalog.CustomerPage, error)
	All(ctx context.Context) ([]models.Customer, error)
	Get(ctx context.Context, id string) (*models.Customer, error)
	Create(ctx context.Context, in catalog.CustomerInput) (*models.Customer, error)
	Update(ctx context.Context, id string, in catalog.CustomerInput) (*models.Customer, error)
	Delete(ctx context.Context, id string) error
}

// ProductService manages products for HTTP.
type ProductService interface {
	List(ctx context.Context) ([]models.Product, error)
	Get(ctx context.Context, code string) (*models.Product, error)
	Create(ctx context.Context, in catalog.ProductInput) (*models.Product, error)
	Update(ctx context.Context, id string, in catalog.ProductUpdate) (*models.Product, error)
	Delete(ctx context.Context, id string) error
}

// CatalogHandler serves /api/customers and /api/products.
type CatalogHandler struct {
	customers CustomerService
	products  ProductService
	logger    *zap.Logger
}

func NewCatalogHandler(customers CustomerService, products ProductService, logger *zap.Logger) *CatalogHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogHandler{customers: customers, products: products, logger: logger}
}

// ListCustomers pages customers with ?page, ?pageSize and ?search.
func (h *CatalogHandler) ListCustomers(c *gin.Context) {
	page, _ := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	pageSize, _ := strconv.ParseInt(c.DefaultQuery("pageSize", "10"), 10, 64)

	result, err := h.customers.Page(c.Request.Context(), page, pageSize, c.Query("search"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *CatalogHandler) AllCustomers(c *gin.Context) {
	customers, err := h.customers.All(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

func (h *CatalogHandler) GetCustomer(c *gin.Context) {
	customer, err := h.customers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *CatalogHandler) CreateCustomer(c *gin.Context) {
	var in catalog.CustomerInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	customer, err := h.customers.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func (h *CatalogHandler) UpdateCustomer(c *gin.Context) {
	var in catalog.CustomerInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	customer, err := h.customers.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *CatalogHandler) DeleteCustomer(c *gin.Context) {
	if err := h.customers.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "customer deleted"})
}

func (h *CatalogHandler) ListProducts(c *gin.Context) {
	products, err := h.products.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *CatalogHandler) GetProduct(c *gin.Context) {
	product, err := h.products.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var in catalog.ProductInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	product, err := h.products.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	var in catalog.ProductUpdate
	if !bindJSON(c, h.logger, &in) {
		return
	}
	product, err := h.products.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	if err := h.products.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
}
