package reporting

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/backoffice/internal/domain/apperr"
	"github.com/mamadbah2/backoffice/internal/domain/models"
	"github.com/mamadbah2/backoffice/internal/repository"
)

const (
	statsWindowDays   = 30
	salesSeriesDays   = 7
	recentOrdersLimit = 5
	topProductsLimit  = 5
	topCustomersLimit = 5
	topDebtorsLimit   = 10
)

// OrderSummary is an order row of the dashboard.
type OrderSummary struct {
	ID            primitive.ObjectID `json:"id"`
	OrderCode     string             `json:"orderCode"`
	CustomerName  string             `json:"customerName"`
	Date          time.Time          `json:"date"`
	Total         decimal.Decimal    `json:"total"`
	RemainingDebt decimal.Decimal    `json:"remainingDebt"`
	Status        models.OrderStatus `json:"status"`
}

// TopProduct is a product ranked by exported quantity.
type TopProduct struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	TotalQuantity int64  `json:"totalQuantity"`
}

// DailySales is one point of the sales series.
type DailySales struct {
	Date       string          `json:"date"`
	Revenue    decimal.Decimal `json:"revenue"`
	OrderCount int             `json:"orderCount"`
}

// InventoryItem values the stock of one product.
type InventoryItem struct {
	ProductCode        string          `json:"productCode"`
	ProductName        string          `json:"productName"`
	OldStock           int64           `json:"oldStock"`
	Imported           int64           `json:"imported"`
	Exported           int64           `json:"exported"`
	CurrentStock       int64           `json:"currentStock"`
	StockValue         decimal.Decimal `json:"stockValue"`
	PotentialSaleValue decimal.Decimal `json:"potentialSaleValue"`
}

// InventoryStats summarises the stock on hand.
type InventoryStats struct {
	InventorySummary        []InventoryItem `json:"inventorySummary"`
	LowStockProducts        []InventoryItem `json:"lowStockProducts"`
	TotalProductsInStock    int             `json:"totalProductsInStock"`
	TotalOutOfStock         int             `json:"totalOutOfStock"`
	TotalStockValue         decimal.Decimal `json:"totalStockValue"`
	TotalPotentialSaleValue decimal.Decimal `json:"totalPotentialSaleValue"`
}

// DashboardStats is the landing page summary.
type DashboardStats struct {
	TotalOrders     int             `json:"totalOrders"`
	PaidOrdersCount int             `json:"paidOrdersCount"`
	DebtOrdersCount int             `json:"debtOrdersCount"`
	RecentOrders    []OrderSummary  `json:"recentOrders"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
	TotalProfit     decimal.Decimal `json:"totalProfit"`
	TotalDebt       decimal.Decimal `json:"totalDebt"`
	TopProducts     []TopProduct    `json:"topProducts"`
	SalesOverTime   []DailySales    `json:"salesOverTime"`
	InventoryStats
}

// TopCustomer is a customer ranked by spending.
type TopCustomer struct {
	ID                primitive.ObjectID `json:"id"`
	Name              string             `json:"name"`
	TotalSpent        decimal.Decimal    `json:"totalSpent"`
	OrderCount        int                `json:"orderCount"`
	AverageOrderValue decimal.Decimal    `json:"averageOrderValue"`
}

// Debtor is a customer ranked by remaining debt.
type Debtor struct {
	ID        primitive.ObjectID `json:"id"`
	Name      string             `json:"name"`
	Phone     string             `json:"phone"`
	TotalDebt decimal.Decimal    `json:"totalDebt"`
}

// CustomerInsights ranks customers by spending and debt.
type CustomerInsights struct {
	TopCustomers      []TopCustomer `json:"topCustomers"`
	NewCustomers      int           `json:"newCustomers"`
	CustomersWithDebt []Debtor      `json:"customersWithDebt"`
	TotalCustomers    int           `json:"totalCustomers"`
}

// Stats computes order counts, the revenue and profit of the last 30 days, the outstanding
// debt, the most exported products, the sales of the last 7 days and the inventory figures.
func (s *Service) Stats(ctx context.Context) (*DashboardStats, error) {
	orders, err := s.store.FindOrders(ctx, repository.OrderFilter{})
	if err != nil {
		return nil, apperr.Internal(err, "load orders")
	}
	names, err := s.customerIndex(ctx)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		TotalOrders:  len(orders),
		RecentOrders: []OrderSummary{},
		TotalRevenue: decimal.Zero,
		TotalDebt:    decimal.Zero,
	}
	now := s.now()
	windowStart := now.AddDate(0, 0, -statsWindowDays)
	var windowOrders []models.Order
	for i, o := range orders {
		switch o.Status {
		case models.StatusPaid:
			stats.PaidOrdersCount++
		case models.StatusDebt:
			stats.DebtOrdersCount++
		}
		if i < recentOrdersLimit {
			stats.RecentOrders = append(stats.RecentOrders, summarise(o, names[o.CustomerID].Name))
		}
		if !o.Date.Before(windowStart) && !o.Date.After(now) {
			windowOrders = append(windowOrders, o)
			stats.TotalRevenue = stats.TotalRevenue.Add(o.Total)
		}
		if !o.IsPaid {
			stats.TotalDebt = stats.TotalDebt.Add(o.RemainingDebt)
		}
	}

	if stats.TotalProfit, err = s.profitOf(ctx, windowOrders); err != nil {
		return nil, err
	}
	if stats.TopProducts, err = s.topProducts(ctx); err != nil {
		return nil, err
	}
	stats.SalesOverTime = s.salesSeries(orders, now)

	inventory, err := s.Inventory(ctx)
	if err != nil {
		return nil, err
	}
	stats.InventoryStats = *inventory
	return stats, nil
}

// Inventory values every product and lists those under the low stock threshold.
func (s *Service) Inventory(ctx context.Context) (*InventoryStats, error) {
	products, err := s.store.FindProducts(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "load products")
	}

	stats := &InventoryStats{
		InventorySummary:        make([]InventoryItem, 0, len(products)),
		LowStockProducts:        []InventoryItem{},
		TotalStockValue:         decimal.Zero,
		TotalPotentialSaleValue: decimal.Zero,
	}
	for _, p := range products {
		stock := decimal.NewFromInt(p.NewStock)
		item := InventoryItem{
			ProductCode:        p.Code,
			ProductName:        p.Name,
			OldStock:           p.OldStock,
			Imported:           p.Imported,
			Exported:           p.Exported,
			CurrentStock:       p.NewStock,
			StockValue:         stock.Mul(p.CostPrice),
			PotentialSaleValue: stock.Mul(p.SalePrice),
		}
		stats.InventorySummary = append(stats.InventorySummary, item)
		if p.NewStock < s.lowStock {
			stats.LowStockProducts = append(stats.LowStockProducts, item)
		}
		if p.NewStock > 0 {
			stats.TotalProductsInStock++
		} else {
			stats.TotalOutOfStock++
		}
		stats.TotalStockValue = stats.TotalStockValue.Add(item.StockValue)
		stats.TotalPotentialSaleValue = stats.TotalPotentialSaleValue.Add(item.PotentialSaleValue)
	}
	return stats, nil
}

// Customers ranks the five best customers and the ten largest debtors.
func (s *Service) Customers(ctx context.Context) (*CustomerInsights, error) {
	customers, err := s.customerIndex(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.store.FindOrders(ctx, repository.OrderFilter{})
	if err != nil {
		return nil, apperr.Internal(err, "load orders")
	}

	spent := make(map[primitive.ObjectID]*TopCustomer)
	debts := make(map[primitive.ObjectID]*Debtor)
	for _, o := range orders {
		c, known := customers[o.CustomerID]
		if !known {
			continue
		}
		top, ok := spent[o.CustomerID]
		if !ok {
			top = &TopCustomer{ID: c.ID, Name: c.Name, TotalSpent: decimal.Zero}
			spent[o.CustomerID] = top
		}
		top.TotalSpent = top.TotalSpent.Add(o.Total)
		top.OrderCount++

		if o.IsPaid {
			continue
		}
		d, ok := debts[o.CustomerID]
		if !ok {
			d = &Debtor{ID: c.ID, Name: c.Name, Phone: c.Phone, TotalDebt: decimal.Zero}
			debts[o.CustomerID] = d
		}
		d.TotalDebt = d.TotalDebt.Add(o.RemainingDebt)
	}

	insights := &CustomerInsights{
		TopCustomers:      make([]TopCustomer, 0, len(spent)),
		CustomersWithDebt: make([]Debtor, 0, len(debts)),
		TotalCustomers:    len(customers),
	}
	for _, top := range spent {
		top.AverageOrderValue = top.TotalSpent.Div(decimal.NewFromInt(int64(top.OrderCount))).Round(2)
		insights.TopCustomers = append(insights.TopCustomers, *top)
	}
	sort.Slice(insights.TopCustomers, func(i, j int) bool {
		return insights.TopCustomers[i].TotalSpent.GreaterThan(insights.TopCustomers[j].TotalSpent)
	})
	if len(insights.TopCustomers) > topCustomersLimit {
		insights.TopCustomers = insights.TopCustomers[:topCustomersLimit]
	}

	for _, d := range debts {
		insights.CustomersWithDebt = append(insights.CustomersWithDebt, *d)
	}
	sort.Slice(insights.CustomersWithDebt, func(i, j int) bool {
		return insights.CustomersWithDebt[i].TotalDebt.GreaterThan(insights.CustomersWithDebt[j].TotalDebt)
	})
	if len(insights.CustomersWithDebt) > topDebtorsLimit {
		insights.CustomersWithDebt = insights.CustomersWithDebt[:topDebtorsLimit]
	}

	since := s.now().AddDate(0, 0, -statsWindowDays)
	for _, c := range customers {
		if !c.CreatedAt.Before(since) {
			insights.NewCustomers++
		}
	}
	return insights, nil
}

func (s *Service) topProducts(ctx context.Context) ([]TopProduct, error) {
	exports, err := s.store.FindMovements(ctx, repository.MovementFilter{Type: models.MovementExport})
	if err != nil {
		return nil, apperr.Internal(err, "load exports")
	}
	products, err := s.store.FindProducts(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "load products")
	}
	names := make(map[string]string, len(products))
	for _, p := range products {
		names[p.Code] = p.Name
	}

	totals := make(map[string]int64)
	for _, m := range exports {
		if _, ok := names[m.ProductCode]; ok {
			totals[m.ProductCode] += m.Quantity
		}
	}
	top := make([]TopProduct, 0, len(totals))
	for code, qty := range totals {
		top = append(top, TopProduct{Code: code, Name: names[code], TotalQuantity: qty})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].TotalQuantity != top[j].TotalQuantity {
			return top[i].TotalQuantity > top[j].TotalQuantity
		}
		return top[i].Code < top[j].Code
	})
	if len(top) > topProductsLimit {
		top = top[:topProductsLimit]
	}
	return top, nil
}

// salesSeries buckets orders into the last seven days, oldest first.
func (s *Service) salesSeries(orders []models.Order, now time.Time) []DailySales {
	series := make([]DailySales, salesSeriesDays)
	index := make(map[string]int, salesSeriesDays)
	for i := 0; i < salesSeriesDays; i++ {
		day := now.In(s.loc).AddDate(0, 0, i-salesSeriesDays+1).Format(dateLayout)
		series[i] = DailySales{Date: day, Revenue: decimal.Zero}
		index[day] = i
	}
	for _, o := range orders {
		i, ok := index[o.Date.In(s.loc).Format(dateLayout)]
		if !ok {
			continue
		}
		series[i].Revenue = series[i].Revenue.Add(o.Total)
		series[i].OrderCount++
	}
	return series
}

func (s *Service) customerIndex(ctx context.Context) (map[primitive.ObjectID]models.Customer, error) {
	customers, _, err := s.store.FindCustomers(ctx, repository.CustomerFilter{})
	if err != nil {
		return nil, apperr.Internal(err, "load customers")
	}
	index := make(map[primitive.ObjectID]models.Customer, len(customers))
	for _, c := range customers {
		index[c.ID] = c
	}
	return index, nil
}

func summarise(o models.Order, customerName string) OrderSummary {
	return OrderSummary{
		ID:            o.ID,
		OrderCode:     o.Code,
		CustomerName:  customerName,
		Date:          o.Date,
		Total:         o.Total,
		RemainingDebt: o.RemainingDebt,
		Status:        o.Status,
	}
}
