package repository

import "time"

// InvoiceListFilter 查询账单列表的过滤条件
type InvoiceListFilter struct {
	Page          int
	PageSize      int
	UserID        uint
	ShopID        uint
	PaymentMethod string
	PaymentStatus string
	OrderStatus   string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}
