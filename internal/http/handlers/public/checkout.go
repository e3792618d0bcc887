package public

import (
	"github.com/marketbay-next/internal/http/response"
	"github.com/marketbay-next/internal/models"
	"github.com/marketbay-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CheckoutItemRequest 结算商品行请求
type CheckoutItemRequest struct {
	ProductVariationID uint         `json:"product_variation_id" binding:"required"`
	ProductName        string       `json:"product_name"`
	VariationName      string       `json:"variation_name"`
	Price              models.Money `json:"price"`
	Quantity           int          `json:"quantity" binding:"required"`
	DiscountPercent    float64      `json:"discount_percent"`
}

// CheckoutRequest 单店铺结算请求
type CheckoutRequest struct {
	UserID            uint                  `json:"user_id" binding:"required"`
	ShopID            uint                  `json:"shop_id" binding:"required"`
	PaymentMethod     string                `json:"payment_method" binding:"required"`
	ShippingAddressID *uint                 `json:"shipping_address_id"`
	Products          []CheckoutItemRequest `json:"products" binding:"required"`
	TotalAmount       *models.Money         `json:"total_amount"`
	ShippingFee       models.Money          `json:"shipping_fee"`
	VoucherStorageID  *uint                 `json:"voucher_storage_id"`
}

// CheckoutCartRequest 整车结算请求
type CheckoutCartRequest struct {
	UserID            uint   `json:"user_id" binding:"required"`
	PaymentMethod     string `json:"payment_method" binding:"required"`
	ShippingAddressID *uint  `json:"shipping_address_id"`
	VoucherStorageID  *uint  `json:"voucher_storage_id"`
}

// Checkout 单店铺结算
func (h *Handler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	items := make([]service.CheckoutItem, 0, len(req.Products))
	for _, item := range req.Products {
		items = append(items, service.CheckoutItem{
			ProductVariationID: item.ProductVariationID,
			ProductName:        item.ProductName,
			VariationName:      item.VariationName,
			Price:              item.Price,
			Quantity:           item.Quantity,
			DiscountPercent:    item.DiscountPercent,
		})
	}

	invoice, err := h.CheckoutService.Checkout(service.CheckoutInput{
		UserID:            req.UserID,
		ShopID:            req.ShopID,
		PaymentMethod:     req.PaymentMethod,
		ShippingAddressID: req.ShippingAddressID,
		Items:             items,
		TotalAmount:       req.TotalAmount,
		ShippingFee:       req.ShippingFee,
		VoucherStorageID:  req.VoucherStorageID,
	})
	if err != nil {
		respondCheckoutError(c, err)
		return
	}

	response.Success(c, invoice)
}

// CheckoutCart 整车结算（按店铺拆单）
func (h *Handler) CheckoutCart(c *gin.Context) {
	var req CheckoutCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	invoices, err := h.CheckoutService.CheckoutCart(service.CheckoutCartInput{
		UserID:            req.UserID,
		PaymentMethod:     req.PaymentMethod,
		ShippingAddressID: req.ShippingAddressID,
		VoucherStorageID:  req.VoucherStorageID,
	})
	if err != nil {
		respondCartCheckoutError(c, err)
		return
	}

	response.Success(c, gin.H{"invoices": invoices})
}
