package public

import (
	"strconv"

	"github.com/marketbay-next/internal/http/response"
	"github.com/marketbay-next/internal/models"

	"github.com/gin-gonic/gin"
)

// CartItemRequest 购物车项请求
type CartItemRequest struct {
	UserID             uint `json:"user_id" binding:"required"`
	ProductVariationID uint `json:"product_variation_id" binding:"required"`
	Quantity           int  `json:"quantity" binding:"required"`
}

// GetCart 获取购物车
func (h *Handler) GetCart(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Query("user_id"), 10, 64)
	if err != nil || userID == 0 {
		respondError(c, response.CodeBadRequest, "error.user_id_invalid", nil)
		return
	}

	items, err := h.CartRepo.ListByUser(uint(userID))
	if err != nil {
		respondError(c, response.CodeInternal, "error.cart_fetch_failed", err)
		return
	}

	response.Success(c, gin.H{"items": items})
}

// UpsertCartItem 添加/更新购物车项，数量归零视为删除
func (h *Handler) UpsertCartItem(c *gin.Context) {
	var req CartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if req.Quantity <= 0 {
		if err := h.CartRepo.DeleteByUserAndVariation(req.UserID, req.ProductVariationID); err != nil {
			respondError(c, response.CodeInternal, "error.cart_update_failed", err)
			return
		}
		response.Success(c, gin.H{"updated": true})
		return
	}

	variation, err := h.VariationRepo.GetByID(req.ProductVariationID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.cart_update_failed", err)
		return
	}
	if variation == nil {
		respondError(c, response.CodeBadRequest, "error.product_variation_not_found", nil)
		return
	}

	if err := h.CartRepo.Upsert(&models.CartItem{
		UserID:             req.UserID,
		ProductVariationID: req.ProductVariationID,
		Quantity:           req.Quantity,
	}); err != nil {
		respondError(c, response.CodeInternal, "error.cart_update_failed", err)
		return
	}

	response.Success(c, gin.H{"updated": true})
}

// DeleteCartItem 删除购物车项
func (h *Handler) DeleteCartItem(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Query("user_id"), 10, 64)
	if err != nil || userID == 0 {
		respondError(c, response.CodeBadRequest, "error.user_id_invalid", nil)
		return
	}
	variationID, err := strconv.ParseUint(c.Param("variation_id"), 10, 64)
	if err != nil || variationID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if err := h.CartRepo.DeleteByUserAndVariation(uint(userID), uint(variationID)); err != nil {
		respondError(c, response.CodeInternal, "error.cart_update_failed", err)
		return
	}

	response.Success(c, gin.H{"deleted": true})
}
