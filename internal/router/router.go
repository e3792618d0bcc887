package router

import (
	"fmt"
	"strings"

	"github.com/marketbay-next/internal/cache"
	"github.com/marketbay-next/internal/config"
	"github.com/marketbay-next/internal/constants"
	publichandlers "github.com/marketbay-next/internal/http/handlers/public"
	"github.com/marketbay-next/internal/logger"
	"github.com/marketbay-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = constants.RedisPrefixDefault
	}
	redisClient := cache.Client()
	callbackRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:vnpay_ipn", redisPrefix),
		WindowSeconds: cfg.Security.CallbackRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.CallbackRateLimit.MaxRequests,
		Message:       "error.callback_too_many",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	api := r.Group("/api")
	{
		api.POST("/checkout", publicHandler.Checkout)
		api.POST("/checkout/cart", publicHandler.CheckoutCart)
		api.POST("/payment/url", publicHandler.CreatePaymentURL)

		api.GET("/invoices", publicHandler.ListInvoices)
		api.GET("/invoices/:id", publicHandler.GetInvoice)

		api.GET("/cart", publicHandler.GetCart)
		api.POST("/cart/items", publicHandler.UpsertCartItem)
		api.DELETE("/cart/items/:variation_id", publicHandler.DeleteCartItem)
	}

	// VNPay 回调通道：同步跳转不限流，IPN 按 IP 限流
	payment := r.Group("/payment/vnpay")
	{
		payment.GET("/return", publicHandler.VNPayReturn)
		payment.GET("/ipn", RateLimitMiddleware(redisClient, callbackRule, KeyByIP), publicHandler.VNPayIPN)
		payment.POST("/ipn", RateLimitMiddleware(redisClient, callbackRule, KeyByIP), publicHandler.VNPayIPN)
	}

	return r
}
