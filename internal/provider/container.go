package provider

import (
	"github.com/marketbay-next/internal/cache"
	"github.com/marketbay-next/internal/config"
	"github.com/marketbay-next/internal/logger"
	"github.com/marketbay-next/internal/models"
	"github.com/marketbay-next/internal/payment/vnpay"
	"github.com/marketbay-next/internal/queue"
	"github.com/marketbay-next/internal/repository"
	"github.com/marketbay-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	InvoiceRepo        repository.InvoiceRepository
	VariationRepo      repository.ProductVariationRepository
	VoucherRepo        repository.VoucherRepository
	VoucherStorageRepo repository.VoucherStorageRepository
	CartRepo           repository.CartRepository

	// Services
	VoucherService  *service.VoucherService
	CheckoutService *service.CheckoutService
	PaymentService  *service.PaymentService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.InvoiceRepo = repository.NewInvoiceRepository(db)
	c.VariationRepo = repository.NewProductVariationRepository(db)
	c.VoucherRepo = repository.NewVoucherRepository(db)
	c.VoucherStorageRepo = repository.NewVoucherStorageRepository(db)
	c.CartRepo = repository.NewCartRepository(db)
}

func (c *Container) initServices() {
	// 支付网关配置缺失属于启动期致命错误
	vnpayCfg := &vnpay.Config{
		TmnCode:       c.Config.VNPay.TmnCode,
		HashSecret:    c.Config.VNPay.HashSecret,
		PayURL:        c.Config.VNPay.PayURL,
		ReturnURL:     c.Config.VNPay.ReturnURL,
		FrontendURL:   c.Config.VNPay.FrontendURL,
		ExpireMinutes: c.Config.VNPay.ExpireMinutes,
		Locale:        c.Config.VNPay.Locale,
	}
	vnpayCfg.Normalize()
	if err := vnpay.ValidateConfig(vnpayCfg); err != nil {
		logger.Errorw("provider_vnpay_config_invalid", "error", err)
		panic(err)
	}

	c.VoucherService = service.NewVoucherService(c.VoucherRepo, c.VoucherStorageRepo)
	c.CheckoutService = service.NewCheckoutService(
		c.InvoiceRepo,
		c.VariationRepo,
		c.VoucherStorageRepo,
		c.CartRepo,
		c.VoucherService,
		c.QueueClient,
		c.Config.Checkout.PaymentExpireMinutes,
	)
	c.PaymentService = service.NewPaymentService(c.InvoiceRepo, c.CheckoutService, vnpayCfg)
}
