package main

import (
	"time"

	"github.com/marketbay-next/internal/config"
	"github.com/marketbay-next/internal/logger"
	"github.com/marketbay-next/internal/models"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 商品规格
	variations := []models.ProductVariation{
		{ProductID: 1, ShopID: 1, Name: "Áo thun nam - Đen / M", Price: models.NewMoneyFromInt(120000), StockQuantity: 50},
		{ProductID: 1, ShopID: 1, Name: "Áo thun nam - Đen / L", Price: models.NewMoneyFromInt(120000), StockQuantity: 30},
		{ProductID: 2, ShopID: 1, Name: "Quần jean - Xanh / 30", Price: models.NewMoneyFromInt(350000), DiscountPercent: 0.1, StockQuantity: 20},
		{ProductID: 3, ShopID: 2, Name: "Giày sneaker - Trắng / 42", Price: models.NewMoneyFromInt(800000), StockQuantity: 10},
		{ProductID: 4, ShopID: 2, Name: "Balo laptop 15.6 inch", Price: models.NewMoneyFromInt(450000), DiscountPercent: 0.05, StockQuantity: 3},
	}
	for _, variation := range variations {
		var existing models.ProductVariation
		if err := models.DB.Where("shop_id = ? AND name = ?", variation.ShopID, variation.Name).First(&existing).Error; err != nil {
			if err := models.DB.Create(&variation).Error; err != nil {
				stdLog.Printf("Failed to create variation %s: %v", variation.Name, err)
			} else {
				stdLog.Printf("Created variation: %s", variation.Name)
			}
		} else {
			stdLog.Printf("Variation already exists: %s", variation.Name)
		}
	}

	now := time.Now()

	// 平台优惠券
	vouchers := []models.Voucher{
		{
			Code:                "WELCOME10",
			DiscountPercent:     0.1,
			MinimumRequirePrice: models.NewMoneyFromInt(100000),
			MaxDiscountPrice:    models.NewMoneyFromInt(50000),
			Quantity:            1000,
			MaxUsePerUser:       1,
			ValidFrom:           now.AddDate(0, -1, 0),
			ValidTo:             now.AddDate(0, 3, 0),
		},
		{
			Code:                "FREESHIP20",
			DiscountPercent:     0.2,
			MinimumRequirePrice: models.NewMoneyFromInt(200000),
			MaxDiscountPrice:    models.NewMoneyFromInt(10000),
			Quantity:            500,
			MaxUsePerUser:       2,
			ValidFrom:           now.AddDate(0, -1, 0),
			ValidTo:             now.AddDate(0, 1, 0),
		},
	}
	for _, voucher := range vouchers {
		var existing models.Voucher
		if err := models.DB.Where("code = ?", voucher.Code).First(&existing).Error; err != nil {
			if err := models.DB.Create(&voucher).Error; err != nil {
				stdLog.Printf("Failed to create voucher %s: %v", voucher.Code, err)
			} else {
				stdLog.Printf("Created voucher: %s", voucher.Code)
			}
		} else {
			stdLog.Printf("Voucher already exists: %s", voucher.Code)
		}
	}

	// 店铺优惠券
	shopVouchers := []models.ShopVoucher{
		{
			ShopID:              1,
			Code:                "SHOP1-SALE",
			DiscountPercent:     0.15,
			MinimumRequirePrice: models.NewMoneyFromInt(150000),
			MaxDiscountPrice:    models.NewMoneyFromInt(30000),
			Quantity:            200,
			MaxUsePerUser:       1,
			ValidFrom:           now.AddDate(0, -1, 0),
			ValidTo:             now.AddDate(0, 2, 0),
		},
	}
	for _, voucher := range shopVouchers {
		var existing models.ShopVoucher
		if err := models.DB.Where("shop_id = ? AND code = ?", voucher.ShopID, voucher.Code).First(&existing).Error; err != nil {
			if err := models.DB.Create(&voucher).Error; err != nil {
				stdLog.Printf("Failed to create shop voucher %s: %v", voucher.Code, err)
			} else {
				stdLog.Printf("Created shop voucher: %s", voucher.Code)
			}
		} else {
			stdLog.Printf("Shop voucher already exists: %s", voucher.Code)
		}
	}

	stdLog.Printf("Seed completed")
}
