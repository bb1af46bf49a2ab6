package main

import (
	"log/slog"
	"os"

	"petstore/internal/config"
	"petstore/internal/domain/model"
	"petstore/internal/handler"
	"petstore/internal/infra/db"
	infraRepo "petstore/internal/infra/repository"
	"petstore/internal/logger"
	"petstore/internal/server"
	"petstore/internal/usecase"

	"github.com/joho/godotenv"
)

func main() {
	//.envはローカル用。無ければ環境変数だけで動く
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	log := logger.SetupLogger(cfg.GoEnv)

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		log.Error("failed to connect db", slog.Any("error", err))
		os.Exit(1)
	}

	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.Order{},
		&model.OrderItem{},
		&model.Payment{},
		&model.Address{},
		&model.Cart{},
		&model.CartItem{},
		&model.WishlistItem{},
		&model.Review{},
		&model.InventoryAdjustment{},
		&model.AuditLog{},
	); err != nil {
		log.Error("failed to migrate", slog.Any("error", err))
		os.Exit(1)
	}

	//Repository（GORM実装）生成
	txManager := infraRepo.NewTxManagerGorm(gormDB)
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	inventoryRepo := infraRepo.NewInventoryGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	cartItemRepo := infraRepo.NewCartItemGormRepository(gormDB)
	addressRepo := infraRepo.NewAddressGormRepository(gormDB)
	wishlistRepo := infraRepo.NewWishlistGormRepository(gormDB)
	reviewRepo := infraRepo.NewReviewGormRepository(gormDB)

	//Usecase生成
	authUC := usecase.NewAuthUsecase(userRepo, []byte(cfg.JWTSecret))
	productUC := usecase.NewProductUsecase(productRepo, inventoryRepo, auditRepo)
	cartUC := usecase.NewCartUsecase(cartRepo, cartItemRepo, productRepo)
	addressUC := usecase.NewAddressUsecase(addressRepo)
	wishlistUC := usecase.NewWishlistUsecase(wishlistRepo, productRepo)
	orderUC := usecase.NewOrderUsecase(txManager, log)
	adminOrderUC := usecase.NewAdminOrderUsecase(txManager, userRepo, auditRepo, log)
	paymentUC := usecase.NewPaymentUsecase(txManager, log)
	reviewUC := usecase.NewReviewUsecase(reviewRepo, productRepo, orderUC)
	adminUserUC := usecase.NewAdminUserUsecase(userRepo, auditRepo)

	//Handler生成
	handlers := server.Handlers{
		Auth:         handler.NewAuthHandler(authUC),
		Product:      handler.NewProductHandler(productUC),
		Review:       handler.NewReviewHandler(reviewUC),
		Cart:         handler.NewCartHandler(cartUC),
		Address:      handler.NewAddressHandler(addressUC),
		Wishlist:     handler.NewWishlistHandler(wishlistUC),
		Order:        handler.NewOrderHandler(orderUC, adminOrderUC),
		Payment:      handler.NewPaymentHandler(paymentUC),
		AdminProduct: handler.NewAdminProductHandler(productUC),
		AdminUser:    handler.NewAdminUserHandler(adminUserUC),
	}

	e := server.New(cfg, log, handlers)

	log.Info("server starting", slog.String("port", cfg.Port), slog.String("env", cfg.GoEnv))
	if err := e.Start(":" + cfg.Port); err != nil {
		log.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
