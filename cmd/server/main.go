package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/taipei-day-trip/internal/config"
	"github.com/iliyamo/taipei-day-trip/internal/database"
	"github.com/iliyamo/taipei-day-trip/internal/handler"
	"github.com/iliyamo/taipei-day-trip/internal/logger"
	"github.com/iliyamo/taipei-day-trip/internal/middleware"
	"github.com/iliyamo/taipei-day-trip/internal/payment"
	"github.com/iliyamo/taipei-day-trip/internal/queue"
	"github.com/iliyamo/taipei-day-trip/internal/repository"
	"github.com/iliyamo/taipei-day-trip/internal/router"
	"github.com/iliyamo/taipei-day-trip/internal/service"
	"github.com/iliyamo/taipei-day-trip/internal/utils"
	"github.com/iliyamo/taipei-day-trip/internal/worker"
)

func main() {
	cfg := config.Load() // Load environment config
	logger.Init(cfg.Env, cfg.LogLevel)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil when Redis is down: cache and limiter pass through
	if rdb != nil {
		defer rdb.Close()
	}

	// Repositories
	members := repository.NewMemberRepo(db)
	reservations := repository.NewReservationRepo(db)
	orders := repository.NewOrderRepo(db)
	attractions := repository.NewAttractionRepo(db)

	// Services
	tokens := utils.NewTokenService(cfg.Keyring(), cfg.JWTKeyID, cfg.TokenTTL)
	gateway := payment.NewClient(payment.Config{
		URL:        cfg.Payment.URL,
		PartnerKey: cfg.Payment.PartnerKey,
		MerchantID: cfg.Payment.MerchantID,
		Details:    cfg.Payment.Details,
		Timeout:    cfg.Payment.Timeout,
	})
	publisher := queue.NewPublisher(cfg.AMQPURL)
	memberSvc := service.NewMemberService(members, tokens, cfg.BcryptCost)
	orderSvc := service.NewOrderService(db, orders, reservations, attractions, gateway, publisher)

	// HTTP
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger())

	router.RegisterRoutes(e, db)
	api := router.API(e, tokens, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	router.RegisterPublic(api, handler.NewAttractionHandler(attractions), middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	router.RegisterAuth(api, handler.NewAuthHandler(memberSvc))
	router.RegisterMember(api, handler.NewBookingHandler(reservations), handler.NewOrderHandler(orderSvc), tokens)

	// Background jobs stop when ctx is cancelled at shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.NewOrderSweeper(orders, cfg.OrderSweepInterval, cfg.OrderPendingTTL).Run(ctx)
	}()
	if cfg.QueueConsumerEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			queue.NewConsumer(cfg.AMQPURL).Run(ctx)
		}()
	}

	addr := ":" + cfg.Port
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 35*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	wg.Wait()
}
