package main

import (
	"database/sql"
	"log"
	"net/http"

	"tradehub-be/internal/config"
	"tradehub-be/internal/db"
	"tradehub-be/internal/handlers"
	"tradehub-be/internal/inventory"
	"tradehub-be/internal/logger"
	"tradehub-be/internal/middleware"
	"tradehub-be/internal/order"
	"tradehub-be/internal/reward"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Swappable for tests.
var (
	initDBFunc      = db.NewDatabase
	startServerFunc = func(addr string, handler http.Handler) error {
		return http.ListenAndServe(addr, handler)
	}
)

func newServer(cfg *config.Config, database *sql.DB) *gin.Engine {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	var invOpts []inventory.Option
	if cfg.AllowNegativeStock {
		invOpts = append(invOpts, inventory.AllowNegativeStock())
	}
	inv := inventory.NewLedger(database, invOpts...)
	rewards := reward.NewLedger(database)

	repo := order.NewRepository(database, inv, rewards)
	svc := order.NewService(repo)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging())
	r.Use(middleware.CORS())
	r.Use(middleware.Auth(cfg.JWTSecret))
	r.Use(middleware.RateLimit())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	handlers.RegisterOrderRoutes(r, svc)

	return r
}

func run() error {
	cfg := config.LoadConfig()

	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database, err := initDBFunc(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	router := newServer(cfg, database)

	logger.L().Info("server listening", zap.String("port", cfg.AppPort))
	return startServerFunc(":"+cfg.AppPort, router)
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
