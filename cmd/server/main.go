package main

import (
	"context"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/pdrinv/inventory-api/internal/config"
	"github.com/pdrinv/inventory-api/internal/database"
	"github.com/pdrinv/inventory-api/internal/handler"
	"github.com/pdrinv/inventory-api/internal/importer"
	"github.com/pdrinv/inventory-api/internal/queue"
	"github.com/pdrinv/inventory-api/internal/repository"
	"github.com/pdrinv/inventory-api/internal/router"
)

func main() {
	cfg := config.Load()
	if cfg.Env == "prod" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logrus.WithError(err).Fatal("database connect failed")
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		logrus.Warn("redis unavailable, rate limiting and caching disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	articles := repository.NewArticleRepo(db)
	sessions := repository.NewSessionRepo(db)
	counts := repository.NewCountRepo(db, cfg.DuplicateMode)
	history := repository.NewHistoryRepo(db)
	results := repository.NewResultRepo(db)
	addLog := repository.NewArticleAddLogRepo(db)

	im := importer.New(db, cfg.SourceDSN, cfg.SyncInterval)

	h := router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, users, tokens),
		Users:    handler.NewUserHandler(cfg, users),
		Articles: handler.NewArticleHandler(articles),
		Sessions: handler.NewSessionHandler(sessions, counts),
		Counts:   handler.NewCountHandler(counts, sessions, articles),
		History:  handler.NewHistoryHandler(history),
		Results:  handler.NewResultHandler(results, sessions, addLog),
		Sync:     handler.NewSyncHandler(im),
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	router.Register(e, cfg, h, rdb)

	// Background workers: activity feed consumer and catalog importer.
	go func() {
		if err := queue.StartCountingConsumer(); err != nil {
			logrus.WithError(err).Warn("counting consumer stopped")
		}
	}()
	go im.Run(context.Background())

	addr := ":" + cfg.Port
	logrus.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
	if err := e.Start(addr); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}
