package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	intconfig "tourbooking/internal/config"
	intdb "tourbooking/internal/db"
	router "tourbooking/internal/http"
	h "tourbooking/internal/http/handlers"
	"tourbooking/internal/payos"
	"tourbooking/internal/services"
	"tourbooking/internal/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	env := intconfig.LoadEnv()
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	log := utils.NewLogger(env.GinMode == gin.DebugMode)
	utils.SetDefaultLogger(log)

	db, err := intconfig.ConnectDB(env.DBDSN)
	if err != nil {
		log.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer intconfig.CloseDB()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := intdb.EnsureSchema(ctx, db); err != nil {
		cancel()
		log.Error("schema migration failed", "error", err)
		os.Exit(1)
	}
	cancel()

	var cache services.Cache = services.NoopCache{}
	rdb, err := intconfig.ConnectRedis(env.RedisAddr)
	switch {
	case err != nil:
		log.Warn("redis unavailable, caching disabled", "addr", env.RedisAddr, "error", err)
	case rdb != nil:
		defer rdb.Close()
		cache = services.RedisCache{RDB: rdb}
		log.Info("redis cache enabled", "addr", env.RedisAddr)
	}

	deps := h.Deps{Env: env, Cache: cache, Logger: log}
	if env.PayOSClientID != "" {
		deps.Gateway = payos.New(env.PayOSBaseURL, env.PayOSClientID, env.PayOSAPIKey, env.PayOSChecksumKey)
	} else {
		log.Warn("PAYOS_CLIENT_ID not set, online payment disabled")
	}

	r := router.NewRouter(env, deps)

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server listening", "addr", env.AppAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		return
	}

	log.Info("server stopped")
}
