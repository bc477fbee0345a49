package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"oposiciones/bootstrap"
	"oposiciones/config"
	"oposiciones/controllers"
	"oposiciones/db"
	"oposiciones/logger"
	"oposiciones/router"
	"oposiciones/workers"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CONFIG_PATH points at the JSON configuration (default config.json).
// Every field can be overridden by the environment variables read in config.
func main() {
	conf := config.Get(getenv("CONFIG_PATH", "config.json"))

	zl, err := logger.New(conf.LogLevel, conf.DevMode)
	if err != nil {
		log.Fatal(err)
	}
	defer zl.Sync()
	logger.Set(zl)

	if !conf.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	db.SetConfigurations(conf)
	database, err := db.Connect()
	if err != nil {
		zl.Fatal("database", zap.Error(err))
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, closeEnv, err := bootstrap.NewEnv(ctx, conf, database, zl)
	if err != nil {
		zl.Fatal("bootstrap", zap.Error(err))
	}
	defer closeEnv()
	controllers.SetEnv(env)

	var bg *workers.Group
	if conf.Workers.Enabled {
		bg = workers.Start(ctx, env)
	}

	r := gin.New()
	router.Initialize(r, conf, database)

	srv := &http.Server{
		Addr:              ":" + conf.ApiPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("listening", zap.String("addr", srv.Addr), zap.Bool("workers", conf.Workers.Enabled))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("http shutdown", zap.Error(err))
	}
	if bg != nil {
		bg.Wait()
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
