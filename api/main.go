package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/bbernhard/radiology-playground/commons"
)

func main() {
	cfg, err := commons.LoadConfig("api", os.Args[1:])
	if err != nil {
		log.Fatal("[Main] Couldn't load config: ", err.Error())
	}
	commons.SetupLogging(cfg)
	commons.SetupSentry(cfg, "api")

	if cfg.Release {
		log.Info("[Main] Starting gin in release mode!")
		gin.SetMode(gin.ReleaseMode)
	}

	//creating predictions-dir if it not already exists
	//as predicitions are temporary the directory might not already exist (e.q if predictions are stored in /tmp and server reboots)
	if _, err := os.Stat(cfg.API.PredictionsDir); os.IsNotExist(err) {
		log.Debug("[Main] Creating directory for predictions as it doesn't exist")
		if err := os.MkdirAll(cfg.API.PredictionsDir, 0755); err != nil {
			log.Fatal("[Main] Couldn't create directory: ", err.Error())
		}
	}

	redisPool := commons.NewRedisPool(cfg.Redis.Address, cfg.Redis.MaxConnections)
	defer redisPool.Close()

	server := NewServer(cfg, redisPool)
	httpServer := &http.Server{
		Addr:    cfg.API.Listen,
		Handler: server.Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("[Main] Listening on ", cfg.API.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return server.sessions.janitor(ctx, time.Minute, server.cancel)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("[Main] ", err.Error())
	}
}
