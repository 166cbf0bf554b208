package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/garyburd/redigo/redis"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/bbernhard/radiology-playground/commons"
	"github.com/bbernhard/radiology-playground/inference"
)

// consume moves analysis requests from the redis 'analyzeme' queue into the job
// queue until ctx is done.
func consume(ctx context.Context, redisPool *redis.Pool, jobQueue chan<- Job, idle time.Duration) error {
	for {
		redisConn := redisPool.Get()
		req, ok, err := commons.Dequeue(redisConn)
		redisConn.Close()

		if err != nil {
			log.Debug("[Main] ", err.Error())
		}
		if !ok {
			select {
			case <-time.After(idle): //nothing in queue, sleep for a bit
				continue
			case <-ctx.Done():
				return nil
			}
		}

		log.Debug("[Main] Got a new request to process")
		select {
		case jobQueue <- Job{AnalysisRequest: req}:
		case <-ctx.Done():
			return nil
		}
	}
}

func main() {
	cfg, err := commons.LoadConfig("predict", os.Args[1:])
	if err != nil {
		log.Fatal("[Main] Couldn't load config: ", err.Error())
	}
	commons.SetupLogging(cfg)
	commons.SetupSentry(cfg, "predict")

	log.Debug("[Main] Starting Analysis Worker...")

	redisPool := commons.NewRedisPool(cfg.Redis.Address, cfg.Redis.MaxConnections)
	defer redisPool.Close()

	client := inference.NewClient(cfg.Inference.URL, inference.Options{
		Timeout:    cfg.Inference.Timeout,
		RetryCount: cfg.Inference.RetryCount,
	})
	analyzer := NewAnalyzer(redisPool, client, cfg.Inference.MaxImageDimension)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Debug("[Main] Starting Dispatcher...")
	jobQueue := make(chan Job, cfg.Worker.MaxWorkerQueueSize)
	dispatcher := NewDispatcher(jobQueue, cfg.Worker.MaxWorkers, analyzer)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dispatcher.run(ctx) })
	g.Go(func() error { return consume(ctx, redisPool, jobQueue, time.Second) })

	if err := g.Wait(); err != nil {
		log.Error("[Main] ", err.Error())
	}
	log.Debug("[Main] Analysis Worker stopped")
}
