package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"movedin-web/core"
)

func main() {
	_ = godotenv.Load()
	cfg := core.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logCloser, err := core.SetupLogging(cfg, "worker.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	db, err := core.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	redisClient, err := core.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer redisClient.Close()

	queue := core.NewRedisQueue(redisClient)
	leads := core.NewPgLeadRepository(db)
	vendor := core.NewHTTPVendorAPIClient(cfg.VendorAPIURL)
	processor := core.NewLeadProcessor(leads, vendor)
	concurrency := cfg.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	workerID := core.NewWorkerID()
	hostname, _ := os.Hostname()
	log.Printf("worker started. id=%s concurrency=%d queue=%s vendor_api=%s", workerID, concurrency, core.PendingQueueKey, cfg.VendorAPIURL)

	const pendingKey = core.PendingQueueKey
	const processingKey = core.ProcessingQueueKey
	visibility := core.DefaultVisibilityTimeout
	reclaimInterval := 15 * time.Second
	maxRetries := cfg.LeadMaxRetries

	state := core.NewHeartbeatState(workerID, hostname, concurrency)
	go state.Start(ctx, redisClient)

	// requeue expired in-flight jobs periodically
	go func() {
		ticker := time.NewTicker(reclaimInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if jobs, err := queue.RequeueExpired(ctx, processingKey, pendingKey, time.Now()); err != nil {
					log.Printf("[reclaimer] requeue expired error: %v", err)
				} else if len(jobs) > 0 {
					for _, job := range jobs {
						if id, err := strconv.ParseInt(job, 10, 64); err == nil {
							_ = leads.MarkStatus(ctx, id, "pending")
							_, _ = leads.IncrementRetry(ctx, id)
						}
					}
					log.Printf("[reclaimer] requeued %d expired jobs", len(jobs))
				}
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(workerNum int) {
			defer wg.Done()
			for {
				job, err := queue.Reserve(ctx, pendingKey, processingKey, visibility)
				if err != nil {
					if errors.Is(err, redis.Nil) {
						// Queue is empty, wait before retrying to avoid CPU spinning
						select {
						case <-ctx.Done():
							return
						case <-time.After(100 * time.Millisecond):
							continue
						}
					}
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						return
					}
					log.Printf("[worker %d] dequeue error: %v", workerNum, err)
					time.Sleep(time.Second)
					continue
				}

				log.Printf("[worker %d] received lead %s", workerNum, job)
				state.JobStarted(job)

				procErr := processor.Process(ctx, job)
				if procErr != nil {
					id, parseErr := strconv.ParseInt(job, 10, 64)
					if parseErr != nil {
						log.Printf("[worker %d] parse lead id error for %s: %v", workerNum, job, parseErr)
						_ = queue.Ack(ctx, processingKey, job)
						state.JobFinished(job, procErr)
						continue
					}

					if errors.Is(procErr, core.ErrLeadNotPending) {
						log.Printf("[worker %d] skip lead %s: already handled", workerNum, job)
						_ = queue.Ack(ctx, processingKey, job)
						state.JobFinished(job, nil)
						continue
					}

					newRetry, incErr := leads.IncrementRetry(ctx, id)
					if incErr != nil {
						log.Printf("[worker %d] increment retry failed for lead %s: %v", workerNum, job, incErr)
					}

					if newRetry <= maxRetries {
						_ = leads.MarkStatus(ctx, id, "pending")
						if err := queue.Enqueue(ctx, pendingKey, job); err != nil {
							log.Printf("[worker %d] re-enqueue lead %s failed: %v", workerNum, job, err)
						} else {
							log.Printf("[worker %d] lead %s retried (retry_count=%d)", workerNum, job, newRetry)
						}
					} else {
						if failErr := leads.MarkFailed(ctx, id, procErr.Error()); failErr != nil {
							log.Printf("[worker %d] final fail mark for lead %s: %v", workerNum, job, failErr)
						}
						log.Printf("[worker %d] lead %s failed after retries (retry_count=%d)", workerNum, job, newRetry)
					}
				}

				if err := queue.Ack(ctx, processingKey, job); err != nil {
					log.Printf("[worker %d] ack failed for lead %s: %v", workerNum, job, err)
				}
				state.JobFinished(job, procErr)
			}
		}(i + 1)
	}

	wg.Wait()
}
