package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studenthub/internal/config"
	"studenthub/internal/hub"
	"studenthub/internal/notify"
	"studenthub/internal/queue"
	"studenthub/internal/store"
)

// Worker consumes decision messages, refreshes the cached leaderboard,
// and notifies the webhook about the verdict.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "studenthub:decisions")
	}

	repo := hub.NewRepository(db.Client)
	cache := store.NewLeaderboard(redisClient.Client, cfg.LeaderboardTTL)
	svc := hub.NewService(repo, cache)
	notifier := notify.New(cfg.NotifyWebhookURL, cfg.NotifySkip)

	// Check webhook health on startup
	if !cfg.NotifySkip {
		if err := notifier.Health(ctx); err != nil {
			log.Printf("WARNING: notification webhook not available: %v", err)
			log.Println("Worker will retry notifications when decisions arrive")
		} else {
			log.Println("Notification webhook connected")
		}
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != "decision" {
			continue
		}

		id := string(msg.Body)
		log.Printf("processing decision %s", id)

		sub, err := repo.GetSubmission(ctx, id)
		if err != nil {
			log.Printf("fetch submission %s failed: %v", id, err)
			continue
		}

		// Recompute the class leaderboard so totals reflect the decision
		if _, err := svc.RefreshLeaderboard(ctx); err != nil {
			log.Printf("leaderboard refresh failed: %v", err)
		}

		if err := notifier.SendDecision(ctx, notify.Decision{
			SubmissionID: sub.ID,
			Kind:         string(sub.Kind),
			StudentEmail: sub.OwnerEmail,
			Title:        sub.Title,
			Status:       string(sub.Status),
			Credit:       sub.Credit,
			Remark:       sub.Remark,
		}); err != nil {
			log.Printf("notify failed for %s: %v", id, err)
			continue
		}

		log.Printf("decision %s processed successfully", id)
		time.Sleep(10 * time.Millisecond) // Small delay between processing
	}

	log.Println("worker stopped")
}
