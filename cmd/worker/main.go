package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"smartattendance/internal/biometric"
	"smartattendance/internal/config"
	"smartattendance/internal/enrollment"
	"smartattendance/internal/faceclient"
	"smartattendance/internal/logging"
	"smartattendance/internal/queue"
	"smartattendance/internal/store"
	"smartattendance/internal/users"
)

// Worker consumes face enrollment jobs, asks the face service for an
// embedding and stores the template.
func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	if cfg.QueueBackend == "memory" {
		log.Fatal("worker needs a shared queue: set QUEUE_BACKEND to redis or amqp")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	logger := logging.New(cfg.Env, "worker")

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	q, err := queue.Open(cfg.QueueBackend, redisClient.Client, cfg.AMQPURL, cfg.QueueName)
	if err != nil {
		log.Fatalf("queue init failed: %v", err)
	}
	defer queue.Close(q)

	face := faceclient.New(cfg.FaceServiceURL, cfg.FaceSkip)

	// Check face service health on startup
	if !cfg.FaceSkip {
		if err := face.Health(ctx); err != nil {
			log.Printf("WARNING: Face service not available: %v", err)
			log.Println("Jobs will fail until the face service is reachable")
		} else {
			log.Println("Face service connected")
		}
	}

	people := users.NewService(users.NewRepository(db.Client), logger)
	proc := enrollment.NewProcessor(people, face, biometric.NewRepository(db.Client), logger)

	log.Println("worker started, waiting for messages...")
	if err := proc.Run(ctx, q); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("worker failed: %v", err)
	}
	log.Println("worker stopped")
}
