package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/trintel/tri-api/config"
	"github.com/trintel/tri-api/consumer/worker"
	"github.com/trintel/tri-api/infra"
	"github.com/trintel/tri-api/repository"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := config.NewConfig()
	inf := infra.InitInfra(cfg)
	defer inf.Close(context.Background())

	repo := repository.InitRepository(inf)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := worker.NewTaskConsumer(cfg, inf, repo)
	if err := consumer.Start(ctx); err != nil {
		log.Fatalf("Task consumer failed: %v", err)
	}
	log.Println("Task consumer stopped")
}
