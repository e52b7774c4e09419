package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/trintel/tri-api/config"
	"github.com/trintel/tri-api/http/controller"
	"github.com/trintel/tri-api/http/route"
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
	ctrl := controller.NewController(cfg, inf, repo)

	r := route.SetupRouter(ctrl, cfg)
	if err := r.Run(":8080"); err != nil {
		log.Fatalf("Failed to start HTTP server: %v", err)
	}
}
