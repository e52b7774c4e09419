package controller

import (
	"github.com/trintel/tri-api/config"
	"github.com/trintel/tri-api/infra"
	"github.com/trintel/tri-api/repository"
)

type Controller struct {
	Config     *config.Config
	Infra      *infra.Infra
	Repository *repository.Repository
}

func NewController(cfg *config.Config, infra *infra.Infra, repo *repository.Repository) *Controller {
	return &Controller{
		Config:     cfg,
		Infra:      infra,
		Repository: repo,
	}
}
