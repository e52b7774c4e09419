package repository

import (
	"github.com/trintel/tri-api/infra"
)

type Repository struct {
	TaskRepo      TaskRepository
	TroveRepo     TroveRepository
	SuperUserRepo SuperUserRepository
}

func InitRepository(infra *infra.Infra) *Repository {
	return &Repository{
		TaskRepo:      NewTaskRepository(infra.Postgres.DB),
		TroveRepo:     NewTroveRepository(infra.Postgres.DB),
		SuperUserRepo: NewSuperUserRepository(infra.Postgres.DB),
	}
}
