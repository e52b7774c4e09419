package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/trintel/tri-api/entity"
)

type SuperUserRepository interface {
	// FindByID returns the super user or gorm.ErrRecordNotFound.
	FindByID(ctx context.Context, id string) (*entity.SuperUser, error)
}

type superUserRepository struct {
	db *gorm.DB
}

func NewSuperUserRepository(db *gorm.DB) SuperUserRepository {
	return &superUserRepository{db: db}
}

func (r *superUserRepository) FindByID(ctx context.Context, id string) (*entity.SuperUser, error) {
	var superUser entity.SuperUser
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&superUser).Error
	if err != nil {
		return nil, err
	}
	return &superUser, nil
}
