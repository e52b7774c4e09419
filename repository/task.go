package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/trintel/tri-api/entity"
)

// TaskFilter selects scanner tasks by exact match. Zero-valued fields are
// not applied; Status and Synced are pointers so the privileged listing
// can filter on them explicitly.
type TaskFilter struct {
	User    string
	Scanner string
	Status  *string
	Synced  *bool
}

// TaskRepository persists scanner task records. Implementations must be
// safe for concurrent use.
type TaskRepository interface {
	// Create inserts a new task record. A duplicate identifier surfaces
	// as a store-level conflict error.
	Create(ctx context.Context, task *entity.ScannerTask) error

	// FindByID returns the task or gorm.ErrRecordNotFound.
	FindByID(ctx context.Context, id string) (*entity.ScannerTask, error)

	// Find returns one page of tasks matching filter.
	Find(ctx context.Context, filter TaskFilter, skip, limit int) ([]entity.ScannerTask, error)

	// Count returns the total number of tasks matching filter.
	Count(ctx context.Context, filter TaskFilter) (int64, error)

	// Update persists the full task record, last writer wins.
	Update(ctx context.Context, task *entity.ScannerTask) error
}

type taskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *entity.ScannerTask) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *taskRepository) FindByID(ctx context.Context, id string) (*entity.ScannerTask, error) {
	var task entity.ScannerTask
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) Find(ctx context.Context, filter TaskFilter, skip, limit int) ([]entity.ScannerTask, error) {
	var tasks []entity.ScannerTask
	err := r.applyFilter(ctx, filter).Offset(skip).Limit(limit).Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) Count(ctx context.Context, filter TaskFilter) (int64, error) {
	var count int64
	err := r.applyFilter(ctx, filter).Model(&entity.ScannerTask{}).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *taskRepository) Update(ctx context.Context, task *entity.ScannerTask) error {
	return r.db.WithContext(ctx).Save(task).Error
}

func (r *taskRepository) applyFilter(ctx context.Context, filter TaskFilter) *gorm.DB {
	query := r.db.WithContext(ctx)
	if filter.User != "" {
		query = query.Where("\"user\" = ?", filter.User)
	}
	if filter.Scanner != "" {
		query = query.Where("scanner = ?", filter.Scanner)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Synced != nil {
		query = query.Where("synced = ?", *filter.Synced)
	}
	return query
}
