package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trintel/tri-api/entity"
)

// TroveRepository stores the ingested CVE/CWE/CAPEC reference records.
// Upserts have replace semantics: an incoming record fully overwrites any
// existing document with the same key.
type TroveRepository interface {
	UpsertCVEs(ctx context.Context, records []entity.CVERecord) error
	UpsertCWEs(ctx context.Context, records []entity.CWERecord) error
	UpsertCAPECs(ctx context.Context, records []entity.CAPECRecord) error

	FindCVEByID(ctx context.Context, id string) (*entity.CVERecord, error)
	FindCWEByID(ctx context.Context, id string) (*entity.CWERecord, error)
	FindCAPECByID(ctx context.Context, id string) (*entity.CAPECRecord, error)
}

type troveRepository struct {
	db *gorm.DB
}

func NewTroveRepository(db *gorm.DB) TroveRepository {
	return &troveRepository{db: db}
}

func (r *troveRepository) UpsertCVEs(ctx context.Context, records []entity.CVERecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&records).Error
}

func (r *troveRepository) UpsertCWEs(ctx context.Context, records []entity.CWERecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&records).Error
}

func (r *troveRepository) UpsertCAPECs(ctx context.Context, records []entity.CAPECRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&records).Error
}

func (r *troveRepository) FindCVEByID(ctx context.Context, id string) (*entity.CVERecord, error) {
	var record entity.CVERecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *troveRepository) FindCWEByID(ctx context.Context, id string) (*entity.CWERecord, error) {
	var record entity.CWERecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *troveRepository) FindCAPECByID(ctx context.Context, id string) (*entity.CAPECRecord, error) {
	var record entity.CAPECRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}
