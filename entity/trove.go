package entity

import "gorm.io/datatypes"

// Trove reference records are whole-document upserts: each ingested line
// replaces any prior document with the same key, no field-level merge.

type CVERecord struct {
	ID   string         `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Data datatypes.JSON `json:"data" gorm:"type:jsonb;not null"`
}

func (CVERecord) TableName() string {
	return "trove_cve"
}

type CWERecord struct {
	ID   string         `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Data datatypes.JSON `json:"data" gorm:"type:jsonb;not null"`
}

func (CWERecord) TableName() string {
	return "trove_cwe"
}

type CAPECRecord struct {
	ID   string         `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Data datatypes.JSON `json:"data" gorm:"type:jsonb;not null"`
}

func (CAPECRecord) TableName() string {
	return "trove_capec"
}
