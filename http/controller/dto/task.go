package dto

import (
	"github.com/trintel/tri-api/entity"
)

// ScannerTaskArguments is the tenant-facing job submission payload.
type ScannerTaskArguments struct {
	Target      string                 `json:"target" binding:"required"`
	TargetType  string                 `json:"target_type" binding:"required"`
	ScannerData map[string]interface{} `json:"scanner_data"`
}

// SuperUserCredentials is the credential triple privileged endpoints
// require in the request body.
type SuperUserCredentials struct {
	ID       string `json:"id"`
	Password string `json:"password"`
	LoginKey string `json:"login_key"`
}

// FetchTasksRequest selects tasks for the external scanner fleet. Status
// and Synced are optional filters; nil means no constraint.
type FetchTasksRequest struct {
	SuperUserCredentials
	Status   *string `json:"status"`
	Synced   *bool   `json:"synced"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}

// UpdateTaskRequest overwrites the lifecycle fields of one task.
type UpdateTaskRequest struct {
	SuperUserCredentials
	TaskID        string `json:"task_id"`
	Status        string `json:"status"`
	ResultURL     string `json:"result_url"`
	StatusMessage string `json:"status_message"`
	Synced        bool   `json:"synced"`
}

// PopulateDatabaseRequest triggers a trove ingestion job.
type PopulateDatabaseRequest struct {
	SuperUserCredentials
}

type PaginatedScannerTaskResponse struct {
	Total      int64                `json:"total"`
	PageNumber int                  `json:"page_number"`
	Data       []entity.ScannerTask `json:"data"`
}
