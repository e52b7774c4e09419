package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Scanner kinds. The constant value doubles as the route segment,
// e.g. POST /api/scanner/asm.
const (
	ScannerASA  = "asa"  // attack surface analysis
	ScannerASD  = "asd"  // attack surface discovery
	ScannerSEA  = "sea"  // secret exposure analysis
	ScannerASM  = "asm"  // attack surface management
	ScannerSBOM = "sbom" // software bill of materials
	ScannerSCA  = "sca"  // software composition analysis
	ScannerCSPM = "cspm" // cloud security posture management
	ScannerSAST = "sast" // static application security testing
	ScannerDAST = "dast" // dynamic application security testing

	// ScannerIngestion marks system-triggered trove refresh jobs. It has no
	// tenant-facing route; records are created by the populate-database
	// trigger and updated by the queue worker.
	ScannerIngestion = "ingestion"
)

const (
	StatusScheduled  = "scheduled"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusAborted    = "aborted"
)

const (
	TargetIP             = "ip"
	TargetURL            = "url"
	TargetCIDR           = "cidr"
	TargetCloud          = "cloud"
	TargetDomain         = "domain"
	TargetRepository     = "repository"
	TargetContainerImage = "container_image"
)

// ScannerKinds lists the tenant-facing scanner kinds in route order.
var ScannerKinds = []string{
	ScannerASA,
	ScannerASD,
	ScannerSEA,
	ScannerASM,
	ScannerSBOM,
	ScannerSCA,
	ScannerCSPM,
	ScannerSAST,
	ScannerDAST,
}

// AllowedTargets maps each scanner kind to the target types it accepts.
var AllowedTargets = map[string][]string{
	ScannerASA:  {TargetDomain, TargetURL, TargetIP, TargetCIDR},
	ScannerASD:  {TargetDomain, TargetURL, TargetIP, TargetCIDR},
	ScannerASM:  {TargetDomain, TargetURL, TargetIP, TargetCIDR},
	ScannerDAST: {TargetDomain, TargetURL},
	ScannerSEA:  {TargetRepository},
	ScannerSCA:  {TargetRepository},
	ScannerSAST: {TargetRepository},
	ScannerSBOM: {TargetRepository, TargetContainerImage},
	ScannerCSPM: {TargetCloud},
}

// TargetAllowed reports whether targetType is on the whitelist for scanner.
func TargetAllowed(scanner, targetType string) bool {
	for _, t := range AllowedTargets[scanner] {
		if t == targetType {
			return true
		}
	}
	return false
}

// NewTaskID returns a fresh 32-character hex task identifier.
func NewTaskID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// ScannerTask is one submitted scanner job and its lifecycle state.
// Status is deliberately an open string: the update endpoint accepts
// whatever the external worker reports.
type ScannerTask struct {
	ID            string            `json:"id" gorm:"primaryKey;type:varchar(32)"`
	User          string            `json:"user" gorm:"type:varchar(64);index"`
	Target        string            `json:"target" gorm:"type:text;not null"`
	TargetType    string            `json:"target_type" gorm:"type:varchar(32);not null"`
	Scanner       string            `json:"scanner" gorm:"type:varchar(16);not null;index"`
	ScannerData   datatypes.JSONMap `json:"scanner_data" gorm:"type:jsonb"`
	Status        string            `json:"status" gorm:"type:varchar(64);index"`
	ResultURL     string            `json:"result_url,omitempty" gorm:"type:text"`
	StatusMessage string            `json:"status_message,omitempty" gorm:"type:text"`
	Synced        bool              `json:"synced" gorm:"not null;default:false;index"`
	DateTime      time.Time         `json:"date_time" gorm:"not null;autoCreateTime"`
}

func (ScannerTask) TableName() string {
	return "scanner_tasks"
}
