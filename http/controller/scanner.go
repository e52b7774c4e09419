package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/trintel/tri-api/entity"
	"github.com/trintel/tri-api/http/controller/dto"
	"github.com/trintel/tri-api/repository"
	"github.com/trintel/tri-api/utils"
)

const (
	tenantDefaultPageSize = 3
	tenantMaxPageSize     = 10

	// maxPageNumber keeps the skip computation far away from integer
	// overflow for any allowed page size
	maxPageNumber = 1 << 20
)

// CreateScannerTask returns the submission handler for one scanner kind.
// All kinds share the same flow; only the target-type whitelist differs.
func (ctrl *Controller) CreateScannerTask(scanner string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userID := c.GetString("user_id")

		var req dto.ScannerTaskArguments
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.JSON400(c, "Irregular input detected for the scanner.")
			return
		}

		if !entity.TargetAllowed(scanner, req.TargetType) {
			utils.JSON400(c, "Irregular input detected for the scanner.")
			return
		}

		task := &entity.ScannerTask{
			ID:          entity.NewTaskID(),
			User:        userID,
			Target:      req.Target,
			TargetType:  req.TargetType,
			Scanner:     scanner,
			ScannerData: datatypes.JSONMap(req.ScannerData),
			Status:      entity.StatusScheduled,
			Synced:      false,
		}

		if err := ctrl.Repository.TaskRepo.Create(ctx, task); err != nil {
			ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "Failed to create %s task for user %s", scanner, userID)
			utils.JSON500(c, "Internal server error.")
			return
		}

		ctrl.Infra.Logger.InfoWithContextf(ctx, "Scheduled %s task %s for user %s", scanner, task.ID, userID)

		// the caller polls the listing endpoint; no body on success
		c.Status(http.StatusOK)
	}
}

// ListScannerTasks returns the paginated listing handler for one scanner
// kind, scoped to the calling tenant.
func (ctrl *Controller) ListScannerTasks(scanner string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userID := c.GetString("user_id")

		page := queryInt(c, "page", 1)
		if page < 1 {
			page = 1
		}
		if page > maxPageNumber {
			page = maxPageNumber
		}
		pageSize := queryInt(c, "page_size", tenantDefaultPageSize)
		if pageSize < 1 {
			pageSize = 1
		}
		if pageSize > tenantMaxPageSize {
			pageSize = tenantMaxPageSize
		}

		filter := repository.TaskFilter{
			User:    userID,
			Scanner: scanner,
		}

		total, err := ctrl.Repository.TaskRepo.Count(ctx, filter)
		if err != nil {
			ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "Failed to count %s tasks for user %s", scanner, userID)
			utils.JSON500(c, "Internal server error.")
			return
		}

		tasks, err := ctrl.Repository.TaskRepo.Find(ctx, filter, (page-1)*pageSize, pageSize)
		if err != nil {
			ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "Failed to list %s tasks for user %s", scanner, userID)
			utils.JSON500(c, "Internal server error.")
			return
		}

		utils.JSON200(c, dto.PaginatedScannerTaskResponse{
			Total:      total,
			PageNumber: page,
			Data:       tasks,
		})
	}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	val := c.Query(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}
