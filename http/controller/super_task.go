package controller

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/trintel/tri-api/entity"
	"github.com/trintel/tri-api/http/controller/dto"
	"github.com/trintel/tri-api/infra/produce"
	"github.com/trintel/tri-api/repository"
	"github.com/trintel/tri-api/utils"
)

const (
	superDefaultPageSize = 100
	superMaxPageSize     = 100

	missingCredentialsDetail = "Missing appropriate credentials."
)

// authorizeSuperUser validates the credential triple carried in a
// privileged request. A malformed triple is a client error; a triple that
// names an unknown user or a wrong password is reported as an upstream
// failure so the endpoint leaks nothing about which part was wrong. On
// failure the response has already been written.
func (ctrl *Controller) authorizeSuperUser(c *gin.Context, creds dto.SuperUserCredentials) bool {
	ctx := c.Request.Context()

	if creds.ID == "" || creds.Password == "" || creds.LoginKey == "" {
		utils.JSON400(c, missingCredentialsDetail)
		return false
	}

	if !utils.SecureCompare(creds.LoginKey, ctrl.Config.EnvConfig.SuperUser.LoginKey) {
		utils.JSON400(c, missingCredentialsDetail)
		return false
	}

	superUser, err := ctrl.Repository.SuperUserRepo.FindByID(ctx, creds.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "Failed to look up super user %s", creds.ID)
		}
		utils.JSON502(c, missingCredentialsDetail)
		return false
	}

	digest := utils.HashPassword(ctrl.Config.EnvConfig.PrivateKey, creds.Password)
	if !utils.SecureCompare(digest, superUser.Password) {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "Rejected super-user credentials for %s", creds.ID)
		utils.JSON502(c, missingCredentialsDetail)
		return false
	}

	return true
}

// FetchTasks hands out task pages to the external scanner fleet, filtered
// by lifecycle state.
func (ctrl *Controller) FetchTasks(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.FetchTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, missingCredentialsDetail)
		return
	}
	if !ctrl.authorizeSuperUser(c, req.SuperUserCredentials) {
		return
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	if page > maxPageNumber {
		page = maxPageNumber
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = superDefaultPageSize
	}
	if pageSize > superMaxPageSize {
		pageSize = superMaxPageSize
	}

	// the fleet pulls unacknowledged work unless it asks otherwise
	if req.Synced == nil {
		unsynced := false
		req.Synced = &unsynced
	}

	filter := repository.TaskFilter{
		Status: req.Status,
		Synced: req.Synced,
	}

	total, err := ctrl.Repository.TaskRepo.Count(ctx, filter)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "Failed to count tasks for fetch-task")
		utils.JSON500(c, "Internal server error.")
		return
	}

	tasks, err := ctrl.Repository.TaskRepo.Find(ctx, filter, (page-1)*pageSize, pageSize)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "Failed to fetch tasks")
		utils.JSON500(c, "Internal server error.")
		return
	}

	utils.JSON200(c, dto.PaginatedScannerTaskResponse{
		Total:      total,
		PageNumber: page,
		Data:       tasks,
	})
}

// UpdateTask overwrites the lifecycle fields of one task with whatever the
// external worker reports. Status is accepted verbatim.
func (ctrl *Controller) UpdateTask(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, missingCredentialsDetail)
		return
	}
	if !ctrl.authorizeSuperUser(c, req.SuperUserCredentials) {
		return
	}

	if req.TaskID == "" {
		utils.JSON400(c, "Task ID is required.")
		return
	}

	task, err := ctrl.Repository.TaskRepo.FindByID(ctx, req.TaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.JSON404(c, "Task not found with this ID.")
			return
		}
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "Failed to load task %s", req.TaskID)
		utils.JSON500(c, "Internal server error.")
		return
	}

	task.Status = req.Status
	task.ResultURL = req.ResultURL
	task.StatusMessage = req.StatusMessage
	task.Synced = req.Synced

	if err := ctrl.Repository.TaskRepo.Update(ctx, task); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "Failed to update task %s", req.TaskID)
		utils.JSON500(c, "Internal server error.")
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "Task %s updated to status %q (synced=%t)", task.ID, task.Status, task.Synced)
	utils.JSON200(c, task)
}

// PopulateDatabase schedules a trove ingestion job. The job itself runs in
// the queue worker; this endpoint only records the task and enqueues it.
func (ctrl *Controller) PopulateDatabase(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.PopulateDatabaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, missingCredentialsDetail)
		return
	}
	if !ctrl.authorizeSuperUser(c, req.SuperUserCredentials) {
		return
	}

	task := &entity.ScannerTask{
		ID:         entity.NewTaskID(),
		User:       req.ID,
		Target:     time.Now().UTC().Format("2006-01-02") + ".tar.gz",
		TargetType: "archive",
		Scanner:    entity.ScannerIngestion,
		Status:     entity.StatusScheduled,
		Synced:     false,
	}

	if err := ctrl.Repository.TaskRepo.Create(ctx, task); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "Failed to record ingestion task")
		utils.JSON500(c, "Internal server error.")
		return
	}

	msg := produce.TaskMessage{
		Name:   produce.PopulateTroveTask,
		TaskID: task.ID,
	}
	if err := ctrl.Infra.Produce.TaskService.PublishTask(ctx, msg); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "Failed to enqueue ingestion task %s", task.ID)
		utils.JSON500(c, "Internal server error.")
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "Trove ingestion task %s enqueued", task.ID)
	utils.JSON200(c, gin.H{"task_id": task.ID})
}
