package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/trintel/tri-api/utils"
)

const itemNotFoundDetail = "Item not found."

// GetCVE serves one CVE document by identifier, e.g. CVE-2024-3094.
func (ctrl *Controller) GetCVE(c *gin.Context) {
	ctrl.serveTroveDocument(c, "cve", c.Param("cve_id"), func(ctx context.Context, id string) ([]byte, error) {
		record, err := ctrl.Repository.TroveRepo.FindCVEByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return []byte(record.Data), nil
	})
}

// GetCWE serves one CWE document by identifier, e.g. CWE-79.
func (ctrl *Controller) GetCWE(c *gin.Context) {
	ctrl.serveTroveDocument(c, "cwe", c.Param("cwe_id"), func(ctx context.Context, id string) ([]byte, error) {
		record, err := ctrl.Repository.TroveRepo.FindCWEByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return []byte(record.Data), nil
	})
}

// GetCAPEC serves one CAPEC document by identifier, e.g. CAPEC-66.
func (ctrl *Controller) GetCAPEC(c *gin.Context) {
	ctrl.serveTroveDocument(c, "capec", c.Param("capec_id"), func(ctx context.Context, id string) ([]byte, error) {
		record, err := ctrl.Repository.TroveRepo.FindCAPECByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return []byte(record.Data), nil
	})
}

// serveTroveDocument answers a trove lookup through a Redis read-through
// cache. The documents change only on ingestion, so a stale window of one
// cache TTL is acceptable.
func (ctrl *Controller) serveTroveDocument(c *gin.Context, dataset, id string, fetch func(context.Context, string) ([]byte, error)) {
	ctx := c.Request.Context()

	if id == "" {
		utils.JSON400(c, "Identifier is required.")
		return
	}

	cacheKey := "trove:" + dataset + ":" + id

	cached, err := ctrl.Infra.Redis.Client.Get(ctx, cacheKey).Bytes()
	if err == nil {
		c.Data(http.StatusOK, "application/json", cached)
		return
	}
	if !errors.Is(err, redis.Nil) {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "Trove cache read failed for %s: %v", cacheKey, err)
	}

	doc, err := fetch(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.JSONDetail(c, http.StatusNoContent, itemNotFoundDetail)
			return
		}
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "Failed to load trove %s document %s", dataset, id)
		utils.JSON500(c, "Internal server error.")
		return
	}

	if err := ctrl.Infra.Redis.Client.Set(ctx, cacheKey, doc, ctrl.Infra.Redis.CacheTTL).Err(); err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "Trove cache write failed for %s: %v", cacheKey, err)
	}

	c.Data(http.StatusOK, "application/json", doc)
}
