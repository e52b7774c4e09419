package route

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/trintel/tri-api/config"
	"github.com/trintel/tri-api/entity"
	"github.com/trintel/tri-api/http/controller"
	"github.com/trintel/tri-api/http/middleware"
)

// SetupRouter wires the HTTP surface: one submission/listing route pair per
// scanner kind, the privileged scanner-fleet endpoints, and the trove
// lookup routes.
func SetupRouter(ctrl *controller.Controller, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	corsConfig := cors.DefaultConfig()
	if cfg.EnvConfig.CORS.AllowDomains != "" {
		corsConfig.AllowOrigins = strings.Split(cfg.EnvConfig.CORS.AllowDomains, ",")
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowCredentials = !corsConfig.AllowAllOrigins
	corsConfig.AddAllowHeaders("Authorization")
	r.Use(cors.New(corsConfig))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	scanner := api.Group("/scanner")
	scanner.Use(middleware.AuthMiddleware(cfg))
	for _, kind := range entity.ScannerKinds {
		scanner.POST("/"+kind, ctrl.CreateScannerTask(kind))
		scanner.GET("/"+kind, ctrl.ListScannerTasks(kind))
	}

	superUser := api.Group("/super-user")
	superUser.POST("/scanner/fetch-task", ctrl.FetchTasks)
	superUser.POST("/scanner/update-task", ctrl.UpdateTask)
	superUser.POST("/tasks/populate-database", ctrl.PopulateDatabase)

	trove := api.Group("/trove")
	trove.Use(middleware.AuthMiddleware(cfg))
	trove.GET("/cve/:cve_id", ctrl.GetCVE)
	trove.GET("/cwe/:cwe_id", ctrl.GetCWE)
	trove.GET("/capec/:capec_id", ctrl.GetCAPEC)

	return r
}
