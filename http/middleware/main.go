package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/trintel/tri-api/config"
	"github.com/trintel/tri-api/utils"
)

// AuthMiddleware guards the tenant-facing scanner routes. It expects a JWT
// issued by the identity service, in the access_token cookie or a Bearer
// header, and injects the identity claims into the request context.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := utils.ExtractToken(c)
		if tokenString == "" {
			utils.JSON401(c, "Missing authentication token.")
			c.Abort()
			return
		}

		token, err := utils.ParseToken(tokenString, cfg.EnvConfig)
		if err != nil || !token.Valid {
			utils.JSON401(c, "Invalid authentication token.")
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			utils.JSON401(c, "Invalid authentication token.")
			c.Abort()
			return
		}

		if err := utils.InjectClaimsToContext(c, claims); err != nil {
			utils.JSON401(c, "Invalid authentication token.")
			c.Abort()
			return
		}

		c.Next()
	}
}
