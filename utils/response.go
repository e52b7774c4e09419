package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func JSON200(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

func JSONDetail(c *gin.Context, code int, detail string) {
	c.JSON(code, gin.H{"detail": detail})
}

func JSON400(c *gin.Context, detail string) {
	JSONDetail(c, http.StatusBadRequest, detail)
}

func JSON401(c *gin.Context, detail string) {
	JSONDetail(c, http.StatusUnauthorized, detail)
}

func JSON404(c *gin.Context, detail string) {
	JSONDetail(c, http.StatusNotFound, detail)
}

func JSON500(c *gin.Context, detail string) {
	JSONDetail(c, http.StatusInternalServerError, detail)
}

func JSON502(c *gin.Context, detail string) {
	JSONDetail(c, http.StatusBadGateway, detail)
}
