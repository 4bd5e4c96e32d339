package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type healthcheckResponse struct {
	Message string `json:"msg"`
	Version string `json:"version"`
}

func healthcheck(version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, healthcheckResponse{
			Message: "cinder operational",
			Version: version,
		})
	}
}
