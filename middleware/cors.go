package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"collab-docs/utils"
)

func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func abortWithError(c *gin.Context, err *utils.Error) {
	c.AbortWithStatusJSON(err.Code, err.Body())
}
