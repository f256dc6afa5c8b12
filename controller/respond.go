package controller

import (
	"github.com/gin-gonic/gin"

	"collab-docs/utils"
)

// SendError writes the uniform error body; the HTTP status equals the error
// code.
func SendError(c *gin.Context, err error) {
	appErr := utils.AsError(err)
	c.AbortWithStatusJSON(appErr.Code, appErr.Body())
}
