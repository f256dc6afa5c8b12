package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"collab-docs/middleware"
	"collab-docs/models"
	"collab-docs/services"
	"collab-docs/utils"
)

type ChangeController struct {
	engine *services.ChangeEngine
}

func NewChangeController(engine *services.ChangeEngine) *ChangeController {
	return &ChangeController{engine: engine}
}

// ApplyChanges handles POST /documents/:id/changes. The body is either a
// single {textToReplace, newText} pair or a {changes: [...]} batch.
func (cc *ChangeController) ApplyChanges(c *gin.Context) {
	var req models.ChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendError(c, utils.BadRequest(err.Error()))
		return
	}
	resp, err := cc.engine.Apply(c.Param("id"), middleware.CurrentPrincipal(c), &req)
	if err != nil {
		SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
