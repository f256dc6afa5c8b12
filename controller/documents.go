package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"collab-docs/middleware"
	"collab-docs/models"
	"collab-docs/services"
	"collab-docs/store"
	"collab-docs/utils"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	maxSearchLen    = 100
)

type DocumentController struct {
	docs *services.DocumentService
}

func NewDocumentController(docs *services.DocumentService) *DocumentController {
	return &DocumentController{docs: docs}
}

func (dc *DocumentController) Create(c *gin.Context) {
	var req models.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendError(c, utils.BadRequest(err.Error()))
		return
	}
	doc, err := dc.docs.Create(middleware.CurrentPrincipal(c), &req)
	if err != nil {
		SendError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (dc *DocumentController) Get(c *gin.Context) {
	doc, err := dc.docs.Get(middleware.CurrentPrincipal(c), c.Param("id"))
	if err != nil {
		SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (dc *DocumentController) Update(c *gin.Context) {
	var req models.UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendError(c, utils.BadRequest(err.Error()))
		return
	}
	doc, err := dc.docs.Update(middleware.CurrentPrincipal(c), c.Param("id"), &req)
	if err != nil {
		SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (dc *DocumentController) Delete(c *gin.Context) {
	if err := dc.docs.Delete(middleware.CurrentPrincipal(c), c.Param("id")); err != nil {
		SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (dc *DocumentController) List(c *gin.Context) {
	filter, err := parseListFilter(c)
	if err != nil {
		SendError(c, err)
		return
	}
	docs, svcErr := dc.docs.List(middleware.CurrentPrincipal(c), filter)
	if svcErr != nil {
		SendError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"documents": docs,
		"limit":     filter.Limit,
		"offset":    filter.Offset,
	})
}

// Search is the q= variant of List; it shares the same visibility rules.
func (dc *DocumentController) Search(c *gin.Context) {
	filter, err := parsePagination(c)
	if err != nil {
		SendError(c, err)
		return
	}
	q := c.Query("q")
	if len(q) < 1 || len(q) > maxSearchLen {
		SendError(c, utils.BadRequest("q must be 1 to 100 characters"))
		return
	}
	filter.Search = q
	docs, svcErr := dc.docs.List(middleware.CurrentPrincipal(c), filter)
	if svcErr != nil {
		SendError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"documents": docs,
		"query":     q,
		"limit":     filter.Limit,
		"offset":    filter.Offset,
	})
}

func parseListFilter(c *gin.Context) (store.ListFilter, *utils.Error) {
	filter, err := parsePagination(c)
	if err != nil {
		return filter, err
	}
	if search, ok := c.GetQuery("search"); ok {
		if len(search) < 1 || len(search) > maxSearchLen {
			return filter, utils.BadRequest("search must be 1 to 100 characters")
		}
		filter.Search = search
	}
	if public, ok := c.GetQuery("public"); ok {
		// case-sensitive boolean literals only
		switch public {
		case "true":
			v := true
			filter.Public = &v
		case "false":
			v := false
			filter.Public = &v
		default:
			return filter, utils.BadRequest("public must be true or false")
		}
	}
	return filter, nil
}

func parsePagination(c *gin.Context) (store.ListFilter, *utils.Error) {
	filter := store.ListFilter{Limit: defaultPageSize}
	if limit, ok := c.GetQuery("limit"); ok {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 || n > maxPageSize {
			return filter, utils.BadRequest("limit must be an integer between 1 and 100")
		}
		filter.Limit = n
	}
	if offset, ok := c.GetQuery("offset"); ok {
		n, err := strconv.Atoi(offset)
		if err != nil || n < 0 {
			return filter, utils.BadRequest("offset must be a non-negative integer")
		}
		filter.Offset = n
	}
	return filter, nil
}
