package article

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"avinfo/pkg/models"
)

const performerWorksLimit = 50

type Handler struct {
	Store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{Store: store}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/articles", h.list)                        // GET /articles?type=&page=&per_page=
	rg.GET("/articles/:slug", h.getBySlug)             // GET /articles/:slug
	rg.GET("/actresses/:slug/works", h.performerWorks) // GET /actresses/:slug/works
}

func (h *Handler) list(c *gin.Context) {
	typ := models.ArticleType(strings.TrimSpace(c.Query("type")))
	if typ != "" && !typ.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown type"})
		return
	}
	page := parseInt(c.Query("page"), 1)
	perPage := parseInt(c.Query("per_page"), defaultPerPage)

	items, total, err := h.Store.LatestByTypePage(c.Request.Context(), typ, page, perPage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	limit, _ := pageBounds(page, perPage)
	if page < 1 {
		page = 1
	}
	c.JSON(http.StatusOK, gin.H{
		"total":    total,
		"page":     page,
		"per_page": limit,
		"items":    items,
	})
}

func (h *Handler) getBySlug(c *gin.Context) {
	a, err := h.Store.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if a == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) performerWorks(c *gin.Context) {
	slug := c.Param("slug")
	works, err := h.Store.FindByPerformer(c.Request.Context(), slug, performerWorksLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"actress": slug,
		"total":   len(works),
		"items":   works,
	})
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
