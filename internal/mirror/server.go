package mirror

import (
	"net/http"
	"slices"
	"strconv"

	"github.com/gin-gonic/gin"

	"avinfo/internal/logger"
)

const (
	defaultHits = 20
	maxHits     = 100
)

// Server answers ItemList requests from the mirror file. The file is re-read
// on every request so an export can replace it while the server runs.
type Server struct {
	Path string
	Log  *logger.Logger
}

func NewServer(path string, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{Path: path, Log: log}
}

func (s *Server) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ItemList", s.itemList) // GET /ItemList?api_id=&affiliate_id=&hits=&offset=
}

func (s *Server) itemList(c *gin.Context) {
	if c.Query("api_id") == "" || c.Query("affiliate_id") == "" {
		c.JSON(http.StatusOK, gin.H{"result": gin.H{
			"status":  400,
			"message": "LOGIN ERROR: api_id and affiliate_id are required",
		}})
		return
	}

	items, err := Load(s.Path)
	if err != nil {
		s.Log.Error("mirror unreadable", "path", s.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	slices.SortStableFunc(items, func(a, b Item) int {
		return sortKey(b).Compare(sortKey(a))
	})

	offset := queryInt(c, "offset", 1, 1, len(items)+1)
	hits := queryInt(c, "hits", defaultHits, 1, maxHits)
	page := Page(items, offset, hits)

	c.JSON(http.StatusOK, gin.H{"result": gin.H{
		"status":         200,
		"result_count":   len(page),
		"total_count":    len(items),
		"first_position": offset,
		"items":          page,
	}})
}

// Page returns hits items starting at the 1-based offset.
func Page(items []Item, offset, hits int) []Item {
	start := offset - 1
	if start < 0 {
		start = 0
	}
	if start >= len(items) {
		return []Item{}
	}
	end := min(start+hits, len(items))
	return items[start:end]
}

func queryInt(c *gin.Context, key string, def, lo, hi int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return max(lo, min(n, hi))
}
