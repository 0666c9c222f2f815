package api

import (
	"strconv" // String conversion

	"github.com/gin-gonic/gin" // Gin web framework
)

const (
	defaultPageSize = 20     // Page size when none is given
	maxPageSize     = 100    // Upper bound for page_size
	maxPage         = 100000 // Upper bound for page, keeps the offset in range
)

// pagination reads page and page_size from the query, falling back to defaults on bad input
func pagination(c *gin.Context) (page, pageSize int) {
	page, pageSize = 1, defaultPageSize
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = min(v, maxPage) // Set page if valid
		}
	}
	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= maxPageSize {
			pageSize = v // Set page size if valid
		}
	}
	return page, pageSize
}

// totalPages rounds total/pageSize up
func totalPages(total int64, pageSize int) int {
	return (int(total) + pageSize - 1) / pageSize
}

// pathID parses a numeric path parameter
func pathID(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}
