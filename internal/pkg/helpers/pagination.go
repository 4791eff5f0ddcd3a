// Package helpers holds small request helpers shared by controllers and services.
package helpers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yigit/lingoschool/internal/app/models/dto"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page is a 1-based page of a list. Use NewPage or PageFromQuery so the
// number and size are always in range.
type Page struct {
	Number int
	Size   int
}

// NewPage clamps number to at least 1 and size to 1..MaxPageSize.
// A zero or negative size falls back to DefaultPageSize.
func NewPage(number, size int) Page {
	if number < 1 {
		number = 1
	}
	switch {
	case size <= 0:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return Page{Number: number, Size: size}
}

// PageFromQuery reads ?page= and ?size=. Values that are not numbers are
// treated as missing.
func PageFromQuery(c *gin.Context) Page {
	number, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("size"))
	return NewPage(number, size)
}

// Offset is the number of rows before this page
func (p Page) Offset() uint64 {
	return uint64(p.Number-1) * uint64(p.Size)
}

// Info describes the page within total items. An empty list has zero pages.
func (p Page) Info(total int64) dto.PaginationInfo {
	pages := 0
	if total > 0 {
		pages = int((total + int64(p.Size) - 1) / int64(p.Size))
	}
	return dto.PaginationInfo{
		CurrentPage: p.Number,
		TotalPages:  pages,
		PageSize:    p.Size,
		TotalItems:  total,
	}
}
