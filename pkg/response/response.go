// Package response writes the JSON envelope every endpoint answers with:
//
//	{"success": true, "data": ..., "message": "..."}
//	{"success": false, "message": "..."}
package response

import (
	"github.com/labstack/echo/v4"
)

// Envelope is the response body shape
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Pagination describes the slice of a list that was returned
type Pagination struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	Limit       int `json:"limit"`
}

// NewPagination computes the page count for total rows
func NewPagination(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{CurrentPage: page, TotalPages: pages, Limit: limit}
}

// List is the data of a list response: the rows under key, the total row count and the window.
func List(key string, items interface{}, total int64, page, limit int) echo.Map {
	return echo.Map{
		key:          items,
		"total":      total,
		"pagination": NewPagination(page, limit, total),
	}
}

// Success writes data with status
func Success(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, Envelope{Success: true, Data: data})
}

// SuccessMessage writes data and a human readable message
func SuccessMessage(c echo.Context, status int, data interface{}, message string) error {
	return c.JSON(status, Envelope{Success: true, Data: data, Message: message})
}

// Error writes a failure envelope
func Error(c echo.Context, status int, message string) error {
	return c.JSON(status, Envelope{Success: false, Message: message})
}
