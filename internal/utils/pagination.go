package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/okamura/project-management-api/internal/constants"
)

// PaginationParams holds the pagination parameters
type PaginationParams struct {
	Page     int
	PageSize int
}

// GetPaginationParams extracts and validates pagination parameters from the request
func GetPaginationParams(c *gin.Context) PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(constants.MinPage)))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(constants.DefaultPageSize)))

	if page < constants.MinPage {
		page = constants.MinPage
	}
	if pageSize < 1 || pageSize > constants.MaxPageSize {
		pageSize = constants.DefaultPageSize
	}

	return PaginationParams{
		Page:     page,
		PageSize: pageSize,
	}
}
