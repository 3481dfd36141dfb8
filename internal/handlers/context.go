package handlers

import (
	"math"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sociuslabs/socius/backend/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// getUserIDFromContext returns the authenticated user's id as set by the
// JWT middleware, or the empty string when unauthenticated.
func getUserIDFromContext(c echo.Context) string {
	if id, ok := c.Get("userID").(string); ok {
		return id
	}
	return ""
}

// currentUserObjectID resolves the authenticated user's ObjectID.
func currentUserObjectID(c echo.Context) (primitive.ObjectID, error) {
	raw := getUserIDFromContext(c)
	if raw == "" {
		return primitive.NilObjectID, apperrors.Unauthorized("user not authenticated")
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apperrors.Unauthorized("user not authenticated")
	}
	return id, nil
}

// parseObjectIDParam parses a path parameter as an ObjectID.
func parseObjectIDParam(c echo.Context, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		return primitive.NilObjectID, apperrors.Validation("invalid " + name + " format")
	}
	return id, nil
}

// parsePagination reads page/limit query params with defaults and caps.
func parsePagination(c echo.Context, defaultLimit, maxLimit int) (page, limit int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxLimit {
		limit = defaultLimit
	}
	return page, limit
}

// paginationMeta builds the meta envelope shared by all list endpoints.
func paginationMeta(page, limit int, total int64) echo.Map {
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return echo.Map{
		"currentPage":     page,
		"totalPages":      totalPages,
		"totalItems":      total,
		"itemsPerPage":    limit,
		"hasNextPage":     page < totalPages,
		"hasPreviousPage": page > 1,
	}
}
