package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"tradelog/internal/models"
)

func currentUser(c *gin.Context) models.User {
	return c.MustGet("user").(models.User)
}

// isUniqueViolation reports whether err is a postgres unique-constraint error
// (SQLSTATE 23505), used to map insert races onto a clean 4xx.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// parseIDParam reads a uuid path parameter, responding 400 itself on garbage.
func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

type listParams struct {
	Limit   int
	Page    int
	OrderBy string
}

func (p listParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// parseListParams reads limit/page/sort_by/sort_dir with a per-resource
// whitelist of sortable columns.
func parseListParams(c *gin.Context, allowedSorts map[string]string, defaultSort string) listParams {
	p := listParams{Limit: 20, Page: 1}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			p.Limit = n
		}
	}
	if v := c.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Page = n
		}
	}

	sortBy := strings.ToLower(c.DefaultQuery("sort_by", defaultSort))
	sortDir := strings.ToUpper(c.DefaultQuery("sort_dir", "DESC"))
	if sortDir != "ASC" && sortDir != "DESC" {
		sortDir = "DESC"
	}
	col, ok := allowedSorts[sortBy]
	if !ok {
		col = allowedSorts[defaultSort]
	}
	p.OrderBy = col + " " + sortDir
	return p
}
