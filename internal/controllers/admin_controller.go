package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tradelog/internal/auth"
	"tradelog/internal/models"
)

type AdminController struct {
	DB   *gorm.DB
	Auth *auth.Service
}

func (ad *AdminController) ListUsers(c *gin.Context) {
	allowedSorts := map[string]string{
		"created_at": "created_at",
		"email":      "email",
		"username":   "username",
	}
	params := parseListParams(c, allowedSorts, "created_at")

	base := ad.DB.Model(&models.User{})
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		like := "%" + q + "%"
		base = base.Where("email ILIKE ? OR username ILIKE ?", like, like)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var users []models.User
	if err := base.Order(params.OrderBy).Limit(params.Limit).Offset(params.Offset()).Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": users,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	})
}

// SetBlocked toggles a user's blocked state. Blocking also revokes every
// refresh token the user holds so the lockout takes effect at the next
// access-token expiry at the latest.
func (ad *AdminController) SetBlocked(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Blocked *bool `json:"blocked" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := ad.DB.Where("id = ?", id).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if user.Role == "admin" && *req.Blocked {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot block an admin"})
		return
	}

	if err := ad.DB.Model(&user).Update("is_blocked", *req.Blocked).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if *req.Blocked {
		if err := ad.Auth.RevokeAllForUser(c.Request.Context(), user.ID, c.ClientIP()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, user)
}
