package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tradelog/internal/models"
)

type StrategyController struct {
	DB *gorm.DB
}

type createStrategyRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=2000"`
	Rules       string `json:"rules" binding:"required"`
	Notes       string `json:"notes" binding:"max=2000"`
}

type updateStrategyRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
}

type createVersionRequest struct {
	Rules string `json:"rules" binding:"required"`
	Notes string `json:"notes" binding:"max=2000"`
}

func (sc *StrategyController) List(c *gin.Context) {
	user := currentUser(c)

	allowedSorts := map[string]string{
		"created_at": "created_at",
		"name":       "name",
	}
	params := parseListParams(c, allowedSorts, "created_at")

	base := sc.DB.Model(&models.Strategy{}).Where("user_id = ?", user.ID)
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		base = base.Where("name ILIKE ?", "%"+q+"%")
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var strategies []models.Strategy
	if err := base.Order(params.OrderBy).Limit(params.Limit).Offset(params.Offset()).Find(&strategies).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": strategies,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	})
}

// Create stores the strategy together with version 1 of its rules.
func (sc *StrategyController) Create(c *gin.Context) {
	user := currentUser(c)

	var req createStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	strategy := models.Strategy{
		UserID:      user.ID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	}
	err := sc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&strategy).Error; err != nil {
			return err
		}
		version := models.StrategyVersion{
			StrategyID: strategy.ID,
			Version:    1,
			Rules:      req.Rules,
			Notes:      req.Notes,
		}
		if err := tx.Create(&version).Error; err != nil {
			return err
		}
		strategy.Versions = []models.StrategyVersion{version}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "strategy name already in use"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, strategy)
}

func (sc *StrategyController) Get(c *gin.Context) {
	user := currentUser(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var strategy models.Strategy
	err := sc.DB.Preload("Versions", func(db *gorm.DB) *gorm.DB {
		return db.Order("version DESC")
	}).Where("id = ? AND user_id = ?", id, user.ID).First(&strategy).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "strategy not found"})
		return
	}
	c.JSON(http.StatusOK, strategy)
}

// Update edits the mutable header fields only. Rule changes go through
// CreateVersion so trade history keeps pointing at the rules it was taken
// under.
func (sc *StrategyController) Update(c *gin.Context) {
	user := currentUser(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var strategy models.Strategy
	if err := sc.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&strategy).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "strategy not found"})
		return
	}

	var req updateStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if len(updates) == 0 {
		c.JSON(http.StatusOK, strategy)
		return
	}

	if err := sc.DB.Model(&strategy).Updates(updates).Error; err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "strategy name already in use"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, strategy)
}

func (sc *StrategyController) Delete(c *gin.Context) {
	user := currentUser(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var strategy models.Strategy
	if err := sc.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&strategy).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "strategy not found"})
		return
	}

	var trades int64
	err := sc.DB.Model(&models.Trade{}).
		Where("strategy_version_id IN (?)",
			sc.DB.Model(&models.StrategyVersion{}).Select("id").Where("strategy_id = ?", strategy.ID)).
		Count(&trades).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if trades > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "strategy has journaled trades"})
		return
	}

	err = sc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("strategy_id = ?", strategy.ID).Delete(&models.StrategyVersion{}).Error; err != nil {
			return err
		}
		return tx.Delete(&strategy).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "strategy deleted"})
}

// CreateVersion appends an immutable rules snapshot with the next version
// number.
func (sc *StrategyController) CreateVersion(c *gin.Context) {
	user := currentUser(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var strategy models.Strategy
	if err := sc.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&strategy).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "strategy not found"})
		return
	}

	var req createVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var version models.StrategyVersion
	err := sc.DB.Transaction(func(tx *gorm.DB) error {
		var latest int
		row := tx.Model(&models.StrategyVersion{}).
			Where("strategy_id = ?", strategy.ID).
			Select("COALESCE(MAX(version), 0)").Row()
		if err := row.Scan(&latest); err != nil {
			return err
		}
		version = models.StrategyVersion{
			StrategyID: strategy.ID,
			Version:    latest + 1,
			Rules:      req.Rules,
			Notes:      req.Notes,
		}
		return tx.Create(&version).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, version)
}

func (sc *StrategyController) ListVersions(c *gin.Context) {
	user := currentUser(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var strategy models.Strategy
	if err := sc.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&strategy).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "strategy not found"})
		return
	}

	var versions []models.StrategyVersion
	if err := sc.DB.Where("strategy_id = ?", strategy.ID).Order("version DESC").Find(&versions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": versions})
}

func (sc *StrategyController) GetVersion(c *gin.Context) {
	user := currentUser(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	num, err := strconv.Atoi(c.Param("version"))
	if err != nil || num <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid version"})
		return
	}

	var strategy models.Strategy
	if err := sc.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&strategy).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "strategy not found"})
		return
	}

	var version models.StrategyVersion
	if err := sc.DB.Where("strategy_id = ? AND version = ?", strategy.ID, num).First(&version).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "version not found"})
		return
	}
	c.JSON(http.StatusOK, version)
}
