package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tradelog/internal/models"
	"tradelog/internal/ws"
)

type AccountController struct {
	DB  *gorm.DB
	Hub *ws.EventHub
}

type createAccountRequest struct {
	Name           string `json:"name" binding:"required,max=100"`
	Broker         string `json:"broker" binding:"max=100"`
	Currency       string `json:"currency" binding:"omitempty,len=3"`
	OpeningBalance int64  `json:"openingBalance"`
}

type updateAccountRequest struct {
	Name           *string `json:"name" binding:"omitempty,max=100"`
	Broker         *string `json:"broker" binding:"omitempty,max=100"`
	Currency       *string `json:"currency" binding:"omitempty,len=3"`
	OpeningBalance *int64  `json:"openingBalance"`
	Active         *bool   `json:"active"`
}

func (ac *AccountController) List(c *gin.Context) {
	user := currentUser(c)

	allowedSorts := map[string]string{
		"created_at": "created_at",
		"name":       "name",
		"broker":     "broker",
	}
	params := parseListParams(c, allowedSorts, "created_at")

	base := ac.DB.Model(&models.Account{}).Where("user_id = ?", user.ID)
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		base = base.Where("name ILIKE ?", "%"+q+"%")
	}
	switch strings.ToLower(c.Query("active")) {
	case "true", "1":
		base = base.Where("active = ?", true)
	case "false", "0":
		base = base.Where("active = ?", false)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var accounts []models.Account
	if err := base.Order(params.OrderBy).Limit(params.Limit).Offset(params.Offset()).Find(&accounts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": accounts,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	})
}

func (ac *AccountController) Create(c *gin.Context) {
	user := currentUser(c)

	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = "USD"
	}
	account := models.Account{
		UserID:         user.ID,
		Name:           strings.TrimSpace(req.Name),
		Broker:         strings.TrimSpace(req.Broker),
		Currency:       currency,
		OpeningBalance: req.OpeningBalance,
		Active:         true,
	}
	if err := ac.DB.Create(&account).Error; err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "account name already in use"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, account)
}

func (ac *AccountController) Get(c *gin.Context) {
	user := currentUser(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var account models.Account
	if err := ac.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&account).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}
	c.JSON(http.StatusOK, account)
}

func (ac *AccountController) Update(c *gin.Context) {
	user := currentUser(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var account models.Account
	if err := ac.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&account).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}

	var req updateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Broker != nil {
		updates["broker"] = strings.TrimSpace(*req.Broker)
	}
	if req.Currency != nil {
		updates["currency"] = strings.ToUpper(*req.Currency)
	}
	if req.OpeningBalance != nil {
		updates["opening_balance"] = *req.OpeningBalance
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if len(updates) == 0 {
		c.JSON(http.StatusOK, account)
		return
	}

	if err := ac.DB.Model(&account).Updates(updates).Error; err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "account name already in use"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ac.Hub.Publish(user.ID.String(), ws.Event{Type: "account.updated", Resource: account})
	c.JSON(http.StatusOK, account)
}

func (ac *AccountController) Delete(c *gin.Context) {
	user := currentUser(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var account models.Account
	if err := ac.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&account).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}

	var trades int64
	if err := ac.DB.Model(&models.Trade{}).Where("account_id = ?", account.ID).Count(&trades).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if trades > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "account has trades; deactivate it instead"})
		return
	}

	if err := ac.DB.Delete(&account).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "account deleted"})
}
