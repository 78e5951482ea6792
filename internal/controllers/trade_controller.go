package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"tradelog/internal/models"
	"tradelog/internal/ws"
)

type TradeController struct {
	DB  *gorm.DB
	Hub *ws.EventHub
}

type createTradeRequest struct {
	AccountID         uuid.UUID  `json:"accountId" binding:"required"`
	StrategyVersionID *uuid.UUID `json:"strategyVersionId"`
	Symbol            string     `json:"symbol" binding:"required,max=20"`
	Direction         string     `json:"direction" binding:"required,oneof=long short"`
	Quantity          float64    `json:"quantity" binding:"required,gt=0"`
	EntryPrice        int64      `json:"entryPrice" binding:"required,gt=0"`
	ExitPrice         *int64     `json:"exitPrice" binding:"omitempty,gt=0"`
	EntryAt           time.Time  `json:"entryAt" binding:"required"`
	ExitAt            *time.Time `json:"exitAt"`
	Fees              int64      `json:"fees" binding:"gte=0"`
	Notes             string     `json:"notes" binding:"max=5000"`
}

type updateTradeRequest struct {
	StrategyVersionID *uuid.UUID `json:"strategyVersionId"`
	Symbol            *string    `json:"symbol" binding:"omitempty,max=20"`
	Direction         *string    `json:"direction" binding:"omitempty,oneof=long short"`
	Quantity          *float64   `json:"quantity" binding:"omitempty,gt=0"`
	EntryPrice        *int64     `json:"entryPrice" binding:"omitempty,gt=0"`
	ExitPrice         *int64     `json:"exitPrice" binding:"omitempty,gt=0"`
	EntryAt           *time.Time `json:"entryAt"`
	ExitAt            *time.Time `json:"exitAt"`
	Fees              *int64     `json:"fees" binding:"omitempty,gte=0"`
	Notes             *string    `json:"notes" binding:"omitempty,max=5000"`
}

type tradeResponse struct {
	models.Trade
	RealizedPnL *int64 `json:"realizedPnl,omitempty"`
	Closed      bool   `json:"closed"`
}

func toTradeResponse(t models.Trade) tradeResponse {
	resp := tradeResponse{Trade: t, Closed: t.IsClosed()}
	if pnl, ok := t.RealizedPnL(); ok {
		resp.RealizedPnL = &pnl
	}
	return resp
}

func (tc *TradeController) List(c *gin.Context) {
	user := currentUser(c)

	allowedSorts := map[string]string{
		"entry_at":    "entry_at",
		"exit_at":     "exit_at",
		"created_at":  "created_at",
		"symbol":      "symbol",
		"entry_price": "entry_price",
	}
	params := parseListParams(c, allowedSorts, "entry_at")

	base := tc.DB.Model(&models.Trade{}).Where("user_id = ?", user.ID)
	if v := c.Query("account_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account_id"})
			return
		}
		base = base.Where("account_id = ?", id)
	}
	if v := c.Query("strategy_version_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid strategy_version_id"})
			return
		}
		base = base.Where("strategy_version_id = ?", id)
	}
	if v := strings.TrimSpace(c.Query("symbol")); v != "" {
		base = base.Where("symbol ILIKE ?", v)
	}
	switch strings.ToLower(c.Query("direction")) {
	case models.DirectionLong:
		base = base.Where("direction = ?", models.DirectionLong)
	case models.DirectionShort:
		base = base.Where("direction = ?", models.DirectionShort)
	}
	switch strings.ToLower(c.Query("status")) {
	case "open":
		base = base.Where("exit_price IS NULL")
	case "closed":
		base = base.Where("exit_price IS NOT NULL")
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from timestamp"})
			return
		}
		base = base.Where("entry_at >= ?", t)
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to timestamp"})
			return
		}
		base = base.Where("entry_at <= ?", t)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var trades []models.Trade
	if err := base.Order(params.OrderBy).Limit(params.Limit).Offset(params.Offset()).Find(&trades).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]tradeResponse, 0, len(trades))
	for _, t := range trades {
		items = append(items, toTradeResponse(t))
	}
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	})
}

func (tc *TradeController) Create(c *gin.Context) {
	user := currentUser(c)

	var req createTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if msg := validateExitPair(req.ExitPrice, req.ExitAt, req.EntryAt); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	if !tc.ownsAccount(c, user.ID, req.AccountID) {
		return
	}
	if req.StrategyVersionID != nil && !tc.ownsStrategyVersion(c, user.ID, *req.StrategyVersionID) {
		return
	}

	trade := models.Trade{
		UserID:            user.ID,
		AccountID:         req.AccountID,
		StrategyVersionID: req.StrategyVersionID,
		Symbol:            strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Direction:         req.Direction,
		Quantity:          req.Quantity,
		EntryPrice:        req.EntryPrice,
		ExitPrice:         req.ExitPrice,
		EntryAt:           req.EntryAt,
		ExitAt:            req.ExitAt,
		Fees:              req.Fees,
		Notes:             req.Notes,
	}
	if err := tc.DB.Create(&trade).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := toTradeResponse(trade)
	tc.Hub.Publish(user.ID.String(), ws.Event{Type: "trade.created", Resource: resp})
	c.JSON(http.StatusCreated, resp)
}

func (tc *TradeController) Get(c *gin.Context) {
	user := currentUser(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var trade models.Trade
	if err := tc.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&trade).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "trade not found"})
		return
	}
	c.JSON(http.StatusOK, toTradeResponse(trade))
}

func (tc *TradeController) Update(c *gin.Context) {
	user := currentUser(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var trade models.Trade
	if err := tc.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&trade).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "trade not found"})
		return
	}

	var req updateTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.StrategyVersionID != nil && !tc.ownsStrategyVersion(c, user.ID, *req.StrategyVersionID) {
		return
	}

	if req.Symbol != nil {
		trade.Symbol = strings.ToUpper(strings.TrimSpace(*req.Symbol))
	}
	if req.Direction != nil {
		trade.Direction = *req.Direction
	}
	if req.Quantity != nil {
		trade.Quantity = *req.Quantity
	}
	if req.EntryPrice != nil {
		trade.EntryPrice = *req.EntryPrice
	}
	if req.ExitPrice != nil {
		trade.ExitPrice = req.ExitPrice
	}
	if req.EntryAt != nil {
		trade.EntryAt = *req.EntryAt
	}
	if req.ExitAt != nil {
		trade.ExitAt = req.ExitAt
	}
	if req.Fees != nil {
		trade.Fees = *req.Fees
	}
	if req.Notes != nil {
		trade.Notes = *req.Notes
	}
	if req.StrategyVersionID != nil {
		trade.StrategyVersionID = req.StrategyVersionID
	}
	if msg := validateExitPair(trade.ExitPrice, trade.ExitAt, trade.EntryAt); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	if err := tc.DB.Save(&trade).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := toTradeResponse(trade)
	tc.Hub.Publish(user.ID.String(), ws.Event{Type: "trade.updated", Resource: resp})
	c.JSON(http.StatusOK, resp)
}

func (tc *TradeController) Delete(c *gin.Context) {
	user := currentUser(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var trade models.Trade
	if err := tc.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&trade).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "trade not found"})
		return
	}

	if err := tc.DB.Delete(&trade).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	tc.Hub.Publish(user.ID.String(), ws.Event{Type: "trade.deleted", Resource: gin.H{"id": trade.ID}})
	c.JSON(http.StatusOK, gin.H{"message": "trade deleted"})
}

func validateExitPair(exitPrice *int64, exitAt *time.Time, entryAt time.Time) string {
	if (exitPrice == nil) != (exitAt == nil) {
		return "exitPrice and exitAt must be set together"
	}
	if exitAt != nil && exitAt.Before(entryAt) {
		return "exitAt must not precede entryAt"
	}
	return ""
}

func (tc *TradeController) ownsAccount(c *gin.Context, userID, accountID uuid.UUID) bool {
	var account models.Account
	if err := tc.DB.Where("id = ? AND user_id = ?", accountID, userID).First(&account).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account not found"})
		return false
	}
	return true
}

func (tc *TradeController) ownsStrategyVersion(c *gin.Context, userID, versionID uuid.UUID) bool {
	var version models.StrategyVersion
	err := tc.DB.
		Joins("JOIN strategies ON strategies.id = strategy_versions.strategy_id").
		Where("strategy_versions.id = ? AND strategies.user_id = ?", versionID, userID).
		First(&version).Error
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "strategy version not found"})
		return false
	}
	return true
}
