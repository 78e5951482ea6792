package controllers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tradelog/internal/auth"
	"tradelog/internal/config"
	"tradelog/internal/models"
	"tradelog/internal/utils"
)

// MailSender is the slice of the mailer the auth flow needs.
type MailSender interface {
	SendVerificationEmail(to, token string) error
	SendPasswordResetEmail(to, token string) error
}

type AuthController struct {
	DB             *gorm.DB
	Auth           *auth.Service
	Mailer         MailSender
	Messages       *config.MessagesConfig
	ActionTokenTTL time.Duration
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,min=3,max=32"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

type loginRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"rememberMe"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
	All          bool   `json:"all"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8,max=128"`
}

type confirmEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
	Token string `json:"token" binding:"required"`
}

func (a *AuthController) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": a.Messages.Validation.InvalidRequest})
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)

	var existing models.User
	if err := a.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": a.Messages.Auth.Error.EmailExists})
		return
	}
	if err := a.DB.Where("username = ?", req.Username).First(&existing).Error; err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": a.Messages.Auth.Error.UsernameExists})
		return
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": a.Messages.Server.Internal})
		return
	}

	user := models.User{
		Email:    req.Email,
		Username: req.Username,
		Password: hashed,
		Role:     "user",
	}
	if err := a.DB.Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": a.Messages.Auth.Error.EmailExists})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": a.Messages.Server.Internal})
		return
	}

	if err := a.sendActionToken(c, user, models.ActionEmailVerification); err != nil {
		log.Printf("failed to send verification email to %s: %v", user.Email, err)
	}

	c.JSON(http.StatusOK, gin.H{"message": a.Messages.Auth.Success.Registration})
}

func (a *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": a.Messages.Validation.InvalidRequest})
		return
	}

	var user models.User
	err := a.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error
	if err != nil || !utils.CheckPassword(user.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": a.Messages.Auth.Error.InvalidCredentials})
		return
	}
	if user.IsBlocked {
		c.JSON(http.StatusForbidden, gin.H{"error": a.Messages.Auth.Error.AccountBlocked})
		return
	}
	if !user.IsVerified {
		c.JSON(http.StatusForbidden, gin.H{"error": a.Messages.Auth.Error.EmailUnverified})
		return
	}

	pair, err := a.Auth.Issue(c.Request.Context(), user, req.RememberMe, c.ClientIP())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": a.Messages.Server.Internal})
		return
	}

	now := time.Now().UTC()
	if err := a.DB.Model(&user).Update("last_login_at", &now).Error; err != nil {
		log.Printf("failed to update last login for %s: %v", user.ID, err)
	}

	c.JSON(http.StatusOK, pair)
}

func (a *AuthController) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": a.Messages.Validation.InvalidRequest})
		return
	}

	pair, err := a.Auth.Refresh(c.Request.Context(), req.RefreshToken, c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenReused):
			c.JSON(http.StatusUnauthorized, gin.H{"error": a.Messages.Auth.Error.TokenReuse})
		case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenExpired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": a.Messages.Auth.Error.InvalidToken})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": a.Messages.Server.Internal})
		}
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (a *AuthController) Logout(c *gin.Context) {
	user := currentUser(c)

	var req logoutRequest
	_ = c.ShouldBindJSON(&req)

	err := a.Auth.Logout(c.Request.Context(), req.RefreshToken, user.ID, req.All, c.ClientIP())
	if err != nil {
		if errors.Is(err, auth.ErrForbidden) {
			c.JSON(http.StatusForbidden, gin.H{"error": a.Messages.Auth.Error.Forbidden})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": a.Messages.Server.Internal})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": a.Messages.Auth.Success.Logout})
}

func (a *AuthController) Me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

// ForgotPassword always answers with the same message so responses never
// reveal whether an email is registered.
func (a *AuthController) ForgotPassword(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": a.Messages.Validation.InvalidRequest})
		return
	}

	var user models.User
	if err := a.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err == nil {
		if err := a.sendActionToken(c, user, models.ActionPasswordReset); err != nil {
			log.Printf("failed to send reset email to %s: %v", user.Email, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": a.Messages.Auth.Success.ResetRequested})
}

func (a *AuthController) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": a.Messages.Validation.InvalidRequest})
		return
	}

	user, token := a.lookupActionToken(req.Email, req.Token, models.ActionPasswordReset)
	if token == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": a.Messages.Auth.Error.InvalidToken})
		return
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": a.Messages.Server.Internal})
		return
	}

	now := time.Now().UTC()
	err = a.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Update("password", hashed).Error; err != nil {
			return err
		}
		return tx.Model(token).Update("revoked_at", &now).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": a.Messages.Server.Internal})
		return
	}

	// a changed password invalidates every outstanding session
	if err := a.Auth.RevokeAllForUser(c.Request.Context(), user.ID, c.ClientIP()); err != nil {
		log.Printf("failed to revoke sessions for %s after password reset: %v", user.ID, err)
	}

	c.JSON(http.StatusOK, gin.H{"message": a.Messages.Auth.Success.PasswordReset})
}

func (a *AuthController) ConfirmEmail(c *gin.Context) {
	var req confirmEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": a.Messages.Validation.InvalidRequest})
		return
	}

	user, token := a.lookupActionToken(req.Email, req.Token, models.ActionEmailVerification)
	if token == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": a.Messages.Auth.Error.InvalidToken})
		return
	}

	now := time.Now().UTC()
	err := a.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Update("is_verified", true).Error; err != nil {
			return err
		}
		return tx.Model(token).Update("revoked_at", &now).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": a.Messages.Server.Internal})
		return
	}
	user.IsVerified = true

	// the user just proved control of the mailbox; log them straight in
	pair, err := a.Auth.Issue(c.Request.Context(), *user, false, c.ClientIP())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": a.Messages.Server.Internal})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      a.Messages.Auth.Success.EmailVerified,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"expiresIn":    pair.ExpiresIn,
	})
}

// ResendVerification is enumeration-safe like ForgotPassword.
func (a *AuthController) ResendVerification(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": a.Messages.Validation.InvalidRequest})
		return
	}

	var user models.User
	err := a.DB.Where("email = ? AND is_verified = ?", strings.ToLower(strings.TrimSpace(req.Email)), false).First(&user).Error
	if err == nil {
		if err := a.sendActionToken(c, user, models.ActionEmailVerification); err != nil {
			log.Printf("failed to resend verification to %s: %v", user.Email, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": a.Messages.Auth.Success.VerificationSent})
}

// sendActionToken creates a single-use mail token, revoking earlier unused
// tokens of the same type so only the newest mail works.
func (a *AuthController) sendActionToken(c *gin.Context, user models.User, tokenType string) error {
	secret, err := utils.GenerateSecret(32)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	token := models.ActionToken{
		UserID:    user.ID,
		Type:      tokenType,
		TokenHash: utils.SHA256Hex(secret),
		ExpiresAt: now.Add(a.ActionTokenTTL),
	}
	err = a.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ActionToken{}).
			Where("user_id = ? AND type = ? AND revoked_at IS NULL", user.ID, tokenType).
			Update("revoked_at", &now).Error; err != nil {
			return err
		}
		return tx.Create(&token).Error
	})
	if err != nil {
		return err
	}

	switch tokenType {
	case models.ActionPasswordReset:
		return a.Mailer.SendPasswordResetEmail(user.Email, secret)
	default:
		return a.Mailer.SendVerificationEmail(user.Email, secret)
	}
}

func (a *AuthController) lookupActionToken(email, plaintext, tokenType string) (*models.User, *models.ActionToken) {
	var user models.User
	if err := a.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		return nil, nil
	}
	var token models.ActionToken
	err := a.DB.Where("user_id = ? AND type = ? AND token_hash = ?", user.ID, tokenType, utils.SHA256Hex(plaintext)).
		First(&token).Error
	if err != nil || !token.IsValid() {
		return nil, nil
	}
	return &user, &token
}
