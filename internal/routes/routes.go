package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tradelog/internal/auth"
	"tradelog/internal/config"
	"tradelog/internal/controllers"
	"tradelog/internal/middleware"
	"tradelog/internal/ws"
)

type Deps struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Messages *config.MessagesConfig
	Auth     *auth.Service
	Mailer   controllers.MailSender
	Hub      *ws.EventHub
}

func Register(r *gin.Engine, d Deps) {
	authCtrl := &controllers.AuthController{
		DB:             d.DB,
		Auth:           d.Auth,
		Mailer:         d.Mailer,
		Messages:       d.Messages,
		ActionTokenTTL: d.Cfg.ActionTokenTTL,
	}
	accountCtrl := &controllers.AccountController{DB: d.DB, Hub: d.Hub}
	strategyCtrl := &controllers.StrategyController{DB: d.DB}
	tradeCtrl := &controllers.TradeController{DB: d.DB, Hub: d.Hub}
	adminCtrl := &controllers.AdminController{DB: d.DB, Auth: d.Auth}

	// Public
	pub := r.Group("/api/v1/auth")
	{
		pub.POST("/register", authCtrl.Register)
		pub.POST("/login", authCtrl.Login)
		pub.POST("/refresh", authCtrl.Refresh)
		pub.POST("/forgot-password", authCtrl.ForgotPassword)
		pub.POST("/reset-password", authCtrl.ResetPassword)
		pub.POST("/confirm-email", authCtrl.ConfirmEmail)
		pub.POST("/resend-verification", authCtrl.ResendVerification)
	}

	// Protected
	authMW := middleware.AuthMiddleware(d.DB, d.Cfg.JWTSecret)
	api := r.Group("/api/v1", authMW)
	{
		api.GET("/auth/me", authCtrl.Me)
		api.POST("/auth/logout", authCtrl.Logout)

		api.GET("/accounts", accountCtrl.List)
		api.POST("/accounts", accountCtrl.Create)
		api.GET("/accounts/:id", accountCtrl.Get)
		api.PUT("/accounts/:id", accountCtrl.Update)
		api.DELETE("/accounts/:id", accountCtrl.Delete)

		api.GET("/strategies", strategyCtrl.List)
		api.POST("/strategies", strategyCtrl.Create)
		api.GET("/strategies/:id", strategyCtrl.Get)
		api.PUT("/strategies/:id", strategyCtrl.Update)
		api.DELETE("/strategies/:id", strategyCtrl.Delete)
		api.POST("/strategies/:id/versions", strategyCtrl.CreateVersion)
		api.GET("/strategies/:id/versions", strategyCtrl.ListVersions)
		api.GET("/strategies/:id/versions/:version", strategyCtrl.GetVersion)

		api.GET("/trades", tradeCtrl.List)
		api.POST("/trades", tradeCtrl.Create)
		api.GET("/trades/:id", tradeCtrl.Get)
		api.PUT("/trades/:id", tradeCtrl.Update)
		api.DELETE("/trades/:id", tradeCtrl.Delete)

		api.GET("/events/ws", ws.EventsHandler(d.Hub))

		admin := api.Group("/admin", middleware.RequireRoles("admin"))
		{
			admin.GET("/users", adminCtrl.ListUsers)
			admin.PUT("/users/:id/blocked", adminCtrl.SetBlocked)
		}
	}
}
