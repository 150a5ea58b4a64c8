package router

import (
	"log/slog"
	"time"

	"artarena/internal/handlers"
	"artarena/internal/middleware"
	"artarena/internal/services"
	"artarena/internal/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Deps struct {
	Services           *services.Services
	Cache              *utils.TTLCache
	Logger             *slog.Logger
	JWTSecret          []byte
	CORSOrigins        []string
	ReactionRatePerMin int
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.Use(middleware.RequestID())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     d.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.LoadUser(d.Services.Users, d.JWTSecret))

	// Handlers
	contestHandler := handlers.NewContestHandler(d.Services, d.Cache, d.Logger)
	entryHandler := handlers.NewEntryHandler(d.Services, d.Logger)
	userHandler := handlers.NewUserHandler(d.Services, d.Logger)
	notificationHandler := handlers.NewNotificationHandler(d.Services, d.Logger)
	adminHandler := handlers.NewAdminHandler(d.Services, d.Cache, d.Logger)

	reactionLimit := middleware.NewRateLimiter(d.ReactionRatePerMin)

	api := r.Group("/api")

	// 公共路由 (Public Routes)
	api.GET("/contests", contestHandler.List)                // 比赛列表
	api.GET("/contests/:id", contestHandler.Detail)          // 比赛详情
	api.GET("/contests/:id/status", contestHandler.Status)   // 比赛状态
	api.GET("/contests/:id/entries", contestHandler.Entries) // 已通过作品，按点评数排序
	api.GET("/contests/:id/winners", contestHandler.Winners) // 获奖名单，结算后才有
	api.GET("/entries/:id", entryHandler.Detail)             // 作品详情
	api.GET("/entries/:id/comments", entryHandler.Comments)  // 评论列表
	api.GET("/users/:id", userHandler.Profile)               // 用户主页

	// 受保护路由 (Protected Routes)
	authorized := api.Group("")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/contests/:id/entries", entryHandler.Submit)                            // 投稿
		authorized.POST("/entries/:id/reaction", reactionLimit.Middleware(), entryHandler.React) // 设置/清除点评
		authorized.DELETE("/entries/:id/reaction", reactionLimit.Middleware(), entryHandler.ClearReaction)
		authorized.POST("/entries/:id/comments", entryHandler.CreateComment) // 发表评论
		authorized.POST("/users/:id/follow", userHandler.Follow)             // 关注
		authorized.DELETE("/users/:id/follow", userHandler.Unfollow)         // 取消关注
		authorized.GET("/me", userHandler.Me)
		authorized.GET("/me/points", userHandler.Points) // 积分明细
		authorized.GET("/me/notifications", notificationHandler.List)
		authorized.POST("/me/notifications/read", notificationHandler.MarkRead)
	}

	// 管理路由 (Admin Routes)
	admin := api.Group("/admin")
	admin.Use(middleware.AdminRequired())
	{
		admin.POST("/contests", adminHandler.CreateContest)
		admin.PUT("/contests/:id", adminHandler.UpdateContest)
		admin.DELETE("/contests/:id", adminHandler.DeleteContest)
		admin.GET("/contests/:id/entries", adminHandler.ContestEntries) // 审核队列
		admin.POST("/contests/:id/finalize", adminHandler.Finalize)
		admin.POST("/entries/:id/review", adminHandler.ReviewEntry)
		admin.POST("/sweep", adminHandler.Sweep)
	}
}
