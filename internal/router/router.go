package router

import (
	"github.com/dozyo/internal/handler"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, sessionSecret string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// 配置会话中间件
	store := cookie.NewStore([]byte(sessionSecret))
	r.Use(sessions.Sessions("dozyo_session", store))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	auth := r.Group("/auth")
	{
		auth.POST("/register", api.Register)
		auth.POST("/login", api.Login)
		auth.POST("/logout", api.Logout)
	}

	// 需要认证的业务路由
	authed := r.Group("")
	authed.Use(handler.AuthRequired())
	{
		tasks := authed.Group("/tasks")
		{
			tasks.GET("", api.ListTasks)
			tasks.POST("", api.CreateTask)
			tasks.GET("/suggest", api.SuggestNextStep)
			tasks.GET("/:id", api.GetTask)
			tasks.PATCH("/:id", api.UpdateMicroTaskByIndex)
			tasks.DELETE("/:id", api.DeleteTask)
			tasks.PATCH("/:id/microtasks/:microTaskId", api.UpdateMicroTaskByID)
			tasks.DELETE("/:id/microtasks/:microTaskId", api.DeleteMicroTask)
		}

		streak := authed.Group("/streak")
		{
			streak.GET("", api.GetStreak)
			streak.POST("/increment", api.IncrementStreak)
		}
	}

	return r
}
