package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yoockh/yoointerview/internal/api/handlers"
)

type Deps struct {
	Interview *handlers.InterviewHandler
	WS        *handlers.WSHandler
	// Auth guards every route except /ping.
	Auth gin.HandlerFunc
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	auth := r.Group("/")
	if d.Auth != nil {
		auth.Use(d.Auth)
	}

	iv := auth.Group("/interview")
	iv.POST("/generate", d.Interview.Generate)
	iv.POST("/start-attempt", d.Interview.StartAttempt)
	iv.POST("/restart-attempt", d.Interview.RestartAttempt)
	iv.POST("/voice-respond", d.Interview.Turn)
	iv.POST("/save-answers", d.Interview.Finalize)
	iv.POST("/doubt", d.Interview.Doubt)
	iv.GET("", d.Interview.List)
	iv.GET("/:interview_id", d.Interview.Get)

	if d.WS != nil {
		auth.GET("/ws/interview/:interview_id", d.WS.InterviewWS)
	}
}
