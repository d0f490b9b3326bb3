package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/services"
)

type InterviewHandler struct {
	questions  services.QuestionService
	interviews services.InterviewService
	scoring    services.ScoringService
	doubts     services.DoubtService
}

func NewInterviewHandler(q services.QuestionService, i services.InterviewService, s services.ScoringService, d services.DoubtService) *InterviewHandler {
	return &InterviewHandler{questions: q, interviews: i, scoring: s, doubts: d}
}

type GenerateRequest struct {
	Title           string   `json:"title"`
	Type            string   `json:"type"`
	Skills          []string `json:"skills"`
	ExperienceLevel string   `json:"experienceLevel"`
	Duration        int      `json:"duration"`
}

type GenerateResponse struct {
	InterviewID string   `json:"interviewId"`
	Questions   []string `json:"questions"`
}

func (h *InterviewHandler) Generate(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req GenerateRequest
	if !bindJSON(c, "InterviewHandler.Generate", "Missing required fields: title, type, skills[], experienceLevel, duration", &req) {
		return
	}

	it, err := h.questions.Generate(c.Request.Context(), userID, models.InterviewParameters{
		Title:           req.Title,
		Type:            req.Type,
		Skills:          req.Skills,
		ExperienceLevel: req.ExperienceLevel,
		DurationMinutes: req.Duration,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, GenerateResponse{InterviewID: it.ID, Questions: it.Questions})
}

type AttemptRequest struct {
	InterviewID string `json:"interviewId" binding:"required"`
}

func (h *InterviewHandler) StartAttempt(c *gin.Context) {
	h.attempt(c, "InterviewHandler.StartAttempt", h.interviews.StartAttempt)
}

func (h *InterviewHandler) RestartAttempt(c *gin.Context) {
	h.attempt(c, "InterviewHandler.RestartAttempt", h.interviews.RestartAttempt)
}

func (h *InterviewHandler) attempt(c *gin.Context, op string, fn func(ctx context.Context, ownerID, id string) (*models.Interview, error)) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req AttemptRequest
	if !bindJSON(c, op, "interviewId is required", &req) {
		return
	}

	if _, err := fn(c.Request.Context(), userID, req.InterviewID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type TurnRequest struct {
	InterviewID   string                   `json:"interviewId" binding:"required"`
	QuestionIndex int                      `json:"questionIndex"`
	UserUtterance string                   `json:"userUtterance"`
	Transcript    []models.TranscriptEntry `json:"transcript"`
}

func (h *InterviewHandler) Turn(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req TurnRequest
	if !bindJSON(c, "InterviewHandler.Turn", "invalid request body", &req) {
		return
	}

	res, err := h.interviews.Turn(c.Request.Context(), userID, services.TurnInput{
		InterviewID:      req.InterviewID,
		QuestionIndex:    req.QuestionIndex,
		Utterance:        req.UserUtterance,
		ClientTranscript: req.Transcript,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type FinalizeRequest struct {
	InterviewID string   `json:"interviewId" binding:"required"`
	Answers     []string `json:"answers"`
}

func (h *InterviewHandler) Finalize(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req FinalizeRequest
	if !bindJSON(c, "InterviewHandler.Finalize", "invalid request body", &req) {
		return
	}

	fb, err := h.scoring.Finalize(c.Request.Context(), userID, req.InterviewID, req.Answers)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"feedback": fb})
}

type DoubtRequest struct {
	Question string `json:"question"`
	Doubt    string `json:"doubt"`
}

func (h *InterviewHandler) Doubt(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	var req DoubtRequest
	if !bindJSON(c, "InterviewHandler.Doubt", "invalid request body", &req) {
		return
	}

	answer, err := h.doubts.Ask(c.Request.Context(), req.Question, req.Doubt)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

func (h *InterviewHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	it, err := h.interviews.Get(c.Request.Context(), userID, c.Param("interview_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

func (h *InterviewHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	rows, err := h.interviews.List(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"interviews": rows})
}
