package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/internal/llmjson"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/providers/llm"
	mongorepo "github.com/yoockh/yoointerview/internal/repositories/mongo"
	"github.com/yoockh/yoointerview/internal/storage"
	"github.com/yoockh/yoointerview/internal/utils"
)

const noExplanation = "No explanation"

var errMissingResults = errors.New("scoring output has no results")

type ScoringService interface {
	// Finalize scores every answer, writes the report and completes the
	// interview. On a scoring failure nothing is written.
	Finalize(ctx context.Context, ownerID, id string, answers []string) (*models.Feedback, error)
}

type scoringService struct {
	interviews mongorepo.InterviewRepository
	llm        llm.Provider
	reports    storage.Uploader
	events     Publisher
	log        logrus.FieldLogger
}

// NewScoringService wires finalization. reports and events may be nil.
func NewScoringService(interviews mongorepo.InterviewRepository, gen llm.Provider, reports storage.Uploader, events Publisher, log logrus.FieldLogger) ScoringService {
	if events == nil {
		events = nopPublisher{}
	}
	return &scoringService{interviews: interviews, llm: gen, reports: reports, events: events, log: log}
}

type scoreResult struct {
	Score       *float64 `json:"score"`
	Explanation string   `json:"explanation"`
}

// Results is nil when the key is absent or null.
type scorePayload struct {
	Results      *[]scoreResult `json:"results"`
	OverallScore *float64       `json:"overallScore"`
}

func (s *scoringService) Finalize(ctx context.Context, ownerID, id string, answers []string) (*models.Feedback, error) {
	const op = "ScoringService.Finalize"

	it, err := loadOwned(ctx, s.interviews, op, ownerID, id)
	if err != nil {
		return nil, err
	}
	if it.Feedback != nil {
		return it.Feedback, nil
	}

	log := s.log.WithFields(logrus.Fields{"op": op, "interview_id": id})

	final := alignAnswers(it.Questions, answers)

	raw, err := s.llm.Generate(ctx, scoringPrompt(it.Questions, final))
	if err != nil {
		return nil, utils.E(utils.CodeGeneration, op, "AI scoring failed", err)
	}

	var p scorePayload
	stage, err := llmjson.DecodeObject(raw, &p)
	if err == nil && p.Results == nil {
		err = errMissingResults
	}
	if err != nil {
		log.WithField("raw_len", len(raw)).Error("scoring output unparseable")
		return nil, utils.E(utils.CodeScoringFormat, op, "Invalid AI format", err)
	}
	results := *p.Results
	if stage != llmjson.Strict {
		log.WithField("parse_stage", stage.String()).Warn("model output degraded")
	}

	perQuestion := make([]models.QuestionFeedback, len(it.Questions))
	for i, q := range it.Questions {
		qf := models.QuestionFeedback{Question: q, Answer: final[i], Explanation: noExplanation}
		if i < len(results) {
			if results[i].Score != nil {
				qf.Score = clampScore(*results[i].Score)
			}
			if e := strings.TrimSpace(results[i].Explanation); e != "" {
				qf.Explanation = e
			}
		}
		perQuestion[i] = qf
	}
	if len(results) < len(it.Questions) {
		log.WithFields(logrus.Fields{"results": len(results), "questions": len(it.Questions)}).Warn("partial scoring output, missing entries defaulted")
	}

	fb := &models.Feedback{PerQuestion: perQuestion}
	if p.OverallScore != nil {
		fb.OverallScore = clampScore(*p.OverallScore)
	}

	// scores are committed before the narrative call
	it, err = s.interviews.Update(ctx, id, func(it *models.Interview) error {
		if err := checkOwner(op, it, ownerID); err != nil {
			return err
		}
		now := time.Now().UTC()
		it.Answers = final
		it.Feedback = fb
		it.Status = models.StatusCompleted
		if it.EndedAt == nil {
			it.EndedAt = &now
		}
		return nil
	})
	if err != nil {
		return nil, repoErr(op, err)
	}

	if report, ok := s.narrative(ctx, log, perQuestion, fb.OverallScore); ok {
		updated, err := s.interviews.Update(ctx, id, func(it *models.Interview) error {
			if it.Feedback == nil {
				it.Feedback = fb
			}
			it.Feedback.DetailedReport = report
			return nil
		})
		if err != nil {
			log.WithError(err).Error("failed to persist detailed report")
		} else {
			it = updated
		}
	}

	s.export(ctx, log, it)
	s.events.Publish(ctx, eventFor(EventFinalized, it))
	return it.Feedback, nil
}

func (s *scoringService) narrative(ctx context.Context, log logrus.FieldLogger, perQuestion []models.QuestionFeedback, overall int) (string, bool) {
	raw, err := s.llm.Generate(ctx, reportPrompt(perQuestion, overall))
	if err != nil {
		log.WithError(err).Warn("detailed report generation failed, keeping scores only")
		return "", false
	}
	report := stripMarkup(raw)
	if report == "" {
		return "", false
	}
	return report, true
}

// export uploads the finished report when a bucket is configured.
func (s *scoringService) export(ctx context.Context, log logrus.FieldLogger, it *models.Interview) {
	if s.reports == nil {
		return
	}
	body, err := json.Marshal(struct {
		ID         string                     `json:"id"`
		Owner      string                     `json:"owner"`
		Parameters models.InterviewParameters `json:"parameters"`
		Feedback   *models.Feedback           `json:"feedback"`
	}{it.ID, it.OwnerID, it.Parameters, it.Feedback})
	if err != nil {
		return
	}

	path, err := s.reports.Upload(ctx, storage.ReportObject(it.OwnerID, it.ID), storage.ContentTypeJSON, bytes.NewReader(body))
	if err != nil {
		log.WithError(err).Warn("report export failed")
		return
	}
	log.WithField("path", path).Info("report exported")
}

// alignAnswers returns one trimmed answer per question.
func alignAnswers(questions, answers []string) []string {
	out := make([]string, len(questions))
	for i := range out {
		if i < len(answers) {
			out[i] = strings.TrimSpace(answers[i])
		}
	}
	return out
}

func clampScore(v float64) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return int(v + 0.5)
	}
}
