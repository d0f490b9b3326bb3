package services

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/config"
	"github.com/yoockh/yoointerview/internal/llmjson"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/providers/llm"
	mongorepo "github.com/yoockh/yoointerview/internal/repositories/mongo"
	"github.com/yoockh/yoointerview/internal/utils"
)

type QuestionService interface {
	// Generate creates a new interview with exactly QuestionCount slots.
	Generate(ctx context.Context, ownerID string, p models.InterviewParameters) (*models.Interview, error)
}

type questionService struct {
	interviews mongorepo.InterviewRepository
	llm        llm.Provider
	cfg        config.Interview
	log        logrus.FieldLogger
}

func NewQuestionService(interviews mongorepo.InterviewRepository, gen llm.Provider, cfg config.Interview, log logrus.FieldLogger) QuestionService {
	return &questionService{interviews: interviews, llm: gen, cfg: cfg, log: log}
}

func validateParameters(op string, p *models.InterviewParameters) error {
	p.Title = strings.TrimSpace(p.Title)
	p.Type = strings.TrimSpace(p.Type)
	p.ExperienceLevel = strings.TrimSpace(p.ExperienceLevel)

	skills := make([]string, 0, len(p.Skills))
	seen := map[string]struct{}{}
	for _, s := range p.Skills {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if _, dup := seen[key]; s == "" || dup {
			continue
		}
		seen[key] = struct{}{}
		skills = append(skills, s)
	}
	p.Skills = skills

	switch {
	case p.Title == "":
		return utils.E(utils.CodeInvalidArgument, op, "title is required", nil)
	case p.Type == "":
		return utils.E(utils.CodeInvalidArgument, op, "type is required", nil)
	case len(p.Skills) == 0:
		return utils.E(utils.CodeInvalidArgument, op, "at least one skill is required", nil)
	case p.ExperienceLevel == "":
		return utils.E(utils.CodeInvalidArgument, op, "experienceLevel is required", nil)
	case p.DurationMinutes <= 0:
		return utils.E(utils.CodeInvalidArgument, op, "duration must be a positive number of minutes", nil)
	}
	return nil
}

func (s *questionService) Generate(ctx context.Context, ownerID string, p models.InterviewParameters) (*models.Interview, error) {
	const op = "QuestionService.Generate"

	if ownerID == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "owner is required", nil)
	}
	if err := validateParameters(op, &p); err != nil {
		return nil, err
	}

	n := s.cfg.QuestionCount
	prompt := questionsPrompt(p, n)

	var best []string
	var lastErr error
	for attempt := 1; attempt <= s.cfg.GenerationAttempts && len(best) < n; attempt++ {
		raw, err := s.llm.Generate(ctx, prompt)
		if err != nil {
			lastErr = err
			s.log.WithError(err).WithFields(logrus.Fields{"op": op, "attempt": attempt}).Warn("question generation failed")
			continue
		}

		qs, stage := parseQuestions(raw, s.cfg.MinQuestionLength)
		if stage != llmjson.Strict {
			s.log.WithFields(logrus.Fields{"op": op, "attempt": attempt, "parse_stage": stage.String()}).Warn("model output degraded")
		}
		if len(qs) > len(best) {
			best = qs
		}
	}

	if len(best) == 0 {
		return nil, utils.E(utils.CodeGeneration, op, "AI generation failed", lastErr)
	}
	if len(best) < n {
		s.log.WithFields(logrus.Fields{"op": op, "got": len(best), "want": n}).Warn("short question set, remaining slots fill during the interview")
	}

	it := &models.Interview{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		Parameters: p,
		Questions:  fitQuestions(best, n),
		Answers:    []string{},
		Transcript: []models.TranscriptEntry{},
		Status:     models.StatusGenerated,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.interviews.Create(ctx, it); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create interview", err)
	}
	return it, nil
}

var bulletPrefix = regexp.MustCompile(`^[\-\*\d\.\)\s]+`)

// parseQuestions reads a JSON array of questions, falling back to one
// question per line.
func parseQuestions(raw string, minLen int) ([]string, llmjson.Stage) {
	var arr []string
	stage, err := llmjson.DecodeArray(raw, &arr)
	if err != nil {
		arr = splitLines(raw, minLen)
	}

	out := make([]string, 0, len(arr))
	for _, q := range arr {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out, stage
}

func splitLines(raw string, minLen int) []string {
	var out []string
	for _, line := range strings.Split(llmjson.StripFences(raw), "\n") {
		line = strings.TrimSpace(line)
		line = bulletPrefix.ReplaceAllString(line, "")
		line = strings.TrimRight(line, ",")
		line = strings.Trim(line, `"`)
		if len(line) < minLen {
			continue
		}
		out = append(out, line)
	}
	return out
}

// fitQuestions truncates or pads qs to exactly n entries. Padding slots are
// empty strings.
func fitQuestions(qs []string, n int) []string {
	out := make([]string, n)
	copy(out, qs)
	return out
}
