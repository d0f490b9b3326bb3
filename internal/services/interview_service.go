package services

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/config"
	"github.com/yoockh/yoointerview/internal/cache"
	"github.com/yoockh/yoointerview/internal/llmjson"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/providers/llm"
	mongorepo "github.com/yoockh/yoointerview/internal/repositories/mongo"
	"github.com/yoockh/yoointerview/internal/utils"
)

// fallbackReply is spoken when the model produced nothing usable at all.
const fallbackReply = "Thank you for your answer. Let's move on."

type TurnInput struct {
	InterviewID      string
	QuestionIndex    int
	Utterance        string
	ClientTranscript []models.TranscriptEntry
}

type TurnResult struct {
	AIReply      string        `json:"aiReply"`
	NextQuestion *string       `json:"nextQuestion"`
	EndInterview bool          `json:"endInterview"`
	Stage        llmjson.Stage `json:"-"`
}

type InterviewService interface {
	Get(ctx context.Context, ownerID, id string) (*models.Interview, error)
	List(ctx context.Context, ownerID string) ([]models.InterviewSummary, error)
	StartAttempt(ctx context.Context, ownerID, id string) (*models.Interview, error)
	RestartAttempt(ctx context.Context, ownerID, id string) (*models.Interview, error)
	Turn(ctx context.Context, ownerID string, in TurnInput) (*TurnResult, error)
}

type interviewService struct {
	interviews mongorepo.InterviewRepository
	llm        llm.Provider
	locker     cache.Locker
	events     Publisher
	cfg        config.Interview
	log        logrus.FieldLogger
}

// NewInterviewService wires the turn engine. locker and events may be nil.
func NewInterviewService(interviews mongorepo.InterviewRepository, gen llm.Provider, locker cache.Locker, events Publisher, cfg config.Interview, log logrus.FieldLogger) InterviewService {
	if events == nil {
		events = nopPublisher{}
	}
	return &interviewService{interviews: interviews, llm: gen, locker: locker, events: events, cfg: cfg, log: log}
}

func (s *interviewService) Get(ctx context.Context, ownerID, id string) (*models.Interview, error) {
	return loadOwned(ctx, s.interviews, "InterviewService.Get", ownerID, id)
}

func (s *interviewService) List(ctx context.Context, ownerID string) ([]models.InterviewSummary, error) {
	const op = "InterviewService.List"

	if ownerID == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "owner is required", nil)
	}
	out, err := s.interviews.ListByOwner(ctx, ownerID, 0)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list interviews", err)
	}
	return out, nil
}

// StartAttempt moves a generated or in-progress interview to in_progress with
// a clean transcript. Calling it again before any turn is a no-op reset.
func (s *interviewService) StartAttempt(ctx context.Context, ownerID, id string) (*models.Interview, error) {
	const op = "InterviewService.StartAttempt"

	if id == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "interviewId is required", nil)
	}
	it, err := s.interviews.Update(ctx, id, func(it *models.Interview) error {
		if err := checkOwner(op, it, ownerID); err != nil {
			return err
		}
		if it.Status == models.StatusCompleted {
			return utils.E(utils.CodeConflict, op, "interview is already completed, restart it instead", nil)
		}
		it.ResetAttempt()
		return nil
	})
	if err != nil {
		return nil, repoErr(op, err)
	}
	return it, nil
}

// RestartAttempt resets any interview, completed ones included.
func (s *interviewService) RestartAttempt(ctx context.Context, ownerID, id string) (*models.Interview, error) {
	const op = "InterviewService.RestartAttempt"

	if id == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "interviewId is required", nil)
	}
	it, err := s.interviews.Update(ctx, id, func(it *models.Interview) error {
		if err := checkOwner(op, it, ownerID); err != nil {
			return err
		}
		it.ResetAttempt()
		return nil
	})
	if err != nil {
		return nil, repoErr(op, err)
	}
	s.events.Publish(ctx, eventFor(EventRestarted, it))
	return it, nil
}

type turnPayload struct {
	AIReply      string  `json:"aiReply"`
	NextQuestion *string `json:"nextQuestion"`
	EndInterview bool    `json:"endInterview"`
}

// Turn records one candidate utterance, asks the model for a reply and the
// next step, and advances the interview. Model failures never surface: the
// reply degrades to the raw text and the static question list.
func (s *interviewService) Turn(ctx context.Context, ownerID string, in TurnInput) (*TurnResult, error) {
	const op = "InterviewService.Turn"

	if in.InterviewID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "interviewId is required", nil)
	}
	if in.QuestionIndex < 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "questionIndex must be >= 0", nil)
	}
	utterance := strings.TrimSpace(in.Utterance)

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, "interview:"+in.InterviewID+":turn", s.cfg.TurnLockTTL)
		if err != nil {
			return nil, utils.E(utils.CodeConflict, op, "another turn is in progress", err)
		}
		defer release()
	}

	log := s.log.WithFields(logrus.Fields{
		"op":                    op,
		"interview_id":          in.InterviewID,
		"question_index":        in.QuestionIndex,
		"client_transcript_len": len(in.ClientTranscript),
	})

	it, err := s.interviews.Update(ctx, in.InterviewID, func(it *models.Interview) error {
		if err := checkOwner(op, it, ownerID); err != nil {
			return err
		}
		if it.Status == models.StatusCompleted {
			return utils.E(utils.CodeConflict, op, "interview is already completed", nil)
		}
		if in.QuestionIndex >= len(it.Questions) {
			return utils.E(utils.CodeInvalidArgument, op, "questionIndex is out of range", nil)
		}
		if it.Status == models.StatusGenerated {
			it.Status = models.StatusInProgress
		}
		it.Append(models.SpeakerUser, utterance, time.Now())
		it.SetAnswer(in.QuestionIndex, utterance)
		return nil
	})
	if err != nil {
		return nil, repoErr(op, err)
	}

	recorded := len(it.Transcript)
	res := s.reply(ctx, log, it, in.QuestionIndex, utterance)

	it, err = s.interviews.Update(ctx, in.InterviewID, func(it *models.Interview) error {
		// a finalize or restart landed while the model was answering
		if it.Status == models.StatusCompleted || len(it.Transcript) != recorded {
			return utils.E(utils.CodeConflict, op, "interview changed while the reply was generated", nil)
		}
		it.Append(models.SpeakerAI, res.AIReply, time.Now())

		next := in.QuestionIndex + 1
		if res.NextQuestion != nil && next < len(it.Questions) && it.Questions[next] == "" {
			it.Questions[next] = *res.NextQuestion
		}

		if res.EndInterview {
			now := time.Now().UTC()
			it.Status = models.StatusCompleted
			it.EndedAt = &now
		} else {
			it.Advance()
		}
		return nil
	})
	if err != nil {
		return nil, repoErr(op, err)
	}

	if res.EndInterview {
		s.events.Publish(ctx, eventFor(EventCompleted, it))
	} else {
		s.events.Publish(ctx, eventFor(EventTurn, it))
	}
	return res, nil
}

func (s *interviewService) reply(ctx context.Context, log logrus.FieldLogger, it *models.Interview, idx int, utterance string) *TurnResult {
	raw, err := s.llm.Generate(ctx, turnPrompt(it, idx, utterance))
	if err != nil {
		log.WithError(err).Warn("turn generation failed, using static flow")
	}

	var p turnPayload
	stage, perr := llmjson.DecodeObject(raw, &p)
	if err != nil || perr != nil {
		res := staticReply(it.Questions, idx, raw)
		log.WithField("parse_stage", res.Stage.String()).Warn("model output degraded")
		return res
	}
	if stage != llmjson.Strict {
		log.WithField("parse_stage", stage.String()).Warn("model output degraded")
	}

	res := &TurnResult{
		AIReply:      strings.TrimSpace(p.AIReply),
		NextQuestion: nonEmpty(p.NextQuestion),
		EndInterview: p.EndInterview,
		Stage:        stage,
	}
	if res.AIReply == "" {
		res.AIReply = fallbackReply
	}
	return res
}

// staticReply is the last-resort turn result built from the stored questions.
func staticReply(questions []string, idx int, raw string) *TurnResult {
	res := &TurnResult{AIReply: strings.TrimSpace(raw), Stage: llmjson.Fallback}
	if res.AIReply == "" {
		res.AIReply = fallbackReply
	}
	if next := idx + 1; next < len(questions) && questions[next] != "" {
		q := questions[next]
		res.NextQuestion = &q
	}
	res.EndInterview = res.NextQuestion == nil
	return res
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
