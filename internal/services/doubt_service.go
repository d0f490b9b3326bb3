package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/internal/cache"
	"github.com/yoockh/yoointerview/internal/providers/llm"
	"github.com/yoockh/yoointerview/internal/utils"
)

// DoubtService answers clarifying questions. It is stateless: interviews are
// never read or written.
type DoubtService interface {
	Ask(ctx context.Context, question, doubt string) (string, error)
}

type doubtService struct {
	llm   llm.Provider
	cache cache.Cache
	ttl   time.Duration
	log   logrus.FieldLogger
}

// NewDoubtService builds the Q&A side channel. c may be nil.
func NewDoubtService(gen llm.Provider, c cache.Cache, ttl time.Duration, log logrus.FieldLogger) DoubtService {
	return &doubtService{llm: gen, cache: c, ttl: ttl, log: log}
}

func doubtKey(question, doubt string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(question) + "\x00" + strings.ToLower(doubt)))
	return "doubt:" + hex.EncodeToString(sum[:])
}

func (s *doubtService) Ask(ctx context.Context, question, doubt string) (string, error) {
	const op = "DoubtService.Ask"

	question = strings.TrimSpace(question)
	doubt = strings.TrimSpace(doubt)
	if doubt == "" {
		return "", utils.E(utils.CodeInvalidArgument, op, "doubt is required", nil)
	}

	key := doubtKey(question, doubt)
	if s.cache != nil {
		var cached string
		hit, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			s.log.WithError(err).WithField("op", op).Warn("doubt cache read failed")
		}
		if hit && cached != "" {
			return cached, nil
		}
	}

	raw, err := s.llm.Generate(ctx, doubtPrompt(question, doubt))
	if err != nil {
		return "", utils.E(utils.CodeGeneration, op, "doubt failed", err)
	}
	answer := stripMarkup(raw)
	if answer == "" {
		return "", utils.E(utils.CodeGeneration, op, "doubt failed", nil)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, answer, s.ttl); err != nil {
			s.log.WithError(err).WithField("op", op).Warn("doubt cache write failed")
		}
	}
	return answer, nil
}
