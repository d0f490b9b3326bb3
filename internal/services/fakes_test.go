package services

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/config"
	"github.com/yoockh/yoointerview/internal/models"
	mongorepo "github.com/yoockh/yoointerview/internal/repositories/mongo"
	"github.com/yoockh/yoointerview/internal/utils"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testConfig() config.Interview {
	cfg := config.DefaultInterview()
	cfg.TurnLockTTL = time.Second
	return cfg
}

// memRepo is an in-memory InterviewRepository with the same version check as
// the Mongo one.
type memRepo struct {
	mu      sync.Mutex
	docs    map[string]models.Interview
	creates int
	updates int
}

func newMemRepo() *memRepo {
	return &memRepo{docs: map[string]models.Interview{}}
}

func clone(it models.Interview) models.Interview {
	out := it
	out.Questions = append([]string(nil), it.Questions...)
	out.Answers = append([]string(nil), it.Answers...)
	out.Transcript = append([]models.TranscriptEntry(nil), it.Transcript...)
	out.Parameters.Skills = append([]string(nil), it.Parameters.Skills...)
	if it.Feedback != nil {
		fb := *it.Feedback
		fb.PerQuestion = append([]models.QuestionFeedback(nil), it.Feedback.PerQuestion...)
		out.Feedback = &fb
	}
	return out
}

func (r *memRepo) Create(_ context.Context, it *models.Interview) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	it.Version = 1
	r.docs[it.ID] = clone(*it)
	r.creates++
	return nil
}

func (r *memRepo) Get(_ context.Context, id string) (*models.Interview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.docs[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	c := clone(it)
	return &c, nil
}

func (r *memRepo) Update(ctx context.Context, id string, mutate mongorepo.Mutation) (*models.Interview, error) {
	it, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	expected := it.Version
	if err := mutate(it); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.docs[id].Version != expected {
		return nil, utils.ErrConflict
	}
	it.Version = expected + 1
	r.docs[id] = clone(*it)
	r.updates++
	return it, nil
}

func (r *memRepo) ListByOwner(_ context.Context, ownerID string, _ int64) ([]models.InterviewSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.InterviewSummary
	for _, it := range r.docs {
		if it.OwnerID == ownerID {
			out = append(out, it.Summary())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memRepo) doc(id string) models.Interview {
	r.mu.Lock()
	defer r.mu.Unlock()
	return clone(r.docs[id])
}

func (r *memRepo) put(it models.Interview) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if it.Version == 0 {
		it.Version = 1
	}
	r.docs[it.ID] = clone(it)
}

type scripted struct {
	text string
	err  error
}

// scriptedLLM replays canned responses in order and records prompts.
type scriptedLLM struct {
	mu      sync.Mutex
	replies []scripted
	prompts []string
}

func newScriptedLLM(replies ...scripted) *scriptedLLM {
	return &scriptedLLM{replies: replies}
}

func (s *scriptedLLM) Generate(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if len(s.replies) == 0 {
		return "", errors.New("no scripted reply left")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r.text, r.err
}

func (s *scriptedLLM) Close() error { return nil }

func (s *scriptedLLM) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

func say(text string) scripted { return scripted{text: text} }

func boom(msg string) scripted { return scripted{err: errors.New(msg)} }

var sevenQuestions = []string{
	"Explain how a hash map works internally.",
	"How do goroutines differ from OS threads?",
	"Design a URL shortener.",
	"How would you debug a slow SQL query?",
	"Explain database indexing trade-offs.",
	"What happens when a Go channel is closed?",
	"Describe how you would shard a large table.",
}

func jsonArray(qs []string) string {
	quoted := make([]string, len(qs))
	for i, q := range qs {
		quoted[i] = `"` + q + `"`
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

func seededInterview(id, owner string, status models.InterviewStatus) models.Interview {
	return models.Interview{
		ID:         id,
		OwnerID:    owner,
		Parameters: models.InterviewParameters{Title: "Backend Engineer", Type: "Technical", Skills: []string{"Go"}, ExperienceLevel: "Mid", DurationMinutes: 30},
		Questions:  append([]string(nil), sevenQuestions...),
		Answers:    []string{},
		Transcript: []models.TranscriptEntry{},
		Status:     status,
		CreatedAt:  time.Now().UTC(),
	}
}

type countingLocker struct {
	mu       sync.Mutex
	acquired int
	released int
	err      error
}

func (l *countingLocker) Acquire(context.Context, string, time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.acquired++
	return func() {
		l.mu.Lock()
		l.released++
		l.mu.Unlock()
	}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}
