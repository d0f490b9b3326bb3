package services

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/internal/models"
)

const (
	EventTurn      = "turn"
	EventCompleted = "completed"
	EventFinalized = "finalized"
	EventRestarted = "restarted"
)

// Event is pushed to live viewers of an interview.
type Event struct {
	Type         string                 `json:"type"`
	InterviewID  string                 `json:"interview_id"`
	Status       models.InterviewStatus `json:"status"`
	CurrentIndex int                    `json:"current_index"`
}

func eventFor(typ string, it *models.Interview) Event {
	return Event{Type: typ, InterviewID: it.ID, Status: it.Status, CurrentIndex: it.CurrentIndex}
}

// Publisher delivery is best-effort; a lost event never fails a request.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

func StatusChannel(interviewID string) string {
	return "interview:" + interviewID + ":status"
}

type RedisPublisher struct {
	rdb *redis.Client
	log logrus.FieldLogger
}

func NewRedisPublisher(rdb *redis.Client, log logrus.FieldLogger) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, log: log}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := p.rdb.Publish(ctx, StatusChannel(ev.InterviewID), b).Err(); err != nil {
		p.log.WithError(err).WithField("interview_id", ev.InterviewID).Warn("publish event failed")
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) {}
