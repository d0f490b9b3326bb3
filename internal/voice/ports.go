package voice

import (
	"context"
	"time"
)

// Recognizer is a speech-to-text session. Start returns once the session is
// running; callbacks may arrive on any goroutine. onEnd is called once per
// started session, including after Stop. Stop on a session that already
// ended is a no-op.
type Recognizer interface {
	Start(onResult func(text string, final bool), onEnd func()) error
	Stop()
}

// Speaker plays text and returns when playback completes.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

type Timer interface {
	Stop() bool
}

type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// API is the server surface the loop talks to.
type API interface {
	Turn(ctx context.Context, req TurnRequest) (TurnReply, error)
	SaveAnswers(ctx context.Context, interviewID string, answers []string) error
	Doubt(ctx context.Context, question, doubt string) (string, error)
}

type Navigator interface {
	// Navigate leaves the attempt for the results view of interviewID.
	Navigate(interviewID string)
}

type View interface {
	Render(s Snapshot)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}
