package voice

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

type Ports struct {
	Recognizer Recognizer
	// DoubtRecognizer runs the single-shot doubt capture. Optional.
	DoubtRecognizer Recognizer
	// Speaker is optional; without one speech completes immediately.
	Speaker   Speaker
	Clock     Clock
	API       API
	Navigator Navigator
	View      View
	Log       logrus.FieldLogger
}

// Controller owns one Machine and runs every transition on the goroutine
// that called Run. Port callbacks only post events back to it.
type Controller struct {
	m      *Machine
	p      Ports
	log    logrus.FieldLogger
	events chan Event
	done   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	timer       Timer
	queue       []Event
	recognizing bool
	recSession  uint64
	doubting    bool
}

func NewController(m *Machine, p Ports) *Controller {
	if p.Clock == nil {
		p.Clock = SystemClock
	}
	log := p.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Controller{
		m:      m,
		p:      p,
		log:    log.WithField("interview_id", m.id),
		events: make(chan Event, 64),
		done:   make(chan struct{}),
	}
}

// Post hands ev to the loop. It reports false once the loop has stopped.
func (c *Controller) Post(ev Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

// Done is closed when Run returns.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Run processes events until ctx ends or the loop navigates away. After it
// returns no port is called again.
func (c *Controller) Run(ctx context.Context) {
	c.ctx, c.cancel = context.WithCancel(ctx)
	defer c.shutdown()

	c.exec(Render{View: c.m.Snapshot()})
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-c.events:
			if !c.accept(ev) {
				continue
			}
			if !c.dispatch(ev) {
				return
			}
		}
	}
}

// accept drops callbacks from recognition sessions that were stopped or
// replaced since.
func (c *Controller) accept(ev Event) bool {
	switch e := ev.(type) {
	case RecognitionResult:
		return c.recognizing && e.Session == c.recSession
	case RecognitionEnded:
		if !c.recognizing || e.Session != c.recSession {
			return false
		}
		c.recognizing = false
	}
	return true
}

func (c *Controller) dispatch(ev Event) bool {
	c.queue = append(c.queue, ev)
	for len(c.queue) > 0 {
		next := c.queue[0]
		c.queue = c.queue[1:]
		for _, fx := range c.m.Handle(next) {
			if !c.exec(fx) {
				return false
			}
		}
	}
	return true
}

// exec runs one effect. It returns false once the loop must stop.
func (c *Controller) exec(fx Effect) bool {
	switch e := fx.(type) {
	case StartRecognition:
		if c.recognizing {
			return true
		}
		c.recSession++
		session := c.recSession
		err := c.p.Recognizer.Start(
			func(text string, final bool) {
				c.Post(RecognitionResult{Text: text, Final: final, Session: session})
			},
			func() { c.Post(RecognitionEnded{Session: session}) },
		)
		if err != nil {
			c.log.WithError(err).Warn("recognition start failed")
			c.queue = append(c.queue, RecognitionError{Err: err})
			return true
		}
		c.recognizing = true

	case StopRecognition:
		c.stopRecognition()

	case StartTimer:
		c.stopTimer()
		gen := e.Gen
		c.timer = c.p.Clock.AfterFunc(e.After, func() { c.Post(SilenceElapsed{Gen: gen}) })

	case CancelTimer:
		c.stopTimer()

	case SubmitTurn:
		req := e.Request
		go func() {
			reply, err := c.p.API.Turn(c.ctx, req)
			if err != nil {
				c.log.WithError(err).WithField("question_index", req.QuestionIndex).Warn("turn failed")
				c.Post(TurnFailed{Err: err})
				return
			}
			c.Post(TurnSucceeded{Reply: reply})
		}()

	case Speak:
		c.speak(e)

	case SubmitAnswers:
		id, answers := e.InterviewID, e.Answers
		go func() {
			err := c.p.API.SaveAnswers(c.ctx, id, answers)
			if err != nil {
				c.log.WithError(err).Warn("save answers failed")
			}
			c.Post(FinishSubmitted{Err: err})
		}()

	case StartDoubtCapture:
		if c.p.DoubtRecognizer == nil {
			c.queue = append(c.queue, DoubtFailed{})
			return true
		}
		err := c.p.DoubtRecognizer.Start(
			func(text string, final bool) {
				if final {
					c.Post(DoubtHeard{Text: text})
				}
			},
			func() { c.Post(DoubtCaptureEnded{}) },
		)
		if err != nil {
			c.log.WithError(err).Warn("doubt capture failed")
			c.queue = append(c.queue, DoubtFailed{Err: err})
			return true
		}
		c.doubting = true

	case AskDoubt:
		q, d := e.Question, e.Doubt
		go func() {
			answer, err := c.p.API.Doubt(c.ctx, q, d)
			if err != nil {
				c.log.WithError(err).Warn("doubt failed")
				c.Post(DoubtFailed{Err: err})
				return
			}
			c.Post(DoubtAnswered{Answer: answer})
		}()

	case Render:
		if c.p.View != nil {
			c.p.View.Render(e.View)
		}

	case Navigate:
		c.halt()
		c.p.Navigator.Navigate(e.InterviewID)
		return false
	}
	return true
}

func (c *Controller) speak(e Speak) {
	if c.p.Speaker == nil || strings.TrimSpace(e.Text) == "" {
		if e.Token != 0 {
			c.queue = append(c.queue, SpeechDone{Token: e.Token})
		}
		return
	}
	go func() {
		if err := c.p.Speaker.Speak(c.ctx, e.Text); err != nil {
			c.log.WithError(err).Debug("speech failed")
		}
		if e.Token != 0 {
			c.Post(SpeechDone{Token: e.Token})
		}
	}()
}

func (c *Controller) stopRecognition() {
	if !c.recognizing {
		return
	}
	c.recognizing = false
	c.recSession++
	c.p.Recognizer.Stop()
}

func (c *Controller) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// halt stops every source of future events.
func (c *Controller) halt() {
	c.stopTimer()
	c.stopRecognition()
	if c.doubting {
		c.doubting = false
		c.p.DoubtRecognizer.Stop()
	}
	c.queue = nil
}

func (c *Controller) shutdown() {
	c.halt()
	c.cancel()
	close(c.done)
}
