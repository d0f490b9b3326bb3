package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var errTest = errors.New("test failure")

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	timers  []*fakeTimer
	created int
}

type fakeTimer struct {
	c       *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock { return &fakeClock{now: fixedNow} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{c: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	c.created++
	return t
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves time forward and runs every timer that came due.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []func()
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t.f)
		}
	}
	c.mu.Unlock()

	for _, f := range due {
		f()
	}
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (c *fakeClock) createdCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.created
}

type fakeRecognizer struct {
	mu        sync.Mutex
	starts    int
	stops     int
	active    bool
	failStart error
	onResult  func(string, bool)
	onEnd     func()
}

func (r *fakeRecognizer) Start(onResult func(string, bool), onEnd func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failStart != nil {
		return r.failStart
	}
	r.starts++
	r.active = true
	r.onResult, r.onEnd = onResult, onEnd
	return nil
}

// Stop ends the session like a browser does, with a trailing end callback.
func (r *fakeRecognizer) Stop() {
	r.mu.Lock()
	wasActive := r.active
	r.active = false
	onEnd := r.onEnd
	r.mu.Unlock()

	if wasActive && onEnd != nil {
		onEnd()
	}

	r.mu.Lock()
	r.stops++
	r.mu.Unlock()
}

func (r *fakeRecognizer) result(text string, final bool) {
	r.mu.Lock()
	active, cb := r.active, r.onResult
	r.mu.Unlock()
	if active && cb != nil {
		cb(text, final)
	}
}

// expire ends the session without a Stop call.
func (r *fakeRecognizer) expire() {
	r.mu.Lock()
	wasActive := r.active
	r.active = false
	onEnd := r.onEnd
	r.mu.Unlock()
	if wasActive && onEnd != nil {
		onEnd()
	}
}

func (r *fakeRecognizer) counts() (starts, stops int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts, r.stops
}

type fakeAPI struct {
	mu      sync.Mutex
	reply   TurnReply
	turnErr error
	saveErr error
	answer  string
	turns   []TurnRequest
	saves   [][]string
}

func (a *fakeAPI) Turn(_ context.Context, req TurnRequest) (TurnReply, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.turns = append(a.turns, req)
	return a.reply, a.turnErr
}

func (a *fakeAPI) SaveAnswers(_ context.Context, _ string, answers []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.saves = append(a.saves, answers)
	return a.saveErr
}

func (a *fakeAPI) Doubt(_ context.Context, _, _ string) (string, error) {
	return a.answer, nil
}

func (a *fakeAPI) turnRequests() []TurnRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]TurnRequest(nil), a.turns...)
}

func (a *fakeAPI) savedAnswers() [][]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([][]string(nil), a.saves...)
}

type fakeNavigator struct {
	mu  sync.Mutex
	ids []string
}

func (n *fakeNavigator) Navigate(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, id)
}

func (n *fakeNavigator) visits() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.ids...)
}

type fakeView struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (v *fakeView) Render(s Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.snaps = append(v.snaps, s)
}

func (v *fakeView) last() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.snaps) == 0 {
		return Snapshot{}
	}
	return v.snaps[len(v.snaps)-1]
}

func (v *fakeView) count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.snaps)
}

type fakeSpeaker struct {
	mu    sync.Mutex
	texts []string
}

func (s *fakeSpeaker) Speak(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return nil
}

func (s *fakeSpeaker) spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
