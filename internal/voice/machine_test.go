package voice

import (
	"testing"
	"time"

	"github.com/yoockh/yoointerview/internal/models"
)

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestMachine(questions ...string) *Machine {
	if len(questions) == 0 {
		questions = []string{"Q1", "Q2", "Q3"}
	}
	return NewMachine(Session{InterviewID: "iv-1", Questions: questions}, MachineConfig{
		SilenceTimeout: 5 * time.Second,
		Now:            func() time.Time { return fixedNow },
	})
}

func find[T Effect](fx []Effect) (T, bool) {
	for _, f := range fx {
		if v, ok := f.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func count[T Effect](fx []Effect) int {
	n := 0
	for _, f := range fx {
		if _, ok := f.(T); ok {
			n++
		}
	}
	return n
}

func finishSpeech(t *testing.T, m *Machine, fx []Effect) []Effect {
	t.Helper()
	sp, ok := find[Speak](fx)
	if !ok {
		t.Fatalf("expected Speak in %#v", fx)
	}
	return m.Handle(SpeechDone{Token: sp.Token})
}

func startListening(t *testing.T, m *Machine) {
	t.Helper()
	fx := finishSpeech(t, m, m.Handle(StartPressed{}))
	if _, ok := find[StartRecognition](fx); !ok {
		t.Fatalf("expected StartRecognition, got %#v", fx)
	}
	if m.State() != Listening {
		t.Fatalf("state = %v, want listening", m.State())
	}
}

func TestStartSpeaksQuestionThenListens(t *testing.T) {
	m := newTestMachine()
	fx := m.Handle(StartPressed{})
	sp, ok := find[Speak](fx)
	if !ok || sp.Text != "Q1" || m.State() != Speaking {
		t.Fatalf("start: %#v state=%v", fx, m.State())
	}
	finishSpeech(t, m, fx)
	if m.State() != Listening {
		t.Fatalf("state = %v", m.State())
	}
}

func TestSilenceTimerResetsOnEveryFinal(t *testing.T) {
	m := newTestMachine()
	startListening(t, m)

	first, _ := find[StartTimer](m.Handle(RecognitionResult{Text: "A hash map", Final: true}))
	second, _ := find[StartTimer](m.Handle(RecognitionResult{Text: "uses buckets.", Final: true}))
	if first.After != 5*time.Second || second.Gen == first.Gen {
		t.Fatalf("timers: first=%+v second=%+v", first, second)
	}

	if fx := m.Handle(SilenceElapsed{Gen: first.Gen}); len(fx) != 0 {
		t.Fatalf("stale timer produced %#v", fx)
	}

	fx := m.Handle(SilenceElapsed{Gen: second.Gen})
	sub, ok := find[SubmitTurn](fx)
	if !ok {
		t.Fatalf("expected submission, got %#v", fx)
	}
	if sub.Request.UserUtterance != "A hash map uses buckets." || sub.Request.QuestionIndex != 0 {
		t.Fatalf("unexpected request %+v", sub.Request)
	}
	if _, ok := find[StopRecognition](fx); !ok {
		t.Fatal("listening must stop before submitting")
	}

	if fx := m.Handle(SilenceElapsed{Gen: second.Gen}); count[SubmitTurn](fx) != 0 {
		t.Fatal("second firing submitted again")
	}
	if m.State() != Submitting {
		t.Fatalf("state = %v", m.State())
	}
}

func TestInterimResultsAreTransient(t *testing.T) {
	m := newTestMachine()
	startListening(t, m)

	fx := m.Handle(RecognitionResult{Text: "a hash", Final: false})
	if count[StartTimer](fx) != 0 {
		t.Fatal("interim result started the silence timer")
	}
	s := m.Snapshot()
	if s.Interim != "a hash" || s.Answer != "" {
		t.Fatalf("snapshot %+v", s)
	}
}

func TestStopCancelsTimerAndIntent(t *testing.T) {
	m := newTestMachine()
	startListening(t, m)
	timer, _ := find[StartTimer](m.Handle(RecognitionResult{Text: "partial answer", Final: true}))

	fx := m.Handle(StopPressed{})
	if _, ok := find[CancelTimer](fx); !ok {
		t.Fatal("stop did not cancel the timer")
	}
	if _, ok := find[StopRecognition](fx); !ok {
		t.Fatal("stop did not stop recognition")
	}
	if m.State() != Idle {
		t.Fatalf("state = %v", m.State())
	}

	if fx := m.Handle(SilenceElapsed{Gen: timer.Gen}); len(fx) != 0 {
		t.Fatalf("orphaned timer fired: %#v", fx)
	}
	if fx := m.Handle(RecognitionEnded{}); len(fx) != 0 {
		t.Fatalf("stopped session restarted: %#v", fx)
	}
}

func TestRecognitionAutoRestartsWhileListening(t *testing.T) {
	m := newTestMachine()
	startListening(t, m)

	fx := m.Handle(RecognitionEnded{})
	if _, ok := find[StartRecognition](fx); !ok {
		t.Fatalf("expected restart, got %#v", fx)
	}
}

func TestStopWhileSpeakingQuestionDoesNotListen(t *testing.T) {
	m := newTestMachine()
	fx := m.Handle(StartPressed{})
	m.Handle(StopPressed{})

	fx = finishSpeech(t, m, fx)
	if count[StartRecognition](fx) != 0 || m.State() != Idle {
		t.Fatalf("state=%v fx=%#v", m.State(), fx)
	}
}

func submitAnswer(t *testing.T, m *Machine, text string) {
	t.Helper()
	timer, _ := find[StartTimer](m.Handle(RecognitionResult{Text: text, Final: true}))
	if count[SubmitTurn](m.Handle(SilenceElapsed{Gen: timer.Gen})) != 1 {
		t.Fatal("expected one submission")
	}
}

func strp(s string) *string { return &s }

func TestTurnAdoptsNextQuestionIntoEmptySlot(t *testing.T) {
	m := newTestMachine("Q1", "", "Q3")
	startListening(t, m)
	submitAnswer(t, m, "my answer")

	fx := m.Handle(TurnSucceeded{Reply: TurnReply{AIReply: "Good.", NextQuestion: strp("Generated Q2")}})
	if sp, _ := find[Speak](fx); sp.Text != "Good." {
		t.Fatalf("expected reply speech, got %#v", fx)
	}

	fx = finishSpeech(t, m, fx)
	if sp, _ := find[Speak](fx); sp.Text != "Generated Q2" {
		t.Fatalf("expected next question speech, got %#v", fx)
	}
	if m.Current() != 1 {
		t.Fatalf("current = %d", m.Current())
	}

	finishSpeech(t, m, fx)
	if m.State() != Listening {
		t.Fatalf("state = %v", m.State())
	}

	s := m.Snapshot()
	if len(s.Transcript) != 2 || s.Transcript[0].Speaker != models.SpeakerUser || s.Transcript[1].Speaker != models.SpeakerAI {
		t.Fatalf("transcript %+v", s.Transcript)
	}
}

func TestTurnKeepsExistingQuestion(t *testing.T) {
	m := newTestMachine()
	startListening(t, m)
	submitAnswer(t, m, "answer")

	fx := finishSpeech(t, m, m.Handle(TurnSucceeded{Reply: TurnReply{AIReply: "Ok.", NextQuestion: strp("Other")}}))
	if sp, _ := find[Speak](fx); sp.Text != "Q2" {
		t.Fatalf("local question replaced: %#v", fx)
	}
}

func TestServerEndFinalizesThenNavigates(t *testing.T) {
	m := newTestMachine()
	startListening(t, m)
	submitAnswer(t, m, "final answer")

	fx := finishSpeech(t, m, m.Handle(TurnSucceeded{Reply: TurnReply{AIReply: "Thanks.", EndInterview: true}}))
	save, ok := find[SubmitAnswers](fx)
	if !ok || save.InterviewID != "iv-1" || save.Answers[0] != "final answer" {
		t.Fatalf("expected save, got %#v", fx)
	}
	if m.State() != Finishing {
		t.Fatalf("state = %v", m.State())
	}

	fx = m.Handle(FinishSubmitted{})
	if nav, ok := find[Navigate](fx); !ok || nav.InterviewID != "iv-1" {
		t.Fatalf("expected navigate, got %#v", fx)
	}
	for _, ev := range []Event{StartPressed{}, NextPressed{}, RecognitionEnded{}, FinishPressed{}} {
		if fx := m.Handle(ev); len(fx) != 0 {
			t.Fatalf("%T after navigation produced %#v", ev, fx)
		}
	}
}

func TestReplyOnLastQuestionFinishes(t *testing.T) {
	m := newTestMachine("Q1")
	startListening(t, m)
	submitAnswer(t, m, "only answer")

	fx := finishSpeech(t, m, m.Handle(TurnSucceeded{Reply: TurnReply{AIReply: "Done.", NextQuestion: strp("extra")}}))
	if _, ok := find[SubmitAnswers](fx); !ok {
		t.Fatalf("expected finish on last question, got %#v", fx)
	}
	if m.Current() != 0 {
		t.Fatalf("current = %d", m.Current())
	}
}

func TestTurnFailedReturnsToIdle(t *testing.T) {
	m := newTestMachine()
	startListening(t, m)
	submitAnswer(t, m, "answer")

	m.Handle(TurnFailed{})
	if m.State() != Idle || m.Snapshot().Notice == "" {
		t.Fatalf("state=%v snapshot=%+v", m.State(), m.Snapshot())
	}
	if m.Answers()[0] != "answer" {
		t.Fatal("answer dropped on failure")
	}
}

func TestFinishWhileListening(t *testing.T) {
	m := newTestMachine()
	startListening(t, m)
	m.Handle(RecognitionResult{Text: "half", Final: true})

	fx := m.Handle(FinishPressed{})
	if _, ok := find[StopRecognition](fx); !ok {
		t.Fatal("finish did not stop recognition")
	}
	if _, ok := find[CancelTimer](fx); !ok {
		t.Fatal("finish did not cancel the timer")
	}
	save, ok := find[SubmitAnswers](fx)
	if !ok || save.Answers[0] != "half" {
		t.Fatalf("save %#v", fx)
	}
	if fx := m.Handle(FinishPressed{}); len(fx) != 0 {
		t.Fatal("second finish submitted again")
	}

	// submit failures still navigate
	if _, ok := find[Navigate](m.Handle(FinishSubmitted{Err: errTest})); !ok {
		t.Fatal("expected navigate")
	}
}

func TestManualNavigationAndReAnswer(t *testing.T) {
	m := newTestMachine()

	if fx := m.Handle(PrevPressed{}); len(fx) != 0 {
		t.Fatal("prev moved below zero")
	}
	m.Handle(NextPressed{})
	m.Handle(NextPressed{})
	if fx := m.Handle(NextPressed{}); len(fx) != 0 || m.Current() != 2 {
		t.Fatalf("current = %d", m.Current())
	}
	if !m.Snapshot().CanFinish {
		t.Fatal("last question should allow finishing")
	}

	m.Handle(PrevPressed{})
	startListening(t, m)
	m.Handle(RecognitionResult{Text: "draft", Final: true})

	fx := m.Handle(ReAnswerPressed{})
	if _, ok := find[CancelTimer](fx); !ok {
		t.Fatal("re-answer kept the pending timer")
	}
	if m.Answers()[1] != "" || m.State() != Listening {
		t.Fatalf("answers=%v state=%v", m.Answers(), m.State())
	}

	fx = m.Handle(NextPressed{})
	if _, ok := find[StopRecognition](fx); !ok || m.State() != Idle || m.Current() != 2 {
		t.Fatalf("next while listening: %#v state=%v", fx, m.State())
	}
}

func TestDoubtSideChannel(t *testing.T) {
	m := newTestMachine()
	startListening(t, m)

	if _, ok := find[StartDoubtCapture](m.Handle(DoubtPressed{})); !ok {
		t.Fatal("expected doubt capture")
	}
	if fx := m.Handle(DoubtPressed{}); len(fx) != 0 {
		t.Fatal("doubt pressed twice")
	}

	ask, ok := find[AskDoubt](m.Handle(DoubtHeard{Text: "what is a bucket?"}))
	if !ok || ask.Question != "Q1" || ask.Doubt != "what is a bucket?" {
		t.Fatalf("ask %+v", ask)
	}
	if fx := m.Handle(DoubtCaptureEnded{}); len(fx) != 0 {
		t.Fatal("capture end after a result should be ignored")
	}

	fx := m.Handle(DoubtAnswered{Answer: "A slot in the table."})
	sp, ok := find[Speak](fx)
	if !ok || sp.Token != 0 {
		t.Fatalf("doubt answer speech %#v", fx)
	}
	s := m.Snapshot()
	if s.Doubt != "A slot in the table." || s.DoubtBusy {
		t.Fatalf("snapshot %+v", s)
	}
	if len(s.Transcript) != 0 || s.Answer != "" || m.State() != Listening {
		t.Fatal("doubt touched the attempt")
	}

	m.Handle(DoubtPressed{})
	m.Handle(DoubtHeard{Text: "again?"})
	m.Handle(DoubtFailed{})
	if m.Snapshot().Doubt != doubtFailed {
		t.Fatalf("doubt = %q", m.Snapshot().Doubt)
	}
}

func TestNewMachineClampsState(t *testing.T) {
	m := NewMachine(Session{
		InterviewID:  "iv",
		Questions:    []string{"a", "b"},
		Answers:      []string{"x", "y", "z"},
		CurrentIndex: 7,
	}, MachineConfig{})
	if m.Current() != 0 || len(m.Answers()) != 2 || m.silence != DefaultSilenceTimeout {
		t.Fatalf("current=%d answers=%v silence=%v", m.Current(), m.Answers(), m.silence)
	}
}
