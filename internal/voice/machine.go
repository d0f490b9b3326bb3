// Package voice drives one interview attempt from the candidate's side:
// speak a question, listen until the candidate goes quiet, submit the
// utterance, speak the reply and move on.
//
// Machine holds all session-local state and is a pure transition function
// from events to effects. Controller executes those effects against the
// platform ports on a single goroutine.
package voice

import (
	"strings"
	"time"

	"github.com/yoockh/yoointerview/internal/models"
)

const DefaultSilenceTimeout = 5 * time.Second

const (
	noAnswerText = "No answer"
	doubtFailed  = "Doubt failed"
)

type State int

const (
	Idle State = iota
	Listening
	Submitting
	Speaking
	Finishing
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	case Submitting:
		return "submitting"
	case Speaking:
		return "speaking"
	case Finishing:
		return "finishing"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// afterSpeech is what happens once the pending utterance has been spoken.
type afterSpeech int

const (
	thenIdle afterSpeech = iota
	thenListen
	thenContinue
)

// Session is the attempt as loaded from the server.
type Session struct {
	InterviewID  string
	Questions    []string
	Answers      []string
	Transcript   []models.TranscriptEntry
	CurrentIndex int
}

type MachineConfig struct {
	SilenceTimeout time.Duration
	Now            func() time.Time
}

type Machine struct {
	id         string
	questions  []string
	answers    []string
	transcript []models.TranscriptEntry
	current    int

	state   State
	silence time.Duration
	now     func() time.Time

	listening bool // listening intent, consulted before auto-restart
	utterance string
	interim   string
	timerGen  uint64

	speechToken uint64
	after       afterSpeech
	pending     *TurnReply

	doubtBusy  bool
	doubtAsked bool
	doubtText  string
	notice     string
}

func NewMachine(s Session, cfg MachineConfig) *Machine {
	if cfg.SilenceTimeout <= 0 {
		cfg.SilenceTimeout = DefaultSilenceTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	m := &Machine{
		id:         s.InterviewID,
		questions:  append([]string(nil), s.Questions...),
		answers:    make([]string, len(s.Questions)),
		transcript: append([]models.TranscriptEntry(nil), s.Transcript...),
		silence:    cfg.SilenceTimeout,
		now:        cfg.Now,
	}
	copy(m.answers, s.Answers)
	if s.CurrentIndex > 0 && s.CurrentIndex < len(m.questions) {
		m.current = s.CurrentIndex
	}
	return m
}

func (m *Machine) State() State { return m.state }

func (m *Machine) Current() int { return m.current }

// Answers returns a copy of the locally held answers.
func (m *Machine) Answers() []string { return append([]string(nil), m.answers...) }

// Handle applies ev and returns the effects to execute, in order.
// Events that do not apply to the current state are dropped.
func (m *Machine) Handle(ev Event) []Effect {
	if m.state == Finished {
		return nil
	}

	switch e := ev.(type) {
	case StartPressed:
		if m.state != Idle {
			return nil
		}
		m.notice = ""
		return m.speak(m.question(), thenListen)

	case StopPressed:
		switch m.state {
		case Listening:
			fx := m.stopListening()
			m.state = Idle
			return append(fx, m.render())
		case Speaking:
			if m.after == thenListen {
				m.after = thenIdle
			}
		}
		return nil

	case RecognitionResult:
		return m.onResult(e)

	case RecognitionEnded:
		if m.state == Listening && m.listening {
			return []Effect{StartRecognition{}}
		}
		return nil

	case RecognitionError:
		if m.state != Listening {
			return nil
		}
		fx := m.stopListening()
		m.state = Idle
		m.notice = "Speech recognition is unavailable"
		return append(fx, m.render())

	case SilenceElapsed:
		if m.state != Listening || e.Gen != m.timerGen {
			return nil
		}
		return m.submit()

	case TurnSucceeded:
		if m.state != Submitting {
			return nil
		}
		reply := e.Reply
		m.pending = &reply
		m.appendTranscript(models.SpeakerAI, reply.AIReply)
		return m.speak(reply.AIReply, thenContinue)

	case TurnFailed:
		if m.state != Submitting {
			return nil
		}
		m.state = Idle
		m.notice = "Could not submit your answer, press start to try again"
		return []Effect{m.render()}

	case SpeechDone:
		if m.state != Speaking || e.Token != m.speechToken {
			return nil
		}
		switch m.after {
		case thenListen:
			return m.listen()
		case thenContinue:
			return m.advance()
		default:
			m.state = Idle
			return []Effect{m.render()}
		}

	case PrevPressed:
		return m.move(m.current - 1)

	case NextPressed:
		return m.move(m.current + 1)

	case ReAnswerPressed:
		if m.state != Idle && m.state != Listening {
			return nil
		}
		m.setAnswer("")
		var fx []Effect
		if m.state == Listening {
			m.utterance = ""
			m.timerGen++
			fx = append(fx, CancelTimer{})
		}
		return append(fx, m.render())

	case FinishPressed:
		if m.state == Finishing {
			return nil
		}
		return m.finish()

	case FinishSubmitted:
		if m.state != Finishing {
			return nil
		}
		m.state = Finished
		return []Effect{Navigate{InterviewID: m.id}}

	case DoubtPressed:
		if m.doubtBusy {
			return nil
		}
		m.doubtBusy, m.doubtAsked = true, false
		m.doubtText = ""
		return []Effect{StartDoubtCapture{}, m.render()}

	case DoubtHeard:
		text := strings.TrimSpace(e.Text)
		if !m.doubtBusy || m.doubtAsked || text == "" {
			return nil
		}
		m.doubtAsked = true
		return []Effect{AskDoubt{Question: m.question(), Doubt: text}}

	case DoubtCaptureEnded:
		if !m.doubtBusy || m.doubtAsked {
			return nil
		}
		m.doubtBusy = false
		return []Effect{m.render()}

	case DoubtAnswered:
		if !m.doubtBusy {
			return nil
		}
		m.doubtBusy = false
		m.doubtText = strings.TrimSpace(e.Answer)
		if m.doubtText == "" {
			m.doubtText = noAnswerText
		}
		fx := []Effect{m.render()}
		// token 0 never completes a pending continuation
		if m.state == Idle || m.state == Listening {
			fx = append(fx, Speak{Text: m.doubtText})
		}
		return fx

	case DoubtFailed:
		if !m.doubtBusy {
			return nil
		}
		m.doubtBusy = false
		m.doubtText = doubtFailed
		return []Effect{m.render()}
	}
	return nil
}

func (m *Machine) onResult(e RecognitionResult) []Effect {
	if m.state != Listening {
		return nil
	}
	text := strings.TrimSpace(e.Text)
	if !e.Final {
		m.interim = text
		return []Effect{m.render()}
	}
	if text == "" {
		return nil
	}

	m.interim = ""
	if m.utterance == "" {
		m.utterance = text
	} else {
		m.utterance += " " + text
	}
	m.setAnswer(m.utterance)

	m.timerGen++
	return []Effect{StartTimer{Gen: m.timerGen, After: m.silence}, m.render()}
}

func (m *Machine) submit() []Effect {
	fx := m.stopListening()
	utterance := m.utterance
	m.utterance = ""
	m.appendTranscript(models.SpeakerUser, utterance)
	m.state = Submitting

	req := TurnRequest{
		InterviewID:   m.id,
		QuestionIndex: m.current,
		UserUtterance: utterance,
		Transcript:    append([]models.TranscriptEntry(nil), m.transcript...),
	}
	return append(fx, SubmitTurn{Request: req}, m.render())
}

// advance runs once the reply has been spoken.
func (m *Machine) advance() []Effect {
	r := m.pending
	m.pending = nil
	if r == nil {
		m.state = Idle
		return []Effect{m.render()}
	}
	if r.EndInterview {
		return m.finish()
	}

	next := m.current + 1
	if r.NextQuestion != nil && next < len(m.questions) && strings.TrimSpace(m.questions[next]) == "" {
		m.questions[next] = strings.TrimSpace(*r.NextQuestion)
	}
	if next >= len(m.questions) {
		return m.finish()
	}
	m.current = next
	return m.speak(m.question(), thenListen)
}

func (m *Machine) finish() []Effect {
	fx := m.stopListening()
	m.pending = nil
	m.state = Finishing
	fx = append(fx, SubmitAnswers{InterviewID: m.id, Answers: m.Answers()})
	return append(fx, m.render())
}

func (m *Machine) move(to int) []Effect {
	if m.state != Idle && m.state != Listening {
		return nil
	}
	if to < 0 || to >= len(m.questions) || to == m.current {
		return nil
	}

	var fx []Effect
	if m.state == Listening {
		fx = m.stopListening()
		m.utterance = ""
		m.state = Idle
	}
	m.current = to
	return append(fx, m.render())
}

func (m *Machine) listen() []Effect {
	m.state = Listening
	m.listening = true
	m.utterance = ""
	m.interim = ""
	return []Effect{StartRecognition{}, m.render()}
}

func (m *Machine) stopListening() []Effect {
	var fx []Effect
	if m.listening {
		m.listening = false
		fx = append(fx, StopRecognition{})
	}
	m.timerGen++
	m.interim = ""
	return append(fx, CancelTimer{})
}

func (m *Machine) speak(text string, then afterSpeech) []Effect {
	m.speechToken++
	m.after = then
	m.state = Speaking
	return []Effect{Speak{Text: text, Token: m.speechToken}, m.render()}
}

func (m *Machine) question() string {
	if m.current < len(m.questions) {
		return m.questions[m.current]
	}
	return ""
}

func (m *Machine) setAnswer(text string) {
	if m.current < len(m.answers) {
		m.answers[m.current] = text
	}
}

func (m *Machine) appendTranscript(who models.Speaker, text string) {
	m.transcript = append(m.transcript, models.TranscriptEntry{
		Speaker:   who,
		Text:      text,
		Timestamp: m.now().UTC(),
	})
}

// Snapshot is everything a view needs to draw the attempt.
type Snapshot struct {
	State          State
	QuestionNumber int
	QuestionCount  int
	Question       string
	Answer         string
	Interim        string
	Transcript     []models.TranscriptEntry
	Doubt          string
	DoubtBusy      bool
	Notice         string
	CanFinish      bool
}

func (m *Machine) Snapshot() Snapshot {
	answer := ""
	if m.current < len(m.answers) {
		answer = m.answers[m.current]
	}
	return Snapshot{
		State:          m.state,
		QuestionNumber: m.current + 1,
		QuestionCount:  len(m.questions),
		Question:       m.question(),
		Answer:         answer,
		Interim:        m.interim,
		Transcript:     append([]models.TranscriptEntry(nil), m.transcript...),
		Doubt:          m.doubtText,
		DoubtBusy:      m.doubtBusy,
		Notice:         m.notice,
		CanFinish:      m.current == len(m.questions)-1,
	}
}

func (m *Machine) render() Effect { return Render{View: m.Snapshot()} }
