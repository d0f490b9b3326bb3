package voice

import "time"

// Event is an input to Machine.Handle.
type Event interface{ isEvent() }

type (
	StartPressed    struct{}
	StopPressed     struct{}
	PrevPressed     struct{}
	NextPressed     struct{}
	ReAnswerPressed struct{}
	FinishPressed   struct{}
	DoubtPressed    struct{}

	// RecognitionResult is one result from the continuous recognizer.
	// Only final results are committed to the answer. Session is set by
	// the Controller to drop callbacks from a stopped session.
	RecognitionResult struct {
		Text    string
		Final   bool
		Session uint64
	}
	// RecognitionEnded reports that the recognition session stopped, for
	// any reason.
	RecognitionEnded struct{ Session uint64 }
	// RecognitionError reports that the recognizer could not be started.
	RecognitionError struct{ Err error }

	// SilenceElapsed fires when the silence timer tagged Gen expires.
	SilenceElapsed struct{ Gen uint64 }

	TurnSucceeded struct{ Reply TurnReply }
	TurnFailed    struct{ Err error }

	// SpeechDone reports that the utterance tagged Token finished playing.
	SpeechDone struct{ Token uint64 }

	DoubtHeard        struct{ Text string }
	DoubtCaptureEnded struct{}
	DoubtAnswered     struct{ Answer string }
	DoubtFailed       struct{ Err error }

	// FinishSubmitted reports the save-answers call returned. Err is
	// informational, navigation happens either way.
	FinishSubmitted struct{ Err error }
)

func (StartPressed) isEvent()      {}
func (StopPressed) isEvent()       {}
func (PrevPressed) isEvent()       {}
func (NextPressed) isEvent()       {}
func (ReAnswerPressed) isEvent()   {}
func (FinishPressed) isEvent()     {}
func (DoubtPressed) isEvent()      {}
func (RecognitionResult) isEvent() {}
func (RecognitionEnded) isEvent()  {}
func (RecognitionError) isEvent()  {}
func (SilenceElapsed) isEvent()    {}
func (TurnSucceeded) isEvent()     {}
func (TurnFailed) isEvent()        {}
func (SpeechDone) isEvent()        {}
func (DoubtHeard) isEvent()        {}
func (DoubtCaptureEnded) isEvent() {}
func (DoubtAnswered) isEvent()     {}
func (DoubtFailed) isEvent()       {}
func (FinishSubmitted) isEvent()   {}

// Effect is an action requested by the Machine.
type Effect interface{ isEffect() }

type (
	StartRecognition struct{}
	StopRecognition  struct{}
	// StartTimer replaces any pending silence timer.
	StartTimer struct {
		Gen   uint64
		After time.Duration
	}
	CancelTimer struct{}

	SubmitTurn struct{ Request TurnRequest }
	// Speak plays Text and reports SpeechDone{Token}. Token 0 is never awaited.
	Speak struct {
		Text  string
		Token uint64
	}
	SubmitAnswers struct {
		InterviewID string
		Answers     []string
	}

	StartDoubtCapture struct{}
	AskDoubt          struct{ Question, Doubt string }

	Render   struct{ View Snapshot }
	Navigate struct{ InterviewID string }
)

func (StartRecognition) isEffect()  {}
func (StopRecognition) isEffect()   {}
func (StartTimer) isEffect()        {}
func (CancelTimer) isEffect()       {}
func (SubmitTurn) isEffect()        {}
func (Speak) isEffect()             {}
func (SubmitAnswers) isEffect()     {}
func (StartDoubtCapture) isEffect() {}
func (AskDoubt) isEffect()          {}
func (Render) isEffect()            {}
func (Navigate) isEffect()          {}
