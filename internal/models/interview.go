package models

import (
	"time"
)

type InterviewStatus string

const (
	StatusGenerated  InterviewStatus = "generated"
	StatusInProgress InterviewStatus = "in_progress"
	StatusCompleted  InterviewStatus = "completed"
)

type Speaker string

const (
	SpeakerUser Speaker = "user"
	SpeakerAI   Speaker = "ai"
)

// Interview is one mock interview attempt. It is stored as a single document;
// every mutation replaces the whole document guarded by Version.
type Interview struct {
	ID      string `bson:"_id" json:"id"`          // uuid v4
	OwnerID string `bson:"owner_id" json:"owner"`  // jwt subject
	Version int64  `bson:"version" json:"version"` // bumped on every write

	Parameters InterviewParameters `bson:"parameters" json:"parameters"`

	Questions  []string          `bson:"questions" json:"questions"`
	Answers    []string          `bson:"answers" json:"answers"`
	Transcript []TranscriptEntry `bson:"transcript" json:"transcript"`

	CurrentIndex int             `bson:"current_index" json:"currentIndex"`
	Status       InterviewStatus `bson:"status" json:"status"`
	Feedback     *Feedback       `bson:"feedback,omitempty" json:"feedback"`

	CreatedAt time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updatedAt"`
	EndedAt   *time.Time `bson:"ended_at,omitempty" json:"endedAt,omitempty"`
}

type InterviewParameters struct {
	Title           string   `bson:"title" json:"title"`
	Type            string   `bson:"type" json:"type"` // Technical|Behavioral|...
	Skills          []string `bson:"skills" json:"skills"`
	ExperienceLevel string   `bson:"experience_level" json:"experienceLevel"`
	DurationMinutes int      `bson:"duration_minutes" json:"durationMinutes"`
}

// TranscriptEntry is immutable once appended.
type TranscriptEntry struct {
	Speaker   Speaker   `bson:"speaker" json:"speaker"`
	Text      string    `bson:"text" json:"text"`
	Timestamp time.Time `bson:"ts" json:"timestamp"`
}

type Feedback struct {
	PerQuestion    []QuestionFeedback `bson:"per_question" json:"perQuestion"`
	OverallScore   int                `bson:"overall_score" json:"overallScore"`
	DetailedReport string             `bson:"detailed_report" json:"detailedReport"`
}

type QuestionFeedback struct {
	Question    string `bson:"question" json:"question"`
	Answer      string `bson:"answer" json:"answer"`
	Score       int    `bson:"score" json:"score"` // 0-100
	Explanation string `bson:"explanation" json:"explanation"`
}

// InterviewSummary is the dashboard row.
type InterviewSummary struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Type         string          `json:"type"`
	Status       InterviewStatus `json:"status"`
	OverallScore *int            `json:"overallScore,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

func (it *Interview) Summary() InterviewSummary {
	s := InterviewSummary{
		ID:        it.ID,
		Title:     it.Parameters.Title,
		Type:      it.Parameters.Type,
		Status:    it.Status,
		CreatedAt: it.CreatedAt,
	}
	if it.Feedback != nil {
		score := it.Feedback.OverallScore
		s.OverallScore = &score
	}
	return s
}

// ResetAttempt clears everything a previous attempt produced.
func (it *Interview) ResetAttempt() {
	it.Status = StatusInProgress
	it.Transcript = []TranscriptEntry{}
	it.Answers = []string{}
	it.CurrentIndex = 0
	it.Feedback = nil
	it.EndedAt = nil
}

// Append adds a transcript entry. Existing entries are never touched.
func (it *Interview) Append(who Speaker, text string, at time.Time) {
	it.Transcript = append(it.Transcript, TranscriptEntry{Speaker: who, Text: text, Timestamp: at.UTC()})
}

// SetAnswer stores the answer for question i, replacing any earlier answer.
// The slice grows with blanks as needed but never past len(Questions).
func (it *Interview) SetAnswer(i int, text string) {
	if i < 0 || i >= len(it.Questions) {
		return
	}
	for len(it.Answers) <= i {
		it.Answers = append(it.Answers, "")
	}
	it.Answers[i] = text
}

// Advance moves CurrentIndex forward, clamped to the last question.
func (it *Interview) Advance() {
	last := len(it.Questions) - 1
	if last < 0 {
		last = 0
	}
	it.CurrentIndex++
	if it.CurrentIndex > last {
		it.CurrentIndex = last
	}
}
