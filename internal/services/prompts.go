package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yoockh/yoointerview/internal/models"
)

func questionsPrompt(p models.InterviewParameters, n int) string {
	return fmt.Sprintf(`You are an expert REAL technical interviewer.

Generate EXACTLY %d interview questions for:
- Job Title: %s
- Interview Type: %s
- Required Skills: %s
- Experience Level: %s
- Interview Duration: %d minutes

STRICT RULES:
- Questions MUST be practical and used in REAL interviews.
- Difficulty MUST match the experience level.
- Cover a mix of: conceptual, coding/logic, debugging, scenario, system-thinking.
- Return ONLY a JSON array of %d strings. No markdown.

Example output:
["Explain how a hash map works internally.", "Design a URL shortener."]`,
		n, p.Title, p.Type, strings.Join(p.Skills, ", "), p.ExperienceLevel, p.DurationMinutes, n)
}

func turnPrompt(it *models.Interview, questionIndex int, utterance string) string {
	var b strings.Builder
	b.WriteString(`You are an expert interviewer and coach running a spoken mock interview.
1) Give short spoken-style feedback on the candidate's latest answer (1-3 sentences).
2) Then give the next interview question (concise), or null if the interview is finished.
3) If this was the last question, set endInterview true and add a brief closing comment.
Return ONLY a JSON object: {"aiReply":"...","nextQuestion":"..." or null,"endInterview":true|false}.
No text outside the JSON.

`)
	fmt.Fprintf(&b, "Question %d of %d: %s\n\nTranscript:\n", questionIndex+1, len(it.Questions), it.Questions[questionIndex])
	for _, e := range it.Transcript {
		fmt.Fprintf(&b, "%s: %s\n", strings.ToUpper(string(e.Speaker)), e.Text)
	}
	fmt.Fprintf(&b, "\nLatest question index: %d\nLatest user utterance: %s\n\nReturn the JSON now.", questionIndex, utterance)
	return b.String()
}

type qaPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func scoringPrompt(questions, answers []string) string {
	pairs := make([]qaPair, len(questions))
	for i, q := range questions {
		pairs[i] = qaPair{Question: q, Answer: answers[i]}
	}
	list, _ := json.Marshal(pairs)

	return fmt.Sprintf(`You are an expert technical interviewer.
Evaluate ALL answers at once, in order.

Return ONLY JSON:
{"results":[{"score":0-100,"explanation":"..."}],"overallScore":0-100}

No markdown. No text.

Here is the list:
%s`, list)
}

func reportPrompt(perQuestion []models.QuestionFeedback, overall int) string {
	data, _ := json.MarshalIndent(perQuestion, "", "  ")
	return fmt.Sprintf(`You are an expert technical hiring manager.

Using the following interview data:
Questions & Answers:
%s

Overall Score: %d

Write a PROFESSIONAL final interview report in plain text ONLY, with these sections:
1. Overall Summary
2. Strengths
3. Weaknesses
4. Areas of Improvement
5. Technical Skill Evaluation
6. Communication & Explanation Quality
7. Final Recommendation (Hire / Good Fit / Needs Improvement / Not a Fit)

Do NOT return JSON. Do NOT use markdown. Return clean readable paragraphs.`, data, overall)
}

func doubtPrompt(question, doubt string) string {
	return fmt.Sprintf(`You are a helpful interviewer. The candidate is answering this interview question:
%q

They asked a clarifying question:
%q

Clarify what is being asked in 2-4 short spoken sentences. Do NOT give away the answer. Plain text only.`, question, doubt)
}

// stripMarkup removes markdown characters from free text.
func stripMarkup(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		switch r {
		case '*', '#', '_', '`':
			return -1
		}
		return r
	}, s))
}
