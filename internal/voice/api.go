package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yoockh/yoointerview/internal/models"
)

type TurnRequest struct {
	InterviewID   string                   `json:"interviewId"`
	QuestionIndex int                      `json:"questionIndex"`
	UserUtterance string                   `json:"userUtterance"`
	Transcript    []models.TranscriptEntry `json:"transcript"`
}

type TurnReply struct {
	AIReply      string  `json:"aiReply"`
	NextQuestion *string `json:"nextQuestion"`
	EndInterview bool    `json:"endInterview"`
}

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("http %d: %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("http %d", e.Status)
}

// HTTPAPI implements API against the interview HTTP endpoints.
type HTTPAPI struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPAPI returns a client for baseURL. token is sent as a bearer token
// when set. A nil client gets a default with transport timeouts; request
// lifetime is left to the context.
func NewHTTPAPI(baseURL, token string, client *http.Client) *HTTPAPI {
	if client == nil {
		client = &http.Client{Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		}}
	}
	return &HTTPAPI{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  client,
	}
}

func (a *HTTPAPI) Turn(ctx context.Context, req TurnRequest) (TurnReply, error) {
	var out TurnReply
	err := a.post(ctx, "/interview/voice-respond", req, &out)
	return out, err
}

func (a *HTTPAPI) SaveAnswers(ctx context.Context, interviewID string, answers []string) error {
	if answers == nil {
		answers = []string{}
	}
	body := map[string]any{"interviewId": interviewID, "answers": answers}
	return a.post(ctx, "/interview/save-answers", body, nil)
}

func (a *HTTPAPI) Doubt(ctx context.Context, question, doubt string) (string, error) {
	var out struct {
		Answer string `json:"answer"`
	}
	err := a.post(ctx, "/interview/doubt", map[string]string{"question": question, "doubt": doubt}, &out)
	return out.Answer, err
}

// Load fetches the attempt and turns it into a Session.
func (a *HTTPAPI) Load(ctx context.Context, interviewID string) (Session, error) {
	var it models.Interview
	if err := a.do(ctx, http.MethodGet, "/interview/"+url.PathEscape(interviewID), nil, &it); err != nil {
		return Session{}, err
	}
	return Session{
		InterviewID:  it.ID,
		Questions:    it.Questions,
		Answers:      it.Answers,
		Transcript:   it.Transcript,
		CurrentIndex: it.CurrentIndex,
	}, nil
}

// StartAttempt resets the attempt on the server.
func (a *HTTPAPI) StartAttempt(ctx context.Context, interviewID string) error {
	return a.post(ctx, "/interview/start-attempt", map[string]string{"interviewId": interviewID}, nil)
}

func (a *HTTPAPI) post(ctx context.Context, path string, in, out any) error {
	return a.do(ctx, http.MethodPost, path, in, out)
}

func (a *HTTPAPI) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Status: resp.StatusCode}
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&apiErr) == nil {
			se.Code, se.Message = apiErr.Code, apiErr.Message
		}
		return se
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
