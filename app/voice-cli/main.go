// Command voice-cli runs an interview attempt in a terminal. Typed lines
// stand in for final speech results; lines starting with "/" are controls.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/yoockh/yoointerview/config"
	"github.com/yoockh/yoointerview/internal/logger"
	"github.com/yoockh/yoointerview/internal/voice"
)

const usage = `controls: /start /stop /prev /next /reanswer /doubt <text> /finish`

func main() {
	_ = godotenv.Load()
	log := logger.New()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: voice-cli <interview-id>")
		os.Exit(2)
	}
	interviewID := os.Args[1]

	cfg, err := config.LoadInterview(config.GetEnv("INTERVIEW_CONFIG", config.DefaultInterviewConfigPath))
	if err != nil {
		log.WithError(err).Fatal("interview config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := voice.NewHTTPAPI(config.GetEnv("INTERVIEW_API_URL", "http://localhost:8080"), os.Getenv("INTERVIEW_TOKEN"), nil)
	if err := api.StartAttempt(ctx, interviewID); err != nil {
		log.WithError(err).Fatal("start attempt")
	}
	session, err := api.Load(ctx, interviewID)
	if err != nil {
		log.WithError(err).Fatal("load interview")
	}

	answers := &lineRecognizer{}
	doubts := &lineRecognizer{}
	c := voice.NewController(
		voice.NewMachine(session, voice.MachineConfig{SilenceTimeout: cfg.SilenceTimeout()}),
		voice.Ports{
			Recognizer:      answers,
			DoubtRecognizer: doubts,
			Speaker:         printSpeaker{},
			API:             api,
			Navigator:       navigator{},
			View:            &termView{},
			Log:             log,
		},
	)

	go readInput(c, answers, doubts)
	fmt.Println(usage)
	c.Run(ctx)
}

func readInput(c *voice.Controller, answers, doubts *lineRecognizer) {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		cmd, arg, _ := strings.Cut(line, " ")

		var ev voice.Event
		switch cmd {
		case "":
			continue
		case "/start":
			ev = voice.StartPressed{}
		case "/stop":
			ev = voice.StopPressed{}
		case "/prev":
			ev = voice.PrevPressed{}
		case "/next":
			ev = voice.NextPressed{}
		case "/reanswer":
			ev = voice.ReAnswerPressed{}
		case "/finish":
			ev = voice.FinishPressed{}
		case "/doubt":
			if !c.Post(voice.DoubtPressed{}) {
				return
			}
			// the capture session opens on the loop goroutine
			for i := 0; i < 50 && !doubts.feed(arg); i++ {
				time.Sleep(10 * time.Millisecond)
			}
			doubts.Stop()
			continue
		default:
			if strings.HasPrefix(cmd, "/") {
				fmt.Println(usage)
				continue
			}
			answers.feed(line)
			continue
		}
		if !c.Post(ev) {
			return
		}
	}
}

// lineRecognizer delivers typed lines as final results while a session is
// open.
type lineRecognizer struct {
	mu       sync.Mutex
	onResult func(string, bool)
	onEnd    func()
}

func (r *lineRecognizer) Start(onResult func(string, bool), onEnd func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onResult, r.onEnd = onResult, onEnd
	return nil
}

func (r *lineRecognizer) Stop() {
	r.mu.Lock()
	onEnd := r.onEnd
	r.onResult, r.onEnd = nil, nil
	r.mu.Unlock()
	if onEnd != nil {
		onEnd()
	}
}

func (r *lineRecognizer) feed(text string) bool {
	r.mu.Lock()
	cb := r.onResult
	r.mu.Unlock()
	if cb == nil {
		return false
	}
	cb(text, true)
	return true
}

type printSpeaker struct{}

func (printSpeaker) Speak(_ context.Context, text string) error {
	fmt.Printf("AI: %s\n", text)
	return nil
}

type navigator struct{}

func (navigator) Navigate(interviewID string) {
	fmt.Printf("attempt finished, results for %s are ready\n", interviewID)
}

type termView struct {
	last voice.Snapshot
}

func (v *termView) Render(s voice.Snapshot) {
	if s.QuestionNumber != v.last.QuestionNumber || s.Question != v.last.Question {
		fmt.Printf("[question %d of %d] %s\n", s.QuestionNumber, s.QuestionCount, s.Question)
	}
	if s.State != v.last.State {
		fmt.Printf("(%s)\n", s.State)
	}
	if s.Doubt != "" && s.Doubt != v.last.Doubt {
		fmt.Printf("doubt: %s\n", s.Doubt)
	}
	if s.Notice != "" && s.Notice != v.last.Notice {
		fmt.Printf("! %s\n", s.Notice)
	}
	v.last = s
}
