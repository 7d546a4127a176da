// Command simulate runs a timed interview session in the terminal. Enter
// moves to the next question, Space pauses, q ends the session.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stemsi/intervue-backend/internal/capture"
	"github.com/stemsi/intervue-backend/internal/logger"
	"github.com/stemsi/intervue-backend/internal/service"
	"github.com/stemsi/intervue-backend/internal/simulation"
	"golang.org/x/term"
)

var defaultQuestions = []string{
	"Tell me about yourself.",
	"Describe a project you are proud of and your role in it.",
	"Tell me about a time you disagreed with a teammate. How did you resolve it?",
	"What is a mistake you made at work and what did you learn from it?",
	"Why do you want this position?",
}

type options struct {
	questions     []string
	questionsFile string
	totalMinutes  int
	perQuestion   int
	countdown     int
	recordDir     string
	logLevel      string
	summaryFile   string
}

func main() {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "simulate",
		Short:         "Run a timed mock interview in the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&opts.questions, "question", "q", nil, "Question text (repeatable)")
	f.StringVar(&opts.questionsFile, "questions-file", "", "File with one question per line")
	f.IntVarP(&opts.totalMinutes, "minutes", "m", 10, "Total time budget in minutes")
	f.IntVar(&opts.perQuestion, "per-question", 0, "Seconds per question (default: budget divided evenly)")
	f.IntVar(&opts.countdown, "countdown", simulation.DefaultCountdownSeconds, "Countdown seconds before the first question")
	f.StringVar(&opts.recordDir, "record-dir", "", "Directory to write the session recording to")
	f.StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	f.StringVar(&opts.summaryFile, "summary", "", "Write the session summary as JSON to this file")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts *options) error {
	log := logger.Setup(opts.logLevel, "pretty", "")

	questions, err := loadQuestions(opts)
	if err != nil {
		return err
	}

	perQuestion := opts.perQuestion
	if perQuestion <= 0 {
		perQuestion = service.PlanSlot(opts.totalMinutes, len(questions))
	}

	cfg := simulation.Config{
		TotalQuestions:         len(questions),
		TotalTimeBudgetSeconds: opts.totalMinutes * 60,
		PerQuestionTimeSeconds: perQuestion,
		QuestionTexts:          questions,
		CountdownSeconds:       opts.countdown,
	}

	var device simulation.CaptureDevice = discardDevice{}
	id := uuid.New()
	sessionID := id.String()
	if opts.recordDir != "" {
		if err := os.MkdirAll(opts.recordDir, 0o755); err != nil {
			return fmt.Errorf("create record dir: %w", err)
		}
		device = capture.NewFileDevice(opts.recordDir, sessionID)
	}

	events := make(chan simulation.Event, 64)
	handoff := &terminalHandoff{id: id, summaryFile: opts.summaryFile, log: log, done: make(chan struct{})}

	ctrl := simulation.New(cfg, simulation.Options{
		Capture:   device,
		Handoff:   handoff,
		SessionID: func() string { return sessionID },
		Logger:    log,
		Observer: func(ev simulation.Event) {
			select {
			case events <- ev:
			default:
			}
		},
	})
	defer ctrl.Close()

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		prev, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("raw terminal: %w", err)
		}
		defer term.Restore(fd, prev)
	}

	fmt.Print("Enter: next question   Space: pause/resume   q: end\r\n\r\n")

	if err := ctrl.StartCountdown(ctx, cfg.CountdownSeconds); err != nil {
		return err
	}

	go readKeys(ctrl)

	stopped := ctx.Done()
	for {
		select {
		case <-stopped:
			stopped = nil
			if endOnSignal(ctrl) {
				fmt.Print("\r\n")
				return nil
			}
		case ev := <-events:
			render(ev)
		case <-handoff.done:
			for len(events) > 0 {
				render(<-events)
			}
			fmt.Print("\r\n")
			return handoff.err
		}
	}
}

// endOnSignal ends the session after a stop signal. It reports true when
// the cancelled context already tore the session down, in which case no
// hand-off will follow.
func endOnSignal(ctrl *simulation.Controller) bool {
	if ctrl.EndSession(simulation.ReasonUserEnded) {
		return false
	}
	return ctrl.Interrupted()
}

// readKeys forwards single key presses to the controller until the session
// ends. Raw mode delivers Ctrl-C as a byte rather than a signal.
func readKeys(ctrl *simulation.Controller) {
	buf := make([]byte, 8)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil || n == 0 {
			ctrl.EndSession(simulation.ReasonUserEnded)
			return
		}
		switch key := string(buf[:n]); key {
		case "q", "Q", "\x03", "\x1b":
			ctrl.EndSession(simulation.ReasonUserEnded)
			return
		default:
			ctrl.HandleKey(key)
		}
	}
}

func render(ev simulation.Event) {
	st := ev.State
	switch ev.Type {
	case simulation.EventCountdown:
		fmt.Printf("\r\033[KStarting in %d...", st.CountdownRemaining)
	case simulation.EventStarted, simulation.EventQuestion:
		fmt.Printf("\r\033[K\r\nQuestion %d/%d: %s\r\n", st.CurrentQuestionIndex+1, st.TotalQuestions, st.Question)
		renderClock(st)
	case simulation.EventTick, simulation.EventResumed:
		renderClock(st)
	case simulation.EventPaused:
		fmt.Printf("\r\033[K[paused] total %s  question %s", st.TotalClock, st.SlotClock)
	case simulation.EventEnded:
		fmt.Printf("\r\033[K\r\nSession ended (%s) after question %d/%d\r\n", st.EndReason, st.CurrentQuestionIndex+1, st.TotalQuestions)
	case simulation.EventAborted:
		fmt.Printf("\r\033[K\r\nSession aborted: %s\r\n", ev.Error)
	}
}

func renderClock(st simulation.State) {
	fmt.Printf("\r\033[Ktotal %s  question %s  %3.0f%%", st.TotalClock, st.SlotClock, st.ProgressPercent)
}

func loadQuestions(opts *options) ([]string, error) {
	questions := append([]string(nil), opts.questions...)

	if opts.questionsFile != "" {
		f, err := os.Open(opts.questionsFile)
		if err != nil {
			return nil, fmt.Errorf("open questions file: %w", err)
		}
		defer f.Close()

		sc := bufio.NewScanner(f)
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" && !strings.HasPrefix(line, "#") {
				questions = append(questions, line)
			}
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read questions file: %w", err)
		}
	}

	if len(questions) == 0 {
		questions = defaultQuestions
	}
	return questions, nil
}

// ─── Collaborators ──────────────────────────────────────────────────

type discardDevice struct{}

func (discardDevice) Acquire(context.Context) (simulation.CaptureStream, error) {
	return discardStream{}, nil
}

type discardStream struct{}

func (discardStream) Stop() error { return nil }

// terminalHandoff stores the summary the server would queue for evaluation.
// err is only read after done is closed.
type terminalHandoff struct {
	id          uuid.UUID
	summaryFile string
	log         zerolog.Logger
	err         error
	done        chan struct{}
}

func (h *terminalHandoff) SessionEnded(_ context.Context, ev simulation.EndedEvent) {
	defer close(h.done)
	if ev.Reason == simulation.ReasonInvalidConfig {
		h.err = simulation.ErrInvalidConfig
	}
	if h.summaryFile == "" {
		return
	}
	data, err := json.MarshalIndent(service.EndedPayload(h.id, 0, ev), "", "  ")
	if err != nil {
		h.err = fmt.Errorf("encode summary: %w", err)
		return
	}
	if err := os.WriteFile(h.summaryFile, data, 0o644); err != nil {
		h.err = fmt.Errorf("write summary: %w", err)
	}
}

func (h *terminalHandoff) SessionAborted(_ context.Context, sessionID string, err error) {
	defer close(h.done)
	h.log.Error().Err(err).Str("session_id", sessionID).Msg("Session aborted")
	h.err = fmt.Errorf("capture: %w", err)
}
