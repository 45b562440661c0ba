package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stemsi/quizhub-backend/internal/client"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/quizsession"
)

var (
	titleColor = color.New(color.FgCyan, color.Bold)
	warnColor  = color.New(color.FgYellow, color.Bold)
	errColor   = color.New(color.FgRed)
	okColor    = color.New(color.FgGreen, color.Bold)
	dimColor   = color.New(color.Faint)
)

const takeHelp = "commands: <n> select option n | n next | p previous | s submit | r resume | h help"

// offsetClock follows the server clock so the countdown does not depend on local time.
type offsetClock struct {
	offset time.Duration
}

func (c offsetClock) Now() time.Time { return time.Now().Add(c.offset) }

func newTakeCmd() *cobra.Command {
	var (
		server   string
		roll     string
		quizArg  string
		freeNav  bool
		password string
	)

	cmd := &cobra.Command{
		Use:   "take",
		Short: "Take a quiz in the terminal",
		Long: "Take a quiz in the terminal. Interrupting with Ctrl-C counts as leaving the quiz: " +
			"the first time pauses with a warning, the second submits.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			quizID, err := uuid.Parse(quizArg)
			if err != nil {
				return fmt.Errorf("invalid quiz id: %w", err)
			}
			out := cmd.OutOrStdout()
			if password == "" {
				if password, err = readPassword(out, "Password"); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			anon := client.New(server, nil)
			sess, err := anon.Login(ctx, roll, password)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			c := anon.WithSession(sess)

			view, err := c.QuizForStudent(ctx, quizID)
			if err != nil {
				return fmt.Errorf("load quiz: %w", err)
			}

			opts := []quizsession.Option{
				quizsession.WithClock(offsetClock{offset: time.Until(view.ServerTime)}),
				quizsession.WithReporter(c),
			}
			if freeNav {
				opts = append(opts, quizsession.WithPolicy(quizsession.FreeNavigation))
			}
			qs := quizsession.New(view.Quiz, c, opts...)
			if err := qs.Start(); err != nil {
				return err
			}

			interrupts := make(chan os.Signal, 1)
			signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(interrupts)

			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()

			return runTake(ctx, qs, cmd.InOrStdin(), out, ticker.C, interrupts)
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "API base URL")
	cmd.Flags().StringVar(&roll, "roll", "", "roll number to log in with")
	cmd.Flags().StringVar(&quizArg, "quiz", "", "quiz id")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when empty)")
	cmd.Flags().BoolVar(&freeNav, "free-nav", false, "allow advancing past unanswered questions")
	_ = cmd.MarkFlagRequired("roll")
	_ = cmd.MarkFlagRequired("quiz")
	return cmd
}

// runTake drives qs until it reaches a terminal state or input ends. Each tick advances
// the countdown and each interrupt counts as a violation.
func runTake(
	ctx context.Context,
	qs *quizsession.Session,
	in io.Reader,
	out io.Writer,
	ticks <-chan time.Time,
	interrupts <-chan os.Signal,
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := scanLines(ctx, in)

	render(out, qs)
	fmt.Fprintln(out, dimColor.Sprint(takeHelp))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticks:
			submitted, err := qs.Tick(ctx)
			if submitted {
				fmt.Fprintln(out, warnColor.Sprint("Time is up."))
				if err != nil {
					errColor.Fprintf(out, "%v\n", err)
				}
				if done := finish(out, qs); done {
					return nil
				}
				continue
			}
			if rem := qs.Snapshot().Remaining; rem > 0 && rem%time.Minute == 0 {
				dimColor.Fprintf(out, "%s left\n", rem)
			}

		case <-interrupts:
			action, err := qs.Violation(ctx, model.ViolationFullscreenExit)
			if err != nil && !errors.Is(err, quizsession.ErrInvalidTransition) {
				errColor.Fprintf(out, "%v\n", err)
			}
			switch action {
			case model.ViolationActionWarn:
				warnColor.Fprintln(out, "Warning: leaving the quiz again will submit it. Type r to resume.")
			case model.ViolationActionSubmit:
				warnColor.Fprintln(out, "Quiz left twice. Submitting.")
			}
			if finish(out, qs) {
				return nil
			}

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			msg, err := handleCommand(ctx, qs, line)
			if err != nil {
				errColor.Fprintf(out, "%v\n", err)
			}
			if msg != "" {
				fmt.Fprintln(out, msg)
			}
			if finish(out, qs) {
				return nil
			}
			if err == nil && msg == "" {
				render(out, qs)
			}
		}
	}
}

// scanLines feeds lines of in to the returned channel until in ends or ctx is done,
// then closes it.
func scanLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

// handleCommand applies one line of user input. A non-empty message is informational.
func handleCommand(ctx context.Context, qs *quizsession.Session, line string) (string, error) {
	line = strings.TrimSpace(strings.ToLower(line))
	switch line {
	case "":
		return "", nil
	case "h", "help", "?":
		return takeHelp, nil
	case "n", "next":
		return "", qs.Advance()
	case "p", "prev":
		return "", qs.Retreat()
	case "r", "resume":
		return "", qs.Resume()
	case "s", "submit":
		_, err := qs.Submit(ctx)
		return "", err
	}

	n, err := strconv.Atoi(line)
	if err != nil {
		return "", fmt.Errorf("unknown command %q", line)
	}
	snap := qs.Snapshot()
	if snap.State == quizsession.FullscreenBlocked {
		return "", errors.New("quiz is paused, type r to resume")
	}
	return "", qs.Select(snap.Cursor, n-1)
}

// finish prints the outcome once qs is terminal and reports whether it is.
func finish(out io.Writer, qs *quizsession.Session) bool {
	snap := qs.Snapshot()
	switch snap.State {
	case quizsession.Completed:
		if r := snap.Result; r != nil {
			okColor.Fprintf(out, "Submitted. Score: %d/%d\n", r.Score, r.MaxScore)
		} else {
			okColor.Fprintln(out, "Submitted.")
		}
		return true
	case quizsession.Rejected:
		errColor.Fprintln(out, "This quiz was already submitted.")
		return true
	}
	return false
}

func render(out io.Writer, qs *quizsession.Session) {
	snap := qs.Snapshot()
	quiz := qs.Quiz()
	if snap.State == quizsession.FullscreenBlocked {
		warnColor.Fprintln(out, "Paused. Type r to resume.")
		return
	}
	if len(quiz.Questions) == 0 {
		return
	}

	q := quiz.Questions[snap.Cursor]
	fmt.Fprintln(out)
	titleColor.Fprintf(out, "%s  [%d/%d]  %s left\n", quiz.Title, snap.Cursor+1, len(quiz.Questions), snap.Remaining)
	fmt.Fprintln(out, q.QuestionText)
	if q.ImageURL != "" {
		dimColor.Fprintf(out, "(image: %s)\n", q.ImageURL)
	}
	for i, opt := range q.Options {
		marker := " "
		if a := snap.Answers[snap.Cursor]; a != nil && *a == i {
			marker = okColor.Sprint("*")
		}
		fmt.Fprintf(out, " %s %d) %s\n", marker, i+1, opt)
	}
}
