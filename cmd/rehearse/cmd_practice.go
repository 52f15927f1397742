package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/felixgeelhaar/rehearse/internal/app"
	"github.com/felixgeelhaar/rehearse/internal/config"
	"github.com/felixgeelhaar/rehearse/internal/daemon"
	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/interview"
	"github.com/felixgeelhaar/rehearse/internal/session"
)

// practiceEngine is what the terminal loop drives
type practiceEngine interface {
	Start(ctx context.Context, userID string, cfg session.Config) (*interview.Result, error)
	Answer(ctx context.Context, sessionID, text string) (*interview.Result, error)
	Finalize(ctx context.Context, sessionID string) (*interview.Result, error)
}

// cmdPractice runs an interview on stdin/stdout against the local engine
func cmdPractice(args []string) error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ic := cfg.Interview
	fs := flag.NewFlagSet("practice", flag.ContinueOnError)
	user := fs.String("user", os.Getenv("USER"), "candidate id used to avoid repeat questions")
	fs.StringVar(&ic.Track, "track", ic.Track, "question track")
	fs.StringVar(&ic.Company, "company", ic.Company, "prefer questions for this company")
	fs.StringVar(&ic.Difficulty, "difficulty", ic.Difficulty, "easy, medium or hard")
	fs.BoolVar(&ic.Adaptive, "adaptive", ic.Adaptive, "move difficulty with performance")
	fs.IntVar(&ic.MaxQuestions, "questions", ic.MaxQuestions, "number of main questions")
	fs.IntVar(&ic.MaxFollowups, "followups", ic.MaxFollowups, "follow-ups per question")
	fs.IntVar(&ic.BehavioralTarget, "behavioral", ic.BehavioralTarget, "behavioral questions to include")
	focus := fs.String("focus", "", "comma separated focus tags")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sc, err := ic.SessionDefaults()
	if err != nil {
		return err
	}
	if *focus != "" {
		sc.FocusTags = strings.Split(*focus, ",")
	}

	dir, err := config.EnsureRehearseDir()
	if err != nil {
		return err
	}
	level := daemon.ParseLogLevel(cfg.Daemon.LogLevel)
	// the terminal belongs to the conversation
	logger, logFile, err := daemon.SetupLogging(dir, "practice", level, io.Discard)
	if err != nil {
		return err
	}
	defer logFile.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Build(ctx, cfg, app.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer a.Close()

	if len(a.Registry.List()) == 0 {
		fmt.Println("⚠ No LLM provider available; the interviewer will use canned replies.")
		fmt.Println()
	}
	return runPractice(ctx, a.Controller, *user, sc, os.Stdin, os.Stdout)
}

// runPractice reads answers from in, one per blank-line terminated block.
// "/done" ends the interview early and "/quit" leaves without evaluating.
func runPractice(ctx context.Context, engine practiceEngine, userID string, cfg session.Config, in io.Reader, out io.Writer) error {
	res, err := engine.Start(ctx, userID, cfg)
	if err != nil {
		return fmt.Errorf("start interview: %w", err)
	}
	id := res.Session.ID
	fmt.Fprintf(out, "Session %s (%s, %s)\n\n", id, cfg.Track, cfg.Difficulty)
	printTurn(out, res)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	for res.Session.Stage != session.StageDone {
		text, ok := readAnswer(scanner, out)
		switch {
		case !ok || text == "/done":
			res, err = engine.Finalize(ctx, id)
		case text == "/quit":
			fmt.Fprintf(out, "Left session %s unfinished.\n", id)
			return nil
		case text == "":
			continue
		default:
			res, err = engine.Answer(ctx, id, text)
		}

		if errors.Is(err, interview.ErrSessionDone) {
			// finished elsewhere; Finalize returns the stored result
			res, err = engine.Finalize(ctx, id)
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		printTurn(out, res)
	}

	if res.Session.Evaluation != nil {
		printEvaluation(out, res.Session.Evaluation)
	}
	return scanner.Err()
}

func readAnswer(scanner *bufio.Scanner, out io.Writer) (string, bool) {
	fmt.Fprint(out, "\nyou> ")
	var lines []string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			return strings.TrimSpace(strings.Join(lines, "\n")), true
		}
		if len(lines) == 0 && strings.HasPrefix(line, "/") {
			return strings.TrimSpace(line), true
		}
		lines = append(lines, line)
	}
	if len(lines) > 0 {
		return strings.TrimSpace(strings.Join(lines, "\n")), true
	}
	return "", false
}

func printTurn(out io.Writer, res *interview.Result) {
	if res.Question != nil {
		fmt.Fprintf(out, "[question %d/%d · %s · %s]\n",
			res.Session.QuestionsAsked, res.Session.Config.MaxQuestions,
			res.Question.Category, res.Question.Difficulty)
	}
	if res.Reply != "" {
		fmt.Fprintf(out, "interviewer> %s\n", res.Reply)
	}
	if res.Degraded {
		fmt.Fprintln(out, "(assistant unavailable, fallback reply)")
	}
}

func printEvaluation(out io.Writer, eval *domain.Evaluation) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Evaluation")
	fmt.Fprintln(out, "==========")
	fmt.Fprintf(out, "Overall:     %d/100\n", eval.OverallScore)
	fmt.Fprintf(out, "Hire signal: %s\n", eval.HireSignal)
	if eval.DifficultyReached != "" {
		fmt.Fprintf(out, "Reached:     %s\n", eval.DifficultyReached)
	}

	fmt.Fprintln(out, "\nRubric")
	for _, d := range domain.Dimensions() {
		v, ok := eval.Rubric[d]
		if !ok {
			continue
		}
		fmt.Fprintf(out, "  %-22s %s %.1f\n", d, renderProgressBar(v/10, 20), v)
	}

	printList(out, "Strengths", eval.Strengths)
	printList(out, "Weaknesses", eval.Weaknesses)
	printList(out, "Next steps", eval.NextSteps)

	if eval.Narrative != "" {
		fmt.Fprintf(out, "\n%s\n", eval.Narrative)
	}
	if eval.Fallback {
		fmt.Fprintln(out, "\n(generated without the assistant)")
	}
}

func printList(out io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%s\n", title)
	for _, item := range items {
		fmt.Fprintf(out, "  - %s\n", item)
	}
}
