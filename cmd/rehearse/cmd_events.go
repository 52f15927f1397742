package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/felixgeelhaar/rehearse/internal/config"
	"github.com/felixgeelhaar/rehearse/internal/interview"
	"github.com/felixgeelhaar/rehearse/internal/queue"
)

// cmdEvents tails interview events from RabbitMQ until interrupted
func cmdEvents(args []string) error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	name := fs.String("queue", "turns", "turns or evaluations")
	asJSON := fs.Bool("json", false, "print raw events")
	fs.StringVar(&cfg.Queue.URL, "url", cfg.Queue.URL, "RabbitMQ URL")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cc := queue.DefaultConsumerConfig()
	switch *name {
	case "turns":
		cc.Queue = queue.TurnQueueName
	case "evaluations":
		cc.Queue = queue.EvaluationQueueName
	default:
		return fmt.Errorf("unknown queue: %s (valid: turns, evaluations)", *name)
	}
	// one worker keeps output ordered
	cc.Workers = 1

	conn, err := queue.NewConnection(cfg.Queue.URL)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	consumer := queue.NewConsumer(conn, eventPrinter(os.Stdout, *asJSON), cc)
	if err := consumer.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Listening on %s (Ctrl-C to stop)\n", cc.Queue)

	<-ctx.Done()
	consumer.Stop()
	return nil
}

// eventPrinter writes one line per event
func eventPrinter(w io.Writer, asJSON bool) queue.EventHandler {
	var mu sync.Mutex
	return func(_ context.Context, e interview.Event) error {
		mu.Lock()
		defer mu.Unlock()

		if asJSON {
			return json.NewEncoder(w).Encode(e)
		}
		_, err := fmt.Fprintln(w, formatEvent(e))
		return err
	}
}

func formatEvent(e interview.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-20s session=%s stage=%s",
		e.OccurredAt.Format("15:04:05"), e.Type, e.SessionID, e.Stage)
	if e.QuestionID != "" {
		fmt.Fprintf(&b, " question=%s", e.QuestionID)
	}
	if e.Difficulty != "" {
		fmt.Fprintf(&b, " difficulty=%s", e.Difficulty)
	}
	if e.Decision != nil {
		fmt.Fprintf(&b, " followup=%t", e.Decision.Continue)
	}
	if e.HintLevel > 0 {
		fmt.Fprintf(&b, " hint=%d", e.HintLevel)
	}
	if len(e.Signals) > 0 {
		var on []string
		for name, set := range e.Signals {
			if set {
				on = append(on, name)
			}
		}
		sort.Strings(on)
		if len(on) > 0 {
			fmt.Fprintf(&b, " signals=%s", strings.Join(on, ","))
		}
	}
	if e.Evaluation != nil {
		fmt.Fprintf(&b, " overall=%d hire=%s", e.Evaluation.OverallScore, e.Evaluation.HireSignal)
	}
	if e.Degraded {
		b.WriteString(" degraded")
	}
	return b.String()
}
