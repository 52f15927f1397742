package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/felixgeelhaar/rehearse/internal/config"
	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/questionbank"
)

// cmdQuestions browses and validates question packs
func cmdQuestions(args []string) error {
	if len(args) < 1 {
		fmt.Println(`Question bank commands:

  rehearse questions list [-track t] [-category c] [-dir d]   List questions
  rehearse questions check <dir>                              Validate packs in a directory`)
		return nil
	}

	switch args[0] {
	case "list":
		return cmdQuestionsList(args[1:])
	case "check":
		if len(args) < 2 {
			return fmt.Errorf("pack directory required")
		}
		return cmdQuestionsCheck(args[1], os.Stdout)
	default:
		return fmt.Errorf("unknown questions command: %s", args[0])
	}
}

func cmdQuestionsList(args []string) error {
	dir := ""
	if cfg, err := config.LoadLocalConfig(); err == nil {
		dir = cfg.Interview.QuestionPacks
	}

	fs := flag.NewFlagSet("questions list", flag.ContinueOnError)
	track := fs.String("track", "", "only this track")
	category := fs.String("category", "", "only this category")
	fs.StringVar(&dir, "dir", dir, "pack directory (default: built-in packs)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	loader := questionbank.NewBuiltinLoader()
	if dir != "" {
		loader = questionbank.NewLoader(dir)
	}
	questions, err := loader.LoadQuestions()
	if err != nil {
		return err
	}

	return listQuestions(os.Stdout, filterQuestions(questions, *track, *category))
}

func filterQuestions(questions []domain.Question, track, category string) []domain.Question {
	var out []domain.Question
	for _, q := range questions {
		if track != "" && !strings.EqualFold(q.Track, track) {
			continue
		}
		if category != "" && !strings.EqualFold(string(q.Category), category) {
			continue
		}
		out = append(out, q)
	}
	return out
}

func listQuestions(w io.Writer, questions []domain.Question) error {
	sort.Slice(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTRACK\tDIFFICULTY\tCATEGORY\tTAGS")
	byDifficulty := make(map[domain.Difficulty]int)
	for _, q := range questions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", q.ID, q.Track, q.Difficulty, q.Category, strings.Join(q.Tags, ","))
		byDifficulty[q.Difficulty]++
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%d questions (easy %d, medium %d, hard %d)\n", len(questions),
		byDifficulty[domain.DifficultyEasy], byDifficulty[domain.DifficultyMedium], byDifficulty[domain.DifficultyHard])
	return nil
}

// cmdQuestionsCheck loads every pack in dir and reports the first problem
func cmdQuestionsCheck(dir string, w io.Writer) error {
	loader := questionbank.NewLoader(dir)
	packs, err := loader.LoadAllPacks()
	if err != nil {
		return err
	}
	// duplicate ids only show up across packs
	if _, err := loader.LoadQuestions(); err != nil {
		return err
	}

	for _, p := range packs {
		fmt.Fprintf(w, "✓ %s (%d questions)\n", p.ID, len(p.Questions))
	}
	fmt.Fprintf(w, "%d packs OK\n", len(packs))
	return nil
}
