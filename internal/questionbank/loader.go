// Package questionbank loads interview questions from YAML packs.
package questionbank

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/felixgeelhaar/rehearse/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed packs/*.yaml
var builtin embed.FS

// ErrDuplicateQuestion is returned when two packs define the same id
var ErrDuplicateQuestion = errors.New("duplicate question id")

// PackFile represents the YAML structure of a question pack
type PackFile struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	Version     string         `yaml:"version"`
	Description string         `yaml:"description"`
	Track       string         `yaml:"track"`
	Company     string         `yaml:"company"`
	Questions   []QuestionFile `yaml:"questions"`
}

// QuestionFile represents one question entry in a pack
type QuestionFile struct {
	Slug            string   `yaml:"slug"`
	Track           string   `yaml:"track"`
	Company         string   `yaml:"company"`
	Difficulty      string   `yaml:"difficulty"`
	Category        string   `yaml:"category"`
	Prompt          string   `yaml:"prompt"`
	Tags            []string `yaml:"tags"`
	ExpectedTopics  []string `yaml:"expected_topics"`
	EvaluationFocus []string `yaml:"evaluation_focus"`
}

// Pack is a loaded question pack
type Pack struct {
	ID          string
	Name        string
	Version     string
	Description string
	Questions   []domain.Question
}

// Loader reads packs from a filesystem
type Loader struct {
	fsys fs.FS
	root string
}

// NewLoader creates a loader over a directory on disk
func NewLoader(basePath string) *Loader {
	return &Loader{fsys: os.DirFS(basePath), root: "."}
}

// NewBuiltinLoader creates a loader over the packs compiled into the binary
func NewBuiltinLoader() *Loader {
	return &Loader{fsys: builtin, root: "packs"}
}

// LoadPack loads a single pack by file name without extension
func (l *Loader) LoadPack(packID string) (*Pack, error) {
	name := path.Join(l.root, packID+".yaml")

	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read pack file: %w", err)
	}

	var pf PackFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse pack file: %w", err)
	}
	if pf.ID == "" {
		pf.ID = packID
	}

	pack := &Pack{
		ID:          pf.ID,
		Name:        pf.Name,
		Version:     pf.Version,
		Description: pf.Description,
		Questions:   make([]domain.Question, 0, len(pf.Questions)),
	}

	for i, qf := range pf.Questions {
		q, err := qf.toQuestion(&pf)
		if err != nil {
			return nil, fmt.Errorf("pack %s question %d: %w", pf.ID, i, err)
		}
		pack.Questions = append(pack.Questions, q)
	}

	return pack, nil
}

// LoadAllPacks loads every *.yaml pack in sorted file order
func (l *Loader) LoadAllPacks() ([]*Pack, error) {
	entries, err := fs.ReadDir(l.fsys, l.root)
	if err != nil {
		return nil, fmt.Errorf("read packs directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".yaml" {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)

	packs := make([]*Pack, 0, len(names))
	for _, name := range names {
		pack, err := l.LoadPack(name)
		if err != nil {
			return nil, fmt.Errorf("load pack %s: %w", name, err)
		}
		packs = append(packs, pack)
	}
	return packs, nil
}

// LoadQuestions flattens all packs into one pool, rejecting duplicate ids
func (l *Loader) LoadQuestions() ([]domain.Question, error) {
	packs, err := l.LoadAllPacks()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]string)
	var out []domain.Question
	for _, p := range packs {
		for _, q := range p.Questions {
			if other, dup := seen[q.ID]; dup {
				return nil, fmt.Errorf("%w: %s in %s and %s", ErrDuplicateQuestion, q.ID, other, p.ID)
			}
			seen[q.ID] = p.ID
			out = append(out, q)
		}
	}
	return out, nil
}

func (qf QuestionFile) toQuestion(pf *PackFile) (domain.Question, error) {
	track := qf.Track
	if track == "" {
		track = pf.Track
	}
	company := qf.Company
	if company == "" {
		company = pf.Company
	}

	q := domain.Question{
		ID:              pf.ID + "/" + qf.Slug,
		Track:           track,
		Company:         company,
		Difficulty:      domain.Difficulty(strings.ToLower(strings.TrimSpace(qf.Difficulty))),
		Category:        domain.Category(strings.ToLower(strings.TrimSpace(qf.Category))),
		Prompt:          strings.TrimSpace(qf.Prompt),
		Tags:            qf.Tags,
		ExpectedTopics:  qf.ExpectedTopics,
		EvaluationFocus: qf.EvaluationFocus,
	}
	if qf.Slug == "" {
		q.ID = ""
	}
	if c, err := domain.ParseCategory(string(q.Category)); err == nil {
		q.Category = c
	}
	if err := q.Validate(); err != nil {
		return domain.Question{}, err
	}
	return q, nil
}
