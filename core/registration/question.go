package registration

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	appfs "github.com/philosothon/philosothon/fs"
)

const defaultCatalogPath = "catalog/questions.yaml"

// Kind is the input kind of a question; it decides how raw answers are parsed.
type Kind string

const (
	KindText         Kind = "text"
	KindEmail        Kind = "email"
	KindNumber       Kind = "number"
	KindBoolean      Kind = "boolean"
	KindSingleSelect Kind = "single-select"
	KindMultiSelect  Kind = "multi-select"
	KindRanked       Kind = "ranked-choice"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindText, KindEmail, KindNumber, KindBoolean, KindSingleSelect, KindMultiSelect, KindRanked:
		return true
	}
	return false
}

func (k Kind) hasOptions() bool {
	return k == KindSingleSelect || k == KindMultiSelect || k == KindRanked
}

type (
	// Dependency makes a question visible only when another question's answer equals a value.
	Dependency struct {
		QuestionID string `json:"question_id" yaml:"questionId"`
		Equals     string `json:"equals" yaml:"equals"`
	}

	// RankingRule configures a ranked-choice question.
	// Strict questions need exactly Min ranked options, others at least Min.
	RankingRule struct {
		Min    int  `json:"min" yaml:"min"`
		Strict bool `json:"strict" yaml:"strict"`
	}

	Question struct {
		ID        string       `json:"id" yaml:"id"`
		Label     string       `json:"label" yaml:"label"`
		Kind      Kind         `json:"kind" yaml:"kind"`
		Required  bool         `json:"required" yaml:"required"`
		Options   []string     `json:"options,omitempty" yaml:"options"`
		DependsOn *Dependency  `json:"depends_on,omitempty" yaml:"dependsOn"`
		Min       *float64     `json:"min,omitempty" yaml:"min"`
		Max       *float64     `json:"max,omitempty" yaml:"max"`
		MaxLength int          `json:"max_length,omitempty" yaml:"maxLength"`
		Ranking   *RankingRule `json:"ranking,omitempty" yaml:"ranking"`
		Hint      string       `json:"hint,omitempty" yaml:"hint"`
	}
)

// rankLimit is the highest rank a ranked-choice answer may use.
func (q Question) rankLimit() int {
	if q.Ranking != nil && q.Ranking.Strict {
		return q.Ranking.Min
	}
	return len(q.Options)
}

func (q Question) minRanked() int {
	if q.Ranking == nil {
		return 1
	}
	return q.Ranking.Min
}

// Catalog is the ordered, immutable list of registration questions.
type Catalog struct {
	questions []Question
	index     map[string]int
}

// NewCatalog checks the question definitions and builds a Catalog.
// A question may only depend on a question asked before it.
func NewCatalog(questions []Question) (*Catalog, error) {
	if len(questions) == 0 {
		return nil, errors.New("catalog has no questions")
	}
	c := &Catalog{
		questions: make([]Question, 0, len(questions)),
		index:     make(map[string]int, len(questions)),
	}
	for i, q := range questions {
		q.ID = strings.TrimSpace(q.ID)
		if err := c.check(i, q); err != nil {
			return nil, errors.Wrapf(err, "question %d (%q)", i+1, q.ID)
		}
		if q.Kind == KindRanked && q.Ranking == nil {
			q.Ranking = &RankingRule{Min: 1}
		}
		c.index[q.ID] = i
		c.questions = append(c.questions, q)
	}
	return c, nil
}

func (c *Catalog) check(i int, q Question) error {
	switch {
	case q.ID == "":
		return errors.New("id is required")
	case strings.TrimSpace(q.Label) == "":
		return errors.New("label is required")
	case !q.Kind.IsValid():
		return fmt.Errorf("unknown kind %q", q.Kind)
	}
	if _, dup := c.index[q.ID]; dup {
		return errors.New("duplicate id")
	}

	if q.Kind.hasOptions() && len(q.Options) == 0 {
		return errors.New("options are required")
	}
	if !q.Kind.hasOptions() && len(q.Options) > 0 {
		return errors.New("options are only allowed on select and ranked-choice questions")
	}
	if (q.Min == nil) != (q.Max == nil) {
		return errors.New("min and max must be set together")
	}
	if q.Min != nil && *q.Min > *q.Max {
		return errors.New("min is greater than max")
	}
	if q.Ranking != nil {
		if q.Kind != KindRanked {
			return errors.New("ranking is only allowed on ranked-choice questions")
		}
		if q.Ranking.Min < 1 || q.Ranking.Min > len(q.Options) {
			return fmt.Errorf("ranking min must be between 1 and %d", len(q.Options))
		}
	}
	if dep := q.DependsOn; dep != nil {
		j, ok := c.index[dep.QuestionID]
		if !ok || j >= i {
			return fmt.Errorf("depends on unknown or later question %q", dep.QuestionID)
		}
		if strings.TrimSpace(dep.Equals) == "" {
			return errors.New("dependency value is required")
		}
	}
	return nil
}

// LoadCatalog reads a YAML list of questions.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var questions []Question
	if err := yaml.NewDecoder(r).Decode(&questions); err != nil {
		return nil, errors.Wrap(err, "decoding catalog")
	}
	return NewCatalog(questions)
}

// DefaultCatalog loads the embedded Philosothon questions.
func DefaultCatalog() (*Catalog, error) {
	f, err := appfs.FS.Open(defaultCatalogPath)
	if err != nil {
		return nil, errors.Wrap(err, "opening default catalog")
	}
	defer f.Close()
	return LoadCatalog(f)
}

func (c *Catalog) Len() int { return len(c.questions) }

func (c *Catalog) At(i int) (Question, bool) {
	if i < 0 || i >= len(c.questions) {
		return Question{}, false
	}
	return c.questions[i], true
}

func (c *Catalog) Question(id string) (Question, bool) {
	i, ok := c.index[id]
	if !ok {
		return Question{}, false
	}
	return c.questions[i], true
}

// Questions returns a copy of the ordered questions.
func (c *Catalog) Questions() []Question {
	out := make([]Question, len(c.questions))
	copy(out, c.questions)
	return out
}

// IsVisible reports whether question i should be asked given the answers so far.
func (c *Catalog) IsVisible(i int, answers AnswerSet) bool {
	q, ok := c.At(i)
	if !ok {
		return false
	}
	if q.DependsOn == nil {
		return true
	}
	j := c.index[q.DependsOn.QuestionID]
	if !c.IsVisible(j, answers) {
		return false
	}
	ans, ok := answers[q.DependsOn.QuestionID]
	if !ok {
		return false
	}
	return ans.matches(c.questions[j], q.DependsOn.Equals)
}

// NextVisible returns the first visible index >= from, or Len() when there is none.
func (c *Catalog) NextVisible(from int, answers AnswerSet) int {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(c.questions); i++ {
		if c.IsVisible(i, answers) {
			return i
		}
	}
	return len(c.questions)
}

// PrevVisible returns the last visible index <= from, or -1 when there is none.
func (c *Catalog) PrevVisible(from int, answers AnswerSet) int {
	if from >= len(c.questions) {
		from = len(c.questions) - 1
	}
	for i := from; i >= 0; i-- {
		if c.IsVisible(i, answers) {
			return i
		}
	}
	return -1
}

// Visible returns the indices of the visible questions, in order.
func (c *Catalog) Visible(answers AnswerSet) []int {
	out := make([]int, 0, len(c.questions))
	for i := range c.questions {
		if c.IsVisible(i, answers) {
			out = append(out, i)
		}
	}
	return out
}

// FirstUnanswered returns the first visible question without an answer, or Len().
func (c *Catalog) FirstUnanswered(answers AnswerSet) int {
	for _, i := range c.Visible(answers) {
		if _, ok := answers[c.questions[i].ID]; !ok {
			return i
		}
	}
	return len(c.questions)
}

// Missing returns the visible required questions that have no answer.
func (c *Catalog) Missing(answers AnswerSet) []Question {
	var missing []Question
	for _, i := range c.Visible(answers) {
		q := c.questions[i]
		if !q.Required {
			continue
		}
		if ans, ok := answers[q.ID]; !ok || ans.IsEmpty() {
			missing = append(missing, q)
		}
	}
	return missing
}

// Prune drops the answers of questions that are not visible.
func (c *Catalog) Prune(answers AnswerSet) AnswerSet {
	out := make(AnswerSet, len(answers))
	for _, i := range c.Visible(answers) {
		id := c.questions[i].ID
		if ans, ok := answers[id]; ok {
			out[id] = ans.clone()
		}
	}
	return out
}
