package registration

import (
	"sort"
	"strconv"
	"strings"
)

// Ranked is one option/rank pair of a ranked-choice answer; Option is 0-based.
type Ranked struct {
	Option int `json:"option"`
	Rank   int `json:"rank"`
}

// Answer holds a parsed answer. Kind tells which field is set:
//   - text, email: Text
//   - number: Number
//   - boolean: Bool
//   - single-select, multi-select: Choices (0-based option indices, ascending)
//   - ranked-choice: Ranking (by ascending rank)
//
// An Answer with no value set is an explicitly skipped optional question.
type Answer struct {
	Kind    Kind     `json:"kind"`
	Text    string   `json:"text,omitempty"`
	Number  *float64 `json:"number,omitempty"`
	Bool    *bool    `json:"bool,omitempty"`
	Choices []int    `json:"choices,omitempty"`
	Ranking []Ranked `json:"ranking,omitempty"`
}

// AnswerSet maps question IDs to answers.
type AnswerSet map[string]Answer

func TextAnswer(s string) Answer      { return Answer{Kind: KindText, Text: s} }
func EmailAnswer(s string) Answer     { return Answer{Kind: KindEmail, Text: s} }
func NumberAnswer(f float64) Answer   { return Answer{Kind: KindNumber, Number: &f} }
func BoolAnswer(b bool) Answer        { return Answer{Kind: KindBoolean, Bool: &b} }
func SingleChoiceAnswer(i int) Answer { return Answer{Kind: KindSingleSelect, Choices: []int{i}} }

func MultiChoiceAnswer(choices ...int) Answer {
	if len(choices) == 0 {
		return Answer{Kind: KindMultiSelect}
	}
	cs := append([]int(nil), choices...)
	sort.Ints(cs)
	return Answer{Kind: KindMultiSelect, Choices: cs}
}

func RankedAnswer(ranking ...Ranked) Answer {
	if len(ranking) == 0 {
		return Answer{Kind: KindRanked}
	}
	rs := append([]Ranked(nil), ranking...)
	sort.Slice(rs, func(i, j int) bool { return rs[i].Rank < rs[j].Rank })
	return Answer{Kind: KindRanked, Ranking: rs}
}

func (a Answer) IsEmpty() bool {
	return a.Text == "" && a.Number == nil && a.Bool == nil && len(a.Choices) == 0 && len(a.Ranking) == 0
}

func (a Answer) clone() Answer {
	c := a
	if a.Number != nil {
		n := *a.Number
		c.Number = &n
	}
	if a.Bool != nil {
		b := *a.Bool
		c.Bool = &b
	}
	if a.Choices != nil {
		c.Choices = append([]int(nil), a.Choices...)
	}
	if a.Ranking != nil {
		c.Ranking = append([]Ranked(nil), a.Ranking...)
	}
	return c
}

func option(q Question, i int) string {
	if i < 0 || i >= len(q.Options) {
		return "#" + strconv.Itoa(i+1)
	}
	return q.Options[i]
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Format renders the answer for display; empty answers render as "".
func (a Answer) Format(q Question) string {
	switch a.Kind {
	case KindText, KindEmail:
		return a.Text
	case KindNumber:
		if a.Number == nil {
			return ""
		}
		return formatNumber(*a.Number)
	case KindBoolean:
		if a.Bool == nil {
			return ""
		}
		if *a.Bool {
			return "Yes"
		}
		return "No"
	case KindSingleSelect, KindMultiSelect:
		labels := make([]string, 0, len(a.Choices))
		for _, c := range a.Choices {
			labels = append(labels, option(q, c))
		}
		return strings.Join(labels, ", ")
	case KindRanked:
		parts := make([]string, 0, len(a.Ranking))
		for _, r := range a.Ranking {
			parts = append(parts, strconv.Itoa(r.Rank)+". "+option(q, r.Option))
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

// matches reports whether the answer satisfies a dependency value.
// Multi-select answers match when any selected option does.
func (a Answer) matches(q Question, want string) bool {
	want = strings.TrimSpace(want)
	switch a.Kind {
	case KindBoolean:
		if a.Bool == nil {
			return false
		}
		b, ok := parseBool(want)
		return ok && b == *a.Bool
	case KindNumber:
		if a.Number == nil {
			return false
		}
		f, err := strconv.ParseFloat(want, 64)
		return err == nil && f == *a.Number
	case KindSingleSelect, KindMultiSelect:
		for _, c := range a.Choices {
			if strings.EqualFold(option(q, c), want) {
				return true
			}
		}
		return false
	case KindRanked:
		for _, r := range a.Ranking {
			if strings.EqualFold(option(q, r.Option), want) {
				return true
			}
		}
		return false
	}
	return strings.EqualFold(a.Text, want)
}

// Clone returns a deep copy.
func (s AnswerSet) Clone() AnswerSet {
	if s == nil {
		return nil
	}
	out := make(AnswerSet, len(s))
	for k, v := range s {
		out[k] = v.clone()
	}
	return out
}
