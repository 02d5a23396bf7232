package registration

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var fieldValidate = validator.New()

// ValidationResult is the outcome of checking one raw answer.
type ValidationResult struct {
	Valid  bool
	Key    string // validation message key, empty when valid
	Params Params
}

// Message renders the failure message; "" when valid.
func (r ValidationResult) Message() string {
	if r.Valid {
		return ""
	}
	return defaultMessages.Render(CatValidation, r.Key, r.Params)
}

var valid = ValidationResult{Valid: true}

func invalid(key string, params Params) ValidationResult {
	return ValidationResult{Key: key, Params: params}
}

// Validate checks a raw answer against its question.
func Validate(q Question, raw string) ValidationResult {
	_, res := Parse(q, raw)
	return res
}

// Parse validates a raw answer and converts it to a typed Answer.
// An empty answer to an optional question is valid and yields an empty Answer.
func Parse(q Question, raw string) (Answer, ValidationResult) {
	text := strings.TrimSpace(raw)
	if text == "" {
		if q.Required {
			return Answer{}, invalid(KeyRequired, nil)
		}
		return Answer{Kind: q.Kind}, valid
	}

	switch q.Kind {
	case KindText:
		return parseText(q, text)
	case KindEmail:
		return parseEmail(text)
	case KindNumber:
		return parseNumber(q, text)
	case KindBoolean:
		return parseBoolean(text)
	case KindSingleSelect:
		return parseSingleSelect(q, text)
	case KindMultiSelect:
		return parseMultiSelect(q, text)
	case KindRanked:
		return parseRanked(q, text)
	}
	return Answer{}, invalid(KeyGenericDetailed, Params{"message": "unsupported question kind"})
}

func parseText(q Question, text string) (Answer, ValidationResult) {
	if q.MaxLength > 0 && len([]rune(text)) > q.MaxLength {
		return Answer{}, invalid(KeyTooLong, Params{"max": strconv.Itoa(q.MaxLength)})
	}
	return TextAnswer(text), valid
}

func parseEmail(text string) (Answer, ValidationResult) {
	if err := fieldValidate.Var(text, "email"); err != nil {
		return Answer{}, invalid(KeyInvalidEmail, nil)
	}
	return EmailAnswer(text), valid
}

func parseNumber(q Question, text string) (Answer, ValidationResult) {
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Answer{}, invalid(KeyInvalidNumber, nil)
	}
	if q.Min != nil && (f < *q.Min || f > *q.Max) {
		return Answer{}, invalid(KeyOutOfRange, Params{"min": formatNumber(*q.Min), "max": formatNumber(*q.Max)})
	}
	return NumberAnswer(f), valid
}

func parseBool(text string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "yes", "y", "true", "1":
		return true, true
	case "no", "n", "false", "0":
		return false, true
	}
	return false, false
}

func parseBoolean(text string) (Answer, ValidationResult) {
	b, ok := parseBool(text)
	if !ok {
		return Answer{}, invalid(KeyGenericDetailed, Params{"message": "answer yes or no"})
	}
	return BoolAnswer(b), valid
}

func optionList(q Question) string {
	parts := make([]string, 0, len(q.Options))
	for i, o := range q.Options {
		parts = append(parts, strconv.Itoa(i+1)+") "+o)
	}
	return strings.Join(parts, ", ")
}

func parseSingleSelect(q Question, text string) (Answer, ValidationResult) {
	for i, o := range q.Options {
		if strings.EqualFold(o, text) {
			return SingleChoiceAnswer(i), valid
		}
	}
	if n, err := strconv.Atoi(text); err == nil && n >= 1 && n <= len(q.Options) {
		return SingleChoiceAnswer(n - 1), valid
	}
	return Answer{}, invalid(KeyInvalidOption, Params{"options": optionList(q)})
}

// tokens splits on commas and whitespace.
func tokens(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

func parseMultiSelect(q Question, text string) (Answer, ValidationResult) {
	toks := tokens(text)
	if len(toks) == 0 {
		return Answer{}, invalid(KeyInvalidMultiSelectFormat, nil)
	}
	seen := make(map[int]bool, len(toks))
	choices := make([]int, 0, len(toks))
	for _, tok := range toks {
		n, err := strconv.Atoi(tok)
		if err != nil || seen[n] {
			return Answer{}, invalid(KeyInvalidMultiSelectFormat, nil)
		}
		if n < 1 || n > len(q.Options) {
			return Answer{}, invalid(KeyInvalidOptionNumber, Params{"max": strconv.Itoa(len(q.Options))})
		}
		seen[n] = true
		choices = append(choices, n-1)
	}
	return MultiChoiceAnswer(choices...), valid
}

func parseRankToken(tok string) (opt, rank int, ok bool) {
	parts := strings.Split(tok, ":")
	if len(parts) != 2 {
		return 0, 0, false
	}
	opt, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	rank, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return opt, rank, true
}

func parseRanked(q Question, text string) (Answer, ValidationResult) {
	toks := tokens(text)
	if len(toks) == 0 {
		return Answer{}, invalid(KeyRankingFormatError, nil)
	}

	limit := q.rankLimit()
	seenOpt := make(map[int]bool, len(toks))
	seenRank := make(map[int]bool, len(toks))
	ranking := make([]Ranked, 0, len(toks))
	maxRank := 0
	for _, tok := range toks {
		opt, rank, ok := parseRankToken(tok)
		if !ok {
			return Answer{}, invalid(KeyRankingFormatError, nil)
		}
		if opt < 1 || opt > len(q.Options) {
			return Answer{}, invalid(KeyRankingInvalidOptionNumber, Params{"max": strconv.Itoa(len(q.Options))})
		}
		if rank < 1 || rank > limit {
			return Answer{}, invalid(KeyRankingInvalidRankNumber, Params{"max": strconv.Itoa(limit)})
		}
		if seenOpt[opt] {
			return Answer{}, invalid(KeyRankingUniqueOptionError, nil)
		}
		if seenRank[rank] {
			return Answer{}, invalid(KeyRankingUniqueRankError, nil)
		}
		seenOpt[opt], seenRank[rank] = true, true
		if rank > maxRank {
			maxRank = rank
		}
		ranking = append(ranking, Ranked{Option: opt - 1, Rank: rank})
	}

	need := q.minRanked()
	strict := q.Ranking != nil && q.Ranking.Strict
	if strict && len(ranking) != need {
		return Answer{}, invalid(KeyRankingStrictCountError, Params{"min": strconv.Itoa(need)})
	}
	if len(ranking) < need {
		return Answer{}, invalid(KeyRankingMinError, Params{"min": strconv.Itoa(need)})
	}
	// unique ranks within 1..count are exactly 1..count
	if maxRank > len(ranking) {
		return Answer{}, invalid(KeyRankingInvalidRankNumber, Params{"max": strconv.Itoa(len(ranking))})
	}
	return RankedAnswer(ranking...), valid
}
