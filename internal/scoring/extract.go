package scoring

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spigell/rubric-evaluator/internal/rubric"
)

var (
	institutionRe = regexp.MustCompile(`[\p{L}\p{N}_]+대학교|[\p{L}\p{N}_]+대|(?:\p{Lu}[\p{L}.&'-]*\s+)+University`)
	trackScoreRe  = regexp.MustCompile(`(\p{L}+)\s*(\d+(?:\.\d+)?)`)
	integerRe     = regexp.MustCompile(`\d+`)
	monthsRe      = regexp.MustCompile(`(?i)(\d+)\s*(?:개월|months?\b)`)
)

// InstitutionName finds the first school name in text, e.g. "한국대학교" or
// "Seoul National University".
func InstitutionName(text string) (string, bool) {
	m := institutionRe.FindString(text)
	if m == "" {
		return "", false
	}
	return strings.TrimSpace(m), true
}

// TrackScore is a track label followed by a decimal score, e.g. "이공 3.8".
type TrackScore struct {
	Track string
	Value float64
}

// TrackScores returns every label/score pair in text, in order of appearance.
func TrackScores(text string) []TrackScore {
	var scores []TrackScore
	for _, m := range trackScoreRe.FindAllStringSubmatch(text, -1) {
		value, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		scores = append(scores, TrackScore{Track: m[1], Value: value})
	}
	return scores
}

// Comparison is a threshold rule such as "이공 ≥ 3.5".
type Comparison struct {
	Operator  string
	Threshold float64
}

// Holds reports whether value satisfies the comparison.
func (c Comparison) Holds(value float64) bool {
	switch c.Operator {
	case "≥", ">=":
		return value >= c.Threshold
	case "≤", "<=":
		return value <= c.Threshold
	case ">":
		return value > c.Threshold
	case "<":
		return value < c.Threshold
	default:
		return false
	}
}

// TrackComparison finds the comparison scoped to track in a criterion description.
func TrackComparison(description, track string) (Comparison, bool) {
	if track == "" {
		return Comparison{}, false
	}
	re, err := regexp.Compile(regexp.QuoteMeta(track) + `\s*(≥|≤|>=|<=|>|<)\s*(\d+(?:\.\d+)?)`)
	if err != nil {
		return Comparison{}, false
	}
	m := re.FindStringSubmatch(description)
	if m == nil {
		return Comparison{}, false
	}
	threshold, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Comparison{}, false
	}
	return Comparison{Operator: m[1], Threshold: threshold}, true
}

// FirstInteger returns the first run of digits in text.
func FirstInteger(text string) (int, bool) {
	m := integerRe.FindString(text)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// DurationMonths returns the number written before a months unit ("14개월",
// "14 months"). Digits without the unit do not count.
func DurationMonths(text string) (int, bool) {
	m := monthsRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Career is one line of career history: "company, job title, duration".
type Career struct {
	Company  string
	JobTitle string
	Months   int
}

// ParseCareer splits comma-separated career text. Missing parts stay empty and
// an unreadable duration is 0 months.
func ParseCareer(text string) Career {
	parts := strings.Split(text, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	var c Career
	if len(parts) > 0 {
		c.Company = parts[0]
	}
	if len(parts) > 1 {
		c.JobTitle = parts[1]
	}
	if len(parts) > 2 {
		if months, ok := DurationMonths(parts[2]); ok {
			c.Months = months
		} else if n, ok := FirstInteger(parts[2]); ok {
			c.Months = n
		}
	}
	return c
}

// Tokens splits text on commas into lowercased, trimmed, non-empty tokens.
func Tokens(text string) []string {
	var out []string
	for _, part := range strings.Split(strings.ToLower(text), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// thresholdCriterion returns the criterion with the highest numeric threshold
// that value meets. Criteria whose description is not an integer are ignored.
func thresholdCriterion(value int, criteria []rubric.GradeCriterion) (rubric.GradeCriterion, bool) {
	type threshold struct {
		min       int
		criterion rubric.GradeCriterion
	}

	thresholds := make([]threshold, 0, len(criteria))
	for _, c := range criteria {
		n, err := strconv.Atoi(strings.TrimSpace(c.Description))
		if err != nil {
			continue
		}
		thresholds = append(thresholds, threshold{min: n, criterion: c})
	}

	sort.SliceStable(thresholds, func(i, j int) bool {
		return thresholds[i].min > thresholds[j].min
	})

	for _, t := range thresholds {
		if value >= t.min {
			return t.criterion, true
		}
	}
	return rubric.GradeCriterion{}, false
}
