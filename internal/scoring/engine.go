// Package scoring applies a compiled rubric to an applicant's structured
// resume answers. Every strategy degrades to a zero score on input it cannot
// read; only a failing similarity capability aborts an evaluation.
package scoring

import (
	"context"
	"fmt"
	"strings"

	"github.com/spigell/rubric-evaluator/internal/ai"
	"github.com/spigell/rubric-evaluator/internal/applicant"
	"github.com/spigell/rubric-evaluator/internal/knowledge"
	"github.com/spigell/rubric-evaluator/internal/rubric"
	"go.uber.org/zap"
)

const (
	// DefaultSimilarityThreshold applies when a career rule sets none.
	DefaultSimilarityThreshold = 0.7
	// careerPenaltyCap bounds the score of a career outside the target role.
	careerPenaltyCap = 8
)

// Result maps resume item ids to their scores.
type Result map[int]int

// Total sums all scores.
func (r Result) Total() int {
	total := 0
	for _, s := range r {
		total += s
	}
	return total
}

// Engine scores resume answers against a rubric.
type Engine struct {
	kb         *knowledge.Base
	similarity ai.Similarity
	threshold  float64
	logger     *zap.Logger
}

// NewEngine creates an engine. A non-positive threshold falls back to
// DefaultSimilarityThreshold. similarity may be nil when the rubric has no
// career similarity rules.
func NewEngine(kb *knowledge.Base, similarity ai.Similarity, threshold float64, logger *zap.Logger) *Engine {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{kb: kb, similarity: similarity, threshold: threshold, logger: logger}
}

// Score evaluates every rule of cfg. Rules without a matching answer score 0.
func (e *Engine) Score(ctx context.Context, cfg *rubric.Config, answers []applicant.ResumeAnswer) (Result, error) {
	result := make(Result)
	if cfg == nil {
		return result, nil
	}

	for _, rule := range cfg.ResumeItems {
		answer, ok := findAnswer(rule.ID, answers)
		if !ok {
			result[rule.ID] = 0
			continue
		}

		score, err := e.ScoreRule(ctx, rule, answer)
		if err != nil {
			return nil, fmt.Errorf("resume item %d (%s): %w", rule.ID, rule.Name, err)
		}
		result[rule.ID] = score
	}

	return result, nil
}

// ScoreRule evaluates a single answer. The returned score is never negative.
func (e *Engine) ScoreRule(ctx context.Context, rule rubric.ResumeItemRule, answer applicant.ResumeAnswer) (int, error) {
	var (
		score int
		err   error
	)

	switch rule.Type {
	case rubric.TypeCategory:
		score = e.category(rule, answer)
	case rubric.TypeNumericRange:
		score = e.numericRange(rule, answer)
	case rubric.TypeHoursRange:
		score = e.hoursRange(rule, answer)
	case rubric.TypeDurationBased:
		score = e.durationBased(rule, answer)
	case rubric.TypeCareerSimilarityBased:
		score, err = e.careerSimilarity(ctx, rule, answer)
	case rubric.TypeRuleBasedCount:
		score = e.ruleBasedCount(rule, answer)
	case rubric.TypeScoreRange:
		score = e.scoreRange(rule, answer)
	default:
		e.logger.Warn("unknown rule type, scoring 0", zap.Int("resume_item_id", rule.ID), zap.String("type", string(rule.Type)))
	}
	if err != nil {
		return 0, err
	}

	return max(score, 0), nil
}

func findAnswer(id int, answers []applicant.ResumeAnswer) (applicant.ResumeAnswer, bool) {
	for _, a := range answers {
		if a.ResumeItemID == id {
			return a, true
		}
	}
	return applicant.ResumeAnswer{}, false
}

func (e *Engine) noMatch(rule rubric.ResumeItemRule, reason string) int {
	e.logger.Debug("resume item scored 0",
		zap.Int("resume_item_id", rule.ID),
		zap.String("type", string(rule.Type)),
		zap.String("reason", reason),
	)
	return 0
}

func (e *Engine) category(rule rubric.ResumeItemRule, answer applicant.ResumeAnswer) int {
	selected := strings.TrimSpace(answer.SelectedCategory)
	content := answer.ResumeContent

	if selected == "" {
		if !rubric.DenotesEducation(rule.Name) {
			for _, c := range rule.Criteria {
				desc := strings.TrimSpace(c.Description)
				if desc != "" && strings.Contains(content, desc) {
					return c.ScorePerGrade
				}
			}
			return e.noMatch(rule, "no criterion found in content")
		}

		name, ok := InstitutionName(content)
		if !ok {
			return e.noMatch(rule, "no institution name in content")
		}
		tier, ok := e.kb.InstitutionTier(name)
		if !ok {
			return e.noMatch(rule, "institution not in knowledge base")
		}
		selected = tier
	}

	for _, c := range rule.Criteria {
		if categoryMatches(selected, c.Description) {
			return c.ScorePerGrade
		}
	}
	return e.noMatch(rule, "category matches no criterion")
}

// categoryMatches treats a '·'-separated description as alternative labels.
func categoryMatches(selected, description string) bool {
	if selected == strings.TrimSpace(description) {
		return true
	}
	for _, label := range strings.Split(description, "·") {
		if strings.TrimSpace(label) == selected {
			return true
		}
	}
	return false
}

func (e *Engine) numericRange(rule rubric.ResumeItemRule, answer applicant.ResumeAnswer) int {
	scores := TrackScores(answer.ResumeContent)
	if len(scores) == 0 {
		return e.noMatch(rule, "no track score in content")
	}

	// Pairs like "4.5 기준" or "GPA 4.5" may precede the real track, so the
	// first pair whose track some criterion knows is the one scored.
	for _, s := range scores {
		known := false
		for _, c := range rule.Criteria {
			cmp, ok := TrackComparison(c.Description, s.Track)
			if !ok {
				continue
			}
			known = true
			if cmp.Holds(s.Value) {
				return c.ScorePerGrade
			}
		}
		if known {
			return e.noMatch(rule, "score satisfies no criterion")
		}
	}
	return e.noMatch(rule, "no track known to the criteria")
}

func (e *Engine) hoursRange(rule rubric.ResumeItemRule, answer applicant.ResumeAnswer) int {
	value, ok := FirstInteger(answer.ResumeContent)
	if !ok {
		return e.noMatch(rule, "no number in content")
	}
	c, ok := thresholdCriterion(value, rule.Criteria)
	if !ok {
		return e.noMatch(rule, "value below every threshold")
	}
	return c.ScorePerGrade
}

func (e *Engine) durationBased(rule rubric.ResumeItemRule, answer applicant.ResumeAnswer) int {
	months, ok := DurationMonths(answer.ResumeContent)
	if !ok {
		return e.noMatch(rule, "no duration in months in content")
	}
	return e.durationScore(rule, months)
}

func (e *Engine) durationScore(rule rubric.ResumeItemRule, months int) int {
	c, ok := thresholdCriterion(months, rule.Criteria)
	if !ok {
		return e.noMatch(rule, "duration below every threshold")
	}
	return c.ScorePerGrade
}

func (e *Engine) careerSimilarity(ctx context.Context, rule rubric.ResumeItemRule, answer applicant.ResumeAnswer) (int, error) {
	content := strings.TrimSpace(answer.ResumeContent)
	if content == "" {
		return e.noMatch(rule, "empty content"), nil
	}

	career := ParseCareer(content)

	similarity := 0.0
	if e.similarity != nil && career.JobTitle != "" && rule.TargetJobRole != "" {
		var err error
		similarity, err = e.similarity.Similarity(ctx, career.JobTitle, rule.TargetJobRole)
		if err != nil {
			return 0, fmt.Errorf("job title similarity: %w", err)
		}
	}

	threshold := e.threshold
	if rule.SimilarityThreshold != nil {
		threshold = *rule.SimilarityThreshold
	}

	score := e.durationScore(rule, career.Months)

	fields := []zap.Field{
		zap.Int("resume_item_id", rule.ID),
		zap.String("job_title", career.JobTitle),
		zap.String("target_job_role", rule.TargetJobRole),
		zap.Float64("similarity", similarity),
		zap.Float64("threshold", threshold),
		zap.Int("months", career.Months),
	}

	if similarity < threshold {
		penalized := min(careerPenaltyCap, score/2)
		e.logger.Debug("career outside target role, applying penalty", append(fields, zap.Int("score", penalized))...)
		return penalized, nil
	}

	e.logger.Debug("career matches target role", append(fields, zap.Int("score", score))...)
	return score, nil
}

func (e *Engine) ruleBasedCount(rule rubric.ResumeItemRule, answer applicant.ResumeAnswer) int {
	tokens := Tokens(answer.ResumeContent)
	if len(tokens) == 0 {
		return e.noMatch(rule, "no certifications listed")
	}

	types := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if t, ok := e.kb.CertificationType(token); ok {
			types = append(types, t)
		}
	}

	total := 0
	for _, c := range rule.Criteria {
		count := 0
		for _, t := range types {
			if certificationTypeMatches(t, c.Description) {
				count++
			}
		}
		if c.MaxItems != nil {
			count = min(count, max(*c.MaxItems, 0))
		}
		total += count * c.ScorePerGrade
	}

	return min(total, max(rule.ScoreWeight, 0))
}

// certificationTypeMatches accepts a type named inside the criterion label,
// e.g. "국가기술자격" for "국가기술자격 (기사 이상)".
func certificationTypeMatches(certType, label string) bool {
	certType, label = strings.TrimSpace(certType), strings.TrimSpace(label)
	if certType == "" || label == "" {
		return false
	}
	return strings.Contains(label, certType)
}

func (e *Engine) scoreRange(rule rubric.ResumeItemRule, answer applicant.ResumeAnswer) int {
	tokens := strings.Fields(strings.ToLower(answer.ResumeContent))
	if len(tokens) == 0 {
		return e.noMatch(rule, "empty content")
	}

	for _, c := range rule.Criteria {
		allowed := make(map[string]struct{})
		for _, t := range strings.Fields(strings.ToLower(c.Description)) {
			allowed[t] = struct{}{}
		}

		matched := true
		for _, t := range tokens {
			if _, ok := allowed[t]; !ok {
				matched = false
				break
			}
		}
		if matched {
			return c.ScorePerGrade
		}
	}
	return e.noMatch(rule, "content matches no criterion")
}
