package rubric

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnusable is returned when a rubric definition cannot be compiled.
var ErrUnusable = errors.New("rubric definition is unusable")

// careerMarkers and educationMarkers are matched against rule names
// case-insensitively.
var (
	careerMarkers    = []string{"경력", "career"}
	educationMarkers = []string{"학력", "education"}
)

// DenotesCareer reports whether a rule name refers to career history.
func DenotesCareer(name string) bool {
	return nameHasMarker(name, careerMarkers)
}

// DenotesEducation reports whether a rule name refers to education history.
func DenotesEducation(name string) bool {
	return nameHasMarker(name, educationMarkers)
}

func nameHasMarker(name string, markers []string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return false
	}
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Compile turns a raw definition into a Config. When jobRole is empty the
// definition's own jobRole is used. A non-empty job role switches career rules
// to CAREER_SIMILARITY_BASED and sets their target role.
func Compile(def *Definition, jobRole string) (*Config, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: definition is empty", ErrUnusable)
	}
	if def.JobPostingID <= 0 {
		return nil, fmt.Errorf("%w: jobPostingId must be positive, got %d", ErrUnusable, def.JobPostingID)
	}

	jobRole = strings.TrimSpace(jobRole)
	if jobRole == "" {
		jobRole = strings.TrimSpace(def.JobRole)
	}

	cfg := &Config{
		SchemaVersion:        SchemaVersion,
		RubricID:             strconv.Itoa(def.JobPostingID),
		Title:                def.Title,
		CompanyName:          def.CompanyName,
		JobRole:              jobRole,
		TotalScore:           def.TotalScore,
		PassingScore:         def.PassingScore,
		ResumeItems:          make([]ResumeItemRule, 0, len(def.ResumeItems)),
		CoverLetterQuestions: make([]CoverQuestionRule, 0, len(def.CoverLetterQuestions)),
	}

	seen := make(map[int]struct{}, len(def.ResumeItems))
	for _, item := range def.ResumeItems {
		if _, ok := seen[item.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate resume item id %d", ErrUnusable, item.ID)
		}
		seen[item.ID] = struct{}{}

		rule := item
		rule.Criteria = append([]GradeCriterion(nil), item.Criteria...)

		if jobRole != "" && DenotesCareer(rule.Name) {
			rule.Type = TypeCareerSimilarityBased
			if strings.TrimSpace(rule.TargetJobRole) == "" {
				rule.TargetJobRole = jobRole
			}
		}

		if !rule.Type.Known() {
			return nil, fmt.Errorf("%w: resume item %d (%s) has unknown type %q", ErrUnusable, rule.ID, rule.Name, rule.Type)
		}

		cfg.ResumeItems = append(cfg.ResumeItems, rule)
	}

	for _, q := range def.CoverLetterQuestions {
		question := q
		question.Criteria = append([]CoverCriterion(nil), q.Criteria...)
		cfg.CoverLetterQuestions = append(cfg.CoverLetterQuestions, question)
	}

	return cfg, nil
}

// CollectionID returns the document-store collection name for a rubric.
func CollectionID(rubricID string) string {
	return "rubric-" + rubricID
}
