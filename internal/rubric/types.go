package rubric

// RuleType selects the scoring strategy for one resume item.
type RuleType string

const (
	TypeCategory              RuleType = "CATEGORY"
	TypeNumericRange          RuleType = "NUMERIC_RANGE"
	TypeHoursRange            RuleType = "HOURS_RANGE"
	TypeDurationBased         RuleType = "DURATION_BASED"
	TypeCareerSimilarityBased RuleType = "CAREER_SIMILARITY_BASED"
	TypeRuleBasedCount        RuleType = "RULE_BASED_COUNT"
	TypeScoreRange            RuleType = "SCORE_RANGE"
)

// Known reports whether t is one of the supported rule types.
func (t RuleType) Known() bool {
	switch t {
	case TypeCategory, TypeNumericRange, TypeHoursRange, TypeDurationBased,
		TypeCareerSimilarityBased, TypeRuleBasedCount, TypeScoreRange:
		return true
	default:
		return false
	}
}

// GradeExcellent and GradePoor are the grade labels the prompts quote from.
const (
	GradeExcellent = "EXCELLENT"
	GradePoor      = "POOR"
)

// SchemaVersion is the current version of the scoring-rules artifact.
const SchemaVersion = 1

// Config is the compiled scoring configuration for one job posting.
// It is written once by Compile and only read afterwards.
type Config struct {
	SchemaVersion        int                 `json:"schemaVersion"`
	RubricID             string              `json:"rubricId"`
	Title                string              `json:"title,omitempty"`
	CompanyName          string              `json:"companyName,omitempty"`
	JobRole              string              `json:"jobRole,omitempty"`
	TotalScore           int                 `json:"totalScore"`
	PassingScore         int                 `json:"passingScore"`
	ResumeItems          []ResumeItemRule    `json:"resumeItems"`
	CoverLetterQuestions []CoverQuestionRule `json:"coverLetterQuestions"`
}

// ResumeItemRule scores one structured resume field.
type ResumeItemRule struct {
	ID          int              `json:"id"`
	Name        string           `json:"name"`
	Type        RuleType         `json:"type"`
	ScoreWeight int              `json:"scoreWeight"`
	IsRequired  bool             `json:"isRequired,omitempty"`
	Criteria    []GradeCriterion `json:"criteria"`

	// Only used by CAREER_SIMILARITY_BASED rules.
	TargetJobRole       string   `json:"targetJobRole,omitempty"`
	SimilarityThreshold *float64 `json:"similarityThreshold,omitempty"`
}

// GradeCriterion is one grade of a resume rule. Description holds either a
// label, a numeric threshold or an encoded comparison depending on the rule type.
type GradeCriterion struct {
	Grade         string `json:"grade"`
	Description   string `json:"description"`
	ScorePerGrade int    `json:"scorePerGrade"`
	MaxItems      *int   `json:"maxItems,omitempty"`
}

// CoverQuestionRule holds the qualitative criteria of one cover-letter question.
type CoverQuestionRule struct {
	ID            int              `json:"id"`
	Content       string           `json:"content,omitempty"`
	IsRequired    bool             `json:"isRequired,omitempty"`
	MaxCharacters int              `json:"maxCharacters,omitempty"`
	Weight        int              `json:"weight,omitempty"`
	Criteria      []CoverCriterion `json:"criteria"`
}

// CoverCriterion is a named qualitative criterion with graded details.
type CoverCriterion struct {
	Name               string        `json:"name"`
	OverallDescription string        `json:"overallDescription,omitempty"`
	Details            []GradeDetail `json:"details"`
}

// GradeDetail describes what a given grade of a qualitative criterion looks like.
type GradeDetail struct {
	Grade         string `json:"grade"`
	Description   string `json:"description"`
	ScorePerGrade int    `json:"scorePerGrade"`
}

// DetailFor returns the description of the given grade or fallback when absent.
func (c CoverCriterion) DetailFor(grade, fallback string) string {
	for _, d := range c.Details {
		if d.Grade == grade {
			return d.Description
		}
	}
	return fallback
}

// Question returns the cover-letter question with the given id.
func (c *Config) Question(id int) (CoverQuestionRule, bool) {
	if c == nil {
		return CoverQuestionRule{}, false
	}
	for _, q := range c.CoverLetterQuestions {
		if q.ID == id {
			return q, true
		}
	}
	return CoverQuestionRule{}, false
}

// Definition is the raw rubric as received from the upstream system.
type Definition struct {
	JobPostingID         int                 `json:"jobPostingId"`
	Title                string              `json:"title"`
	CompanyName          string              `json:"companyName"`
	JobRole              string              `json:"jobRole"`
	TotalScore           int                 `json:"totalScore"`
	PassingScore         int                 `json:"passingScore"`
	ResumeItems          []ResumeItemRule    `json:"resumeItems"`
	CoverLetterQuestions []CoverQuestionRule `json:"coverLetterQuestions"`
}
