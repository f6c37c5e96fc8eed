// Package applicant holds the application submission received for evaluation
// and the report produced for it.
package applicant

import "strconv"

// Submission is one applicant's application to a job posting.
type Submission struct {
	ApplicantID                int                 `json:"applicantId"`
	ApplicantName              string              `json:"applicantName"`
	ApplicantEmail             string              `json:"applicantEmail"`
	ApplicationID              int                 `json:"applicationId"`
	JobPostingID               int                 `json:"jobPostingId"`
	ResumeItemAnswers          []ResumeAnswer      `json:"resumeItemAnswers"`
	CoverLetterQuestionAnswers []CoverLetterAnswer `json:"coverLetterQuestionAnswers"`
}

// RubricID is the id of the rubric the submission is evaluated against.
func (s *Submission) RubricID() string {
	return strconv.Itoa(s.JobPostingID)
}

// ResumeAnswer is the applicant's answer to one structured resume item.
type ResumeAnswer struct {
	ResumeItemID     int    `json:"resumeItemId"`
	ResumeItemName   string `json:"resumeItemName"`
	ResumeContent    string `json:"resumeContent,omitempty"`
	SelectedCategory string `json:"selectedCategory,omitempty"`
}

// Text returns the free-text content, or the selected category when there is none.
func (a ResumeAnswer) Text() string {
	if a.ResumeContent != "" {
		return a.ResumeContent
	}
	return a.SelectedCategory
}

// CoverLetterAnswer is the applicant's free-text answer to one cover-letter question.
type CoverLetterAnswer struct {
	CoverLetterQuestionID int    `json:"coverLetterQuestionId"`
	QuestionContent       string `json:"questionContent"`
	AnswerContent         string `json:"answerContent"`
}

// Report is the final evaluation of one submission.
type Report struct {
	ApplicantID                    int                  `json:"applicantId"`
	ApplicantName                  string               `json:"applicantName"`
	ApplicantEmail                 string               `json:"applicantEmail"`
	ApplicationID                  int                  `json:"applicationId"`
	JobPostingID                   int                  `json:"jobPostingId"`
	ResumeEvaluations              []ResumeEvaluation   `json:"resumeEvaluations"`
	ResumeScoreTotal               int                  `json:"resumeScoreTotal"`
	CoverLetterQuestionEvaluations []QuestionEvaluation `json:"coverLetterQuestionEvaluations"`
	OverallAnalysis                OverallAnalysis      `json:"overallAnalysis"`
}

// ResumeEvaluation is the score given to one resume answer.
type ResumeEvaluation struct {
	ResumeItemID   int    `json:"resumeItemId"`
	ResumeItemName string `json:"resumeItemName"`
	ResumeContent  string `json:"resumeContent"`
	Score          int    `json:"score"`
}

// QuestionEvaluation is the qualitative evaluation of one cover-letter answer.
type QuestionEvaluation struct {
	CoverLetterQuestionID int                   `json:"coverLetterQuestionId"`
	Keywords              []string              `json:"keywords"`
	Summary               string                `json:"summary"`
	AnswerEvaluations     []CriterionEvaluation `json:"answerEvaluations"`
}

// CriterionEvaluation is the grade given to an answer for one criterion.
type CriterionEvaluation struct {
	EvaluationCriteriaName string `json:"evaluationCriteriaName"`
	Grade                  string `json:"grade"`
	EvaluatedContent       string `json:"evaluatedContent"`
	EvaluationReason       string `json:"evaluationReason"`
}

// OverallAnalysis is the holistic judgement over the whole application.
type OverallAnalysis struct {
	OverallEvaluation string   `json:"overallEvaluation"`
	Strengths         []string `json:"strengths"`
	Improvements      []string `json:"improvements"`
	AIRecommendation  string   `json:"aiRecommendation"`
	AIReliability     float64  `json:"aiReliability"`
}
