package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/rubric-evaluator/internal/ai"
	"github.com/spigell/rubric-evaluator/internal/applicant"
	"github.com/spigell/rubric-evaluator/internal/artifacts"
	"github.com/spigell/rubric-evaluator/internal/assets"
	"github.com/spigell/rubric-evaluator/internal/delivery"
	"github.com/spigell/rubric-evaluator/internal/knowledge"
	"github.com/spigell/rubric-evaluator/internal/logger"
	"github.com/spigell/rubric-evaluator/internal/rubric"
	"github.com/spigell/rubric-evaluator/internal/scoring"
)

// KnowledgeLoader provides the reference lists used by the scoring engine.
type KnowledgeLoader interface {
	Load() (*knowledge.Base, error)
}

// QualitativeEvaluator grades free-text answers and analyses the application.
type QualitativeEvaluator interface {
	Evaluate(ctx context.Context, cfg *rubric.Config, corpus *assets.Corpus, answers []applicant.CoverLetterAnswer, quant scoring.Result) ([]applicant.QuestionEvaluation, applicant.OverallAnalysis, error)
}

// EvaluatorConfig holds the capabilities and settings of the evaluate stage.
type EvaluatorConfig struct {
	Store               *artifacts.Store
	Knowledge           KnowledgeLoader
	Similarity          ai.Similarity
	SimilarityThreshold float64
	Qualitative         QualitativeEvaluator
	// Deliverer may be nil; the report is then only returned.
	Deliverer delivery.Deliverer
}

// Evaluator runs the evaluate stage. It keeps no state between runs.
type Evaluator struct {
	cfg    EvaluatorConfig
	logger *zap.Logger
}

func NewEvaluator(cfg EvaluatorConfig, log *zap.Logger) *Evaluator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{cfg: cfg, logger: log}
}

// WithLogger returns a copy of the evaluator logging to log.
func (e *Evaluator) WithLogger(log *zap.Logger) *Evaluator {
	c := *e
	if log != nil {
		c.logger = log
	}
	return &c
}

// Run evaluates one submission and delivers the report. A rubric that was
// never built is evaluated as an empty one. The report is returned even when
// delivery fails.
func (e *Evaluator) Run(ctx context.Context, sub *applicant.Submission) (*applicant.Report, error) {
	if sub == nil {
		return nil, fmt.Errorf("submission is required")
	}

	rubricID := sub.RubricID()
	log := logger.WithFields(e.logger, logger.ApplicationFields(rubricID, sub.ApplicationID)...)

	var (
		cfg       *rubric.Config
		corpus    *assets.Corpus
		kb        *knowledge.Base
		scores    scoring.Result
		questions []applicant.QuestionEvaluation
		overall   applicant.OverallAnalysis
	)

	steps := []step{
		{name: "load artifacts", run: func(context.Context) error {
			var err error
			if cfg, err = e.loadRubric(log, rubricID); err != nil {
				return err
			}
			corpus, err = e.loadCorpus(log, rubricID)
			return err
		}},
		{name: "load knowledge base", run: func(context.Context) error {
			if e.cfg.Knowledge == nil {
				kb = knowledge.New(nil, nil)
				return nil
			}
			var err error
			kb, err = e.cfg.Knowledge.Load()
			return err
		}},
		{name: "quantitative scoring", run: func(ctx context.Context) error {
			engine := scoring.NewEngine(kb, e.cfg.Similarity, e.cfg.SimilarityThreshold, log)
			var err error
			scores, err = engine.Score(ctx, cfg, sub.ResumeItemAnswers)
			return err
		}},
		{name: "qualitative evaluation", run: func(ctx context.Context) error {
			var err error
			questions, overall, err = e.cfg.Qualitative.Evaluate(ctx, cfg, corpus, sub.CoverLetterQuestionAnswers, scores)
			return err
		}},
	}

	if err := runSteps(ctx, log, steps); err != nil {
		return nil, err
	}

	report := AssembleReport(sub, scores, questions, overall)
	log.Info("evaluation finished",
		zap.Int("resume_score_total", report.ResumeScoreTotal),
		zap.Int("questions", len(report.CoverLetterQuestionEvaluations)),
		zap.String("recommendation", report.OverallAnalysis.AIRecommendation),
	)

	if e.cfg.Deliverer != nil {
		if err := e.cfg.Deliverer.Deliver(ctx, report); err != nil {
			return report, fmt.Errorf("deliver report: %w", err)
		}
	}

	return report, nil
}

func (e *Evaluator) loadRubric(log *zap.Logger, rubricID string) (*rubric.Config, error) {
	cfg, err := e.cfg.Store.LoadRubric(rubricID)
	if errors.Is(err, artifacts.ErrNotFound) {
		log.Warn("rubric was never built, scoring against an empty rubric")
		return &rubric.Config{SchemaVersion: rubric.SchemaVersion, RubricID: rubricID}, nil
	}
	return cfg, err
}

func (e *Evaluator) loadCorpus(log *zap.Logger, rubricID string) (*assets.Corpus, error) {
	corpus, err := e.cfg.Store.LoadCorpus(rubricID)
	if errors.Is(err, artifacts.ErrNotFound) {
		log.Warn("exemplar corpus was never built, using an empty corpus")
		return assets.NewCorpus(rubricID), nil
	}
	return corpus, err
}

// AssembleReport builds the final report. Resume evaluations follow the
// order of the submitted answers; answers without a score get 0.
func AssembleReport(sub *applicant.Submission, scores scoring.Result, questions []applicant.QuestionEvaluation, overall applicant.OverallAnalysis) *applicant.Report {
	resume := make([]applicant.ResumeEvaluation, 0, len(sub.ResumeItemAnswers))
	for _, a := range sub.ResumeItemAnswers {
		resume = append(resume, applicant.ResumeEvaluation{
			ResumeItemID:   a.ResumeItemID,
			ResumeItemName: a.ResumeItemName,
			ResumeContent:  a.Text(),
			Score:          scores[a.ResumeItemID],
		})
	}
	if questions == nil {
		questions = []applicant.QuestionEvaluation{}
	}

	return &applicant.Report{
		ApplicantID:                    sub.ApplicantID,
		ApplicantName:                  sub.ApplicantName,
		ApplicantEmail:                 sub.ApplicantEmail,
		ApplicationID:                  sub.ApplicationID,
		JobPostingID:                   sub.JobPostingID,
		ResumeEvaluations:              resume,
		ResumeScoreTotal:               scores.Total(),
		CoverLetterQuestionEvaluations: questions,
		OverallAnalysis:                overall,
	}
}
