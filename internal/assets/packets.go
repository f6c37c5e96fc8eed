package assets

import (
	"fmt"

	"github.com/spigell/rubric-evaluator/internal/rubric"
)

// CorpusSchemaVersion is the current version of the exemplar corpus artifact.
const CorpusSchemaVersion = 1

// Labels of worked examples.
const (
	LabelGood = "good"
	LabelBad  = "bad"
)

// Example is one worked cover-letter answer.
type Example struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// ExampleSet holds the labeled worked examples of one question.
type ExampleSet struct {
	QuestionID   int       `json:"questionId"`
	GoodExamples []Example `json:"goodExamples"`
	BadExamples  []Example `json:"badExamples"`
}

// CriterionPacket carries one qualitative criterion of a question.
type CriterionPacket struct {
	PacketID   string                `json:"packetId"`
	QuestionID int                   `json:"questionId"`
	Criterion  rubric.CoverCriterion `json:"criterion"`
}

// ExamplePacket is a verbatim exemplar sentence linked to one criterion.
type ExamplePacket struct {
	PacketID          string `json:"packetId"`
	QuestionID        int    `json:"questionId"`
	Label             string `json:"label"`
	LinkedCriterion   string `json:"linkedCriterion"`
	ExtractedSentence string `json:"extractedSentence"`
}

// Corpus is the exemplar corpus of one rubric.
type Corpus struct {
	SchemaVersion int               `json:"schemaVersion"`
	RubricID      string            `json:"rubricId"`
	Criteria      []CriterionPacket `json:"criteria"`
	Examples      []ExamplePacket   `json:"examples"`
}

// NewCorpus returns an empty corpus for a rubric.
func NewCorpus(rubricID string) *Corpus {
	return &Corpus{
		SchemaVersion: CorpusSchemaVersion,
		RubricID:      rubricID,
		Criteria:      []CriterionPacket{},
		Examples:      []ExamplePacket{},
	}
}

// CriteriaFor returns the criterion packets of a question in corpus order.
func (c *Corpus) CriteriaFor(questionID int) []CriterionPacket {
	if c == nil {
		return nil
	}
	var out []CriterionPacket
	for _, p := range c.Criteria {
		if p.QuestionID == questionID {
			out = append(out, p)
		}
	}
	return out
}

func criterionPacketID(questionID int, criterion string) string {
	return fmt.Sprintf("Q%d_%s", questionID, criterion)
}

func examplePacketID(exampleID, criterion string) string {
	return fmt.Sprintf("EX_%s_%s", exampleID, criterion)
}
