package applicant

import (
	"encoding/json"
	"testing"
)

func TestSubmissionRubricID(t *testing.T) {
	t.Parallel()

	var sub Submission
	if err := json.Unmarshal([]byte(`{"applicationId": 3, "jobPostingId": 1024}`), &sub); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := sub.RubricID(); got != "1024" {
		t.Fatalf("expected rubric id 1024, got %q", got)
	}
}

func TestResumeAnswerText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		answer ResumeAnswer
		expect string
	}{
		{name: "content wins", answer: ResumeAnswer{ResumeContent: "3.8/4.5", SelectedCategory: "bachelor"}, expect: "3.8/4.5"},
		{name: "category fallback", answer: ResumeAnswer{SelectedCategory: "bachelor"}, expect: "bachelor"},
		{name: "empty", answer: ResumeAnswer{}, expect: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.answer.Text(); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}
