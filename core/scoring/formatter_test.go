package scoring

import (
	"strings"
	"testing"
)

func sampleResult() EvaluationResult {
	return EvaluationResult{
		Score:      25,
		Max:        30,
		Percentage: 83,
		Grade:      GradeB,
		Passed:     true,
		Categories: []CategoryResult{
			{Name: "Engagement", Score: 15, Max: 20, Percentage: 75},
			{Name: "Professionalism", Score: 10, Max: 10, Percentage: 100},
		},
		Violations: []Violation{
			{Category: "Engagement", Criterion: "asks follow-up questions", Severity: SeverityMinor, Excerpt: "hm"},
		},
		Feedback: []string{"Probe the candidate with follow-up questions instead of only observing."},
	}
}

func TestFormatPayloadMirrorsResultWithoutSharing(t *testing.T) {
	result := sampleResult()
	payload := FormatPayload(result)

	if payload.Score != result.Score || payload.Grade != result.Grade || payload.Percentage != result.Percentage {
		t.Fatalf("expected payload to mirror result, got %+v", payload)
	}
	if len(payload.Categories) != len(result.Categories) {
		t.Fatalf("expected categories copied, got %d", len(payload.Categories))
	}

	payload.Categories[0].Score = 0
	if result.Categories[0].Score != 15 {
		t.Fatalf("expected payload mutation not to reach the result")
	}
}

func TestFormatReportContainsAllSections(t *testing.T) {
	report := FormatReport(sampleResult())

	for _, want := range []string{"25/30", "83%", "grade B", "Engagement", "Professionalism", "Violations:", "Feedback:", "passed"} {
		if !strings.Contains(report, want) {
			t.Fatalf("expected report to contain %q, got:\n%s", want, report)
		}
	}
}

func TestFormatSummaryMentionsGradeAndOutcome(t *testing.T) {
	summary := FormatSummary(sampleResult())
	if !strings.Contains(summary, "Grade B") || !strings.Contains(summary, "passed") {
		t.Fatalf("unexpected summary %q", summary)
	}

	disqualified := sampleResult()
	disqualified.Disqualified = true
	disqualified.Passed = false
	summary = FormatSummary(disqualified)
	if !strings.Contains(summary, "disqualified") {
		t.Fatalf("expected disqualification mentioned, got %q", summary)
	}
}
