package scoring

import (
	"fmt"
	"strings"

	"github.com/jinzhu/copier"
)

// Payload is the transmission form of an evaluation result. It mirrors
// EvaluationResult field-for-field so no score is ever re-derived; it only
// exists so the wire shape can evolve independently of the engine.
type Payload struct {
	Score        int              `json:"score"`
	Max          int              `json:"max"`
	Percentage   int              `json:"percentage"`
	Grade        Grade            `json:"grade"`
	Passed       bool             `json:"passed"`
	Disqualified bool             `json:"disqualified"`
	Categories   []CategoryResult `json:"categories"`
	Violations   []Violation      `json:"violations"`
	Feedback     []string         `json:"feedback"`
}

// FormatPayload deep-copies the result into its transmission form.
func FormatPayload(result EvaluationResult) Payload {
	var payload Payload
	copier.CopyWithOption(&payload, &result, copier.Option{DeepCopy: true})
	return payload
}

// FormatReport renders the result as a plain-text report.
func FormatReport(result EvaluationResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Interview evaluation: %d/%d (%d%%), grade %s\n", result.Score, result.Max, result.Percentage, result.Grade)
	if result.Disqualified {
		b.WriteString("DISQUALIFIED: a critical rule violation was detected.\n")
	} else if result.Passed {
		b.WriteString("Result: passed\n")
	} else {
		b.WriteString("Result: not passed\n")
	}

	b.WriteString("\nCategories:\n")
	for _, category := range result.Categories {
		fmt.Fprintf(&b, "  %-20s %3d/%-3d (%.0f%%)\n", category.Name, category.Score, category.Max, category.Percentage)
	}

	if len(result.Violations) > 0 {
		b.WriteString("\nViolations:\n")
		for _, violation := range result.Violations {
			fmt.Fprintf(&b, "  [%s] %s / %s: %q\n", violation.Severity, violation.Category, violation.Criterion, violation.Excerpt)
		}
	}

	if len(result.Feedback) > 0 {
		b.WriteString("\nFeedback:\n")
		for _, feedback := range result.Feedback {
			fmt.Fprintf(&b, "  - %s\n", feedback)
		}
	}

	return b.String()
}

// FormatSummary renders the result as a short chat-style line.
func FormatSummary(result EvaluationResult) string {
	if result.Disqualified {
		return fmt.Sprintf("Grade %s (%d%%): disqualified by a critical violation", result.Grade, result.Percentage)
	}
	outcome := "not passed"
	if result.Passed {
		outcome = "passed"
	}
	return fmt.Sprintf("Grade %s (%d%%): %s, %d point(s) across %d categories", result.Grade, result.Percentage, outcome, result.Score, len(result.Categories))
}
