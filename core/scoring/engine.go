package scoring

import (
	"math"
	"strings"

	"github.com/parloq/interview-core/core/transcript"
	"github.com/parloq/interview-core/core/turns"
)

// CategoryResult is one category's score within an evaluation.
type CategoryResult struct {
	Name       string  `json:"name"`
	Score      int     `json:"score"`
	Max        int     `json:"max"`
	Percentage float64 `json:"percentage"`
}

// Violation records one prohibited-pattern match.
type Violation struct {
	Category  string   `json:"category"`
	Criterion string   `json:"criterion"`
	Severity  Severity `json:"severity"`
	Excerpt   string   `json:"excerpt"`
}

// EvaluationResult is the immutable outcome of one evaluation.
type EvaluationResult struct {
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

// Engine scores transcripts against a fixed rule set. It holds no mutable
// state; evaluation is a pure function of its input.
type Engine struct {
	rules RuleSet
}

// NewEngine creates an engine over the given rule set; a zero rule set
// falls back to the default rubric.
func NewEngine(rules RuleSet) *Engine {
	if len(rules.Categories) == 0 {
		rules = DefaultRuleSet()
	}
	return &Engine{rules: rules}
}

// Evaluate scores the human-authored portion of a finished transcript.
// Identical transcripts always produce identical results.
func (e *Engine) Evaluate(entries []transcript.Entry) EvaluationResult {
	var humanTexts []string
	for _, entry := range entries {
		if entry.Speaker == turns.RoleHuman {
			humanTexts = append(humanTexts, entry.Text)
		}
	}
	aggregated := strings.Join(humanTexts, "\n")
	loweredAggregate := strings.ToLower(aggregated)

	result := EvaluationResult{}
	weightedScore := 0.0
	weightedMax := 0.0

	for _, category := range e.rules.Categories {
		categoryScore := 0
		categoryMax := 0
		for _, criterion := range category.Criteria {
			categoryMax += criterion.Max
			score, violation := e.applyCriterion(criterion, humanTexts, aggregated, loweredAggregate)
			categoryScore += score
			if violation != nil {
				violation.Category = category.Name
				result.Violations = append(result.Violations, *violation)
				if violation.Severity == SeverityCritical {
					result.Disqualified = true
				}
			}
			if score < criterion.Max && criterion.Feedback != "" {
				result.Feedback = append(result.Feedback, criterion.Feedback)
			}
		}

		percentage := 0.0
		if categoryMax > 0 {
			percentage = float64(categoryScore) / float64(categoryMax) * 100
		}
		result.Categories = append(result.Categories, CategoryResult{
			Name:       category.Name,
			Score:      categoryScore,
			Max:        categoryMax,
			Percentage: percentage,
		})
		result.Score += categoryScore
		result.Max += categoryMax
		weightedScore += float64(categoryScore) * category.Weight
		weightedMax += float64(categoryMax) * category.Weight
	}

	if weightedMax > 0 {
		result.Percentage = int(math.Round(weightedScore / weightedMax * 100))
	}
	result.Grade = GradeFor(result.Percentage)
	result.Passed = !result.Disqualified && result.Grade != GradeF
	return result
}

func (e *Engine) applyCriterion(criterion Criterion, humanTexts []string, aggregated, loweredAggregate string) (int, *Violation) {
	switch criterion.Kind {
	case KindRequiredKeyword:
		for _, keyword := range criterion.Keywords {
			if strings.Contains(loweredAggregate, strings.ToLower(keyword)) {
				return criterion.Max, nil
			}
		}
		return 0, nil

	case KindProhibitedPattern:
		if criterion.Pattern == nil {
			return criterion.Max, nil
		}
		for _, text := range humanTexts {
			if match := criterion.Pattern.FindString(text); match != "" {
				return 0, &Violation{
					Criterion: criterion.Name,
					Severity:  criterion.Severity,
					Excerpt:   match,
				}
			}
		}
		return criterion.Max, nil

	case KindQuality:
		if len(aggregated) < criterion.MinLength {
			return criterion.Max / 2, nil
		}
		return criterion.Max, nil
	}
	return 0, nil
}
