// Package scoring evaluates a finished interview transcript against a
// rule table and renders the result in several presentations.
//
// Rules are data, not code: the engine only knows the three criterion
// kinds and is testable independent of any particular rule content.
package scoring

import "regexp"

// CriterionKind selects the scoring behavior of one criterion.
type CriterionKind string

const (
	// KindRequiredKeyword scores zero unless a configured keyword appears
	// (case-insensitive substring) somewhere in the human text.
	KindRequiredKeyword CriterionKind = "required_keyword"
	// KindProhibitedPattern scores zero when its pattern matches any human
	// utterance; a critical match disqualifies the session outright.
	KindProhibitedPattern CriterionKind = "prohibited_pattern"
	// KindQuality scores half marks when the aggregated human text is
	// shorter than the configured threshold.
	KindQuality CriterionKind = "quality"
)

// Severity ranks prohibited-pattern violations.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
)

// Criterion is one scored rule.
type Criterion struct {
	Name string
	Kind CriterionKind
	// Max is the criterion's full score.
	Max int
	// Keywords applies to required-keyword criteria.
	Keywords []string
	// Pattern applies to prohibited-pattern criteria.
	Pattern *regexp.Regexp
	// Severity applies to prohibited-pattern criteria.
	Severity Severity
	// MinLength applies to quality criteria, in bytes of aggregated text.
	MinLength int
	// Feedback is emitted whenever the criterion loses points.
	Feedback string
}

// Category groups criteria under one weighted heading.
type Category struct {
	Name     string
	Weight   float64
	Criteria []Criterion
}

// RuleSet is the full rule table for one evaluation.
type RuleSet struct {
	Categories []Category
}

// DefaultRuleSet is the built-in moderator rubric.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		Categories: []Category{
			{
				Name:   "Engagement",
				Weight: 1.5,
				Criteria: []Criterion{
					{
						Name:      "substantive participation",
						Kind:      KindQuality,
						Max:       10,
						MinLength: 50,
						Feedback:  "Add more substance to your interjections; short remarks leave the agents without direction.",
					},
					{
						Name:     "asks follow-up questions",
						Kind:     KindRequiredKeyword,
						Max:      10,
						Keywords: []string{"why", "how", "tell me more", "could you"},
						Feedback: "Probe the candidate with follow-up questions instead of only observing.",
					},
				},
			},
			{
				Name:   "Professionalism",
				Weight: 2.0,
				Criteria: []Criterion{
					{
						Name:     "no abusive language",
						Kind:     KindProhibitedPattern,
						Max:      10,
						Pattern:  regexp.MustCompile(`(?i)\b(stupid|idiot|shut up|useless)\b`),
						Severity: SeverityCritical,
						Feedback: "Abusive language toward participants ends the evaluation immediately.",
					},
					{
						Name:     "no leading the witness",
						Kind:     KindProhibitedPattern,
						Max:      5,
						Pattern:  regexp.MustCompile(`(?i)just say|the answer is`),
						Severity: SeverityMajor,
						Feedback: "Avoid feeding the candidate answers; let them respond on their own.",
					},
				},
			},
			{
				Name:   "Direction",
				Weight: 1.0,
				Criteria: []Criterion{
					{
						Name:     "keeps the interview on topic",
						Kind:     KindRequiredKeyword,
						Max:      10,
						Keywords: []string{"experience", "example", "role", "project"},
						Feedback: "Steer the conversation toward the candidate's concrete experience.",
					},
				},
			},
		},
	}
}
