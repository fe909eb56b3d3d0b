package scoring

import (
	"fmt"
	"io"
	"regexp"

	"gopkg.in/yaml.v3"
)

type criterionSpec struct {
	Name      string   `yaml:"name"`
	Kind      string   `yaml:"kind"`
	Max       int      `yaml:"max"`
	Keywords  []string `yaml:"keywords"`
	Pattern   string   `yaml:"pattern"`
	Severity  string   `yaml:"severity"`
	MinLength int      `yaml:"min_length"`
	Feedback  string   `yaml:"feedback"`
}

type categorySpec struct {
	Name     string          `yaml:"name"`
	Weight   float64         `yaml:"weight"`
	Criteria []criterionSpec `yaml:"criteria"`
}

type ruleFile struct {
	Categories []categorySpec `yaml:"categories"`
}

// LoadRuleSet reads a YAML rule table, compiling prohibited patterns up
// front so evaluation itself can never fail on a bad regex.
func LoadRuleSet(r io.Reader) (RuleSet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return RuleSet{}, fmt.Errorf("failed to read rule set: %w", err)
	}

	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return RuleSet{}, fmt.Errorf("failed to parse rule set: %w", err)
	}

	rules := RuleSet{}
	for _, categorySpec := range file.Categories {
		category := Category{Name: categorySpec.Name, Weight: categorySpec.Weight}
		if category.Weight == 0 {
			category.Weight = 1
		}
		for _, spec := range categorySpec.Criteria {
			criterion := Criterion{
				Name:      spec.Name,
				Kind:      CriterionKind(spec.Kind),
				Max:       spec.Max,
				Keywords:  spec.Keywords,
				Severity:  Severity(spec.Severity),
				MinLength: spec.MinLength,
				Feedback:  spec.Feedback,
			}
			switch criterion.Kind {
			case KindRequiredKeyword, KindProhibitedPattern, KindQuality:
			default:
				return RuleSet{}, fmt.Errorf("unknown criterion kind %q in category %q", spec.Kind, categorySpec.Name)
			}
			if criterion.Kind == KindProhibitedPattern {
				pattern, err := regexp.Compile(spec.Pattern)
				if err != nil {
					return RuleSet{}, fmt.Errorf("invalid pattern for criterion %q: %w", spec.Name, err)
				}
				criterion.Pattern = pattern
			}
			category.Criteria = append(category.Criteria, criterion)
		}
		rules.Categories = append(rules.Categories, category)
	}
	return rules, nil
}
