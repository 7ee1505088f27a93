// Package classifier maps free-text job descriptions to skill categories.
package classifier

import (
	_ "embed"
	"fmt"
	"strings"

	"fixmate_backend/internal/domain"

	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var defaultKeywords []byte

type keywordSet struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

type keywordFile struct {
	Categories []keywordSet `yaml:"categories"`
}

type rule struct {
	category domain.Category
	keywords []string
}

// Heuristic classifies by case-insensitive substring match. Rules are
// evaluated in document order and the first hit wins; no hit yields general.
type Heuristic struct {
	rules []rule
}

// NewHeuristic loads the embedded keyword sets.
func NewHeuristic() *Heuristic {
	h, err := ParseHeuristic(defaultKeywords)
	if err != nil {
		panic("classifier: embedded keywords.yaml is invalid: " + err.Error())
	}
	return h
}

// ParseHeuristic builds a heuristic from a YAML keyword document.
func ParseHeuristic(doc []byte) (*Heuristic, error) {
	var file keywordFile
	if err := yaml.Unmarshal(doc, &file); err != nil {
		return nil, fmt.Errorf("parse keywords: %w", err)
	}

	rules := make([]rule, 0, len(file.Categories))
	for _, set := range file.Categories {
		category, ok := domain.ParseCategory(set.Name)
		if !ok {
			return nil, fmt.Errorf("unknown category %q", set.Name)
		}
		keywords := make([]string, 0, len(set.Keywords))
		for _, kw := range set.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				keywords = append(keywords, kw)
			}
		}
		rules = append(rules, rule{category: category, keywords: keywords})
	}
	return &Heuristic{rules: rules}, nil
}

// Classify returns the category of description.
func (h *Heuristic) Classify(description string) domain.Category {
	text := strings.ToLower(description)
	for _, r := range h.rules {
		for _, kw := range r.keywords {
			if strings.Contains(text, kw) {
				return r.category
			}
		}
	}
	return domain.CategoryGeneral
}
