// Package domain holds the entities shared by the fixer marketplace modules:
// clients, fixers, jobs and the status rules that govern them.
package domain

import "strings"

// Category is a skill category a job is classified into.
type Category string

const (
	CategoryPlumbing   Category = "plumbing"
	CategoryElectrical Category = "electrical"
	CategoryGeneral    Category = "general"
)

var knownCategories = []Category{CategoryPlumbing, CategoryElectrical, CategoryGeneral}

// Categories returns every known category in a stable order.
func Categories() []Category {
	out := make([]Category, len(knownCategories))
	copy(out, knownCategories)
	return out
}

// ParseCategory maps a free-form label to a known category.
func ParseCategory(label string) (Category, bool) {
	normalized := Category(strings.ToLower(strings.Trim(strings.TrimSpace(label), ".\"'`")))
	for _, c := range knownCategories {
		if c == normalized {
			return c, true
		}
	}
	return "", false
}

func (c Category) String() string { return string(c) }
