package workflow

import "strings"

// ValuePolicy decides whether a value extracted by the model is real data.
type ValuePolicy interface {
	// Clean returns the trimmed value, or nil when it should be stored as NULL.
	Clean(v *string) *string
}

var DefaultPlaceholders = []string{"n/a", "na", "none", "null", "undefined", "-", ""}

// PlaceholderPolicy nulls out values that match a fixed set of placeholders,
// compared case-insensitively after trimming whitespace.
type PlaceholderPolicy struct {
	placeholders map[string]struct{}
}

func NewPlaceholderPolicy(placeholders ...string) *PlaceholderPolicy {
	if len(placeholders) == 0 {
		placeholders = DefaultPlaceholders
	}
	set := make(map[string]struct{}, len(placeholders))
	for _, p := range placeholders {
		set[strings.ToLower(strings.TrimSpace(p))] = struct{}{}
	}
	return &PlaceholderPolicy{placeholders: set}
}

func (p *PlaceholderPolicy) Clean(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if _, ok := p.placeholders[strings.ToLower(trimmed)]; ok {
		return nil
	}
	return &trimmed
}
