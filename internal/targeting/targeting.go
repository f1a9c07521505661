package targeting

import "strings"

// Spec is the targeting rule attached to a promo. Pointer fields keep the
// presence of a bound distinguishable from its zero value; an empty spec
// matches every profile.
type Spec struct {
	AgeFrom    *int     `json:"age_from,omitempty"`
	AgeUntil   *int     `json:"age_until,omitempty"`
	Country    *string  `json:"country,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// Profile carries the redeemer attributes targeting is evaluated against.
type Profile struct {
	Age     *int
	Country *string
}

// IsEmpty reports whether the spec carries no rules at all.
func (s Spec) IsEmpty() bool {
	return s.AgeFrom == nil && s.AgeUntil == nil && s.Country == nil && len(s.Categories) == 0
}

// Matches evaluates the spec against a profile. Country comparison is
// case-insensitive; age bounds are inclusive. A profile missing an attribute
// fails any rule that requires it.
func Matches(spec Spec, profile Profile) bool {
	if spec.IsEmpty() {
		return true
	}
	return matchesCountry(spec, profile) && matchesAge(spec, profile)
}

// MatchesCategory reports whether the spec targets the given category. Used
// by feed filtering only, never by activation.
func (s Spec) MatchesCategory(category string) bool {
	category = strings.TrimSpace(category)
	if category == "" {
		return true
	}
	for _, c := range s.Categories {
		if strings.EqualFold(strings.TrimSpace(c), category) {
			return true
		}
	}
	return false
}

func matchesCountry(spec Spec, profile Profile) bool {
	if spec.Country == nil {
		return true
	}
	if profile.Country == nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(*spec.Country), strings.TrimSpace(*profile.Country))
}

func matchesAge(spec Spec, profile Profile) bool {
	if spec.AgeFrom == nil && spec.AgeUntil == nil {
		return true
	}
	if profile.Age == nil {
		return false
	}
	age := *profile.Age
	if spec.AgeFrom != nil && age < *spec.AgeFrom {
		return false
	}
	if spec.AgeUntil != nil && age > *spec.AgeUntil {
		return false
	}
	return true
}
