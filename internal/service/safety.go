package service

import (
	"fmt"
	"slices"
	"strings"

	"github.com/timmy/personashop/internal/domain"
)

// SafetyFilter decides whether a product may be recommended to a profile.
// It is pure and deterministic. Allergen and life-stage failures reject the
// product; a size mismatch only adds an advisory reason.
type SafetyFilter struct{}

// Check returns whether product is safe for profile and why not (or what to
// note). Checks short-circuit on the first rejection.
func (SafetyFilter) Check(profile *domain.Profile, product *domain.Product) (bool, []string) {
	var reasons []string
	attrs := product.Attributes

	if allergen, ok := matchAllergen(profile.Allergies, attrs.Allergens()); ok {
		return false, []string{fmt.Sprintf("Contains %s allergen", allergen)}
	}

	if stages := attrs.LifeStages(); len(stages) > 0 {
		category := profile.ProfileCategory
		switch age := profile.AgeYears; {
		case age < 1:
			juvenile := domain.JuvenileStage(category)
			if !slices.Contains(stages, juvenile) {
				return false, []string{fmt.Sprintf("Not formulated for %ss", juvenile)}
			}
		case age < 7:
			if !slices.Contains(stages, "adult") && !slices.Contains(stages, "all_life_stages") {
				return false, []string{fmt.Sprintf("Not formulated for adult %ss", category)}
			}
		}
	}

	if size := profile.SizeCategory; size != "" {
		suits := attrs.SizeSuitability()
		if len(suits) > 0 && !slices.Contains(suits, "all_sizes") && !slices.Contains(suits, size) {
			reasons = append(reasons, fmt.Sprintf("Not optimized for %s %ss", size, profile.ProfileCategory))
		}
	}

	return true, reasons
}

// matchAllergen reports the first profile allergy found as a substring of any
// product allergen token.
func matchAllergen(allergies []string, productAllergens []string) (string, bool) {
	for _, allergy := range domain.NormalizeTokens(allergies) {
		for _, pa := range productAllergens {
			if strings.Contains(pa, allergy) {
				return allergy, true
			}
		}
	}
	return "", false
}
