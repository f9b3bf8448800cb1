package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/timmy/personashop/internal/domain"
	"github.com/timmy/personashop/internal/llm"
	"github.com/timmy/personashop/internal/logger"
	"github.com/timmy/personashop/internal/metrics"
	"github.com/timmy/personashop/internal/prompts"
)

// Parser defaults applied when the provider omits a section.
const (
	defaultExplanation = "This product has been analyzed based on your profile."
	defaultPro         = "Meets basic nutritional requirements"
	defaultCon         = "Individual results may vary"
	defaultMatchScore  = 75

	fallbackCompareSummary = "All products meet basic safety requirements. Choose based on your budget and preferences."

	maxPromptIngredients = 10
	maxFeatureWords      = 6
)

// RecommendationResult is the analysis of one product for one profile.
type RecommendationResult struct {
	MatchScore  int
	Explanation string
	Pros        []string
	Cons        []string
	// Provider is the tag of the provider that produced the result, or
	// domain.ProviderRuleBased for the deterministic fallback.
	Provider string
}

// ComparisonResult summarizes a multi-product comparison.
type ComparisonResult struct {
	Summary      string
	BestChoiceID string
}

// Completer produces personalized analyses. Implementations never fail:
// provider errors degrade to deterministic results.
type Completer interface {
	Recommend(ctx context.Context, profile *domain.Profile, product *domain.Product) RecommendationResult
	Compare(ctx context.Context, profile *domain.Profile, products []domain.Product, prior []RecommendationResult) ComparisonResult
	KeyFeatures(ctx context.Context, product *domain.Product) [2]string
}

// CompletionClient builds prompts, calls the provider once and parses the
// reply. It is safe for concurrent use.
type CompletionClient struct {
	provider    llm.Provider
	temperature float32
	logger      *logger.Logger
}

// NewCompletionClient creates a completion client.
// Parameters:
//   - provider: text-completion provider (possibly breaker-wrapped).
//   - temperature: sampling temperature passed on every call.
//   - log: logger instance.
//
// Returns:
//   - *CompletionClient: initialized client.
func NewCompletionClient(provider llm.Provider, temperature float32, log *logger.Logger) *CompletionClient {
	if log == nil {
		log = logger.GetDefault()
	}
	return &CompletionClient{
		provider:    provider,
		temperature: temperature,
		logger:      log,
	}
}

func (c *CompletionClient) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return c.logger
}

// Recommend analyzes one product for one profile.
func (c *CompletionClient) Recommend(ctx context.Context, profile *domain.Profile, product *domain.Product) RecommendationResult {
	system := fmt.Sprintf(prompts.RecommendSystemPrompt, profile.ProfileCategory)
	content, err := c.complete(ctx, "recommend", system, buildRecommendPrompt(profile, product), prompts.RecommendMaxTokens)
	if err != nil {
		c.degraded(ctx, "recommend", product.ID, err)
		return fallbackRecommendation(profile, product)
	}
	res := parseRecommendation(content)
	res.Provider = c.provider.Name()
	return res
}

// Compare summarizes products against each other. prior holds the per-product
// analyses in the same order as products.
func (c *CompletionClient) Compare(ctx context.Context, profile *domain.Profile, products []domain.Product, prior []RecommendationResult) ComparisonResult {
	if len(products) == 0 {
		return ComparisonResult{Summary: fallbackCompareSummary}
	}
	system := fmt.Sprintf(prompts.CompareSystemPrompt, profile.ProfileCategory)
	content, err := c.complete(ctx, "compare", system, buildComparePrompt(profile, products, prior), prompts.CompareMaxTokens)
	if err != nil {
		c.degraded(ctx, "compare", "", err)
		return ComparisonResult{Summary: fallbackCompareSummary, BestChoiceID: products[0].ID}
	}
	return parseComparison(content, products)
}

// KeyFeatures returns two short highlights for a catalog card.
func (c *CompletionClient) KeyFeatures(ctx context.Context, product *domain.Product) [2]string {
	content, err := c.complete(ctx, "key_features", prompts.KeyFeaturesSystemPrompt, buildKeyFeaturesPrompt(product), prompts.KeyFeaturesMaxTokens)
	if err == nil {
		if features, ok := parseKeyFeatures(content); ok {
			return features
		}
		err = fmt.Errorf("expected 2 feature lines, got %q", content)
	}
	c.degraded(ctx, "key_features", product.ID, err)
	return fallbackKeyFeatures(product)
}

func (c *CompletionClient) complete(ctx context.Context, op, system, user string, maxTokens int) (string, error) {
	start := time.Now()
	content, err := c.provider.Complete(ctx, system, user, maxTokens, c.temperature)
	metrics.RecordCompletion(c.provider.Name(), op, err, time.Since(start))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "", llm.ErrEmptyResponse
	}
	return content, nil
}

func (c *CompletionClient) degraded(ctx context.Context, op, productID string, err error) {
	metrics.RecordFallback(op)
	c.log(ctx).WithFields(logger.Fields{
		logger.FieldProvider:  c.provider.Name(),
		logger.FieldProductID: productID,
		"operation":           op,
	}).WithError(err).Warn("Completion failed, using rule-based result")
}

// ============================================================================
// Prompt builders
// ============================================================================

func buildRecommendPrompt(profile *domain.Profile, product *domain.Product) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this product for a specific %s profile and provide a recommendation.\n\n", profile.ProfileCategory)
	writeProfileBlock(&b, profile)
	b.WriteString("\n")
	writeProductBlock(&b, product)
	b.WriteString("\n")
	fmt.Fprintf(&b, prompts.RecommendInstructions, profile.Name)
	return b.String()
}

func writeProfileBlock(b *strings.Builder, p *domain.Profile) {
	b.WriteString("PROFILE:\n")
	fmt.Fprintf(b, "- Name: %s\n", p.Name)
	fmt.Fprintf(b, "- Type: %s, Age: %s years\n", p.ProfileCategory, formatNumber(p.AgeYears))
	if p.SizeCategory != "" {
		fmt.Fprintf(b, "- Size: %s\n", p.SizeCategory)
	}
	if p.WeightLbs != nil {
		fmt.Fprintf(b, "- Weight: %s lbs\n", formatNumber(*p.WeightLbs))
	}
	fmt.Fprintf(b, "- Allergies: %s\n", joinOrNone(p.Allergies))
	fmt.Fprintf(b, "- Health Conditions: %s\n", joinOrNone(p.HealthConditions))
}

func writeProductBlock(b *strings.Builder, p *domain.Product) {
	attrs := p.Attributes
	b.WriteString("PRODUCT:\n")
	fmt.Fprintf(b, "- Name: %s\n", p.Name)
	if p.Brand != "" {
		fmt.Fprintf(b, "- Brand: %s\n", p.Brand)
	}
	if protein := attrs.PrimaryProtein(); protein != "" {
		fmt.Fprintf(b, "- Primary Protein: %s\n", protein)
	}
	if ingredients := attrs.Ingredients(); len(ingredients) > 0 {
		if len(ingredients) > maxPromptIngredients {
			ingredients = ingredients[:maxPromptIngredients]
		}
		fmt.Fprintf(b, "- Ingredients: %s\n", strings.Join(ingredients, ", "))
	}
	if allergens := attrs.Strings("ingredients.allergens"); len(allergens) > 0 {
		fmt.Fprintf(b, "- Allergens: %s\n", strings.Join(allergens, ", "))
	}
	if nutrition := attrs.Nutrition(); len(nutrition) > 0 {
		parts := make([]string, 0, len(nutrition))
		for _, n := range nutrition {
			parts = append(parts, formatNutrient(n))
		}
		fmt.Fprintf(b, "- Nutrition: %s\n", strings.Join(parts, ", "))
	}
	if stages := attrs.Strings("life_stage"); len(stages) > 0 {
		fmt.Fprintf(b, "- Life Stage: %s\n", strings.Join(stages, ", "))
	}
	if sizes := attrs.Strings("size_suitability"); len(sizes) > 0 {
		fmt.Fprintf(b, "- Size Suitability: %s\n", strings.Join(sizes, ", "))
	}
}

func buildComparePrompt(profile *domain.Profile, products []domain.Product, prior []RecommendationResult) string {
	var b strings.Builder
	subject := profile.ProfileCategory
	if profile.SizeCategory != "" {
		subject = profile.SizeCategory + " " + subject
	}
	fmt.Fprintf(&b, "Compare these products for a %s-year-old %s named %s with allergies to %s.\n\n",
		formatNumber(profile.AgeYears), subject, profile.Name, joinOrNone(profile.Allergies))

	for i, p := range products {
		fmt.Fprintf(&b, "PRODUCT %d: %s", i+1, p.Name)
		if p.Brand != "" {
			fmt.Fprintf(&b, " by %s", p.Brand)
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "- Price: $%.2f\n", p.Price)
		if i < len(prior) {
			r := prior[i]
			fmt.Fprintf(&b, "- Match Score: %d/100\n", r.MatchScore)
			fmt.Fprintf(&b, "- Key Pros: %s\n", strings.Join(firstN(r.Pros, 2), ", "))
			fmt.Fprintf(&b, "- Key Cons: %s\n", strings.Join(firstN(r.Cons, 2), ", "))
		}
		b.WriteString("\n")
	}
	b.WriteString(prompts.CompareInstructions)
	return b.String()
}

func buildKeyFeaturesPrompt(product *domain.Product) string {
	var b strings.Builder
	writeProductBlock(&b, product)
	if product.Description != "" {
		fmt.Fprintf(&b, "- Description: %s\n", product.Description)
	}
	b.WriteString("\n")
	b.WriteString(prompts.KeyFeaturesInstructions)
	return b.String()
}

// ============================================================================
// Response parsing
// ============================================================================

type section int

const (
	sectionNone section = iota
	sectionExplanation
	sectionPros
	sectionCons
)

// parseRecommendation reads the EXPLANATION/PROS/CONS/MATCH_SCORE layout,
// tolerating markdown decoration around headers and several bullet styles.
func parseRecommendation(content string) RecommendationResult {
	res := RecommendationResult{MatchScore: defaultMatchScore}
	var explanation []string
	current := sectionNone

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if key, rest, ok := splitHeader(line); ok {
			switch key {
			case "EXPLANATION":
				current = sectionExplanation
				if rest != "" {
					explanation = append(explanation, rest)
				}
			case "PROS":
				current = sectionPros
				if item, ok := bulletText(rest); ok {
					res.Pros = append(res.Pros, item)
				}
			case "CONS":
				current = sectionCons
				if item, ok := bulletText(rest); ok {
					res.Cons = append(res.Cons, item)
				}
			case "MATCH_SCORE":
				current = sectionNone
				if score, ok := parseScore(rest); ok {
					res.MatchScore = score
				}
			}
			continue
		}

		switch current {
		case sectionExplanation:
			explanation = append(explanation, line)
		case sectionPros, sectionCons:
			item, ok := bulletText(line)
			if !ok {
				continue
			}
			if current == sectionPros {
				res.Pros = append(res.Pros, item)
			} else {
				res.Cons = append(res.Cons, item)
			}
		}
	}

	res.Explanation = strings.Join(explanation, " ")
	if res.Explanation == "" {
		res.Explanation = defaultExplanation
	}
	if len(res.Pros) == 0 {
		res.Pros = []string{defaultPro}
	}
	if len(res.Cons) == 0 {
		res.Cons = []string{defaultCon}
	}
	return res
}

var headerKeys = map[string]bool{
	"EXPLANATION": true,
	"PROS":        true,
	"CONS":        true,
	"MATCH_SCORE": true,
}

// splitHeader recognizes "KEY: rest" lines such as "**Match Score:** 80".
func splitHeader(line string) (key, rest string, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}
	key = strings.ToUpper(strings.Trim(line[:idx], "*#_ "))
	key = strings.ReplaceAll(key, " ", "_")
	if !headerKeys[key] {
		return "", "", false
	}
	return key, strings.Trim(line[idx+1:], "*_ "), true
}

// bulletText strips a leading "-", "*" or "•" marker.
func bulletText(line string) (string, bool) {
	for _, marker := range []string{"-", "*", "•"} {
		if strings.HasPrefix(line, marker) {
			text := strings.TrimSpace(strings.TrimPrefix(line, marker))
			return text, text != ""
		}
	}
	return "", false
}

// parseScore reads a leading integer ("85", "[85]", "85/100") clamped to 0..100.
func parseScore(s string) (int, bool) {
	s = strings.TrimLeft(strings.TrimSpace(s), "[(")
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 100, true
	}
	return clampScore(n), true
}

func clampScore(n int) int {
	switch {
	case n < 0:
		return 0
	case n > 100:
		return 100
	}
	return n
}

// parseComparison splits the summary from the BEST_CHOICE line and matches
// the chosen name back to a product, defaulting to the first one.
func parseComparison(content string, products []domain.Product) ComparisonResult {
	res := ComparisonResult{BestChoiceID: products[0].ID}
	summary := content
	if idx := strings.Index(content, "BEST_CHOICE:"); idx >= 0 {
		summary = content[:idx]
		last := strings.LastIndex(content, "BEST_CHOICE:")
		choice := strings.ToLower(content[last+len("BEST_CHOICE:"):])
		for _, p := range products {
			name := strings.ToLower(strings.TrimSpace(p.Name))
			if name != "" && strings.Contains(choice, name) {
				res.BestChoiceID = p.ID
				break
			}
		}
	}
	res.Summary = strings.TrimSpace(summary)
	if res.Summary == "" {
		res.Summary = fallbackCompareSummary
	}
	return res
}

// parseKeyFeatures takes the first two non-empty lines, capped at six words.
func parseKeyFeatures(content string) ([2]string, bool) {
	var out []string
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if text, ok := bulletText(line); ok {
			line = text
		}
		line = strings.Trim(stripNumbering(line), "\"' ")
		if line == "" {
			continue
		}
		words := strings.Fields(line)
		if len(words) > maxFeatureWords {
			words = words[:maxFeatureWords]
		}
		out = append(out, strings.Join(words, " "))
		if len(out) == 2 {
			return [2]string{out[0], out[1]}, true
		}
	}
	return [2]string{}, false
}

// stripNumbering removes a "1." or "2)" list prefix.
func stripNumbering(line string) string {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		return strings.TrimSpace(line[i+1:])
	}
	return line
}

// ============================================================================
// Rule-based fallbacks
// ============================================================================

func fallbackRecommendation(profile *domain.Profile, product *domain.Product) RecommendationResult {
	_, hasAllergen := matchAllergen(profile.Allergies, product.Attributes.Allergens())

	protein := product.Attributes.PrimaryProtein()
	if protein == "" {
		protein = "standard"
	}
	brand := "Trusted brand"
	if product.Brand != "" {
		brand = "Trusted brand: " + product.Brand
	}

	res := RecommendationResult{
		MatchScore:  70,
		Explanation: fmt.Sprintf("This appears suitable for %s based on ingredient analysis.", profile.Name),
		Pros: []string{
			"Protein source: " + protein,
			"Complete and balanced formula",
			brand,
		},
		Cons: []string{
			"Always introduce new foods gradually",
			fmt.Sprintf("Consult your %s for specific dietary needs", advisorFor(profile.ProfileCategory)),
		},
		Provider: domain.ProviderRuleBased,
	}
	if hasAllergen {
		res.MatchScore = 40
		res.Explanation = fmt.Sprintf("This may not be suitable for %s based on ingredient analysis.", profile.Name)
		res.Cons[0] = "Allergen concern detected"
	}
	return res
}

func fallbackKeyFeatures(product *domain.Product) [2]string {
	attrs := product.Attributes
	first := "Complete and balanced formula"
	if protein := attrs.PrimaryProtein(); protein != "" {
		first = capitalize(protein) + " as primary protein"
	}
	second := "Quality everyday essential"
	if stages := attrs.Strings("life_stage"); len(stages) > 0 {
		second = "Formulated for " + strings.ToLower(stages[0])
	} else if product.Brand != "" {
		second = "Trusted " + product.Brand + " quality"
	}
	return [2]string{first, second}
}

// advisorFor names the professional a profile should consult.
func advisorFor(category string) string {
	switch category {
	case "baby":
		return "pediatrician"
	case "human":
		return "doctor"
	default:
		return "veterinarian"
	}
}

// ============================================================================
// Formatting helpers
// ============================================================================

func formatNutrient(n domain.Nutrient) string {
	name, pct := strings.CutSuffix(n.Name, "_pct")
	label := capitalize(strings.ReplaceAll(name, "_", " "))
	if pct {
		return fmt.Sprintf("%s: %s%%", label, formatNumber(n.Value))
	}
	return fmt.Sprintf("%s: %s", label, formatNumber(n.Value))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
