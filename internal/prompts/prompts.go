package prompts

// ============================================================================
// Recommendation Prompts
// ============================================================================

// RecommendSystemPrompt sets the role for single-product analysis. %s is the
// profile category, e.g. "dog" or "baby".
const RecommendSystemPrompt = `You are a %s nutrition and product safety expert providing personalized product recommendations. Be specific to the profile you are given and never invent ingredients or nutrition values.`

// RecommendInstructions follows the profile and product blocks and fixes the
// response layout the parser expects.
const RecommendInstructions = `Provide your analysis in this EXACT format:

EXPLANATION: [2-3 sentences explaining why this product is or isn't suitable for %s]

PROS:
- [Benefit 1]
- [Benefit 2]
- [Benefit 3]

CONS:
- [Consideration 1]
- [Consideration 2]

MATCH_SCORE: [0-100]`

// RecommendMaxTokens caps the recommendation response length.
const RecommendMaxTokens = 500

// ============================================================================
// Comparison Prompts
// ============================================================================

// CompareSystemPrompt sets the role for multi-product comparison.
const CompareSystemPrompt = `You are a %s nutrition and product safety expert comparing products for one specific profile.`

// CompareInstructions closes the comparison prompt. The BEST_CHOICE line is
// how the winner is matched back to a product.
const CompareInstructions = `Provide a 3-4 sentence comparison summary explaining which product is the best choice for THIS specific profile and why. Consider safety, nutritional fit, and value. End with: "BEST_CHOICE: [Product Name]"`

// CompareMaxTokens caps the comparison response length.
const CompareMaxTokens = 400

// ============================================================================
// Key Feature Prompts
// ============================================================================

// KeyFeaturesSystemPrompt sets the role for catalog copy.
const KeyFeaturesSystemPrompt = `You write short, factual product highlights for an online catalog. Only use facts present in the product data.`

// KeyFeaturesInstructions asks for exactly two lines.
const KeyFeaturesInstructions = `Write exactly 2 key features for this product, each at most 6 words, one per line, with no numbering or bullets.`

// KeyFeaturesMaxTokens caps the key-feature response length.
const KeyFeaturesMaxTokens = 60
