package domain

// ProfileDefaults are the field values a preset pre-fills on a new profile.
type ProfileDefaults struct {
	ProfileCategory  string                 `json:"profile_category"`
	AgeYears         float64                `json:"age_years"`
	WeightLbs        float64                `json:"weight_lbs"`
	SizeCategory     string                 `json:"size_category,omitempty"`
	Allergies        []string               `json:"allergies"`
	HealthConditions []string               `json:"health_conditions"`
	Preferences      map[string]interface{} `json:"preferences"`
	ProfileData      map[string]interface{} `json:"profile_data"`
}

// ProfilePreset is one quick-setup template.
type ProfilePreset struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Defaults    ProfileDefaults `json:"defaults"`
}

// TemplateCategory groups presets for a profile category.
type TemplateCategory struct {
	Name    string          `json:"name"`
	Icon    string          `json:"icon"`
	Presets []ProfilePreset `json:"presets"`
}

// TemplateCategories lists the categories that have presets, in display order.
var TemplateCategories = []string{"dog", "cat", "baby", "human"}

// ProfileTemplates returns the static preset catalog keyed by category.
// A fresh copy is built on every call so callers may mutate the result.
func ProfileTemplates() map[string]TemplateCategory {
	none := []string{}
	return map[string]TemplateCategory{
		"dog": {
			Name: "Dog Profiles",
			Icon: "🐕",
			Presets: []ProfilePreset{
				{
					ID: "small-puppy", Name: "Small Breed Puppy",
					Description: "For puppies under 20 lbs, 0-1 year",
					Defaults: ProfileDefaults{
						ProfileCategory: "dog", AgeYears: 0.5, WeightLbs: 10, SizeCategory: SizeSmall,
						Allergies: none, HealthConditions: none,
						Preferences: map[string]interface{}{"life_stage": "puppy", "grain_free": false, "price_range": "mid"},
						ProfileData: map[string]interface{}{"activity_level": "high", "breed_size": "small"},
					},
				},
				{
					ID: "adult-dog-allergies", Name: "Adult Dog with Allergies",
					Description: "For adult dogs with common food sensitivities",
					Defaults: ProfileDefaults{
						ProfileCategory: "dog", AgeYears: 4, WeightLbs: 50, SizeCategory: SizeMedium,
						Allergies: []string{"chicken", "beef"}, HealthConditions: []string{"sensitive_stomach"},
						Preferences: map[string]interface{}{"grain_free": true, "price_range": "mid"},
						ProfileData: map[string]interface{}{"activity_level": "moderate"},
					},
				},
				{
					ID: "senior-large-dog", Name: "Senior Large Breed",
					Description: "For large dogs 7+ years, joint support needed",
					Defaults: ProfileDefaults{
						ProfileCategory: "dog", AgeYears: 8, WeightLbs: 80, SizeCategory: SizeLarge,
						Allergies: none, HealthConditions: []string{"joint_issues"},
						Preferences: map[string]interface{}{"grain_free": false, "price_range": "high"},
						ProfileData: map[string]interface{}{"activity_level": "low", "special_needs": []string{"joint_support", "lower_calories"}},
					},
				},
			},
		},
		"cat": {
			Name: "Cat Profiles",
			Icon: "🐈",
			Presets: []ProfilePreset{
				{
					ID: "kitten", Name: "Kitten",
					Description: "For kittens under 1 year old",
					Defaults: ProfileDefaults{
						ProfileCategory: "cat", AgeYears: 0.5, WeightLbs: 5, SizeCategory: SizeSmall,
						Allergies: none, HealthConditions: none,
						Preferences: map[string]interface{}{"wet_food": true, "price_range": "mid"},
						ProfileData: map[string]interface{}{"indoor": true, "activity_level": "high"},
					},
				},
				{
					ID: "indoor-adult-cat", Name: "Indoor Adult Cat",
					Description: "For indoor adult cats 1-7 years",
					Defaults: ProfileDefaults{
						ProfileCategory: "cat", AgeYears: 3, WeightLbs: 10, SizeCategory: SizeMedium,
						Allergies: none, HealthConditions: none,
						Preferences: map[string]interface{}{"hairball_control": true, "price_range": "mid"},
						ProfileData: map[string]interface{}{"indoor": true, "activity_level": "moderate"},
					},
				},
				{
					ID: "senior-cat", Name: "Senior Cat",
					Description: "For cats 7+ years, kidney health focus",
					Defaults: ProfileDefaults{
						ProfileCategory: "cat", AgeYears: 10, WeightLbs: 9, SizeCategory: SizeMedium,
						Allergies: none, HealthConditions: []string{"kidney_health"},
						Preferences: map[string]interface{}{"wet_food": true, "price_range": "high"},
						ProfileData: map[string]interface{}{"indoor": true, "activity_level": "low", "special_needs": []string{"kidney_support", "lower_protein"}},
					},
				},
			},
		},
		"baby": {
			Name: "Baby Profiles",
			Icon: "👶",
			Presets: []ProfilePreset{
				{
					ID: "newborn", Name: "Newborn (0-3 months)",
					Description: "For newborns, formula/bottle focus",
					Defaults: ProfileDefaults{
						ProfileCategory: "baby", AgeYears: 0.1, WeightLbs: 10,
						Allergies: none, HealthConditions: none,
						Preferences: map[string]interface{}{"organic": true, "price_range": "mid"},
						ProfileData: map[string]interface{}{"feeding_type": "formula", "concerns": none, "age_months": 2},
					},
				},
				{
					ID: "baby-allergies", Name: "Baby with Allergies",
					Description: "For babies with dairy/soy sensitivities",
					Defaults: ProfileDefaults{
						ProfileCategory: "baby", AgeYears: 0.5, WeightLbs: 15,
						Allergies: []string{"dairy", "soy"}, HealthConditions: []string{"eczema"},
						Preferences: map[string]interface{}{"hypoallergenic": true, "price_range": "high"},
						ProfileData: map[string]interface{}{"feeding_type": "specialized_formula", "concerns": []string{"reflux", "eczema"}, "age_months": 6},
					},
				},
				{
					ID: "toddler", Name: "Toddler (1-3 years)",
					Description: "For toddlers transitioning to solid foods",
					Defaults: ProfileDefaults{
						ProfileCategory: "baby", AgeYears: 2, WeightLbs: 25,
						Allergies: none, HealthConditions: none,
						Preferences: map[string]interface{}{"organic": true, "price_range": "mid"},
						ProfileData: map[string]interface{}{"feeding_type": "mixed", "concerns": none, "age_months": 24, "dietary_needs": []string{"calcium", "iron"}},
					},
				},
			},
		},
		"human": {
			Name: "Adult Profiles",
			Icon: "👤",
			Presets: []ProfilePreset{
				{
					ID: "fitness-enthusiast", Name: "Fitness Enthusiast",
					Description: "For active adults focused on fitness",
					Defaults: ProfileDefaults{
						ProfileCategory: "human", AgeYears: 30, WeightLbs: 160,
						Allergies: none, HealthConditions: none,
						Preferences: map[string]interface{}{"dietary_preference": "high_protein", "price_range": "mid"},
						ProfileData: map[string]interface{}{"fitness_goal": "muscle_gain", "activity_level": "very_high", "dietary_restrictions": none},
					},
				},
				{
					ID: "vegan-lifestyle", Name: "Vegan Lifestyle",
					Description: "For plant-based diet followers",
					Defaults: ProfileDefaults{
						ProfileCategory: "human", AgeYears: 28, WeightLbs: 140,
						Allergies: none, HealthConditions: none,
						Preferences: map[string]interface{}{"dietary_preference": "vegan", "organic": true, "price_range": "high"},
						ProfileData: map[string]interface{}{"fitness_goal": "maintain", "activity_level": "moderate", "dietary_restrictions": []string{"meat", "dairy", "eggs"}},
					},
				},
				{
					ID: "health-conscious-senior", Name: "Health-Conscious Senior",
					Description: "For seniors focused on heart health",
					Defaults: ProfileDefaults{
						ProfileCategory: "human", AgeYears: 65, WeightLbs: 170,
						Allergies: none, HealthConditions: []string{"heart_health", "diabetes"},
						Preferences: map[string]interface{}{"dietary_preference": "low_sodium", "organic": true, "price_range": "high"},
						ProfileData: map[string]interface{}{"fitness_goal": "health_maintenance", "activity_level": "light", "special_needs": []string{"low_sugar", "heart_healthy"}},
					},
				},
			},
		},
	}
}

// FindPreset returns the preset with id in category.
func FindPreset(category, id string) (ProfilePreset, bool) {
	tc, ok := ProfileTemplates()[category]
	if !ok {
		return ProfilePreset{}, false
	}
	for _, p := range tc.Presets {
		if p.ID == id {
			return p, true
		}
	}
	return ProfilePreset{}, false
}
