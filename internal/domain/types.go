package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned by repositories when a record does not resolve.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique record already exists.
	ErrDuplicate = errors.New("record already exists")
)

// StringArray is a custom type for storing string arrays as JSON in the database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the slice.
//   - error: non-nil if marshaling fails.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	b := rawBytes(value)
	if b == nil {
		return errors.New("failed to scan StringArray")
	}
	return json.Unmarshal(b, a)
}

// NormalizeTokens lower-cases and trims each token, dropping empties and
// duplicates while keeping first-seen order.
func NormalizeTokens(tokens []string) StringArray {
	out := make(StringArray, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// NormalizeStage maps "All Life Stages" and "all-life-stages" to "all_life_stages".
func NormalizeStage(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

func rawBytes(value interface{}) []byte {
	switch v := value.(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	default:
		return nil
	}
}

// Attributes is the open attribute bag stored on a product. Only the paths
// read by the safety filter and prompt builder have typed accessors.
type Attributes map[string]interface{}

// Value implements the driver.Valuer interface.
func (a Attributes) Value() (driver.Value, error) {
	if a == nil {
		return "{}", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface.
func (a *Attributes) Scan(value interface{}) error {
	if value == nil {
		*a = Attributes{}
		return nil
	}
	b := rawBytes(value)
	if b == nil {
		return errors.New("failed to scan Attributes")
	}
	return json.Unmarshal(b, a)
}

// Lookup walks a dotted path such as "ingredients.allergens".
func (a Attributes) Lookup(path string) (interface{}, bool) {
	var cur interface{} = map[string]interface{}(a)
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Strings returns the string list at path; non-string items are skipped.
func (a Attributes) Strings(path string) []string {
	v, ok := a.Lookup(path)
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return list
	case StringArray:
		return list
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if list == "" {
			return nil
		}
		return []string{list}
	}
	return nil
}

// String returns the string at path, or "" when absent.
func (a Attributes) String(path string) string {
	v, ok := a.Lookup(path)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Number returns the numeric value at path.
func (a Attributes) Number(path string) (float64, bool) {
	v, ok := a.Lookup(path)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Allergens returns declared and hidden allergens, lower-cased.
func (a Attributes) Allergens() []string {
	declared := a.Strings("ingredients.allergens")
	hidden := a.Strings("ingredients.contains")
	out := make([]string, 0, len(declared)+len(hidden))
	for _, s := range append(append([]string{}, declared...), hidden...) {
		out = append(out, strings.ToLower(s))
	}
	return out
}

// Ingredients returns the full ingredient list in label order.
func (a Attributes) Ingredients() []string {
	return a.Strings("ingredients.full_list")
}

// LifeStages returns normalized life-stage tokens.
func (a Attributes) LifeStages() []string {
	raw := a.Strings("life_stage")
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = NormalizeStage(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SizeSuitability returns normalized size tokens.
func (a Attributes) SizeSuitability() []string {
	raw := a.Strings("size_suitability")
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = NormalizeStage(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// PrimaryProtein returns the declared primary protein, if any.
func (a Attributes) PrimaryProtein() string {
	return a.String("primary_protein")
}

// Nutrient is one entry of the nutrition sub-map.
type Nutrient struct {
	Name  string
	Value float64
}

// Nutrition returns numeric nutrition fields in a fixed order followed by
// any extra numeric fields sorted by name.
func (a Attributes) Nutrition() []Nutrient {
	v, ok := a.Lookup("nutrition")
	if !ok {
		return nil
	}
	m, ok := asMap(v)
	if !ok {
		return nil
	}
	order := []string{"protein_pct", "fat_pct", "fiber_pct", "moisture_pct", "calories_per_cup"}
	seen := make(map[string]bool, len(order))
	var out []Nutrient
	for _, k := range order {
		if n, ok := a.Number("nutrition." + k); ok {
			out = append(out, Nutrient{Name: k, Value: n})
		}
		seen[k] = true
	}
	var extra []string
	for k := range m {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		if n, ok := a.Number("nutrition." + k); ok {
			out = append(out, Nutrient{Name: k, Value: n})
		}
	}
	return out
}

// KeyFeatures returns the cached AI key features when exactly two are present.
func (a Attributes) KeyFeatures() ([2]string, bool) {
	list := a.Strings("ai_key_features")
	if len(list) < 2 || list[0] == "" || list[1] == "" {
		return [2]string{}, false
	}
	return [2]string{list[0], list[1]}, true
}

// SetKeyFeatures stores the key features on the attribute bag.
func (a Attributes) SetKeyFeatures(features [2]string) {
	a["ai_key_features"] = []interface{}{features[0], features[1]}
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case Attributes:
		return m, true
	}
	return nil, false
}
