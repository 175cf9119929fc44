package domain

// Preferences is the free-form nested settings blob attached to a user.
type Preferences map[string]any

// DefaultPreferences returns a fresh copy of the settings every new user starts with.
func DefaultPreferences() Preferences {
	return Preferences{
		"notifications": map[string]any{
			"push":         true,
			"email":        true,
			"nearbyPlaces": true,
		},
		"privacy": map[string]any{
			"profileVisibility": "public",
			"showOnLeaderboard": true,
			"shareLocation":     false,
		},
		"discovery": map[string]any{
			"radiusKm": 10,
			"units":    "metric",
		},
	}
}

// MergePreferences deep-merges override into base and returns the result.
// Nested maps are merged key by key; any other value in override replaces
// the one in base. Neither argument is modified.
func MergePreferences(base, override Preferences) Preferences {
	out := make(Preferences, len(base)+len(override))
	for k, v := range base {
		out[k] = cloneValue(v)
	}
	for k, v := range override {
		bm, bok := out[k].(map[string]any)
		om, ook := asMap(v)
		if bok && ook {
			out[k] = map[string]any(MergePreferences(bm, om))
			continue
		}
		out[k] = cloneValue(v)
	}
	return out
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Preferences:
		return m, true
	}
	return nil, false
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(MergePreferences(nil, t))
	case Preferences:
		return map[string]any(MergePreferences(nil, t))
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
