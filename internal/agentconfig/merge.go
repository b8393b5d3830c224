package agentconfig

import (
	"encoding/json"
	"fmt"
)

// Merge deep-merges override onto base and returns a new map. Keys
// absent from override keep the base value; an explicit null override
// clears the key; arrays replace wholesale; nested objects merge
// recursively. Neither input is mutated.
func Merge(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		result[k] = cloneValue(v)
	}
	for k, ov := range override {
		if om, ok := ov.(map[string]any); ok {
			if bm, ok := base[k].(map[string]any); ok {
				result[k] = Merge(bm, om)
				continue
			}
		}
		result[k] = cloneValue(ov)
	}
	return result
}

// Apply merges raw overrides onto a typed config and decodes the result
// back through the strict schema, so malformed overrides surface as
// SCHEMA_INVALID rather than silently landing on disk.
func Apply(base *AgentConfig, overrides map[string]any) (*AgentConfig, error) {
	raw, err := json.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("marshal base config: %w", err)
	}
	var baseMap map[string]any
	if err := json.Unmarshal(raw, &baseMap); err != nil {
		return nil, fmt.Errorf("unmarshal base config: %w", err)
	}

	merged, err := json.Marshal(Merge(baseMap, overrides))
	if err != nil {
		return nil, fmt.Errorf("marshal merged config: %w", err)
	}
	return Decode(merged)
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return val
	}
}
