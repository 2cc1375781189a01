// Package stepstate implements the merge, sanitation, and pruning pipeline
// for the campaign wizard's persisted step state.
package stepstate

// Merge deep-merges the incoming partial state into the existing state and
// returns a new map. Keys only in the existing state are preserved. For keys
// present in both, nested objects merge key by key; arrays and primitives are
// replaced wholesale. Neither input is mutated.
func Merge(existing, incoming map[string]any) map[string]any {
	out := make(map[string]any, len(existing)+len(incoming))
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range incoming {
		incomingObj, incomingIsObj := v.(map[string]any)
		existingObj, existingIsObj := out[k].(map[string]any)
		if incomingIsObj && existingIsObj {
			out[k] = Merge(existingObj, incomingObj)
			continue
		}
		out[k] = v
	}
	return out
}

// ApplyPatch runs the full write pipeline: sanitize the incoming patch, merge
// it into the existing state, sanitize the merged result, and prune it to
// strict JSON. A pruning violation rejects the whole write.
func ApplyPatch(existing, incoming map[string]any) (map[string]any, error) {
	if existing == nil {
		existing = map[string]any{}
	}
	merged := Merge(existing, Sanitize(incoming))
	pruned, err := PruneToJSON(Sanitize(merged))
	if err != nil {
		return nil, err
	}
	out, ok := pruned.(map[string]any)
	if !ok {
		return map[string]any{}, nil
	}
	return out, nil
}
