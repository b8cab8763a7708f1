package docstore

import (
	"encoding/json"
	"fmt"
)

// mergePatch applies an RFC 7386 JSON merge patch to target. Objects
// merge recursively, a null member deletes the key, and everything
// else (arrays, scalars) replaces the target value.
func mergePatch(target, patch []byte) ([]byte, error) {
	var patchVal interface{}
	if err := json.Unmarshal(patch, &patchVal); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPatch, err)
	}

	patchObj, ok := patchVal.(map[string]interface{})
	if !ok {
		// Non-object patch replaces the whole target.
		return json.Marshal(patchVal)
	}

	var targetVal interface{}
	if len(target) > 0 {
		if err := json.Unmarshal(target, &targetVal); err != nil {
			return nil, fmt.Errorf("failed to decode stored payload: %w", err)
		}
	}
	targetObj, ok := targetVal.(map[string]interface{})
	if !ok {
		targetObj = map[string]interface{}{}
	}

	merged, err := json.Marshal(mergeObjects(targetObj, patchObj))
	if err != nil {
		return nil, fmt.Errorf("failed to encode merged payload: %w", err)
	}
	return merged, nil
}

func mergeObjects(target, patch map[string]interface{}) map[string]interface{} {
	for key, patchValue := range patch {
		if patchValue == nil {
			delete(target, key)
			continue
		}
		patchObj, patchIsObj := patchValue.(map[string]interface{})
		targetObj, targetIsObj := target[key].(map[string]interface{})
		if patchIsObj && targetIsObj {
			target[key] = mergeObjects(targetObj, patchObj)
			continue
		}
		if patchIsObj {
			// Merging into a non-object starts from empty.
			target[key] = mergeObjects(map[string]interface{}{}, patchObj)
			continue
		}
		target[key] = patchValue
	}
	return target
}
