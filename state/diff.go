// Package state holds the shared state records that components synchronize
// to the client, and the diffing that decides what actually gets sent.
//
// State is encoded to a generic JSON tree before comparison, so the diff is
// exactly what the client would observe: nested records are diffed field by
// field, and anything else (lists, scalars) is compared deeply and sent whole
// when it changed.
package state

import (
	"encoding/json"
	"fmt"

	"github.com/google/go-cmp/cmp"
)

// Encode converts a state record into the JSON tree used for diffing.
func Encode(v interface{}) (map[string]interface{}, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var tree map[string]interface{}
	if err := json.Unmarshal(buf, &tree); err != nil {
		return nil, fmt.Errorf("state does not encode to an object: %w", err)
	}
	return tree, nil
}

// normalize converts a value to its JSON tree representation.
func normalize(v interface{}) (interface{}, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	err = json.Unmarshal(buf, &out)
	return out, err
}

// Diff returns the fields of current that differ from previous. Fields that
// exist only in previous are included with a nil value.
func Diff(previous, current map[string]interface{}) map[string]interface{} {
	diff := make(map[string]interface{})
	for name, value := range current {
		old, existed := previous[name]
		if existed && cmp.Equal(old, value) {
			continue
		}

		oldRecord, oldIsRecord := old.(map[string]interface{})
		newRecord, newIsRecord := value.(map[string]interface{})
		if existed && oldIsRecord && newIsRecord {
			if nested := Diff(oldRecord, newRecord); len(nested) > 0 {
				diff[name] = nested
			}
			continue
		}

		diff[name] = value
	}

	for name := range previous {
		if _, exists := current[name]; !exists {
			diff[name] = nil
		}
	}
	return diff
}
