package query

import (
	"encoding/json"
)

// Project renders records as JSON objects reduced to the spec's field
// selection. "id" is always kept and the version field is always dropped.
func Project[T any](records []T, s Spec) ([]any, error) {
	out := make([]any, 0, len(records))
	if len(s.Fields) == 0 && len(s.Exclude) == 0 {
		for _, r := range records {
			out = append(out, r)
		}
		return out, nil
	}

	include := make(map[string]struct{}, len(s.Fields)+1)
	for _, f := range s.Fields {
		include[f] = struct{}{}
	}
	if len(include) > 0 {
		include["id"] = struct{}{}
	}

	for _, r := range records {
		raw, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, err
		}
		for key := range obj {
			if _, ok := include[key]; len(include) > 0 && !ok {
				delete(obj, key)
			}
		}
		for _, key := range s.Exclude {
			if key != "id" {
				delete(obj, key)
			}
		}
		delete(obj, VersionField)
		out = append(out, obj)
	}
	return out, nil
}
