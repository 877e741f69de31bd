package reqobj

import "encoding/json"

func unmarshalJSON(raw string, v any) error {
	return json.Unmarshal([]byte(raw), v)
}
