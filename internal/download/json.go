package download

import "encoding/json"

// marshalJSON serializes v for storage in a TEXT column, returning "null"
// verbatim on a nil pointer so the column is never left as an empty string.
func marshalJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}

// unmarshalJSON decodes a TEXT column back into dst, swallowing malformed
// rows rather than failing the whole scan.
func unmarshalJSON(data string, dst interface{}) {
	_ = json.Unmarshal([]byte(data), dst)
}
