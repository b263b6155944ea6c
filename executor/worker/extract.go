package worker

import (
	"encoding/json"
	"fmt"

	"github.com/jmespath/go-jmespath"
)

// extractField returns the value at path in a JSON body, or a diagnostic string when the
// body cannot be parsed or the path is absent.
func extractField(body []byte, path string) string {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return fmt.Sprintf("invalid json: %v", err)
	}
	value, err := jmespath.Search(path, data)
	if err != nil {
		return fmt.Sprintf("invalid path %q: %v", path, err)
	}
	switch v := value.(type) {
	case nil:
		return fmt.Sprintf("missing %s", path)
	case string:
		return v
	case float64:
		return fmt.Sprintf("%g", v)
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("unprintable %s: %v", path, err)
		}
		return string(encoded)
	}
}
