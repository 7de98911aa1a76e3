package detection

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ironsheep/answer-eraser/internal/geometry"
)

var errNoArray = errors.New("no JSON array in answer")

// jsonArray cuts the outermost [...] span out of a model answer, dropping
// code fences and any prose around it.
func jsonArray(answer string) (string, error) {
	s := strings.TrimSpace(answer)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start < 0 || end < start {
		return "", errNoArray
	}
	return s[start : end+1], nil
}

// parseBoxes reads a JSON array of normalized {x, y, width, height} boxes.
func parseBoxes(answer string) ([]geometry.NormalizedRegion, error) {
	raw, err := jsonArray(answer)
	if err != nil {
		return nil, err
	}
	var boxes []geometry.NormalizedRegion
	if err := json.Unmarshal([]byte(raw), &boxes); err != nil {
		return nil, fmt.Errorf("failed to decode boxes: %w", err)
	}
	return boxes, nil
}

// parseIndices reads a JSON array of block indices. Whole-number floats
// are accepted; anything else fails.
func parseIndices(answer string) ([]int, error) {
	raw, err := jsonArray(answer)
	if err != nil {
		return nil, err
	}
	var values []float64
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("failed to decode indices: %w", err)
	}
	out := make([]int, len(values))
	for i, v := range values {
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("index %v is not a whole number", v)
		}
		out[i] = int(v)
	}
	return out, nil
}
