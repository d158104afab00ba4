package extraction

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/bidwin/internal/ai"
	"github.com/spigell/bidwin/internal/tender"
)

// Normalize parses the reasoning capability output into requirements and required
// test names. Shapes are coerced where possible; sub-fields are not validated.
func Normalize(raw string) ([]tender.Requirement, []string, error) {
	cleaned := ai.ExtractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, nil, &tender.ExtractionError{Raw: raw, Err: err}
	}

	requirements := make([]tender.Requirement, 0)
	for i, item := range asList(data["items"]) {
		if item == nil {
			continue
		}
		req, err := decodeRequirement(item)
		if err != nil {
			return nil, nil, &tender.ExtractionError{Raw: raw, Err: fmt.Errorf("item %d: %w", i, err)}
		}
		requirements = append(requirements, req)
	}

	tests := make([]string, 0)
	for _, test := range asList(data["tests"]) {
		if name := ai.CoerceString(test); name != "" {
			tests = append(tests, name)
		}
	}

	return requirements, tests, nil
}

func asList(v any) []any {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		return val
	default:
		return []any{val}
	}
}

func decodeRequirement(item any) (tender.Requirement, error) {
	var req tender.Requirement

	// Anything that is not an object names the item on its own.
	if _, ok := item.(map[string]any); !ok {
		req.ItemName = ai.CoerceString(item)
		return req, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       structuredToText,
		WeaklyTypedInput: true,
		Result:           &req,
	})
	if err != nil {
		return req, err
	}

	if err := decoder.Decode(item); err != nil {
		return req, err
	}

	req.ItemName = strings.TrimSpace(req.ItemName)
	req.Specs = strings.TrimSpace(req.Specs)
	req.Quantity = strings.TrimSpace(req.Quantity)

	return req, nil
}

// structuredToText renders objects and lists as JSON text when a string is expected,
// models often return "specs" as a nested object.
func structuredToText(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Map, reflect.Slice:
		return ai.CoerceString(data), nil
	default:
		return data, nil
	}
}
