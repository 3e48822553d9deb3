package generation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// rawVariant is one variant as decoded from the service response,
// before cleaning and quality checks.
type rawVariant struct {
	Variant    string  `json:"variant"`
	Subject    string  `json:"subject"`
	Body       string  `json:"body"`
	CTA        string  `json:"cta"`
	Confidence float64 `json:"confidence"`
}

// serviceResponse is the top-level JSON object expected from the
// generative service. Variants is kept raw because the wire shape
// varies.
type serviceResponse struct {
	Variants           json.RawMessage `json:"variants"`
	RecommendedVariant string          `json:"recommended_variant"`
	Notes              string          `json:"notes"`
}

// parseServiceResponse decodes the completion text and normalizes the
// variant list.
func parseServiceResponse(raw string, requestedIDs []string) ([]rawVariant, string, error) {
	var resp serviceResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, "", fmt.Errorf("response is not a JSON object: %w", err)
	}
	variants, err := coerceVariants(resp.Variants, requestedIDs)
	if err != nil {
		return nil, "", err
	}
	return variants, strings.ToUpper(strings.TrimSpace(resp.RecommendedVariant)), nil
}

// coerceVariants normalizes the three wire shapes the service has been
// observed to produce into one uniform list:
//  1. array of variant objects
//  2. array of JSON-encoded strings, each holding a variant object
//  3. object keyed by variant id
//
// A variant without an id gets the next requested id in request order.
func coerceVariants(raw json.RawMessage, requestedIDs []string) ([]rawVariant, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("response has no variants field")
	}

	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, fmt.Errorf("response has no variants field")
	}

	var out []rawVariant
	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("variants array malformed: %w", err)
		}
		for _, item := range items {
			v, err := decodeVariantItem(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
	case '{':
		var byID map[string]json.RawMessage
		if err := json.Unmarshal(raw, &byID); err != nil {
			return nil, fmt.Errorf("variants object malformed: %w", err)
		}
		ids := make([]string, 0, len(byID))
		for id := range byID {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			v, err := decodeVariantItem(byID[id])
			if err != nil {
				return nil, err
			}
			if v.Variant == "" {
				v.Variant = id
			}
			out = append(out, v)
		}
	default:
		return nil, fmt.Errorf("variants has unsupported wire shape: %s", previewText(trimmed))
	}

	assignMissingIDs(out, requestedIDs)
	return out, nil
}

// decodeVariantItem handles one array element: either a variant object
// or a JSON-encoded string holding one.
func decodeVariantItem(item json.RawMessage) (rawVariant, error) {
	var v rawVariant
	if err := json.Unmarshal(item, &v); err == nil {
		return v, nil
	}

	var encoded string
	if err := json.Unmarshal(item, &encoded); err != nil {
		return rawVariant{}, fmt.Errorf("variant item is neither object nor string: %s", previewText(string(item)))
	}
	if err := json.Unmarshal([]byte(encoded), &v); err != nil {
		return rawVariant{}, fmt.Errorf("variant string does not decode to an object: %w", err)
	}
	return v, nil
}

// assignMissingIDs fills blank variant ids with the next unused
// requested id, in request order.
func assignMissingIDs(variants []rawVariant, requestedIDs []string) {
	used := make(map[string]bool)
	for i := range variants {
		variants[i].Variant = strings.ToUpper(strings.TrimSpace(variants[i].Variant))
		if variants[i].Variant != "" {
			used[variants[i].Variant] = true
		}
	}

	next := 0
	for i := range variants {
		if variants[i].Variant != "" {
			continue
		}
		for next < len(requestedIDs) && used[requestedIDs[next]] {
			next++
		}
		if next < len(requestedIDs) {
			variants[i].Variant = requestedIDs[next]
			used[requestedIDs[next]] = true
			next++
		} else {
			variants[i].Variant = fmt.Sprintf("X%d", i)
		}
	}
}

func previewText(s string) string {
	if len(s) > 80 {
		return s[:80] + "..."
	}
	return s
}
