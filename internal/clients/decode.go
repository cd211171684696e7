package clients

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type envelope struct {
	Count    *int            `json:"count"`
	Next     *string         `json:"next"`
	Previous *string         `json:"previous"`
	Results  json.RawMessage `json:"results"`
}

// DecodeList accepts either a bare JSON array or a paginated envelope
// {count, next, previous, results} and returns the items plus the total
// count. For a bare array the count is its length.
func DecodeList[T any](raw []byte) ([]T, int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, 0, fmt.Errorf("empty body: %w", ErrUnrecognizedShape)
	}

	switch raw[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, 0, fmt.Errorf("decode list: %w", err)
		}
		if items == nil {
			items = []T{}
		}
		return items, len(items), nil

	case '{':
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, 0, fmt.Errorf("decode envelope: %w", err)
		}
		results := bytes.TrimSpace(env.Results)
		if len(results) == 0 || results[0] != '[' {
			return nil, 0, fmt.Errorf("object without results list: %w", ErrUnrecognizedShape)
		}
		var items []T
		if err := json.Unmarshal(results, &items); err != nil {
			return nil, 0, fmt.Errorf("decode results: %w", err)
		}
		if items == nil {
			items = []T{}
		}
		count := len(items)
		if env.Count != nil {
			count = *env.Count
		}
		return items, count, nil

	default:
		return nil, 0, fmt.Errorf("unexpected %q: %w", raw[0], ErrUnrecognizedShape)
	}
}
