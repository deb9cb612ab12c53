package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"schoolhub/internal/common"
)

// ExtractJSON pulls the JSON document out of a model reply. Markdown code
// fences are stripped and the outermost object or array is kept.
func ExtractJSON(reply string) (json.RawMessage, error) {
	s := strings.TrimSpace(reply)
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.LastIndex(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		s = strings.TrimSpace(rest)
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return nil, fmt.Errorf("no JSON in model reply: %w", common.ErrUpstream)
	}
	closer := "}"
	if s[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(s, closer)
	if end < start {
		return nil, fmt.Errorf("unterminated JSON in model reply: %w", common.ErrUpstream)
	}

	raw := json.RawMessage(s[start : end+1])
	if !json.Valid(raw) {
		return nil, fmt.Errorf("invalid JSON in model reply: %w", common.ErrUpstream)
	}
	return raw, nil
}

// Decode extracts JSON from reply into v.
func Decode(reply string, v interface{}) error {
	raw, err := ExtractJSON(reply)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode model reply: %v: %w", err, common.ErrUpstream)
	}
	return nil
}
