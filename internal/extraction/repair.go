// Package extraction obtains a complete FactSet and line items for a
// classified document from an unreliable structured-output collaborator.
// The repair cascade is what lets the rest of the pipeline assume parseable
// input: callers always receive complete data, never an exception and never
// a partial map, regardless of collaborator behavior.
package extraction

import (
	"encoding/json"
	"strings"
)

// RepairStage names the cascade stage that produced parseable output, for
// observability. StageNone means the raw response parsed directly.
type RepairStage string

const (
	StageNone       RepairStage = "none"
	StageBalanced   RepairStage = "balanced"
	StageAggressive RepairStage = "aggressive"
	StageSalvage    RepairStage = "salvage"
	StageFailed     RepairStage = "failed"
)

// Repair runs the cascade in order and stops at the first stage that yields
// valid JSON. salvageField names the list-valued sub-field worth recovering
// on its own when the rest of the object is lost.
func Repair(raw, salvageField string) ([]byte, RepairStage) {
	stripped := stripFences(raw)

	// Trailing prose is only cut for the direct attempt: on a truncated
	// response the same cut would discard salvageable content.
	if direct := trimAfterLastClose(stripped); json.Valid([]byte(direct)) && strings.HasPrefix(direct, "{") {
		return []byte(direct), StageNone
	}

	if span, ok := balancedObject(stripped); ok && json.Valid([]byte(span)) {
		return []byte(span), StageBalanced
	}

	if repaired, ok := aggressiveRepair(stripped); ok {
		return repaired, StageAggressive
	}

	if salvaged, ok := salvageArray(stripped, salvageField); ok {
		return salvaged, StageSalvage
	}

	return nil, StageFailed
}

// stripFences removes code-fence markup and any prose before the first
// opening bracket.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+3:]
		s = strings.TrimPrefix(s, "json")
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
	}
	s = strings.TrimSpace(s)

	if start := strings.IndexAny(s, "{["); start > 0 {
		s = s[start:]
	}
	return strings.TrimSpace(s)
}

// trimAfterLastClose drops anything after the last closing bracket.
func trimAfterLastClose(s string) string {
	if end := strings.LastIndexAny(s, "}]"); end >= 0 && end < len(s)-1 {
		return s[:end+1]
	}
	return s
}

// balancedObject extracts the first balanced {...} span, honoring strings
// and escapes.
func balancedObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// aggressiveRepair closes an unterminated quoted value, strips trailing
// separators, and balances unclosed brackets in nesting order.
func aggressiveRepair(s string) ([]byte, bool) {
	start := strings.Index(s, "{")
	if start < 0 {
		return nil, false
	}
	s = s[start:]

	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			stack = append(stack, '}')
		case c == '[':
			stack = append(stack, ']')
		case c == '}' || c == ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if inString {
		s += `"`
	}
	s = strings.TrimRight(s, " \t\r\n")
	s = strings.TrimRight(s, ",")
	if strings.HasSuffix(s, ":") {
		s += " null"
	}
	for i := len(stack) - 1; i >= 0; i-- {
		s += string(stack[i])
	}

	if !json.Valid([]byte(s)) {
		return nil, false
	}
	return []byte(s), true
}

// salvageArray recovers only the named list-valued field, wrapped back into
// an object, when nothing else survives.
func salvageArray(s, field string) ([]byte, bool) {
	if field == "" {
		return nil, false
	}
	marker := `"` + field + `"`
	idx := strings.Index(s, marker)
	if idx < 0 {
		return nil, false
	}
	rest := s[idx+len(marker):]
	open := strings.Index(rest, "[")
	if open < 0 {
		return nil, false
	}

	candidate := "{" + marker + ":" + rest[open:]
	if repaired, ok := aggressiveRepair(candidate); ok {
		return repaired, true
	}
	return nil, false
}
