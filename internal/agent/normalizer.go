// internal/agent/normalizer.go
package agent

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	json "github.com/json-iterator/go"
)

// NormalizeActionResponse converts the completion service's free-form text
// into exactly one canonical Action. The function is deterministic and total
// over the documented response shapes: the same input always yields the same
// Action or the same failure.
//
// The response is expected to contain one JSON object of the form
// {"thinking": ..., "action": {...}}, but the extraction is tolerant:
// Markdown fences are stripped, the first brace-delimited span is used, the
// wrapper key may be "action" or "command", the payload may be a bare type
// string, single- or double-nested, shorthand-keyed ({"click": "btn_1"}),
// and field names are resolved through aliases.
func NormalizeActionResponse(raw string) (Action, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Action{}, fmt.Errorf("empty response from completion service")
	}

	fragment, ok := extractJSONObject(trimmed)
	if !ok {
		return Action{}, fmt.Errorf("no JSON object found in response: %q", snippet(trimmed))
	}

	var root map[string]interface{}
	if err := json.Unmarshal([]byte(fragment), &root); err != nil {
		return Action{}, fmt.Errorf("response is not valid JSON (%q): %w", snippet(fragment), err)
	}

	payload := locatePayload(root)
	if payload == nil {
		return Action{}, fmt.Errorf("response has no 'action' or 'command' payload")
	}

	typ, fields, err := resolveShape(payload)
	if err != nil {
		return Action{}, err
	}

	return buildAction(typ, fields)
}

// extractJSONObject strips Markdown code fences and returns the first
// balanced-looking brace span, greedily matched from the first '{' to the
// last '}'.
func extractJSONObject(s string) (string, bool) {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	first := strings.IndexByte(s, '{')
	last := strings.LastIndexByte(s, '}')
	if first == -1 || last == -1 || last <= first {
		return "", false
	}
	return s[first : last+1], true
}

// locatePayload finds the action payload under "action" or "command". A
// flattened shape ({"command":"click","target":"btn_1"}) is rebuilt into an
// object by merging the sibling root keys, minus the wrapper keys and any
// chain-of-thought field.
func locatePayload(root map[string]interface{}) interface{} {
	payload, ok := root["action"]
	if !ok {
		payload, ok = root["command"]
	}
	if !ok {
		// No wrapper at all: the root itself may already be the action.
		if _, hasType := root["type"]; hasType {
			return root
		}
		if _, hasName := root["name"]; hasName {
			return root
		}
		for _, t := range knownActionTypes {
			if _, present := root[string(t)]; present {
				return root
			}
		}
		return nil
	}

	if typeName, isString := payload.(string); isString {
		flat := map[string]interface{}{"type": typeName}
		for k, v := range root {
			switch k {
			case "action", "command", "thinking":
			default:
				flat[k] = v
			}
		}
		return flat
	}
	return payload
}

// resolveShape reduces the payload to a type name plus a flat field map,
// walking the documented shape variants in a fixed order.
func resolveShape(payload interface{}) (string, map[string]interface{}, error) {
	obj, ok := payload.(map[string]interface{})
	if !ok {
		return "", nil, fmt.Errorf("action payload has unsupported type %T", payload)
	}

	// Double-nesting: {"action": {"action": "click", "target": "x"}}.
	for _, wrapper := range []string{"action", "command"} {
		if inner, present := obj[wrapper]; present {
			if typeName, isString := inner.(string); isString {
				fields := make(map[string]interface{}, len(obj))
				for k, v := range obj {
					if k != wrapper && k != "thinking" {
						fields[k] = v
					}
				}
				fields["type"] = typeName
				obj = fields
				break
			}
		}
	}

	if _, hasType := obj["type"]; !hasType {
		if name, present := obj["name"]; present {
			obj["type"] = name
		}
	}

	if _, hasType := obj["type"]; !hasType {
		// Shorthand and fully-nested shapes keyed by the action name itself:
		// {"click": "btn_1"} or {"fill": {"target": "q", "value": "x"}}.
		for _, t := range knownActionTypes {
			val, present := obj[string(t)]
			if !present {
				continue
			}
			fields := map[string]interface{}{"type": string(t)}
			switch v := val.(type) {
			case string, float64:
				fields[primaryField(t)] = v
			case map[string]interface{}:
				for k, fv := range v {
					fields[k] = fv
				}
			}
			return string(t), fields, nil
		}
		return "", nil, fmt.Errorf("action payload has no recognizable type: %v", keysOf(obj))
	}

	typeName, ok := obj["type"].(string)
	if !ok {
		return "", nil, fmt.Errorf("action 'type' is not a string: %v", obj["type"])
	}
	return typeName, obj, nil
}

// primaryField maps a shorthand string value onto the action type's main
// parameter.
func primaryField(t ActionType) string {
	switch t {
	case ActionSearch:
		return "query"
	case ActionScroll:
		return "direction"
	case ActionWait:
		return "ms"
	case ActionDone:
		return "reason"
	default:
		return "target"
	}
}

// Field alias tables. Order matters: the first present, non-empty alias wins.
var (
	targetAliases = []string{"target", "element", "ref", "selector", "field", "text"}
	valueAliases  = []string{"value", "input", "text"}
	optionAliases = []string{"option", "value", "choice"}
	queryAliases  = []string{"query", "value", "text", "input"}
	reasonAliases = []string{"reason", "message", "explanation"}
)

// buildAction dispatches on the resolved type and constructs the canonical
// variant, enforcing required fields after alias resolution.
func buildAction(typeName string, fields map[string]interface{}) (Action, error) {
	switch ActionType(strings.ToLower(strings.TrimSpace(typeName))) {
	case ActionClick:
		target := firstString(fields, targetAliases)
		if target == "" {
			return Action{}, fmt.Errorf("click action is missing a target")
		}
		return Action{Type: ActionClick, Target: target}, nil

	case ActionFill:
		// "text" may alias either side of a fill; the value claims it first
		// so {"target":"q","text":"hello"} fills q with hello.
		value := firstString(fields, valueAliases)
		targetKeys := targetAliases
		if value != "" && stringField(fields, "text") == value && stringField(fields, "value") == "" && stringField(fields, "input") == "" {
			targetKeys = targetAliases[:len(targetAliases)-1]
		}
		target := firstString(fields, targetKeys)
		if target == "" {
			return Action{}, fmt.Errorf("fill action is missing a target")
		}
		if value == "" {
			return Action{}, fmt.Errorf("fill action is missing a value")
		}
		return Action{Type: ActionFill, Target: target, Value: value}, nil

	case ActionSelect:
		target := firstString(fields, targetAliases)
		if target == "" {
			return Action{}, fmt.Errorf("select action is missing a target")
		}
		option := firstString(fields, optionAliases)
		if option == "" {
			return Action{}, fmt.Errorf("select action is missing an option")
		}
		return Action{Type: ActionSelect, Target: target, Option: option}, nil

	case ActionScroll:
		direction := strings.ToLower(firstString(fields, []string{"direction", "value"}))
		if direction == "" {
			return Action{}, fmt.Errorf("scroll action is missing a direction")
		}
		return Action{Type: ActionScroll, Direction: direction}, nil

	case ActionBack:
		return Action{Type: ActionBack, Target: firstString(fields, targetAliases)}, nil

	case ActionWait:
		return Action{Type: ActionWait, Ms: clampWaitMs(fields["ms"])}, nil

	case ActionSearch:
		query := firstString(fields, queryAliases)
		if query == "" {
			return Action{}, fmt.Errorf("search action is missing a query")
		}
		return Action{Type: ActionSearch, Query: query}, nil

	case ActionOpenHelp, "openhelp", "open-help":
		return Action{Type: ActionOpenHelp}, nil

	case ActionDone:
		reason := firstString(fields, reasonAliases)
		if reason == "" {
			reason = "Task completed"
		}
		return Action{
			Type:          ActionDone,
			Reason:        reason,
			EvidenceSteps: coerceIntList(fields["evidence_steps"], fields["evidence"], fields["steps"]),
		}, nil

	default:
		return Action{}, fmt.Errorf("unrecognized action type %q", typeName)
	}
}

// clampWaitMs coerces the wait duration into [100, 5000], defaulting to
// 1000 when absent or unparsable.
func clampWaitMs(v interface{}) int {
	ms := 1000
	switch n := v.(type) {
	case float64:
		ms = int(n)
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(n), "ms")); err == nil {
			ms = parsed
		}
	}
	if ms < 100 {
		ms = 100
	}
	if ms > 5000 {
		ms = 5000
	}
	return ms
}

// coerceIntList flattens the first non-nil candidate into a numeric list,
// returning an empty list for absent or malformed input.
func coerceIntList(candidates ...interface{}) []int {
	for _, c := range candidates {
		list, ok := c.([]interface{})
		if !ok {
			continue
		}
		out := make([]int, 0, len(list))
		for _, item := range list {
			switch n := item.(type) {
			case float64:
				out = append(out, int(n))
			case string:
				if parsed, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
					out = append(out, parsed)
				}
			}
		}
		return out
	}
	return []int{}
}

func firstString(fields map[string]interface{}, keys []string) string {
	for _, k := range keys {
		if s := stringField(fields, k); s != "" {
			return s
		}
	}
	return ""
}

func stringField(fields map[string]interface{}, key string) string {
	if v, ok := fields[key]; ok {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func keysOf(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func snippet(s string) string {
	const max = 120
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
