package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Issue is a single validation finding for a workflow file.
type Issue struct {
	Path    string
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s -> %s", i.Path, i.Message)
}

// Validate checks raw workflow JSON. Beyond being parseable, a workflow may
// carry a `name` (non-empty string) and a `nodes` list. Strict mode also
// requires every node to be an object with non-empty `name` and `type`.
func Validate(data []byte, path string, strict bool) []Issue {
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		// Top-level arrays are tolerated; anything else is a parse failure.
		var arr []interface{}
		if json.Unmarshal(data, &arr) == nil {
			return nil
		}
		return []Issue{{Path: path, Message: "invalid JSON (failed to parse)"}}
	}

	var issues []Issue

	nodesRaw, hasNodes := doc["nodes"]
	nodes, nodesIsList := nodesRaw.([]interface{})
	if hasNodes && !nodesIsList {
		issues = append(issues, Issue{Path: path, Message: "`nodes` must be a list when present"})
	}

	if nameRaw, ok := doc["name"]; ok {
		name, isString := nameRaw.(string)
		if !isString || strings.TrimSpace(name) == "" {
			issues = append(issues, Issue{Path: path, Message: "`name` present but empty or not a string"})
		}
	}

	if strict && nodesIsList {
		for idx, nodeRaw := range nodes {
			node, ok := nodeRaw.(map[string]interface{})
			if !ok {
				issues = append(issues, Issue{Path: path, Message: fmt.Sprintf("nodes[%d] is not an object", idx)})
				continue
			}
			if !nonEmptyString(node["name"]) {
				issues = append(issues, Issue{Path: path, Message: fmt.Sprintf("nodes[%d].name missing or empty", idx)})
			}
			if !nonEmptyString(node["type"]) {
				issues = append(issues, Issue{Path: path, Message: fmt.Sprintf("nodes[%d].type missing or empty", idx)})
			}
		}
	}

	return issues
}

// ValidateFile reads and validates one workflow file.
func ValidateFile(path string, strict bool) ([]Issue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Validate(data, path, strict), nil
}

func nonEmptyString(v interface{}) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) != ""
}
