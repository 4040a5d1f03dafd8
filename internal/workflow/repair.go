package workflow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrUnrepairable means none of the recovery strategies produced valid JSON.
var ErrUnrepairable = errors.New("could not repair JSON")

// Repair attempts to recover a usable value from malformed workflow JSON.
// Strategies, in order: empty input becomes an empty list; input that already
// parses is returned as-is; otherwise the text is trimmed to the last closing
// brace or bracket and re-parsed; as a last attempt the first complete
// top-level value is decoded and trailing garbage dropped.
func Repair(data []byte) (interface{}, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []interface{}{}, nil
	}

	var v interface{}
	if err := json.Unmarshal(trimmed, &v); err == nil {
		return v, nil
	}

	lastBrace := bytes.LastIndexByte(trimmed, '}')
	lastBracket := bytes.LastIndexByte(trimmed, ']')
	cut := lastBrace
	if lastBracket > cut {
		cut = lastBracket
	}
	if cut != -1 {
		if err := json.Unmarshal(trimmed[:cut+1], &v); err == nil {
			return v, nil
		}
	}

	// json.Decoder stops after the first complete value, which drops
	// anything concatenated after it.
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if err := dec.Decode(&v); err == nil {
		return v, nil
	}

	return nil, ErrUnrepairable
}

// RepairFile repairs a workflow file in place. It reports whether the file
// was rewritten; a file that already parses is left untouched.
func RepairFile(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if strings.TrimSpace(string(data)) != "" {
		var v interface{}
		if json.Unmarshal(data, &v) == nil {
			return false, nil
		}
	}

	fixed, err := Repair(data)
	if err != nil {
		return false, err
	}

	out, err := json.MarshalIndent(fixed, "", "  ")
	if err != nil {
		return false, fmt.Errorf("failed to marshal repaired JSON: %w", err)
	}
	out = append(out, '\n')

	if err := os.WriteFile(path, out, 0644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}
