package model

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ErrNoJSONObject is returned by ExtractJSONObject when content contains no
// balanced '{' ... '}' span at all.
var ErrNoJSONObject = errors.New("model: no JSON object found in content")

// ExtractJSONObject repairs common LLM JSON-mode failures by slicing the
// first '{' through the last '}' in content, discarding any prose the model
// wrapped the object in (code fences, "Here is the JSON:" preambles, etc).
// Every LLM-mediated decision in the orchestrator (enum mapping,
// missing-tool analysis, dependency analysis) runs its raw response
// through this before unmarshaling: explicit slicing between the first and
// last brace tolerates prose the model adds around the object.
func ExtractJSONObject(content string) (string, error) {
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start == -1 || end == -1 || end < start {
		return "", ErrNoJSONObject
	}
	return content[start : end+1], nil
}

// DecodeJSONObject extracts a JSON object from raw LLM content and binds it
// into dst. Decoding goes through two stages: the object is first
// unmarshaled into a loosely-typed map[string]any (an LLM's JSON mode
// commonly returns a string where a number was asked for, or omits a
// field entirely), then github.com/mitchellh/mapstructure decodes that map
// into dst with weak typing enabled, coercing those mismatches instead of
// failing on them. This is the shared decode path behind the Enum Mapper's
// classify response, the Missing-Tool Analyzer's corroboration response,
// and the Dependency Analyzer's dependency map. Returns ErrNoJSONObject or
// a decode error on failure; callers treat either as grounds to fall back
// to the component's deterministic default rather than propagate the error
// to the user. The orchestrator must remain correct even when every LLM
// call returns garbage.
func DecodeJSONObject(content string, dst any) error {
	slice, err := ExtractJSONObject(content)
	if err != nil {
		return err
	}

	var loose map[string]any
	if err := json.Unmarshal([]byte(slice), &loose); err != nil {
		return err
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		WeaklyTypedInput: true,
		TagName:          "json",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(loose)
}
