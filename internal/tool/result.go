package tool

import (
	"encoding/json"
	"fmt"
)

// ContentTypeText is the only content block type tools emit.
const ContentTypeText = "text"

// Content is a single block of a tool result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Result is the uniform envelope every successful tool call returns.
type Result struct {
	Content []Content `json:"content"`
}

// Text returns a single-block result.
func Text(text string) *Result {
	return &Result{Content: []Content{{Type: ContentTypeText, Text: text}}}
}

// Labeled serialises payload as JSON and prefixes it with label, producing
// results such as "RUM events: [...]".
func Labeled(label string, payload any) (*Result, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", label, err)
	}
	return Text(label + ": " + string(raw)), nil
}

// FirstText returns the text of the first block, "" for an empty result.
func (r *Result) FirstText() string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	return r.Content[0].Text
}
