package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// externalRowFields is the fixed positional width of an external score row.
const externalRowFields = 3

// ErrRowShape is returned when an external score row is not (paper, identity, score).
var ErrRowShape = errors.New("external score row must have 3 fields")

// ExternalScoreRow is a headerless third-party affinity row:
// (paper ID, external identity, raw score). On the wire it is a
// three-element array; an unparsable score reads as 0.
type ExternalScoreRow struct {
	Paper    string
	Identity string
	Score    float64
}

// MarshalJSON encodes the row positionally.
func (r ExternalScoreRow) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.Paper, r.Identity, r.Score})
}

// UnmarshalJSON decodes a positional row. Scalars may be strings or numbers.
func (r *ExternalScoreRow) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode external score row: %w", err)
	}
	if len(raw) < externalRowFields {
		return fmt.Errorf("%w: got %d", ErrRowShape, len(raw))
	}
	fields := make([]string, externalRowFields)
	for i := range fields {
		fields[i] = jsonScalar(raw[i])
	}
	r.fromFields(fields)
	return nil
}

// MarshalYAML encodes the row as a flow sequence.
func (r ExternalScoreRow) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, v := range []string{r.Paper, r.Identity, strconv.FormatFloat(r.Score, 'g', -1, 64)} {
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: v})
	}
	return node, nil
}

// UnmarshalYAML decodes a positional row from a YAML sequence.
func (r *ExternalScoreRow) UnmarshalYAML(node *yaml.Node) error {
	var fields []string
	if err := node.Decode(&fields); err != nil {
		return fmt.Errorf("decode external score row: %w", err)
	}
	if len(fields) < externalRowFields {
		return fmt.Errorf("%w: got %d", ErrRowShape, len(fields))
	}
	r.fromFields(fields)
	return nil
}

func (r *ExternalScoreRow) fromFields(fields []string) {
	r.Paper = strings.TrimSpace(fields[0])
	r.Identity = strings.TrimSpace(fields[1])
	r.Score = ParseScore(fields[2])
}

// ParseScore reads a raw numeric field; anything unparsable is 0.
func ParseScore(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func jsonScalar(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	if bytes.Equal(raw, []byte("null")) {
		return ""
	}
	return string(raw)
}
