package model

import (
	"encoding/json"
	"strings"
)

// UnmarshalJSON accepts the paper ID as a string or a number.
func (p *PaperRecord) UnmarshalJSON(b []byte) error {
	type plain PaperRecord
	var raw struct {
		plain
		ID json.RawMessage `json:"ID"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*p = PaperRecord(raw.plain)
	p.ID = strings.TrimSpace(jsonScalar(raw.ID))
	return nil
}

// UnmarshalJSON accepts the paper reference as a string or a number.
func (r *PreferenceRecord) UnmarshalJSON(b []byte) error {
	type plain PreferenceRecord
	var raw struct {
		plain
		Paper json.RawMessage `json:"paper"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = PreferenceRecord(raw.plain)
	r.Paper = strings.TrimSpace(jsonScalar(raw.Paper))
	return nil
}
