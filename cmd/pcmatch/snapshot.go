package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/pcmatch/internal/domain/model"
	"gopkg.in/yaml.v3"
)

// Snapshot file formats.
const (
	formatYAML = "yaml"
	formatJSON = "json"
)

// formatOf picks the format from a file extension; YAML unless ".json".
func formatOf(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return formatJSON
	}
	return formatYAML
}

// readSnapshot loads a snapshot from path, or stdin for "-".
func readSnapshot(path string, stdin io.Reader) (model.Snapshot, error) {
	var snap model.Snapshot
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return snap, fmt.Errorf("read snapshot: %w", err)
	}

	if formatOf(path) == formatJSON {
		err = json.Unmarshal(data, &snap)
	} else {
		err = yaml.Unmarshal(data, &snap)
	}
	if err != nil {
		return snap, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return snap, nil
}

// writeSnapshot encodes snap in format.
func writeSnapshot(w io.Writer, snap model.Snapshot, format string) error { //nolint:gocritic // hugeParam: snapshot is encoded once
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q; use yaml or json", format)
	}
}

// outputJSON writes a value as formatted JSON.
func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
