package investigation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrInvalidInput = errors.New("invalid input file")

type inputFile struct {
	Names []string `json:"names" yaml:"names"`
}

// LoadInput reads the list of names from a `{"names": [...]}` document.
// Files ending in .yaml or .yml are parsed as YAML, anything else as JSON.
func LoadInput(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input %s: %w", path, err)
	}
	return ParseInput(b, isYAML(path))
}

func ParseInput(b []byte, asYAML bool) ([]string, error) {
	var in inputFile
	if asYAML {
		if err := yaml.Unmarshal(b, &in); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	} else if err := json.Unmarshal(b, &in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	if len(in.Names) == 0 {
		return nil, fmt.Errorf("%w: names array cannot be empty", ErrInvalidInput)
	}
	names := make([]string, len(in.Names))
	for i, n := range in.Names {
		n = strings.TrimSpace(n)
		if n == "" {
			return nil, fmt.Errorf("%w: names[%d]: pokemon name cannot be empty", ErrInvalidInput, i)
		}
		names[i] = n
	}
	return names, nil
}

// EncodeOutput writes out as indented JSON.
func EncodeOutput(w io.Writer, out *RunOutput) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// WriteOutput writes out to path, replacing any existing file only once the
// new content is fully on disk.
func WriteOutput(path string, out *RunOutput) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := EncodeOutput(tmp, out); err != nil {
		tmp.Close()
		return fmt.Errorf("encode output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write output %s: %w", path, err)
	}
	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
