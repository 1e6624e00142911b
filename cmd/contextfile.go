package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/killallgit/pawnassist/pkg/widget"
	"gopkg.in/yaml.v3"
)

// contextFile is the on-disk form of a widget snapshot. JSON files parse
// as YAML too.
type contextFile struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Data        any    `yaml:"data"`
}

// loadContextFile reads a widget snapshot. The file name (without
// extension) is the ID when none is given.
func loadContextFile(path string) (widget.Context, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return widget.Context{}, fmt.Errorf("failed to read context file: %w", err)
	}

	var f contextFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return widget.Context{}, fmt.Errorf("failed to parse context file %s: %w", path, err)
	}
	if f.ID == "" {
		f.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return widget.Context{
		ID:          f.ID,
		Name:        f.Name,
		Description: f.Description,
		Data:        f.Data,
	}, nil
}
