package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrNoEntry is returned when no JS entry module was given.
	ErrNoEntry = errors.New("require at least one input file")
	// ErrBadEntry is returned when the first input is not a JS module.
	ErrBadEntry = errors.New("first input file must be js main")
	// ErrBadOutput is returned when the output is not of the form dir/bundle.js.
	ErrBadOutput = errors.New("require -o dir/bundle.js")
)

// Layout describes where build output is written and served from.
//
// OutDir receives the bundle's siblings: copied assets and compiled
// stylesheets. Base is the served document root; HTML inputs are mirrored
// there. Without a rel directory Base equals OutDir; with one, OutDir is the
// rel directory and Base is its parent.
type Layout struct {
	Output string
	OutDir string
	Base   string
}

// ValidateEntry checks that entry names a JS module.
func ValidateEntry(entry string) error {
	if entry == "" {
		return ErrNoEntry
	}
	if !strings.HasSuffix(entry, ".js") {
		return fmt.Errorf("%w: %q", ErrBadEntry, entry)
	}
	return nil
}

// ResolveLayout derives the output directories from the bundle path and the
// optional rel directory.
func ResolveLayout(output, rel string) (Layout, error) {
	if !strings.Contains(output, "/") || !strings.HasSuffix(output, ".js") {
		return Layout{}, ErrBadOutput
	}

	output = filepath.Clean(output)
	outDir := filepath.Dir(output)
	base := outDir
	if rel != "" {
		outDir = filepath.Clean(rel)
		base = filepath.Dir(outDir)
	}

	return Layout{
		Output: output,
		OutDir: outDir,
		Base:   base,
	}, nil
}
