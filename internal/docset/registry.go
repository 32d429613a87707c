// Package docset loads and validates the docset registry.
//
// The registry is a TOML file (docsets.toml) with [[docsets]] entries. Each
// entry names a directory of documentation files plus routing metadata.
package docset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	dexerrors "github.com/docdex/docdex/internal/errors"
)

// Docset describes one registered documentation set.
type Docset struct {
	// ID is the unique docset identifier used in references and filters.
	ID string `toml:"docset_id"`
	// RootPath is the absolute directory containing the docset's files.
	RootPath string `toml:"root_path"`
	// Tags are broad topic labels used by the router.
	Tags []string `toml:"tags"`
	// Keywords are routing trigger words matched against queries.
	Keywords []string `toml:"keywords"`
	// Version is an optional human-readable docset version.
	Version string `toml:"version"`
	// Enabled controls whether the docset is indexed and searchable.
	Enabled bool `toml:"enabled"`
}

type registryFile struct {
	Docsets []docsetEntry `toml:"docsets"`
}

// docsetEntry mirrors Docset but keeps Enabled as a pointer so a missing
// field defaults to true.
type docsetEntry struct {
	ID       string   `toml:"docset_id"`
	RootPath string   `toml:"root_path"`
	Tags     []string `toml:"tags"`
	Keywords []string `toml:"keywords"`
	Version  string   `toml:"version"`
	Enabled  *bool    `toml:"enabled"`
}

// LoadRegistry reads and validates a docsets.toml file.
// Relative root paths are resolved against the registry file's directory.
// Disabled docsets are returned too; callers filter on Enabled.
func LoadRegistry(path string) ([]Docset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, dexerrors.RegistryError(fmt.Sprintf("failed to read registry %s", path), err)
	}

	var parsed registryFile
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return nil, dexerrors.RegistryError(fmt.Sprintf("failed to parse registry %s", path), err)
	}
	if len(parsed.Docsets) == 0 {
		return nil, dexerrors.RegistryError("docsets.toml must define [[docsets]] entries", nil)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, dexerrors.RegistryError("failed to resolve registry path", err)
	}
	baseDir := filepath.Dir(absPath)

	seen := make(map[string]bool, len(parsed.Docsets))
	docsets := make([]Docset, 0, len(parsed.Docsets))
	for _, entry := range parsed.Docsets {
		if strings.TrimSpace(entry.ID) == "" {
			return nil, dexerrors.RegistryError("docset entry missing docset_id", nil)
		}
		if seen[entry.ID] {
			return nil, dexerrors.RegistryError(fmt.Sprintf("duplicate docset_id: %s", entry.ID), nil)
		}
		seen[entry.ID] = true

		root := entry.RootPath
		if root == "" {
			return nil, dexerrors.RegistryError(fmt.Sprintf("docset %s missing root_path", entry.ID), nil)
		}
		if !filepath.IsAbs(root) {
			root = filepath.Join(baseDir, root)
		}
		root = filepath.Clean(root)

		enabled := true
		if entry.Enabled != nil {
			enabled = *entry.Enabled
		}

		if enabled {
			info, err := os.Stat(root)
			if err != nil {
				return nil, dexerrors.New(dexerrors.ErrCodeDocsetRoot,
					fmt.Sprintf("root_path does not exist for docset %s: %s", entry.ID, root), err)
			}
			if !info.IsDir() {
				return nil, dexerrors.New(dexerrors.ErrCodeDocsetRoot,
					fmt.Sprintf("root_path is not a directory for docset %s: %s", entry.ID, root), nil)
			}
		}

		docsets = append(docsets, Docset{
			ID:       entry.ID,
			RootPath: root,
			Tags:     entry.Tags,
			Keywords: entry.Keywords,
			Version:  entry.Version,
			Enabled:  enabled,
		})
	}

	return docsets, nil
}

// Enabled returns the enabled subset of docsets, preserving registry order.
func Enabled(docsets []Docset) []Docset {
	out := make([]Docset, 0, len(docsets))
	for _, d := range docsets {
		if d.Enabled {
			out = append(out, d)
		}
	}
	return out
}

// ByID returns the docset with the given id, or false.
func ByID(docsets []Docset, id string) (Docset, bool) {
	for _, d := range docsets {
		if d.ID == id {
			return d, true
		}
	}
	return Docset{}, false
}
