package docset

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	dexerrors "github.com/docdex/docdex/internal/errors"
)

// supportedExtensions are the document formats the normalizer understands.
var supportedExtensions = map[string]bool{
	".html":     true,
	".htm":      true,
	".md":       true,
	".markdown": true,
	".txt":      true,
}

// IsSupportedFile reports whether the path has a supported document extension.
func IsSupportedFile(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// SafeResolve resolves relativePath under root and rejects anything that
// escapes it. Absolute paths, drive-qualified paths, ".." climbs, and
// symlinks pointing outside the root are all traversal attempts.
func SafeResolve(root, relativePath string) (string, error) {
	if relativePath == "" {
		return "", dexerrors.PathTraversal(relativePath)
	}
	if strings.HasPrefix(relativePath, "/") || strings.HasPrefix(relativePath, "\\") ||
		strings.Contains(relativePath, ":") {
		return "", dexerrors.PathTraversal(relativePath)
	}

	cleanRoot := filepath.Clean(root)
	target := filepath.Clean(filepath.Join(cleanRoot, filepath.FromSlash(relativePath)))

	if !contained(cleanRoot, target) {
		return "", dexerrors.PathTraversal(relativePath)
	}

	// A symlink inside the root can still point anywhere on disk, so the
	// lexical check alone is not enough: resolve symlinks on both sides
	// and check containment again. A path that does not exist yet cannot
	// be a symlink; it keeps the lexical result and fails at open time.
	resolvedRoot, err := filepath.EvalSymlinks(cleanRoot)
	if err != nil {
		resolvedRoot = cleanRoot
	}
	resolvedTarget, err := filepath.EvalSymlinks(target)
	if err != nil {
		return target, nil
	}
	if !contained(resolvedRoot, resolvedTarget) {
		return "", dexerrors.PathTraversal(relativePath)
	}

	return target, nil
}

func contained(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return true
}

// ListFiles walks the docset root and returns the relative slash-separated
// paths of all supported documents, sorted for deterministic indexing.
func ListFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !IsSupportedFile(path) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
