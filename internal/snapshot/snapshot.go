// Package snapshot persists built docset indexes so restarts skip the
// full parse-chunk-embed pipeline. A snapshot is tagged with a
// fingerprint over everything that shapes index content; any change in
// the registry, the embedding model, or the chunk parameters makes the
// snapshot stale and forces a rebuild.
package snapshot

import (
	"crypto/sha1"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/docdex/docdex/internal/chunk"
	"github.com/docdex/docdex/internal/docset"
	dexerrors "github.com/docdex/docdex/internal/errors"
	"github.com/docdex/docdex/internal/index"
	"github.com/docdex/docdex/internal/normalize"
)

// SchemaVersion guards against reading snapshots written by an
// incompatible layout. Bump on any payload shape change.
const SchemaVersion = 1

// Fingerprint hashes the registry file (path and contents), the
// embedding model id, and the chunk parameters.
func Fingerprint(registryPath, modelName string, opts chunk.Options) (string, error) {
	absPath, err := filepath.Abs(registryPath)
	if err != nil {
		return "", fmt.Errorf("resolve registry path: %w", err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("read registry: %w", err)
	}

	h := sha1.New()
	h.Write([]byte(absPath))
	h.Write(data)
	fmt.Fprintf(h, "|%s|%d|%d", modelName, opts.MaxWords, opts.OverlapWords)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DocsetPayload is the serialized state of one built docset index. The
// lexical and vector indexes are not stored; they are rebuilt in memory
// from the chunks and embeddings on load.
type DocsetPayload struct {
	Docset        docset.Docset
	Sections      map[string]normalize.Section
	Chunks        []chunk.Chunk
	Embeddings    map[string][]float32
	ModelName     string
	DocumentCount int
	BuiltAt       time.Time
}

type snapshotFile struct {
	SchemaVersion int
	Fingerprint   string
	SavedAt       time.Time
	Docsets       map[string]DocsetPayload
}

// Store reads and writes the snapshot file. Writes go through a temp
// file and rename; a sibling flock serializes concurrent processes.
type Store struct {
	path string
	lock *flock.Flock
}

// NewStore creates a store for the given snapshot path.
func NewStore(path string) *Store {
	return &Store{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the snapshot file path.
func (s *Store) Path() string {
	return s.path
}

// Save writes all built indexes under the given fingerprint.
func (s *Store) Save(fingerprint string, indexes map[string]*index.DocsetIndex) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return dexerrors.InternalError("failed to create snapshot directory", err)
	}

	if err := s.lock.Lock(); err != nil {
		return dexerrors.InternalError("failed to lock snapshot", err)
	}
	defer s.lock.Unlock()

	file := snapshotFile{
		SchemaVersion: SchemaVersion,
		Fingerprint:   fingerprint,
		SavedAt:       time.Now(),
		Docsets:       make(map[string]DocsetPayload, len(indexes)),
	}
	for id, ix := range indexes {
		file.Docsets[id] = DocsetPayload{
			Docset:        ix.Docset,
			Sections:      ix.Sections,
			Chunks:        ix.Chunks,
			Embeddings:    ix.Embeddings,
			ModelName:     ix.ModelName,
			DocumentCount: ix.DocumentCount,
			BuiltAt:       ix.BuiltAt,
		}
	}

	tmpPath := s.path + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return dexerrors.InternalError("failed to create snapshot file", err)
	}
	if err := gob.NewEncoder(out).Encode(file); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return dexerrors.InternalError("failed to encode snapshot", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return dexerrors.InternalError("failed to close snapshot file", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return dexerrors.InternalError("failed to replace snapshot file", err)
	}

	slog.Info("snapshot_saved",
		slog.String("path", s.path),
		slog.Int("docsets", len(file.Docsets)))
	return nil
}

// Load restores all docset indexes from the snapshot, validating the
// schema version and fingerprint first. A missing file returns
// (nil, nil); a fingerprint mismatch returns a SnapshotMismatch error
// the caller treats as "rebuild required".
func (s *Store) Load(fingerprint string) (map[string]*index.DocsetIndex, error) {
	// Check for the file before locking: on a fresh data dir the parent
	// directory does not exist yet, and taking the flock would create it
	// (or fail) before the first Save ever runs.
	if _, err := os.Stat(s.path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, dexerrors.InternalError("failed to stat snapshot", err)
	}

	if err := s.lock.RLock(); err != nil {
		return nil, dexerrors.InternalError("failed to lock snapshot", err)
	}
	defer s.lock.Unlock()

	in, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, dexerrors.InternalError("failed to open snapshot", err)
	}
	defer in.Close()

	var file snapshotFile
	if err := gob.NewDecoder(in).Decode(&file); err != nil {
		return nil, dexerrors.New(dexerrors.ErrCodeSnapshotCorrupt,
			fmt.Sprintf("snapshot file is unreadable: %s", s.path), err)
	}
	if file.SchemaVersion != SchemaVersion {
		return nil, dexerrors.New(dexerrors.ErrCodeSnapshotCorrupt,
			fmt.Sprintf("snapshot schema version %d, want %d", file.SchemaVersion, SchemaVersion), nil)
	}
	if file.Fingerprint != fingerprint {
		return nil, dexerrors.SnapshotMismatch(fingerprint, file.Fingerprint)
	}

	indexes := make(map[string]*index.DocsetIndex, len(file.Docsets))
	for id, payload := range file.Docsets {
		ix, err := index.Restore(payload.Docset, payload.Sections, payload.Chunks,
			payload.Embeddings, payload.ModelName, payload.DocumentCount, payload.BuiltAt)
		if err != nil {
			for _, built := range indexes {
				built.Close()
			}
			return nil, dexerrors.New(dexerrors.ErrCodeSnapshotCorrupt,
				fmt.Sprintf("failed to restore docset %s from snapshot", id), err)
		}
		indexes[id] = ix
	}

	slog.Info("snapshot_loaded",
		slog.String("path", s.path),
		slog.Int("docsets", len(indexes)))
	return indexes, nil
}
