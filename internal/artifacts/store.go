// Package artifacts persists the per-rubric outputs of a build run so that
// later evaluate runs can read them.
package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spigell/rubric-evaluator/internal/assets"
	"github.com/spigell/rubric-evaluator/internal/rubric"
)

const (
	RubricFile = "scoring_rules.json"
	CorpusFile = "rag_data.json"

	assetsDir = "assets"
)

var (
	ErrNotFound          = errors.New("artifact not found")
	ErrUnsupportedSchema = errors.New("unsupported artifact schema version")
	ErrInvalidRubricID   = errors.New("invalid rubric id")
)

// Store keeps artifacts under <root>/assets/<rubricId>/.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// Dir is the directory holding the artifacts of a rubric.
func (s *Store) Dir(rubricID string) (string, error) {
	id := strings.TrimSpace(rubricID)
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRubricID, rubricID)
	}
	return filepath.Join(s.root, assetsDir, id), nil
}

// Exists reports whether any artifact of the rubric is on disk.
func (s *Store) Exists(rubricID string) bool {
	dir, err := s.Dir(rubricID)
	if err != nil {
		return false
	}
	for _, name := range []string{RubricFile, CorpusFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

func (s *Store) SaveRubric(cfg *rubric.Config) error {
	if cfg == nil {
		return fmt.Errorf("rubric config is nil")
	}
	return s.write(cfg.RubricID, RubricFile, cfg)
}

// LoadRubric returns ErrNotFound when the rubric was never built.
func (s *Store) LoadRubric(rubricID string) (*rubric.Config, error) {
	var cfg rubric.Config
	if err := s.read(rubricID, RubricFile, &cfg); err != nil {
		return nil, err
	}
	if cfg.SchemaVersion != rubric.SchemaVersion {
		return nil, fmt.Errorf("%s: %w %d", RubricFile, ErrUnsupportedSchema, cfg.SchemaVersion)
	}
	return &cfg, nil
}

func (s *Store) SaveCorpus(corpus *assets.Corpus) error {
	if corpus == nil {
		return fmt.Errorf("corpus is nil")
	}
	return s.write(corpus.RubricID, CorpusFile, corpus)
}

// LoadCorpus returns ErrNotFound when the corpus was never built.
func (s *Store) LoadCorpus(rubricID string) (*assets.Corpus, error) {
	var corpus assets.Corpus
	if err := s.read(rubricID, CorpusFile, &corpus); err != nil {
		return nil, err
	}
	if corpus.SchemaVersion != assets.CorpusSchemaVersion {
		return nil, fmt.Errorf("%s: %w %d", CorpusFile, ErrUnsupportedSchema, corpus.SchemaVersion)
	}
	return &corpus, nil
}

// write replaces the file atomically: readers see either the old or the new content.
func (s *Store) write(rubricID, name string, v any) error {
	dir, err := s.Dir(rubricID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating artifact directory: %w", err)
	}

	file, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmp := file.Name()
	defer os.Remove(tmp)

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		file.Close()
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", name, err)
	}

	if err := os.Rename(tmp, filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}

func (s *Store) read(rubricID, name string, v any) error {
	dir, err := s.Dir(rubricID)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, name)

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s for rubric %s: %w", name, rubricID, ErrNotFound)
		}
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if stat.Size() == 0 {
		return fmt.Errorf("%s for rubric %s is empty: %w", name, rubricID, ErrNotFound)
	}

	if err := json.NewDecoder(file).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
