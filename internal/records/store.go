// Package records persists the canonical product records of one batch
// as a timestamped, append-never JSON file, and selects the most recent
// record set when the caller names none.
package records

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kitvault/scraper/internal/models"
)

const (
	filePrefix    = "products_"
	fileExt       = ".json"
	timestampForm = "2006_01_02-15_04_05"
)

// ErrNoRecordSets is returned by Latest when the records directory
// holds nothing usable.
var ErrNoRecordSets = fmt.Errorf("no record sets found")

type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create records dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes one batch as a new timestamped record set and returns its
// path. Record sets are never appended to or rewritten.
func (s *Store) Save(records []models.CanonicalProduct) (string, error) {
	stamp := time.Now().Format(timestampForm)
	path := filepath.Join(s.dir, filePrefix+stamp+fileExt)
	// Same-second saves must not overwrite an existing set.
	for n := 2; ; n++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		path = filepath.Join(s.dir, fmt.Sprintf("%s%s_%d%s", filePrefix, stamp, n, fileExt))
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode record set: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write record set: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("finalize record set: %w", err)
	}
	return path, nil
}

// Load reads one record set by path.
func (s *Store) Load(path string) ([]models.CanonicalProduct, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read record set: %w", err)
	}
	var records []models.CanonicalProduct
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode record set %s: %w", filepath.Base(path), err)
	}
	return records, nil
}

// Latest returns the most recent record set, ordered by the timestamp
// embedded in the filename.
func (s *Store) Latest() (string, []models.CanonicalProduct, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", nil, fmt.Errorf("list records dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if strings.HasPrefix(n, filePrefix) && strings.HasSuffix(n, fileExt) {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return "", nil, ErrNoRecordSets
	}
	sort.Strings(names)

	path := filepath.Join(s.dir, names[len(names)-1])
	records, err := s.Load(path)
	if err != nil {
		return "", nil, err
	}
	return path, records, nil
}

// List returns all record set paths, newest first.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list records dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if strings.HasPrefix(n, filePrefix) && strings.HasSuffix(n, fileExt) {
			names = append(names, n)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(s.dir, n)
	}
	return paths, nil
}
