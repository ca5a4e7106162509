package attestation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/OmniBazaar/Coin-sub013/internal/encoding"
)

// Stored pairs an artifact with the name it is stored under, so consumers can
// report conflicts precisely and remove consumed files after submission.
type Stored struct {
	Name        string
	Attestation *Attestation
}

// Store is the shared mailbox between independent signer processes and the
// aggregator. Implementations never mutate an artifact after Put.
type Store interface {
	// Put persists the artifact and returns the name it was stored under.
	Put(a *Attestation) (string, error)
	// ListForNonce returns artifacts for the given operation whose embedded
	// nonce equals nonce. Artifacts with any other nonce, past or future, are
	// stale and excluded.
	ListForNonce(op encoding.Operation, nonce uint64) ([]Stored, error)
	// Remove deletes an artifact by name.
	Remove(name string) error
}

// DirStore is the production Store: one JSON file per artifact in a shared
// directory. Every signer writes a uniquely-named file and files are never
// rewritten, so no locking is needed across processes.
type DirStore struct {
	dir    string
	logger *zap.Logger
}

var _ Store = (*DirStore)(nil)

func NewDirStore(dir string, logger *zap.Logger) *DirStore {
	return &DirStore{dir: dir, logger: logger.Named("store")}
}

func (s *DirStore) Put(a *Attestation) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create attestation dir %s", s.dir)
	}

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encode attestation")
	}

	name := a.Filename()
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", errors.Wrapf(err, "write attestation %s", name)
	}
	return name, nil
}

func (s *DirStore) ListForNonce(op encoding.Operation, nonce uint64) ([]Stored, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read attestation dir %s", s.dir)
	}

	var out []Stored
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "read attestation %s", entry.Name())
		}

		a := &Attestation{}
		if err := json.Unmarshal(data, a); err != nil {
			// Foreign files in the mailbox are skipped, not fatal: another
			// operator may be mid-write or the directory may be shared.
			s.logger.Warn("skipping unparseable artifact", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		if a.Operation != op || a.Nonce != nonce {
			continue
		}
		out = append(out, Stored{Name: entry.Name(), Attestation: a})
	}
	return out, nil
}

func (s *DirStore) Remove(name string) error {
	return os.Remove(filepath.Join(s.dir, name))
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu        sync.Mutex
	artifacts map[string]*Attestation
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{artifacts: make(map[string]*Attestation)}
}

func (s *MemStore) Put(a *Attestation) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := a.Filename()
	s.artifacts[name] = a
	return name, nil
}

func (s *MemStore) ListForNonce(op encoding.Operation, nonce uint64) ([]Stored, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.artifacts))
	for name := range s.artifacts {
		names = append(names, name)
	}
	sort.Strings(names) // deterministic enumeration, like a directory listing

	var out []Stored
	for _, name := range names {
		a := s.artifacts[name]
		if a.Operation != op || a.Nonce != nonce {
			continue
		}
		out = append(out, Stored{Name: name, Attestation: a})
	}
	return out, nil
}

func (s *MemStore) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.artifacts[name]; !ok {
		return errors.Errorf("artifact %s not found", name)
	}
	delete(s.artifacts, name)
	return nil
}

// PutNamed stores an artifact under an explicit name, bypassing the derived
// filename. Test helper for simulating stray copies in the mailbox.
func (s *MemStore) PutNamed(name string, a *Attestation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[name] = a
}

// Len reports the number of stored artifacts. Test helper.
func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.artifacts)
}
