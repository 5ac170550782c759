package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
)

// guardiansFile mirrors the on-disk layout:
// {"encargados": {"<sender>": {"alumnos": ["<id>", ...]}}}
type guardiansFile struct {
	Encargados map[string]*guardianEntry `json:"encargados"`
}

type guardianEntry struct {
	Alumnos []string `json:"alumnos"`
}

// FileRegistry persists guardian-student relations in a JSON file, loaded
// once at startup and rewritten in full on every mutation.
type FileRegistry struct {
	mu     sync.Mutex
	path   string
	data   guardiansFile
	logger *zap.Logger
}

func NewFileRegistry(path string, logger *zap.Logger) (*FileRegistry, error) {
	r := &FileRegistry{
		path:   path,
		logger: logger,
		data:   guardiansFile{Encargados: make(map[string]*guardianEntry)},
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &r.data); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if r.data.Encargados == nil {
		r.data.Encargados = make(map[string]*guardianEntry)
	}
	return r, nil
}

func (r *FileRegistry) ListStudents(senderID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.data.Encargados[senderID]
	if entry == nil {
		return nil
	}
	out := make([]string, len(entry.Alumnos))
	copy(out, entry.Alumnos)
	return out
}

func (r *FileRegistry) AddRelation(senderID, studentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.data.Encargados[senderID]
	if entry == nil {
		entry = &guardianEntry{}
		r.data.Encargados[senderID] = entry
	}
	for _, id := range entry.Alumnos {
		if id == studentID {
			return nil
		}
	}
	entry.Alumnos = append(entry.Alumnos, studentID)
	return r.save()
}

func (r *FileRegistry) RemoveRelation(senderID, studentID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.data.Encargados[senderID]
	if entry == nil {
		return false
	}

	kept := entry.Alumnos[:0]
	removed := false
	for _, id := range entry.Alumnos {
		if id == studentID {
			removed = true
			continue
		}
		kept = append(kept, id)
	}
	if !removed {
		return false
	}

	entry.Alumnos = kept
	if err := r.save(); err != nil {
		r.logger.Error("saving guardians file", zap.Error(err), zap.String("path", r.path))
	}
	return true
}

func (r *FileRegistry) Close() error {
	return nil
}

func (r *FileRegistry) save() error {
	raw, err := json.MarshalIndent(r.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding guardians: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", r.path, err)
	}
	return nil
}
