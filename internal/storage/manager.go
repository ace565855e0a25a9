// Package storage persists path files on the local filesystem. Files are
// stored under their user-visible name so the macro library can key on it.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pedro-visualizer/backend/internal/models"
)

// Store defines the interface for path-file storage.
type Store interface {
	Save(name string, r io.Reader) (*models.FileInfo, error)
	SaveBytes(name string, data []byte) (*models.FileInfo, error)
	Get(id string) (*models.FileInfo, error)
	List(limit int) ([]*models.FileInfo, error)
	Delete(id string) error
	Rename(id string, newName string) (*models.FileInfo, error)
	GetFilePath(id string) (string, error)
}

// LocalStore implements Store using the local filesystem.
type LocalStore struct {
	mu    sync.RWMutex
	dir   string
	files map[string]*models.FileInfo
}

// NewLocalStore creates a LocalStore over dir, indexing any path files
// already present.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating paths directory: %w", err)
	}

	s := &LocalStore{
		dir:   dir,
		files: make(map[string]*models.FileInfo),
	}
	if err := s.scan(); err != nil {
		return nil, err
	}
	return s, nil
}

// scan indexes files already on disk so a restart does not lose the library.
func (s *LocalStore) scan() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("scanning paths directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		info := &models.FileInfo{
			ID:         uuid.New().String(),
			Name:       e.Name(),
			Size:       fi.Size(),
			UploadedAt: fi.ModTime(),
			Status:     "uploaded",
		}
		s.files[info.ID] = info
	}
	return nil
}

// Save saves a path file to the local filesystem.
func (s *LocalStore) Save(name string, r io.Reader) (*models.FileInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	return s.SaveBytes(name, data)
}

// SaveBytes saves a path file from memory. Saving an existing name replaces
// its content and refreshes its metadata.
func (s *LocalStore) SaveBytes(name string, data []byte) (*models.FileInfo, error) {
	name = filepath.Base(name)
	if name == "" || name == "." {
		return nil, fmt.Errorf("invalid file name")
	}

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("writing file: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info := s.findByNameLocked(name)
	if info == nil {
		info = &models.FileInfo{
			ID:   uuid.New().String(),
			Name: name,
		}
		s.files[info.ID] = info
	}
	info.Size = int64(len(data))
	info.UploadedAt = time.Now()
	info.Status = "uploaded"

	return info, nil
}

// Get retrieves file metadata by ID.
func (s *LocalStore) Get(id string) (*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", id)
	}
	return info, nil
}

// List returns the most recent files.
func (s *LocalStore) List(limit int) ([]*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var list []*models.FileInfo
	for _, info := range s.files {
		list = append(list, info)
	}

	// Sort by UploadedAt desc
	sort.Slice(list, func(i, j int) bool {
		return list[i].UploadedAt.After(list[j].UploadedAt)
	})

	if len(list) > limit {
		list = list[:limit]
	}

	return list, nil
}

// Delete removes a path file from storage.
func (s *LocalStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.files[id]
	if !ok {
		return fmt.Errorf("file not found: %s", id)
	}

	if err := os.Remove(filepath.Join(s.dir, info.Name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting file: %w", err)
	}
	delete(s.files, id)
	return nil
}

// Rename changes a file's user-visible name, moving it on disk.
func (s *LocalStore) Rename(id string, newName string) (*models.FileInfo, error) {
	newName = filepath.Base(newName)
	if newName == "" || newName == "." {
		return nil, fmt.Errorf("invalid file name")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", id)
	}
	if other := s.findByNameLocked(newName); other != nil && other.ID != id {
		return nil, fmt.Errorf("file name already in use: %s", newName)
	}

	oldPath := filepath.Join(s.dir, info.Name)
	newPath := filepath.Join(s.dir, newName)
	if err := os.Rename(oldPath, newPath); err != nil {
		return nil, fmt.Errorf("renaming file: %w", err)
	}

	info.Name = newName
	return info, nil
}

// GetFilePath returns the on-disk path of a stored file.
func (s *LocalStore) GetFilePath(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.files[id]
	if !ok {
		return "", fmt.Errorf("file not found: %s", id)
	}
	return filepath.Join(s.dir, info.Name), nil
}

func (s *LocalStore) findByNameLocked(name string) *models.FileInfo {
	for _, info := range s.files {
		if info.Name == name {
			return info
		}
	}
	return nil
}
