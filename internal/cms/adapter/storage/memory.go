package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"blog-cms/internal/cms/domain/repository"
	apperrors "blog-cms/internal/shared/errors"
)

// Object is a stored blob with its content type.
type Object struct {
	Data        []byte
	ContentType string
}

// MemoryStorage keeps objects in process memory.
type MemoryStorage struct {
	mu            sync.RWMutex
	objects       map[string]Object
	publicBaseURL string
}

var _ repository.ObjectStorage = (*MemoryStorage)(nil)

// NewMemoryStorage creates an empty store whose public URLs start with publicBaseURL.
func NewMemoryStorage(publicBaseURL string) *MemoryStorage {
	if publicBaseURL == "" {
		publicBaseURL = "http://localhost/storage"
	}
	return &MemoryStorage{
		objects:       make(map[string]Object),
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

func (s *MemoryStorage) Upload(_ context.Context, path string, data []byte, contentType string) error {
	if path == "" {
		return apperrors.NewValidationError("object path cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = Object{Data: append([]byte(nil), data...), ContentType: contentType}
	return nil
}

func (s *MemoryStorage) Download(_ context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[path]
	if !ok {
		return nil, apperrors.NewNotFoundError("object")
	}
	return append([]byte(nil), obj.Data...), nil
}

func (s *MemoryStorage) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var names []string
	for name := range s.objects {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStorage) DeletePrefix(_ context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, apperrors.NewValidationError("refusing to delete an empty prefix")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for name := range s.objects {
		if strings.HasPrefix(name, prefix) {
			delete(s.objects, name)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemoryStorage) PublicURL(path string) string {
	return s.publicBaseURL + "/" + strings.TrimLeft(path, "/")
}

// Stat returns the stored object at path.
func (s *MemoryStorage) Stat(path string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[path]
	return obj, ok
}
