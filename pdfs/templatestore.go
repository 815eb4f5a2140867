package pdfs

import (
	"image"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
)

type TemplateStore[T any] struct {
	mu        sync.RWMutex
	templates map[string]T
}

func NewTemplateStore[T any]() *TemplateStore[T] {
	return &TemplateStore[T]{templates: make(map[string]T)}
}

func (s *TemplateStore[T]) Store(key string, template T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[key] = template
}

func (s *TemplateStore[T]) Get(key string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[key]
	return t, ok
}

// TemplateSource hands out background template images by name.
// Callers must not mutate the returned image.
type TemplateSource interface {
	Open(name string) (image.Image, error)
}

// FileTemplates decodes the template from Dir on every Open.
// A missing or broken file fails the call, never the process.
type FileTemplates struct {
	Dir string
}

func (f FileTemplates) Open(name string) (image.Image, error) {
	return imaging.Open(filepath.Join(f.Dir, name))
}

// MemoryTemplates serves pre-decoded templates
type MemoryTemplates struct {
	*TemplateStore[image.Image]
}

func NewMemoryTemplates() *MemoryTemplates {
	return &MemoryTemplates{TemplateStore: NewTemplateStore[image.Image]()}
}

// Preload decodes a template file once and keeps it under name
func (m *MemoryTemplates) Preload(dir string, name string) error {
	img, err := imaging.Open(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	m.Store(name, img)
	return nil
}

func (m *MemoryTemplates) Open(name string) (image.Image, error) {
	img, ok := m.Get(name)
	if !ok {
		return nil, &TemplateNotFoundError{Name: name}
	}
	return img, nil
}

type TemplateNotFoundError struct {
	Name string
}

func (e *TemplateNotFoundError) Error() string {
	return "template not found: " + e.Name
}
