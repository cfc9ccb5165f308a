package config

import (
	"fmt"
	"os"
	"sync"
)

// Storage is a small persistent string map, the CLI's equivalent of a
// browser's local storage. Each call reads and rewrites the whole file.
type Storage struct {
	mu   sync.Mutex
	path string
}

// NewStorage returns a Storage backed by path.
func NewStorage(path string) *Storage {
	return &Storage{path: path}
}

// Get returns the value for key, or "" when it is unset.
func (s *Storage) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.read()
	if err != nil {
		return "", err
	}
	return m[key], nil
}

// Set stores value under key.
func (s *Storage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.read()
	if err != nil {
		return err
	}
	m[key] = value
	return saveJSON(s.path, m)
}

// Remove deletes key. Removing a missing key is not an error.
func (s *Storage) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := m[key]; !ok {
		return nil
	}
	delete(m, key)
	if len(m) == 0 {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	return saveJSON(s.path, m)
}

func (s *Storage) read() (map[string]string, error) {
	p, err := loadJSON[map[string]string](s.path)
	if err != nil {
		return nil, fmt.Errorf("reading storage: %w", err)
	}
	if *p == nil {
		return make(map[string]string), nil
	}
	return *p, nil
}
