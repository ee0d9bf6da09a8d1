package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/streamshare/streamshare/internal/storage"
)

var _ storage.Storage = (*MockStorage)(nil)

const mockStorageBaseURL = "https://files.test/"

// MockStorage keeps uploaded files in memory
type MockStorage struct {
	mu      sync.Mutex
	uploads map[string]*storage.File
	err     error
}

func NewMockStorage() *MockStorage {
	return &MockStorage{uploads: make(map[string]*storage.File)}
}

// FailWith makes every following upload return err
func (m *MockStorage) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockStorage) Upload(ctx context.Context, file *storage.File, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return "", m.err
	}
	cp := *file
	m.uploads[key] = &cp
	return mockStorageBaseURL + key, nil
}

func (m *MockStorage) Delete(ctx context.Context, fileURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.uploads, strings.TrimPrefix(fileURL, mockStorageBaseURL))
	return nil
}

// Has reports whether the file behind fileURL is still stored
func (m *MockStorage) Has(fileURL string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.uploads[strings.TrimPrefix(fileURL, mockStorageBaseURL)]
	return ok
}

// Uploads returns the number of stored files
func (m *MockStorage) Uploads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.uploads)
}
