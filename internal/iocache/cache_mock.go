package iocache

import (
	"github.com/huangsam/evidence/internal/contract"
	"github.com/stretchr/testify/mock"
)

// MockItemStore is a mock implementation of ItemStore for testing.
type MockItemStore struct {
	mock.Mock
}

var _ contract.ItemStore = &MockItemStore{} // Compile-time check

// Get implements the ItemStore interface.
func (m *MockItemStore) Get(id string) (string, bool) {
	args := m.Called(id)
	return args.String(0), args.Bool(1)
}

// Put implements the ItemStore interface.
func (m *MockItemStore) Put(id string, text string) {
	m.Called(id, text)
}

// Len implements the ItemStore interface.
func (m *MockItemStore) Len() int {
	args := m.Called()
	return args.Int(0)
}
