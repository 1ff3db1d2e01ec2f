package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory DocumentStore, used in tests and by embedders
// that supply their own persistence.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*Document)}
}

// Create inserts a new document.
func (m *MemoryStore) Create(_ context.Context, kind string, data map[string]interface{}) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	stableRef := fmt.Sprintf("Document.%s.%s", kind, id)
	m.docs[id] = &Document{
		ID:              id,
		Kind:            kind,
		StableReference: stableRef,
		Data:            deepCopy(data),
	}
	return id, stableRef, nil
}

// Update merges partial data into an existing document.
func (m *MemoryStore) Update(_ context.Context, id string, partial map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[id]
	if !ok {
		return fmt.Errorf("document %s not found", id)
	}
	for k, v := range deepCopy(partial) {
		doc.Data[k] = v
	}
	return nil
}

// Delete removes a document.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[id]; !ok {
		return fmt.Errorf("document %s not found", id)
	}
	delete(m.docs, id)
	return nil
}

// Get loads a document copy by id.
func (m *MemoryStore) Get(_ context.Context, id string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s not found", id)
	}
	return &Document{
		ID:              doc.ID,
		Kind:            doc.Kind,
		StableReference: doc.StableReference,
		Data:            deepCopy(doc.Data),
	}, nil
}

// Len reports the number of stored documents.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// CountKind reports the number of documents of one kind.
func (m *MemoryStore) CountKind(kind string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, d := range m.docs {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// deepCopy clones a data map through JSON so callers cannot alias stored
// state. Document data is JSON-representable by contract.
func deepCopy(data map[string]interface{}) map[string]interface{} {
	if data == nil {
		return map[string]interface{}{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		out := make(map[string]interface{}, len(data))
		for k, v := range data {
			out[k] = v
		}
		return out
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]interface{}{}
	}
	return out
}
