package evidence

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sieve-kg/sieve/pkg/common"
)

// Store is a read-only index of source documents by ID. Stores are built
// once before a run and never mutated while the pipeline is running.
type Store interface {
	Resolve(id string) (*common.Document, bool)
	Len() int
	IDs() []string
}

// MemoryStore holds documents in memory, indexed by ID.
type MemoryStore struct {
	docs  map[string]common.Document
	order []string
}

// NewMemoryStore builds a store from the given documents. A later document
// with a duplicate ID is ignored; the first occurrence wins.
func NewMemoryStore(docs []common.Document) *MemoryStore {
	s := &MemoryStore{
		docs: make(map[string]common.Document, len(docs)),
	}
	for _, doc := range docs {
		if doc.ID == "" {
			continue
		}
		if _, exists := s.docs[doc.ID]; exists {
			continue
		}
		s.docs[doc.ID] = doc
		s.order = append(s.order, doc.ID)
	}
	return s
}

// Resolve returns the document with the given ID, if present.
func (s *MemoryStore) Resolve(id string) (*common.Document, bool) {
	doc, ok := s.docs[id]
	if !ok {
		return nil, false
	}
	return &doc, true
}

// Len returns the number of documents in the store.
func (s *MemoryStore) Len() int {
	return len(s.docs)
}

// IDs returns all document IDs in insertion order.
func (s *MemoryStore) IDs() []string {
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	return ids
}

// Parse builds a store from a JSON array of documents.
func Parse(data []byte) (*MemoryStore, error) {
	var docs []common.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to parse evidence store: %w", err)
	}
	for i, doc := range docs {
		if doc.ID == "" {
			return nil, fmt.Errorf("evidence document %d has no id", i)
		}
	}
	return NewMemoryStore(docs), nil
}

// LoadFile reads a JSON evidence file from disk. Errors here are
// infrastructure failures: the whole run must abort.
func LoadFile(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read evidence store %s: %w", path, err)
	}
	return Parse(data)
}
