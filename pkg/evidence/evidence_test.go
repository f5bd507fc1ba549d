package evidence

import (
	"reflect"
	"testing"

	"github.com/sieve-kg/sieve/pkg/common"
)

func TestMemoryStore_Resolve(t *testing.T) {
	store := NewMemoryStore([]common.Document{
		{ID: "doc_1", Text: "first"},
		{ID: "doc_2", Text: "second"},
	})

	doc, ok := store.Resolve("doc_1")
	if !ok {
		t.Fatal("expected doc_1 to resolve")
	}
	if doc.Text != "first" {
		t.Fatalf("expected text %q, got %q", "first", doc.Text)
	}

	if _, ok := store.Resolve("missing"); ok {
		t.Fatal("expected missing id to not resolve")
	}
}

func TestMemoryStore_DuplicateAndEmptyIDs(t *testing.T) {
	store := NewMemoryStore([]common.Document{
		{ID: "doc_1", Text: "first"},
		{ID: "", Text: "no id"},
		{ID: "doc_1", Text: "shadowed"},
	})

	if store.Len() != 1 {
		t.Fatalf("expected 1 document, got %d", store.Len())
	}
	doc, _ := store.Resolve("doc_1")
	if doc.Text != "first" {
		t.Fatalf("first occurrence should win, got %q", doc.Text)
	}
}

func TestParse(t *testing.T) {
	data := []byte(`[
		{"id": "msg_001", "text": "Kickoff notes", "timestamp": "2024-03-01T10:00:00Z"},
		{"id": "msg_002", "text": "Follow-up"}
	]`)

	store, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("expected 2 documents, got %d", store.Len())
	}
	if got := store.IDs(); !reflect.DeepEqual(got, []string{"msg_001", "msg_002"}) {
		t.Fatalf("unexpected IDs: %v", got)
	}
}

func TestParse_MissingID(t *testing.T) {
	if _, err := Parse([]byte(`[{"text": "anonymous"}]`)); err == nil {
		t.Fatal("expected error for document without id")
	}
}

func TestParse_Malformed(t *testing.T) {
	if _, err := Parse([]byte(`{not json`)); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}
