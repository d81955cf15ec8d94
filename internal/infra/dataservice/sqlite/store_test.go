package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"recordcore/pkg/domain"
)

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.RegisterSchema(domain.Schema{
		Table:  "Contact",
		Fields: []domain.Field{{Name: "Name", Type: domain.FieldTypeString}},
	}); err != nil {
		t.Fatalf("register schema: %v", err)
	}
	result, err := store.Create(context.Background(), "Contact", map[string]any{"Name": "Ada"}, nil)
	if err != nil || !result.Succeeded {
		t.Fatalf("create: %+v %v", result, err)
	}
	id, _ := result.Data[domain.FieldID].(string)
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	if _, err := reopened.FetchSchema(context.Background(), "Contact"); err != nil {
		t.Fatalf("schema not durable: %v", err)
	}
	read, err := reopened.Read(context.Background(), "Contact", domain.ReadQuery{ID: id})
	if err != nil || len(read.Results) != 1 {
		t.Fatalf("row not durable: %+v %v", read, err)
	}
	if read.Results[0]["Name"] != "Ada" {
		t.Fatalf("row = %v", read.Results[0])
	}
	meta, ok := read.Results[0].Meta()
	if !ok || !meta.CanUpdate {
		t.Fatalf("meta not durable: %+v %v", meta, ok)
	}
}

func TestStoreUpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	result, err := store.Create(context.Background(), "Contact", map[string]any{"Name": "Ada"}, nil)
	if err != nil || !result.Succeeded {
		t.Fatalf("create: %+v %v", result, err)
	}
	id, _ := result.Data[domain.FieldID].(string)
	if _, err := store.Update(context.Background(), "Contact", map[string]any{domain.FieldID: id, "Name": "Ada L."}, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	read, err := reopened.Read(context.Background(), "Contact", domain.ReadQuery{ID: id})
	if err != nil || len(read.Results) != 1 {
		t.Fatalf("read: %+v %v", read, err)
	}
	if read.Results[0]["Name"] != "Ada L." {
		t.Fatalf("update not durable: %v", read.Results[0])
	}
}

func TestStoreFailedUpdateDoesNotPersist(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	result, err := store.Update(context.Background(), "Contact", map[string]any{domain.FieldID: "ghost"}, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if result.Succeeded {
		t.Fatalf("expected soft failure for missing record")
	}
}

func TestStoreDefaultPath(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "nested", "dir", "records.db"))
	if err != nil {
		t.Fatalf("open with nested dirs: %v", err)
	}
	defer store.Close()
	if store.Path() == "" {
		t.Fatalf("path not reported")
	}
}
