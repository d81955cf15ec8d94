package core

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"recordcore/internal/blob"
	"recordcore/pkg/domain"
)

func TestSaveArchiverWritesSuccessfulSaves(t *testing.T) {
	store := blob.NewMemoryStore()
	archiver := NewSaveArchiver(store, quietLogger())
	archiver.now = testClock

	listener := archiver.Listener()
	ok := listener(context.Background(), domain.SaveEvent{
		Name:     domain.EventPostSave,
		Table:    "Widget",
		Outcome:  domain.OutcomeCreate,
		RecordID: "r-1",
		Data:     map[string]any{domain.FieldID: "r-1", "Name": "Gadget"},
	})
	if !ok {
		t.Fatalf("archiver listener must never cancel")
	}

	infos, err := store.List(context.Background(), "Widget/r-1/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("archived blobs = %d", len(infos))
	}
	if !strings.HasSuffix(infos[0].Key, ".json") {
		t.Fatalf("key = %q", infos[0].Key)
	}
	if infos[0].ContentType != "application/json" {
		t.Fatalf("content type = %q", infos[0].ContentType)
	}

	_, rc, err := store.Get(context.Background(), infos[0].Key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if data["Name"] != "Gadget" {
		t.Fatalf("archived payload = %v", data)
	}
}

func TestSaveArchiverSkipsFailedOutcomes(t *testing.T) {
	store := blob.NewMemoryStore()
	archiver := NewSaveArchiver(store, quietLogger())

	listener := archiver.Listener()
	listener(context.Background(), domain.SaveEvent{
		Name:    domain.EventPostSave,
		Table:   "Widget",
		Outcome: domain.OutcomeFailed,
		Data:    map[string]any{},
	})
	listener(context.Background(), domain.SaveEvent{
		Name:    domain.EventPreSave,
		Table:   "Widget",
		Payload: domain.EditBuffer{"Name": "draft"},
	})

	infos, err := store.List(context.Background(), "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 0 {
		t.Fatalf("expected no archives, got %d", len(infos))
	}
}

func TestSaveArchiverEndToEnd(t *testing.T) {
	store := blob.NewMemoryStore()
	backend := &fakeBackend{
		schema: testSchema(),
		createResult: domain.MutationResult{
			Succeeded: true,
			Data:      map[string]any{domain.FieldID: "new-1", "Name": "Widget One"},
		},
	}
	session := newTestSession(backend)
	archiver := NewSaveArchiver(store, quietLogger())
	archiver.now = func() time.Time { return testClock() }
	session.On(domain.EventPostSave, archiver.Listener())

	if err := session.Load(context.Background(), LoadOptions{}); err != nil {
		t.Fatalf("load: %v", err)
	}
	session.SetField("Name", "Widget One")
	if _, err := session.Save(context.Background(), SaveHooks{}); err != nil {
		t.Fatalf("save: %v", err)
	}

	infos, err := store.List(context.Background(), "Widget/new-1/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("archived blobs = %d", len(infos))
	}
}
