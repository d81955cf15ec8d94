package postgres

import (
	"context"
	"os"
	"testing"

	"recordcore/pkg/domain"
)

// openTestStore connects to the server named by RECORDCORE_POSTGRES_TEST_DSN
// and skips the test when unset, so the suite stays green without a database.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("RECORDCORE_POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("RECORDCORE_POSTGRES_TEST_DSN not set")
	}
	store, err := NewStore(context.Background(), dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		_, _ = store.DB().Exec(`DELETE FROM state WHERE bucket = $1`, stateBucket)
		_ = store.Close()
	})
	return store
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if err := store.RegisterSchema(ctx, domain.Schema{
		Table:  "Contact",
		Fields: []domain.Field{{Name: "Name", Type: domain.FieldTypeString}},
	}); err != nil {
		t.Fatalf("register schema: %v", err)
	}
	result, err := store.Create(ctx, "Contact", map[string]any{"Name": "Ada"}, nil)
	if err != nil || !result.Succeeded {
		t.Fatalf("create: %+v %v", result, err)
	}
	id, _ := result.Data[domain.FieldID].(string)

	reopened, err := NewStore(ctx, os.Getenv("RECORDCORE_POSTGRES_TEST_DSN"))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	read, err := reopened.Read(ctx, "Contact", domain.ReadQuery{ID: id})
	if err != nil || len(read.Results) != 1 {
		t.Fatalf("row not durable: %+v %v", read, err)
	}
	if read.Results[0]["Name"] != "Ada" {
		t.Fatalf("row = %v", read.Results[0])
	}
}
