// Command recordedit drives one load/edit/save cycle against the
// environment-selected backend. It exists for manual poking at the engine
// and as a wiring example.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"recordcore/internal/blob"
	"recordcore/internal/core"
	"recordcore/internal/infra/dataservice/memory"
	"recordcore/internal/infra/dataservice/postgres"
	"recordcore/internal/infra/dataservice/sqlite"
	"recordcore/internal/logging"
	"recordcore/pkg/domain"
)

type setFlags []string

func (f *setFlags) String() string { return strings.Join(*f, ",") }

func (f *setFlags) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func main() {
	var (
		table    = flag.String("table", "Contact", "table to edit")
		recordID = flag.String("id", "", "existing record id (empty creates)")
		seedDemo = flag.Bool("demo-schema", false, "register the demo Contact schema before editing")
		sets     setFlags
	)
	flag.Var(&sets, "set", "field edit as name=value (repeatable)")
	flag.Parse()

	logging.Setup(os.Getenv("RECORDCORE_LOG_LEVEL"), os.Getenv("RECORDCORE_LOG_FORMAT"))

	if err := run(context.Background(), *table, *recordID, *seedDemo, sets); err != nil {
		slog.Error("recordedit failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, table, recordID string, seedDemo bool, sets setFlags) error {
	backend, err := core.OpenBackend(ctx)
	if err != nil {
		return err
	}

	if seedDemo {
		if err := registerSchema(ctx, backend, demoSchema(table)); err != nil {
			return err
		}
	}

	cfg := core.Config{
		Table:       table,
		Schemas:     backend,
		Data:        backend,
		Permissions: backend,
		Lookups:     backend,
		Logger:      slog.Default(),
		Metrics:     core.NewExpvarMetricsRecorder("recordedit"),
		Tracer:      core.NewJSONTracer(os.Stderr),
	}
	session := core.NewSession(cfg)

	if os.Getenv("RECORDCORE_BLOB_DRIVER") != "" {
		store, err := blob.OpenFromEnv(ctx)
		if err != nil {
			return err
		}
		archiver := core.NewSaveArchiver(store, slog.Default())
		session.On(domain.EventPostSave, archiver.Listener())
	}

	if err := session.Load(ctx, core.LoadOptions{RecordID: recordID}); err != nil {
		return err
	}
	if r := session.Readable(); !r.CanRead {
		return fmt.Errorf("%s", r.Message)
	}

	for _, kv := range sets {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("invalid -set %q, want name=value", kv)
		}
		session.SetField(name, coerce(raw))
	}

	result, err := session.Save(ctx, core.SaveHooks{})
	if err != nil {
		return err
	}
	if result.Status == core.SaveStatusInvalid {
		for _, m := range result.Messages {
			fmt.Fprintf(os.Stderr, "%s: %s\n", m.Field, m.Message)
		}
		return fmt.Errorf("validation failed")
	}

	out, err := json.MarshalIndent(result.Data, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n%s\n", result.Outcome, result.RecordID, out)
	return nil
}

func registerSchema(ctx context.Context, backend core.Backend, schema domain.Schema) error {
	switch b := backend.(type) {
	case *memory.Service:
		b.RegisterSchema(schema)
		return nil
	case *sqlite.Store:
		return b.RegisterSchema(schema)
	case *postgres.Store:
		return b.RegisterSchema(ctx, schema)
	default:
		return fmt.Errorf("backend %T cannot register schemas", backend)
	}
}

func demoSchema(table string) domain.Schema {
	return domain.Schema{
		Table: table,
		Fields: []domain.Field{
			{Name: "Name", Type: domain.FieldTypeString, Required: true, DisplayName: "Name"},
			{Name: "Email", Type: domain.FieldTypeString, DisplayName: "Email", Nullable: true},
			{Name: "Age", Type: domain.FieldTypeNumber, Nullable: true, DisplayName: "Age"},
			{Name: "Active", Type: domain.FieldTypeBoolean, DisplayName: "Active"},
			{Name: "SignedUpAt", Type: domain.FieldTypeDateTime, Nullable: true, DisplayName: "Signed Up"},
		},
	}
}

// coerce maps a CLI string to the closest edit-buffer value type.
func coerce(raw string) any {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n
	}
	return raw
}
