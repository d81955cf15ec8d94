package core

import (
	"context"
	"fmt"
	"os"

	"recordcore/internal/infra/dataservice/memory"
	"recordcore/internal/infra/dataservice/postgres"
	"recordcore/internal/infra/dataservice/sqlite"
	"recordcore/pkg/domain"
)

// StorageDriver identifies a concrete data service backend.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// Backend bundles the collaborator contracts provided by the built-in
// storage drivers.
type Backend interface {
	domain.SchemaService
	domain.DataService
	domain.PermissionService
	domain.LookupService
}

// OpenBackend selects a backend using environment variables. Defaults to
// sqlite when unset.
//
//	RECORDCORE_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	RECORDCORE_SQLITE_PATH: path to sqlite file (default ./recordcore.db)
//	RECORDCORE_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenBackend(ctx context.Context) (Backend, error) {
	driver := os.Getenv("RECORDCORE_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewService(), nil
	case StorageSQLite:
		return sqlite.NewStore(os.Getenv("RECORDCORE_SQLITE_PATH"))
	case StoragePostgres:
		return postgres.NewStore(ctx, os.Getenv("RECORDCORE_POSTGRES_DSN"))
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
