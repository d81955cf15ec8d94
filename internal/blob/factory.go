package blob

import (
	"context"
	"fmt"
	"os"
)

// OpenFromEnv selects a blob backend using environment variables. Defaults
// to the filesystem driver when unset.
//
//	RECORDCORE_BLOB_DRIVER:  fs|s3|memory (default fs)
//	RECORDCORE_BLOB_FS_ROOT: root directory for the fs driver
func OpenFromEnv(ctx context.Context) (Store, error) {
	driver := os.Getenv("RECORDCORE_BLOB_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverFilesystem:
		return NewFSStore(os.Getenv("RECORDCORE_BLOB_FS_ROOT"))
	case DriverS3:
		return OpenS3FromEnv(ctx)
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
