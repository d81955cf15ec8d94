package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"recordcore/internal/blob"
	"recordcore/pkg/domain"
)

// SaveArchiver writes each successful save payload to a blob store as a JSON
// audit record keyed table/recordID/timestamp. Register its Listener on the
// POST_SAVE event.
type SaveArchiver struct {
	store  blob.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewSaveArchiver constructs an archiver over the blob store.
func NewSaveArchiver(store blob.Store, logger *slog.Logger) *SaveArchiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &SaveArchiver{store: store, logger: logger, now: time.Now}
}

// Listener returns the POST_SAVE listener. Failed outcomes are skipped;
// archive errors are logged and never cancel anything.
func (a *SaveArchiver) Listener() domain.Listener {
	return func(ctx context.Context, event domain.SaveEvent) bool {
		if event.Name != domain.EventPostSave || event.Outcome == domain.OutcomeFailed {
			return true
		}
		payload, err := json.Marshal(event.Data)
		if err != nil {
			a.logger.Error("archive encode failed", "table", event.Table, "id", event.RecordID, "error", err)
			return true
		}
		key := fmt.Sprintf("%s/%s/%d.json", event.Table, event.RecordID, a.now().UTC().UnixNano())
		if _, err := a.store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{ContentType: "application/json"}); err != nil {
			a.logger.Error("archive write failed", "key", key, "error", err)
		}
		return true
	}
}
