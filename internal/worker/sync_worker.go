package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/metrics"
	"fintrack/internal/sheets"
	"fintrack/internal/storage"
)

// Consumer delivers ledger sync messages until ctx ends.
type Consumer interface {
	ConsumeLedgerSync(ctx context.Context, handler func(context.Context, *amqp.LedgerSyncMessage) error) error
}

// SyncWorker mirrors ledger entries from SQLite into the spreadsheet.
type SyncWorker struct {
	store     *storage.SQLiteRepository
	writer    sheets.LedgerWriter
	metrics   *metrics.Metrics
	batchSize int

	// mu serializes mirroring so the consumer and the sweep never append
	// the same entry twice.
	mu sync.Mutex
}

func NewSyncWorker(store *storage.SQLiteRepository, writer sheets.LedgerWriter, m *metrics.Metrics, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &SyncWorker{
		store:     store,
		writer:    writer,
		metrics:   m,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single sync message from AMQP
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.LedgerSyncMessage) error {
	slog.DebugContext(ctx, "Processing sync message",
		"kind", msg.Kind, "id", msg.ID, "version", msg.Version)
	return w.mirror(ctx, msg.Kind, msg.ID)
}

// mirror appends one entry unless it is already synced. Entries deleted
// before the worker got to them are skipped.
func (w *SyncWorker) mirror(ctx context.Context, kind core.TransactionType, id int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	status, err := w.store.SyncStatus(ctx, kind, id)
	if errors.Is(err, core.ErrNotFound) {
		slog.InfoContext(ctx, "Ledger entry gone before sync, skipping", "kind", kind, "id", id)
		w.metrics.SheetSync(string(kind), "skipped")
		return nil
	}
	if err != nil {
		return err
	}
	if status == storage.SyncSynced {
		w.metrics.SheetSync(string(kind), "skipped")
		return nil
	}

	ref, err := w.appendEntry(ctx, kind, id)
	if err != nil {
		w.metrics.SheetSync(string(kind), "error")
		if markErr := w.store.MarkSyncError(ctx, kind, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "kind", kind, "id", id, "error", markErr)
		}
		return fmt.Errorf("mirror %s %d: %w", kind, id, err)
	}

	// The row is already in the sheet; failing here would only duplicate it.
	if err := w.store.MarkSynced(ctx, kind, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "kind", kind, "id", id, "error", err)
	}
	w.metrics.SheetSync(string(kind), "synced")

	slog.InfoContext(ctx, "Mirrored ledger entry", "kind", kind, "id", id, "sheets_ref", ref)
	return nil
}

func (w *SyncWorker) appendEntry(ctx context.Context, kind core.TransactionType, id int64) (string, error) {
	switch kind {
	case core.TransactionIncome:
		in, err := w.store.GetIncomeForSync(ctx, id)
		if err != nil {
			return "", err
		}
		return w.writer.AppendIncome(ctx, in)
	case core.TransactionExpense:
		e, err := w.store.GetExpenseForSync(ctx, id)
		if err != nil {
			return "", err
		}
		return w.writer.AppendExpense(ctx, e)
	default:
		return "", fmt.Errorf("unknown ledger kind %q", kind)
	}
}

// ProcessPending mirrors up to one batch of pending entries. It is the
// backstop for lost messages and worker downtime.
func (w *SyncWorker) ProcessPending(ctx context.Context) (synced int, err error) {
	pending, err := w.store.GetPendingSyncEntries(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending entries: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending ledger entries", "count", len(pending))

	for _, p := range pending {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}
		if err := w.mirror(ctx, p.Kind, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror pending entry", "kind", p.Kind, "id", p.ID, "error", err)
			continue
		}
		synced++
	}
	return synced, nil
}

// Run sweeps pending entries at startup and every interval, and handles
// messages from consumer when one is given. It returns when ctx ends.
func (w *SyncWorker) Run(ctx context.Context, consumer Consumer, interval time.Duration) error {
	if n, err := w.store.RetrySyncErrors(ctx); err != nil {
		slog.WarnContext(ctx, "Failed to reset sync errors", "error", err)
	} else if n > 0 {
		slog.InfoContext(ctx, "Reset failed ledger entries for retry", "count", n)
	}

	if n, err := w.ProcessPending(ctx); err != nil {
		slog.WarnContext(ctx, "Startup sync check failed", "error", err)
	} else {
		slog.InfoContext(ctx, "Startup sync check completed", "synced", n)
	}

	var wg sync.WaitGroup
	if consumer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.ConsumeLedgerSync(ctx, w.HandleSyncMessage); err != nil && !errors.Is(err, context.Canceled) {
				slog.ErrorContext(ctx, "AMQP consumer stopped", "error", err)
			}
		}()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil
		case <-ticker.C:
			if _, err := w.ProcessPending(ctx); err != nil && ctx.Err() == nil {
				slog.ErrorContext(ctx, "Periodic sync failed", "error", err)
			}
		}
	}
}
