package syncer

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/skladsync/skladsync/internal/db"
)

// Ledger owns the sync_runs audit trail. Runs are opened as "started" and
// closed exactly once as "success" or "error"; nothing ever reopens or
// deletes one.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(gdb *gorm.DB) *Ledger {
	return &Ledger{db: gdb}
}

func (l *Ledger) Open(syncType string) (*db.SyncRun, error) {
	run := &db.SyncRun{
		SyncType: syncType,
		Status:   db.SyncStatusStarted,
	}
	if err := l.db.Create(run).Error; err != nil {
		return nil, fmt.Errorf("open sync run: %w", err)
	}
	return run, nil
}

// CloseSuccess freezes the final counts and marks the run terminal.
func (l *Ledger) CloseSuccess(run *db.SyncRun, res Result) error {
	return l.close(run, db.SyncStatusSuccess, res, "")
}

// CloseError records the failure. res carries whatever partial progress the
// caller had accumulated before the failure.
func (l *Ledger) CloseError(run *db.SyncRun, res Result, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return l.close(run, db.SyncStatusError, res, msg)
}

func (l *Ledger) close(run *db.SyncRun, status string, res Result, errMsg string) error {
	if run.FinishedAt != nil {
		return fmt.Errorf("sync run %d already closed as %s", run.ID, run.Status)
	}
	now := time.Now()
	updates := map[string]any{
		"status":          status,
		"items_processed": res.Processed,
		"items_created":   res.Created,
		"items_updated":   res.Updated,
		"error_message":   errMsg,
		"finished_at":     now,
	}
	if err := l.db.Model(run).Updates(updates).Error; err != nil {
		return fmt.Errorf("close sync run %d: %w", run.ID, err)
	}
	run.Status = status
	run.ItemsProcessed = res.Processed
	run.ItemsCreated = res.Created
	run.ItemsUpdated = res.Updated
	run.ErrorMessage = errMsg
	run.FinishedAt = &now
	return nil
}

// Recent lists past runs, newest first, optionally filtered by kind and
// status. Read-only surface for the API and CLI.
func (l *Ledger) Recent(limit int, syncType, status string) ([]db.SyncRun, error) {
	q := l.db.Model(&db.SyncRun{}).Order("started_at DESC")
	if syncType != "" {
		q = q.Where("sync_type = ?", syncType)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var runs []db.SyncRun
	if err := q.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
