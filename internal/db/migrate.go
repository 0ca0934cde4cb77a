package db

import (
	"fmt"
)

// Migrate creates or updates the schema.
func (h *Handle) Migrate() error {
	gdb := h.DB

	if err := gdb.AutoMigrate(
		&Product{},
		&Category{},
		&Order{},
		&SyncRun{},
	); err != nil {
		return fmt.Errorf("AutoMigrate error: %w", err)
	}

	// The moysklad_id uniqueness is what makes the sync upsert idempotent, so
	// recreate the index if it ever went missing.
	for _, m := range []any{&Product{}, &Category{}, &Order{}} {
		if !gdb.Migrator().HasIndex(m, "MoyskladID") {
			if err := gdb.Migrator().CreateIndex(m, "MoyskladID"); err != nil {
				return fmt.Errorf("create moysklad_id index for %T: %w", m, err)
			}
		}
	}

	return nil
}
