package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/skladsync/skladsync/internal/db"
	"github.com/skladsync/skladsync/internal/moysklad"
)

// Result is the outcome of one reconciliation pass.
type Result struct {
	Processed int `json:"total"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
}

// Engine turns remote records into local upserts keyed by moysklad_id,
// bracketed by a sync-run ledger entry.
type Engine struct {
	log    zerolog.Logger
	db     *gorm.DB
	api    *moysklad.Client
	ledger *Ledger

	// One run of a given kind at a time; a manual trigger overlapping the
	// scheduled pass waits instead of double-counting against the same rows.
	mu map[string]*sync.Mutex
}

func NewEngine(log zerolog.Logger, gdb *gorm.DB, api *moysklad.Client) *Engine {
	mu := make(map[string]*sync.Mutex)
	for _, t := range []string{db.SyncTypeProducts, db.SyncTypeStock, db.SyncTypeOrders, db.SyncTypeCategories} {
		mu[t] = &sync.Mutex{}
	}
	return &Engine{
		log:    log,
		db:     gdb,
		api:    api,
		ledger: NewLedger(gdb),
		mu:     mu,
	}
}

func (e *Engine) Ledger() *Ledger { return e.ledger }

func kindFor(syncType string) (moysklad.Kind, error) {
	switch syncType {
	case db.SyncTypeProducts:
		return moysklad.KindProduct, nil
	case db.SyncTypeStock:
		return moysklad.KindStock, nil
	case db.SyncTypeOrders:
		return moysklad.KindOrder, nil
	case db.SyncTypeCategories:
		return moysklad.KindCategory, nil
	default:
		return "", fmt.Errorf("unknown sync type %q", syncType)
	}
}

// Run executes one full fetch-all + reconcile-all pass for the given kind.
// The returned Result is valid even on error and reflects the progress made
// before the failure, matching what the ledger recorded.
func (e *Engine) Run(ctx context.Context, syncType string) (Result, error) {
	kind, err := kindFor(syncType)
	if err != nil {
		return Result{}, err
	}

	lock, ok := e.mu[syncType]
	if ok {
		lock.Lock()
		defer lock.Unlock()
	}

	run, err := e.ledger.Open(syncType)
	if err != nil {
		return Result{}, err
	}
	e.log.Info().Str("sync", syncType).Uint("run_id", run.ID).Msg("sync started")

	records, err := e.api.FetchAll(ctx, kind)
	if err != nil {
		_ = e.ledger.CloseError(run, Result{}, err)
		return Result{}, err
	}

	res, rerr := e.reconcile(syncType, records)
	if rerr != nil {
		_ = e.ledger.CloseError(run, res, rerr)
		return res, rerr
	}

	if err := e.ledger.CloseSuccess(run, res); err != nil {
		return res, err
	}
	e.log.Info().
		Str("sync", syncType).
		Uint("run_id", run.ID).
		Int("processed", res.Processed).
		Int("created", res.Created).
		Int("updated", res.Updated).
		Msg("sync finished")
	return res, nil
}

func (e *Engine) reconcile(syncType string, records []moysklad.Record) (Result, error) {
	switch syncType {
	case db.SyncTypeProducts:
		return e.reconcileProducts(records)
	case db.SyncTypeStock:
		return e.reconcileStock(records)
	case db.SyncTypeOrders:
		return e.reconcileOrders(records)
	case db.SyncTypeCategories:
		return e.reconcileCategories(records)
	default:
		return Result{}, fmt.Errorf("unknown sync type %q", syncType)
	}
}

// reconcileProducts upserts every record by moysklad_id. A record without an
// id means the response itself is broken, so the whole run fails; the
// returned Result covers only the records handled before the bad one.
func (e *Engine) reconcileProducts(records []moysklad.Record) (Result, error) {
	var res Result
	for _, rec := range records {
		id := rec.ID()
		if id == "" {
			return res, fmt.Errorf("product record without id (name %q)", rec.Name())
		}

		raw, err := json.Marshal(rec)
		if err != nil {
			return res, fmt.Errorf("product %s: encode raw data: %w", id, err)
		}

		fields := map[string]any{
			"name":          rec.Name(),
			"code":          rec.Str("code"),
			"article":       rec.Str("article"),
			"description":   rec.Str("description"),
			"price":         rec.SalePrice(),
			"cost":          rec.BuyPrice(),
			"archived":      rec.Bool("archived"),
			"external_code": rec.Str("externalCode"),
			"barcode":       rec.Barcode(),
			"raw_data":      datatypes.JSON(raw),
			"last_sync":     time.Now(),
		}

		created, err := e.upsert(&db.Product{}, id, fields, func() any {
			return &db.Product{
				MoyskladID:   id,
				Name:         rec.Name(),
				Code:         rec.Str("code"),
				Article:      rec.Str("article"),
				Description:  rec.Str("description"),
				Price:        rec.SalePrice(),
				Cost:         rec.BuyPrice(),
				Archived:     rec.Bool("archived"),
				IsActive:     true,
				ExternalCode: rec.Str("externalCode"),
				Barcode:      rec.Barcode(),
				RawData:      datatypes.JSON(raw),
				LastSync:     time.Now(),
			}
		})
		if err != nil {
			return res, fmt.Errorf("product %s: %w", id, err)
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
		res.Processed++
	}
	return res, nil
}

// reconcileStock correlates stock report rows with mirrored products via the
// meta.href product reference. Rows that cannot be resolved are expected
// (stock may reference a product not yet synced) and are skipped with a
// warning; they still count as processed.
func (e *Engine) reconcileStock(records []moysklad.Record) (Result, error) {
	var res Result
	for _, rec := range records {
		res.Processed++

		id, ok := moysklad.ProductIDFromHref(rec.Href())
		if !ok {
			e.log.Warn().Str("href", rec.Href()).Msg("stock row without product reference, skipping")
			continue
		}

		var product db.Product
		err := e.db.Where("moysklad_id = ?", id).Take(&product).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			e.log.Warn().Str("moysklad_id", id).Msg("stock row for unknown product, skipping")
			continue
		}
		if err != nil {
			return res, fmt.Errorf("stock %s: %w", id, err)
		}

		err = e.db.Model(&product).Updates(map[string]any{
			"stock":     rec.Float("stock"),
			"reserve":   rec.Float("reserve"),
			"last_sync": time.Now(),
		}).Error
		if err != nil {
			return res, fmt.Errorf("stock %s: %w", id, err)
		}
		res.Updated++
	}
	return res, nil
}

func (e *Engine) reconcileOrders(records []moysklad.Record) (Result, error) {
	var res Result
	for _, rec := range records {
		id := rec.ID()
		if id == "" {
			return res, fmt.Errorf("order record without id (name %q)", rec.Name())
		}

		raw, err := json.Marshal(rec)
		if err != nil {
			return res, fmt.Errorf("order %s: encode raw data: %w", id, err)
		}

		fields := map[string]any{
			"number":           rec.Name(),
			"total_amount":     rec.Sum(),
			"delivery_address": rec.Str("shipmentAddress"),
			"comment":          rec.Str("description"),
			"order_date":       rec.Moment("moment"),
			"raw_data":         datatypes.JSON(raw),
			"last_sync":        time.Now(),
		}

		created, err := e.upsert(&db.Order{}, id, fields, func() any {
			return &db.Order{
				MoyskladID:      id,
				Number:          rec.Name(),
				Status:          db.OrderStatusNew,
				TotalAmount:     rec.Sum(),
				DeliveryAddress: rec.Str("shipmentAddress"),
				Comment:         rec.Str("description"),
				OrderDate:       rec.Moment("moment"),
				RawData:         datatypes.JSON(raw),
				LastSync:        time.Now(),
			}
		})
		if err != nil {
			return res, fmt.Errorf("order %s: %w", id, err)
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
		res.Processed++
	}
	return res, nil
}

func (e *Engine) reconcileCategories(records []moysklad.Record) (Result, error) {
	var res Result
	for _, rec := range records {
		id := rec.ID()
		if id == "" {
			return res, fmt.Errorf("category record without id (name %q)", rec.Name())
		}

		raw, err := json.Marshal(rec)
		if err != nil {
			return res, fmt.Errorf("category %s: encode raw data: %w", id, err)
		}

		parentID := ""
		if parent, ok := rec["productFolder"].(map[string]any); ok {
			if meta, ok := parent["meta"].(map[string]any); ok {
				if href, ok := meta["href"].(string); ok {
					parentID, _ = moysklad.IDFromHref(href, "productfolder")
				}
			}
		}

		fields := map[string]any{
			"name":               rec.Name(),
			"parent_external_id": parentID,
			"raw_data":           datatypes.JSON(raw),
			"last_sync":          time.Now(),
		}

		created, err := e.upsert(&db.Category{}, id, fields, func() any {
			return &db.Category{
				MoyskladID:       id,
				Name:             rec.Name(),
				ParentExternalID: parentID,
				RawData:          datatypes.JSON(raw),
				LastSync:         time.Now(),
			}
		})
		if err != nil {
			return res, fmt.Errorf("category %s: %w", id, err)
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
		res.Processed++
	}
	return res, nil
}

// upsert is find-by-moysklad-id-else-create. Updates go through a field map
// so zero values (archived=false, price=0) overwrite too: last writer wins,
// no field-level merge.
func (e *Engine) upsert(model any, moyskladID string, fields map[string]any, create func() any) (created bool, err error) {
	err = e.db.Where("moysklad_id = ?", moyskladID).Take(model).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := e.db.Create(create()).Error; err != nil {
			return false, err
		}
		return true, nil
	case err != nil:
		return false, err
	default:
		if err := e.db.Model(model).Updates(fields).Error; err != nil {
			return false, err
		}
		return false, nil
	}
}
