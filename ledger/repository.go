/*
repository.go - Stream lifecycle over the append-only row store

PURPOSE:
  One generic Repository serves all three streams (purchases, sales,
  adjustments), parameterized by a Codec for the table name and row
  layout. It implements CRUD-like semantics on a store that only
  supports append, single-cell overwrite and bulk clear:

    save      -> append one Active row
    update    -> archive the Active row(s) for the id, append a new
                 Active row with the same id and a fresh timestamp
    delete    -> overwrite the Active row's status cell with Deleted
    clear     -> wipe all data rows, keep the header

NON-ATOMICITY:
  UpdateByID is archive-then-append with no transaction around it. If
  the append fails after the archive succeeded, the stream is left with
  zero Active rows for that id until the caller retries. This is an
  accepted consequence of the backing store's contract; callers must
  treat UpdateByID as best-effort.

STATE MACHINE (per logical id):

          Save()
   (none) ------> Active
   Active --DeleteByID()--> Deleted   [terminal]
   Active --UpdateByID()--> Archived  [terminal; new row re-enters Active]
*/
package ledger

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/stockledger/recordstore"
)

// =============================================================================
// REPOSITORY - Generic per-stream lifecycle
// =============================================================================

type Repository[R Row[R]] struct {
	store recordstore.Store
	codec Codec[R]
	log   *logrus.Logger
	now   func() time.Time
}

func NewRepository[R Row[R]](store recordstore.Store, codec Codec[R], log *logrus.Logger) *Repository[R] {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Repository[R]{
		store: store,
		codec: codec,
		log:   log,
		now:   time.Now,
	}
}

// Stream constructors. The table names are the wire contract with
// existing containers (see recordstore.TableConfigs).

func NewPurchaseRepository(store recordstore.Store, log *logrus.Logger) *Repository[Record] {
	return NewRepository(store, PurchaseCodec(recordstore.TablePurchases), log)
}

func NewSaleRepository(store recordstore.Store, log *logrus.Logger) *Repository[Record] {
	return NewRepository(store, SaleCodec(recordstore.TableSales), log)
}

func NewAdjustmentRepository(store recordstore.Store, log *logrus.Logger) *Repository[AdjustmentRecord] {
	return NewRepository(store, AdjustmentCodec(recordstore.TableAdjustments), log)
}

// Table returns the stream's table name.
func (repo *Repository[R]) Table() string { return repo.codec.Table }

// =============================================================================
// OPERATIONS
// =============================================================================

// Save stamps the record with a fresh id, timestamp and Active status,
// then appends it. The record should come from one of the validating
// constructors (NewRecord, NewAdjustment).
func (repo *Repository[R]) Save(ctx context.Context, userKey string, rec R) (R, error) {
	var zero R

	containerID, err := repo.resolve(ctx, userKey)
	if err != nil {
		return zero, err
	}

	now := repo.now()
	stamped := rec.WithIdentity(repo.codec.NewID(now), Now(now))
	if _, err := repo.store.AppendRow(ctx, containerID, repo.codec.Table, repo.codec.Encode(stamped)); err != nil {
		return zero, &StoreError{Op: "append", Table: repo.codec.Table, Err: err}
	}
	return stamped, nil
}

// GetAll returns the stream's records in the store's append order. By
// default only Active rows are returned; includeHistory surfaces
// Archived and Deleted rows as well. Callers needing chronological
// order must sort explicitly.
func (repo *Repository[R]) GetAll(ctx context.Context, userKey string, includeHistory bool) ([]R, error) {
	containerID, err := repo.resolve(ctx, userKey)
	if err != nil {
		return nil, err
	}

	rows, err := repo.store.ReadTable(ctx, containerID, repo.codec.Table)
	if err != nil {
		serr := &StoreError{Op: "read", Table: repo.codec.Table, Err: err}
		repo.log.WithFields(logrus.Fields{
			"table": repo.codec.Table,
			"user":  userKey,
		}).WithError(err).Error("failed to read stream")
		return nil, serr
	}
	if len(rows) <= 1 {
		return []R{}, nil
	}

	records := make([]R, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := repo.codec.Decode(row)
		if !includeHistory && rec.RowStatus() != StatusActive {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// UpdateByID supersedes the logical transaction: every Active row for
// the id is archived (more than one Active row means a past partial
// failure; all of them are retired), then one new Active row with the
// same id and updated values is appended.
//
// Not atomic - see the package comment on partial failure.
func (repo *Repository[R]) UpdateByID(ctx context.Context, userKey, id string, rec R) (R, error) {
	var zero R

	containerID, err := repo.resolve(ctx, userKey)
	if err != nil {
		return zero, err
	}

	rows, err := repo.store.ReadTable(ctx, containerID, repo.codec.Table)
	if err != nil {
		return zero, &StoreError{Op: "read", Table: repo.codec.Table, Err: err}
	}

	archived := 0
	for i, row := range rows[min(1, len(rows)):] {
		existing := repo.codec.Decode(row)
		if existing.RowID() != id || existing.RowStatus() != StatusActive {
			continue
		}
		// data row i sits at physical row i+2 (header is row 1)
		if err := repo.store.WriteCell(ctx, containerID, repo.codec.Table, i+2, recordstore.StatusColumn, string(StatusArchived)); err != nil {
			return zero, &StoreError{Op: "write-cell", Table: repo.codec.Table, Err: err}
		}
		archived++
	}
	if archived == 0 {
		return zero, &NotFoundError{Table: repo.codec.Table, ID: id}
	}

	stamped := rec.WithIdentity(id, Now(repo.now()))
	if _, err := repo.store.AppendRow(ctx, containerID, repo.codec.Table, repo.codec.Encode(stamped)); err != nil {
		// The archive half already landed: the id now has no Active
		// row until a retry succeeds.
		repo.log.WithFields(logrus.Fields{
			"table": repo.codec.Table,
			"id":    id,
		}).WithError(err).Error("update append failed after archive; id left without active row")
		return zero, &StoreError{Op: "append", Table: repo.codec.Table, Err: err}
	}
	return stamped, nil
}

// DeleteByID soft-deletes the transaction by overwriting the Active
// row's status cell in place. Atomic at the cell level; no row is
// appended.
func (repo *Repository[R]) DeleteByID(ctx context.Context, userKey, id string) error {
	containerID, err := repo.resolve(ctx, userKey)
	if err != nil {
		return err
	}

	rows, err := repo.store.ReadTable(ctx, containerID, repo.codec.Table)
	if err != nil {
		return &StoreError{Op: "read", Table: repo.codec.Table, Err: err}
	}

	for i, row := range rows[min(1, len(rows)):] {
		existing := repo.codec.Decode(row)
		if existing.RowID() != id || existing.RowStatus() != StatusActive {
			continue
		}
		if err := repo.store.WriteCell(ctx, containerID, repo.codec.Table, i+2, recordstore.StatusColumn, string(StatusDeleted)); err != nil {
			return &StoreError{Op: "write-cell", Table: repo.codec.Table, Err: err}
		}
		return nil
	}
	return &NotFoundError{Table: repo.codec.Table, ID: id}
}

// ClearAll wipes every data row of the stream, keeping the header.
// Irreversible.
func (repo *Repository[R]) ClearAll(ctx context.Context, userKey string) error {
	containerID, err := repo.resolve(ctx, userKey)
	if err != nil {
		return err
	}
	if err := repo.store.ClearRows(ctx, containerID, repo.codec.Table, 2); err != nil {
		return &StoreError{Op: "clear", Table: repo.codec.Table, Err: err}
	}
	return nil
}

func (repo *Repository[R]) resolve(ctx context.Context, userKey string) (string, error) {
	containerID, err := repo.store.ResolveContainer(ctx, userKey)
	if err != nil {
		return "", &StoreError{Op: "resolve", Err: err}
	}
	return containerID, nil
}
