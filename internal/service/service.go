package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/floor/internal/database"
	"github.com/kiwari-pos/floor/internal/pricing"
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TableLookup is what ResolveTable needs from a store.
type TableLookup interface {
	GetTableByID(ctx context.Context, id int64) (database.Table, error)
	GetTableByCode(ctx context.Context, code string) (database.Table, error)
	GetTableByNumber(ctx context.Context, number int32) (database.Table, error)
}

// ResolveTable finds a table from whatever reference a client sent. Older
// terminals send the surrogate id, printed QR cards carry the code, and the
// floor staff type the display number, so the lookup tries those in order.
func ResolveTable(ctx context.Context, store TableLookup, ref string) (database.Table, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return database.Table{}, ErrMissingTable
	}

	if id, err := strconv.ParseInt(ref, 10, 64); err == nil && id > 0 {
		t, err := store.GetTableByID(ctx, id)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return database.Table{}, fmt.Errorf("get table by id: %w", err)
		}
	}

	t, err := store.GetTableByCode(ctx, ref)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return database.Table{}, fmt.Errorf("get table by code: %w", err)
	}

	if n, err := strconv.ParseInt(ref, 10, 32); err == nil {
		t, err := store.GetTableByNumber(ctx, int32(n))
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return database.Table{}, fmt.Errorf("get table by number: %w", err)
		}
	}
	return database.Table{}, ErrTableNotFound
}

type tableLocker interface {
	TableLookup
	LockTable(ctx context.Context, id int64) (database.Table, error)
}

// resolveAndLock resolves ref and re-reads the row under FOR UPDATE.
func resolveAndLock(ctx context.Context, store tableLocker, ref string) (database.Table, error) {
	t, err := ResolveTable(ctx, store, ref)
	if err != nil {
		return database.Table{}, err
	}
	locked, err := store.LockTable(ctx, t.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Table{}, ErrTableNotFound
		}
		return database.Table{}, fmt.Errorf("lock table: %w", err)
	}
	return locked, nil
}

type groupLocker interface {
	LockTablesByGroup(ctx context.Context, groupID pgtype.UUID) ([]database.Table, error)
}

// groupTables returns the tables a checkout or adjustment spans: the table
// itself, or every table sharing its merge group.
func groupTables(ctx context.Context, store groupLocker, t database.Table) ([]database.Table, error) {
	if !t.GroupID.Valid {
		return []database.Table{t}, nil
	}
	tables, err := store.LockTablesByGroup(ctx, t.GroupID)
	if err != nil {
		return nil, fmt.Errorf("lock group tables: %w", err)
	}
	if len(tables) == 0 {
		return []database.Table{t}, nil
	}
	return tables, nil
}

func tableNumbers(tables []database.Table) []int32 {
	nums := make([]int32, len(tables))
	for i, t := range tables {
		nums[i] = t.Number
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	return nums
}

func orderIDs(orders []database.Order) []int64 {
	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	return ids
}

func toLiveLines(rows []database.LiveLineRow) []pricing.LiveLine {
	lines := make([]pricing.LiveLine, len(rows))
	for i, r := range rows {
		lines[i] = pricing.LiveLine{
			OrderItemID:  r.OrderItemID,
			MenuID:       r.MenuID,
			Name:         r.Name,
			Qty:          r.Qty,
			Status:       r.Status,
			CatalogPrice: pricing.NumericToDecimal(r.Price),
		}
	}
	return lines
}
