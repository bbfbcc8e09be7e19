package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/floor/internal/database"
	"github.com/kiwari-pos/floor/internal/enum"
)

// TableStore defines the DB methods the table topology operations use.
// Satisfied by *database.Queries (and its WithTx variant).
type TableStore interface {
	tableLocker
	groupLocker
	ListTables(ctx context.Context) ([]database.Table, error)
	StartTable(ctx context.Context, id int64) (database.Table, error)
	SetTableGroup(ctx context.Context, arg database.SetTableGroupParams) (database.Table, error)
	ClearTableGroup(ctx context.Context, id int64) (database.Table, error)
	ResetTable(ctx context.Context, id int64) (database.Table, error)
	ResetAllTables(ctx context.Context) (int64, error)
	SetTableState(ctx context.Context, arg database.SetTableStateParams) (database.Table, error)
	SetTableStatus(ctx context.Context, arg database.SetTableStatusParams) (database.Table, error)
	MoveOpenOrders(ctx context.Context, arg database.MoveOpenOrdersParams) (int64, error)
	MarkOpenDineInOrdersPaid(ctx context.Context, tableNumber int32) (int64, error)
	MarkAllOpenDineInOrdersPaid(ctx context.Context) (int64, error)
	ListOpenDineInOrders(ctx context.Context, tableNumbers []int32) ([]database.Order, error)
}

// NewTableStore creates a TableStore from a DBTX (pool or tx).
type NewTableStore func(db database.DBTX) TableStore

// TableService owns table status, merge groups and table moves.
type TableService struct {
	pool     TxBeginner
	newStore NewTableStore
}

func NewTableService(pool TxBeginner, newStore NewTableStore) *TableService {
	return &TableService{pool: pool, newStore: newStore}
}

// MergeResult carries both sides of a merge.
type MergeResult struct {
	Source database.Table
	Target database.Table
}

// MoveResult reports a table move.
type MoveResult struct {
	Source      database.Table
	Target      database.Table
	MovedOrders int64
}

// StatusResult reports a manual status change. Abandoned counts the unpaid
// dine-in orders that were closed because the table was emptied.
type StatusResult struct {
	Table     database.Table
	Abandoned int64
}

// ResetResult reports the end-of-day sweep.
type ResetResult struct {
	Tables    int64
	Abandoned int64
}

// TableDetail is a table with its open dine-in orders.
type TableDetail struct {
	Table      database.Table
	Group      []database.Table
	OpenOrders []database.Order
}

func (s *TableService) withTx(ctx context.Context, fn func(store TableStore) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(s.newStore(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// StartOrder opens a table for a new sitting: OCCUPIED, an order count of
// one and no merge group.
func (s *TableService) StartOrder(ctx context.Context, ref string) (database.Table, error) {
	var out database.Table
	err := s.withTx(ctx, func(store TableStore) error {
		t, err := resolveAndLock(ctx, store, ref)
		if err != nil {
			return err
		}
		out, err = store.StartTable(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("start table: %w", err)
		}
		return nil
	})
	if err != nil {
		return database.Table{}, err
	}
	return out, nil
}

// MergeTable puts source into target's merge group, minting a group id when
// target has none. Merging an already merged pair changes nothing.
func (s *TableService) MergeTable(ctx context.Context, sourceRef, targetRef string) (*MergeResult, error) {
	var out MergeResult
	err := s.withTx(ctx, func(store TableStore) error {
		source, target, err := resolvePair(ctx, store, sourceRef, targetRef)
		if err != nil {
			return err
		}

		group := target.GroupID
		if !group.Valid {
			group = pgtype.UUID{Bytes: uuid.New(), Valid: true}
		}

		out.Target, err = store.SetTableGroup(ctx, database.SetTableGroupParams{ID: target.ID, GroupID: group})
		if err != nil {
			return fmt.Errorf("set target group: %w", err)
		}
		out.Source, err = store.SetTableGroup(ctx, database.SetTableGroupParams{ID: source.ID, GroupID: group})
		if err != nil {
			return fmt.Errorf("set source group: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UnmergeTable takes a table out of its group. Other members keep theirs.
func (s *TableService) UnmergeTable(ctx context.Context, ref string) (database.Table, error) {
	var out database.Table
	err := s.withTx(ctx, func(store TableStore) error {
		t, err := resolveAndLock(ctx, store, ref)
		if err != nil {
			return err
		}
		out, err = store.ClearTableGroup(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("clear table group: %w", err)
		}
		return nil
	})
	if err != nil {
		return database.Table{}, err
	}
	return out, nil
}

// MoveTable relocates every open dine-in order from source to target. The
// target takes over the source's status, order count and merge group and the
// source is emptied. A target with its own open order is refused, since a
// table number carries at most one unpaid order.
func (s *TableService) MoveTable(ctx context.Context, sourceRef, targetRef string) (*MoveResult, error) {
	var out MoveResult
	err := s.withTx(ctx, func(store TableStore) error {
		source, target, err := resolvePair(ctx, store, sourceRef, targetRef)
		if err != nil {
			return err
		}

		open, err := store.ListOpenDineInOrders(ctx, []int32{target.Number})
		if err != nil {
			return fmt.Errorf("list target orders: %w", err)
		}
		if len(open) > 0 {
			return ErrMoveTargetOccupied
		}

		out.MovedOrders, err = store.MoveOpenOrders(ctx, database.MoveOpenOrdersParams{
			FromNumber: source.Number,
			ToNumber:   target.Number,
		})
		if err != nil {
			return fmt.Errorf("move open orders: %w", err)
		}

		status := source.Status
		if status == enum.TableStatusEmpty {
			status = target.Status
		}
		if source.GroupID.Valid {
			status = enum.TableStatusOccupied
		}
		out.Target, err = store.SetTableState(ctx, database.SetTableStateParams{
			ID:         target.ID,
			Status:     status,
			OrderCount: source.OrderCount,
			GroupID:    source.GroupID,
		})
		if err != nil {
			return fmt.Errorf("update target table: %w", err)
		}

		out.Source, err = store.ResetTable(ctx, source.ID)
		if err != nil {
			return fmt.Errorf("reset source table: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangeStatus sets a table's status by hand. Emptying a table closes its
// unpaid dine-in orders without a bill and drops it from any group.
func (s *TableService) ChangeStatus(ctx context.Context, ref, status string) (*StatusResult, error) {
	if !enum.IsTableStatus(status) {
		return nil, ErrInvalidTableStatus
	}

	var out StatusResult
	err := s.withTx(ctx, func(store TableStore) error {
		t, err := resolveAndLock(ctx, store, ref)
		if err != nil {
			return err
		}

		if status == enum.TableStatusEmpty {
			out.Abandoned, err = store.MarkOpenDineInOrdersPaid(ctx, t.Number)
			if err != nil {
				return fmt.Errorf("close abandoned orders: %w", err)
			}
			out.Table, err = store.ResetTable(ctx, t.ID)
			if err != nil {
				return fmt.Errorf("reset table: %w", err)
			}
			return nil
		}

		if t.GroupID.Valid && status != enum.TableStatusOccupied {
			return ErrGroupedTableStatus
		}
		out.Table, err = store.SetTableStatus(ctx, database.SetTableStatusParams{ID: t.ID, Status: status})
		if err != nil {
			return fmt.Errorf("set table status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ResetAll empties every table and closes every unpaid dine-in order.
// Takeaway orders are left alone.
func (s *TableService) ResetAll(ctx context.Context) (*ResetResult, error) {
	var out ResetResult
	err := s.withTx(ctx, func(store TableStore) error {
		var err error
		out.Abandoned, err = store.MarkAllOpenDineInOrdersPaid(ctx)
		if err != nil {
			return fmt.Errorf("close open dine-in orders: %w", err)
		}
		out.Tables, err = store.ResetAllTables(ctx)
		if err != nil {
			return fmt.Errorf("reset tables: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *TableService) ListTables(ctx context.Context) ([]database.Table, error) {
	var out []database.Table
	err := s.withTx(ctx, func(store TableStore) error {
		var err error
		out, err = store.ListTables(ctx)
		if err != nil {
			return fmt.Errorf("list tables: %w", err)
		}
		return nil
	})
	return out, err
}

// GetTable returns a table, its group members and the open orders across them.
func (s *TableService) GetTable(ctx context.Context, ref string) (*TableDetail, error) {
	var out TableDetail
	err := s.withTx(ctx, func(store TableStore) error {
		t, err := ResolveTable(ctx, store, ref)
		if err != nil {
			return err
		}
		out.Table = t
		out.Group, err = groupTables(ctx, store, t)
		if err != nil {
			return err
		}
		out.OpenOrders, err = store.ListOpenDineInOrders(ctx, tableNumbers(out.Group))
		if err != nil {
			return fmt.Errorf("list open orders: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// resolvePair resolves and locks two distinct tables, lower id first so two
// opposite merges cannot deadlock.
func resolvePair(ctx context.Context, store tableLocker, sourceRef, targetRef string) (database.Table, database.Table, error) {
	source, err := ResolveTable(ctx, store, sourceRef)
	if err != nil {
		return database.Table{}, database.Table{}, err
	}
	target, err := ResolveTable(ctx, store, targetRef)
	if err != nil {
		return database.Table{}, database.Table{}, err
	}
	if source.ID == target.ID {
		return database.Table{}, database.Table{}, ErrSameTable
	}

	first, second := source.ID, target.ID
	if first > second {
		first, second = second, first
	}
	locked := make(map[int64]database.Table, 2)
	for _, id := range []int64{first, second} {
		t, err := store.LockTable(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return database.Table{}, database.Table{}, ErrTableNotFound
			}
			return database.Table{}, database.Table{}, fmt.Errorf("lock table: %w", err)
		}
		locked[id] = t
	}
	return locked[source.ID], locked[target.ID], nil
}
