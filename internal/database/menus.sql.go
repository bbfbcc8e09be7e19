package database

import (
	"context"

	"github.com/google/uuid"
)

const menuColumns = `menu_id, name, price, available, quick_serve`

func scanMenu(row scanner) (Menu, error) {
	var m Menu
	err := row.Scan(&m.ID, &m.Name, &m.Price, &m.Available, &m.QuickServe)
	return m, err
}

const getMenu = `SELECT ` + menuColumns + ` FROM menus WHERE menu_id = $1`

func (q *Queries) GetMenu(ctx context.Context, id int64) (Menu, error) {
	return scanMenu(q.db.QueryRow(ctx, getMenu, id))
}

const getMenusByIDs = `SELECT ` + menuColumns + ` FROM menus WHERE menu_id = ANY($1::bigint[]) ORDER BY menu_id`

// GetMenusByIDs returns the catalog entries that exist; missing ids are simply absent.
func (q *Queries) GetMenusByIDs(ctx context.Context, ids []int64) ([]Menu, error) {
	rows, err := q.db.Query(ctx, getMenusByIDs, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Menu{}
	for rows.Next() {
		m, err := scanMenu(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const getStaffName = `SELECT full_name FROM staff WHERE staff_id = $1`

func (q *Queries) GetStaffName(ctx context.Context, staffID uuid.UUID) (string, error) {
	var name string
	err := q.db.QueryRow(ctx, getStaffName, staffID).Scan(&name)
	return name, err
}
