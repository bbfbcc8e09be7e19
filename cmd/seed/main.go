package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiwari-pos/floor/internal/auth"
	"github.com/kiwari-pos/floor/internal/config"
	"github.com/kiwari-pos/floor/internal/database"
	"github.com/kiwari-pos/floor/internal/enum"
)

type seedMenu struct {
	name       string
	price      string
	quickServe bool
}

var menus = []seedMenu{
	{"Nasi Bakar Ayam", "28000", false},
	{"Nasi Bakar Cumi", "32000", false},
	{"Tahu Tempe Bacem", "12000", false},
	{"Es Teh Manis", "6000", true},
	{"Es Jeruk", "9000", true},
	{"Kerupuk", "3000", true},
}

func main() {
	tables := flag.Int("tables", 12, "Number of dine-in tables")
	name := flag.String("name", "", "Owner full name")
	flag.Parse()

	if *name == "" {
		*name = os.Getenv("SEED_NAME")
	}
	if *name == "" {
		*name = "Admin Kiwari"
	}

	cfg := config.Load()

	ctx := context.Background()
	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()
	log.Println("Connected to database")

	// Seed in a transaction: floor plan, menu and owner, or nothing
	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	created, err := seedTables(ctx, tx, *tables)
	if err != nil {
		log.Fatalf("Failed to seed tables: %v", err)
	}
	log.Printf("Tables: %d created, %d total", created, *tables)

	if err := seedMenus(ctx, tx); err != nil {
		log.Fatalf("Failed to seed menus: %v", err)
	}

	ownerID, err := seedOwner(ctx, tx, *name)
	if err != nil {
		log.Fatalf("Failed to seed owner: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}

	token, err := auth.GenerateToken(cfg.JWTSecret, ownerID, enum.StaffRoleOwner, 30*24*time.Hour)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}

	log.Println("Seed completed successfully")
	log.Printf("Owner ID: %s", ownerID)
	fmt.Println(token)
}

// seedTables creates tables 1..n with codes T1..Tn, skipping existing numbers.
func seedTables(ctx context.Context, tx pgx.Tx, n int) (int64, error) {
	tag, err := tx.Exec(ctx, `
		INSERT INTO tables (number, code)
		SELECT g, 'T' || g FROM generate_series(1, $1::int) AS g
		ON CONFLICT (number) DO NOTHING
	`, n)
	if err != nil {
		return 0, fmt.Errorf("insert tables: %w", err)
	}
	return tag.RowsAffected(), nil
}

// seedMenus inserts the sample menu when the catalog is empty.
func seedMenus(ctx context.Context, tx pgx.Tx) error {
	var count int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM menus`).Scan(&count); err != nil {
		return fmt.Errorf("count menus: %w", err)
	}
	if count > 0 {
		log.Printf("Menu already has %d items, skipping", count)
		return nil
	}

	batch := &pgx.Batch{}
	for _, m := range menus {
		batch.Queue(`INSERT INTO menus (name, price, quick_serve) VALUES ($1, $2::numeric, $3)`, m.name, m.price, m.quickServe)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert menus: %w", err)
	}
	log.Printf("Created %d menu items", len(menus))
	return nil
}

// seedOwner creates the owner staff record if one doesn't exist.
func seedOwner(ctx context.Context, tx pgx.Tx, fullName string) (uuid.UUID, error) {
	var existingID uuid.UUID
	err := tx.QueryRow(ctx, `SELECT staff_id FROM staff WHERE role = $1 LIMIT 1`, enum.StaffRoleOwner).Scan(&existingID)
	if err == nil {
		log.Printf("Owner already exists (ID: %s), skipping", existingID)
		return existingID, nil
	}
	if err != pgx.ErrNoRows {
		return uuid.Nil, fmt.Errorf("check owner: %w", err)
	}

	newID := uuid.New()
	if _, err := tx.Exec(ctx, `INSERT INTO staff (staff_id, full_name, role) VALUES ($1, $2, $3)`, newID, fullName, enum.StaffRoleOwner); err != nil {
		return uuid.Nil, fmt.Errorf("insert owner: %w", err)
	}

	log.Printf("Created owner '%s' (ID: %s)", fullName, newID)
	return newID, nil
}
