//-------------------------------------------------------------------------
//
// pgEdge DVD Rental Pipeline
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package seed generates and loads the DvdRent source tables.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-dvdrent/internal/datagen"
	"github.com/pgEdge/pgedge-dvdrent/internal/db"
	"github.com/pgEdge/pgedge-dvdrent/internal/logging"
)

// Options controls a seeding run.
type Options struct {
	// Size is the target size as given by the user (e.g., "10MB").
	Size string

	// Seed makes generation deterministic when non-zero.
	Seed uint64

	// DropExisting drops existing source tables first.
	DropExisting bool
}

// Summary describes a completed seeding run.
type Summary struct {
	Rows     map[string]int64
	Size     int64
	Duration time.Duration
}

// Seeder loads generated data into a source schema.
type Seeder struct {
	pool   *pgxpool.Pool
	schema string
	cfg    datagen.CopyConfig
}

// New creates a Seeder for schema.
func New(pool *pgxpool.Pool, schema string) *Seeder {
	return &Seeder{
		pool:   pool,
		schema: schema,
		cfg:    datagen.DefaultCopyConfig(),
	}
}

// Run generates a dataset sized by opts and loads it in a single
// transaction. It refuses to load into non-empty source tables unless
// DropExisting is set.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Summary, error) {
	start := time.Now()

	targetSize, err := datagen.ParseSize(opts.Size)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if opts.DropExisting {
		logging.Info().Str("schema", s.schema).Msg("Dropping existing source tables")
		if err := DropSchema(ctx, tx, s.schema); err != nil {
			return nil, err
		}
	} else if err := s.checkEmpty(ctx, tx); err != nil {
		return nil, err
	}

	if err := CreateSchema(ctx, tx, s.schema); err != nil {
		return nil, err
	}

	faker := datagen.NewFaker()
	if opts.Seed != 0 {
		faker = datagen.NewFakerWithSeed(opts.Seed)
	}

	counts := RowCounts(targetSize)
	logging.Info().
		Str("target_size", opts.Size).
		Str("estimated_size", datagen.FormatSize(EstimatedSize(counts))).
		Int64("rentals", counts["rental"]).
		Msg("Generating source data")

	ds := Generate(faker, counts)

	rows, err := s.Copy(ctx, tx, ds)
	if err != nil {
		return nil, err
	}

	if err := db.SaveMetadata(ctx, tx, s.schema, opts.Size, opts.Seed); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit seed: %w", err)
	}

	size, err := SourceSize(ctx, s.pool, s.schema)
	if err != nil {
		return nil, err
	}

	return &Summary{Rows: rows, Size: size, Duration: time.Since(start)}, nil
}

func (s *Seeder) checkEmpty(ctx context.Context, q db.Querier) error {
	exists, err := db.RelationExists(ctx, q, s.schema, "rental")
	if err != nil {
		return fmt.Errorf("failed to check for existing tables: %w", err)
	}
	if !exists {
		return nil
	}
	var found bool
	err = q.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM "+db.QualifiedName(s.schema, "rental")+")").Scan(&found)
	if err != nil {
		return fmt.Errorf("failed to check for existing rows: %w", err)
	}
	if found {
		return fmt.Errorf("source tables in schema %s already contain data; use --drop-existing to replace them", s.schema)
	}
	return nil
}

// Copy streams every table of ds into the source schema with COPY and
// returns the row count per table.
func (s *Seeder) Copy(ctx context.Context, tx pgx.Tx, ds *Dataset) (map[string]int64, error) {
	rows := make(map[string]int64, len(Tables))

	copies := []struct {
		table   string
		columns []string
		n       int
		row     func(i int) ([]any, error)
	}{
		{"category", []string{"category_id", "name"}, len(ds.Categories), func(i int) ([]any, error) {
			c := ds.Categories[i]
			return []any{c.ID, c.Name}, nil
		}},
		{"film", []string{"film_id", "title", "description", "release_year", "rental_rate", "length"}, len(ds.Films), func(i int) ([]any, error) {
			f := ds.Films[i]
			return []any{f.ID, f.Title, f.Description, f.ReleaseYear, numeric(f.RentalRate), int16(f.Length)}, nil
		}},
		{"film_category", []string{"film_id", "category_id"}, len(ds.FilmCategories), func(i int) ([]any, error) {
			fc := ds.FilmCategories[i]
			return []any{fc.FilmID, fc.CategoryID}, nil
		}},
		{"inventory", []string{"inventory_id", "film_id", "store_id"}, len(ds.Inventory), func(i int) ([]any, error) {
			inv := ds.Inventory[i]
			return []any{inv.ID, inv.FilmID, int16(inv.StoreID)}, nil
		}},
		{"customer", []string{"customer_id", "store_id", "first_name", "last_name", "email", "active", "create_date"}, len(ds.Customers), func(i int) ([]any, error) {
			c := ds.Customers[i]
			return []any{c.ID, int16(c.StoreID), c.FirstName, c.LastName, c.Email, c.Active, c.CreateDate}, nil
		}},
		{"staff", []string{"staff_id", "first_name", "last_name", "email", "store_id", "username"}, len(ds.Staff), func(i int) ([]any, error) {
			st := ds.Staff[i]
			return []any{st.ID, st.FirstName, st.LastName, st.Email, int16(st.StoreID), st.Username}, nil
		}},
		{"rental", []string{"rental_id", "rental_date", "inventory_id", "customer_id", "return_date", "staff_id"}, len(ds.Rentals), func(i int) ([]any, error) {
			r := ds.Rentals[i]
			return []any{r.ID, r.RentalDate, r.InventoryID, r.CustomerID, r.ReturnDate, r.StaffID}, nil
		}},
		{"payment", []string{"payment_id", "customer_id", "staff_id", "rental_id", "amount", "payment_date"}, len(ds.Payments), func(i int) ([]any, error) {
			p := ds.Payments[i]
			return []any{p.ID, p.CustomerID, p.StaffID, p.RentalID, numeric(p.Amount), p.PaymentDate}, nil
		}},
	}

	for _, c := range copies {
		progress := datagen.NewProgressReporter(c.table, int64(c.n), s.cfg.ProgressInterval)
		for start := 0; start < c.n; start += s.cfg.BatchSize {
			end := min(start+s.cfg.BatchSize, c.n)
			offset := start
			copied, err := tx.CopyFrom(ctx,
				pgx.Identifier{s.schema, c.table},
				c.columns,
				pgx.CopyFromSlice(end-start, func(i int) ([]any, error) {
					return c.row(offset + i)
				}))
			if err != nil {
				return nil, fmt.Errorf("failed to copy %s: %w", c.table, err)
			}
			progress.Update(copied)
		}
		progress.Done()
		rows[c.table] = progress.Rows()
	}

	return rows, nil
}

// numeric converts a decimal for the binary COPY protocol.
func numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}
