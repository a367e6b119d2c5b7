//-------------------------------------------------------------------------
//
// pgEdge DVD Rental Pipeline
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package seed

import (
	"context"
	"fmt"

	"github.com/pgEdge/pgedge-dvdrent/internal/db"
)

// Tables lists the DvdRent source tables in load order.
var Tables = []string{
	"category", "film", "film_category", "inventory",
	"customer", "staff", "rental", "payment",
}

// Schema SQL for the DvdRent source tables. It runs with search_path set to
// the source schema.
const createSchemaSQL = `
-- Category: Film genres
CREATE TABLE IF NOT EXISTS category (
    category_id  INTEGER PRIMARY KEY,
    name         VARCHAR(25) NOT NULL,
    last_update  TIMESTAMP NOT NULL DEFAULT now()
);

-- Film: Catalog titles
CREATE TABLE IF NOT EXISTS film (
    film_id      INTEGER PRIMARY KEY,
    title        VARCHAR(255) NOT NULL,
    description  TEXT,
    release_year INTEGER,
    rental_rate  NUMERIC(4,2) NOT NULL DEFAULT 4.99,
    length       SMALLINT,
    last_update  TIMESTAMP NOT NULL DEFAULT now()
);

-- Film Category: Film to genre link, at most one genre per film
CREATE TABLE IF NOT EXISTS film_category (
    film_id      INTEGER NOT NULL REFERENCES film(film_id),
    category_id  INTEGER NOT NULL REFERENCES category(category_id),
    last_update  TIMESTAMP NOT NULL DEFAULT now(),
    PRIMARY KEY (film_id, category_id)
);

-- Inventory: Physical copies per store
CREATE TABLE IF NOT EXISTS inventory (
    inventory_id INTEGER PRIMARY KEY,
    film_id      INTEGER NOT NULL REFERENCES film(film_id),
    store_id     SMALLINT NOT NULL,
    last_update  TIMESTAMP NOT NULL DEFAULT now()
);

-- Customer: Rental customers
CREATE TABLE IF NOT EXISTS customer (
    customer_id  INTEGER PRIMARY KEY,
    store_id     SMALLINT NOT NULL,
    first_name   VARCHAR(45) NOT NULL,
    last_name    VARCHAR(45) NOT NULL,
    email        VARCHAR(50),
    active       BOOLEAN NOT NULL DEFAULT true,
    create_date  DATE NOT NULL,
    last_update  TIMESTAMP NOT NULL DEFAULT now()
);

-- Staff: Store employees
CREATE TABLE IF NOT EXISTS staff (
    staff_id     INTEGER PRIMARY KEY,
    first_name   VARCHAR(45) NOT NULL,
    last_name    VARCHAR(45) NOT NULL,
    email        VARCHAR(50),
    store_id     SMALLINT NOT NULL,
    username     VARCHAR(16) NOT NULL,
    last_update  TIMESTAMP NOT NULL DEFAULT now()
);

-- Rental: One row per checkout
CREATE TABLE IF NOT EXISTS rental (
    rental_id    INTEGER PRIMARY KEY,
    rental_date  TIMESTAMP NOT NULL,
    inventory_id INTEGER NOT NULL REFERENCES inventory(inventory_id),
    customer_id  INTEGER NOT NULL REFERENCES customer(customer_id),
    return_date  TIMESTAMP,
    staff_id     INTEGER NOT NULL REFERENCES staff(staff_id),
    last_update  TIMESTAMP NOT NULL DEFAULT now()
);

-- Payment: Zero or more per rental
CREATE TABLE IF NOT EXISTS payment (
    payment_id   INTEGER PRIMARY KEY,
    customer_id  INTEGER NOT NULL REFERENCES customer(customer_id),
    staff_id     INTEGER NOT NULL REFERENCES staff(staff_id),
    rental_id    INTEGER NOT NULL REFERENCES rental(rental_id),
    amount       NUMERIC(5,2) NOT NULL,
    payment_date TIMESTAMP NOT NULL
);

-- Create indexes for the staging joins
CREATE INDEX IF NOT EXISTS idx_payment_rental ON payment(rental_id);
CREATE INDEX IF NOT EXISTS idx_rental_inventory ON rental(inventory_id);
CREATE INDEX IF NOT EXISTS idx_inventory_film ON inventory(film_id);
`

// Drop schema SQL
const dropSchemaSQL = `
DROP TABLE IF EXISTS payment CASCADE;
DROP TABLE IF EXISTS rental CASCADE;
DROP TABLE IF EXISTS staff CASCADE;
DROP TABLE IF EXISTS customer CASCADE;
DROP TABLE IF EXISTS inventory CASCADE;
DROP TABLE IF EXISTS film_category CASCADE;
DROP TABLE IF EXISTS film CASCADE;
DROP TABLE IF EXISTS category CASCADE;
`

func inSchema(ctx context.Context, q db.Querier, schema, sql string) error {
	if _, err := q.Exec(ctx, "SET LOCAL search_path TO "+db.QuoteIdent(schema)); err != nil {
		return fmt.Errorf("failed to set search_path: %w", err)
	}
	_, err := q.Exec(ctx, sql)
	return err
}

// CreateSchema creates the DvdRent source tables. q must be a transaction.
func CreateSchema(ctx context.Context, q db.Querier, schema string) error {
	if err := db.EnsureSchema(ctx, q, schema); err != nil {
		return err
	}
	if err := inSchema(ctx, q, schema, createSchemaSQL); err != nil {
		return fmt.Errorf("failed to create source tables: %w", err)
	}
	return nil
}

// DropSchema drops the DvdRent source tables and the seeding metadata. q
// must be a transaction. CASCADE also drops views built on the sources.
func DropSchema(ctx context.Context, q db.Querier, schema string) error {
	if err := inSchema(ctx, q, schema, dropSchemaSQL); err != nil {
		return fmt.Errorf("failed to drop source tables: %w", err)
	}
	return db.DropMetadata(ctx, q, schema)
}

// SourceSize returns the total on-disk size of the source tables.
func SourceSize(ctx context.Context, q db.Querier, schema string) (int64, error) {
	var size int64
	err := q.QueryRow(ctx, `
        SELECT COALESCE(SUM(pg_total_relation_size(c.oid)), 0)::bigint
        FROM pg_class c
        JOIN pg_namespace n ON n.oid = c.relnamespace
        WHERE n.nspname = $1 AND c.relname = ANY($2) AND c.relkind = 'r'
    `, schema, Tables).Scan(&size)
	if err != nil {
		return 0, fmt.Errorf("failed to get source size: %w", err)
	}
	return size, nil
}
