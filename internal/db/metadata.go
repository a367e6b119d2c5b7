//-------------------------------------------------------------------------
//
// pgEdge DVD Rental Pipeline
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package db

import (
	"context"
	"fmt"
	"time"

	"github.com/pgEdge/pgedge-dvdrent/internal/logging"
	"github.com/pgEdge/pgedge-dvdrent/pkg/version"
)

// MetadataTable holds key/value facts about the seeded source data.
const MetadataTable = "dvdrent_metadata"

func createMetadataTableSQL(schema string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
)`, QualifiedName(schema, MetadataTable))
}

// SaveMetadata records seeding metadata in the source schema.
func SaveMetadata(ctx context.Context, q Querier, schema, targetSize string, seed uint64) error {
	if _, err := q.Exec(ctx, createMetadataTableSQL(schema)); err != nil {
		return fmt.Errorf("failed to create metadata table: %w", err)
	}

	metadata := map[string]string{
		"version":     version.Short(),
		"seeded_at":   time.Now().UTC().Format(time.RFC3339),
		"target_size": targetSize,
		"seed":        fmt.Sprintf("%d", seed),
	}

	upsert := fmt.Sprintf(`
        INSERT INTO %s (key, value) VALUES ($1, $2)
        ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
    `, QualifiedName(schema, MetadataTable))

	for key, value := range metadata {
		if _, err := q.Exec(ctx, upsert, key, value); err != nil {
			return fmt.Errorf("failed to save metadata %s: %w", key, err)
		}
	}

	logging.Debug().
		Str("schema", schema).
		Str("target_size", targetSize).
		Msg("Saved metadata")

	return nil
}

// GetMetadataValue retrieves a single metadata value by key.
func GetMetadataValue(ctx context.Context, q Querier, schema, key string) (string, error) {
	var value string
	err := q.QueryRow(ctx, fmt.Sprintf(
		`SELECT value FROM %s WHERE key = $1`, QualifiedName(schema, MetadataTable),
	), key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value, nil
}

// GetAllMetadata retrieves all metadata as a map.
func GetAllMetadata(ctx context.Context, q Querier, schema string) (map[string]string, error) {
	rows, err := q.Query(ctx, fmt.Sprintf(
		`SELECT key, value FROM %s`, QualifiedName(schema, MetadataTable)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	metadata := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		metadata[key] = value
	}

	return metadata, rows.Err()
}

// DropMetadata drops the metadata table.
func DropMetadata(ctx context.Context, q Querier, schema string) error {
	_, err := q.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", QualifiedName(schema, MetadataTable)))
	return err
}

// RelationExists checks whether a table or view exists in schema.
func RelationExists(ctx context.Context, q Querier, schema, name string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT FROM information_schema.tables
            WHERE table_schema = $1 AND table_name = $2
        )
    `, schema, name).Scan(&exists)
	return exists, err
}

// EnsureSchema creates schema if it is missing.
func EnsureSchema(ctx context.Context, q Querier, schema string) error {
	if _, err := q.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+QuoteIdent(schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", schema, err)
	}
	return nil
}
