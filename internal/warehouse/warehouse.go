// Package warehouse reads source and model relations out of PostgreSQL.
package warehouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-dvdrent/internal/db"
	"github.com/pgEdge/pgedge-dvdrent/internal/fingerprint"
	"github.com/pgEdge/pgedge-dvdrent/internal/models"
	"github.com/pgEdge/pgedge-dvdrent/internal/models/marts"
	"github.com/pgEdge/pgedge-dvdrent/internal/pipeline"
)

// ParseAmount parses a numeric rendered as text. NULL stays NULL.
func ParseAmount(t pgtype.Text) (decimal.NullDecimal, error) {
	if !t.Valid {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(t.String)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid amount %q: %w", t.String, err)
	}
	return decimal.NewNullDecimal(d), nil
}

func collect[T any](ctx context.Context, q db.Querier, sql string, scan func(pgx.Row) (T, error)) ([]T, error) {
	rows, err := q.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (T, error) {
		return scan(row)
	})
}

// LoadSources reads every DvdRent source table from schema.
func LoadSources(ctx context.Context, q db.Querier, schema string) (pipeline.Sources, error) {
	var src pipeline.Sources
	var err error
	tbl := func(name string) string { return db.QualifiedName(schema, name) }

	src.Rentals, err = collect(ctx, q, `
        SELECT rental_id::bigint, rental_date, inventory_id::bigint, customer_id::bigint, staff_id::bigint
        FROM `+tbl("rental"), func(row pgx.Row) (pipeline.Rental, error) {
		var r pipeline.Rental
		err := row.Scan(&r.RentalID, &r.RentalDate, &r.InventoryID, &r.CustomerID, &r.StaffID)
		return r, err
	})
	if err != nil {
		return src, fmt.Errorf("failed to load rentals: %w", err)
	}

	src.Payments, err = collect(ctx, q, `
        SELECT payment_id::bigint, rental_id::bigint, amount::text
        FROM `+tbl("payment"), func(row pgx.Row) (pipeline.Payment, error) {
		var p pipeline.Payment
		var amount pgtype.Text
		if err := row.Scan(&p.PaymentID, &p.RentalID, &amount); err != nil {
			return p, err
		}
		var err error
		p.Amount, err = ParseAmount(amount)
		return p, err
	})
	if err != nil {
		return src, fmt.Errorf("failed to load payments: %w", err)
	}

	src.Inventory, err = collect(ctx, q, `
        SELECT inventory_id::bigint, film_id::bigint FROM `+tbl("inventory"),
		func(row pgx.Row) (pipeline.Inventory, error) {
			var i pipeline.Inventory
			err := row.Scan(&i.InventoryID, &i.FilmID)
			return i, err
		})
	if err != nil {
		return src, fmt.Errorf("failed to load inventory: %w", err)
	}

	src.Films, err = collect(ctx, q, `
        SELECT film_id::bigint, title FROM `+tbl("film"),
		func(row pgx.Row) (pipeline.Film, error) {
			var f pipeline.Film
			err := row.Scan(&f.FilmID, &f.Title)
			return f, err
		})
	if err != nil {
		return src, fmt.Errorf("failed to load films: %w", err)
	}

	src.FilmCategories, err = collect(ctx, q, `
        SELECT film_id::bigint, category_id::bigint FROM `+tbl("film_category"),
		func(row pgx.Row) (pipeline.FilmCategory, error) {
			var fc pipeline.FilmCategory
			err := row.Scan(&fc.FilmID, &fc.CategoryID)
			return fc, err
		})
	if err != nil {
		return src, fmt.Errorf("failed to load film categories: %w", err)
	}

	src.Categories, err = collect(ctx, q, `
        SELECT category_id::bigint, name FROM `+tbl("category"),
		func(row pgx.Row) (pipeline.Category, error) {
			var c pipeline.Category
			err := row.Scan(&c.CategoryID, &c.Name)
			return c, err
		})
	if err != nil {
		return src, fmt.Errorf("failed to load categories: %w", err)
	}

	src.Customers, err = collect(ctx, q, `
        SELECT customer_id::bigint, first_name, last_name FROM `+tbl("customer"),
		func(row pgx.Row) (pipeline.Customer, error) {
			var c pipeline.Customer
			err := row.Scan(&c.CustomerID, &c.FirstName, &c.LastName)
			return c, err
		})
	if err != nil {
		return src, fmt.Errorf("failed to load customers: %w", err)
	}

	src.Staff, err = collect(ctx, q, `
        SELECT staff_id::bigint, first_name, last_name FROM `+tbl("staff"),
		func(row pgx.Row) (pipeline.Staff, error) {
			var s pipeline.Staff
			err := row.Scan(&s.StaffID, &s.FirstName, &s.LastName)
			return s, err
		})
	if err != nil {
		return src, fmt.Errorf("failed to load staff: %w", err)
	}

	return src, nil
}

// LoadRevenue reads mart_revenue in its declared order.
func LoadRevenue(ctx context.Context, q db.Querier, schema string) ([]pipeline.RevenueRow, error) {
	rows, err := collect(ctx, q, fmt.Sprintf(`
        SELECT "Month", "StaffName", "Revenue"::text FROM %s ORDER BY %s`,
		db.QualifiedName(schema, marts.Revenue.Name()), marts.RevenueOrder),
		func(row pgx.Row) (pipeline.RevenueRow, error) {
			var r pipeline.RevenueRow
			var rev pgtype.Text
			if err := row.Scan(&r.Month, &r.StaffName, &rev); err != nil {
				return r, err
			}
			var err error
			r.Revenue, err = ParseAmount(rev)
			return r, err
		})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", marts.Revenue.Name(), err)
	}
	return rows, nil
}

// LoadConsumption reads a relation shaped like intermediate_consumption.
func LoadConsumption(ctx context.Context, q db.Querier, schema, name string) ([]pipeline.ConsumptionRow, error) {
	rows, err := collect(ctx, q, fmt.Sprintf(`
        SELECT "CustomerName", "StaffName", "Month", "FilmCategory", "amount"::text FROM %s`,
		db.QualifiedName(schema, name)),
		func(row pgx.Row) (pipeline.ConsumptionRow, error) {
			var c pipeline.ConsumptionRow
			var amount pgtype.Text
			if err := row.Scan(&c.CustomerName, &c.StaffName, &c.Month, &c.FilmCategory, &amount); err != nil {
				return c, err
			}
			var err error
			c.Amount, err = ParseAmount(amount)
			return c, err
		})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}
	return rows, nil
}

// LoadTransactions reads intermediate_transaction.
func LoadTransactions(ctx context.Context, q db.Querier, schema string) ([]pipeline.TransactionRow, error) {
	rows, err := collect(ctx, q, `
        SELECT "Month", "inventory_id"::bigint, "customer_id"::bigint, "staff_id"::bigint, "amount"::text
        FROM `+db.QualifiedName(schema, "intermediate_transaction"),
		func(row pgx.Row) (pipeline.TransactionRow, error) {
			var t pipeline.TransactionRow
			var amount pgtype.Text
			if err := row.Scan(&t.Month, &t.InventoryID, &t.CustomerID, &t.StaffID, &amount); err != nil {
				return t, err
			}
			var err error
			t.Amount, err = ParseAmount(amount)
			return t, err
		})
	if err != nil {
		return nil, fmt.Errorf("failed to load intermediate_transaction: %w", err)
	}
	return rows, nil
}

// LoadFilmDetails reads intermediate_film_detail.
func LoadFilmDetails(ctx context.Context, q db.Querier, schema string) ([]pipeline.FilmDetailRow, error) {
	rows, err := collect(ctx, q, `
        SELECT "inventory_id"::bigint, "film_id"::bigint, "FilmTitle", "FilmCategory"
        FROM `+db.QualifiedName(schema, "intermediate_film_detail"),
		func(row pgx.Row) (pipeline.FilmDetailRow, error) {
			var d pipeline.FilmDetailRow
			err := row.Scan(&d.InventoryID, &d.FilmID, &d.FilmTitle, &d.FilmCategory)
			return d, err
		})
	if err != nil {
		return nil, fmt.Errorf("failed to load intermediate_film_detail: %w", err)
	}
	return rows, nil
}

// LoadOutputs reads the intermediate and mart relations from schema. Staging
// relations are left empty.
func LoadOutputs(ctx context.Context, q db.Querier, schema string) (pipeline.Outputs, error) {
	var out pipeline.Outputs
	var err error

	if out.Transactions, err = LoadTransactions(ctx, q, schema); err != nil {
		return out, err
	}
	if out.FilmDetails, err = LoadFilmDetails(ctx, q, schema); err != nil {
		return out, err
	}
	if out.Consumption, err = LoadConsumption(ctx, q, schema, "intermediate_consumption"); err != nil {
		return out, err
	}
	if out.Revenue, err = LoadRevenue(ctx, q, schema); err != nil {
		return out, err
	}
	if out.MartConsumption, err = LoadConsumption(ctx, q, schema, marts.Consumption.Name()); err != nil {
		return out, err
	}
	return out, nil
}

// Relation is a model's rows rendered as text.
type Relation struct {
	Name    string
	Columns []string
	Rows    [][]fingerprint.Cell
}

// ReadRelation reads a built model as text in the model's order. A limit of
// zero or less reads every row.
func ReadRelation(ctx context.Context, q db.Querier, schema string, m models.Model, limit int) (*Relation, error) {
	cols := m.Columns()
	exprs := db.QuoteIdents(cols)
	for i := range exprs {
		exprs[i] += "::text"
	}

	sql := "SELECT " + strings.Join(exprs, ", ") + " FROM " + db.QualifiedName(schema, m.Name())
	if order := m.OrderBy(); order != "" {
		sql += " ORDER BY " + order
	}
	if limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := q.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", m.Name(), err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) ([]fingerprint.Cell, error) {
		vals := make([]pgtype.Text, len(cols))
		dest := make([]any, len(cols))
		for i := range vals {
			dest[i] = &vals[i]
		}
		if err := row.Scan(dest...); err != nil {
			return nil, err
		}
		cells := make([]fingerprint.Cell, len(cols))
		for i, v := range vals {
			if v.Valid {
				cells[i] = fingerprint.Str(v.String)
			} else {
				cells[i] = fingerprint.Null()
			}
		}
		return cells, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", m.Name(), err)
	}

	return &Relation{Name: m.Name(), Columns: cols, Rows: records}, nil
}
