// Package pipeline is an in-memory reference engine for the transformation
// models. Every function mirrors one SQL model, LEFT JOIN and NULL semantics
// included, so warehouse output can be reconciled against it.
package pipeline

import (
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-dvdrent/internal/fingerprint"
)

// DateLayout is how dates are rendered in fingerprints and exports.
const DateLayout = "2006-01-02"

// Raw DvdRent source rows.
type (
	Rental struct {
		RentalID    int64
		RentalDate  time.Time
		InventoryID int64
		CustomerID  int64
		StaffID     int64
	}

	Payment struct {
		PaymentID int64
		RentalID  int64
		Amount    decimal.NullDecimal
	}

	Inventory struct {
		InventoryID int64
		FilmID      int64
	}

	Film struct {
		FilmID int64
		Title  string
	}

	FilmCategory struct {
		FilmID     int64
		CategoryID int64
	}

	Category struct {
		CategoryID int64
		Name       string
	}

	Customer struct {
		CustomerID int64
		FirstName  string
		LastName   string
	}

	Staff struct {
		StaffID   int64
		FirstName string
		LastName  string
	}
)

// Sources holds every raw relation the models read.
type Sources struct {
	Rentals        []Rental
	Payments       []Payment
	Inventory      []Inventory
	Films          []Film
	FilmCategories []FilmCategory
	Categories     []Category
	Customers      []Customer
	Staff          []Staff
}

// Staging rows.
type (
	StgRental struct {
		RentalID    int64
		Date        time.Time
		InventoryID int64
		CustomerID  int64
		StaffID     int64
	}

	StgPayment struct {
		PaymentID int64
		RentalID  int64
		Amount    decimal.NullDecimal
	}

	StgFilm struct {
		FilmID    int64
		FilmTitle string
	}

	StgCategory struct {
		CategoryID   int64
		CategoryName string
	}

	StgCustomer struct {
		CustomerID   int64
		CustomerName string
	}

	StgStaff struct {
		StaffID   int64
		StaffName string
	}
)

// TransactionRow is a row of intermediate_transaction.
type TransactionRow struct {
	Month       int
	InventoryID int64
	CustomerID  int64
	StaffID     int64
	Amount      decimal.NullDecimal
}

// FilmDetailRow is a row of intermediate_film_detail.
type FilmDetailRow struct {
	InventoryID  int64
	FilmID       int64
	FilmTitle    pgtype.Text
	FilmCategory pgtype.Text
}

// ConsumptionRow is a row of intermediate_consumption and mart_consumption.
type ConsumptionRow struct {
	CustomerName pgtype.Text
	StaffName    pgtype.Text
	Month        int
	FilmCategory pgtype.Text
	Amount       decimal.NullDecimal
}

// RevenueRow is a row of mart_revenue.
type RevenueRow struct {
	Month     int
	StaffName pgtype.Text
	Revenue   decimal.NullDecimal
}

// Text returns a valid pgtype.Text.
func Text(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: true}
}

// Amount returns a valid decimal.NullDecimal parsed from s. It panics on
// malformed input and is meant for literals.
func Amount(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

// Cells renders the row for fingerprinting and export.
func (r TransactionRow) Cells() []fingerprint.Cell {
	return []fingerprint.Cell{
		intCell(int64(r.Month)), intCell(r.InventoryID), intCell(r.CustomerID),
		intCell(r.StaffID), amountCell(r.Amount),
	}
}

// Cells renders the row for fingerprinting and export.
func (r FilmDetailRow) Cells() []fingerprint.Cell {
	return []fingerprint.Cell{
		intCell(r.InventoryID), intCell(r.FilmID), textCell(r.FilmTitle), textCell(r.FilmCategory),
	}
}

// Cells renders the row for fingerprinting and export.
func (r ConsumptionRow) Cells() []fingerprint.Cell {
	return []fingerprint.Cell{
		textCell(r.CustomerName), textCell(r.StaffName), intCell(int64(r.Month)),
		textCell(r.FilmCategory), amountCell(r.Amount),
	}
}

// Cells renders the row for fingerprinting and export.
func (r RevenueRow) Cells() []fingerprint.Cell {
	return []fingerprint.Cell{intCell(int64(r.Month)), textCell(r.StaffName), amountCell(r.Revenue)}
}

// Record is any row that renders to cells.
type Record interface {
	Cells() []fingerprint.Cell
}

// Records renders a relation for fingerprinting.
func Records[T Record](rows []T) [][]fingerprint.Cell {
	out := make([][]fingerprint.Cell, len(rows))
	for i, r := range rows {
		out[i] = r.Cells()
	}
	return out
}

func intCell(v int64) fingerprint.Cell {
	return fingerprint.Str(strconv.FormatInt(v, 10))
}

func textCell(t pgtype.Text) fingerprint.Cell {
	if !t.Valid {
		return fingerprint.Null()
	}
	return fingerprint.Str(t.String)
}

// amountCell renders money with two decimals so that 4.9 and 4.90 agree.
func amountCell(d decimal.NullDecimal) fingerprint.Cell {
	if !d.Valid {
		return fingerprint.Null()
	}
	return fingerprint.Str(d.Decimal.StringFixed(2))
}
