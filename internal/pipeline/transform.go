package pipeline

import (
	"cmp"
	"slices"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Options mirrors the template variables of the SQL models.
type Options struct {
	// CoalesceRevenue reports an all-NULL revenue group as 0 instead of NULL.
	CoalesceRevenue bool
}

// TruncateDate drops the time of day, keeping the calendar date of t in its
// own location. It is idempotent.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Month returns the month number of a date, 1 through 12.
func Month(t time.Time) int {
	return int(t.Month())
}

// StageRental mirrors stg_rental.
func StageRental(in []Rental) []StgRental {
	out := make([]StgRental, len(in))
	for i, r := range in {
		out[i] = StgRental{
			RentalID:    r.RentalID,
			Date:        TruncateDate(r.RentalDate),
			InventoryID: r.InventoryID,
			CustomerID:  r.CustomerID,
			StaffID:     r.StaffID,
		}
	}
	return out
}

// StagePayment mirrors stg_payment.
func StagePayment(in []Payment) []StgPayment {
	out := make([]StgPayment, len(in))
	for i, p := range in {
		out[i] = StgPayment(p)
	}
	return out
}

// StageInventory mirrors stg_inventory.
func StageInventory(in []Inventory) []Inventory {
	return slices.Clone(in)
}

// StageFilm mirrors stg_film.
func StageFilm(in []Film) []StgFilm {
	out := make([]StgFilm, len(in))
	for i, f := range in {
		out[i] = StgFilm{FilmID: f.FilmID, FilmTitle: f.Title}
	}
	return out
}

// StageFilmCategory mirrors stg_film_category.
func StageFilmCategory(in []FilmCategory) []FilmCategory {
	return slices.Clone(in)
}

// StageCategory mirrors stg_category.
func StageCategory(in []Category) []StgCategory {
	out := make([]StgCategory, len(in))
	for i, c := range in {
		out[i] = StgCategory{CategoryID: c.CategoryID, CategoryName: c.Name}
	}
	return out
}

// StageCustomer mirrors stg_customer.
func StageCustomer(in []Customer) []StgCustomer {
	out := make([]StgCustomer, len(in))
	for i, c := range in {
		out[i] = StgCustomer{CustomerID: c.CustomerID, CustomerName: c.FirstName + " " + c.LastName}
	}
	return out
}

// StageStaff mirrors stg_staff.
func StageStaff(in []Staff) []StgStaff {
	out := make([]StgStaff, len(in))
	for i, s := range in {
		out[i] = StgStaff{StaffID: s.StaffID, StaffName: s.FirstName}
	}
	return out
}

// index groups rows by key, keeping input order within a key.
func index[K comparable, V any](rows []V, key func(V) K) map[K][]V {
	m := make(map[K][]V, len(rows))
	for _, r := range rows {
		k := key(r)
		m[k] = append(m[k], r)
	}
	return m
}

// leftJoin calls emit once per match of k in idx, or once with ok=false
// when nothing matches.
func leftJoin[K comparable, V any](idx map[K][]V, k K, emit func(v V, ok bool)) {
	matches := idx[k]
	if len(matches) == 0 {
		var zero V
		emit(zero, false)
		return
	}
	for _, v := range matches {
		emit(v, true)
	}
}

// IntermediateTransaction mirrors intermediate_transaction: every rental,
// once per matching payment, with a NULL amount when unpaid.
func IntermediateTransaction(rentals []StgRental, payments []StgPayment) []TransactionRow {
	byRental := index(payments, func(p StgPayment) int64 { return p.RentalID })

	out := make([]TransactionRow, 0, len(rentals))
	for _, r := range rentals {
		leftJoin(byRental, r.RentalID, func(p StgPayment, ok bool) {
			row := TransactionRow{
				Month:       Month(r.Date),
				InventoryID: r.InventoryID,
				CustomerID:  r.CustomerID,
				StaffID:     r.StaffID,
			}
			if ok {
				row.Amount = p.Amount
			}
			out = append(out, row)
		})
	}
	return out
}

// IntermediateFilmDetail mirrors intermediate_film_detail.
func IntermediateFilmDetail(inventory []Inventory, films []StgFilm, filmCategories []FilmCategory, categories []StgCategory) []FilmDetailRow {
	filmByID := index(films, func(f StgFilm) int64 { return f.FilmID })
	fcByFilm := index(filmCategories, func(fc FilmCategory) int64 { return fc.FilmID })
	catByID := index(categories, func(c StgCategory) int64 { return c.CategoryID })

	out := make([]FilmDetailRow, 0, len(inventory))
	for _, inv := range inventory {
		leftJoin(filmByID, inv.FilmID, func(f StgFilm, filmOK bool) {
			var title pgtype.Text
			if filmOK {
				title = Text(f.FilmTitle)
			}
			leftJoin(fcByFilm, inv.FilmID, func(fc FilmCategory, fcOK bool) {
				emit := func(c StgCategory, catOK bool) {
					row := FilmDetailRow{InventoryID: inv.InventoryID, FilmID: inv.FilmID, FilmTitle: title}
					if catOK {
						row.FilmCategory = Text(c.CategoryName)
					}
					out = append(out, row)
				}
				if !fcOK {
					// A NULL category_id matches no category.
					emit(StgCategory{}, false)
					return
				}
				leftJoin(catByID, fc.CategoryID, emit)
			})
		})
	}
	return out
}

// IntermediateConsumption mirrors intermediate_consumption. Every
// transaction row is preserved.
func IntermediateConsumption(transactions []TransactionRow, details []FilmDetailRow, customers []StgCustomer, staff []StgStaff) []ConsumptionRow {
	detailByInv := index(details, func(d FilmDetailRow) int64 { return d.InventoryID })
	custByID := index(customers, func(c StgCustomer) int64 { return c.CustomerID })
	staffByID := index(staff, func(s StgStaff) int64 { return s.StaffID })

	out := make([]ConsumptionRow, 0, len(transactions))
	for _, t := range transactions {
		leftJoin(detailByInv, t.InventoryID, func(d FilmDetailRow, _ bool) {
			leftJoin(custByID, t.CustomerID, func(c StgCustomer, custOK bool) {
				leftJoin(staffByID, t.StaffID, func(s StgStaff, staffOK bool) {
					row := ConsumptionRow{
						Month:        t.Month,
						FilmCategory: d.FilmCategory,
						Amount:       t.Amount,
					}
					if custOK {
						row.CustomerName = Text(c.CustomerName)
					}
					if staffOK {
						row.StaffName = Text(s.StaffName)
					}
					out = append(out, row)
				})
			})
		})
	}
	return out
}

type revenueKey struct {
	month int
	staff pgtype.Text
}

// MartRevenue mirrors mart_revenue: the sum of amount per (Month,
// StaffName), NULL amounts ignored. A group with no non-NULL amount sums to
// NULL, or to 0 with CoalesceRevenue. Rows are sorted by SortRevenue.
func MartRevenue(consumption []ConsumptionRow, opts Options) []RevenueRow {
	sums := make(map[revenueKey]*decimal.NullDecimal)
	var keys []revenueKey

	for _, c := range consumption {
		k := revenueKey{month: c.Month, staff: c.StaffName}
		sum, ok := sums[k]
		if !ok {
			sum = &decimal.NullDecimal{}
			sums[k] = sum
			keys = append(keys, k)
		}
		if !c.Amount.Valid {
			continue
		}
		if sum.Valid {
			sum.Decimal = sum.Decimal.Add(c.Amount.Decimal)
		} else {
			*sum = c.Amount
		}
	}

	out := make([]RevenueRow, 0, len(keys))
	for _, k := range keys {
		rev := *sums[k]
		if !rev.Valid && opts.CoalesceRevenue {
			rev = decimal.NewNullDecimal(decimal.Zero)
		}
		out = append(out, RevenueRow{Month: k.month, StaffName: k.staff, Revenue: rev})
	}
	SortRevenue(out)
	return out
}

// SortRevenue orders rows by Month ascending, Revenue descending with NULLs
// last, then StaffName ascending byte-wise with NULLs last.
func SortRevenue(rows []RevenueRow) {
	slices.SortStableFunc(rows, CompareRevenue)
}

// CompareRevenue is the mart_revenue ordering.
func CompareRevenue(a, b RevenueRow) int {
	if c := cmp.Compare(a.Month, b.Month); c != 0 {
		return c
	}
	switch {
	case a.Revenue.Valid && b.Revenue.Valid:
		if c := b.Revenue.Decimal.Cmp(a.Revenue.Decimal); c != 0 {
			return c
		}
	case a.Revenue.Valid:
		return 1
	case b.Revenue.Valid:
		return -1
	}
	return compareText(a.StaffName, b.StaffName)
}

// compareText orders valid strings byte-wise before NULL.
func compareText(a, b pgtype.Text) int {
	switch {
	case a.Valid && b.Valid:
		return cmp.Compare(a.String, b.String)
	case a.Valid:
		return -1
	case b.Valid:
		return 1
	}
	return 0
}

// MartConsumption mirrors mart_consumption, a projection of consumption.
func MartConsumption(consumption []ConsumptionRow) []ConsumptionRow {
	return slices.Clone(consumption)
}
