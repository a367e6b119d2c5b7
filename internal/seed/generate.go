package seed

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-dvdrent/internal/datagen"
	"github.com/pgEdge/pgedge-dvdrent/internal/pipeline"
)

// Row types mirror the DvdRent source tables.
type (
	CategoryRow struct {
		ID   int64
		Name string
	}

	FilmRow struct {
		ID          int64
		Title       string
		Description string
		ReleaseYear int
		RentalRate  decimal.Decimal
		Length      int
	}

	FilmCategoryRow struct {
		FilmID     int64
		CategoryID int64
	}

	InventoryRow struct {
		ID      int64
		FilmID  int64
		StoreID int
	}

	CustomerRow struct {
		ID         int64
		StoreID    int
		FirstName  string
		LastName   string
		Email      string
		Active     bool
		CreateDate time.Time
	}

	StaffRow struct {
		ID        int64
		FirstName string
		LastName  string
		Email     string
		StoreID   int
		Username  string
	}

	RentalRow struct {
		ID          int64
		RentalDate  time.Time
		InventoryID int64
		CustomerID  int64
		ReturnDate  *time.Time
		StaffID     int64
	}

	PaymentRow struct {
		ID          int64
		CustomerID  int64
		StaffID     int64
		RentalID    int64
		Amount      decimal.Decimal
		PaymentDate time.Time
	}
)

// Dataset is a complete generated DvdRent database.
type Dataset struct {
	Categories     []CategoryRow
	Films          []FilmRow
	FilmCategories []FilmCategoryRow
	Inventory      []InventoryRow
	Customers      []CustomerRow
	Staff          []StaffRow
	Rentals        []RentalRow
	Payments       []PaymentRow
}

// Table size information for scaling. Ratios follow the sample database,
// relative to rental.
var tableSizes = []datagen.TableSizeInfo{
	{Name: "rental", BaseRowSize: 80, ScaleRatio: 1.0, IndexFactor: 1.6},
	{Name: "payment", BaseRowSize: 70, ScaleRatio: 0.91, IndexFactor: 1.5},
	{Name: "inventory", BaseRowSize: 50, ScaleRatio: 0.29, IndexFactor: 1.4},
	{Name: "film", BaseRowSize: 250, ScaleRatio: 0.062},
	{Name: "film_category", BaseRowSize: 40, ScaleRatio: 0.062},
	{Name: "customer", BaseRowSize: 120, ScaleRatio: 0.037},
	{Name: "staff", BaseRowSize: 120, ScaleRatio: 0.0001},
}

// Categories are the genres of the sample database.
var Categories = []string{
	"Action", "Animation", "Children", "Classics", "Comedy", "Documentary",
	"Drama", "Family", "Foreign", "Games", "Horror", "Music", "New",
	"Sci-Fi", "Sports", "Travel",
}

// Fixed staff of the sample database. Generated staff follow them.
var requiredStaff = []StaffRow{
	{ID: 1, FirstName: "Mike", LastName: "Hillyer", Email: "Mike.Hillyer@sakilastaff.com", StoreID: 1, Username: "Mike"},
	{ID: 2, FirstName: "Jon", LastName: "Stephens", Email: "Jon.Stephens@sakilastaff.com", StoreID: 2, Username: "Jon"},
}

// Rental dates fall within this window.
var (
	PeriodStart = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	PeriodEnd   = time.Date(2024, time.December, 31, 23, 59, 59, 0, time.UTC)
)

var rentalRates = []string{"0.99", "2.99", "4.99"}

const (
	minFilms     = 10
	minRentals   = 50
	minCustomers = 5
	stores       = 2

	// Every unpaidEvery-th rental has no payment and every
	// uncategorizedEvery-th film has no category.
	unpaidEvery        = 12
	uncategorizedEvery = 20

	splitPaymentChance = 0.03
	lateFeeChance      = 0.25
	notReturnedChance  = 0.01
)

// RowCounts returns the per-table row counts for a target size.
func RowCounts(targetSize int64) map[string]int64 {
	counts := datagen.NewSizeCalculator(tableSizes).CalculateRowCounts(targetSize)

	counts["film"] = max(counts["film"], minFilms)
	counts["film_category"] = counts["film"]
	counts["rental"] = max(counts["rental"], minRentals)
	counts["inventory"] = max(counts["inventory"], counts["film"])
	counts["customer"] = max(counts["customer"], minCustomers)
	counts["staff"] = max(counts["staff"], int64(len(requiredStaff)))
	counts["category"] = int64(len(Categories))
	return counts
}

// EstimatedSize returns the estimated on-disk size of the given counts.
func EstimatedSize(counts map[string]int64) int64 {
	return datagen.NewSizeCalculator(tableSizes).EstimatedSize(counts)
}

// Generate builds a dataset with the given row counts. The payment count is
// derived from the rentals.
func Generate(f *datagen.Faker, counts map[string]int64) *Dataset {
	ds := &Dataset{}
	ds.generateCategories()
	ds.generateFilms(f, counts["film"])
	ds.generateInventory(f, counts["inventory"])
	ds.generateCustomers(f, counts["customer"])
	ds.generateStaff(f, counts["staff"])
	ds.generateRentals(f, counts["rental"])
	return ds
}

func (ds *Dataset) generateCategories() {
	ds.Categories = make([]CategoryRow, len(Categories))
	for i, name := range Categories {
		ds.Categories[i] = CategoryRow{ID: int64(i + 1), Name: name}
	}
}

func (ds *Dataset) generateFilms(f *datagen.Faker, n int64) {
	ds.Films = make([]FilmRow, 0, n)
	ds.FilmCategories = make([]FilmCategoryRow, 0, n)

	for i := int64(1); i <= n; i++ {
		ds.Films = append(ds.Films, FilmRow{
			ID:          i,
			Title:       datagen.Truncate(f.Title(2), 255),
			Description: f.Sentence(10),
			ReleaseYear: f.Int(1990, 2023),
			RentalRate:  decimal.RequireFromString(datagen.Choose(f, rentalRates)),
			Length:      f.Int(46, 185),
		})
		if i%uncategorizedEvery == 0 {
			continue
		}
		ds.FilmCategories = append(ds.FilmCategories, FilmCategoryRow{
			FilmID:     i,
			CategoryID: int64(f.Int(1, len(Categories))),
		})
	}
}

// generateInventory gives every film at least one copy.
func (ds *Dataset) generateInventory(f *datagen.Faker, n int64) {
	films := int64(len(ds.Films))
	ds.Inventory = make([]InventoryRow, 0, n)
	for i := int64(1); i <= n; i++ {
		filmID := i
		if i > films {
			filmID = f.Int64(1, films)
		}
		ds.Inventory = append(ds.Inventory, InventoryRow{
			ID:      i,
			FilmID:  filmID,
			StoreID: f.Int(1, stores),
		})
	}
}

func (ds *Dataset) generateCustomers(f *datagen.Faker, n int64) {
	ds.Customers = make([]CustomerRow, 0, n)
	for i := int64(1); i <= n; i++ {
		first, last := f.FirstName(), f.LastName()
		ds.Customers = append(ds.Customers, CustomerRow{
			ID:         i,
			StoreID:    f.Int(1, stores),
			FirstName:  datagen.Truncate(first, 45),
			LastName:   datagen.Truncate(last, 45),
			Email:      datagen.Truncate(strings.ToLower(first+"."+last)+"@sakilacustomer.org", 50),
			Active:     datagen.ChooseWeighted(f, []bool{true, false}, []int{97, 3}),
			CreateDate: PeriodStart.AddDate(0, 0, -f.Int(1, 365)),
		})
	}
}

func (ds *Dataset) generateStaff(f *datagen.Faker, n int64) {
	ds.Staff = append([]StaffRow(nil), requiredStaff...)
	for i := int64(len(requiredStaff)) + 1; i <= n; i++ {
		first, last := f.FirstName(), f.LastName()
		ds.Staff = append(ds.Staff, StaffRow{
			ID:        i,
			FirstName: datagen.Truncate(first, 45),
			LastName:  datagen.Truncate(last, 45),
			Email:     datagen.Truncate(first+"."+last+"@sakilastaff.com", 50),
			StoreID:   f.Int(1, stores),
			Username:  datagen.Truncate(fmt.Sprintf("%s%d", first, i), 16),
		})
	}
}

func (ds *Dataset) generateRentals(f *datagen.Faker, n int64) {
	filmRate := make(map[int64]decimal.Decimal, len(ds.Films))
	for _, film := range ds.Films {
		filmRate[film.ID] = film.RentalRate
	}

	ds.Rentals = make([]RentalRow, 0, n)
	ds.Payments = make([]PaymentRow, 0, n)
	var paymentID int64

	for i := int64(1); i <= n; i++ {
		inv := datagen.Choose(f, ds.Inventory)
		staff := datagen.Choose(f, ds.Staff)
		rented := f.DateRange(PeriodStart, PeriodEnd).Truncate(time.Second)

		r := RentalRow{
			ID:          i,
			RentalDate:  rented,
			InventoryID: inv.ID,
			CustomerID:  int64(f.Int(1, len(ds.Customers))),
			StaffID:     staff.ID,
		}
		if !f.Chance(notReturnedChance) {
			returned := rented.Add(time.Duration(f.Int(1, 10*24)) * time.Hour)
			r.ReturnDate = &returned
		}
		ds.Rentals = append(ds.Rentals, r)

		if i%unpaidEvery == 0 {
			continue
		}

		amounts := []decimal.Decimal{filmRate[inv.FilmID]}
		if f.Chance(lateFeeChance) {
			fee := f.Cents(100, 599)
			if f.Chance(splitPaymentChance / lateFeeChance) {
				amounts = append(amounts, fee)
			} else {
				amounts[0] = amounts[0].Add(fee)
			}
		}
		for k, amount := range amounts {
			paymentID++
			ds.Payments = append(ds.Payments, PaymentRow{
				ID:          paymentID,
				CustomerID:  r.CustomerID,
				StaffID:     r.StaffID,
				RentalID:    r.ID,
				Amount:      amount,
				PaymentDate: rented.Add(time.Duration(k+1) * time.Hour),
			})
		}
	}
}

// Sources converts the dataset into the rows the models read.
func (ds *Dataset) Sources() pipeline.Sources {
	var src pipeline.Sources

	for _, c := range ds.Categories {
		src.Categories = append(src.Categories, pipeline.Category{CategoryID: c.ID, Name: c.Name})
	}
	for _, film := range ds.Films {
		src.Films = append(src.Films, pipeline.Film{FilmID: film.ID, Title: film.Title})
	}
	for _, fc := range ds.FilmCategories {
		src.FilmCategories = append(src.FilmCategories, pipeline.FilmCategory(fc))
	}
	for _, inv := range ds.Inventory {
		src.Inventory = append(src.Inventory, pipeline.Inventory{InventoryID: inv.ID, FilmID: inv.FilmID})
	}
	for _, c := range ds.Customers {
		src.Customers = append(src.Customers, pipeline.Customer{CustomerID: c.ID, FirstName: c.FirstName, LastName: c.LastName})
	}
	for _, s := range ds.Staff {
		src.Staff = append(src.Staff, pipeline.Staff{StaffID: s.ID, FirstName: s.FirstName, LastName: s.LastName})
	}
	for _, r := range ds.Rentals {
		src.Rentals = append(src.Rentals, pipeline.Rental{
			RentalID:    r.ID,
			RentalDate:  r.RentalDate,
			InventoryID: r.InventoryID,
			CustomerID:  r.CustomerID,
			StaffID:     r.StaffID,
		})
	}
	for _, p := range ds.Payments {
		src.Payments = append(src.Payments, pipeline.Payment{
			PaymentID: p.ID,
			RentalID:  p.RentalID,
			Amount:    decimal.NewNullDecimal(p.Amount),
		})
	}
	return src
}
