// Package staging holds the 1:1 models over the raw DvdRent tables. Staging
// models rename and cast columns only: no filters and no joins.
package staging

import "github.com/pgEdge/pgedge-dvdrent/internal/models"

// Rental exposes rentals with the rental timestamp truncated to a date.
var Rental = &models.Definition{
	ModelName:  "stg_rental",
	ModelLayer: models.LayerStaging,
	Desc:       "Rentals with rental_date truncated to a calendar date",
	Cols:       []string{"rental_id", "Date", "inventory_id", "customer_id", "staff_id"},
	Body: `
SELECT
    "rental_id",
    "rental_date"::date AS "Date",
    "inventory_id",
    "customer_id",
    "staff_id"
FROM {{ source "DvdRent" "rental" }}
`,
}

// Payment exposes payment amounts keyed by rental.
var Payment = &models.Definition{
	ModelName:  "stg_payment",
	ModelLayer: models.LayerStaging,
	Desc:       "Payments with the rental they settle",
	Cols:       []string{"payment_id", "rental_id", "amount"},
	Body: `
SELECT
    "payment_id",
    "rental_id",
    "amount"
FROM {{ source "DvdRent" "payment" }}
`,
}

// Inventory maps inventory items to films.
var Inventory = &models.Definition{
	ModelName:  "stg_inventory",
	ModelLayer: models.LayerStaging,
	Desc:       "Inventory items and the film they carry",
	Cols:       []string{"inventory_id", "film_id"},
	Body: `
SELECT
    "inventory_id",
    "film_id"
FROM {{ source "DvdRent" "inventory" }}
`,
}

// Film exposes film titles.
var Film = &models.Definition{
	ModelName:  "stg_film",
	ModelLayer: models.LayerStaging,
	Desc:       "Films and their titles",
	Cols:       []string{"film_id", "FilmTitle"},
	Body: `
SELECT
    "film_id",
    "title" AS "FilmTitle"
FROM {{ source "DvdRent" "film" }}
`,
}

// FilmCategory links films to categories.
var FilmCategory = &models.Definition{
	ModelName:  "stg_film_category",
	ModelLayer: models.LayerStaging,
	Desc:       "Film to category links",
	Cols:       []string{"film_id", "category_id"},
	Body: `
SELECT
    "film_id",
    "category_id"
FROM {{ source "DvdRent" "film_category" }}
`,
}

// Category exposes category names.
var Category = &models.Definition{
	ModelName:  "stg_category",
	ModelLayer: models.LayerStaging,
	Desc:       "Film categories",
	Cols:       []string{"category_id", "CategoryName"},
	Body: `
SELECT
    "category_id",
    "name" AS "CategoryName"
FROM {{ source "DvdRent" "category" }}
`,
}

// Customer exposes customers by full name.
var Customer = &models.Definition{
	ModelName:  "stg_customer",
	ModelLayer: models.LayerStaging,
	Desc:       "Customers with first and last name joined",
	Cols:       []string{"customer_id", "CustomerName"},
	Body: `
SELECT
    "customer_id",
    "first_name" || ' ' || "last_name" AS "CustomerName"
FROM {{ source "DvdRent" "customer" }}
`,
}

// Staff exposes staff members by first name.
var Staff = &models.Definition{
	ModelName:  "stg_staff",
	ModelLayer: models.LayerStaging,
	Desc:       "Staff members by first name",
	Cols:       []string{"staff_id", "StaffName"},
	Body: `
SELECT
    "staff_id",
    "first_name" AS "StaffName"
FROM {{ source "DvdRent" "staff" }}
`,
}

func init() {
	for _, m := range []*models.Definition{
		Rental, Payment, Inventory, Film, FilmCategory, Category, Customer, Staff,
	} {
		models.Register(m)
	}
}
