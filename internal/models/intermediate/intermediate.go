// Package intermediate joins staging models into the transaction fact and
// the film and consumption detail relations. Every join is a LEFT JOIN so no
// driving row is lost.
package intermediate

import "github.com/pgEdge/pgedge-dvdrent/internal/models"

// Transaction is one row per rental and matching payment. Unpaid rentals
// keep a NULL amount.
var Transaction = &models.Definition{
	ModelName:  "intermediate_transaction",
	ModelLayer: models.LayerIntermediate,
	Desc:       "Rental facts with month and paid amount",
	Cols:       []string{"Month", "inventory_id", "customer_id", "staff_id", "amount"},
	Body: `
SELECT
    EXTRACT(MONTH FROM r."Date")::integer AS "Month",
    r."inventory_id",
    r."customer_id",
    r."staff_id",
    p."amount"
FROM {{ ref "stg_rental" }} AS r
LEFT JOIN {{ ref "stg_payment" }} AS p
    ON p."rental_id" = r."rental_id"
`,
}

// FilmDetail resolves inventory to film title and category.
var FilmDetail = &models.Definition{
	ModelName:  "intermediate_film_detail",
	ModelLayer: models.LayerIntermediate,
	Desc:       "Inventory items with film title and category",
	Cols:       []string{"inventory_id", "film_id", "FilmTitle", "FilmCategory"},
	Body: `
SELECT
    i."inventory_id",
    i."film_id",
    f."FilmTitle",
    c."CategoryName" AS "FilmCategory"
FROM {{ ref "stg_inventory" }} AS i
LEFT JOIN {{ ref "stg_film" }} AS f
    ON f."film_id" = i."film_id"
LEFT JOIN {{ ref "stg_film_category" }} AS fc
    ON fc."film_id" = i."film_id"
LEFT JOIN {{ ref "stg_category" }} AS c
    ON c."category_id" = fc."category_id"
`,
}

// Consumption denormalizes transactions with customer, staff and category.
var Consumption = &models.Definition{
	ModelName:  "intermediate_consumption",
	ModelLayer: models.LayerIntermediate,
	Desc:       "Transactions with customer, staff and film category names",
	Cols:       []string{"CustomerName", "StaffName", "Month", "FilmCategory", "amount"},
	Body: `
SELECT
    cu."CustomerName",
    s."StaffName",
    t."Month",
    fd."FilmCategory",
    t."amount"
FROM {{ ref "intermediate_transaction" }} AS t
LEFT JOIN {{ ref "intermediate_film_detail" }} AS fd
    ON fd."inventory_id" = t."inventory_id"
LEFT JOIN {{ ref "stg_customer" }} AS cu
    ON cu."customer_id" = t."customer_id"
LEFT JOIN {{ ref "stg_staff" }} AS s
    ON s."staff_id" = t."staff_id"
`,
}

func init() {
	models.Register(Transaction)
	models.Register(FilmDetail)
	models.Register(Consumption)
}
