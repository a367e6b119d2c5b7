// Package marts holds the reporting models.
package marts

import "github.com/pgEdge/pgedge-dvdrent/internal/models"

// RevenueOrder is the ordering of mart_revenue. Groups without any payment
// lead their month. Ties on Revenue fall back to a byte-wise comparison of
// StaffName.
const RevenueOrder = `"Month" ASC, "Revenue" DESC NULLS FIRST, "StaffName" COLLATE "C" ASC`

// ConsumptionOrder gives mart_consumption a stable read-back order.
const ConsumptionOrder = `"Month" ASC, "CustomerName" COLLATE "C" ASC, "StaffName" COLLATE "C" ASC, ` +
	`"FilmCategory" COLLATE "C" ASC, "amount" ASC`

// Revenue is revenue per month per staff member.
//
// A group whose amounts are all NULL sums to NULL unless the
// coalesce_revenue variable is set.
var Revenue = &models.Definition{
	ModelName:  "mart_revenue",
	ModelLayer: models.LayerMarts,
	Desc:       "Revenue by month and staff member",
	Cols:       []string{"Month", "StaffName", "Revenue"},
	Order:      RevenueOrder,
	Body: `
SELECT
    "Month",
    "StaffName",
{{- if var "coalesce_revenue" }}
    COALESCE(SUM("amount"), 0) AS "Revenue"
{{- else }}
    SUM("amount") AS "Revenue"
{{- end }}
FROM {{ ref "intermediate_consumption" }}
GROUP BY "Month", "StaffName"
ORDER BY ` + RevenueOrder + `
`,
}

// Consumption is the per-transaction consumption report.
var Consumption = &models.Definition{
	ModelName:  "mart_consumption",
	ModelLayer: models.LayerMarts,
	Desc:       "Consumption by customer, staff, month and film category",
	Cols:       []string{"CustomerName", "StaffName", "Month", "FilmCategory", "amount"},
	Order:      ConsumptionOrder,
	Body: `
SELECT
    "CustomerName",
    "StaffName",
    "Month",
    "FilmCategory",
    "amount"
FROM {{ ref "intermediate_consumption" }}
`,
}

func init() {
	models.Register(Revenue)
	models.Register(Consumption)
}
