package pipeline

// Outputs holds every relation the models produce.
type Outputs struct {
	Rentals        []StgRental
	Payments       []StgPayment
	Inventory      []Inventory
	Films          []StgFilm
	FilmCategories []FilmCategory
	Categories     []StgCategory
	Customers      []StgCustomer
	Staff          []StgStaff

	Transactions    []TransactionRow
	FilmDetails     []FilmDetailRow
	Consumption     []ConsumptionRow
	Revenue         []RevenueRow
	MartConsumption []ConsumptionRow
}

// Run evaluates every model over src in dependency order.
func Run(src Sources, opts Options) Outputs {
	var out Outputs

	out.Rentals = StageRental(src.Rentals)
	out.Payments = StagePayment(src.Payments)
	out.Inventory = StageInventory(src.Inventory)
	out.Films = StageFilm(src.Films)
	out.FilmCategories = StageFilmCategory(src.FilmCategories)
	out.Categories = StageCategory(src.Categories)
	out.Customers = StageCustomer(src.Customers)
	out.Staff = StageStaff(src.Staff)

	out.Transactions = IntermediateTransaction(out.Rentals, out.Payments)
	out.FilmDetails = IntermediateFilmDetail(out.Inventory, out.Films, out.FilmCategories, out.Categories)
	out.Consumption = IntermediateConsumption(out.Transactions, out.FilmDetails, out.Customers, out.Staff)

	out.Revenue = MartRevenue(out.Consumption, opts)
	out.MartConsumption = MartConsumption(out.Consumption)
	return out
}
