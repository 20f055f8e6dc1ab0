package dataset

import "github.com/barnardcsc/workshopdb/pkg/schema"

// CustomerSeed is one seed row for the customers table. PostalCode and
// DateOfBirth are optional, matching the nullable columns.
type CustomerSeed struct {
	ID            int
	Name          string
	LoyaltyMember int
	PostalCode    *string
	DateOfBirth   *string // ISO date, e.g. "1991-04-12"
}

// ItemSeed is one seed row for the items table. Price is denominated in
// cents so revenue sums stay exact integers.
type ItemSeed struct {
	ID    int
	Name  string
	Price int
}

// SaleSeed is one purchase event. Repeated (customer, item) pairs are
// repeated purchases; there is no quantity column.
type SaleSeed struct {
	ID         int
	CustomerID int
	ItemID     int
}

func strptr(s string) *string { return &s }

// CustomerSeeds are the workshop's customers.
var CustomerSeeds = []CustomerSeed{
	{ID: 1, Name: "Maria", LoyaltyMember: 1, PostalCode: strptr("10027"), DateOfBirth: strptr("1991-04-12")},
	{ID: 2, Name: "James", LoyaltyMember: 0, PostalCode: strptr("11201")},
	{ID: 3, Name: "Ana", LoyaltyMember: 0},
}

// ItemSeeds are the workshop's items with prices in cents.
var ItemSeeds = []ItemSeed{
	{ID: 1, Name: "headphones", Price: 3500},
	{ID: 2, Name: "t-shirt", Price: 2200},
	{ID: 3, Name: "mug", Price: 1300},
}

// SaleSeeds are the workshop's ten purchase events.
var SaleSeeds = []SaleSeed{
	{ID: 1, CustomerID: 1, ItemID: 1},
	{ID: 2, CustomerID: 2, ItemID: 2},
	{ID: 3, CustomerID: 1, ItemID: 1},
	{ID: 4, CustomerID: 2, ItemID: 2},
	{ID: 5, CustomerID: 3, ItemID: 2},
	{ID: 6, CustomerID: 3, ItemID: 3},
	{ID: 7, CustomerID: 1, ItemID: 3},
	{ID: 8, CustomerID: 2, ItemID: 1},
	{ID: 9, CustomerID: 3, ItemID: 3},
	{ID: 10, CustomerID: 3, ItemID: 3},
}

// ExpectedRevenue derives revenue per customer in cents from the seed
// slices. Reports against the live database must match it.
func ExpectedRevenue() map[int]int {
	prices := make(map[int]int, len(ItemSeeds))
	for _, item := range ItemSeeds {
		prices[item.ID] = item.Price
	}
	revenue := make(map[int]int, len(CustomerSeeds))
	for _, c := range CustomerSeeds {
		revenue[c.ID] = 0
	}
	for _, sale := range SaleSeeds {
		revenue[sale.CustomerID] += prices[sale.ItemID]
	}
	return revenue
}

// ExpectedPurchaseCounts derives purchase frequency per item from the
// seed slices.
func ExpectedPurchaseCounts() map[int]int {
	counts := make(map[int]int, len(ItemSeeds))
	for _, item := range ItemSeeds {
		counts[item.ID] = 0
	}
	for _, sale := range SaleSeeds {
		counts[sale.ItemID]++
	}
	return counts
}

// Shop returns the many-to-many customers/items/sales dataset.
//
// The items table is created without a price column; the price is added
// by a later step and then made required, reproducing the lesson's
// ALTER TABLE sequence.
func Shop() Dataset {
	customers := schema.Table{
		Name: "customers",
		Columns: []schema.Column{
			{Name: "id", SQLType: "serial", NotNull: true},
			{Name: "name", SQLType: "text", NotNull: true},
			{Name: "loyalty_member", SQLType: "integer", NotNull: true, Default: "0"},
			{Name: "postal_code", SQLType: "text"},
			{Name: "date_of_birth", SQLType: "date"},
		},
		PrimaryKey: &schema.PrimaryKey{Column: "id"},
		Checks:     []schema.Check{{Name: "customers_loyalty_flag", Expression: "loyalty_member IN (0, 1)"}},
	}

	items := schema.Table{
		Name: "items",
		Columns: []schema.Column{
			{Name: "id", SQLType: "serial", NotNull: true},
			{Name: "name", SQLType: "text", NotNull: true},
		},
		PrimaryKey: &schema.PrimaryKey{Column: "id"},
	}

	sales := schema.Table{
		Name: "sales",
		Columns: []schema.Column{
			{Name: "id", SQLType: "serial", NotNull: true},
			{Name: "customer_id", SQLType: "integer", NotNull: true},
			{Name: "item_id", SQLType: "integer", NotNull: true},
		},
		PrimaryKey: &schema.PrimaryKey{Column: "id"},
		ForeignKeys: []schema.ForeignKey{
			{Column: "customer_id", RefTable: "customers", RefColumn: "id"},
			{Column: "item_id", RefTable: "items", RefColumn: "id"},
		},
	}

	itemPopularity := schema.View{
		Name: "item_popularity",
		Query: `SELECT i.id AS item_id, i.name AS item_name, COUNT(s.id) AS purchases
FROM items i
LEFT JOIN sales s ON s.item_id = i.id
GROUP BY i.id, i.name`,
	}

	customerRevenue := schema.View{
		Name: "customer_revenue",
		Query: `SELECT c.id AS customer_id, c.name AS customer_name, COALESCE(SUM(i.price), 0) AS revenue
FROM customers c
LEFT JOIN sales s ON s.customer_id = c.id
LEFT JOIN items i ON i.id = s.item_id
GROUP BY c.id, c.name`,
	}

	return Dataset{
		Name:   "shop",
		Tables: []schema.Table{customers, items, sales},
		Views:  []schema.View{itemPopularity, customerRevenue},
		extras: []Step{
			{Name: "shop_add_items_price", SQL: schema.AddColumnSQL("items", schema.Column{Name: "price", SQLType: "integer"})},
			{Name: "shop_items_price_not_null", SQL: schema.SetNotNullSQL("items", "price")},
			{Name: "shop_items_price_nonnegative", SQL: schema.AddCheckSQL("items", schema.Check{Name: "items_price_nonnegative", Expression: "price >= 0"})},
		},
	}
}
