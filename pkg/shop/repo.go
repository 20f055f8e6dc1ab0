// Package shop queries the customers/items/sales dataset.
package shop

import (
	"context"
	"fmt"

	"github.com/barnardcsc/workshopdb/pkg/dataset"
	"github.com/barnardcsc/workshopdb/pkg/pgdb"
)

// ItemPopularity is the purchase count of one item. With no quantity
// column, popularity is the number of sales rows naming the item.
type ItemPopularity struct {
	ItemID    int
	ItemName  string
	Purchases int
}

// CustomerRevenue is the revenue one customer generated, in cents.
type CustomerRevenue struct {
	CustomerID   int
	CustomerName string
	Revenue      int
}

// Repo runs the shop queries.
type Repo struct {
	db *pgdb.DB
}

// NewRepo creates a shop repository.
func NewRepo(db *pgdb.DB) *Repo {
	return &Repo{db: db}
}

// AddCustomer inserts a customer and returns its generated id.
// PostalCode and dateOfBirth may be nil.
func (r *Repo) AddCustomer(ctx context.Context, name string, loyaltyMember bool, postalCode, dateOfBirth *string) (int, error) {
	flag := 0
	if loyaltyMember {
		flag = 1
	}
	var id int
	err := r.db.QueryRow(ctx,
		`INSERT INTO customers (name, loyalty_member, postal_code, date_of_birth)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		name, flag, postalCode, dateOfBirth,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert customer %s: %w", name, pgdb.MapError(err))
	}
	return id, nil
}

// AddItem inserts an item with its price in cents. Negative prices fail
// with pgdb.ErrCheckViolation.
func (r *Repo) AddItem(ctx context.Context, name string, price int) (int, error) {
	var id int
	err := r.db.QueryRow(ctx,
		"INSERT INTO items (name, price) VALUES ($1, $2) RETURNING id",
		name, price,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert item %s: %w", name, pgdb.MapError(err))
	}
	return id, nil
}

// RecordSale records one purchase event. Repeated purchases are repeated
// calls. Unknown customer or item ids fail with pgdb.ErrForeignKey.
func (r *Repo) RecordSale(ctx context.Context, customerID, itemID int) (int, error) {
	var id int
	err := r.db.QueryRow(ctx,
		"INSERT INTO sales (customer_id, item_id) VALUES ($1, $2) RETURNING id",
		customerID, itemID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("record sale: %w", pgdb.MapError(err))
	}
	return id, nil
}

// SetLoyaltyMember flips a customer's loyalty flag.
func (r *Repo) SetLoyaltyMember(ctx context.Context, customerID int, member bool) error {
	flag := 0
	if member {
		flag = 1
	}
	affected, err := r.db.Exec(ctx,
		"UPDATE customers SET loyalty_member = $1 WHERE id = $2", flag, customerID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("customer %d not found", customerID)
	}
	return nil
}

// PopularItems counts purchases per item, most purchased first, ties
// broken by item name.
func (r *Repo) PopularItems(ctx context.Context) ([]ItemPopularity, error) {
	return r.popularity(ctx, `
		SELECT i.id AS item_id, i.name AS item_name, COUNT(s.id) AS purchases
		FROM items i
		LEFT JOIN sales s ON s.item_id = i.id
		GROUP BY i.id, i.name
		ORDER BY purchases DESC, item_name`)
}

// PopularItemsFromView reads the same report through the item_popularity
// view. Views are re-evaluated on every reference, so this must always
// agree with PopularItems.
func (r *Repo) PopularItemsFromView(ctx context.Context) ([]ItemPopularity, error) {
	return r.popularity(ctx, `
		SELECT item_id, item_name, purchases
		FROM item_popularity
		ORDER BY purchases DESC, item_name`)
}

// RevenuePerCustomer sums item prices over each customer's sales,
// ordered by customer id.
func (r *Repo) RevenuePerCustomer(ctx context.Context) ([]CustomerRevenue, error) {
	return r.revenue(ctx, `
		SELECT c.id AS customer_id, c.name AS customer_name, COALESCE(SUM(i.price), 0) AS revenue
		FROM customers c
		LEFT JOIN sales s ON s.customer_id = c.id
		LEFT JOIN items i ON i.id = s.item_id
		GROUP BY c.id, c.name
		ORDER BY customer_id`)
}

// RevenuePerCustomerFromView reads the revenue report through the
// customer_revenue view.
func (r *Repo) RevenuePerCustomerFromView(ctx context.Context) ([]CustomerRevenue, error) {
	return r.revenue(ctx, `
		SELECT customer_id, customer_name, revenue
		FROM customer_revenue
		ORDER BY customer_id`)
}

func (r *Repo) popularity(ctx context.Context, query string) ([]ItemPopularity, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var report []ItemPopularity
	for rows.Next() {
		var p ItemPopularity
		if err := rows.Scan(&p.ItemID, &p.ItemName, &p.Purchases); err != nil {
			return nil, fmt.Errorf("scan item popularity: %w", err)
		}
		report = append(report, p)
	}
	return report, rows.Err()
}

func (r *Repo) revenue(ctx context.Context, query string) ([]CustomerRevenue, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var report []CustomerRevenue
	for rows.Next() {
		var cr CustomerRevenue
		if err := rows.Scan(&cr.CustomerID, &cr.CustomerName, &cr.Revenue); err != nil {
			return nil, fmt.Errorf("scan customer revenue: %w", err)
		}
		report = append(report, cr)
	}
	return report, rows.Err()
}

// Seed inserts the lesson's customers, items and the ten sales with
// their canonical ids, then advances the id sequences. Seeding twice is
// a no-op.
func (r *Repo) Seed(ctx context.Context) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range dataset.CustomerSeeds {
		_, err := tx.Exec(ctx,
			`INSERT INTO customers (id, name, loyalty_member, postal_code, date_of_birth)
			 VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING`,
			c.ID, c.Name, c.LoyaltyMember, c.PostalCode, c.DateOfBirth,
		)
		if err != nil {
			return fmt.Errorf("seed customer %s: %w", c.Name, pgdb.MapError(err))
		}
	}

	for _, i := range dataset.ItemSeeds {
		_, err := tx.Exec(ctx,
			`INSERT INTO items (id, name, price) VALUES ($1, $2, $3)
			 ON CONFLICT (id) DO NOTHING`,
			i.ID, i.Name, i.Price,
		)
		if err != nil {
			return fmt.Errorf("seed item %s: %w", i.Name, pgdb.MapError(err))
		}
	}

	for _, s := range dataset.SaleSeeds {
		_, err := tx.Exec(ctx,
			`INSERT INTO sales (id, customer_id, item_id) VALUES ($1, $2, $3)
			 ON CONFLICT (id) DO NOTHING`,
			s.ID, s.CustomerID, s.ItemID,
		)
		if err != nil {
			return fmt.Errorf("seed sale %d: %w", s.ID, pgdb.MapError(err))
		}
	}

	for _, table := range []string{"customers", "items", "sales"} {
		_, err := tx.Exec(ctx, fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%s', 'id'), (SELECT MAX(id) FROM %s))", table, table))
		if err != nil {
			return fmt.Errorf("advance %s sequence: %w", table, err)
		}
	}

	return tx.Commit(ctx)
}
