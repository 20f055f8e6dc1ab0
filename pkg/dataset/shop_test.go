package dataset

import "testing"

// The shop seed data is the lesson's canonical example; the derived
// aggregates below are the numbers every revenue and popularity report
// must reproduce.

func TestExpectedRevenue(t *testing.T) {
	want := map[int]int{
		1: 8300, // 3500 + 3500 + 1300
		2: 7900, // 2200 + 2200 + 3500
		3: 6100, // 2200 + 1300 + 1300 + 1300
	}

	got := ExpectedRevenue()
	if len(got) != len(want) {
		t.Fatalf("Expected revenue for %d customers, got %d", len(want), len(got))
	}
	for customerID, revenue := range want {
		if got[customerID] != revenue {
			t.Errorf("Customer %d: expected revenue %d, got %d", customerID, revenue, got[customerID])
		}
	}
}

func TestExpectedPurchaseCounts(t *testing.T) {
	want := map[int]int{1: 3, 2: 3, 3: 4}

	got := ExpectedPurchaseCounts()
	for itemID, count := range want {
		if got[itemID] != count {
			t.Errorf("Item %d: expected %d purchases, got %d", itemID, count, got[itemID])
		}
	}
}

func TestSeedReferentialIntegrity(t *testing.T) {
	customers := make(map[int]bool)
	for _, c := range CustomerSeeds {
		customers[c.ID] = true
	}
	items := make(map[int]bool)
	for _, i := range ItemSeeds {
		items[i.ID] = true
	}

	for _, sale := range SaleSeeds {
		if !customers[sale.CustomerID] {
			t.Errorf("Sale %d references unknown customer %d", sale.ID, sale.CustomerID)
		}
		if !items[sale.ItemID] {
			t.Errorf("Sale %d references unknown item %d", sale.ID, sale.ItemID)
		}
	}

	for _, item := range ItemSeeds {
		if item.Price < 0 {
			t.Errorf("Item %d has negative price %d", item.ID, item.Price)
		}
	}
}

func TestGeographySeedUniqueness(t *testing.T) {
	names := make(map[string]bool)
	abbrs := make(map[string]bool)
	for _, s := range StateSeeds {
		if names[s.Name] {
			t.Errorf("Duplicate state name %s", s.Name)
		}
		if abbrs[s.Abbreviation] {
			t.Errorf("Duplicate state abbreviation %s", s.Abbreviation)
		}
		names[s.Name] = true
		abbrs[s.Abbreviation] = true
	}

	states := make(map[int]bool)
	for _, s := range StateSeeds {
		states[s.ID] = true
	}
	for _, c := range CitySeeds {
		if !states[c.StateID] {
			t.Errorf("City %s references unknown state %d", c.Name, c.StateID)
		}
	}
}
