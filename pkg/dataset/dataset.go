// Package dataset declares the three example datasets used by the
// workshop: the states/cities geography, the customers/items/sales shop,
// and the NYC motor-vehicle collisions.
package dataset

import (
	"fmt"

	"github.com/barnardcsc/workshopdb/pkg/schema"
)

// Step is one named, ordered DDL statement of a dataset's provisioning
// sequence.
type Step struct {
	Name string
	SQL  string
}

// Dataset groups the tables, views and ordered provisioning steps of one
// example dataset.
type Dataset struct {
	Name   string
	Tables []schema.Table
	Views  []schema.View

	// extras are ALTER statements that run after the CREATE TABLE steps
	// but before the views; the shop dataset uses them to add the price
	// column the way the workshop does (added later, then made required).
	extras []Step
}

// Steps returns the full provisioning sequence: tables in declaration
// order, then dataset-specific ALTERs, then views.
func (d Dataset) Steps() []Step {
	var steps []Step
	for _, t := range d.Tables {
		steps = append(steps, Step{
			Name: fmt.Sprintf("%s_create_%s", d.Name, t.Name),
			SQL:  t.CreateSQL(),
		})
	}
	steps = append(steps, d.extras...)
	for _, v := range d.Views {
		steps = append(steps, Step{
			Name: fmt.Sprintf("%s_create_view_%s", d.Name, v.Name),
			SQL:  v.CreateSQL(),
		})
	}
	return steps
}

// DropSQL returns the statements that tear the dataset down: views first,
// then tables in reverse declaration order so junction and child tables
// drop before the tables they reference.
func (d Dataset) DropSQL() []string {
	var stmts []string
	for _, v := range d.Views {
		stmts = append(stmts, v.DropSQL())
	}
	for i := len(d.Tables) - 1; i >= 0; i-- {
		stmts = append(stmts, d.Tables[i].DropSQL())
	}
	return stmts
}

// All returns every dataset in provisioning order.
func All() []Dataset {
	return []Dataset{Geography(), Shop(), Collisions()}
}

// ByName returns the named dataset.
func ByName(name string) (Dataset, error) {
	for _, d := range All() {
		if d.Name == name {
			return d, nil
		}
	}
	return Dataset{}, fmt.Errorf("unknown dataset %q", name)
}
