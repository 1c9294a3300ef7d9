package fulfillment

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_TwoCategories(t *testing.T) {
	cart := []CartItem{{ProductID: 10001, Qty: 2}, {ProductID: 60001, Qty: 1}}

	p := Split(cart)

	require.Equal(t, 2, p.Len())
	assert.Equal(t, []Category{CategoryChemicals, CategoryCleaning}, p.Categories())
	assert.Equal(t, []CartItem{{ProductID: 10001, Qty: 2}}, p.Groups[CategoryCleaning])
	assert.Equal(t, []CartItem{{ProductID: 60001, Qty: 1}}, p.Groups[CategoryChemicals])
	assert.Empty(t, p.Dropped)
}

func TestSplit_DropsOutOfRangeItems(t *testing.T) {
	cart := []CartItem{{ProductID: 5, Qty: 1}, {ProductID: 10001, Qty: 1}, {ProductID: 90000, Qty: 3}}

	p := Split(cart)

	assert.Equal(t, 1, p.Len())
	assert.Equal(t, []CartItem{{ProductID: 5, Qty: 1}, {ProductID: 90000, Qty: 3}}, p.Dropped)
}

// Every known-category item lands in exactly one group, in submission order.
func TestSplit_PartitionProperty(t *testing.T) {
	faker := gofakeit.New(42)

	for round := 0; round < 50; round++ {
		n := faker.IntRange(1, 40)
		cart := make([]CartItem, n)
		for i := range cart {
			cart[i] = CartItem{
				ProductID: int64(faker.IntRange(0, 89999)),
				Qty:       int64(faker.IntRange(1, 1000)),
			}
		}

		p := Split(cart)

		var known []CartItem
		categories := map[Category]bool{}
		for _, it := range cart {
			if cat, ok := Classify(it.ProductID); ok {
				known = append(known, it)
				categories[cat] = true
			}
		}
		assert.Equal(t, len(categories), p.Len())

		total := 0
		for cat, group := range p.Groups {
			total += len(group)
			var expected []CartItem
			for _, it := range cart {
				if c, _ := Classify(it.ProductID); c == cat {
					expected = append(expected, it)
				}
			}
			assert.Equal(t, expected, group)
		}
		assert.Equal(t, len(known), total)
		assert.Equal(t, len(cart)-len(known), len(p.Dropped))
	}
}

func TestOrderCategory(t *testing.T) {
	assert.Equal(t, CategoryNone, OrderCategory([]CartItem{}))
	assert.Equal(t, CategoryFragrances, OrderCategory([]CartItem{{ProductID: 70001}, {ProductID: 10001}}))
}

func TestIsSingleCategory(t *testing.T) {
	assert.True(t, IsSingleCategory([]CartItem{{ProductID: 10001}, {ProductID: 19999}}))
	assert.False(t, IsSingleCategory([]CartItem{{ProductID: 10001}, {ProductID: 20000}}))
	assert.False(t, IsSingleCategory([]CartItem{{ProductID: 1}}))
	assert.False(t, IsSingleCategory([]CartItem{}))
}
