package fulfillment

// ItemRef is anything that carries a catalog product id
type ItemRef interface {
	ItemID() int64
}

// Partition is the result of splitting a cart by category. Groups keep the
// relative order of the submitted items. Items whose id maps to no category
// are collected in Dropped and take no part in any sub-order.
type Partition[T ItemRef] struct {
	Groups  map[Category][]T
	Dropped []T
}

// Split groups items by category
func Split[T ItemRef](items []T) *Partition[T] {
	p := &Partition[T]{Groups: make(map[Category][]T)}
	for _, it := range items {
		cat, ok := Classify(it.ItemID())
		if !ok {
			p.Dropped = append(p.Dropped, it)
			continue
		}
		p.Groups[cat] = append(p.Groups[cat], it)
	}
	return p
}

// Categories returns the categories present, in lexicographic order
func (p *Partition[T]) Categories() []Category {
	cats := make([]Category, 0, len(p.Groups))
	for c := range p.Groups {
		cats = append(cats, c)
	}
	SortCategories(cats)
	return cats
}

// Len returns the number of non-empty groups
func (p *Partition[T]) Len() int {
	return len(p.Groups)
}

// OrderCategory returns the category of the first item. It is only
// meaningful for single-category carts.
func OrderCategory[T ItemRef](items []T) Category {
	if len(items) == 0 {
		return CategoryNone
	}
	cat, _ := Classify(items[0].ItemID())
	return cat
}

// IsSingleCategory reports whether every item maps to the same known category
func IsSingleCategory[T ItemRef](items []T) bool {
	if len(items) == 0 {
		return false
	}
	first, ok := Classify(items[0].ItemID())
	if !ok {
		return false
	}
	for _, it := range items[1:] {
		if cat, _ := Classify(it.ItemID()); cat != first {
			return false
		}
	}
	return true
}
