package fulfillment

import "sort"

// Category is a production department. Every category owns one contiguous
// block of 10,000 product ids.
type Category string

const (
	CategoryNone       Category = ""
	CategoryCleaning   Category = "cleaning"
	CategoryPlasticPE  Category = "plasticpe"
	CategoryPlasticPET Category = "plasticpet"
	CategoryPlasticPP  Category = "plasticpp"
	CategoryPlasticTD  Category = "plastictd"
	CategoryChemicals  Category = "chemicals"
	CategoryFragrances Category = "fragrances"
)

const categoryBlockSize int64 = 10000

var categoryBlocks = map[int64]Category{
	1: CategoryCleaning,
	2: CategoryPlasticPE,
	3: CategoryPlasticPET,
	4: CategoryPlasticPP,
	5: CategoryPlasticTD,
	6: CategoryChemicals,
	7: CategoryFragrances,
}

type categoryInfo struct {
	emoji  string
	nameRU string
	nameUZ string
}

var categoryInfos = map[Category]categoryInfo{
	CategoryCleaning:   {"🧴", "Моющие средства", "Yuvish vositalari"},
	CategoryPlasticPE:  {"🔵", "Вдувные ПЭ", "PE puflama idishlar"},
	CategoryPlasticPET: {"♻️", "ПЭТ", "PET"},
	CategoryPlasticPP:  {"🟣", "ПП", "PP"},
	CategoryPlasticTD:  {"💧", "Распылители & Дозаторы", "Purkagichlar & Dozatorlar"},
	CategoryChemicals:  {"🧪", "Химикаты", "Kimyoviy moddalar"},
	CategoryFragrances: {"🌸", "Отдушки", "Xushbo'y moddalar"},
}

// Classify maps a product id to its category. The second result is false
// when the id falls outside every known range.
func Classify(productID int64) (Category, bool) {
	if productID < categoryBlockSize {
		return CategoryNone, false
	}
	cat, ok := categoryBlocks[productID/categoryBlockSize]
	if !ok {
		return CategoryNone, false
	}
	return cat, true
}

// AllCategories returns every known category in lexicographic order
func AllCategories() []Category {
	cats := make([]Category, 0, len(categoryInfos))
	for c := range categoryInfos {
		cats = append(cats, c)
	}
	SortCategories(cats)
	return cats
}

// SortCategories orders categories lexicographically by key
func SortCategories(cats []Category) {
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
}

// ParseCategory validates a category key
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	_, ok := categoryInfos[c]
	return c, ok
}

// IsValid reports whether the category is one of the known departments
func (c Category) IsValid() bool {
	_, ok := categoryInfos[c]
	return ok
}

// String returns the category key
func (c Category) String() string {
	return string(c)
}

// Emoji returns the marker used in chat messages
func (c Category) Emoji() string {
	if info, ok := categoryInfos[c]; ok {
		return info.emoji
	}
	return "📦"
}

// Name returns the department display name
func (c Category) Name(locale Locale) string {
	info, ok := categoryInfos[c]
	if !ok {
		if locale == LocaleUZ {
			return "Noma'lum kategoriya"
		}
		return "Неизвестная категория"
	}
	if locale == LocaleUZ {
		return info.nameUZ
	}
	return info.nameRU
}
