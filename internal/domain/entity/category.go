package entity

// Advisory category values. The store does not enforce them.
const (
	CategoryScience    = "Ciencia"
	CategoryArt        = "Arte"
	CategoryPolitics   = "Política"
	CategorySports     = "Deportes"
	CategoryTechnology = "Tecnología"
	CategorySpace      = "Espacio"
	CategoryHistory    = "Historia"
)

// Categories lists the advisory category set in prompt order.
var Categories = []string{
	CategoryScience,
	CategoryArt,
	CategoryPolitics,
	CategorySports,
	CategoryTechnology,
	CategorySpace,
	CategoryHistory,
}

// KnownCategory reports whether c belongs to the advisory set.
func KnownCategory(c string) bool {
	for _, known := range Categories {
		if known == c {
			return true
		}
	}
	return false
}
