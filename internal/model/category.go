package model

import (
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// BusinessCategory is one of the supported business kinds.
type BusinessCategory string

const (
	CategoryCafe              BusinessCategory = "CAFE"
	CategoryBar               BusinessCategory = "BAR"
	CategoryRestaurant        BusinessCategory = "RESTAURANT"
	CategoryKiosk             BusinessCategory = "KIOSK"
	CategoryGym               BusinessCategory = "GYM"
	CategoryHairSalon         BusinessCategory = "HAIR_SALON"
	CategoryPharmacy          BusinessCategory = "PHARMACY"
	CategoryPetShop           BusinessCategory = "PET_SHOP"
	CategoryLaundry           BusinessCategory = "LAUNDRY"
	CategoryElectronicsRepair BusinessCategory = "ELECTRONICS_REPAIR"
	CategoryBeautySalon       BusinessCategory = "BEAUTY_SALON"
	CategoryDentist           BusinessCategory = "DENTIST"
	CategorySupermarket       BusinessCategory = "SUPERMARKET"
	CategoryClothing          BusinessCategory = "CLOTHING"
	CategoryBookstore         BusinessCategory = "BOOKSTORE"
	CategoryCoWorking         BusinessCategory = "CO_WORKING"
)

// CategoryProfile describes how a category maps onto provider place types.
type CategoryProfile struct {
	Types   []string `yaml:"types" json:"types"`
	Keyword string   `yaml:"keyword,omitempty" json:"keyword,omitempty"`
	IsFood  bool     `yaml:"food" json:"food"`
}

// Catalog maps every supported category to its profile.
type Catalog map[BusinessCategory]CategoryProfile

// DefaultCatalog returns the built-in category catalog.
func DefaultCatalog() Catalog {
	return Catalog{
		CategoryCafe:              {Types: []string{"cafe", "bakery", "meal_takeaway"}, Keyword: "cafeteria", IsFood: true},
		CategoryBar:               {Types: []string{"bar"}, IsFood: true},
		CategoryRestaurant:        {Types: []string{"restaurant"}, IsFood: true},
		CategoryKiosk:             {Types: []string{"convenience_store"}, Keyword: "kiosco"},
		CategoryGym:               {Types: []string{"gym"}},
		CategoryHairSalon:         {Types: []string{"hair_salon"}},
		CategoryPharmacy:          {Types: []string{"pharmacy"}},
		CategoryPetShop:           {Types: []string{"pet_store"}},
		CategoryLaundry:           {Types: []string{"laundry"}},
		CategoryElectronicsRepair: {Types: []string{"electronics_store"}, Keyword: "repair service"},
		CategoryBeautySalon:       {Types: []string{"beauty_salon"}},
		CategoryDentist:           {Types: []string{"dentist"}},
		CategorySupermarket:       {Types: []string{"supermarket"}},
		CategoryClothing:          {Types: []string{"clothing_store"}},
		CategoryBookstore:         {Types: []string{"book_store"}},
		CategoryCoWorking:         {Types: []string{"establishment"}, Keyword: "coworking"},
	}
}

// Profile returns the profile for c.
func (c Catalog) Profile(cat BusinessCategory) (CategoryProfile, bool) {
	p, ok := c[cat]
	return p, ok
}

// Categories returns the catalog keys in sorted order.
func (c Catalog) Categories() []BusinessCategory {
	out := make([]BusinessCategory, 0, len(c))
	for k := range c {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// LoadCatalog reads per-category overrides from a YAML file and applies them
// on top of the built-in catalog. The file has a top-level "categories" map;
// keys must be known categories and each override must declare at least one
// type or a keyword.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "model: read category file %s", path)
	}

	var wrapper struct {
		Categories map[string]CategoryProfile `yaml:"categories"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "model: parse category file")
	}

	cat := DefaultCatalog()
	for key, p := range wrapper.Categories {
		bc := BusinessCategory(key)
		if _, ok := cat[bc]; !ok {
			return nil, eris.Errorf("model: unknown category %q in %s", key, path)
		}
		if len(p.Types) == 0 && p.Keyword == "" {
			return nil, eris.Errorf("model: category %q needs types or a keyword", key)
		}
		cat[bc] = p
	}
	return cat, nil
}
