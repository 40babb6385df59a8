package catalog

import "fmt"

// Registry is the immutable category schema table. Build it once with
// NewRegistry and share the pointer; nothing mutates it afterwards.
type Registry struct {
	categories []Category
	byID       map[string]int
	subIndex   map[string]map[string]int
	brands     []CarBrand
	brandIndex map[string]int
}

// NewRegistry validates the tables and builds the lookup indexes.
func NewRegistry(categories []Category, brands []CarBrand) (*Registry, error) {
	r := &Registry{
		categories: make([]Category, len(categories)),
		byID:       make(map[string]int, len(categories)),
		subIndex:   make(map[string]map[string]int, len(categories)),
		brands:     append([]CarBrand(nil), brands...),
		brandIndex: make(map[string]int, len(brands)),
	}
	for i, b := range r.brands {
		if _, dup := r.brandIndex[b.Value]; dup {
			return nil, fmt.Errorf("duplicate car brand %q", b.Value)
		}
		r.brandIndex[b.Value] = i
	}

	for ci, c := range categories {
		if c.ID == "" {
			return nil, fmt.Errorf("category at position %d has no id", ci)
		}
		if _, dup := r.byID[c.ID]; dup {
			return nil, fmt.Errorf("duplicate category %q", c.ID)
		}
		cp := c
		cp.SubCategories = make([]SubCategory, len(c.SubCategories))
		subs := make(map[string]int, len(c.SubCategories))
		for si, s := range c.SubCategories {
			if _, dup := subs[s.ID]; dup {
				return nil, fmt.Errorf("category %q: duplicate subcategory %q", c.ID, s.ID)
			}
			built, err := buildSubCategory(s)
			if err != nil {
				return nil, fmt.Errorf("category %q: %w", c.ID, err)
			}
			subs[s.ID] = si
			cp.SubCategories[si] = built
		}
		r.categories[ci] = cp
		r.byID[c.ID] = ci
		r.subIndex[c.ID] = subs
	}
	return r, nil
}

func buildSubCategory(s SubCategory) (SubCategory, error) {
	s.Fields = append([]FieldDefinition(nil), s.Fields...)
	s.fieldIndex = make(map[string]int, len(s.Fields))
	brandGroups := map[string]bool{}
	for i, f := range s.Fields {
		if f.ID == "" {
			return s, fmt.Errorf("subcategory %q: field at position %d has no id", s.ID, i)
		}
		if _, dup := s.fieldIndex[f.ID]; dup {
			return s, fmt.Errorf("subcategory %q: duplicate field %q", s.ID, f.ID)
		}
		switch f.Type {
		case FieldSelect, FieldRadio:
			if len(f.Options) == 0 {
				return s, fmt.Errorf("subcategory %q: field %q needs options", s.ID, f.ID)
			}
		case FieldCarBrand:
			if brandGroups[f.Group] {
				return s, fmt.Errorf("subcategory %q: group %q has two brand fields", s.ID, f.Group)
			}
			brandGroups[f.Group] = true
		case FieldText, FieldNumber, FieldTextarea, FieldCheckbox, FieldCarSeries:
		default:
			return s, fmt.Errorf("subcategory %q: field %q has unknown type %q", s.ID, f.ID, f.Type)
		}
		s.fieldIndex[f.ID] = i
	}
	for _, f := range s.Fields {
		if f.Type == FieldCarSeries && !brandGroups[f.Group] {
			return s, fmt.Errorf("subcategory %q: series field %q has no brand field in group %q", s.ID, f.ID, f.Group)
		}
	}
	return s, nil
}

func (r *Registry) GetAllCategories() []Category {
	return r.categories
}

func (r *Registry) GetCategoryByID(id string) (*Category, bool) {
	i, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return &r.categories[i], true
}

func (r *Registry) GetSubCategoryByID(categoryID, subCategoryID string) (*SubCategory, bool) {
	ci, ok := r.byID[categoryID]
	if !ok {
		return nil, false
	}
	si, ok := r.subIndex[categoryID][subCategoryID]
	if !ok {
		return nil, false
	}
	return &r.categories[ci].SubCategories[si], true
}

// CarBrands returns the brand table used by car-selector fields.
func (r *Registry) CarBrands() []CarBrand {
	return r.brands
}

func (r *Registry) carBrand(value string) (CarBrand, bool) {
	i, ok := r.brandIndex[value]
	if !ok {
		return CarBrand{}, false
	}
	return r.brands[i], true
}
