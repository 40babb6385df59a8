package catalog

// Default builds the registry with the built-in VarsaGel category table.
func Default() (*Registry, error) {
	return NewRegistry(defaultCategories(), defaultCarBrands())
}

// MustDefault is Default for process start-up and tests.
func MustDefault() *Registry {
	r, err := Default()
	if err != nil {
		panic(err)
	}
	return r
}

func opts(pairs ...string) []Option {
	out := make([]Option, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Option{Value: pairs[i], Label: pairs[i+1]})
	}
	return out
}

var (
	conditionOptions = opts("new", "Sıfır", "used", "İkinci El")
	roomOptions      = opts("1+0", "1+0", "1+1", "1+1", "2+1", "2+1", "3+1", "3+1", "4+1", "4+1", "5+1", "5+1 ve üzeri")
	heatingOptions   = opts("natural-gas", "Doğalgaz (Kombi)", "central", "Merkezi", "floor", "Yerden Isıtma", "stove", "Soba", "none", "Yok")
)

func defaultCategories() []Category {
	return []Category{
		{
			ID: "automotive", Name: "Vasıta", Icon: "car",
			SubCategories: []SubCategory{
				{
					ID: "cars", Name: "Otomobil", Icon: "car",
					Fields: []FieldDefinition{
						{ID: "brand", Label: "Marka", Type: FieldCarBrand, Required: true, Group: "car"},
						{ID: "series", Label: "Seri", Type: FieldCarSeries, Required: true, Group: "car"},
						{ID: "year", Label: "Model Yılı", Type: FieldNumber, Required: true, Min: ptr(1950), Max: ptr(2030)},
						{ID: "fuel", Label: "Yakıt", Type: FieldSelect, Options: opts("gasoline", "Benzin", "diesel", "Dizel", "lpg", "LPG", "hybrid", "Hibrit", "electric", "Elektrik")},
						{ID: "gear", Label: "Vites", Type: FieldRadio, Options: opts("manual", "Manuel", "automatic", "Otomatik", "semi-automatic", "Yarı Otomatik")},
						{ID: "km", Label: "Kilometre", Type: FieldNumber, Min: ptr(0), Max: ptr(2000000), Unit: "km"},
						{ID: "color", Label: "Renk", Type: FieldText},
						{ID: "damageFree", Label: "Hasar Kaydı Yok", Type: FieldCheckbox},
					},
				},
				{
					ID: "motorcycles", Name: "Motosiklet", Icon: "bike",
					Fields: []FieldDefinition{
						{ID: "brand", Label: "Marka", Type: FieldText, Required: true},
						{ID: "model", Label: "Model", Type: FieldText},
						{ID: "year", Label: "Model Yılı", Type: FieldNumber, Min: ptr(1950), Max: ptr(2030)},
						{ID: "engine", Label: "Motor Hacmi", Type: FieldNumber, Min: ptr(50), Max: ptr(3000), Unit: "cc"},
					},
				},
				{
					ID: "commercial", Name: "Ticari Araç", Icon: "truck",
					Fields: []FieldDefinition{
						{ID: "type", Label: "Araç Tipi", Type: FieldSelect, Required: true, Options: opts("van", "Panelvan", "minibus", "Minibüs", "pickup", "Kamyonet", "truck", "Kamyon")},
						{ID: "brand", Label: "Marka", Type: FieldText},
						{ID: "year", Label: "Model Yılı", Type: FieldNumber, Min: ptr(1950), Max: ptr(2030)},
						{ID: "capacity", Label: "Taşıma Kapasitesi", Type: FieldNumber, Min: ptr(0), Unit: "kg"},
					},
				},
			},
		},
		{
			ID: "real-estate", Name: "Emlak", Icon: "home",
			SubCategories: []SubCategory{
				{
					ID: "apartment-sale", Name: "Satılık Daire", Icon: "building",
					Fields: []FieldDefinition{
						{ID: "rooms", Label: "Oda Sayısı", Type: FieldSelect, Required: true, Options: roomOptions},
						{ID: "area", Label: "Metrekare", Type: FieldNumber, Min: ptr(10), Max: ptr(10000), Unit: "m²"},
						{ID: "floor", Label: "Bulunduğu Kat", Type: FieldNumber, Min: ptr(-5), Max: ptr(100)},
						{ID: "heating", Label: "Isıtma", Type: FieldSelect, Options: heatingOptions},
						{ID: "furnished", Label: "Eşyalı", Type: FieldCheckbox},
					},
				},
				{
					ID: "apartment-rent", Name: "Kiralık Daire", Icon: "key",
					Fields: []FieldDefinition{
						{ID: "rooms", Label: "Oda Sayısı", Type: FieldSelect, Required: true, Options: roomOptions},
						{ID: "area", Label: "Metrekare", Type: FieldNumber, Min: ptr(10), Max: ptr(10000), Unit: "m²"},
						{ID: "heating", Label: "Isıtma", Type: FieldSelect, Options: heatingOptions},
						{ID: "furnished", Label: "Eşyalı", Type: FieldCheckbox},
						{ID: "deposit", Label: "Depozito", Type: FieldNumber, Min: ptr(0), Unit: "TL"},
					},
				},
				{
					ID: "land", Name: "Arsa", Icon: "map",
					Fields: []FieldDefinition{
						{ID: "area", Label: "Metrekare", Type: FieldNumber, Required: true, Min: ptr(1), Unit: "m²"},
						{ID: "zoning", Label: "İmar Durumu", Type: FieldSelect, Options: opts("residential", "Konut", "commercial", "Ticari", "field", "Tarla", "mixed", "Karma")},
					},
				},
			},
		},
		{
			ID: "electronics", Name: "Elektronik", Icon: "cpu",
			SubCategories: []SubCategory{
				{
					ID: "phones", Name: "Cep Telefonu", Icon: "smartphone",
					Fields: []FieldDefinition{
						{ID: "brand", Label: "Marka", Type: FieldSelect, Required: true, Options: opts("apple", "Apple", "samsung", "Samsung", "xiaomi", "Xiaomi", "huawei", "Huawei", "other", "Diğer")},
						{ID: "model", Label: "Model", Type: FieldText},
						{ID: "storage", Label: "Dahili Hafıza", Type: FieldSelect, Options: opts("64", "64 GB", "128", "128 GB", "256", "256 GB", "512", "512 GB", "1024", "1 TB")},
						{ID: "condition", Label: "Durumu", Type: FieldRadio, Options: conditionOptions},
					},
				},
				{
					ID: "computers", Name: "Bilgisayar", Icon: "monitor",
					Fields: []FieldDefinition{
						{ID: "type", Label: "Tür", Type: FieldSelect, Required: true, Options: opts("laptop", "Dizüstü", "desktop", "Masaüstü", "tablet", "Tablet")},
						{ID: "brand", Label: "Marka", Type: FieldText},
						{ID: "ram", Label: "RAM", Type: FieldSelect, Options: opts("8", "8 GB", "16", "16 GB", "32", "32 GB", "64", "64 GB")},
						{ID: "processor", Label: "İşlemci", Type: FieldText},
						{ID: "condition", Label: "Durumu", Type: FieldRadio, Options: conditionOptions},
					},
				},
				{
					ID: "tv", Name: "Televizyon", Icon: "tv",
					Fields: []FieldDefinition{
						{ID: "screenSize", Label: "Ekran Boyutu", Type: FieldNumber, Min: ptr(10), Max: ptr(120), Unit: "inç"},
						{ID: "smart", Label: "Smart TV", Type: FieldCheckbox},
						{ID: "brand", Label: "Marka", Type: FieldText},
					},
				},
			},
		},
		{
			ID: "home-garden", Name: "Ev & Bahçe", Icon: "sofa",
			SubCategories: []SubCategory{
				{
					ID: "furniture", Name: "Mobilya", Icon: "sofa",
					Fields: []FieldDefinition{
						{ID: "material", Label: "Malzeme", Type: FieldText},
						{ID: "condition", Label: "Durumu", Type: FieldRadio, Options: conditionOptions},
						{ID: "details", Label: "Ek Bilgiler", Type: FieldTextarea},
					},
				},
				{
					ID: "appliances", Name: "Beyaz Eşya", Icon: "refrigerator",
					Fields: []FieldDefinition{
						{ID: "type", Label: "Ürün Tipi", Type: FieldSelect, Required: true, Options: opts("fridge", "Buzdolabı", "washer", "Çamaşır Makinesi", "dishwasher", "Bulaşık Makinesi", "oven", "Fırın")},
						{ID: "energyClass", Label: "Enerji Sınıfı", Type: FieldSelect, Options: opts("A+++", "A+++", "A++", "A++", "A+", "A+", "A", "A", "B", "B")},
						{ID: "condition", Label: "Durumu", Type: FieldRadio, Options: conditionOptions},
					},
				},
			},
		},
		{
			ID: "fashion", Name: "Moda", Icon: "shirt",
			SubCategories: []SubCategory{
				{
					ID: "clothing", Name: "Giyim", Icon: "shirt",
					Fields: []FieldDefinition{
						{ID: "gender", Label: "Cinsiyet", Type: FieldRadio, Options: opts("female", "Kadın", "male", "Erkek", "unisex", "Unisex")},
						{ID: "size", Label: "Beden", Type: FieldSelect, Options: opts("xs", "XS", "s", "S", "m", "M", "l", "L", "xl", "XL")},
						{ID: "notes", Label: "Notlar", Type: FieldTextarea},
					},
				},
			},
		},
	}
}

func defaultCarBrands() []CarBrand {
	return []CarBrand{
		{Value: "toyota", Label: "Toyota", Series: opts("corolla", "Corolla", "camry", "Camry", "c-hr", "C-HR", "yaris", "Yaris")},
		{Value: "volkswagen", Label: "Volkswagen", Series: opts("golf", "Golf", "passat", "Passat", "polo", "Polo", "tiguan", "Tiguan")},
		{Value: "renault", Label: "Renault", Series: opts("clio", "Clio", "megane", "Megane", "taliant", "Taliant")},
		{Value: "fiat", Label: "Fiat", Series: opts("egea", "Egea", "doblo", "Doblo", "500", "500")},
		{Value: "ford", Label: "Ford", Series: opts("focus", "Focus", "fiesta", "Fiesta", "kuga", "Kuga")},
		{Value: "bmw", Label: "BMW", Series: opts("3-series", "3 Serisi", "5-series", "5 Serisi", "x5", "X5")},
	}
}
