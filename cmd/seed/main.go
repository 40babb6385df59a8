package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/varsagel/varsagelcom-sub000/internal/catalog"
	"github.com/varsagel/varsagelcom-sub000/internal/config"
	"github.com/varsagel/varsagelcom-sub000/internal/db"
	"github.com/varsagel/varsagelcom-sub000/internal/events"
	"github.com/varsagel/varsagelcom-sub000/internal/logger"
	"github.com/varsagel/varsagelcom-sub000/internal/mailer"
	"github.com/varsagel/varsagelcom-sub000/internal/metrics"
	"github.com/varsagel/varsagelcom-sub000/internal/model"
	"github.com/varsagel/varsagelcom-sub000/internal/server"
	"github.com/varsagel/varsagelcom-sub000/internal/service"
	"github.com/varsagel/varsagelcom-sub000/internal/viewtrack"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type seedListing struct {
	Owner       string
	Category    string
	SubCategory string
	Title       string
	Description string
	Min, Max    float64
	City        string
	District    string
	Data        map[string]any
}

var seedUsers = []service.Identity{
	{UID: "seed-admin", Email: "admin@varsagel.local", Name: "VarsaGel Admin"},
	{UID: "seed-ayse", Email: "ayse@varsagel.local", Name: "Ayşe Yılmaz"},
	{UID: "seed-mehmet", Email: "mehmet@varsagel.local", Name: "Mehmet Kaya"},
	{UID: "seed-zeynep", Email: "zeynep@varsagel.local", Name: "Zeynep Demir"},
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run() error {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	lg := logger.New(cfg.LogLevel, cfg.LogEncoding)
	defer func() { _ = lg.Sync() }()

	gdb, err := db.Connect(cfg, lg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if err := db.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	canSeed, err := shouldSeed(ctx, gdb)
	if err != nil {
		return err
	}
	if !canSeed {
		lg.Info("listings already exist; skipping seed (set FORCE_SEED=true to override)")
		return nil
	}

	reg, err := catalog.Default()
	if err != nil {
		return err
	}
	svc := server.NewServices(server.NewRepositories(gdb), server.Infra{
		Registry:  reg,
		Metrics:   metrics.New(),
		Views:     viewtrack.NewMemoryTracker(cfg.ViewSessionTTL),
		Publisher: events.Noop{},
		Mail:      mailer.NoopSender{},
		Log:       lg,
		BaseURL:   cfg.AppBaseURL,
		// Seeded listings skip moderation.
		Listing: service.ListingOptions{TTL: cfg.ListingTTL},
	})

	for _, id := range seedUsers {
		if _, err := svc.Users.Provision(ctx, id); err != nil {
			return fmt.Errorf("provision %s: %w", id.UID, err)
		}
	}
	if err := gdb.WithContext(ctx).Model(&model.User{}).
		Where("uid = ?", seedUsers[0].UID).
		Update("role", model.RoleAdmin).Error; err != nil {
		return fmt.Errorf("promote admin: %w", err)
	}

	listings := buildSeedListings()
	for i, s := range listings {
		minPrice, maxPrice := s.Min, s.Max
		l, err := svc.Listings.Create(ctx, s.Owner, service.ListingInput{
			Title:         s.Title,
			Description:   s.Description,
			MinPrice:      &minPrice,
			MaxPrice:      &maxPrice,
			City:          s.City,
			District:      s.District,
			CategoryID:    s.Category,
			SubCategoryID: s.SubCategory,
			CategoryData:  s.Data,
			Images:        []string{picsumURL(s.SubCategory, i+1)},
		})
		if err != nil {
			return fmt.Errorf("create listing %q: %w", s.Title, err)
		}
		lg.Debug("seeded listing", zap.Uint64("number", l.ListingNumber), zap.String("title", l.Title))
	}

	lg.Info("seed done", zap.Int("users", len(seedUsers)), zap.Int("listings", len(listings)))
	return nil
}

func buildSeedListings() []seedListing {
	return []seedListing{
		{
			Owner: "seed-ayse", Category: "automotive", SubCategory: "cars",
			Title: "2018 sonrası Corolla arıyorum", Description: "Hasarsız, otomatik vites, düşük kilometreli Corolla arıyorum.",
			Min: 650000, Max: 850000, City: "İstanbul", District: "Kadıköy",
			Data: map[string]any{"brand": "toyota", "series": "corolla", "year": 2018, "gear": "automatic"},
		},
		{
			Owner: "seed-mehmet", Category: "automotive", SubCategory: "cars",
			Title: "Dizel Golf aranıyor", Description: "Aile için bakımlı, dizel bir Golf arıyorum. Takas yok.",
			Min: 700000, Max: 950000, City: "Ankara", District: "Çankaya",
			Data: map[string]any{"brand": "volkswagen", "series": "golf", "year": 2016, "fuel": "diesel"},
		},
		{
			Owner: "seed-zeynep", Category: "electronics", SubCategory: "phones",
			Title: "iPhone 13 128 GB", Description: "Pil sağlığı yüksek, kutulu iPhone 13 arıyorum.",
			Min: 15000, Max: 22000, City: "İzmir", District: "Bornova",
			Data: map[string]any{"brand": "apple", "model": "iPhone 13", "storage": "128", "condition": "used"},
		},
		{
			Owner: "seed-ayse", Category: "electronics", SubCategory: "computers",
			Title: "Yazılım için dizüstü", Description: "En az 16 GB RAM'li, temiz bir dizüstü bilgisayar arıyorum.",
			Min: 20000, Max: 35000, City: "İstanbul", District: "Beşiktaş",
			Data: map[string]any{"type": "laptop", "ram": "16", "condition": "used"},
		},
		{
			Owner: "seed-mehmet", Category: "real-estate", SubCategory: "apartment-rent",
			Title: "Metroya yakın 2+1 kiralık", Description: "Metroya yürüme mesafesinde, doğalgazlı 2+1 daire arıyorum.",
			Min: 15000, Max: 25000, City: "İstanbul", District: "Üsküdar",
			Data: map[string]any{"rooms": "2+1", "heating": "natural-gas", "area": 90},
		},
		{
			Owner: "seed-zeynep", Category: "home-garden", SubCategory: "appliances",
			Title: "A++ bulaşık makinesi", Description: "Az kullanılmış, enerji sınıfı yüksek bir bulaşık makinesi arıyorum.",
			Min: 5000, Max: 9000, City: "Bursa", District: "Nilüfer",
			Data: map[string]any{"type": "dishwasher", "energyClass": "A++"},
		},
	}
}

func shouldSeed(ctx context.Context, gdb *gorm.DB) (bool, error) {
	var cnt int64
	if err := gdb.WithContext(ctx).Model(&model.Listing{}).Count(&cnt).Error; err != nil {
		return false, fmt.Errorf("count listings: %w", err)
	}
	if cnt == 0 {
		return true, nil
	}
	return strings.EqualFold(os.Getenv("FORCE_SEED"), "true"), nil
}

func picsumURL(slug string, index int) string {
	return fmt.Sprintf("https://picsum.photos/seed/%s-%d/600/600", slug, index)
}
