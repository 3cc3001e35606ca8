// Command seed-db loads the catalog from a products JSON file and creates
// the initial admin account. It is idempotent: existing products are left
// untouched and an existing admin email aborts the account step silently.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velano/storefront/internal/domain/catalog"
	"github.com/velano/storefront/internal/domain/user"
	"github.com/velano/storefront/internal/storage/postgres"
)

type variantJSON struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	PriceOverride *decimal.Decimal `json:"price_override,omitempty"`
	Stock         int              `json:"stock"`
}

type productJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
	Stock       int             `json:"stock"`
	Variants    []variantJSON   `json:"variants,omitempty"`
}

func main() {
	var (
		databaseURL   string
		productsFile  string
		adminEmail    string
		adminPassword string
		userEmail     string
		userPassword  string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&adminEmail, "admin-email", "", "admin account email (or STORE_SEED_ADMIN_EMAIL env)")
	flag.StringVar(&adminPassword, "admin-password", "", "admin account password (or STORE_SEED_ADMIN_PASSWORD env)")
	flag.StringVar(&userEmail, "user-email", "", "pre-verified demo account email")
	flag.StringVar(&userPassword, "user-password", "", "pre-verified demo account password")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminEmail == "" {
		adminEmail = os.Getenv("STORE_SEED_ADMIN_EMAIL")
	}
	if adminPassword == "" {
		adminPassword = os.Getenv("STORE_SEED_ADMIN_PASSWORD")
	}
	if adminEmail != "" && adminPassword == "" {
		slog.Error("admin password is required when seeding an admin: set --admin-password or STORE_SEED_ADMIN_PASSWORD")
		os.Exit(1)
	}

	if userEmail != "" && userPassword == "" {
		slog.Error("user password is required when seeding a demo account: set --user-password")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, accounts{
		adminEmail:    adminEmail,
		adminPassword: adminPassword,
		userEmail:     userEmail,
		userPassword:  userPassword,
	}); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

type accounts struct {
	adminEmail    string
	adminPassword string
	userEmail     string
	userPassword  string
}

func run(ctx context.Context, databaseURL, productsFile string, acc accounts) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, postgres.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	users := postgres.NewUserRepository(pool)
	if acc.adminEmail != "" {
		if err := seedAccount(ctx, users, acc.adminEmail, acc.adminPassword, user.RoleAdmin); err != nil {
			return errors.Wrap(err, "seed admin")
		}
	}
	if acc.userEmail != "" {
		if err := seedAccount(ctx, users, acc.userEmail, acc.userPassword, user.RoleUser); err != nil {
			return errors.Wrap(err, "seed demo user")
		}
	}

	return nil
}

func seedProducts(ctx context.Context, products catalog.Repository, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var items []productJSON
	if err := json.Unmarshal(data, &items); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("seeding products", slog.Int("count", len(items)))

	for _, item := range items {
		if _, err := products.GetByID(ctx, item.ID); err == nil {
			slog.Info("product exists, skipping", slog.String("id", item.ID))
			continue
		} else if !errors.Is(err, catalog.ErrNotFound) {
			return errors.Wrapf(err, "check product %s", item.ID)
		}

		p := &catalog.Product{
			ID:          item.ID,
			Name:        item.Name,
			Description: item.Description,
			Category:    item.Category,
			Price:       item.Price,
			DiscountPct: item.DiscountPct,
			Stock:       item.Stock,
		}
		for _, v := range item.Variants {
			p.Variants = append(p.Variants, catalog.Variant{
				ID:            v.ID,
				Name:          v.Name,
				PriceOverride: v.PriceOverride,
				Stock:         v.Stock,
			})
		}
		if len(p.Variants) > 0 {
			p.Stock = 0
			for _, v := range p.Variants {
				p.Stock += v.Stock
			}
		}

		if err := products.Create(ctx, p); err != nil {
			return errors.Wrapf(err, "create product %s", item.ID)
		}

		slog.Info("created product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

func seedAccount(ctx context.Context, users user.Repository, email, password string, role user.Role) error {
	if _, err := users.GetByEmail(ctx, email); err == nil {
		slog.Info("account exists, skipping", slog.String("email", email))
		return nil
	} else if !errors.Is(err, user.ErrNotFound) {
		return errors.Wrap(err, "check account")
	}

	hash, err := user.HashPassword(password)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}

	name := "Demo User"
	if role == user.RoleAdmin {
		name = "Administrator"
	}
	u := &user.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         role,
		Verified:     true,
	}
	if err := users.Create(ctx, u); err != nil {
		return errors.Wrap(err, "create account")
	}

	slog.Info("created account", slog.String("email", email), slog.String("role", string(role)))
	return nil
}
