package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/food-orders/db"
	"github.com/xenking/food-orders/internal/domain/auth"
	"github.com/xenking/food-orders/internal/domain/coupon"
	"github.com/xenking/food-orders/internal/domain/menu"
	"github.com/xenking/food-orders/internal/domain/user"
	"github.com/xenking/food-orders/internal/storage/postgres"
)

const (
	defaultAdminEmail    = "admin@vasanthifoods.com"
	defaultCustomerEmail = "customer@vasanthifoods.com"
)

type menuItemJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	Available   bool            `json:"available"`
}

type options struct {
	databaseURL string
	menuFile    string
	pepper      string
	adminEmail  string
	adminKey    string
	customerKey string
}

func main() {
	var opts options

	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.menuFile, "menu-file", "", "path to menu JSON file (embedded menu when empty)")
	flag.StringVar(&opts.pepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or ORDERS_API_KEY_PEPPER env)")
	flag.StringVar(&opts.adminEmail, "admin-email", defaultAdminEmail, "email of the admin account to ensure")
	flag.StringVar(&opts.adminKey, "admin-key", "", "API key to issue for the admin (or ORDERS_SEED_ADMIN_KEY env)")
	flag.StringVar(&opts.customerKey, "customer-key", "", "API key for a demo customer (or ORDERS_SEED_CUSTOMER_KEY env)")
	flag.Parse()

	opts.databaseURL = orEnv(opts.databaseURL, "DATABASE_URL")
	opts.pepper = orEnv(opts.pepper, "ORDERS_API_KEY_PEPPER")
	opts.adminKey = orEnv(opts.adminKey, "ORDERS_SEED_ADMIN_KEY")
	opts.customerKey = orEnv(opts.customerKey, "ORDERS_SEED_CUSTOMER_KEY")

	if opts.databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if (opts.adminKey != "" || opts.customerKey != "") && opts.pepper == "" {
		slog.Error("api key pepper is required to issue keys: set --api-key-pepper or ORDERS_API_KEY_PEPPER")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func orEnv(v, key string) string {
	if v != "" {
		return v
	}
	return os.Getenv(key)
}

func run(ctx context.Context, opts options) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedMenu(ctx, postgres.NewMenuRepository(pool), opts.menuFile); err != nil {
		return errors.Wrap(err, "seed menu")
	}
	if err := seedCoupons(ctx, postgres.NewCouponRepository(pool)); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	users := postgres.NewUserRepository(pool)
	keys := postgres.NewAPIKeyRepository(pool)

	admin, err := ensureAdmin(ctx, users, opts.adminEmail)
	if err != nil {
		return errors.Wrap(err, "ensure admin")
	}
	switch {
	case opts.adminKey == "":
	case admin == nil:
		slog.Warn("admin key not issued: no admin with this email", slog.String("email", opts.adminEmail))
	default:
		if err := issueKey(ctx, keys, admin, opts.adminKey, opts.pepper); err != nil {
			return errors.Wrap(err, "issue admin key")
		}
	}

	if opts.customerKey != "" {
		customer, err := ensureUser(ctx, users, &user.User{
			Email:   defaultCustomerEmail,
			Name:    "Demo Customer",
			Phone:   "+91 98765 43210",
			Address: "12 MG Road, Bengaluru",
			Role:    auth.RoleCustomer,
		})
		if err != nil {
			return errors.Wrap(err, "ensure demo customer")
		}
		if err := issueKey(ctx, keys, customer, opts.customerKey, opts.pepper); err != nil {
			return errors.Wrap(err, "issue customer key")
		}
	}

	return nil
}

func seedMenu(ctx context.Context, repo *postgres.MenuRepository, path string) error {
	data := db.SeedMenu
	if path != "" {
		slog.Info("reading menu file", slog.String("path", path))

		var err error
		if data, err = os.ReadFile(path); err != nil {
			return errors.Wrap(err, "read menu file")
		}
	}

	var items []menuItemJSON
	if err := json.Unmarshal(data, &items); err != nil {
		return errors.Wrap(err, "parse menu JSON")
	}

	slog.Info("upserting menu items", slog.Int("count", len(items)))

	now := time.Now()
	for _, it := range items {
		if err := repo.Upsert(ctx, &menu.Item{
			ID:          it.ID,
			Name:        it.Name,
			Description: it.Description,
			Price:       it.Price,
			Category:    it.Category,
			Image:       it.Image,
			Available:   it.Available,
			CreatedAt:   now,
		}); err != nil {
			return errors.Wrapf(err, "upsert menu item %s", it.ID)
		}

		slog.Info("upserted menu item", slog.String("id", it.ID), slog.String("name", it.Name))
	}

	return nil
}

func seedCoupons(ctx context.Context, repo *postgres.CouponRepository) error {
	slog.Info("seeding demo coupons")

	cap40 := decimal.NewFromInt(40)
	cap100 := decimal.NewFromInt(100)
	now := time.Now()
	coupons := []coupon.Coupon{
		{
			Code:        "SAVE10",
			Value:       decimal.NewFromInt(10),
			Kind:        coupon.KindPercentage,
			MinOrder:    decimal.NewFromInt(300),
			MaxDiscount: &cap40,
			Active:      true,
		},
		{
			Code:        "WELCOME20",
			Value:       decimal.NewFromInt(20),
			Kind:        coupon.KindPercentage,
			MinOrder:    decimal.Zero,
			MaxDiscount: &cap100,
			Active:      true,
		},
		{
			Code:     "FLAT50",
			Value:    decimal.NewFromInt(50),
			Kind:     coupon.KindFixed,
			MinOrder: decimal.NewFromInt(250),
			Active:   true,
		},
	}

	for i := range coupons {
		c := &coupons[i]
		c.CreatedAt = now
		if err := repo.Upsert(ctx, c); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.Code)
		}

		slog.Info("upserted coupon", slog.String("code", c.Code), slog.String("kind", string(c.Kind)))
	}

	return nil
}

// ensureAdmin creates the admin account unless some admin already exists.
// It returns nil when the existing admin uses a different email.
func ensureAdmin(ctx context.Context, users *postgres.UserRepository, email string) (*user.User, error) {
	n, err := users.CountByRole(ctx, auth.RoleAdmin)
	if err != nil {
		return nil, errors.Wrap(err, "count admins")
	}
	if n > 0 {
		admin, err := users.FindByEmail(ctx, email)
		switch {
		case err == nil:
			return admin, nil
		case errors.Is(err, user.ErrNotFound):
			slog.Info("admin account already exists", slog.Int64("admins", n))
			return nil, nil
		default:
			return nil, errors.Wrapf(err, "find user %s", email)
		}
	}
	return ensureUser(ctx, users, &user.User{
		Email: email,
		Name:  "Admin",
		Role:  auth.RoleAdmin,
	})
}

func ensureUser(ctx context.Context, users *postgres.UserRepository, u *user.User) (*user.User, error) {
	existing, err := users.FindByEmail(ctx, u.Email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return nil, errors.Wrapf(err, "find user %s", u.Email)
	}

	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	if err := users.Create(ctx, u); err != nil {
		return nil, errors.Wrapf(err, "create user %s", u.Email)
	}

	slog.Info("created user", slog.String("email", u.Email), slog.String("role", string(u.Role)))
	return u, nil
}

func issueKey(ctx context.Context, keys *postgres.APIKeyRepository, u *user.User, key, pepper string) error {
	info := &auth.APIKeyInfo{
		ID:      "seed-" + string(u.Role),
		KeyHash: auth.HashAPIKey([]byte(pepper), key),
		UserID:  u.ID,
		Name:    "Seeded " + string(u.Role) + " key",
	}
	if err := keys.Upsert(ctx, info); err != nil {
		return errors.Wrapf(err, "upsert api key %s", info.ID)
	}

	slog.Info("upserted API key", slog.String("id", info.ID), slog.String("user", u.Email))
	return nil
}
