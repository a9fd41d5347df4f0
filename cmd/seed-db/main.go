// Command seed-db loads the product catalog and demo users into PostgreSQL.
// Product files may be plain JSON or gzip-compressed JSON (.json.gz), which
// suits exported catalogs of any size.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/Julien07012002/boutique/internal/postgres"
)

const seedWorkers = 4

const (
	upsertProductSQL = `INSERT INTO products (id, name, price, available)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price, available = EXCLUDED.available`

	upsertUserSQL = `INSERT INTO users (id, email, full_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, full_name = EXCLUDED.full_name`
)

type productJSON struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Available *bool           `json:"available"`
}

type userJSON struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		usersFile    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file (.json or .json.gz)")
	flag.StringVar(&usersFile, "users-file", "", "optional path to users JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, usersFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, usersFile string) error {
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

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if usersFile != "" {
		if err := seedUsers(ctx, pool, usersFile); err != nil {
			return errors.Wrap(err, "seed users")
		}
	}

	return nil
}

// openSeedFile opens path, transparently decompressing .gz input.
func openSeedFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open file")
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}

	gz, err := pgzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "gzip reader")
	}
	return struct {
		io.Reader
		io.Closer
	}{Reader: gz, Closer: f}, nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, path string) error {
	slog.Info("reading products file", slog.String("path", path))

	r, err := openSeedFile(path)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	var products []productJSON
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(seedWorkers)
	for _, p := range products {
		g.Go(func() error {
			available := true
			if p.Available != nil {
				available = *p.Available
			}
			if _, err := pool.Exec(gctx, upsertProductSQL, p.ID, p.Name, p.Price, available); err != nil {
				return errors.Wrapf(err, "upsert product %s", p.ID)
			}
			slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
			return nil
		})
	}
	return g.Wait()
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool, path string) error {
	slog.Info("reading users file", slog.String("path", path))

	r, err := openSeedFile(path)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	var users []userJSON
	if err := json.NewDecoder(r).Decode(&users); err != nil {
		return errors.Wrap(err, "parse users JSON")
	}

	slog.Info("upserting users", slog.Int("count", len(users)))

	for _, u := range users {
		if _, err := pool.Exec(ctx, upsertUserSQL, u.ID, u.Email, u.FullName); err != nil {
			return errors.Wrapf(err, "upsert user %s", u.ID)
		}
	}
	return nil
}
