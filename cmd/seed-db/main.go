package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/orderdesk/db"
	"github.com/xenking/orderdesk/internal/domain/account"
	"github.com/xenking/orderdesk/internal/domain/auth"
	"github.com/xenking/orderdesk/internal/domain/failure"
	"github.com/xenking/orderdesk/internal/domain/product"
	"github.com/xenking/orderdesk/internal/handler"
	"github.com/xenking/orderdesk/internal/storage/postgres"
)

const (
	seedManagerEmail = "manager@orderdesk.local"
	seedAgentEmail   = "agent@orderdesk.local"
)

type options struct {
	databaseURL  string
	productsFile string
	managerKey   string
	agentKey     string
	pepper       string
	password     string
}

func main() {
	var opts options
	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.productsFile, "products-file", "", "path to products JSON file (default: embedded demo catalog)")
	flag.StringVar(&opts.managerKey, "manager-key", "", "manager API key to seed (or ORDERDESK_SEED_MANAGER_KEY env)")
	flag.StringVar(&opts.agentKey, "agent-key", "", "agent API key to seed (or ORDERDESK_SEED_AGENT_KEY env)")
	flag.StringVar(&opts.pepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or ORDERDESK_API_KEY_PEPPER env)")
	flag.StringVar(&opts.password, "manager-password", "Seed!pass123", "password of the seeded manager")
	flag.Parse()

	lg, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	fromEnv(&opts.databaseURL, "DATABASE_URL")
	fromEnv(&opts.managerKey, "ORDERDESK_SEED_MANAGER_KEY")
	fromEnv(&opts.agentKey, "ORDERDESK_SEED_AGENT_KEY")
	fromEnv(&opts.pepper, "ORDERDESK_API_KEY_PEPPER")
	if opts.databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}
	if opts.managerKey == "" {
		lg.Fatal("Manager API key is required: set --manager-key or ORDERDESK_SEED_MANAGER_KEY")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, opts); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func fromEnv(v *string, key string) {
	if *v == "" {
		*v = os.Getenv(key)
	}
}

func run(ctx context.Context, lg *zap.Logger, opts options) error {
	lg.Info("Connecting to database")
	pool, err := postgres.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	accounts := postgres.NewAccountRepository(pool)
	managerID, agentID, err := seedAccounts(ctx, lg, accounts, opts.password)
	if err != nil {
		return errors.Wrap(err, "seed accounts")
	}

	if err := seedProducts(ctx, lg, postgres.NewProductRepository(pool), managerID, opts.productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	keys := postgres.NewAPIKeyRepository(pool)
	pepper := []byte(opts.pepper)
	seeds := []auth.APIKeyInfo{
		{ID: "seed-manager", Name: "Seed manager key", ManagerID: managerID, KeyHash: handler.HashKey(pepper, opts.managerKey)},
	}
	if opts.agentKey != "" {
		seeds = append(seeds, auth.APIKeyInfo{
			ID: "seed-agent", Name: "Seed agent key", ManagerID: managerID, AgentID: agentID,
			KeyHash: handler.HashKey(pepper, opts.agentKey),
		})
	}
	for _, k := range seeds {
		if err := keys.Upsert(ctx, k); err != nil {
			return errors.Wrap(err, "seed api key")
		}
		lg.Info("Upserted API key", zap.String("id", k.ID), zap.String("agent_id", k.AgentID))
	}
	return nil
}

// seedAccounts registers the seed business through the account service so the
// seeded data passes the same validation as API traffic. Reruns reuse the
// existing manager and agent.
func seedAccounts(ctx context.Context, lg *zap.Logger, repo *postgres.AccountRepository, password string) (managerID, agentID string, err error) {
	svc := account.NewService(repo, account.BcryptHasher{})

	reg, err := svc.Register(ctx,
		account.CreateBusinessRequest{
			Name:      "Orderdesk Demo Roasters",
			Email:     "hello@orderdesk.local",
			Phone:     "+15550100100",
			TaxID:     "123456789",
			FoundedOn: time.Date(2015, time.April, 1, 0, 0, 0, 0, time.UTC),
		},
		account.CreateManagerRequest{
			FirstName: "Demo",
			LastName:  "Manager",
			Email:     seedManagerEmail,
			Phone:     "+15550100101",
			Password:  password,
		},
	)
	switch {
	case err == nil:
		managerID = reg.Manager.ID
		lg.Info("Registered business", zap.String("business_id", reg.Business.ID), zap.String("manager_id", managerID))
	case failure.Is(err, failure.ReasonEmailTaken):
		if managerID, err = repo.FindManagerID(ctx, seedManagerEmail); err != nil {
			return "", "", err
		}
		lg.Info("Reusing seeded manager", zap.String("manager_id", managerID))
	default:
		return "", "", err
	}

	a, err := svc.AddAgent(ctx, auth.Identity{ManagerID: managerID}, account.CreateAgentRequest{
		Name:  "Demo Agent",
		Email: seedAgentEmail,
		Phone: "+15550100102",
	})
	switch {
	case err == nil:
		agentID = a.ID
	case failure.Is(err, failure.ReasonEmailTaken):
		if agentID, err = repo.FindAgentID(ctx, managerID, seedAgentEmail); err != nil {
			return "", "", err
		}
	default:
		return "", "", err
	}
	lg.Info("Seeded agent", zap.String("agent_id", agentID))
	return managerID, agentID, nil
}

func seedProducts(ctx context.Context, lg *zap.Logger, repo *postgres.ProductRepository, managerID, path string) error {
	data := db.SeedProducts
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return errors.Wrap(err, "read products file")
		}
	}

	var products []product.Product
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		p := product.Product{ManagerID: managerID}
		err := d.ObjBytes(func(d *jx.Decoder, key []byte) (err error) {
			switch string(key) {
			case "id":
				p.ID, err = d.Str()
			case "name":
				p.Name, err = d.Str()
			case "price":
				var n jx.Num
				if n, err = d.Num(); err == nil {
					p.Price, err = decimal.NewFromString(n.String())
				}
			default:
				err = d.Skip()
			}
			return err
		})
		products = append(products, p)
		return err
	})
	if err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	for _, p := range products {
		if err := repo.Upsert(ctx, p); err != nil {
			return err
		}
		lg.Info("Upserted product", zap.String("id", p.ID), zap.String("price", p.Price.StringFixed(2)))
	}
	return nil
}
