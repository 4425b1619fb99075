package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dealflow-cli/internal/store"
	"github.com/sells-group/dealflow-cli/pkg/crm"
	"github.com/sells-group/dealflow-cli/pkg/geocode"
)

// initStore opens the configured store backend and runs migrations.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.SQLitePath)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// initResolver builds the geocoding resolver from config.
func initResolver() *geocode.Resolver {
	client := geocode.NewClient(
		geocode.WithGoogleAPIKey(cfg.Geocode.GoogleAPIKey),
		geocode.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Geocode.TimeoutSecs) * time.Second}),
		geocode.WithRateLimit(cfg.Geocode.RateLimit),
	)
	return geocode.NewResolver(client)
}

// initCRM authenticates against the configured Salesforce org.
func initCRM() (crm.Client, error) {
	if cfg.CRM.ClientID == "" {
		return nil, eris.New("crm client ID is required (DEALFLOW_CRM_CLIENT_ID)")
	}

	pemData, err := os.ReadFile(cfg.CRM.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read crm JWT private key")
	}

	return crm.Connect(cfg.CRM.LoginURL, cfg.CRM.Username, cfg.CRM.ClientID, string(pemData))
}
