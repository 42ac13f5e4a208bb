package main

import (
	"fmt"

	"scandemo/internal/apiclient"
	"scandemo/internal/config"
	"scandemo/internal/db"
	"scandemo/internal/metrics"
	"scandemo/internal/notify"
	"scandemo/internal/scan"
	"scandemo/internal/simulation"
)

// Factories are package variables so tests can replace them.
var (
	storeFactory = func(s config.Settings) (db.Store, error) {
		return db.NewStore(db.StoreConfig{Type: s.StoreType, ConnectionString: s.StoreDSN})
	}

	apiFactory = func(s config.Settings, mock bool) (apiclient.API, error) {
		if mock {
			return apiclient.NewMock(mockLatency), nil
		}
		return apiclient.New(apiclient.Config{
			BaseURL: s.APIURL,
			Timeout: s.APITimeout,
			Tokens:  apiclient.NewFileTokenStore(appFS, s.APITokenFile),
			OnUnauthorized: func() {
				fmt.Println("Session expired. Run 'scandemo api login' to sign in again.")
			},
		})
	}

	mockLatency = 1.0
)

// newService wires a scan service with phases scaled by timeScale.
func newService(store db.Store, timeScale float64, m *metrics.Metrics, n notify.Notifier) *scan.Service {
	opts := []scan.Option{
		scan.WithPhases(simulation.Scale(simulation.DefaultPhases(), timeScale)),
		scan.WithMetrics(m),
	}
	if n != nil {
		opts = append(opts, scan.WithNotifier(n))
	}
	return scan.NewService(store, opts...)
}
