package app

import (
	"context"
	"errors"

	"github.com/dokzlo13/huefri/internal/config"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	Ledger *LedgerService
	Hubs   *HubService
	Sync   *SyncService
	HTTP   *HTTPService
}

// NewServices creates the services that need no network access.
func NewServices(cfg *config.Config) (*Services, error) {
	ledgerSvc, err := NewLedgerService(cfg)
	if err != nil {
		return nil, err
	}

	return &Services{
		cfg:    cfg,
		Ledger: ledgerSvc,
		Hubs:   NewHubService(cfg, ledgerSvc.Recorder()),
	}, nil
}

// Connect reaches both hubs. Commands that only talk to the hubs stop here.
func (s *Services) Connect(ctx context.Context) error {
	return s.Hubs.Connect(ctx)
}

// Start connects the hubs, then starts the background services.
func (s *Services) Start(ctx context.Context) error {
	if err := s.Connect(ctx); err != nil {
		return err
	}

	s.Sync = NewSyncService(s.cfg, s.Hubs, s.Ledger.Recorder())
	s.HTTP = NewHTTPService(s.cfg, s.Sync, s.Sync.Ready, s.Ledger.Ledger)

	s.Ledger.Start(ctx)
	s.Sync.Start(ctx)
	s.HTTP.Start(ctx)

	return nil
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	return s.Close()
}

// Close releases all resources and reports every failure.
func (s *Services) Close() error {
	var errs []error
	if s.Hubs != nil {
		errs = append(errs, s.Hubs.Close())
	}
	if s.Ledger != nil {
		errs = append(errs, s.Ledger.Close())
	}
	return errors.Join(errs...)
}
