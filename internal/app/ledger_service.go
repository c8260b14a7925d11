package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huefri/internal/config"
	"github.com/dokzlo13/huefri/internal/db"
	"github.com/dokzlo13/huefri/internal/eventbus"
	"github.com/dokzlo13/huefri/internal/hub"
	"github.com/dokzlo13/huefri/internal/ledger"
)

// LedgerService owns the optional sync ledger and its retention cleanup.
// Events reach the ledger through a bus so disk writes stay off the sync loop.
type LedgerService struct {
	cfg    *config.Config
	DB     *db.DB
	Ledger *ledger.Ledger
	Bus    *eventbus.Bus
}

// NewLedgerService opens the ledger database when a path is configured.
func NewLedgerService(cfg *config.Config) (*LedgerService, error) {
	s := &LedgerService{cfg: cfg}
	if cfg.Ledger.Path == "" {
		return s, nil
	}

	database, err := db.Open(cfg.Ledger.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database
	s.Ledger = ledger.New(database.DB)
	s.Bus = eventbus.New()
	s.Bus.SubscribeAll(s.Ledger.Record)
	log.Info().Str("path", cfg.Ledger.Path).Msg("Sync ledger enabled")
	return s, nil
}

// Enabled reports whether a ledger is open.
func (s *LedgerService) Enabled() bool {
	return s.Ledger != nil
}

// Recorder returns the ledger's bus, or a recorder that drops events.
func (s *LedgerService) Recorder() hub.Recorder {
	if s.Bus == nil {
		return hub.NopRecorder{}
	}
	return s.Bus
}

// Start begins periodic cleanup of old entries.
func (s *LedgerService) Start(ctx context.Context) {
	if s.Ledger == nil {
		return
	}
	go s.runCleanup(ctx)
}

// runCleanup periodically cleans up old ledger entries.
func (s *LedgerService) runCleanup(ctx context.Context) {
	retention := time.Duration(s.cfg.Ledger.RetentionDays) * 24 * time.Hour
	interval := s.cfg.Ledger.CleanupInterval.Duration()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanup(retention)
		}
	}
}

func (s *LedgerService) cleanup(retention time.Duration) {
	deleted, err := s.Ledger.DeleteOlderThan(retention)
	if err != nil {
		log.Error().Err(err).Msg("Failed to cleanup old ledger entries")
	} else if deleted > 0 {
		log.Info().Int64("deleted", deleted).Dur("retention", retention).Msg("Cleaned up old ledger entries")
	}
}

// Close drains pending events and closes the ledger database.
func (s *LedgerService) Close() error {
	if s.Bus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
		s.Bus.Close(ctx)
		cancel()
		s.Bus = nil
	}
	if s.DB == nil {
		return nil
	}
	err := s.DB.Close()
	s.DB = nil
	if err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}
	return nil
}
