package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huefri/internal/config"
	"github.com/dokzlo13/huefri/internal/hub"
	"github.com/dokzlo13/huefri/internal/syncer"
)

// SyncService runs the sync loop in the background.
type SyncService struct {
	Loop *syncer.Loop
	done chan struct{}
}

// NewSyncService creates the loop over the connected hubs, secondary first.
func NewSyncService(cfg *config.Config, hubs *HubService, recorder hub.Recorder) *SyncService {
	return &SyncService{
		Loop: syncer.New(hubs.Tradfri, hubs.Hue, syncer.Options{
			Interval: cfg.Sync.Interval.Duration(),
			Recorder: recorder,
		}),
		done: make(chan struct{}),
	}
}

// Start begins polling until ctx is cancelled.
func (s *SyncService) Start(ctx context.Context) {
	go func() {
		defer close(s.done)
		if err := s.Loop.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Sync loop error")
		}
	}()
}

// Ready reports whether at least one cycle has completed.
func (s *SyncService) Ready() bool {
	return s.Loop.Cycles() > 0
}

// Submit hands a manual command to the loop.
func (s *SyncService) Submit(ctx context.Context, cmd syncer.Command) error {
	return s.Loop.Submit(ctx, cmd)
}

// Done is closed once the loop has returned.
func (s *SyncService) Done() <-chan struct{} {
	return s.done
}
