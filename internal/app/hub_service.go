package app

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huefri/internal/config"
	"github.com/dokzlo13/huefri/internal/hub"
	"github.com/dokzlo13/huefri/internal/hue"
	"github.com/dokzlo13/huefri/internal/tradfri"
)

// HubService owns both hub adapters and the transports behind them.
type HubService struct {
	cfg      *config.Config
	recorder hub.Recorder

	bridge  hue.Bridge
	gateway tradfri.Gateway
	closer  io.Closer

	Hue     *hue.Hub
	Tradfri *tradfri.Hub
}

// NewHubService creates a HubService that dials real hubs on Connect.
func NewHubService(cfg *config.Config, recorder hub.Recorder) *HubService {
	return &HubService{cfg: cfg, recorder: recorder}
}

// NewHubServiceWith creates a HubService over existing transports.
func NewHubServiceWith(cfg *config.Config, recorder hub.Recorder, bridge hue.Bridge, gateway tradfri.Gateway) *HubService {
	return &HubService{cfg: cfg, recorder: recorder, bridge: bridge, gateway: gateway}
}

// Connect opens both transports, builds the adapters, checks that both
// watched lights exist and wires each adapter to the other. Any failure here
// is fatal for the daemon.
func (s *HubService) Connect(ctx context.Context) error {
	hueCfg := s.cfg.Hue
	var client *hue.Client
	if s.bridge != nil {
		client = hue.NewClientWithBridge(hueCfg.Address, s.bridge, hueCfg.Timeout.Duration())
	} else {
		client = hue.NewClient(hueCfg.Address, hueCfg.Secret, hueCfg.Timeout.Duration())
	}
	if err := client.Connect(ctx); err != nil {
		return err
	}

	trCfg := s.cfg.Tradfri
	if s.gateway == nil {
		gw, err := tradfri.Dial(trCfg.Address, trCfg.Identity, trCfg.Secret, trCfg.Timeout.Duration())
		if err != nil {
			return err
		}
		s.gateway = gw
		s.closer = gw
	}

	s.Hue = hue.New(hueCfg.Hub(), client, hue.Options{
		EchoWindow:      s.cfg.Sync.EchoWindow.Duration(),
		BrightnessSteps: s.cfg.Sync.BrightnessSteps,
		RateLimitRPS:    hueCfg.RateLimitRPS,
		Recorder:        s.recorder,
	})
	s.Tradfri = tradfri.New(trCfg.Hub(), s.gateway, tradfri.Options{
		EchoWindow:      s.cfg.Sync.EchoWindow.Duration(),
		BrightnessSteps: s.cfg.Sync.BrightnessSteps,
		ObserveTimeout:  trCfg.ObserveTimeout.Duration(),
		Recorder:        s.recorder,
	})

	if _, err := s.Hue.ReadWatched(ctx); err != nil {
		return fmt.Errorf("hue watched light %d: %w", hueCfg.Main, err)
	}
	lights, err := s.Tradfri.ListLights(ctx)
	if err != nil {
		return err
	}
	for _, i := range append([]int{trCfg.Main}, trCfg.Controlled...) {
		if i < 0 || i >= len(lights) {
			return fmt.Errorf("tradfri light index %d out of range (%d lights)", i, len(lights))
		}
	}

	s.Hue.SetCounterpart(s.Tradfri)
	s.Tradfri.SetCounterpart(s.Hue)

	log.Info().
		Int("hue_main", hueCfg.Main).
		Ints("hue_controlled", hueCfg.Controlled).
		Int("tradfri_main", trCfg.Main).
		Ints("tradfri_controlled", trCfg.Controlled).
		Msg("Hubs connected")
	return nil
}

// Controller returns the manual controls of the named hub.
func (s *HubService) Controller(name string) (hub.Controller, error) {
	switch name {
	case hue.Name:
		if s.Hue != nil {
			return s.Hue, nil
		}
	case tradfri.Name:
		if s.Tradfri != nil {
			return s.Tradfri, nil
		}
	default:
		return nil, fmt.Errorf("unknown hub %q", name)
	}
	return nil, fmt.Errorf("%s: %w", name, hub.ErrNotConfigured)
}

// Close releases the gateway session.
func (s *HubService) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	if err != nil {
		return fmt.Errorf("close tradfri session: %w", err)
	}
	return nil
}
