package hue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amimof/huego"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/huefri/internal/hub"
	"github.com/dokzlo13/huefri/internal/metrics"
	"github.com/dokzlo13/huefri/internal/palette"
)

// Name identifies this hub in logs, metrics and the ledger.
const Name = "hue"

const defaultRateLimitRPS = 10.0

// Counterpart is the secondary hub as seen from here.
type Counterpart interface {
	Name() string
	RecentlyChanged(window time.Duration) bool
	SetAll(ctx context.Context, hex string, brightness int) error
}

// Options tune a Hub. Zero values fall back to defaults.
type Options struct {
	Palette         *palette.Table
	EchoWindow      time.Duration
	BrightnessSteps int
	RateLimitRPS    float64
	Clock           hub.Clock
	Recorder        hub.Recorder
}

// Hub is the primary hub adapter.
type Hub struct {
	*hub.Base

	client      *Client
	palette     *palette.Table
	window      time.Duration
	steps       int
	limiter     *rate.Limiter
	recorder    hub.Recorder
	counterpart Counterpart

	cached     palette.HSB
	known      bool
	colorIndex int
}

// New creates the adapter. The counterpart is wired later with SetCounterpart.
func New(cfg hub.Config, client *Client, opts Options) *Hub {
	if opts.Palette == nil {
		opts.Palette = palette.Default
	}
	if opts.EchoWindow == 0 {
		opts.EchoWindow = hub.DefaultEchoWindow
	}
	if opts.BrightnessSteps == 0 {
		opts.BrightnessSteps = hub.DefaultBrightnessSteps
	}
	if opts.RateLimitRPS == 0 {
		opts.RateLimitRPS = defaultRateLimitRPS
	}
	if opts.Recorder == nil {
		opts.Recorder = hub.NopRecorder{}
	}

	burst := int(opts.RateLimitRPS)
	if burst < 1 {
		burst = 1
	}

	return &Hub{
		Base:     hub.NewBase(cfg, opts.Clock),
		client:   client,
		palette:  opts.Palette,
		window:   opts.EchoWindow,
		steps:    opts.BrightnessSteps,
		limiter:  rate.NewLimiter(rate.Limit(opts.RateLimitRPS), burst),
		recorder: opts.Recorder,
	}
}

// Name returns the hub name.
func (h *Hub) Name() string {
	return Name
}

// SetCounterpart wires the hub that receives this hub's changes.
func (h *Hub) SetCounterpart(c Counterpart) {
	h.counterpart = c
}

// Cached returns the last observed state of the watched light.
func (h *Hub) Cached() (palette.HSB, bool) {
	return h.cached, h.known
}

// ListLights returns every light on the bridge.
func (h *Hub) ListLights(ctx context.Context) ([]huego.Light, error) {
	return h.client.Lights(ctx)
}

// ReadWatched reads the state of the watched light.
func (h *Hub) ReadWatched(ctx context.Context) (palette.HSB, error) {
	light, err := h.client.Light(ctx, h.Main)
	if err != nil {
		return palette.HSB{}, err
	}
	if light.State == nil {
		return palette.HSB{}, fmt.Errorf("light %d has no state", h.Main)
	}
	st := light.State
	return palette.HSB{
		On:         st.On,
		Hue:        int(st.Hue),
		Saturation: int(st.Sat),
		Brightness: int(st.Bri),
	}, nil
}

// Bridges accept bri in [1,254].
const maxBridgeBrightness = 254

// stateFor builds the write payload. An "off" payload carries nothing but
// the power field since bridges reject color changes combined with off.
func stateFor(hsb palette.HSB) huego.State {
	if !hsb.On {
		return huego.State{On: false}
	}
	return huego.State{
		On:  true,
		Hue: uint16(clamp(hsb.Hue, 0, 65535)),
		Sat: uint8(clamp(hsb.Saturation, 0, 254)),
		Bri: uint8(clamp(hsb.Brightness, hub.MinBrightness, maxBridgeBrightness)),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// PushToSelected writes hsb to every controlled light concurrently and waits
// for all writes. Each write targets its own light so they share nothing.
func (h *Hub) PushToSelected(ctx context.Context, hsb palette.HSB) error {
	state := stateFor(hsb)

	var g errgroup.Group
	for _, id := range h.Controlled {
		g.Go(func() error {
			if err := h.limiter.Wait(ctx); err != nil {
				return err
			}
			return h.client.SetLightState(ctx, id, state)
		})
	}
	return g.Wait()
}

// DetectChange reads the watched light and reports whether it differs from
// the cached state. The cache always follows the light, even while the
// counterpart's echo window forces the result to false.
func (h *Hub) DetectChange(ctx context.Context) (bool, error) {
	if h.counterpart == nil {
		return false, fmt.Errorf("hue: %w", hub.ErrNotConfigured)
	}

	st, err := h.ReadWatched(ctx)
	if err != nil {
		return false, err
	}

	changed := !h.known || st != h.cached
	h.cached = st
	h.known = true
	if i, err := h.palette.IndexOfHueSat(st.Hue, st.Saturation); err == nil {
		h.colorIndex = i
	}

	if h.counterpart.RecentlyChanged(h.window) {
		if changed {
			log.Info().Str("hub", Name).Str("source", h.counterpart.Name()).Msg("Sync skipped")
			metrics.RecordEchoSuppressed(Name)
			h.recorder.Record(hub.Event{
				Kind: hub.EventEchoSuppressed, Hub: Name, Target: h.counterpart.Name(),
				On: st.On, Hue: st.Hue, Saturation: st.Saturation, Brightness: st.Brightness,
			})
		}
		return false, nil
	}
	return changed, nil
}

// Update pushes a detected change of the watched light to the counterpart.
func (h *Hub) Update(ctx context.Context) error {
	if h.counterpart == nil {
		return fmt.Errorf("hue: %w", hub.ErrNotConfigured)
	}

	changed, err := h.DetectChange(ctx)
	if err != nil || !changed {
		return err
	}

	st := h.cached
	hex, bri := "", 0
	if st.On {
		hex, err = h.palette.HexForHueSat(st.Hue, st.Saturation)
		if errors.Is(err, palette.ErrUnknownColor) {
			log.Info().Str("hub", Name).Int("hue", st.Hue).Int("sat", st.Saturation).Msg("Unknown color, ignoring")
			metrics.RecordUnknownColor(Name)
			h.recorder.Record(hub.Event{
				Kind: hub.EventUnknownColor, Hub: Name,
				On: st.On, Hue: st.Hue, Saturation: st.Saturation, Brightness: st.Brightness,
			})
			return nil
		}
		if err != nil {
			return err
		}
		bri = st.Brightness
	}

	h.MarkChangedNow()
	if st.On {
		log.Info().Str("hub", Name).Str("hex", hex).Int("bri", bri).Msg("Send to tradfri")
	} else {
		log.Info().Str("hub", Name).Msg("Turn off")
	}

	target := h.counterpart.Name()
	if err := h.counterpart.SetAll(ctx, hex, bri); err != nil {
		return fmt.Errorf("push to %s: %w", target, err)
	}

	metrics.RecordPropagation(Name, target)
	h.recorder.Record(hub.Event{
		Kind: hub.EventPropagated, Hub: Name, Target: target,
		On: st.On, Hex: hex, Hue: st.Hue, Saturation: st.Saturation, Brightness: bri,
	})
	return nil
}
