package tradfri

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huefri/internal/hub"
	"github.com/dokzlo13/huefri/internal/metrics"
	"github.com/dokzlo13/huefri/internal/palette"
)

// Name identifies this hub in logs, metrics and the ledger.
const Name = "tradfri"

const defaultObserveTimeout = time.Second

// Counterpart is the primary hub as seen from here.
type Counterpart interface {
	Name() string
	RecentlyChanged(window time.Duration) bool
	PushToSelected(ctx context.Context, hsb palette.HSB) error
}

// Options tune a Hub. Zero values fall back to defaults.
type Options struct {
	Palette         *palette.Table
	EchoWindow      time.Duration
	BrightnessSteps int
	ObserveTimeout  time.Duration
	Clock           hub.Clock
	Recorder        hub.Recorder
}

// Hub is the secondary hub adapter.
type Hub struct {
	*hub.Base

	gw          Gateway
	palette     *palette.Table
	window      time.Duration
	steps       int
	observe     time.Duration
	recorder    hub.Recorder
	counterpart Counterpart

	lights     []Device
	cached     LightState
	known      bool
	colorIndex int
}

// New creates the adapter. The counterpart is wired later with SetCounterpart.
func New(cfg hub.Config, gw Gateway, opts Options) *Hub {
	if opts.Palette == nil {
		opts.Palette = palette.Default
	}
	if opts.EchoWindow == 0 {
		opts.EchoWindow = hub.DefaultEchoWindow
	}
	if opts.BrightnessSteps == 0 {
		opts.BrightnessSteps = hub.DefaultBrightnessSteps
	}
	if opts.ObserveTimeout == 0 {
		opts.ObserveTimeout = defaultObserveTimeout
	}
	if opts.Recorder == nil {
		opts.Recorder = hub.NopRecorder{}
	}

	return &Hub{
		Base:     hub.NewBase(cfg, opts.Clock),
		gw:       gw,
		palette:  opts.Palette,
		window:   opts.EchoWindow,
		steps:    opts.BrightnessSteps,
		observe:  opts.ObserveTimeout,
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
func (h *Hub) Cached() (LightState, bool) {
	return h.cached, h.known
}

// ListLights refreshes the gateway's light devices, sorted by device id so
// that configured indices address the same bulbs across polls.
func (h *Hub) ListLights(ctx context.Context) ([]Device, error) {
	devices, err := h.gw.Devices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	lights := make([]Device, 0, len(devices))
	for _, d := range devices {
		if d.IsLight() {
			lights = append(lights, d)
		}
	}
	sort.Slice(lights, func(i, j int) bool { return lights[i].ID < lights[j].ID })

	h.lights = lights
	log.Debug().Int("lights", len(lights)).Msg("Tradfri lights listed")
	return lights, nil
}

func (h *Hub) light(ctx context.Context, index int) (Device, error) {
	if h.lights == nil {
		if _, err := h.ListLights(ctx); err != nil {
			return Device{}, err
		}
	}
	if index < 0 || index >= len(h.lights) {
		return Device{}, fmt.Errorf("tradfri light index %d out of range (%d lights)", index, len(h.lights))
	}
	return h.lights[index], nil
}

// Observe refreshes one light and returns its state.
func (h *Hub) Observe(ctx context.Context, index int) (LightState, error) {
	dev, err := h.light(ctx, index)
	if err != nil {
		return LightState{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, h.observe)
	defer cancel()

	fresh, err := h.gw.Device(ctx, dev.ID)
	if err != nil {
		return LightState{}, fmt.Errorf("observe light %d: %w", index, err)
	}
	h.lights[index] = fresh
	return fresh.Light(), nil
}

// SetOne writes color, dimmer and power to one light, in that order, since
// some gateways reject a color change on a light that is off. A brightness
// of zero only switches the light off.
func (h *Hub) SetOne(ctx context.Context, index int, hex string, brightness int) error {
	dev, err := h.light(ctx, index)
	if err != nil {
		return err
	}

	if brightness <= 0 {
		if err := h.gw.SetState(ctx, dev.ID, false); err != nil {
			return fmt.Errorf("light %d off: %w", index, err)
		}
		return nil
	}

	if err := h.gw.SetHexColor(ctx, dev.ID, hex); err != nil {
		return fmt.Errorf("light %d color: %w", index, err)
	}
	if err := h.gw.SetDimmer(ctx, dev.ID, brightness); err != nil {
		return fmt.Errorf("light %d dimmer: %w", index, err)
	}
	if err := h.gw.SetState(ctx, dev.ID, true); err != nil {
		return fmt.Errorf("light %d on: %w", index, err)
	}
	return nil
}

// SetAll writes to every controlled light, one after another, so the
// gateway sees commands in a fixed order.
func (h *Hub) SetAll(ctx context.Context, hex string, brightness int) error {
	for _, index := range h.Controlled {
		if err := h.SetOne(ctx, index, hex, brightness); err != nil {
			return err
		}
	}
	return nil
}

// DetectChange observes the watched light and reports whether it differs
// from the cached state. The cache always follows the light, even while the
// counterpart's echo window forces the result to false.
func (h *Hub) DetectChange(ctx context.Context) (bool, error) {
	if h.counterpart == nil {
		return false, fmt.Errorf("tradfri: %w", hub.ErrNotConfigured)
	}

	st, err := h.Observe(ctx, h.Main)
	if err != nil {
		return false, err
	}

	changed := !h.known || st != h.cached
	h.cached = st
	h.known = true
	if i, err := h.palette.IndexOfHex(st.Hex); err == nil {
		h.colorIndex = i
	}

	if h.counterpart.RecentlyChanged(h.window) {
		if changed {
			log.Info().Str("hub", Name).Str("source", h.counterpart.Name()).Msg("Sync skipped")
			metrics.RecordEchoSuppressed(Name)
			h.recorder.Record(hub.Event{
				Kind: hub.EventEchoSuppressed, Hub: Name, Target: h.counterpart.Name(),
				On: st.On, Hex: st.Hex, Brightness: st.Dimmer,
			})
		}
		return false, nil
	}
	return changed, nil
}

// Update pushes a detected change of the watched light to the counterpart.
func (h *Hub) Update(ctx context.Context) error {
	if h.counterpart == nil {
		return fmt.Errorf("tradfri: %w", hub.ErrNotConfigured)
	}

	changed, err := h.DetectChange(ctx)
	if err != nil || !changed {
		return err
	}

	st := h.cached
	hsb := palette.HSB{On: false}
	if st.On {
		hsb, err = h.palette.HSBForHex(st.Hex, st.Dimmer)
		if errors.Is(err, palette.ErrUnknownColor) {
			log.Info().Str("hub", Name).Str("hex", st.Hex).Msg("Unknown color, ignoring")
			metrics.RecordUnknownColor(Name)
			h.recorder.Record(hub.Event{Kind: hub.EventUnknownColor, Hub: Name, On: st.On, Hex: st.Hex, Brightness: st.Dimmer})
			return nil
		}
		if err != nil {
			return err
		}
	}

	h.MarkChangedNow()
	if hsb.On {
		log.Info().Str("hub", Name).Int("hue", hsb.Hue).Int("sat", hsb.Saturation).Int("bri", hsb.Brightness).Msg("Send to hue")
	} else {
		log.Info().Str("hub", Name).Msg("Turn off")
	}

	target := h.counterpart.Name()
	if err := h.counterpart.PushToSelected(ctx, hsb); err != nil {
		return fmt.Errorf("push to %s: %w", target, err)
	}

	metrics.RecordPropagation(Name, target)
	h.recorder.Record(hub.Event{
		Kind: hub.EventPropagated, Hub: Name, Target: target,
		On: hsb.On, Hex: st.Hex, Hue: hsb.Hue, Saturation: hsb.Saturation, Brightness: hsb.Brightness,
	})
	return nil
}
