package tradfri

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huefri/internal/hub"
)

// Blink colors used to identify a light.
const (
	IdentifyHex    = "f1e0b5"
	identifyBright = 254
	identifyDim    = 50
	IdentifySteps  = 7
	IdentifyPause  = time.Second
)

func (h *Hub) current(ctx context.Context) (LightState, error) {
	if h.known {
		return h.cached, nil
	}
	return h.Observe(ctx, h.Main)
}

// SetColorByIndex sets every controlled light to palette entry i, keeping
// the watched light's brightness.
func (h *Hub) SetColorByIndex(ctx context.Context, i int) error {
	entry, err := h.palette.At(i)
	if err != nil {
		return err
	}
	st, err := h.current(ctx)
	if err != nil {
		return err
	}
	bri := st.Dimmer
	if bri <= 0 {
		bri = hub.MaxBrightness
	}

	h.colorIndex = i
	h.MarkChangedNow()
	log.Info().Str("hub", Name).Str("hex", entry.Hex).Int("bri", bri).Msg("Manual color")
	return h.SetAll(ctx, entry.Hex, bri)
}

// CycleColorNext moves to the next palette color.
func (h *Hub) CycleColorNext(ctx context.Context) error {
	return h.SetColorByIndex(ctx, hub.NextIndex(h.colorIndex, 1, h.palette.Len()))
}

// CycleColorPrev moves to the previous palette color.
func (h *Hub) CycleColorPrev(ctx context.Context) error {
	return h.SetColorByIndex(ctx, hub.NextIndex(h.colorIndex, -1, h.palette.Len()))
}

// IncreaseBrightness raises the controlled lights by one step.
func (h *Hub) IncreaseBrightness(ctx context.Context) error {
	return h.stepBrightness(ctx, true)
}

// DecreaseBrightness lowers the controlled lights by one step.
func (h *Hub) DecreaseBrightness(ctx context.Context) error {
	return h.stepBrightness(ctx, false)
}

func (h *Hub) stepBrightness(ctx context.Context, up bool) error {
	st, err := h.current(ctx)
	if err != nil {
		return err
	}
	bri := hub.StepBrightness(st.Dimmer, h.steps, up)
	hex := st.Hex
	if hex == "" {
		entry, err := h.palette.At(h.colorIndex)
		if err != nil {
			return err
		}
		hex = entry.Hex
	}

	h.MarkChangedNow()
	log.Info().Str("hub", Name).Str("hex", hex).Int("bri", bri).Msg("Manual brightness")
	return h.SetAll(ctx, hex, bri)
}

// Blink performs one identify step on light index: bright on even steps,
// dim on odd ones.
func (h *Hub) Blink(ctx context.Context, index, step int) error {
	bri := identifyBright
	if step%2 == 1 {
		bri = identifyDim
	}
	if err := h.SetOne(ctx, index, IdentifyHex, bri); err != nil {
		return fmt.Errorf("blink light %d: %w", index, err)
	}
	return nil
}

// Identify blinks light index IdentifySteps times, pause apart, retrying
// steps that time out.
func (h *Hub) Identify(ctx context.Context, index int, pause time.Duration) error {
	for step := 0; step < IdentifySteps; step++ {
		for {
			err := h.Blink(ctx, index, step)
			if err == nil {
				break
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !hub.IsTimeout(err) {
				return err
			}
			log.Warn().Int("light", index).Msg("Tradfri request timeout, retrying")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pause):
		}
	}
	return nil
}

var _ hub.Controller = (*Hub)(nil)
var _ hub.Hub = (*Hub)(nil)
