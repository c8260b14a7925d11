package hue

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huefri/internal/hub"
	"github.com/dokzlo13/huefri/internal/palette"
)

func (h *Hub) current(ctx context.Context) (palette.HSB, error) {
	if h.known {
		return h.cached, nil
	}
	return h.ReadWatched(ctx)
}

// SetColorByIndex sets every controlled light to palette entry i, keeping
// the watched light's brightness. The hub marks itself changed first so the
// counterpart does not treat the write as its own echo.
func (h *Hub) SetColorByIndex(ctx context.Context, i int) error {
	entry, err := h.palette.At(i)
	if err != nil {
		return err
	}
	st, err := h.current(ctx)
	if err != nil {
		return err
	}
	bri := st.Brightness
	if bri <= 0 {
		bri = hub.MaxBrightness
	}

	h.colorIndex = i
	h.MarkChangedNow()
	log.Info().Str("hub", Name).Int("index", i).Str("hex", entry.Hex).Int("bri", bri).Msg("Manual color")
	return h.PushToSelected(ctx, palette.HSB{On: true, Hue: entry.Hue, Saturation: entry.Saturation, Brightness: bri})
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
	st.On = true
	st.Brightness = hub.StepBrightness(st.Brightness, h.steps, up)

	h.MarkChangedNow()
	log.Info().Str("hub", Name).Int("bri", st.Brightness).Msg("Manual brightness")
	return h.PushToSelected(ctx, st)
}

var _ hub.Controller = (*Hub)(nil)
var _ hub.Hub = (*Hub)(nil)
