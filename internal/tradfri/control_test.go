package tradfri

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCycleColor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.clk.Advance(2 * window)
	f.gw.touch(100, true, 120, "efd275")
	_, err := f.hub.DetectChange(ctx)
	require.NoError(t, err)

	require.NoError(t, f.hub.CycleColorNext(ctx))
	assert.Equal(t, LightState{On: true, Dimmer: 120, Hex: "f1e0b5"}, f.gw.devices[101].Light())
	assert.True(t, f.hub.RecentlyChanged(window))

	require.NoError(t, f.hub.CycleColorNext(ctx))
	assert.Equal(t, "f5faf6", f.gw.devices[101].Light().Hex)

	require.NoError(t, f.hub.CycleColorNext(ctx))
	assert.Equal(t, "efd275", f.gw.devices[101].Light().Hex, "wraps around")

	require.NoError(t, f.hub.CycleColorPrev(ctx))
	assert.Equal(t, "f5faf6", f.gw.devices[101].Light().Hex, "wraps backwards")
}

func TestSetColorByIndex_OutOfRange(t *testing.T) {
	f := newFixture(t)
	assert.Error(t, f.hub.SetColorByIndex(context.Background(), 42))
	assert.Empty(t, f.gw.writes)
}

func TestBrightnessSteps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gw.touch(100, true, 100, "f1e0b5")

	require.NoError(t, f.hub.IncreaseBrightness(ctx))
	assert.Equal(t, LightState{On: true, Dimmer: 131, Hex: "f1e0b5"}, f.gw.devices[102].Light())

	f.gw.touch(100, true, 20, "f1e0b5")
	_, err := f.hub.DetectChange(ctx)
	require.NoError(t, err)
	require.NoError(t, f.hub.DecreaseBrightness(ctx))
	assert.Equal(t, 1, f.gw.devices[102].Light().Dimmer, "clamped to minimum")
}

func TestBlink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.hub.Blink(ctx, 3, 0))
	assert.Equal(t, LightState{On: true, Dimmer: identifyBright, Hex: IdentifyHex}, f.gw.devices[103].Light())

	require.NoError(t, f.hub.Blink(ctx, 3, 1))
	assert.Equal(t, identifyDim, f.gw.devices[103].Light().Dimmer)
}

func TestIdentify(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.hub.Identify(context.Background(), 1, 0))
	// three writes per step
	assert.Len(t, f.gw.writes, 3*IdentifySteps)
}

func TestDeviceDecoding(t *testing.T) {
	raw := `{"9003":65537,"9001":"Living room","3311":[{"5850":1,"5851":203,"5706":"f1e0b5"}]}`

	var d Device
	require.NoError(t, json.Unmarshal([]byte(raw), &d))
	assert.Equal(t, 65537, d.ID)
	assert.Equal(t, "Living room", d.Name)
	assert.True(t, d.IsLight())
	assert.Equal(t, LightState{On: true, Dimmer: 203, Hex: "f1e0b5"}, d.Light())

	var remote Device
	require.NoError(t, json.Unmarshal([]byte(`{"9003":65536,"9001":"Remote"}`), &remote))
	assert.False(t, remote.IsLight())
	assert.Equal(t, LightState{}, remote.Light())
}

func TestLightPayload(t *testing.T) {
	data, err := json.Marshal(lightPayload(attrDimmer, 100))
	require.NoError(t, err)
	assert.JSONEq(t, `{"3311":[{"5851":100}]}`, string(data))

	assert.Equal(t, "/15001/65537", devicePath(65537))
}
