package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/amimof/huego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/huefri/internal/config"
	"github.com/dokzlo13/huefri/internal/hub"
	"github.com/dokzlo13/huefri/internal/syncer"
	"github.com/dokzlo13/huefri/internal/tradfri"
)

type bridge struct {
	mu     sync.Mutex
	lights map[int]huego.State
	err    error
}

func newBridge(n int) *bridge {
	b := &bridge{lights: map[int]huego.State{}}
	for id := 1; id <= n; id++ {
		b.lights[id] = huego.State{Hue: 6188, Sat: 249, Bri: 100}
	}
	return b
}

func (b *bridge) GetLightsContext(ctx context.Context) ([]huego.Light, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	var out []huego.Light
	for id, st := range b.lights {
		s := st
		out = append(out, huego.Light{ID: id, State: &s})
	}
	return out, nil
}

func (b *bridge) GetLightContext(ctx context.Context, i int) (*huego.Light, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.lights[i]
	if !ok {
		return nil, errors.New("resource not available")
	}
	return &huego.Light{ID: i, State: &s}, nil
}

func (b *bridge) SetLightStateContext(ctx context.Context, i int, s huego.State) (*huego.Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := b.lights[i]
	st.On = s.On
	if s.On {
		st.Hue, st.Sat, st.Bri = s.Hue, s.Sat, s.Bri
	}
	b.lights[i] = st
	return &huego.Response{}, nil
}

func (b *bridge) get(i int) huego.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lights[i]
}

type gateway struct {
	mu      sync.Mutex
	devices map[int]*tradfri.Device
}

func ptr(v int) *int { return &v }

func newGateway(ids ...int) *gateway {
	g := &gateway{devices: map[int]*tradfri.Device{}}
	for _, id := range ids {
		g.devices[id] = &tradfri.Device{ID: id, LightControl: []tradfri.LightControl{{
			OnOff: ptr(1), Dimmer: ptr(100), ColorHex: "efd275",
		}}}
	}
	return g
}

func (g *gateway) Devices(ctx context.Context) ([]tradfri.Device, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []tradfri.Device
	for _, d := range g.devices {
		out = append(out, *d)
	}
	return out, nil
}

func (g *gateway) Device(ctx context.Context, id int) (tradfri.Device, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	d := *g.devices[id]
	d.LightControl = append([]tradfri.LightControl(nil), d.LightControl...)
	return d, nil
}

func (g *gateway) lc(id int) *tradfri.LightControl {
	return &g.devices[id].LightControl[0]
}

func (g *gateway) SetHexColor(ctx context.Context, id int, hex string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lc(id).ColorHex = hex
	return nil
}

func (g *gateway) SetDimmer(ctx context.Context, id int, dimmer int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lc(id).Dimmer = ptr(dimmer)
	return nil
}

func (g *gateway) SetState(ctx context.Context, id int, on bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	v := 0
	if on {
		v = 1
	}
	g.lc(id).OnOff = ptr(v)
	return nil
}

func (g *gateway) hex(id int) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lc(id).ColorHex
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(`
hue: { address: bridge, secret: user, main: 1, controlled: [1, 2, 3] }
tradfri: { address: gw, secret: psk, main: 0, controlled: [0, 1, 2] }
sync: { interval: 10ms, echo_window: 5s }
`))
	require.NoError(t, err)
	return cfg
}

func TestHubService_Connect(t *testing.T) {
	s := NewHubServiceWith(testConfig(t), hub.NopRecorder{}, newBridge(4), newGateway(65536, 65537, 65538))
	require.NoError(t, s.Connect(context.Background()))
	defer s.Close()

	c, err := s.Controller("hue")
	require.NoError(t, err)
	assert.Same(t, s.Hue, c)
	c, err = s.Controller("tradfri")
	require.NoError(t, err)
	assert.Same(t, s.Tradfri, c)
	_, err = s.Controller("lifx")
	assert.Error(t, err)
}

func TestHubService_ConnectFailures(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	b := newBridge(4)
	b.err = errors.New("unauthorized user")
	err := NewHubServiceWith(cfg, hub.NopRecorder{}, b, newGateway(1, 2, 3)).Connect(ctx)
	assert.ErrorContains(t, err, "unauthorized user")

	cfg.Hue.Main = 9
	err = NewHubServiceWith(cfg, hub.NopRecorder{}, newBridge(4), newGateway(1, 2, 3)).Connect(ctx)
	assert.ErrorContains(t, err, "hue watched light 9")

	cfg.Hue.Main = 1
	err = NewHubServiceWith(cfg, hub.NopRecorder{}, newBridge(4), newGateway(1, 2)).Connect(ctx)
	assert.ErrorContains(t, err, "tradfri light index 2 out of range")

	s := NewHubServiceWith(cfg, hub.NopRecorder{}, newBridge(4), newGateway(1, 2, 3))
	_, err = s.Controller("hue")
	assert.ErrorIs(t, err, hub.ErrNotConfigured)
}

func TestServices_SyncAndManualControl(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ledger.Path = filepath.Join(t.TempDir(), "ledger.sqlite")

	svcs, err := NewServices(cfg)
	require.NoError(t, err)
	defer svcs.Close()
	require.True(t, svcs.Ledger.Enabled())

	br := newBridge(4)
	gw := newGateway(65536, 65537, 65538)
	svcs.Hubs = NewHubServiceWith(cfg, svcs.Ledger.Recorder(), br, gw)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, svcs.Start(ctx))
	require.Eventually(t, svcs.Sync.Ready, time.Second, 5*time.Millisecond)

	require.NoError(t, svcs.Sync.Submit(ctx, syncer.Command{Hub: "tradfri", Name: syncer.CommandColorSet, Index: 2}))
	for _, id := range []int{65536, 65537, 65538} {
		assert.Equal(t, "f5faf6", gw.hex(id))
	}

	require.Eventually(t, func() bool {
		entries, err := svcs.Ledger.Ledger.GetByKind(hub.EventManual, 10)
		return err == nil && len(entries) == 1 && entries[0].Hub == "tradfri"
	}, time.Second, 5*time.Millisecond, "manual command reaches the ledger")

	cancel()
	select {
	case <-svcs.Sync.Done():
	case <-time.After(time.Second):
		t.Fatal("sync loop did not stop")
	}
	assert.Equal(t, syncer.StateTerminated, svcs.Sync.Loop.State())
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestServices_CloseReportsFailures(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ledger.Path = filepath.Join(t.TempDir(), "ledger.sqlite")

	svcs, err := NewServices(cfg)
	require.NoError(t, err)
	svcs.Hubs.closer = closerFunc(func() error { return errors.New("handshake still running") })

	err = svcs.Stop()
	assert.ErrorContains(t, err, "close tradfri session: handshake still running")
	assert.Nil(t, svcs.Ledger.DB, "ledger closed despite the gateway failure")

	assert.NoError(t, svcs.Stop(), "nothing left to release")
}
