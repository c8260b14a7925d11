package hue

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/amimof/huego"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huefri/internal/metrics"
)

const defaultTimeout = 5 * time.Second

// Bridge is the subset of *huego.Bridge used here.
type Bridge interface {
	GetLightsContext(ctx context.Context) ([]huego.Light, error)
	GetLightContext(ctx context.Context, i int) (*huego.Light, error)
	SetLightStateContext(ctx context.Context, i int, l huego.State) (*huego.Response, error)
}

// Client gives bridge calls a per-request timeout and records their latency.
type Client struct {
	address string
	timeout time.Duration
	bridge  Bridge
}

// NewClient creates a client for the bridge at address using an existing
// whitelisted user.
func NewClient(address, user string, timeout time.Duration) *Client {
	return NewClientWithBridge(address, huego.New(address, user), timeout)
}

// NewClientWithBridge wraps an arbitrary Bridge implementation.
func NewClientWithBridge(address string, bridge Bridge, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{address: address, timeout: timeout, bridge: bridge}
}

// Connect verifies that the bridge is reachable and the user is authorized.
func (c *Client) Connect(ctx context.Context) error {
	lights, err := c.Lights(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to Hue bridge %s: %w", c.address, err)
	}
	log.Info().Str("address", c.address).Int("lights", len(lights)).Msg("Connected to Hue bridge")
	return nil
}

// Address returns the bridge address
func (c *Client) Address() string {
	return c.address
}

// Lights returns all lights sorted by id.
func (c *Client) Lights(ctx context.Context) (lights []huego.Light, err error) {
	start := time.Now()
	defer func() { metrics.ObserveRequest("hue", "lights", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	lights, err = c.bridge.GetLightsContext(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(lights, func(i, j int) bool { return lights[i].ID < lights[j].ID })
	return lights, nil
}

// Light returns one light by its bridge id.
func (c *Client) Light(ctx context.Context, id int) (light *huego.Light, err error) {
	start := time.Now()
	defer func() { metrics.ObserveRequest("hue", "light", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	light, err = c.bridge.GetLightContext(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get light %d: %w", id, err)
	}
	return light, nil
}

// SetLightState writes state to one light.
func (c *Client) SetLightState(ctx context.Context, id int, state huego.State) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveRequest("hue", "set_state", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if _, err = c.bridge.SetLightStateContext(ctx, id, state); err != nil {
		return fmt.Errorf("set light %d: %w", id, err)
	}

	log.Debug().
		Int("light", id).
		Bool("on", state.On).
		Uint16("hue", state.Hue).
		Uint8("sat", state.Sat).
		Uint8("bri", state.Bri).
		Msg("Hue write")
	return nil
}
