package tradfri

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	piondtls "github.com/pion/dtls/v2"
	"github.com/plgd-dev/go-coap/v3/dtls"
	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/plgd-dev/go-coap/v3/message/pool"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huefri/internal/metrics"
)

const (
	defaultPort     = "5684"
	defaultIdentity = "Client_identity"
	defaultTimeout  = 5 * time.Second
)

// Gateway is the subset of the gateway API the adapter needs.
type Gateway interface {
	Devices(ctx context.Context) ([]Device, error)
	Device(ctx context.Context, id int) (Device, error)
	SetHexColor(ctx context.Context, id int, hex string) error
	SetDimmer(ctx context.Context, id int, dimmer int) error
	SetState(ctx context.Context, id int, on bool) error
}

type coapConn interface {
	Get(ctx context.Context, path string, opts ...message.Option) (*pool.Message, error)
	Put(ctx context.Context, path string, contentFormat message.MediaType, payload io.ReadSeeker, opts ...message.Option) (*pool.Message, error)
	Close() error
}

// Client talks CoAP over DTLS to a Tradfri gateway.
type Client struct {
	address string
	timeout time.Duration
	conn    coapConn
}

// Dial opens a DTLS session with the gateway using a pre-shared key.
func Dial(address, identity, psk string, timeout time.Duration) (*Client, error) {
	if identity == "" {
		identity = defaultIdentity
	}
	if timeout == 0 {
		timeout = defaultTimeout
	}
	if _, _, err := net.SplitHostPort(address); err != nil {
		address = net.JoinHostPort(address, defaultPort)
	}

	conn, err := dtls.Dial(address, &piondtls.Config{
		PSK: func(hint []byte) ([]byte, error) {
			return []byte(psk), nil
		},
		PSKIdentityHint: []byte(identity),
		CipherSuites:    []piondtls.CipherSuiteID{piondtls.TLS_PSK_WITH_AES_128_CCM_8},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Tradfri gateway %s: %w", address, err)
	}

	log.Info().Str("address", address).Msg("Connected to Tradfri gateway")
	return &Client{address: address, timeout: timeout, conn: conn}, nil
}

// Close closes the DTLS session.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Address returns the gateway address
func (c *Client) Address() string {
	return c.address
}

func (c *Client) get(ctx context.Context, path string, out any) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveRequest("tradfri", "get", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.conn.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	if resp.Code() != codes.Content {
		return fmt.Errorf("GET %s: unexpected response code %v", path, resp.Code())
	}
	body := resp.Body()
	if body == nil {
		return fmt.Errorf("GET %s: empty response", path)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	return nil
}

func (c *Client) put(ctx context.Context, path string, payload any) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveRequest("tradfri", "put", start, err) }()

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.conn.Put(ctx, path, message.AppJSON, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("PUT %s: %w", path, err)
	}
	if resp.Code() != codes.Changed {
		return fmt.Errorf("PUT %s: unexpected response code %v", path, resp.Code())
	}

	log.Debug().Str("path", path).RawJSON("payload", data).Msg("Tradfri write")
	return nil
}

func devicePath(id int) string {
	return "/" + pathDevices + "/" + strconv.Itoa(id)
}

// Devices lists every device paired with the gateway.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	var ids []int
	if err := c.get(ctx, "/"+pathDevices, &ids); err != nil {
		return nil, err
	}

	devices := make([]Device, 0, len(ids))
	for _, id := range ids {
		dev, err := c.Device(ctx, id)
		if err != nil {
			return nil, err
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

// Device reads a single device.
func (c *Client) Device(ctx context.Context, id int) (Device, error) {
	var dev Device
	if err := c.get(ctx, devicePath(id), &dev); err != nil {
		return Device{}, err
	}
	return dev, nil
}

// lightPayload builds a write touching a single light-control attribute.
func lightPayload(key string, value any) map[string]any {
	return map[string]any{
		attrLightControl: []map[string]any{{key: value}},
	}
}

func (c *Client) setLight(ctx context.Context, id int, key string, value any) error {
	return c.put(ctx, devicePath(id), lightPayload(key, value))
}

// SetHexColor sets the color of a light.
func (c *Client) SetHexColor(ctx context.Context, id int, hex string) error {
	return c.setLight(ctx, id, attrColorHex, hex)
}

// SetDimmer sets the brightness of a light.
func (c *Client) SetDimmer(ctx context.Context, id int, dimmer int) error {
	return c.setLight(ctx, id, attrDimmer, dimmer)
}

// SetState switches a light on or off.
func (c *Client) SetState(ctx context.Context, id int, on bool) error {
	v := 0
	if on {
		v = 1
	}
	return c.setLight(ctx, id, attrOnOff, v)
}
