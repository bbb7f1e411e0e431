package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/openfroyo/froyo-provider/pkg/telemetry"
	"github.com/openfroyo/froyo-provider/pkg/wire"
)

// dialTimeout bounds how long Dial waits for the engine to accept.
const dialTimeout = 10 * time.Second

// Client is a resource monitor client. It is safe for concurrent use; calls
// from multiple goroutines interleave on one connection and are matched to
// their responses by envelope ID.
type Client struct {
	conn io.ReadWriteCloser
	log  *telemetry.Logger

	encMu sync.Mutex
	enc   *wire.Encoder

	mu       sync.Mutex
	pending  map[string]chan *wire.Response
	features map[string]bool
	closed   bool
	readErr  error
}

// Dial connects to the monitor at endpoint, a host:port address handed to
// the provider in a Construct or Call request.
func Dial(ctx context.Context, endpoint string, log *telemetry.Logger) (*Client, error) {
	if endpoint == "" {
		return nil, errors.New("monitor endpoint is required")
	}
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to dial monitor at %s: %w", endpoint, err)
	}
	return NewClient(conn, log), nil
}

// NewClient wraps an established connection. It takes ownership of conn and
// starts the response reader.
func NewClient(conn io.ReadWriteCloser, log *telemetry.Logger) *Client {
	if log == nil {
		log = telemetry.FromContext(context.Background())
	}
	c := &Client{
		conn:     conn,
		log:      log.NewComponentLogger("monitor"),
		enc:      wire.NewEncoder(conn),
		pending:  make(map[string]chan *wire.Response),
		features: make(map[string]bool),
	}
	go c.readLoop(wire.NewDecoder(conn))
	return c
}

// RegisterResource registers a resource with the engine and returns its
// assigned URN along with the resolved state.
func (c *Client) RegisterResource(ctx context.Context, req *wire.RegisterResourceRequest) (*wire.RegisterResourceResponse, error) {
	if req.Type == "" || req.Name == "" {
		return nil, errors.New("resource type and name are required")
	}
	var resp wire.RegisterResourceResponse
	if err := c.roundTrip(ctx, wire.MethodRegisterResource, req, &resp); err != nil {
		return nil, err
	}
	c.log.WithField("urn", resp.URN).Debug("registered resource")
	return &resp, nil
}

// RegisterResourceOutputs attaches output properties to a previously
// registered resource, usually the component itself.
func (c *Client) RegisterResourceOutputs(ctx context.Context, urn string, outputs wire.PropertyMap) error {
	if urn == "" {
		return errors.New("resource urn is required")
	}
	req := wire.RegisterResourceOutputsRequest{URN: urn, Outputs: outputs}
	var resp wire.RegisterResourceOutputsResponse
	return c.roundTrip(ctx, wire.MethodRegisterResourceOutputs, req, &resp)
}

// SupportsFeature reports whether the engine implements the named feature.
// Results are cached for the lifetime of the client.
func (c *Client) SupportsFeature(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	if supported, ok := c.features[id]; ok {
		c.mu.Unlock()
		return supported, nil
	}
	c.mu.Unlock()

	var resp wire.SupportsFeatureResponse
	if err := c.roundTrip(ctx, wire.MethodSupportsFeature, wire.SupportsFeatureRequest{ID: id}, &resp); err != nil {
		return false, err
	}

	c.mu.Lock()
	c.features[id] = resp.HasSupport
	c.mu.Unlock()
	return resp.HasSupport, nil
}

// Close tears the connection down. Outstanding calls fail.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.conn.Close()
}

func (c *Client) roundTrip(ctx context.Context, method wire.Method, payload, target interface{}) error {
	req, err := wire.NewRequest(method, payload)
	if err != nil {
		return err
	}

	ch := make(chan *wire.Response, 1)
	c.mu.Lock()
	if c.closed {
		err := c.readErr
		c.mu.Unlock()
		if err == nil {
			err = errors.New("monitor client is closed")
		}
		return err
	}
	c.pending[req.ID] = ch
	c.mu.Unlock()

	c.encMu.Lock()
	err = c.enc.EncodeRequest(req)
	c.encMu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, req.ID)
		c.mu.Unlock()
		return fmt.Errorf("failed to send %s: %w", method, err)
	}

	select {
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, req.ID)
		c.mu.Unlock()
		return ctx.Err()
	case resp, ok := <-ch:
		if !ok {
			c.mu.Lock()
			err := c.readErr
			c.mu.Unlock()
			if err == nil {
				err = errors.New("monitor connection closed")
			}
			return fmt.Errorf("%s failed: %w", method, err)
		}
		if resp.Error != nil {
			return resp.Error
		}
		return wire.ParsePayload(resp.Result, target)
	}
}

// readLoop routes responses to their waiting callers. On a read error every
// outstanding call is failed and the client closes.
func (c *Client) readLoop(dec *wire.Decoder) {
	for {
		resp, err := dec.DecodeResponse()
		if err != nil {
			c.mu.Lock()
			c.closed = true
			if !errors.Is(err, io.EOF) {
				c.readErr = err
			}
			for id, ch := range c.pending {
				close(ch)
				delete(c.pending, id)
			}
			c.mu.Unlock()
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				c.log.WithError(err).Warn("monitor connection failed")
			}
			return
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()
		if !ok {
			c.log.WithField("response_id", resp.ID).Warn("dropping unmatched monitor response")
			continue
		}
		ch <- resp
	}
}
