package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openfroyo/froyo-provider/pkg/wire"
)

// fakeMonitor answers monitor requests on the far side of a pipe.
type fakeMonitor struct {
	conn   net.Conn
	handle func(req *wire.Request) *wire.Response

	requests int32
}

func startFakeMonitor(t *testing.T, handle func(req *wire.Request) *wire.Response) (*Client, *fakeMonitor) {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	m := &fakeMonitor{conn: serverConn, handle: handle}
	go m.serve()

	c := NewClient(clientConn, nil)
	t.Cleanup(func() {
		c.Close()
		serverConn.Close()
	})
	return c, m
}

func (m *fakeMonitor) serve() {
	dec := wire.NewDecoder(m.conn)
	enc := wire.NewEncoder(m.conn)
	var mu sync.Mutex
	for {
		req, err := dec.DecodeRequest()
		if err != nil {
			return
		}
		atomic.AddInt32(&m.requests, 1)
		go func(req *wire.Request) {
			resp := m.handle(req)
			mu.Lock()
			defer mu.Unlock()
			enc.EncodeResponse(resp)
		}(req)
	}
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestRegisterResource(t *testing.T) {
	c, _ := startFakeMonitor(t, func(req *wire.Request) *wire.Response {
		if req.Method != wire.MethodRegisterResource {
			return wire.NewErrorResponse(req.ID, wire.NewError(wire.CodeInternal, "unexpected method"))
		}
		var rr wire.RegisterResourceRequest
		if err := wire.ParsePayload(req.Payload, &rr); err != nil {
			return wire.NewErrorResponse(req.ID, wire.NewError(wire.CodeInternal, err.Error()))
		}
		resp, err := wire.NewResponse(req.ID, wire.RegisterResourceResponse{
			URN: fmt.Sprintf("urn:froyo:st::pr::%s::%s", rr.Type, rr.Name),
			ID:  "i-1",
			Object: wire.PropertyMap{
				"key": wire.String("k"),
			},
		})
		if err != nil {
			return wire.NewErrorResponse(req.ID, wire.NewError(wire.CodeInternal, err.Error()))
		}
		return resp
	})

	resp, err := c.RegisterResource(testCtx(t), &wire.RegisterResourceRequest{
		Type:   "kv:index:Pair",
		Name:   "n",
		Custom: true,
		Object: wire.PropertyMap{"key": wire.String("k")},
	})
	if err != nil {
		t.Fatalf("RegisterResource failed: %v", err)
	}
	if resp.URN != "urn:froyo:st::pr::kv:index:Pair::n" {
		t.Errorf("urn = %q", resp.URN)
	}
	if resp.ID != "i-1" {
		t.Errorf("id = %q, want i-1", resp.ID)
	}
	if got := resp.Object["key"]; !got.Equal(wire.String("k")) {
		t.Errorf("object.key = %s", got)
	}
}

func TestRegisterResourceValidation(t *testing.T) {
	c, m := startFakeMonitor(t, func(req *wire.Request) *wire.Response {
		resp, _ := wire.NewResponse(req.ID, wire.RegisterResourceResponse{URN: "urn:x"})
		return resp
	})

	if _, err := c.RegisterResource(testCtx(t), &wire.RegisterResourceRequest{Name: "n"}); err == nil {
		t.Error("expected an error for a missing type")
	}
	if got := atomic.LoadInt32(&m.requests); got != 0 {
		t.Errorf("sent %d requests, want 0", got)
	}
}

func TestSupportsFeatureCaching(t *testing.T) {
	c, m := startFakeMonitor(t, func(req *wire.Request) *wire.Response {
		resp, _ := wire.NewResponse(req.ID, wire.SupportsFeatureResponse{HasSupport: true})
		return resp
	})

	ctx := testCtx(t)
	for i := 0; i < 3; i++ {
		supported, err := c.SupportsFeature(ctx, "outputValues")
		if err != nil {
			t.Fatalf("SupportsFeature failed: %v", err)
		}
		if !supported {
			t.Error("feature reported unsupported")
		}
	}
	if got := atomic.LoadInt32(&m.requests); got != 1 {
		t.Errorf("sent %d requests, want 1", got)
	}
}

func TestConcurrentCallsCorrelate(t *testing.T) {
	c, _ := startFakeMonitor(t, func(req *wire.Request) *wire.Response {
		var rr wire.RegisterResourceRequest
		if err := wire.ParsePayload(req.Payload, &rr); err != nil {
			return wire.NewErrorResponse(req.ID, wire.NewError(wire.CodeInternal, err.Error()))
		}
		resp, _ := wire.NewResponse(req.ID, wire.RegisterResourceResponse{URN: "urn:" + rr.Name})
		return resp
	})

	ctx := testCtx(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("r%d", i)
			resp, err := c.RegisterResource(ctx, &wire.RegisterResourceRequest{Type: "t", Name: name})
			if err != nil {
				t.Errorf("RegisterResource(%s) failed: %v", name, err)
				return
			}
			if resp.URN != "urn:"+name {
				t.Errorf("RegisterResource(%s) returned %q", name, resp.URN)
			}
		}(i)
	}
	wg.Wait()
}

func TestErrorResponse(t *testing.T) {
	c, _ := startFakeMonitor(t, func(req *wire.Request) *wire.Response {
		return wire.NewErrorResponse(req.ID, wire.NewError(wire.CodeUnavailable, "engine shutting down"))
	})

	err := c.RegisterResourceOutputs(testCtx(t), "urn:x", nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	var werr *wire.Error
	if !errors.As(err, &werr) || werr.Code != wire.CodeUnavailable {
		t.Errorf("error = %v, want code %s", err, wire.CodeUnavailable)
	}
}

func TestConnectionLossFailsPendingCalls(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	c := NewClient(clientConn, nil)
	t.Cleanup(func() { c.Close() })

	dec := wire.NewDecoder(serverConn)
	go func() {
		// Swallow one request, then drop the connection.
		dec.DecodeRequest()
		serverConn.Close()
	}()

	_, err := c.RegisterResource(testCtx(t), &wire.RegisterResourceRequest{Type: "t", Name: "n"})
	if err == nil {
		t.Fatal("expected an error after connection loss")
	}

	// Later calls fail fast without hanging.
	if err := c.RegisterResourceOutputs(testCtx(t), "urn:x", nil); err == nil {
		t.Error("expected an error from a closed client")
	}
}
