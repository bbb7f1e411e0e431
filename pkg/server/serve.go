package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/openfroyo/froyo-provider/pkg/telemetry"
	"github.com/openfroyo/froyo-provider/pkg/wire"
)

// Server accepts protocol connections and feeds their requests to a
// servicer. Each connection carries newline-framed envelopes; requests on a
// connection are handled concurrently, with responses serialized back onto
// the connection's encoder.
type Server struct {
	servicer *Servicer
	log      *telemetry.Logger

	mu sync.Mutex
	ln net.Listener
	wg sync.WaitGroup
}

// NewServer creates a server for the given servicer.
func NewServer(servicer *Servicer, log *telemetry.Logger) *Server {
	if log == nil {
		log = telemetry.FromContext(context.Background())
	}
	return &Server{
		servicer: servicer,
		log:      log.NewComponentLogger("server"),
	}
}

// Listen binds the server to addr. Port 0 picks an ephemeral port.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	return nil
}

// Port returns the bound TCP port. Valid after Listen.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return 0
	}
	return s.ln.Addr().(*net.TCPAddr).Port
}

// Announce writes the bound port to w, followed by a newline. The engine
// reads this handshake from the host's stdout before connecting, so it must
// be the first thing written there.
func (s *Server) Announce(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%d\n", s.Port()); err != nil {
		return fmt.Errorf("failed to announce port: %w", err)
	}
	return nil
}

// Serve accepts connections until the context is cancelled or the listener
// is closed.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return errors.New("server is not listening")
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// Close shuts the listener down. In-flight requests finish; Serve returns
// once they have.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	log := s.log.WithField("remote", conn.RemoteAddr().String())
	log.Debug("connection opened")

	dec := wire.NewDecoder(conn)
	enc := wire.NewEncoder(conn)

	// Responses from concurrent handlers interleave on one stream; the
	// encoder is guarded so envelopes never tear.
	var encMu sync.Mutex
	var reqWG sync.WaitGroup

	for {
		req, err := dec.DecodeRequest()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.WithError(err).Warn("failed to decode request")
			}
			break
		}

		reqWG.Add(1)
		go func(req *wire.Request) {
			defer reqWG.Done()
			resp := s.servicer.Handle(ctx, req)
			encMu.Lock()
			defer encMu.Unlock()
			if err := enc.EncodeResponse(resp); err != nil {
				log.WithError(err).Error("failed to write response")
			}
		}(req)
	}

	reqWG.Wait()
	log.Debug("connection closed")
}
