package wire

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// Request is the envelope for a single RPC request.
type Request struct {
	// ID correlates the request with its response.
	ID string `json:"id"`

	// Method is the RPC being invoked.
	Method Method `json:"method"`

	// Timestamp is when the request was sent.
	Timestamp time.Time `json:"timestamp"`

	// Payload is the method-specific request body.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is the envelope for a single RPC response.
type Response struct {
	// ID matches the ID of the request being answered.
	ID string `json:"id"`

	// Timestamp is when the response was sent.
	Timestamp time.Time `json:"timestamp"`

	// Result is the method-specific response body. Nil on error.
	Result json.RawMessage `json:"result,omitempty"`

	// Error is set when the RPC failed.
	Error *Error `json:"error,omitempty"`
}

// NewRequest builds a request envelope for the given method, marshaling the
// payload and assigning a fresh correlation ID.
func NewRequest(method Method, payload interface{}) (*Request, error) {
	if err := method.Validate(); err != nil {
		return nil, err
	}

	var body json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = b
	}

	return &Request{
		ID:        uuid.New().String(),
		Method:    method,
		Timestamp: time.Now().UTC(),
		Payload:   body,
	}, nil
}

// NewResponse builds a successful response envelope for the given request ID.
func NewResponse(id string, result interface{}) (*Response, error) {
	var body json.RawMessage
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		body = b
	}

	return &Response{
		ID:        id,
		Timestamp: time.Now().UTC(),
		Result:    body,
	}, nil
}

// NewErrorResponse builds a failed response envelope for the given request ID.
func NewErrorResponse(id string, err *Error) *Response {
	return &Response{
		ID:        id,
		Timestamp: time.Now().UTC(),
		Error:     err,
	}
}

// Encoder writes protocol envelopes to an io.Writer, one JSON document per
// line.
type Encoder struct {
	w *bufio.Writer
}

// NewEncoder creates a new protocol encoder.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		w: bufio.NewWriter(w),
	}
}

// EncodeRequest writes a request envelope to the output stream.
func (e *Encoder) EncodeRequest(req *Request) error {
	if err := req.Method.Validate(); err != nil {
		return fmt.Errorf("invalid method: %w", err)
	}
	return e.encode(req)
}

// EncodeResponse writes a response envelope to the output stream.
func (e *Encoder) EncodeResponse(resp *Response) error {
	if resp.ID == "" {
		return fmt.Errorf("response is missing a request id")
	}
	return e.encode(resp)
}

func (e *Encoder) encode(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if _, err := e.w.Write(b); err != nil {
		return fmt.Errorf("failed to write envelope: %w", err)
	}

	if err := e.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	return nil
}

// Decoder reads protocol envelopes from an io.Reader.
type Decoder struct {
	r *bufio.Scanner
}

// NewDecoder creates a new protocol decoder.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	// Property bags can be large
	const maxCapacity = 400 * 1024 * 1024 // 400 MB
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, maxCapacity)
	return &Decoder{
		r: scanner,
	}
}

// DecodeRequest reads the next request envelope from the input stream.
func (d *Decoder) DecodeRequest() (*Request, error) {
	line, err := d.next()
	if err != nil {
		return nil, err
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request: %w", err)
	}

	if req.ID == "" {
		return nil, fmt.Errorf("request is missing an id")
	}
	if err := req.Method.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	return &req, nil
}

// DecodeResponse reads the next response envelope from the input stream.
func (d *Decoder) DecodeResponse() (*Response, error) {
	line, err := d.next()
	if err != nil {
		return nil, err
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if resp.ID == "" {
		return nil, fmt.Errorf("response is missing a request id")
	}

	return &resp, nil
}

func (d *Decoder) next() ([]byte, error) {
	if !d.r.Scan() {
		if err := d.r.Err(); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		return nil, io.EOF
	}

	line := d.r.Bytes()
	if len(line) == 0 {
		return nil, fmt.Errorf("empty line")
	}
	return line, nil
}

// ParsePayload parses a request payload into a specific type.
func ParsePayload(payload json.RawMessage, target interface{}) error {
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("failed to parse payload: %w", err)
	}
	return nil
}
