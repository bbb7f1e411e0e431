package stores

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a checkpoint does not exist. Callers that
// treat a missing resource as "deleted" match on it with errors.Is.
var ErrNotFound = errors.New("resource not found")

// OperationStatus records how a logged provider operation ended.
type OperationStatus string

const (
	OperationSucceeded OperationStatus = "succeeded"
	OperationFailed    OperationStatus = "failed"
)

// Resource is a checkpointed resource. Inputs and State hold the wire-form
// property maps as JSON blobs.
type Resource struct {
	URN       string    `json:"urn"`
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Inputs    string    `json:"inputs"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Operation is one entry in the append-only operation log.
type Operation struct {
	ID        int64           `json:"id"`
	URN       string          `json:"urn"`
	Op        string          `json:"op"` // create, update, delete, read
	Status    OperationStatus `json:"status"`
	Error     *string         `json:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Store defines the interface for the persistence layer.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Resource checkpoints
	PutResource(ctx context.Context, res *Resource) error
	GetResource(ctx context.Context, urn string) (*Resource, error)
	GetResourceByID(ctx context.Context, resourceType, id string) (*Resource, error)
	ListResources(ctx context.Context, resourceType string, limit, offset int) ([]*Resource, error)
	DeleteResource(ctx context.Context, urn string) error

	// Operation log
	AppendOperation(ctx context.Context, op *Operation) error
	ListOperations(ctx context.Context, urn string, limit, offset int) ([]*Operation, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
