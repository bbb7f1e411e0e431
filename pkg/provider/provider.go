package provider

import (
	"context"

	"github.com/openfroyo/froyo-provider/pkg/property"
)

// CheckFailure is a single validation failure reported by Check or Invoke.
type CheckFailure struct {
	// Property is the name of the property that failed validation.
	Property string

	// Reason is the human-readable explanation of the failure.
	Reason string
}

// DiffChanges summarizes whether a diff found changes.
type DiffChanges string

const (
	// DiffUnknown means the provider did not determine whether changes
	// exist and the engine should compute the diff itself.
	DiffUnknown DiffChanges = "DIFF_UNKNOWN"

	// DiffNone means no changes were detected.
	DiffNone DiffChanges = "DIFF_NONE"

	// DiffSome means at least one change was detected.
	DiffSome DiffChanges = "DIFF_SOME"
)

// PropertyDiffKind categorizes how a single property changed.
type PropertyDiffKind string

const (
	DiffAdd           PropertyDiffKind = "ADD"
	DiffAddReplace    PropertyDiffKind = "ADD_REPLACE"
	DiffDelete        PropertyDiffKind = "DELETE"
	DiffDeleteReplace PropertyDiffKind = "DELETE_REPLACE"
	DiffUpdate        PropertyDiffKind = "UPDATE"
	DiffUpdateReplace PropertyDiffKind = "UPDATE_REPLACE"
)

// PropertyDiff describes how a single property changed.
type PropertyDiff struct {
	Kind      PropertyDiffKind
	InputDiff bool
}

// ParameterizeRequest asks the provider to specialize itself, either from
// command-line style arguments or from a previously returned parameter
// value. Exactly one of Args and Value is set.
type ParameterizeRequest struct {
	Args  []string
	Value *ParameterizeValue
}

// ParameterizeValue is a stored parameterization.
type ParameterizeValue struct {
	Name    string
	Version string
	Value   []byte
}

// ParameterizeResponse reports the parameterized package identity.
type ParameterizeResponse struct {
	Name    string
	Version string
}

// GetSchemaRequest asks for the provider's package schema.
type GetSchemaRequest struct {
	Version           int
	SubpackageName    string
	SubpackageVersion string
}

// GetSchemaResponse carries the package schema as a JSON document.
type GetSchemaResponse struct {
	Schema string
}

// ConfigureRequest carries provider configuration.
type ConfigureRequest struct {
	Variables map[string]string
	Args      map[string]property.Value
}

// ConfigureResponse reports provider capabilities after configuration.
type ConfigureResponse struct {
	AcceptSecrets   bool
	AcceptResources bool
	AcceptOutputs   bool
	SupportsPreview bool
}

// CheckRequest asks the provider to validate and normalize inputs.
type CheckRequest struct {
	URN        string
	Olds       map[string]property.Value
	News       map[string]property.Value
	RandomSeed []byte
}

// CheckResponse carries the normalized inputs or the validation failures.
type CheckResponse struct {
	Inputs   map[string]property.Value
	Failures []CheckFailure
}

// DiffRequest asks the provider to compute the changes between old and new
// state.
type DiffRequest struct {
	URN           string
	ID            string
	Olds          map[string]property.Value
	News          map[string]property.Value
	IgnoreChanges []string
}

// DiffResponse describes the computed changes.
type DiffResponse struct {
	Changes             DiffChanges
	Replaces            []string
	Stables             []string
	DeleteBeforeReplace bool
	Diffs               []string
	DetailedDiff        map[string]PropertyDiff
	HasDetailedDiff     bool
}

// CreateRequest asks the provider to create a resource.
type CreateRequest struct {
	URN        string
	Properties map[string]property.Value
	Timeout    float64
	Preview    bool
}

// CreateResponse reports the created resource's ID and state.
type CreateResponse struct {
	ID         string
	Properties map[string]property.Value
}

// UpdateRequest asks the provider to update a resource in place.
type UpdateRequest struct {
	URN           string
	ID            string
	Olds          map[string]property.Value
	News          map[string]property.Value
	Timeout       float64
	IgnoreChanges []string
	Preview       bool
}

// UpdateResponse reports the resource's state after the update.
type UpdateResponse struct {
	Properties map[string]property.Value
}

// DeleteRequest asks the provider to delete a resource.
type DeleteRequest struct {
	URN        string
	ID         string
	Properties map[string]property.Value
	Timeout    float64
}

// ReadRequest asks the provider to read a resource's live state.
type ReadRequest struct {
	URN        string
	ID         string
	Properties map[string]property.Value
	Inputs     map[string]property.Value
}

// ReadResponse reports the live state, or an empty ID if the resource no
// longer exists.
type ReadResponse struct {
	ID         string
	Properties map[string]property.Value
	Inputs     map[string]property.Value
}

// InvokeRequest asks the provider to run a function.
type InvokeRequest struct {
	Tok  string
	Args map[string]property.Value
}

// InvokeResponse carries the function result or argument failures.
type InvokeResponse struct {
	Return   map[string]property.Value
	Failures []CheckFailure
}

// CallRequest asks the provider to run a method, typically on a component.
type CallRequest struct {
	Tok  string
	Args map[string]property.Value
}

// CallResponse carries the method result or argument failures.
type CallResponse struct {
	Return   map[string]property.Value
	Failures []CheckFailure
}

// ConstructOptions carries the resource options forwarded to a component
// construction.
type ConstructOptions struct {
	Parent       string
	Aliases      []string
	Dependencies []string
	Protect      bool
	Providers    map[string]string
}

// ConstructRequest asks the provider to construct a component resource.
type ConstructRequest struct {
	Name    string
	Type    string
	Inputs  map[string]property.Value
	Options ConstructOptions
}

// ConstructResponse reports the constructed component's URN and state.
type ConstructResponse struct {
	URN   string
	State map[string]property.Value
}

// PluginInfo reports provider plugin metadata.
type PluginInfo struct {
	Version string
}

// Provider is the interface a resource provider implements. Every operation
// takes a context and returns an explicit error; operations a provider does
// not support return ErrNotImplemented, which the hosting server maps to
// the protocol's unimplemented failure.
type Provider interface {
	// Parameterize specializes the provider to a sub-package.
	Parameterize(ctx context.Context, req *ParameterizeRequest) (*ParameterizeResponse, error)

	// GetSchema returns the provider's package schema.
	GetSchema(ctx context.Context, req *GetSchemaRequest) (*GetSchemaResponse, error)

	// CheckConfig validates provider configuration.
	CheckConfig(ctx context.Context, req *CheckRequest) (*CheckResponse, error)

	// DiffConfig diffs provider configuration.
	DiffConfig(ctx context.Context, req *DiffRequest) (*DiffResponse, error)

	// Configure applies provider configuration.
	Configure(ctx context.Context, req *ConfigureRequest) (*ConfigureResponse, error)

	// Check validates and normalizes resource inputs.
	Check(ctx context.Context, req *CheckRequest) (*CheckResponse, error)

	// Diff computes the changes between old and new resource state.
	Diff(ctx context.Context, req *DiffRequest) (*DiffResponse, error)

	// Create creates a resource.
	Create(ctx context.Context, req *CreateRequest) (*CreateResponse, error)

	// Update updates a resource in place.
	Update(ctx context.Context, req *UpdateRequest) (*UpdateResponse, error)

	// Delete deletes a resource.
	Delete(ctx context.Context, req *DeleteRequest) error

	// Read reads a resource's live state.
	Read(ctx context.Context, req *ReadRequest) (*ReadResponse, error)

	// Invoke runs a provider function.
	Invoke(ctx context.Context, req *InvokeRequest) (*InvokeResponse, error)

	// Call runs a provider method.
	Call(ctx context.Context, req *CallRequest) (*CallResponse, error)

	// Construct constructs a component resource.
	Construct(ctx context.Context, req *ConstructRequest) (*ConstructResponse, error)

	// Cancel signals that the provider should wind down outstanding work.
	// It is advisory: operations already in flight may still complete.
	Cancel(ctx context.Context) error

	// GetPluginInfo returns plugin metadata.
	GetPluginInfo(ctx context.Context) (*PluginInfo, error)
}

// NotImplementedProvider implements Provider with every operation returning
// ErrNotImplemented. Embed it to implement only the operations a provider
// supports.
type NotImplementedProvider struct{}

var _ Provider = (*NotImplementedProvider)(nil)

func (NotImplementedProvider) Parameterize(context.Context, *ParameterizeRequest) (*ParameterizeResponse, error) {
	return nil, ErrNotImplemented
}

func (NotImplementedProvider) GetSchema(context.Context, *GetSchemaRequest) (*GetSchemaResponse, error) {
	return nil, ErrNotImplemented
}

func (NotImplementedProvider) CheckConfig(context.Context, *CheckRequest) (*CheckResponse, error) {
	return nil, ErrNotImplemented
}

func (NotImplementedProvider) DiffConfig(context.Context, *DiffRequest) (*DiffResponse, error) {
	return nil, ErrNotImplemented
}

func (NotImplementedProvider) Configure(context.Context, *ConfigureRequest) (*ConfigureResponse, error) {
	return nil, ErrNotImplemented
}

func (NotImplementedProvider) Check(context.Context, *CheckRequest) (*CheckResponse, error) {
	return nil, ErrNotImplemented
}

func (NotImplementedProvider) Diff(context.Context, *DiffRequest) (*DiffResponse, error) {
	return nil, ErrNotImplemented
}

func (NotImplementedProvider) Create(context.Context, *CreateRequest) (*CreateResponse, error) {
	return nil, ErrNotImplemented
}

func (NotImplementedProvider) Update(context.Context, *UpdateRequest) (*UpdateResponse, error) {
	return nil, ErrNotImplemented
}

func (NotImplementedProvider) Delete(context.Context, *DeleteRequest) error {
	return ErrNotImplemented
}

func (NotImplementedProvider) Read(context.Context, *ReadRequest) (*ReadResponse, error) {
	return nil, ErrNotImplemented
}

func (NotImplementedProvider) Invoke(context.Context, *InvokeRequest) (*InvokeResponse, error) {
	return nil, ErrNotImplemented
}

func (NotImplementedProvider) Call(context.Context, *CallRequest) (*CallResponse, error) {
	return nil, ErrNotImplemented
}

func (NotImplementedProvider) Construct(context.Context, *ConstructRequest) (*ConstructResponse, error) {
	return nil, ErrNotImplemented
}

func (NotImplementedProvider) Cancel(context.Context) error {
	return nil
}

func (NotImplementedProvider) GetPluginInfo(context.Context) (*PluginInfo, error) {
	return nil, ErrNotImplemented
}
