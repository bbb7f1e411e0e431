package wire

import "fmt"

// Method identifies a provider RPC.
type Method string

const (
	MethodParameterize  Method = "Parameterize"
	MethodGetSchema     Method = "GetSchema"
	MethodConfigure     Method = "Configure"
	MethodCheckConfig   Method = "CheckConfig"
	MethodDiffConfig    Method = "DiffConfig"
	MethodCheck         Method = "Check"
	MethodDiff          Method = "Diff"
	MethodCreate        Method = "Create"
	MethodUpdate        Method = "Update"
	MethodDelete        Method = "Delete"
	MethodRead          Method = "Read"
	MethodInvoke        Method = "Invoke"
	MethodCall          Method = "Call"
	MethodConstruct     Method = "Construct"
	MethodCancel        Method = "Cancel"
	MethodGetPluginInfo Method = "GetPluginInfo"

	// Monitor-side methods used by component code to call back into the
	// engine during Construct.
	MethodRegisterResource        Method = "RegisterResource"
	MethodRegisterResourceOutputs Method = "RegisterResourceOutputs"
	MethodSupportsFeature         Method = "SupportsFeature"
)

// Validate checks that the method is part of the protocol surface.
func (m Method) Validate() error {
	switch m {
	case MethodParameterize, MethodGetSchema, MethodConfigure,
		MethodCheckConfig, MethodDiffConfig, MethodCheck, MethodDiff,
		MethodCreate, MethodUpdate, MethodDelete, MethodRead,
		MethodInvoke, MethodCall, MethodConstruct, MethodCancel,
		MethodGetPluginInfo, MethodRegisterResource,
		MethodRegisterResourceOutputs, MethodSupportsFeature:
		return nil
	default:
		return fmt.Errorf("unknown method: %q", string(m))
	}
}

// PropertyMap is a struct-shaped bag of named wire values.
type PropertyMap map[string]Value

// PropertyDependencies is the set of resource URNs a single property
// depends on, carried beside the property bag as a side channel.
type PropertyDependencies struct {
	// URNs are the dependency URNs. Order is not significant.
	URNs []string `json:"urns"`
}

// CheckFailure describes a single validation failure for a property.
type CheckFailure struct {
	// Property is the name of the failing property.
	Property string `json:"property"`

	// Reason is a human-readable explanation of the failure.
	Reason string `json:"reason"`
}

// DiffChanges summarizes whether a diff found changes.
type DiffChanges string

const (
	// DiffUnknown means the provider could not determine change status.
	DiffUnknown DiffChanges = "DIFF_UNKNOWN"

	// DiffNone means no changes were detected.
	DiffNone DiffChanges = "DIFF_NONE"

	// DiffSome means at least one change was detected.
	DiffSome DiffChanges = "DIFF_SOME"
)

// PropertyDiffKind categorizes a single property's change.
type PropertyDiffKind string

const (
	DiffAdd           PropertyDiffKind = "ADD"
	DiffAddReplace    PropertyDiffKind = "ADD_REPLACE"
	DiffDelete        PropertyDiffKind = "DELETE"
	DiffDeleteReplace PropertyDiffKind = "DELETE_REPLACE"
	DiffUpdate        PropertyDiffKind = "UPDATE"
	DiffUpdateReplace PropertyDiffKind = "UPDATE_REPLACE"
)

// PropertyDiff describes the change to one property in a detailed diff.
type PropertyDiff struct {
	// Kind is the category of change.
	Kind PropertyDiffKind `json:"kind"`

	// InputDiff is true when the diff is against the old input rather
	// than the old state.
	InputDiff bool `json:"inputDiff,omitempty"`
}

// ConfigureRequest configures the provider with engine-supplied settings.
type ConfigureRequest struct {
	Variables map[string]string `json:"variables,omitempty"`
	Args      PropertyMap       `json:"args,omitempty"`
	// AcceptSecrets indicates the engine can receive secret-tagged values.
	AcceptSecrets bool `json:"acceptSecrets,omitempty"`
	// AcceptResources indicates the engine can receive resource references.
	AcceptResources bool `json:"acceptResources,omitempty"`
}

// ConfigureResponse announces the provider's protocol capabilities.
type ConfigureResponse struct {
	AcceptSecrets   bool `json:"acceptSecrets"`
	AcceptResources bool `json:"acceptResources"`
	AcceptOutputs   bool `json:"acceptOutputs"`
	SupportsPreview bool `json:"supportsPreview"`
}

// CheckRequest validates a resource's input bag before use.
type CheckRequest struct {
	URN        string      `json:"urn"`
	Olds       PropertyMap `json:"olds,omitempty"`
	News       PropertyMap `json:"news,omitempty"`
	RandomSeed []byte      `json:"randomSeed,omitempty"`
}

// CheckResponse carries the checked inputs or the validation failures.
type CheckResponse struct {
	Inputs   PropertyMap    `json:"inputs,omitempty"`
	Failures []CheckFailure `json:"failures,omitempty"`
}

// DiffRequest compares old and new resource state.
type DiffRequest struct {
	URN           string      `json:"urn"`
	ID            string      `json:"id"`
	Olds          PropertyMap `json:"olds,omitempty"`
	News          PropertyMap `json:"news,omitempty"`
	IgnoreChanges []string    `json:"ignoreChanges,omitempty"`
}

// DiffResponse describes the changes between old and new state.
type DiffResponse struct {
	Changes             DiffChanges             `json:"changes"`
	Replaces            []string                `json:"replaces,omitempty"`
	Stables             []string                `json:"stables,omitempty"`
	DeleteBeforeReplace bool                    `json:"deleteBeforeReplace,omitempty"`
	Diffs               []string                `json:"diffs,omitempty"`
	DetailedDiff        map[string]PropertyDiff `json:"detailedDiff,omitempty"`
	HasDetailedDiff     bool                    `json:"hasDetailedDiff"`
}

// CreateRequest creates a new resource.
type CreateRequest struct {
	URN        string      `json:"urn"`
	Properties PropertyMap `json:"properties,omitempty"`
	// Timeout is the operation timeout in seconds; zero means no timeout.
	Timeout float64 `json:"timeout,omitempty"`
	// Preview requests a dry run that must not create the resource.
	Preview bool `json:"preview,omitempty"`
}

// CreateResponse carries the created resource's ID and state.
type CreateResponse struct {
	ID         string      `json:"id"`
	Properties PropertyMap `json:"properties,omitempty"`
}

// UpdateRequest updates an existing resource.
type UpdateRequest struct {
	URN           string      `json:"urn"`
	ID            string      `json:"id"`
	Olds          PropertyMap `json:"olds,omitempty"`
	News          PropertyMap `json:"news,omitempty"`
	Timeout       float64     `json:"timeout,omitempty"`
	IgnoreChanges []string    `json:"ignoreChanges,omitempty"`
	Preview       bool        `json:"preview,omitempty"`
}

// UpdateResponse carries the updated resource state.
type UpdateResponse struct {
	Properties PropertyMap `json:"properties,omitempty"`
}

// DeleteRequest deletes a resource.
type DeleteRequest struct {
	URN        string      `json:"urn"`
	ID         string      `json:"id"`
	Properties PropertyMap `json:"properties,omitempty"`
	Timeout    float64     `json:"timeout,omitempty"`
}

// ReadRequest reads the live state of a resource.
type ReadRequest struct {
	URN        string      `json:"urn"`
	ID         string      `json:"id"`
	Properties PropertyMap `json:"properties,omitempty"`
	Inputs     PropertyMap `json:"inputs,omitempty"`
}

// ReadResponse carries the read resource's ID, state, and inputs.
type ReadResponse struct {
	ID         string      `json:"id"`
	Properties PropertyMap `json:"properties,omitempty"`
	Inputs     PropertyMap `json:"inputs,omitempty"`
}

// InvokeRequest invokes a provider function.
type InvokeRequest struct {
	Tok  string      `json:"tok"`
	Args PropertyMap `json:"args,omitempty"`
}

// InvokeResponse carries a function's return value or its failures.
type InvokeResponse struct {
	Return   PropertyMap    `json:"return,omitempty"`
	Failures []CheckFailure `json:"failures,omitempty"`
}

// CallRequest invokes a method on a component resource.
type CallRequest struct {
	Tok              string                          `json:"tok"`
	Args             PropertyMap                     `json:"args,omitempty"`
	ArgDependencies  map[string]PropertyDependencies `json:"argDependencies,omitempty"`
	Project          string                          `json:"project,omitempty"`
	Stack            string                          `json:"stack,omitempty"`
	Organization     string                          `json:"organization,omitempty"`
	Config           map[string]string               `json:"config,omitempty"`
	ConfigSecretKeys []string                        `json:"configSecretKeys,omitempty"`
	Parallel         int                             `json:"parallel,omitempty"`
	MonitorEndpoint  string                          `json:"monitorEndpoint,omitempty"`
	DryRun           bool                            `json:"dryRun,omitempty"`
}

// CallResponse carries a call's return values with per-value dependencies.
type CallResponse struct {
	Return             PropertyMap                     `json:"return,omitempty"`
	ReturnDependencies map[string]PropertyDependencies `json:"returnDependencies,omitempty"`
	Failures           []CheckFailure                  `json:"failures,omitempty"`
}

// ConstructRequest constructs a component resource inside the provider.
type ConstructRequest struct {
	Name              string                          `json:"name"`
	Type              string                          `json:"type"`
	Inputs            PropertyMap                     `json:"inputs,omitempty"`
	InputDependencies map[string]PropertyDependencies `json:"inputDependencies,omitempty"`
	Parent            string                          `json:"parent,omitempty"`
	Providers         map[string]string               `json:"providers,omitempty"`
	Aliases           []string                        `json:"aliases,omitempty"`
	Dependencies      []string                        `json:"dependencies,omitempty"`
	Protect           bool                            `json:"protect,omitempty"`
	Config            map[string]string               `json:"config,omitempty"`
	ConfigSecretKeys  []string                        `json:"configSecretKeys,omitempty"`
	Project           string                          `json:"project,omitempty"`
	Stack             string                          `json:"stack,omitempty"`
	Organization      string                          `json:"organization,omitempty"`
	Parallel          int                             `json:"parallel,omitempty"`
	MonitorEndpoint   string                          `json:"monitorEndpoint,omitempty"`
	DryRun            bool                            `json:"dryRun,omitempty"`
}

// ConstructResponse carries the constructed component's URN and state.
type ConstructResponse struct {
	URN               string                          `json:"urn"`
	State             PropertyMap                     `json:"state,omitempty"`
	StateDependencies map[string]PropertyDependencies `json:"stateDependencies,omitempty"`
}

// ParameterizeArgs parameterizes a provider from command-line style args.
type ParameterizeArgs struct {
	Args []string `json:"args"`
}

// ParameterizeValue parameterizes a provider from an embedded value.
type ParameterizeValue struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Value   []byte `json:"value,omitempty"`
}

// ParameterizeRequest carries exactly one of Args or Value.
type ParameterizeRequest struct {
	Args  *ParameterizeArgs  `json:"args,omitempty"`
	Value *ParameterizeValue `json:"value,omitempty"`
}

// ParameterizeResponse names the parameterized sub-package.
type ParameterizeResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// GetSchemaRequest requests the provider's declared schema.
type GetSchemaRequest struct {
	Version           int    `json:"version,omitempty"`
	SubpackageName    string `json:"subpackageName,omitempty"`
	SubpackageVersion string `json:"subpackageVersion,omitempty"`
}

// GetSchemaResponse carries the schema as a JSON document.
type GetSchemaResponse struct {
	Schema string `json:"schema"`
}

// PluginInfo describes the running plugin.
type PluginInfo struct {
	Version string `json:"version"`
}

// CancelRequest asks the provider to wind down. It is advisory only; an RPC
// already dispatched to the provider is not interrupted.
type CancelRequest struct{}

// RegisterResourceRequest registers a resource against the engine's
// resource monitor. Component providers send these for the child resources
// they construct.
type RegisterResourceRequest struct {
	Type                 string                          `json:"type"`
	Name                 string                          `json:"name"`
	Custom               bool                            `json:"custom"`
	Object               PropertyMap                     `json:"object,omitempty"`
	PropertyDependencies map[string]PropertyDependencies `json:"propertyDependencies,omitempty"`
	Parent               string                          `json:"parent,omitempty"`
	Dependencies         []string                        `json:"dependencies,omitempty"`
	Protect              bool                            `json:"protect,omitempty"`
	Provider             string                          `json:"provider,omitempty"`
	Aliases              []string                        `json:"aliases,omitempty"`
	Remote               bool                            `json:"remote,omitempty"`
}

// RegisterResourceResponse carries the registered resource's identity and
// its resolved output state.
type RegisterResourceResponse struct {
	URN                  string                          `json:"urn"`
	ID                   string                          `json:"id,omitempty"`
	Object               PropertyMap                     `json:"object,omitempty"`
	PropertyDependencies map[string]PropertyDependencies `json:"propertyDependencies,omitempty"`
}

// RegisterResourceOutputsRequest attaches output properties to a resource
// that was previously registered.
type RegisterResourceOutputsRequest struct {
	URN     string      `json:"urn"`
	Outputs PropertyMap `json:"outputs,omitempty"`
}

// RegisterResourceOutputsResponse acknowledges an outputs registration.
type RegisterResourceOutputsResponse struct{}

// SupportsFeatureRequest asks the monitor whether it implements a feature.
type SupportsFeatureRequest struct {
	ID string `json:"id"`
}

// SupportsFeatureResponse reports feature support.
type SupportsFeatureResponse struct {
	HasSupport bool `json:"hasSupport"`
}
