package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/openfroyo/froyo-provider/pkg/monitor"
	"github.com/openfroyo/froyo-provider/pkg/property"
	"github.com/openfroyo/froyo-provider/pkg/provider"
	"github.com/openfroyo/froyo-provider/pkg/server"
	"github.com/openfroyo/froyo-provider/pkg/stores"
	"github.com/openfroyo/froyo-provider/pkg/telemetry"
	"github.com/openfroyo/froyo-provider/pkg/wire"
)

const (
	// PairType is the token of the managed key/value pair resource.
	PairType = "kv:index:Pair"

	// NamespaceType is the token of the component that fans an object out
	// into one Pair per entry.
	NamespaceType = "kv:index:Namespace"

	// LookupToken is the function token for reading a pair by key.
	LookupToken = "kv:index:lookup"

	maxKeyLength   = 128
	maxValueLength = 4096
)

// Provider manages key/value pairs in the checkpoint store.
type Provider struct {
	provider.NotImplementedProvider

	store   stores.Store
	log     *telemetry.Logger
	version string

	mu        sync.Mutex
	namespace string
	readOnly  bool
}

var _ provider.Provider = (*Provider)(nil)

// NewProvider creates the kv provider over the given store.
func NewProvider(store stores.Store, version string, log *telemetry.Logger) *Provider {
	if log == nil {
		log = telemetry.FromContext(context.Background())
	}
	return &Provider{
		store:   store,
		log:     log.NewComponentLogger("kv"),
		version: version,
	}
}

// Configure applies provider-level settings and reports capabilities.
func (p *Provider) Configure(ctx context.Context, req *provider.ConfigureRequest) (*provider.ConfigureResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if v, ok := req.Args["namespace"]; ok {
		if !v.IsString() {
			return nil, provider.NewInputPropertyError("namespace", "must be a string")
		}
		p.namespace = v.StringValue()
	}
	if v, ok := req.Args["readOnly"]; ok {
		if !v.IsBool() {
			return nil, provider.NewInputPropertyError("readOnly", "must be a boolean")
		}
		p.readOnly = v.BoolValue()
	}

	return &provider.ConfigureResponse{
		AcceptSecrets:   true,
		AcceptResources: true,
		AcceptOutputs:   true,
		SupportsPreview: true,
	}, nil
}

// Check validates Pair inputs. Unknown inputs pass through untouched; they
// are validated again once the values resolve.
func (p *Provider) Check(ctx context.Context, req *provider.CheckRequest) (*provider.CheckResponse, error) {
	var failures []provider.CheckFailure

	key, ok := req.News["key"]
	switch {
	case !ok || key.IsNull():
		failures = append(failures, provider.CheckFailure{
			Property: "key",
			Reason:   "a key is required",
		})
	case key.HasComputed():
		// Not resolvable yet.
	case !key.IsString():
		failures = append(failures, provider.CheckFailure{
			Property: "key",
			Reason:   "key must be a string",
		})
	case len(key.StringValue()) == 0:
		failures = append(failures, provider.CheckFailure{
			Property: "key",
			Reason:   "key must not be empty",
		})
	case len(key.StringValue()) > maxKeyLength:
		failures = append(failures, provider.CheckFailure{
			Property: "key",
			Reason:   fmt.Sprintf("key must be at most %d characters", maxKeyLength),
		})
	}

	if value, ok := req.News["value"]; ok && !value.HasComputed() {
		plain := value.Unwrap()
		if plain.IsString() && len(plain.StringValue()) > maxValueLength {
			failures = append(failures, provider.CheckFailure{
				Property: "value",
				Reason:   fmt.Sprintf("value must be at most %d characters", maxValueLength),
			})
		}
	}

	if len(failures) > 0 {
		return &provider.CheckResponse{Failures: failures}, nil
	}
	return &provider.CheckResponse{Inputs: req.News}, nil
}

// Diff reports a replace when the key changes and an in-place update when
// only the value changes.
func (p *Provider) Diff(ctx context.Context, req *provider.DiffRequest) (*provider.DiffResponse, error) {
	detailed := map[string]provider.PropertyDiff{}

	oldKey, newKey := req.Olds["key"], req.News["key"]
	if !oldKey.Equal(newKey) {
		detailed["key"] = provider.PropertyDiff{Kind: provider.DiffUpdateReplace, InputDiff: true}
	}
	oldValue, newValue := req.Olds["value"], req.News["value"]
	if !oldValue.Equal(newValue) {
		detailed["value"] = provider.PropertyDiff{Kind: provider.DiffUpdate, InputDiff: true}
	}

	resp := &provider.DiffResponse{
		Changes:         provider.DiffNone,
		DetailedDiff:    detailed,
		HasDetailedDiff: true,
	}
	if len(detailed) > 0 {
		resp.Changes = provider.DiffSome
	}
	if _, ok := detailed["key"]; ok {
		resp.Replaces = []string{"key"}
	}
	return resp, nil
}

// Create stores a new pair. In preview the pair is not written and the
// computed outputs stay unknown.
func (p *Provider) Create(ctx context.Context, req *provider.CreateRequest) (*provider.CreateResponse, error) {
	if err := p.checkWritable(); err != nil {
		return nil, err
	}

	if req.Preview {
		return &provider.CreateResponse{
			Properties: p.pairState(req.Properties, property.Computed()),
		}, nil
	}

	id := uuid.NewString()
	state := p.pairState(req.Properties, property.Number(1))
	if err := p.checkpoint(ctx, req.URN, id, req.Properties, state, "create"); err != nil {
		return nil, err
	}

	p.log.WithURN(req.URN).WithField("id", id).Info("created pair")
	return &provider.CreateResponse{ID: id, Properties: state}, nil
}

// Update rewrites the pair's value and bumps its revision.
func (p *Provider) Update(ctx context.Context, req *provider.UpdateRequest) (*provider.UpdateResponse, error) {
	if err := p.checkWritable(); err != nil {
		return nil, err
	}

	revision := float64(0)
	if rev, ok := req.Olds["revision"]; ok && rev.IsNumber() {
		revision = rev.NumberValue()
	}

	if req.Preview {
		return &provider.UpdateResponse{
			Properties: p.pairState(req.News, property.Computed()),
		}, nil
	}

	state := p.pairState(req.News, property.Number(revision+1))
	if err := p.checkpoint(ctx, req.URN, req.ID, req.News, state, "update"); err != nil {
		return nil, err
	}

	p.log.WithURN(req.URN).WithField("id", req.ID).Info("updated pair")
	return &provider.UpdateResponse{Properties: state}, nil
}

// Delete removes the pair. Deleting a pair that is already gone succeeds.
func (p *Provider) Delete(ctx context.Context, req *provider.DeleteRequest) error {
	if err := p.checkWritable(); err != nil {
		return err
	}

	err := p.store.DeleteResource(ctx, req.URN)
	if err != nil && !errors.Is(err, stores.ErrNotFound) {
		p.logOperation(ctx, req.URN, "delete", err)
		return fmt.Errorf("failed to delete pair: %w", err)
	}
	p.logOperation(ctx, req.URN, "delete", nil)

	p.log.WithURN(req.URN).WithField("id", req.ID).Info("deleted pair")
	return nil
}

// Read refreshes a pair from the store. A missing pair is reported with an
// empty ID so the engine drops it from state.
func (p *Provider) Read(ctx context.Context, req *provider.ReadRequest) (*provider.ReadResponse, error) {
	res, err := p.store.GetResource(ctx, req.URN)
	if errors.Is(err, stores.ErrNotFound) && req.ID != "" {
		// Imported resources are looked up by provider ID.
		res, err = p.store.GetResourceByID(ctx, PairType, req.ID)
	}
	if errors.Is(err, stores.ErrNotFound) {
		return &provider.ReadResponse{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read pair: %w", err)
	}

	state, err := decodeProperties(res.State)
	if err != nil {
		return nil, err
	}
	inputs, err := decodeProperties(res.Inputs)
	if err != nil {
		return nil, err
	}

	return &provider.ReadResponse{
		ID:         res.ID,
		Properties: state,
		Inputs:     inputs,
	}, nil
}

// Invoke serves the lookup function.
func (p *Provider) Invoke(ctx context.Context, req *provider.InvokeRequest) (*provider.InvokeResponse, error) {
	if req.Tok != LookupToken {
		return nil, provider.ErrNotImplemented
	}

	key, ok := req.Args["key"]
	if !ok || !key.IsString() {
		return &provider.InvokeResponse{
			Failures: []provider.CheckFailure{{Property: "key", Reason: "a string key is required"}},
		}, nil
	}

	target := p.qualifiedKey(key.StringValue())
	resources, err := p.store.ListResources(ctx, PairType, 10000, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list pairs: %w", err)
	}

	for _, res := range resources {
		state, err := decodeProperties(res.State)
		if err != nil {
			return nil, err
		}
		if k, ok := state["key"]; ok && k.IsString() && k.StringValue() == target {
			return &provider.InvokeResponse{
				Return: map[string]property.Value{
					"id":       property.String(res.ID),
					"key":      k,
					"value":    state["value"],
					"revision": state["revision"],
				},
			}, nil
		}
	}

	return &provider.InvokeResponse{
		Failures: []provider.CheckFailure{{Property: "key", Reason: fmt.Sprintf("no pair with key %q", target)}},
	}, nil
}

// Construct builds a kv:index:Namespace component: one Pair child per entry
// of the pairs input, registered through the resource monitor.
func (p *Provider) Construct(ctx context.Context, req *provider.ConstructRequest) (*provider.ConstructResponse, error) {
	if req.Type != NamespaceType {
		return nil, provider.ErrNotImplemented
	}

	pairs, ok := req.Inputs["pairs"]
	if !ok || !pairs.IsObject() {
		return nil, provider.NewInputPropertyError("pairs", "an object of key/value entries is required")
	}

	settings, ok := server.SettingsFromContext(ctx)
	if !ok || settings.MonitorEndpoint == "" {
		return nil, fmt.Errorf("no resource monitor endpoint available")
	}

	client, err := monitor.Dial(ctx, settings.MonitorEndpoint, p.log)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	component, err := client.RegisterResource(ctx, &wire.RegisterResourceRequest{
		Type:   req.Type,
		Name:   req.Name,
		Parent: req.Options.Parent,
		Remote: false,
	})
	if err != nil {
		return nil, provider.NewComponentError(err)
	}

	keys := []property.Value{}
	for key, value := range pairs.ObjectValue() {
		object, err := property.MarshalMap(map[string]property.Value{
			"key":   property.String(key),
			"value": value,
		})
		if err != nil {
			return nil, provider.NewComponentError(err)
		}
		child, err := client.RegisterResource(ctx, &wire.RegisterResourceRequest{
			Type:   PairType,
			Name:   req.Name + "-" + key,
			Custom: true,
			Parent: component.URN,
			Object: object,
		})
		if err != nil {
			return nil, provider.NewComponentError(err)
		}
		keys = append(keys, property.String(key))
		p.log.WithURN(child.URN).Debug("registered namespace pair")
	}

	state := map[string]property.Value{
		"count": property.Number(float64(len(keys))),
		"keys":  property.Array(keys),
	}
	outputs, err := property.MarshalMap(state)
	if err != nil {
		return nil, provider.NewComponentError(err)
	}
	if err := client.RegisterResourceOutputs(ctx, component.URN, outputs); err != nil {
		return nil, provider.NewComponentError(err)
	}

	return &provider.ConstructResponse{
		URN:   component.URN,
		State: state,
	}, nil
}

// GetSchema returns the package schema.
func (p *Provider) GetSchema(ctx context.Context, req *provider.GetSchemaRequest) (*provider.GetSchemaResponse, error) {
	return &provider.GetSchemaResponse{Schema: packageSchema}, nil
}

// GetPluginInfo reports the plugin version.
func (p *Provider) GetPluginInfo(ctx context.Context) (*provider.PluginInfo, error) {
	return &provider.PluginInfo{Version: p.version}, nil
}

// Cancel is accepted but the store has no long-running work to interrupt.
func (p *Provider) Cancel(ctx context.Context) error {
	return nil
}

func (p *Provider) checkWritable() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.readOnly {
		return fmt.Errorf("provider is configured read-only")
	}
	return nil
}

// pairState derives the output state from resolved inputs.
func (p *Provider) pairState(inputs map[string]property.Value, revision property.Value) map[string]property.Value {
	key := inputs["key"]
	if key.IsString() {
		key = property.String(p.qualifiedKey(key.StringValue()))
	}
	value, ok := inputs["value"]
	if !ok {
		value = property.Null()
	}
	return map[string]property.Value{
		"key":      key,
		"value":    value,
		"revision": revision,
	}
}

func (p *Provider) qualifiedKey(key string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.namespace == "" {
		return key
	}
	return p.namespace + "/" + key
}

// checkpoint persists the pair and appends to the operation log.
func (p *Provider) checkpoint(ctx context.Context, urn, id string, inputs, state map[string]property.Value, op string) error {
	inputsJSON, err := encodeProperties(inputs)
	if err != nil {
		p.logOperation(ctx, urn, op, err)
		return err
	}
	stateJSON, err := encodeProperties(state)
	if err != nil {
		p.logOperation(ctx, urn, op, err)
		return err
	}

	err = p.store.PutResource(ctx, &stores.Resource{
		URN:    urn,
		ID:     id,
		Type:   PairType,
		Inputs: inputsJSON,
		State:  stateJSON,
	})
	p.logOperation(ctx, urn, op, err)
	if err != nil {
		return fmt.Errorf("failed to store pair: %w", err)
	}
	return nil
}

func (p *Provider) logOperation(ctx context.Context, urn, op string, opErr error) {
	entry := &stores.Operation{URN: urn, Op: op, Status: stores.OperationSucceeded}
	if opErr != nil {
		msg := opErr.Error()
		entry.Status = stores.OperationFailed
		entry.Error = &msg
	}
	if err := p.store.AppendOperation(ctx, entry); err != nil {
		p.log.WithError(err).Warn("failed to append operation log entry")
	}
}

func encodeProperties(props map[string]property.Value) (string, error) {
	fields, err := property.MarshalMap(props)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode properties: %w", err)
	}
	return string(data), nil
}

func decodeProperties(blob string) (map[string]property.Value, error) {
	var fields map[string]wire.Value
	if err := json.Unmarshal([]byte(blob), &fields); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}
	return property.UnmarshalMap(fields, nil)
}
