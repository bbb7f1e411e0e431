package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/openfroyo/froyo-provider/pkg/outputs"
	"github.com/openfroyo/froyo-provider/pkg/property"
	"github.com/openfroyo/froyo-provider/pkg/provider"
	"github.com/openfroyo/froyo-provider/pkg/telemetry"
	"github.com/openfroyo/froyo-provider/pkg/wire"
)

// drainTimeout bounds how long a Construct or Call handler waits for
// outstanding outputs after the component code returns.
const drainTimeout = 30 * time.Second

// Options configures a Servicer.
type Options struct {
	// Provider is the implementation being hosted.
	Provider provider.Provider

	// Name is the provider's package name, used in telemetry labels.
	Name string

	// Version is the provider's version, reported by GetPluginInfo.
	Version string

	// EngineAddress is the address of the engine that launched the host.
	EngineAddress string

	// Logger receives per-request logs. Optional.
	Logger *telemetry.Logger

	// Telemetry provides metrics and tracing. Optional.
	Telemetry *telemetry.Telemetry
}

// Servicer dispatches protocol requests onto a Provider. It owns the
// translation between the wire property model and the provider's property
// values, the error mapping, and the deployment settings Construct and Call
// run under.
type Servicer struct {
	provider      provider.Provider
	name          string
	version       string
	engineAddress string
	log           *telemetry.Logger
	tel           *telemetry.Telemetry

	// constructCallLock serializes Construct and Call because they
	// repoint the servicer-wide settings before running component code.
	// Once settings are threaded through request contexts everywhere the
	// lock can go.
	constructCallLock sync.Mutex
	settings          Settings
}

// settingsContextKey is the context key for request settings.
type settingsContextKey struct{}

// WithSettings adds deployment settings to the context.
func WithSettings(ctx context.Context, s Settings) context.Context {
	return context.WithValue(ctx, settingsContextKey{}, s)
}

// SettingsFromContext retrieves the deployment settings from the context.
func SettingsFromContext(ctx context.Context) (Settings, bool) {
	s, ok := ctx.Value(settingsContextKey{}).(Settings)
	return s, ok
}

// NewServicer creates a servicer hosting the given provider.
func NewServicer(opts Options) *Servicer {
	log := opts.Logger
	if log == nil {
		log = telemetry.FromContext(context.Background())
	}
	return &Servicer{
		provider:      opts.Provider,
		name:          opts.Name,
		version:       opts.Version,
		engineAddress: opts.EngineAddress,
		log:           log.NewComponentLogger("servicer"),
		tel:           opts.Telemetry,
	}
}

// Settings returns the settings the most recent Construct or Call ran
// under.
func (s *Servicer) Settings() Settings {
	s.constructCallLock.Lock()
	defer s.constructCallLock.Unlock()
	return s.settings
}

// Handle dispatches a single request and always produces a response
// envelope. A panic in a handler is recovered into an internal error.
func (s *Servicer) Handle(ctx context.Context, req *wire.Request) (resp *wire.Response) {
	if s.tel != nil {
		ctx = s.tel.WithContext(ctx)
	}
	ctx = telemetry.WithRPCContext(ctx, string(req.Method), req.ID)
	log := s.log.WithMethod(string(req.Method)).WithRequestID(req.ID)
	log.Debug("handling request")

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v\n%s", r, debug.Stack())
			log.WithError(err).Error("handler panicked")
			resp = wire.NewErrorResponse(req.ID, wire.NewError(wire.CodeInternal, err.Error()))
		}
	}()

	result, err := s.dispatch(ctx, req)
	status := "ok"
	if err != nil {
		status = "error"
	}
	telemetry.EndRPCContext(ctx, string(req.Method), status, err)

	if err != nil {
		werr := s.mapError(err)
		log.WithError(err).Errorf("request failed: %s", werr.Code)
		if s.tel != nil {
			s.tel.Metrics.RecordError(string(werr.Code))
		}
		return wire.NewErrorResponse(req.ID, werr)
	}

	resp, err = wire.NewResponse(req.ID, result)
	if err != nil {
		log.WithError(err).Error("failed to encode response")
		return wire.NewErrorResponse(req.ID, wire.NewError(wire.CodeInternal, err.Error()))
	}
	return resp
}

func (s *Servicer) dispatch(ctx context.Context, req *wire.Request) (interface{}, error) {
	call := func(op string, fn func() (interface{}, error)) (interface{}, error) {
		var result interface{}
		err := telemetry.RecordProviderOperation(ctx, s.name, op, func() error {
			var opErr error
			result, opErr = fn()
			return opErr
		})
		return result, err
	}

	switch req.Method {
	case wire.MethodParameterize:
		return call("Parameterize", func() (interface{}, error) { return s.parameterize(ctx, req.Payload) })
	case wire.MethodGetSchema:
		return call("GetSchema", func() (interface{}, error) { return s.getSchema(ctx, req.Payload) })
	case wire.MethodConfigure:
		return call("Configure", func() (interface{}, error) { return s.configure(ctx, req.Payload) })
	case wire.MethodCheckConfig:
		return call("CheckConfig", func() (interface{}, error) { return s.check(ctx, req.Payload, s.provider.CheckConfig) })
	case wire.MethodDiffConfig:
		return call("DiffConfig", func() (interface{}, error) { return s.diff(ctx, req.Payload, s.provider.DiffConfig) })
	case wire.MethodCheck:
		return call("Check", func() (interface{}, error) { return s.check(ctx, req.Payload, s.provider.Check) })
	case wire.MethodDiff:
		return call("Diff", func() (interface{}, error) { return s.diff(ctx, req.Payload, s.provider.Diff) })
	case wire.MethodCreate:
		return call("Create", func() (interface{}, error) { return s.create(ctx, req.Payload) })
	case wire.MethodUpdate:
		return call("Update", func() (interface{}, error) { return s.update(ctx, req.Payload) })
	case wire.MethodDelete:
		return call("Delete", func() (interface{}, error) { return s.delete(ctx, req.Payload) })
	case wire.MethodRead:
		return call("Read", func() (interface{}, error) { return s.read(ctx, req.Payload) })
	case wire.MethodInvoke:
		return call("Invoke", func() (interface{}, error) { return s.invoke(ctx, req.Payload) })
	case wire.MethodCall:
		return call("Call", func() (interface{}, error) { return s.callMethod(ctx, req.Payload) })
	case wire.MethodConstruct:
		return call("Construct", func() (interface{}, error) { return s.construct(ctx, req.Payload) })
	case wire.MethodCancel:
		return call("Cancel", func() (interface{}, error) { return s.cancel(ctx) })
	case wire.MethodGetPluginInfo:
		return wire.PluginInfo{Version: s.version}, nil
	default:
		return nil, wire.NewError(wire.CodeNotImplemented, fmt.Sprintf("method %s is not served by providers", req.Method))
	}
}

func (s *Servicer) parameterize(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req wire.ParameterizeRequest
	if err := wire.ParsePayload(payload, &req); err != nil {
		return nil, err
	}
	preq := &provider.ParameterizeRequest{}
	switch {
	case req.Args != nil:
		preq.Args = req.Args.Args
	case req.Value != nil:
		preq.Value = &provider.ParameterizeValue{
			Name:    req.Value.Name,
			Version: req.Value.Version,
			Value:   req.Value.Value,
		}
	default:
		return nil, provider.NewInputPropertyError("parameters", "either args or value must be set")
	}
	resp, err := s.provider.Parameterize(ctx, preq)
	if err != nil {
		return nil, err
	}
	return wire.ParameterizeResponse{Name: resp.Name, Version: resp.Version}, nil
}

func (s *Servicer) getSchema(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req wire.GetSchemaRequest
	if err := wire.ParsePayload(payload, &req); err != nil {
		return nil, err
	}
	resp, err := s.provider.GetSchema(ctx, &provider.GetSchemaRequest{
		Version:           req.Version,
		SubpackageName:    req.SubpackageName,
		SubpackageVersion: req.SubpackageVersion,
	})
	if err != nil {
		return nil, err
	}
	return wire.GetSchemaResponse{Schema: resp.Schema}, nil
}

func (s *Servicer) configure(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req wire.ConfigureRequest
	if err := wire.ParsePayload(payload, &req); err != nil {
		return nil, err
	}
	args, err := property.UnmarshalMap(req.Args, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.provider.Configure(ctx, &provider.ConfigureRequest{
		Variables: req.Variables,
		Args:      args,
	})
	if provider.IsNotImplemented(err) {
		// Providers that skip Configure still accept the full property
		// model.
		resp = &provider.ConfigureResponse{
			AcceptSecrets:   true,
			AcceptResources: true,
			AcceptOutputs:   true,
			SupportsPreview: true,
		}
	} else if err != nil {
		return nil, err
	}
	return wire.ConfigureResponse{
		AcceptSecrets:   resp.AcceptSecrets,
		AcceptResources: resp.AcceptResources,
		AcceptOutputs:   resp.AcceptOutputs,
		SupportsPreview: resp.SupportsPreview,
	}, nil
}

func (s *Servicer) check(ctx context.Context, payload json.RawMessage,
	op func(context.Context, *provider.CheckRequest) (*provider.CheckResponse, error)) (interface{}, error) {

	var req wire.CheckRequest
	if err := wire.ParsePayload(payload, &req); err != nil {
		return nil, err
	}
	olds, err := property.UnmarshalMap(req.Olds, nil)
	if err != nil {
		return nil, err
	}
	news, err := property.UnmarshalMap(req.News, nil)
	if err != nil {
		return nil, err
	}

	resp, err := op(ctx, &provider.CheckRequest{
		URN:        req.URN,
		Olds:       olds,
		News:       news,
		RandomSeed: req.RandomSeed,
	})
	if provider.IsNotImplemented(err) {
		// No validation: the proposed inputs pass through unchanged.
		resp = &provider.CheckResponse{Inputs: news}
	} else if err != nil {
		return nil, err
	}

	inputs, err := property.MarshalMap(resp.Inputs)
	if err != nil {
		return nil, err
	}
	return wire.CheckResponse{
		Inputs:   inputs,
		Failures: encodeFailures(resp.Failures),
	}, nil
}

func (s *Servicer) diff(ctx context.Context, payload json.RawMessage,
	op func(context.Context, *provider.DiffRequest) (*provider.DiffResponse, error)) (interface{}, error) {

	var req wire.DiffRequest
	if err := wire.ParsePayload(payload, &req); err != nil {
		return nil, err
	}
	olds, err := property.UnmarshalMap(req.Olds, nil)
	if err != nil {
		return nil, err
	}
	news, err := property.UnmarshalMap(req.News, nil)
	if err != nil {
		return nil, err
	}

	resp, err := op(ctx, &provider.DiffRequest{
		URN:           req.URN,
		ID:            req.ID,
		Olds:          olds,
		News:          news,
		IgnoreChanges: req.IgnoreChanges,
	})
	if provider.IsNotImplemented(err) {
		resp = &provider.DiffResponse{Changes: provider.DiffUnknown}
	} else if err != nil {
		return nil, err
	}

	detailed := make(map[string]wire.PropertyDiff, len(resp.DetailedDiff))
	for k, d := range resp.DetailedDiff {
		detailed[k] = wire.PropertyDiff{
			Kind:      wire.PropertyDiffKind(d.Kind),
			InputDiff: d.InputDiff,
		}
	}
	return wire.DiffResponse{
		Changes:             wire.DiffChanges(resp.Changes),
		Replaces:            resp.Replaces,
		Stables:             resp.Stables,
		DeleteBeforeReplace: resp.DeleteBeforeReplace,
		Diffs:               resp.Diffs,
		DetailedDiff:        detailed,
		HasDetailedDiff:     resp.HasDetailedDiff,
	}, nil
}

func (s *Servicer) create(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req wire.CreateRequest
	if err := wire.ParsePayload(payload, &req); err != nil {
		return nil, err
	}
	props, err := property.UnmarshalMap(req.Properties, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.provider.Create(ctx, &provider.CreateRequest{
		URN:        req.URN,
		Properties: props,
		Timeout:    req.Timeout,
		Preview:    req.Preview,
	})
	if err != nil {
		return nil, err
	}
	out, err := property.MarshalMap(resp.Properties)
	if err != nil {
		return nil, err
	}
	return wire.CreateResponse{ID: resp.ID, Properties: out}, nil
}

func (s *Servicer) update(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req wire.UpdateRequest
	if err := wire.ParsePayload(payload, &req); err != nil {
		return nil, err
	}
	olds, err := property.UnmarshalMap(req.Olds, nil)
	if err != nil {
		return nil, err
	}
	news, err := property.UnmarshalMap(req.News, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.provider.Update(ctx, &provider.UpdateRequest{
		URN:           req.URN,
		ID:            req.ID,
		Olds:          olds,
		News:          news,
		Timeout:       req.Timeout,
		IgnoreChanges: req.IgnoreChanges,
		Preview:       req.Preview,
	})
	if err != nil {
		return nil, err
	}
	out, err := property.MarshalMap(resp.Properties)
	if err != nil {
		return nil, err
	}
	return wire.UpdateResponse{Properties: out}, nil
}

func (s *Servicer) delete(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req wire.DeleteRequest
	if err := wire.ParsePayload(payload, &req); err != nil {
		return nil, err
	}
	props, err := property.UnmarshalMap(req.Properties, nil)
	if err != nil {
		return nil, err
	}
	if err := s.provider.Delete(ctx, &provider.DeleteRequest{
		URN:        req.URN,
		ID:         req.ID,
		Properties: props,
		Timeout:    req.Timeout,
	}); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

func (s *Servicer) read(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req wire.ReadRequest
	if err := wire.ParsePayload(payload, &req); err != nil {
		return nil, err
	}
	props, err := property.UnmarshalMap(req.Properties, nil)
	if err != nil {
		return nil, err
	}
	inputs, err := property.UnmarshalMap(req.Inputs, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.provider.Read(ctx, &provider.ReadRequest{
		URN:        req.URN,
		ID:         req.ID,
		Properties: props,
		Inputs:     inputs,
	})
	if err != nil {
		return nil, err
	}
	outProps, err := property.MarshalMap(resp.Properties)
	if err != nil {
		return nil, err
	}
	outInputs, err := property.MarshalMap(resp.Inputs)
	if err != nil {
		return nil, err
	}
	return wire.ReadResponse{ID: resp.ID, Properties: outProps, Inputs: outInputs}, nil
}

func (s *Servicer) invoke(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req wire.InvokeRequest
	if err := wire.ParsePayload(payload, &req); err != nil {
		return nil, err
	}
	args, err := property.UnmarshalMap(req.Args, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.provider.Invoke(ctx, &provider.InvokeRequest{Tok: req.Tok, Args: args})
	if err != nil {
		return nil, err
	}
	ret, err := property.MarshalMap(resp.Return)
	if err != nil {
		return nil, err
	}
	return wire.InvokeResponse{Return: ret, Failures: encodeFailures(resp.Failures)}, nil
}

func (s *Servicer) callMethod(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req wire.CallRequest
	if err := wire.ParsePayload(payload, &req); err != nil {
		return nil, err
	}

	s.constructCallLock.Lock()
	defer s.constructCallLock.Unlock()
	s.settings = newSettings(req.Organization, req.Project, req.Stack,
		req.Config, req.ConfigSecretKeys, req.Parallel, req.MonitorEndpoint, req.DryRun)
	ctx = WithSettings(ctx, s.settings)

	join := outputs.NewJoin(req.DryRun)
	ctx = outputs.WithJoin(ctx, join)

	args, err := property.UnmarshalMap(req.Args, dependencyMap(req.ArgDependencies))
	if err != nil {
		return nil, err
	}

	resp, err := s.provider.Call(ctx, &provider.CallRequest{Tok: req.Tok, Args: args})
	if err != nil {
		return nil, err
	}
	s.drain(ctx, join)

	ret, err := property.MarshalMap(resp.Return)
	if err != nil {
		return nil, err
	}
	return wire.CallResponse{
		Return:             ret,
		ReturnDependencies: propertyDependencies(resp.Return, nil),
		Failures:           encodeFailures(resp.Failures),
	}, nil
}

func (s *Servicer) construct(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req wire.ConstructRequest
	if err := wire.ParsePayload(payload, &req); err != nil {
		return nil, err
	}

	s.constructCallLock.Lock()
	defer s.constructCallLock.Unlock()
	s.settings = newSettings(req.Organization, req.Project, req.Stack,
		req.Config, req.ConfigSecretKeys, req.Parallel, req.MonitorEndpoint, req.DryRun)
	ctx = WithSettings(ctx, s.settings)

	join := outputs.NewJoin(req.DryRun)
	ctx = outputs.WithJoin(ctx, join)

	inputs, err := property.UnmarshalMap(req.Inputs, dependencyMap(req.InputDependencies))
	if err != nil {
		return nil, err
	}

	resp, err := s.provider.Construct(ctx, &provider.ConstructRequest{
		Name:   req.Name,
		Type:   req.Type,
		Inputs: inputs,
		Options: provider.ConstructOptions{
			Parent:       req.Parent,
			Aliases:      req.Aliases,
			Dependencies: req.Dependencies,
			Protect:      req.Protect,
			Providers:    req.Providers,
		},
	})
	if err != nil {
		return nil, err
	}
	s.drain(ctx, join)

	// Identity fields travel in the response's URN field, not the state
	// map.
	state := make(map[string]property.Value, len(resp.State))
	for k, v := range resp.State {
		if k == "id" || k == "urn" {
			continue
		}
		state[k] = v
	}
	marshaled, err := property.MarshalMap(state)
	if err != nil {
		return nil, err
	}
	return wire.ConstructResponse{
		URN:               resp.URN,
		State:             marshaled,
		StateDependencies: propertyDependencies(state, nil),
	}, nil
}

func (s *Servicer) cancel(ctx context.Context) (interface{}, error) {
	err := s.provider.Cancel(ctx)
	if provider.IsNotImplemented(err) {
		err = nil
	}
	if err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

// drain waits for outstanding outputs after component code returns. Work
// left unresolved at the deadline is logged, not surfaced: the component's
// response is already complete.
func (s *Servicer) drain(ctx context.Context, join *outputs.Join) {
	dctx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()
	if err := join.Drain(dctx); err != nil {
		s.log.WithError(err).Warn("outstanding outputs left unresolved")
	}
}

func (s *Servicer) mapError(err error) *wire.Error {
	if werr, ok := wire.AsError(err); ok {
		return werr
	}
	if ipe, ok := provider.IsInputPropertiesError(err); ok {
		details := make([]wire.PropertyError, len(ipe.Errors))
		for i, pe := range ipe.Errors {
			details[i] = wire.PropertyError{PropertyPath: pe.PropertyPath, Reason: pe.Reason}
		}
		return wire.NewInvalidArgumentError(ipe.Message, details)
	}
	if provider.IsNotImplemented(err) {
		return wire.NewError(wire.CodeNotImplemented, err.Error())
	}
	if errors.Is(err, context.Canceled) {
		return wire.NewError(wire.CodeCancelled, err.Error())
	}
	var cerr *provider.ComponentError
	if errors.As(err, &cerr) {
		return wire.NewError(wire.CodeInternal, fmt.Sprintf("%s\n%s", cerr.Error(), cerr.StackTrace))
	}
	return wire.NewError(wire.CodeInternal, err.Error())
}

// dependencyMap flattens the wire dependency side channel into the codec's
// shape.
func dependencyMap(deps map[string]wire.PropertyDependencies) map[string][]string {
	if len(deps) == 0 {
		return nil
	}
	out := make(map[string][]string, len(deps))
	for k, d := range deps {
		out[k] = d.URNs
	}
	return out
}

// propertyDependencies computes the per-property dependency map for a
// response, one entry per property, excluding the named keys.
func propertyDependencies(props map[string]property.Value, exclude []string) map[string]wire.PropertyDependencies {
	if len(props) == 0 {
		return nil
	}
	skip := make(map[string]struct{}, len(exclude))
	for _, k := range exclude {
		skip[k] = struct{}{}
	}
	out := make(map[string]wire.PropertyDependencies, len(props))
	for k, v := range props {
		if _, ok := skip[k]; ok {
			continue
		}
		out[k] = wire.PropertyDependencies{URNs: v.AllDependencies()}
	}
	return out
}

func encodeFailures(failures []provider.CheckFailure) []wire.CheckFailure {
	if len(failures) == 0 {
		return nil
	}
	out := make([]wire.CheckFailure, len(failures))
	for i, f := range failures {
		out[i] = wire.CheckFailure{Property: f.Property, Reason: f.Reason}
	}
	return out
}
