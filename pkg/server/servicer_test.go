package server

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/openfroyo/froyo-provider/pkg/property"
	"github.com/openfroyo/froyo-provider/pkg/provider"
	"github.com/openfroyo/froyo-provider/pkg/wire"
)

type fakeProvider struct {
	provider.NotImplementedProvider

	check     func(ctx context.Context, req *provider.CheckRequest) (*provider.CheckResponse, error)
	diff      func(ctx context.Context, req *provider.DiffRequest) (*provider.DiffResponse, error)
	construct func(ctx context.Context, req *provider.ConstructRequest) (*provider.ConstructResponse, error)
}

func (p *fakeProvider) Check(ctx context.Context, req *provider.CheckRequest) (*provider.CheckResponse, error) {
	if p.check == nil {
		return nil, provider.ErrNotImplemented
	}
	return p.check(ctx, req)
}

func (p *fakeProvider) Diff(ctx context.Context, req *provider.DiffRequest) (*provider.DiffResponse, error) {
	if p.diff == nil {
		return nil, provider.ErrNotImplemented
	}
	return p.diff(ctx, req)
}

func (p *fakeProvider) Construct(ctx context.Context, req *provider.ConstructRequest) (*provider.ConstructResponse, error) {
	if p.construct == nil {
		return nil, provider.ErrNotImplemented
	}
	return p.construct(ctx, req)
}

func newTestServicer(t *testing.T, p provider.Provider) *Servicer {
	t.Helper()
	return NewServicer(Options{
		Provider: p,
		Name:     "test",
		Version:  "1.2.3",
	})
}

func makeRequest(t *testing.T, method wire.Method, payload interface{}) *wire.Request {
	t.Helper()
	req, err := wire.NewRequest(method, payload)
	if err != nil {
		t.Fatalf("NewRequest(%s) failed: %v", method, err)
	}
	return req
}

func decodeResult(t *testing.T, resp *wire.Response, target interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected error response: %v", resp.Error)
	}
	if err := json.Unmarshal(resp.Result, target); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
}

func TestCheckPassThrough(t *testing.T) {
	s := newTestServicer(t, &fakeProvider{})

	req := makeRequest(t, wire.MethodCheck, wire.CheckRequest{
		URN:  "urn:froyo:st::pr::kv:index:Pair::n",
		News: wire.PropertyMap{"length": wire.Number(10)},
	})
	resp := s.Handle(context.Background(), req)

	var result wire.CheckResponse
	decodeResult(t, resp, &result)
	if len(result.Failures) != 0 {
		t.Errorf("failures = %v, want none", result.Failures)
	}
	if got := result.Inputs["length"]; !got.Equal(wire.Number(10)) {
		t.Errorf("inputs.length = %s, want 10", got)
	}
}

func TestCheckValidationFailures(t *testing.T) {
	p := &fakeProvider{
		check: func(ctx context.Context, req *provider.CheckRequest) (*provider.CheckResponse, error) {
			return &provider.CheckResponse{
				Failures: []provider.CheckFailure{{Property: "length", Reason: "must be positive"}},
			}, nil
		},
	}
	s := newTestServicer(t, p)

	resp := s.Handle(context.Background(), makeRequest(t, wire.MethodCheck, wire.CheckRequest{
		URN:  "urn:froyo:st::pr::kv:index:Pair::n",
		News: wire.PropertyMap{"length": wire.Number(-1)},
	}))

	var result wire.CheckResponse
	decodeResult(t, resp, &result)
	if len(result.Failures) != 1 || result.Failures[0].Property != "length" {
		t.Errorf("failures = %v", result.Failures)
	}
}

func TestDiffNoChanges(t *testing.T) {
	p := &fakeProvider{
		diff: func(ctx context.Context, req *provider.DiffRequest) (*provider.DiffResponse, error) {
			return &provider.DiffResponse{
				Changes:         provider.DiffNone,
				HasDetailedDiff: true,
			}, nil
		},
	}
	s := newTestServicer(t, p)

	resp := s.Handle(context.Background(), makeRequest(t, wire.MethodDiff, wire.DiffRequest{
		URN: "urn:froyo:st::pr::kv:index:Pair::n",
		ID:  "i-1",
	}))

	var result wire.DiffResponse
	decodeResult(t, resp, &result)
	if result.Changes != wire.DiffNone {
		t.Errorf("changes = %s, want %s", result.Changes, wire.DiffNone)
	}
	if len(result.DetailedDiff) != 0 {
		t.Errorf("detailedDiff = %v, want empty", result.DetailedDiff)
	}
	if !result.HasDetailedDiff {
		t.Error("hasDetailedDiff not carried through")
	}
}

func TestDiffNotImplementedDefaultsToUnknown(t *testing.T) {
	s := newTestServicer(t, &fakeProvider{})

	resp := s.Handle(context.Background(), makeRequest(t, wire.MethodDiff, wire.DiffRequest{
		URN: "urn:froyo:st::pr::kv:index:Pair::n",
	}))

	var result wire.DiffResponse
	decodeResult(t, resp, &result)
	if result.Changes != wire.DiffUnknown {
		t.Errorf("changes = %s, want %s", result.Changes, wire.DiffUnknown)
	}
}

func TestInputPropertiesErrorMapping(t *testing.T) {
	p := &fakeProvider{
		check: func(ctx context.Context, req *provider.CheckRequest) (*provider.CheckResponse, error) {
			return nil, provider.NewInputPropertyError("key", "must be at most 128 characters")
		},
	}
	s := newTestServicer(t, p)

	resp := s.Handle(context.Background(), makeRequest(t, wire.MethodCheck, wire.CheckRequest{
		URN: "urn:froyo:st::pr::kv:index:Pair::n",
	}))

	if resp.Error == nil {
		t.Fatal("expected an error response")
	}
	if resp.Error.Code != wire.CodeInvalidArgument {
		t.Errorf("code = %s, want %s", resp.Error.Code, wire.CodeInvalidArgument)
	}
	if len(resp.Error.Details) != 1 {
		t.Fatalf("details = %v, want one entry", resp.Error.Details)
	}
	if d := resp.Error.Details[0]; d.PropertyPath != "key" || d.Reason != "must be at most 128 characters" {
		t.Errorf("detail = %+v", d)
	}
}

func TestConstructSettingsAndDependencies(t *testing.T) {
	var seen Settings
	p := &fakeProvider{
		construct: func(ctx context.Context, req *provider.ConstructRequest) (*provider.ConstructResponse, error) {
			var ok bool
			seen, ok = SettingsFromContext(ctx)
			if !ok {
				t.Error("no settings in construct context")
			}
			urn := "urn:froyo:st::pr::my:mod:Comp::" + req.Name
			dep := "urn:froyo:st::pr::kv:index:Pair::inner"
			five := property.Number(5)
			return &provider.ConstructResponse{
				URN: urn,
				State: map[string]property.Value{
					"urn":    property.String(urn),
					"result": property.Output(&five, []string{dep}),
				},
			}, nil
		},
	}
	s := newTestServicer(t, p)

	resp := s.Handle(context.Background(), makeRequest(t, wire.MethodConstruct, wire.ConstructRequest{
		Name:    "comp",
		Type:    "my:mod:Comp",
		Project: "pr",
		Stack:   "st",
		DryRun:  true,
	}))

	var result wire.ConstructResponse
	decodeResult(t, resp, &result)

	if seen.Organization != defaultOrganization {
		t.Errorf("organization = %q, want default", seen.Organization)
	}
	if seen.Project != "pr" || seen.Stack != "st" || !seen.DryRun {
		t.Errorf("settings = %+v", seen)
	}

	if _, ok := result.State["urn"]; ok {
		t.Error("urn must be excluded from the marshaled state")
	}
	if _, ok := result.State["result"]; !ok {
		t.Error("result property missing from the marshaled state")
	}
	if _, ok := result.StateDependencies["urn"]; ok {
		t.Error("urn must be excluded from state dependencies")
	}
	deps, ok := result.StateDependencies["result"]
	if !ok {
		t.Fatal("result property missing from state dependencies")
	}
	if len(deps.URNs) != 1 || deps.URNs[0] != "urn:froyo:st::pr::kv:index:Pair::inner" {
		t.Errorf("result dependencies = %v", deps.URNs)
	}
}

func TestConstructMutualExclusion(t *testing.T) {
	var active, maxActive int32
	p := &fakeProvider{
		construct: func(ctx context.Context, req *provider.ConstructRequest) (*provider.ConstructResponse, error) {
			n := atomic.AddInt32(&active, 1)
			for {
				cur := atomic.LoadInt32(&maxActive)
				if n <= cur || atomic.CompareAndSwapInt32(&maxActive, cur, n) {
					break
				}
			}
			s, _ := SettingsFromContext(ctx)
			if s.Stack != req.Name {
				t.Errorf("settings stack %q does not match request %q", s.Stack, req.Name)
			}
			atomic.AddInt32(&active, -1)
			return &provider.ConstructResponse{URN: "urn:" + req.Name}, nil
		},
	}
	s := newTestServicer(t, p)

	var wg sync.WaitGroup
	for _, name := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			resp := s.Handle(context.Background(), makeRequest(t, wire.MethodConstruct, wire.ConstructRequest{
				Name:  name,
				Type:  "my:mod:Comp",
				Stack: name,
			}))
			if resp.Error != nil {
				t.Errorf("construct %s failed: %v", name, resp.Error)
			}
		}(name)
	}
	wg.Wait()

	if got := atomic.LoadInt32(&maxActive); got != 1 {
		t.Errorf("observed %d concurrent constructs, want 1", got)
	}
}

func TestGetPluginInfo(t *testing.T) {
	s := newTestServicer(t, &fakeProvider{})

	resp := s.Handle(context.Background(), makeRequest(t, wire.MethodGetPluginInfo, nil))

	var result wire.PluginInfo
	decodeResult(t, resp, &result)
	if result.Version != "1.2.3" {
		t.Errorf("version = %q, want 1.2.3", result.Version)
	}
}

func TestMonitorMethodsNotServed(t *testing.T) {
	s := newTestServicer(t, &fakeProvider{})

	resp := s.Handle(context.Background(), makeRequest(t, wire.MethodRegisterResource, nil))
	if resp.Error == nil || resp.Error.Code != wire.CodeNotImplemented {
		t.Errorf("response = %+v, want NOT_IMPLEMENTED", resp.Error)
	}
}
