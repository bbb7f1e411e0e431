package outputs

import (
	"context"

	"github.com/openfroyo/froyo-provider/pkg/property"
)

// Result is the resolved state of an output cell.
type Result struct {
	// Value is the resolved value. Meaningless when Known is false.
	Value property.Value

	// Known reports whether the value has resolved to something concrete.
	// During a preview an output may stay unknown.
	Known bool

	// Secret reports whether the value must be treated as secret.
	Secret bool

	// Dependencies are the URNs of the resources this output depends on.
	Dependencies []string
}

// Output is a one-shot asynchronous value cell. It resolves exactly once,
// either with a Result or with an error; every accessor blocks until that
// single resolution. A failed output still resolves, so no waiter hangs.
type Output struct {
	join *Join
	done chan struct{}

	// Written exactly once before done is closed, read only after.
	res Result
	err error
}

func (j *Join) newOutput() *Output {
	o := &Output{join: j, done: make(chan struct{})}
	j.track(o.done)
	return o
}

func (o *Output) resolve(res Result, err error) {
	if err != nil {
		// Failure poisons the cell but still resolves every field, so
		// waiters on the known or secret flags do not hang.
		o.err = err
		o.res = Result{}
	} else {
		res.Dependencies = property.NormalizeURNs(res.Dependencies)
		o.res = res
	}
	close(o.done)
}

// Resolved creates an output already resolved to a known value.
func (j *Join) Resolved(v property.Value) *Output {
	o := j.newOutput()
	o.resolve(Result{Value: v, Known: true}, nil)
	return o
}

// ResolvedSecret creates an output already resolved to a known secret value.
func (j *Join) ResolvedSecret(v property.Value) *Output {
	o := j.newOutput()
	o.resolve(Result{Value: v, Known: true, Secret: true}, nil)
	return o
}

// Unknown creates an output that is resolved but not known, carrying the
// given dependency URNs.
func (j *Join) Unknown(dependencies ...string) *Output {
	o := j.newOutput()
	o.resolve(Result{Dependencies: dependencies}, nil)
	return o
}

// Go creates an output resolved by running fn on its own goroutine.
func (j *Join) Go(fn func() (Result, error)) *Output {
	o := j.newOutput()
	go func() {
		res, err := fn()
		o.resolve(res, err)
	}()
	return o
}

// FromProperty converts a property value into an output cell. Output and
// secret wrappers on the value become the cell's known, secret, and
// dependency state; the payload is the fully unwrapped value.
func (j *Join) FromProperty(v property.Value) *Output {
	res := Result{
		Value:        v.Unwrap(),
		Known:        !v.HasComputed(),
		Secret:       v.ContainsSecret(),
		Dependencies: v.AllDependencies(),
	}
	if !res.Known {
		res.Value = property.Null()
	}
	o := j.newOutput()
	o.resolve(res, nil)
	return o
}

// Result blocks until the output resolves and returns its resolved state.
func (o *Output) Result(ctx context.Context) (Result, error) {
	select {
	case <-o.done:
		return o.res, o.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Value blocks until the output resolves and returns its value.
func (o *Output) Value(ctx context.Context) (property.Value, error) {
	res, err := o.Result(ctx)
	return res.Value, err
}

// IsKnown blocks until the output resolves and reports whether its value is
// known.
func (o *Output) IsKnown(ctx context.Context) (bool, error) {
	res, err := o.Result(ctx)
	return res.Known, err
}

// IsSecret blocks until the output resolves and reports whether its value is
// secret.
func (o *Output) IsSecret(ctx context.Context) (bool, error) {
	res, err := o.Result(ctx)
	return res.Secret, err
}

// Dependencies blocks until the output resolves and returns its dependency
// URNs.
func (o *Output) Dependencies(ctx context.Context) ([]string, error) {
	res, err := o.Result(ctx)
	return append([]string(nil), res.Dependencies...), err
}

// applyMode selects what Apply does with its callback for a given input
// knownness and preview flag.
type applyMode int

const (
	// applyValue runs the callback on the resolved value.
	applyValue applyMode = iota
	// applyNull runs the callback on the null value.
	applyNull
	// applySkip leaves the callback unrun; the result stays unknown.
	applySkip
)

func applyModeFor(known, preview bool) applyMode {
	switch {
	case known:
		return applyValue
	case preview:
		return applySkip
	default:
		return applyNull
	}
}

// Apply derives a new output by running fn on this output's value once it
// resolves. Whether fn runs depends on the known flag and the join's
// preview flag:
//
//	known, any mode       fn runs on the value
//	unknown, update       fn runs on the null value
//	unknown, preview      fn does not run; the result stays unknown
//
// When fn runs, the derived output's knownness and secrecy come from fn's
// result; a computed marker nested anywhere in the result makes it unknown.
// The derived output carries this output's dependencies, and its secretness
// is ORed in. An error from fn poisons the derived output.
func (o *Output) Apply(fn func(property.Value) (property.Value, error)) *Output {
	return o.ApplyOutput(func(v property.Value) (*Output, error) {
		out, err := fn(v)
		if err != nil {
			return nil, err
		}
		return o.join.FromProperty(out), nil
	})
}

// ApplyOutput is Apply for callbacks that themselves return an output. The
// inner output is lifted: the derived output's knownness comes from the
// inner one, it is secret when either is, and it carries the union of their
// dependencies.
func (o *Output) ApplyOutput(fn func(property.Value) (*Output, error)) *Output {
	derived := o.join.newOutput()
	go func() {
		<-o.done
		if o.err != nil {
			derived.resolve(Result{}, o.err)
			return
		}

		res := o.res
		arg := res.Value
		switch applyModeFor(res.Known, o.join.preview) {
		case applySkip:
			derived.resolve(Result{
				Secret:       res.Secret,
				Dependencies: res.Dependencies,
			}, nil)
			return
		case applyNull:
			arg = property.Null()
		}

		inner, err := fn(arg)
		if err != nil {
			derived.resolve(Result{}, err)
			return
		}

		<-inner.done
		if inner.err != nil {
			derived.resolve(Result{}, inner.err)
			return
		}
		derived.resolve(Result{
			Value:        inner.res.Value,
			Known:        inner.res.Known,
			Secret:       res.Secret || inner.res.Secret,
			Dependencies: append(append([]string(nil), res.Dependencies...), inner.res.Dependencies...),
		}, nil)
	}()
	return derived
}

// Secret derives an output with the same resolution marked secret.
func (o *Output) Secret() *Output {
	return o.mark(true)
}

// Unsecret derives an output with the same resolution marked non-secret.
func (o *Output) Unsecret() *Output {
	return o.mark(false)
}

func (o *Output) mark(secret bool) *Output {
	derived := o.join.newOutput()
	go func() {
		<-o.done
		if o.err != nil {
			derived.resolve(Result{}, o.err)
			return
		}
		res := o.res
		res.Secret = secret
		derived.resolve(res, nil)
	}()
	return derived
}

// All combines several outputs into one resolving to an array of their
// values. The result is known only when every input is, secret when any
// input is, and depends on the union of the inputs' dependencies.
func All(j *Join, outs ...*Output) *Output {
	combined := j.newOutput()
	go func() {
		res := Result{Known: true}
		values := make([]property.Value, len(outs))
		for i, o := range outs {
			<-o.done
			if o.err != nil {
				combined.resolve(Result{}, o.err)
				return
			}
			values[i] = o.res.Value
			res.Known = res.Known && o.res.Known
			res.Secret = res.Secret || o.res.Secret
			res.Dependencies = append(res.Dependencies, o.res.Dependencies...)
		}
		res.Value = property.Array(values)
		combined.resolve(res, nil)
	}()
	return combined
}

// ToProperty blocks until the output resolves and re-encodes it as a
// property value: an output reference wrapping the payload, under a secret
// wrapper when the cell is secret.
func (o *Output) ToProperty(ctx context.Context) (property.Value, error) {
	res, err := o.Result(ctx)
	if err != nil {
		return property.Value{}, err
	}
	var v property.Value
	if res.Known {
		val := res.Value
		v = property.Output(&val, res.Dependencies)
	} else {
		v = property.Output(nil, res.Dependencies)
	}
	if res.Secret {
		v = property.Secret(v)
	}
	return v, nil
}
