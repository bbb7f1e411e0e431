package property

import (
	"fmt"
	"sort"
	"strings"
)

// Kind identifies the variant held by a Value. The set of variants is
// closed: code switching over Kind should enumerate every constant and fail
// on anything else, so a new variant cannot be added without updating every
// matcher.
type Kind int

const (
	// KindNull is the null value.
	KindNull Kind = iota

	// KindBool is a boolean.
	KindBool

	// KindNumber is a 64-bit float.
	KindNumber

	// KindString is a string.
	KindString

	// KindArray is an ordered sequence of values.
	KindArray

	// KindObject is a string-keyed mapping of values.
	KindObject

	// KindAsset is a file, literal, or remote asset.
	KindAsset

	// KindArchive is a file, remote, or composed archive.
	KindArchive

	// KindSecret wraps another value whose plaintext must not be
	// persisted in cleartext state.
	KindSecret

	// KindResource is a reference to another resource.
	KindResource

	// KindOutput is a value resolved asynchronously elsewhere, carrying
	// the URNs it depends on and optionally its resolved value.
	KindOutput

	// KindComputed marks a value that is not yet known, typically during
	// a preview.
	KindComputed
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindBool:
		return "Bool"
	case KindNumber:
		return "Number"
	case KindString:
		return "String"
	case KindArray:
		return "Array"
	case KindObject:
		return "Object"
	case KindAsset:
		return "Asset"
	case KindArchive:
		return "Archive"
	case KindSecret:
		return "Secret"
	case KindResource:
		return "Resource"
	case KindOutput:
		return "Output"
	case KindComputed:
		return "Computed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ResourceReference is a reference to a resource by URN.
type ResourceReference struct {
	// URN is the referenced resource's URN.
	URN string

	// ID is the referenced resource's ID, if it is a custom resource.
	// It may itself be unknown (Computed) during a preview.
	ID *Value

	// PackageVersion is the version of the package that defined the
	// resource, if known.
	PackageVersion string
}

// Equal reports whether two resource references are structurally equal.
func (r ResourceReference) Equal(o ResourceReference) bool {
	if r.URN != o.URN || r.PackageVersion != o.PackageVersion {
		return false
	}
	if (r.ID == nil) != (o.ID == nil) {
		return false
	}
	if r.ID != nil && !r.ID.Equal(*o.ID) {
		return false
	}
	return true
}

// OutputReference is a value resolved asynchronously elsewhere. A nil Value
// means the value is not yet known. Dependencies is always a normalized set
// of URNs: deduplicated and sorted.
type OutputReference struct {
	// Value is the resolved value, or nil when not yet known.
	Value *Value

	// Dependencies are the URNs of the resources this value depends on.
	Dependencies []string
}

// Known reports whether the output's value has resolved.
func (o OutputReference) Known() bool {
	return o.Value != nil
}

// Equal reports whether two output references are structurally equal.
func (o OutputReference) Equal(other OutputReference) bool {
	if (o.Value == nil) != (other.Value == nil) {
		return false
	}
	if o.Value != nil && !o.Value.Equal(*other.Value) {
		return false
	}
	if len(o.Dependencies) != len(other.Dependencies) {
		return false
	}
	for i := range o.Dependencies {
		if o.Dependencies[i] != other.Dependencies[i] {
			return false
		}
	}
	return true
}

// Value is a single immutable property value. Collection payloads are
// copied at construction time and again on access, so a Value can never be
// mutated through a shared slice or map.
type Value struct {
	kind    Kind
	b       bool
	num     float64
	str     string
	arr     []Value
	obj     map[string]Value
	asset   *Asset
	archive *Archive
	secret  *Value
	res     *ResourceReference
	out     *OutputReference
}

// Null returns the null value.
func Null() Value {
	return Value{kind: KindNull}
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Number returns a numeric value.
func Number(n float64) Value {
	return Value{kind: KindNumber, num: n}
}

// String returns a string value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Array returns an array value. The slice is copied.
func Array(vals []Value) Value {
	cp := make([]Value, len(vals))
	copy(cp, vals)
	return Value{kind: KindArray, arr: cp}
}

// Object returns an object value. The map is copied.
func Object(fields map[string]Value) Value {
	cp := make(map[string]Value, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Value{kind: KindObject, obj: cp}
}

// FromAsset returns an asset value.
func FromAsset(a *Asset) Value {
	return Value{kind: KindAsset, asset: a}
}

// FromArchive returns an archive value.
func FromArchive(a *Archive) Value {
	return Value{kind: KindArchive, archive: a}
}

// Secret wraps a value as secret. Secrets may nest to arbitrary depth.
func Secret(v Value) Value {
	return Value{kind: KindSecret, secret: &v}
}

// Resource returns a resource reference value.
func Resource(ref ResourceReference) Value {
	cp := ref
	if ref.ID != nil {
		id := *ref.ID
		cp.ID = &id
	}
	return Value{kind: KindResource, res: &cp}
}

// Output returns an output reference value. A nil value means not yet
// known. The dependency set is normalized: deduplicated and sorted.
func Output(value *Value, dependencies []string) Value {
	ref := OutputReference{Dependencies: NormalizeURNs(dependencies)}
	if value != nil {
		v := *value
		ref.Value = &v
	}
	return Value{kind: KindOutput, out: &ref}
}

// Computed returns the marker for a value that is not yet known.
func Computed() Value {
	return Value{kind: KindComputed}
}

// NormalizeURNs deduplicates and sorts a URN set.
func NormalizeURNs(urns []string) []string {
	if len(urns) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(urns))
	out := make([]string, 0, len(urns))
	for _, u := range urns {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Kind returns the variant held by the value.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsBool reports whether the value is a boolean.
func (v Value) IsBool() bool { return v.kind == KindBool }

// IsNumber reports whether the value is a number.
func (v Value) IsNumber() bool { return v.kind == KindNumber }

// IsString reports whether the value is a string.
func (v Value) IsString() bool { return v.kind == KindString }

// IsArray reports whether the value is an array.
func (v Value) IsArray() bool { return v.kind == KindArray }

// IsObject reports whether the value is an object.
func (v Value) IsObject() bool { return v.kind == KindObject }

// IsAsset reports whether the value is an asset.
func (v Value) IsAsset() bool { return v.kind == KindAsset }

// IsArchive reports whether the value is an archive.
func (v Value) IsArchive() bool { return v.kind == KindArchive }

// IsSecret reports whether the value is a secret wrapper.
func (v Value) IsSecret() bool { return v.kind == KindSecret }

// IsResource reports whether the value is a resource reference.
func (v Value) IsResource() bool { return v.kind == KindResource }

// IsOutput reports whether the value is an output reference.
func (v Value) IsOutput() bool { return v.kind == KindOutput }

// IsComputed reports whether the value is the not-yet-known marker.
func (v Value) IsComputed() bool { return v.kind == KindComputed }

// BoolValue returns the boolean payload. Valid only for KindBool.
func (v Value) BoolValue() bool { return v.b }

// NumberValue returns the numeric payload. Valid only for KindNumber.
func (v Value) NumberValue() float64 { return v.num }

// StringValue returns the string payload. Valid only for KindString.
func (v Value) StringValue() string { return v.str }

// ArrayValue returns a copy of the array payload. Valid only for KindArray.
func (v Value) ArrayValue() []Value {
	cp := make([]Value, len(v.arr))
	copy(cp, v.arr)
	return cp
}

// ArrayLen returns the array length without copying.
func (v Value) ArrayLen() int { return len(v.arr) }

// ObjectValue returns a copy of the object payload. Valid only for
// KindObject.
func (v Value) ObjectValue() map[string]Value {
	cp := make(map[string]Value, len(v.obj))
	for k, val := range v.obj {
		cp[k] = val
	}
	return cp
}

// AssetValue returns the asset payload. Valid only for KindAsset.
func (v Value) AssetValue() *Asset { return v.asset }

// ArchiveValue returns the archive payload. Valid only for KindArchive.
func (v Value) ArchiveValue() *Archive { return v.archive }

// SecretValue returns the wrapped value. Valid only for KindSecret.
func (v Value) SecretValue() Value { return *v.secret }

// ResourceValue returns the resource reference. Valid only for
// KindResource.
func (v Value) ResourceValue() ResourceReference { return *v.res }

// OutputValue returns the output reference. Valid only for KindOutput.
func (v Value) OutputValue() OutputReference {
	ref := OutputReference{Dependencies: append([]string(nil), v.out.Dependencies...)}
	if v.out.Value != nil {
		val := *v.out.Value
		ref.Value = &val
	}
	return ref
}

// Equal reports structural equality. Object fields compare without regard
// to order.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull, KindComputed:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.num == o.num
	case KindString:
		return v.str == o.str
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, val := range v.obj {
			oval, ok := o.obj[k]
			if !ok || !val.Equal(oval) {
				return false
			}
		}
		return true
	case KindAsset:
		return v.asset.Equal(o.asset)
	case KindArchive:
		return v.archive.Equal(o.archive)
	case KindSecret:
		return v.secret.Equal(*o.secret)
	case KindResource:
		return v.res.Equal(*o.res)
	case KindOutput:
		return v.out.Equal(*o.out)
	default:
		return false
	}
}

// ContainsSecret reports whether the value is or transitively contains a
// secret, descending through arrays, objects, and output payloads.
func (v Value) ContainsSecret() bool {
	switch v.kind {
	case KindSecret:
		return true
	case KindArray:
		for _, item := range v.arr {
			if item.ContainsSecret() {
				return true
			}
		}
		return false
	case KindObject:
		for _, item := range v.obj {
			if item.ContainsSecret() {
				return true
			}
		}
		return false
	case KindOutput:
		return v.out.Value != nil && v.out.Value.ContainsSecret()
	default:
		return false
	}
}

// AllDependencies returns the union of URNs reachable through the value,
// including dependencies of nested values, as a normalized set.
func (v Value) AllDependencies() []string {
	var urns []string
	v.collectDependencies(&urns)
	return NormalizeURNs(urns)
}

func (v Value) collectDependencies(urns *[]string) {
	switch v.kind {
	case KindArray:
		for _, item := range v.arr {
			item.collectDependencies(urns)
		}
	case KindObject:
		for _, item := range v.obj {
			item.collectDependencies(urns)
		}
	case KindSecret:
		v.secret.collectDependencies(urns)
	case KindOutput:
		*urns = append(*urns, v.out.Dependencies...)
		if v.out.Value != nil {
			v.out.Value.collectDependencies(urns)
		}
	case KindResource:
		*urns = append(*urns, v.res.URN)
	}
}

// Unwrap peels all Secret and OutputReference layers, returning the
// innermost concrete value, or Computed if any peeled layer was unknown.
func (v Value) Unwrap() Value {
	cur := v
	for {
		switch cur.kind {
		case KindSecret:
			cur = *cur.secret
		case KindOutput:
			if cur.out.Value == nil {
				return Computed()
			}
			cur = *cur.out.Value
		case KindComputed:
			return Computed()
		default:
			return cur
		}
	}
}

// HasComputed reports whether the value is or transitively contains an
// unknown, descending through arrays, objects, secrets, and outputs.
func (v Value) HasComputed() bool {
	switch v.kind {
	case KindComputed:
		return true
	case KindArray:
		for _, item := range v.arr {
			if item.HasComputed() {
				return true
			}
		}
		return false
	case KindObject:
		for _, item := range v.obj {
			if item.HasComputed() {
				return true
			}
		}
		return false
	case KindSecret:
		return v.secret.HasComputed()
	case KindOutput:
		return v.out.Value == nil || v.out.Value.HasComputed()
	default:
		return false
	}
}

// String renders the value for logs and error messages.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%v", v.b)
	case KindNumber:
		return fmt.Sprintf("%v", v.num)
	case KindString:
		return fmt.Sprintf("%q", v.str)
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, item := range v.arr {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindObject:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s: %s", k, v.obj[k].String())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindAsset:
		return v.asset.String()
	case KindArchive:
		return v.archive.String()
	case KindSecret:
		return fmt.Sprintf("%s (secret)", v.secret.String())
	case KindResource:
		return fmt.Sprintf("resource(%s)", v.res.URN)
	case KindOutput:
		inner := "unknown"
		if v.out.Value != nil {
			inner = v.out.Value.String()
		}
		if len(v.out.Dependencies) > 0 {
			return fmt.Sprintf("%s (dependencies: %s)", inner, strings.Join(v.out.Dependencies, ", "))
		}
		return inner
	case KindComputed:
		return "computed"
	default:
		return fmt.Sprintf("<%s>", v.kind)
	}
}
