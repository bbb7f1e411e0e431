package property

import (
	"fmt"

	"github.com/openfroyo/froyo-provider/pkg/wire"
)

// Marshal encodes a property value into the wire model. Every variant has an
// encoding: scalars and collections map directly, and the special variants
// encode as signature-tagged structs.
func Marshal(v Value) (wire.Value, error) {
	switch v.Kind() {
	case KindNull:
		return wire.Null(), nil
	case KindBool:
		return wire.Bool(v.BoolValue()), nil
	case KindNumber:
		return wire.Number(v.NumberValue()), nil
	case KindString:
		return wire.String(v.StringValue()), nil
	case KindArray:
		arr := v.ArrayValue()
		items := make([]wire.Value, len(arr))
		for i, item := range arr {
			w, err := Marshal(item)
			if err != nil {
				return wire.Value{}, err
			}
			items[i] = w
		}
		return wire.List(items), nil
	case KindObject:
		obj := v.ObjectValue()
		fields := make(map[string]wire.Value, len(obj))
		for k, item := range obj {
			w, err := Marshal(item)
			if err != nil {
				return wire.Value{}, err
			}
			fields[k] = w
		}
		return wire.Struct(fields), nil
	case KindAsset:
		return marshalAsset(v.AssetValue()), nil
	case KindArchive:
		return marshalArchive(v.ArchiveValue())
	case KindSecret:
		inner, err := Marshal(v.SecretValue())
		if err != nil {
			return wire.Value{}, err
		}
		return wire.Struct(map[string]wire.Value{
			wire.SigKey: wire.String(wire.SecretSig),
			"value":     inner,
		}), nil
	case KindResource:
		ref := v.ResourceValue()
		fields := map[string]wire.Value{
			wire.SigKey: wire.String(wire.ResourceReferenceSig),
			"urn":       wire.String(ref.URN),
		}
		if ref.ID != nil {
			id, err := Marshal(*ref.ID)
			if err != nil {
				return wire.Value{}, err
			}
			fields["id"] = id
		}
		if ref.PackageVersion != "" {
			fields["packageVersion"] = wire.String(ref.PackageVersion)
		}
		return wire.Struct(fields), nil
	case KindOutput:
		ref := v.OutputValue()
		fields := map[string]wire.Value{
			wire.SigKey: wire.String(wire.OutputValueSig),
		}
		if ref.Value != nil {
			inner, err := Marshal(*ref.Value)
			if err != nil {
				return wire.Value{}, err
			}
			fields["value"] = inner
		}
		if len(ref.Dependencies) > 0 {
			deps := make([]wire.Value, len(ref.Dependencies))
			for i, urn := range ref.Dependencies {
				deps[i] = wire.String(urn)
			}
			fields["dependencies"] = wire.List(deps)
		}
		return wire.Struct(fields), nil
	case KindComputed:
		return wire.Struct(map[string]wire.Value{
			wire.SigKey: wire.String(wire.OutputValueSig),
		}), nil
	default:
		return wire.Value{}, fmt.Errorf("cannot marshal property value of kind %s", v.Kind())
	}
}

func marshalAsset(a *Asset) wire.Value {
	fields := map[string]wire.Value{
		wire.SigKey: wire.String(wire.AssetSig),
	}
	if path, ok := a.Path(); ok {
		fields["path"] = wire.String(path)
	} else if text, ok := a.Text(); ok {
		fields["text"] = wire.String(text)
	} else if uri, ok := a.URI(); ok {
		fields["uri"] = wire.String(uri)
	}
	return wire.Struct(fields)
}

func marshalArchive(a *Archive) (wire.Value, error) {
	fields := map[string]wire.Value{
		wire.SigKey: wire.String(wire.ArchiveSig),
	}
	if path, ok := a.Path(); ok {
		fields["path"] = wire.String(path)
	} else if uri, ok := a.URI(); ok {
		fields["uri"] = wire.String(uri)
	} else {
		assets, _ := a.Assets()
		members := make(map[string]wire.Value, len(assets))
		for name, member := range assets {
			switch m := member.(type) {
			case *Asset:
				members[name] = marshalAsset(m)
			case *Archive:
				w, err := marshalArchive(m)
				if err != nil {
					return wire.Value{}, err
				}
				members[name] = w
			default:
				return wire.Value{}, fmt.Errorf("archive member %q is neither asset nor archive", name)
			}
		}
		fields["assets"] = wire.Struct(members)
	}
	return wire.Struct(fields), nil
}

// Unmarshal decodes a wire value into a property value. Signature-tagged
// structs decode to their special variants; a struct carrying an
// unrecognized signature is an error rather than a plain object.
func Unmarshal(w wire.Value) (Value, error) {
	switch w.Kind() {
	case wire.KindNull:
		return Null(), nil
	case wire.KindBool:
		return Bool(w.BoolValue()), nil
	case wire.KindNumber:
		return Number(w.NumberValue()), nil
	case wire.KindString:
		if w.StringValue() == wire.UnknownStringValue {
			return Computed(), nil
		}
		return String(w.StringValue()), nil
	case wire.KindList:
		items := w.ListValue()
		arr := make([]Value, len(items))
		for i, item := range items {
			v, err := Unmarshal(item)
			if err != nil {
				return Value{}, err
			}
			arr[i] = v
		}
		return Array(arr), nil
	case wire.KindStruct:
		sig, ok := w.Sig()
		if !ok {
			fields := w.StructValue()
			obj := make(map[string]Value, len(fields))
			for k, item := range fields {
				v, err := Unmarshal(item)
				if err != nil {
					return Value{}, err
				}
				obj[k] = v
			}
			return Object(obj), nil
		}
		switch sig {
		case wire.AssetSig:
			return unmarshalAsset(w)
		case wire.ArchiveSig:
			return unmarshalArchive(w)
		case wire.SecretSig:
			inner, ok := w.Field("value")
			if !ok {
				return Value{}, fmt.Errorf("secret is missing its value")
			}
			v, err := Unmarshal(inner)
			if err != nil {
				return Value{}, err
			}
			return Secret(v), nil
		case wire.ResourceReferenceSig:
			return unmarshalResourceReference(w)
		case wire.OutputValueSig:
			return unmarshalOutput(w)
		default:
			return Value{}, fmt.Errorf("unrecognized signature %q in wire value", sig)
		}
	default:
		return Value{}, fmt.Errorf("cannot unmarshal wire value of kind %s", w.Kind())
	}
}

func unmarshalAsset(w wire.Value) (Value, error) {
	if path, ok := w.Field("path"); ok {
		if path.Kind() != wire.KindString {
			return Value{}, fmt.Errorf("asset path must be a string")
		}
		return FromAsset(NewFileAsset(path.StringValue())), nil
	}
	if text, ok := w.Field("text"); ok {
		if text.Kind() != wire.KindString {
			return Value{}, fmt.Errorf("asset text must be a string")
		}
		return FromAsset(NewStringAsset(text.StringValue())), nil
	}
	if uri, ok := w.Field("uri"); ok {
		if uri.Kind() != wire.KindString {
			return Value{}, fmt.Errorf("asset uri must be a string")
		}
		return FromAsset(NewRemoteAsset(uri.StringValue())), nil
	}
	return Value{}, fmt.Errorf("asset has no path, text, or uri")
}

func unmarshalArchive(w wire.Value) (Value, error) {
	if path, ok := w.Field("path"); ok {
		if path.Kind() != wire.KindString {
			return Value{}, fmt.Errorf("archive path must be a string")
		}
		return FromArchive(NewFileArchive(path.StringValue())), nil
	}
	if uri, ok := w.Field("uri"); ok {
		if uri.Kind() != wire.KindString {
			return Value{}, fmt.Errorf("archive uri must be a string")
		}
		return FromArchive(NewRemoteArchive(uri.StringValue())), nil
	}
	if members, ok := w.Field("assets"); ok {
		if members.Kind() != wire.KindStruct {
			return Value{}, fmt.Errorf("archive assets must be a struct")
		}
		assets := make(map[string]AssetOrArchive)
		for name, member := range members.StructValue() {
			v, err := Unmarshal(member)
			if err != nil {
				return Value{}, err
			}
			switch v.Kind() {
			case KindAsset:
				assets[name] = v.AssetValue()
			case KindArchive:
				assets[name] = v.ArchiveValue()
			default:
				return Value{}, fmt.Errorf("archive member %q is neither asset nor archive", name)
			}
		}
		return FromArchive(NewAssetArchive(assets)), nil
	}
	return Value{}, fmt.Errorf("archive has no path, uri, or assets")
}

func unmarshalResourceReference(w wire.Value) (Value, error) {
	urn, ok := w.Field("urn")
	if !ok || urn.Kind() != wire.KindString {
		return Value{}, fmt.Errorf("resource reference is missing its urn")
	}
	ref := ResourceReference{URN: urn.StringValue()}
	if id, ok := w.Field("id"); ok {
		v, err := Unmarshal(id)
		if err != nil {
			return Value{}, err
		}
		ref.ID = &v
	}
	if ver, ok := w.Field("packageVersion"); ok {
		if ver.Kind() != wire.KindString {
			return Value{}, fmt.Errorf("resource reference packageVersion must be a string")
		}
		ref.PackageVersion = ver.StringValue()
	}
	return Resource(ref), nil
}

func unmarshalOutput(w wire.Value) (Value, error) {
	var deps []string
	if raw, ok := w.Field("dependencies"); ok {
		if raw.Kind() != wire.KindList {
			return Value{}, fmt.Errorf("output dependencies must be a list")
		}
		for _, item := range raw.ListValue() {
			if item.Kind() != wire.KindString {
				return Value{}, fmt.Errorf("output dependency must be a string")
			}
			deps = append(deps, item.StringValue())
		}
	}
	secret := false
	if raw, ok := w.Field("secret"); ok {
		if raw.Kind() != wire.KindBool {
			return Value{}, fmt.Errorf("output secret flag must be a bool")
		}
		secret = raw.BoolValue()
	}

	var result Value
	if raw, ok := w.Field("value"); ok {
		inner, err := Unmarshal(raw)
		if err != nil {
			return Value{}, err
		}
		result = Output(&inner, deps)
	} else if len(deps) == 0 && !secret {
		return Computed(), nil
	} else {
		result = Output(nil, deps)
	}
	if secret {
		result = Secret(result)
	}
	return result, nil
}

// MarshalMap encodes a property map into the wire model.
func MarshalMap(props map[string]Value) (map[string]wire.Value, error) {
	out := make(map[string]wire.Value, len(props))
	for k, v := range props {
		w, err := Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		out[k] = w
	}
	return out, nil
}

// UnmarshalMap decodes a wire property map, merging in the per-property
// dependency side channel. A property listed in deps decodes to an output
// reference carrying those URNs: existing output references absorb them,
// anything else is wrapped. A wrapped value that contains secrets has its
// secretness hoisted to a single wrapper above the output.
func UnmarshalMap(fields map[string]wire.Value, deps map[string][]string) (map[string]Value, error) {
	out := make(map[string]Value, len(fields))
	for k, w := range fields {
		v, err := Unmarshal(w)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		if urns := deps[k]; len(urns) > 0 {
			v = withDependencies(v, urns)
		}
		out[k] = v
	}
	return out, nil
}

// withDependencies merges declared URNs into a decoded value, reaching
// through secret wrappers so an output nested under one still absorbs them.
func withDependencies(v Value, urns []string) Value {
	switch v.Kind() {
	case KindOutput:
		ref := v.OutputValue()
		return Output(ref.Value, append(ref.Dependencies, urns...))
	case KindSecret:
		return Secret(withDependencies(v.SecretValue(), urns))
	case KindComputed:
		return Output(nil, urns)
	default:
		if v.ContainsSecret() {
			stripped := stripSecrets(v)
			return Secret(Output(&stripped, urns))
		}
		return Output(&v, urns)
	}
}

func stripSecrets(v Value) Value {
	switch v.Kind() {
	case KindSecret:
		return stripSecrets(v.SecretValue())
	case KindArray:
		arr := v.ArrayValue()
		for i, item := range arr {
			arr[i] = stripSecrets(item)
		}
		return Array(arr)
	case KindObject:
		obj := v.ObjectValue()
		for k, item := range obj {
			obj[k] = stripSecrets(item)
		}
		return Object(obj)
	default:
		return v
	}
}
