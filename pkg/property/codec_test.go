package property

import (
	"reflect"
	"testing"

	"github.com/openfroyo/froyo-provider/pkg/wire"
)

func TestMarshalRoundTrip(t *testing.T) {
	id := String("i-abc")
	known := Object(map[string]Value{"n": Number(3)})
	tests := []struct {
		name string
		v    Value
	}{
		{"null", Null()},
		{"bool", Bool(true)},
		{"number", Number(3.5)},
		{"string", String("hello")},
		{"array", Array([]Value{Number(1), String("two"), Null()})},
		{
			"object",
			Object(map[string]Value{"a": Bool(false), "b": Array([]Value{Number(2)})}),
		},
		{"file asset", FromAsset(NewFileAsset("/tmp/f"))},
		{"string asset", FromAsset(NewStringAsset("contents"))},
		{"empty string asset", FromAsset(NewStringAsset(""))},
		{"remote asset", FromAsset(NewRemoteAsset("https://example.com/a"))},
		{"file archive", FromArchive(NewFileArchive("/tmp/a.tgz"))},
		{"empty composed archive", FromArchive(NewAssetArchive(nil))},
		{
			"composed archive",
			FromArchive(NewAssetArchive(map[string]AssetOrArchive{
				"readme": NewStringAsset("hi"),
				"nested": NewFileArchive("/tmp/inner.zip"),
			})),
		},
		{"secret", Secret(String("hunter2"))},
		{"nested secret", Secret(Secret(Number(1)))},
		{
			"resource reference",
			Resource(ResourceReference{URN: "urn:froyo:s::p::t::n", ID: &id, PackageVersion: "1.2.3"}),
		},
		{"unknown output", Output(nil, []string{"urn:a", "urn:b"})},
		{"known output", Output(&known, []string{"urn:a"})},
		{"known output no deps", Output(&known, nil)},
		{"computed", Computed()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := Marshal(tt.v)
			if err != nil {
				t.Fatalf("Marshal(%s) failed: %v", tt.v, err)
			}
			got, err := Unmarshal(w)
			if err != nil {
				t.Fatalf("Unmarshal(%s) failed: %v", w, err)
			}
			if !got.Equal(tt.v) {
				t.Errorf("round trip of %s produced %s", tt.v, got)
			}
		})
	}
}

func TestMarshalSecret(t *testing.T) {
	w, err := Marshal(Secret(String("s")))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	sig, ok := w.Sig()
	if !ok || sig != wire.SecretSig {
		t.Fatalf("secret marshaled without secret signature: %s", w)
	}
	inner, ok := w.Field("value")
	if !ok || !inner.Equal(wire.String("s")) {
		t.Errorf("secret payload = %s, want \"s\"", inner)
	}
}

func TestMarshalComputed(t *testing.T) {
	w, err := Marshal(Computed())
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	sig, ok := w.Sig()
	if !ok || sig != wire.OutputValueSig {
		t.Fatalf("computed marshaled without output signature: %s", w)
	}
	if _, ok := w.Field("value"); ok {
		t.Errorf("computed must not carry a value: %s", w)
	}
}

func TestUnmarshalUnknownSentinel(t *testing.T) {
	v, err := Unmarshal(wire.String(wire.UnknownStringValue))
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !v.IsComputed() {
		t.Errorf("sentinel decoded to %s, want computed", v)
	}
}

func TestUnmarshalUnknownSignature(t *testing.T) {
	w := wire.Struct(map[string]wire.Value{
		wire.SigKey: wire.String("ffffffffffffffffffffffffffffffff"),
	})
	if _, err := Unmarshal(w); err == nil {
		t.Fatal("expected error for unrecognized signature")
	}
}

func TestUnmarshalSecretOutputFlag(t *testing.T) {
	w := wire.Struct(map[string]wire.Value{
		wire.SigKey:    wire.String(wire.OutputValueSig),
		"value":        wire.String("v"),
		"secret":       wire.Bool(true),
		"dependencies": wire.List([]wire.Value{wire.String("urn:a")}),
	})
	v, err := Unmarshal(w)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !v.IsSecret() {
		t.Fatalf("secret output flag not lifted to a secret wrapper: %s", v)
	}
	inner := v.SecretValue()
	if !inner.IsOutput() {
		t.Fatalf("secret wrapper does not hold an output: %s", inner)
	}
	ref := inner.OutputValue()
	if ref.Value == nil || !ref.Value.Equal(String("v")) {
		t.Errorf("output payload = %v, want \"v\"", ref.Value)
	}
	if !reflect.DeepEqual(ref.Dependencies, []string{"urn:a"}) {
		t.Errorf("output dependencies = %v, want [urn:a]", ref.Dependencies)
	}
}

func TestUnmarshalMapDependencyUnion(t *testing.T) {
	known := wire.Struct(map[string]wire.Value{
		wire.SigKey:    wire.String(wire.OutputValueSig),
		"value":        wire.String("v"),
		"dependencies": wire.List([]wire.Value{wire.String("urn:A")}),
	})
	fields := map[string]wire.Value{"prop": known}
	deps := map[string][]string{"prop": {"urn:B"}}

	out, err := UnmarshalMap(fields, deps)
	if err != nil {
		t.Fatalf("UnmarshalMap failed: %v", err)
	}
	v := out["prop"]
	if !v.IsOutput() {
		t.Fatalf("prop decoded to %s, want output", v)
	}
	got := v.OutputValue().Dependencies
	if !reflect.DeepEqual(got, []string{"urn:A", "urn:B"}) {
		t.Errorf("dependencies = %v, want union [urn:A urn:B]", got)
	}
}

func TestUnmarshalMapWrapsPlainValues(t *testing.T) {
	fields := map[string]wire.Value{
		"plain":    wire.String("v"),
		"sentinel": wire.String(wire.UnknownStringValue),
	}
	deps := map[string][]string{
		"plain":    {"urn:p"},
		"sentinel": {"urn:s"},
	}

	out, err := UnmarshalMap(fields, deps)
	if err != nil {
		t.Fatalf("UnmarshalMap failed: %v", err)
	}

	plain := out["plain"]
	if !plain.IsOutput() {
		t.Fatalf("plain value not wrapped: %s", plain)
	}
	ref := plain.OutputValue()
	if ref.Value == nil || !ref.Value.Equal(String("v")) {
		t.Errorf("wrapped payload = %v, want \"v\"", ref.Value)
	}
	if !reflect.DeepEqual(ref.Dependencies, []string{"urn:p"}) {
		t.Errorf("wrapped dependencies = %v, want [urn:p]", ref.Dependencies)
	}

	sentinel := out["sentinel"]
	if !sentinel.IsOutput() || sentinel.OutputValue().Known() {
		t.Fatalf("sentinel with deps decoded to %s, want unknown output", sentinel)
	}
	if got := sentinel.OutputValue().Dependencies; !reflect.DeepEqual(got, []string{"urn:s"}) {
		t.Errorf("sentinel dependencies = %v, want [urn:s]", got)
	}
}

func TestUnmarshalMapSecretPushUp(t *testing.T) {
	secretField := wire.Struct(map[string]wire.Value{
		wire.SigKey: wire.String(wire.SecretSig),
		"value":     wire.String("hunter2"),
	})

	tests := []struct {
		name  string
		field wire.Value
		want  Value
	}{
		{
			"top level secret",
			secretField,
			Secret(Output(ptr(String("hunter2")), []string{"urn:d"})),
		},
		{
			"secret nested in object",
			wire.Struct(map[string]wire.Value{"pw": secretField, "n": wire.Number(1)}),
			Secret(Output(ptr(Object(map[string]Value{
				"pw": String("hunter2"),
				"n":  Number(1),
			})), []string{"urn:d"})),
		},
		{
			"secret nested in list",
			wire.List([]wire.Value{wire.Number(1), secretField}),
			Secret(Output(ptr(Array([]Value{
				Number(1), String("hunter2"),
			})), []string{"urn:d"})),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := UnmarshalMap(map[string]wire.Value{"p": tt.field}, map[string][]string{"p": {"urn:d"}})
			if err != nil {
				t.Fatalf("UnmarshalMap failed: %v", err)
			}
			if got := out["p"]; !got.Equal(tt.want) {
				t.Errorf("decoded %s, want %s", got, tt.want)
			}
		})
	}
}

func ptr(v Value) *Value {
	return &v
}
