package property

import (
	"reflect"
	"testing"
)

func TestValueEqual(t *testing.T) {
	id := String("i-123")
	tests := []struct {
		name string
		a    Value
		b    Value
		want bool
	}{
		{"null", Null(), Null(), true},
		{"bool", Bool(true), Bool(true), true},
		{"bool mismatch", Bool(true), Bool(false), false},
		{"number", Number(42), Number(42), true},
		{"string", String("a"), String("a"), true},
		{"kind mismatch", Number(0), Null(), false},
		{
			"array",
			Array([]Value{Number(1), String("x")}),
			Array([]Value{Number(1), String("x")}),
			true,
		},
		{
			"array length mismatch",
			Array([]Value{Number(1)}),
			Array([]Value{Number(1), Number(2)}),
			false,
		},
		{
			"object order insensitive",
			Object(map[string]Value{"a": Number(1), "b": Number(2)}),
			Object(map[string]Value{"b": Number(2), "a": Number(1)}),
			true,
		},
		{
			"object value mismatch",
			Object(map[string]Value{"a": Number(1)}),
			Object(map[string]Value{"a": Number(2)}),
			false,
		},
		{"secret", Secret(String("s")), Secret(String("s")), true},
		{"secret vs plain", Secret(String("s")), String("s"), false},
		{"computed", Computed(), Computed(), true},
		{
			"resource",
			Resource(ResourceReference{URN: "urn:froyo:st::pr::t::n", ID: &id}),
			Resource(ResourceReference{URN: "urn:froyo:st::pr::t::n", ID: &id}),
			true,
		},
		{
			"resource id mismatch",
			Resource(ResourceReference{URN: "urn:froyo:st::pr::t::n", ID: &id}),
			Resource(ResourceReference{URN: "urn:froyo:st::pr::t::n"}),
			false,
		},
		{
			"output dependencies normalized",
			Output(nil, []string{"b", "a", "a"}),
			Output(nil, []string{"a", "b"}),
			true,
		},
		{
			"output known vs unknown",
			Output(&id, nil),
			Output(nil, nil),
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := tt.b.Equal(tt.a); got != tt.want {
				t.Errorf("Equal(%s, %s) = %v, want %v", tt.b, tt.a, got, tt.want)
			}
		})
	}
}

func TestValueImmutability(t *testing.T) {
	src := []Value{Number(1), Number(2)}
	arr := Array(src)
	src[0] = Number(99)
	if got := arr.ArrayValue()[0]; !got.Equal(Number(1)) {
		t.Errorf("array mutated through source slice: got %s", got)
	}

	out := arr.ArrayValue()
	out[1] = Number(99)
	if got := arr.ArrayValue()[1]; !got.Equal(Number(2)) {
		t.Errorf("array mutated through accessor copy: got %s", got)
	}

	fields := map[string]Value{"k": String("v")}
	obj := Object(fields)
	fields["k"] = String("changed")
	if got := obj.ObjectValue()["k"]; !got.Equal(String("v")) {
		t.Errorf("object mutated through source map: got %s", got)
	}

	members := map[string]AssetOrArchive{"f": NewStringAsset("hello")}
	archive := NewAssetArchive(members)
	members["g"] = NewStringAsset("extra")
	if assets, _ := archive.Assets(); len(assets) != 1 {
		t.Errorf("archive mutated through source map: %d members", len(assets))
	}
}

func TestContainsSecret(t *testing.T) {
	inner := Secret(String("s"))
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"plain string", String("x"), false},
		{"direct secret", Secret(String("x")), true},
		{"nested in array", Array([]Value{Number(1), inner}), true},
		{"nested in object", Object(map[string]Value{"a": inner}), true},
		{"inside output payload", Output(&inner, nil), true},
		{"unknown output", Output(nil, []string{"urn:a"}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.ContainsSecret(); got != tt.want {
				t.Errorf("ContainsSecret(%s) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestAllDependencies(t *testing.T) {
	known := String("v")
	tests := []struct {
		name string
		v    Value
		want []string
	}{
		{"plain value", String("x"), nil},
		{"output", Output(nil, []string{"urn:b", "urn:a"}), []string{"urn:a", "urn:b"}},
		{"resource", Resource(ResourceReference{URN: "urn:r"}), []string{"urn:r"}},
		{
			"nested union deduplicated",
			Object(map[string]Value{
				"one": Output(nil, []string{"urn:a"}),
				"two": Array([]Value{Output(&known, []string{"urn:b", "urn:a"})}),
			}),
			[]string{"urn:a", "urn:b"},
		},
		{
			"through secret wrapper",
			Secret(Output(nil, []string{"urn:s"})),
			[]string{"urn:s"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.v.AllDependencies()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("AllDependencies(%s) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	known := Number(7)
	tests := []struct {
		name string
		v    Value
		want Value
	}{
		{"plain", Number(7), Number(7)},
		{"secret", Secret(Number(7)), Number(7)},
		{"known output", Output(&known, []string{"urn:a"}), Number(7)},
		{"unknown output", Output(nil, []string{"urn:a"}), Computed()},
		{"secret around unknown", Secret(Output(nil, nil)), Computed()},
		{"stacked wrappers", Secret(Output(&known, nil)), Number(7)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Unwrap(); !got.Equal(tt.want) {
				t.Errorf("Unwrap(%s) = %s, want %s", tt.v, got, tt.want)
			}
		})
	}
}

func TestHasComputed(t *testing.T) {
	known := Number(1)
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"plain", Number(1), false},
		{"computed", Computed(), true},
		{"unknown output", Output(nil, nil), true},
		{"known output", Output(&known, nil), false},
		{"nested in object", Object(map[string]Value{"a": Array([]Value{Computed()})}), true},
		{"under secret", Secret(Computed()), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.HasComputed(); got != tt.want {
				t.Errorf("HasComputed(%s) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}
