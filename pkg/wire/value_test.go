package wire

import (
	"encoding/json"
	"testing"
)

func TestValueJSONRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		v    Value
	}{
		{"null", Null()},
		{"bool", Bool(true)},
		{"number", Number(3.25)},
		{"string", String("hello")},
		{"empty list", List(nil)},
		{"list", List([]Value{Number(1), String("two"), Null()})},
		{"empty struct", Struct(nil)},
		{
			"struct",
			Struct(map[string]Value{
				"a": Bool(false),
				"b": List([]Value{Number(2)}),
				"c": Struct(map[string]Value{"nested": String("x")}),
			}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.v)
			if err != nil {
				t.Fatalf("marshal failed: %v", err)
			}
			var got Value
			if err := json.Unmarshal(b, &got); err != nil {
				t.Fatalf("unmarshal of %s failed: %v", b, err)
			}
			if !got.Equal(tt.v) {
				t.Errorf("round trip of %s produced %s", tt.v, got)
			}
		})
	}
}

func TestValueMarshalStableKeyOrder(t *testing.T) {
	v := Struct(map[string]Value{"b": Number(2), "a": Number(1), "c": Number(3)})
	want := `{"a":1,"b":2,"c":3}`
	for i := 0; i < 10; i++ {
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		if string(b) != want {
			t.Fatalf("encoding = %s, want %s", b, want)
		}
	}
}

func TestValueUnmarshalInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"garbage", "not-json"},
		{"truncated list", "[1, 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Value
			if err := json.Unmarshal([]byte(tt.data), &v); err == nil {
				t.Errorf("expected error for %q", tt.data)
			}
		})
	}
}

func TestValueEqualStructOrderInsensitive(t *testing.T) {
	a := Struct(map[string]Value{"x": Number(1), "y": String("s")})
	b := Struct(map[string]Value{"y": String("s"), "x": Number(1)})
	if !a.Equal(b) {
		t.Error("structs with same fields compared unequal")
	}
	c := Struct(map[string]Value{"x": Number(1)})
	if a.Equal(c) {
		t.Error("structs with different fields compared equal")
	}
}

func TestSig(t *testing.T) {
	tagged := Struct(map[string]Value{SigKey: String(SecretSig), "value": String("v")})
	sig, ok := tagged.Sig()
	if !ok || sig != SecretSig {
		t.Errorf("Sig() = %q, %v; want %q, true", sig, ok, SecretSig)
	}

	plain := Struct(map[string]Value{"value": String("v")})
	if _, ok := plain.Sig(); ok {
		t.Error("plain struct reported a signature")
	}

	nonString := Struct(map[string]Value{SigKey: Number(1)})
	if _, ok := nonString.Sig(); ok {
		t.Error("non-string signature field reported a signature")
	}
}
