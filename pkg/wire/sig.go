package wire

// SigKey is the reserved field name used to encode type identity inside a
// struct-shaped wire value. A struct carrying this key is not a plain
// object; the key's string value selects the special decoding rule.
const SigKey = "4dabf18193072939515e22adb298388d"

const (
	// AssetSig tags a struct-shaped wire value as an asset.
	AssetSig = "c44067f5952c0a294b673a41bacd8c17"

	// ArchiveSig tags a struct-shaped wire value as an archive.
	ArchiveSig = "0def7320c3a5731c473e5ecbe6d01bc7"

	// SecretSig tags a struct-shaped wire value as a secret wrapper.
	SecretSig = "1b47061264138c4ac30d75fd1eb44270"

	// ResourceReferenceSig tags a struct-shaped wire value as a reference
	// to another resource.
	ResourceReferenceSig = "5cf8f73096256a8f31e491e813e4eb8e"

	// OutputValueSig tags a struct-shaped wire value as an output value
	// carrying optional value, secret, and dependencies fields.
	OutputValueSig = "d0e6a833031e9bbcd3f4e8bde6ca49a4"
)

// UnknownStringValue is the legacy sentinel marking a single property as not
// yet known in the bulk-map protocol path. Decoders must recognize it;
// encoders prefer the explicit output-value struct shape.
const UnknownStringValue = "04da6b54-80e4-46f7-96ec-b56ff0331ba9"

// Sig returns the signature string of a struct-shaped value, if present.
func (v Value) Sig() (string, bool) {
	if v.kind != KindStruct {
		return "", false
	}
	sig, ok := v.fields[SigKey]
	if !ok || sig.kind != KindString {
		return "", false
	}
	return sig.str, true
}
