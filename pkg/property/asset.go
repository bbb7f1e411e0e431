package property

import "fmt"

// AssetOrArchive is implemented by *Asset and *Archive, the only two types
// that can appear as members of a composed archive.
type AssetOrArchive interface {
	isAssetOrArchive()
}

// assetKind tags which asset variant a value is. The tag, not the payload,
// decides the variant, so an empty path or empty inline text is still a
// valid asset of its kind.
type assetKind int

const (
	fileAsset assetKind = iota
	stringAsset
	remoteAsset
)

// Asset is a blob of data referenced by a property value. Exactly one of
// Path, Text, or URI is set: a file asset points at a local file, a string
// asset carries its contents inline, and a remote asset points at a URI.
type Asset struct {
	kind assetKind
	path string
	text string
	uri  string
}

// NewFileAsset creates an asset backed by a local file.
func NewFileAsset(path string) *Asset {
	return &Asset{kind: fileAsset, path: path}
}

// NewStringAsset creates an asset carrying its contents inline.
func NewStringAsset(text string) *Asset {
	return &Asset{kind: stringAsset, text: text}
}

// NewRemoteAsset creates an asset fetched from a URI.
func NewRemoteAsset(uri string) *Asset {
	return &Asset{kind: remoteAsset, uri: uri}
}

// Path returns the file path and whether this is a file asset.
func (a *Asset) Path() (string, bool) {
	return a.path, a.kind == fileAsset
}

// Text returns the inline contents and whether this is a string asset.
func (a *Asset) Text() (string, bool) {
	return a.text, a.kind == stringAsset
}

// URI returns the URI and whether this is a remote asset.
func (a *Asset) URI() (string, bool) {
	return a.uri, a.kind == remoteAsset
}

// Equal reports whether two assets are equal.
func (a *Asset) Equal(o *Asset) bool {
	if a == nil || o == nil {
		return a == o
	}
	return a.kind == o.kind && a.path == o.path && a.text == o.text && a.uri == o.uri
}

// String renders the asset for logs and error messages.
func (a *Asset) String() string {
	switch a.kind {
	case fileAsset:
		return fmt.Sprintf("asset(path=%s)", a.path)
	case remoteAsset:
		return fmt.Sprintf("asset(uri=%s)", a.uri)
	default:
		return "asset(text)"
	}
}

func (*Asset) isAssetOrArchive() {}

// archiveKind tags which archive variant a value is.
type archiveKind int

const (
	fileArchive archiveKind = iota
	remoteArchive
	assetArchive
)

// Archive is a collection of assets referenced by a property value. Exactly
// one of Path, URI, or Assets is set: a file archive points at a local
// archive file, a remote archive points at a URI, and a composed archive
// maps member names to nested assets or archives.
type Archive struct {
	kind   archiveKind
	path   string
	uri    string
	assets map[string]AssetOrArchive
}

// NewFileArchive creates an archive backed by a local file.
func NewFileArchive(path string) *Archive {
	return &Archive{kind: fileArchive, path: path}
}

// NewRemoteArchive creates an archive fetched from a URI.
func NewRemoteArchive(uri string) *Archive {
	return &Archive{kind: remoteArchive, uri: uri}
}

// NewAssetArchive creates an archive composed of named assets and archives.
// The map is copied.
func NewAssetArchive(assets map[string]AssetOrArchive) *Archive {
	cp := make(map[string]AssetOrArchive, len(assets))
	for k, v := range assets {
		cp[k] = v
	}
	return &Archive{kind: assetArchive, assets: cp}
}

// Path returns the file path and whether this is a file archive.
func (a *Archive) Path() (string, bool) {
	return a.path, a.kind == fileArchive
}

// URI returns the URI and whether this is a remote archive.
func (a *Archive) URI() (string, bool) {
	return a.uri, a.kind == remoteArchive
}

// Assets returns a copy of the member map and whether this is a composed
// archive.
func (a *Archive) Assets() (map[string]AssetOrArchive, bool) {
	if a.kind != assetArchive {
		return nil, false
	}
	cp := make(map[string]AssetOrArchive, len(a.assets))
	for k, v := range a.assets {
		cp[k] = v
	}
	return cp, true
}

// Equal reports whether two archives are equal.
func (a *Archive) Equal(o *Archive) bool {
	if a == nil || o == nil {
		return a == o
	}
	if a.kind != o.kind || a.path != o.path || a.uri != o.uri {
		return false
	}
	if len(a.assets) != len(o.assets) {
		return false
	}
	for k, v := range a.assets {
		ov, ok := o.assets[k]
		if !ok {
			return false
		}
		switch v := v.(type) {
		case *Asset:
			oa, ok := ov.(*Asset)
			if !ok || !v.Equal(oa) {
				return false
			}
		case *Archive:
			oa, ok := ov.(*Archive)
			if !ok || !v.Equal(oa) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// String renders the archive for logs and error messages.
func (a *Archive) String() string {
	switch a.kind {
	case fileArchive:
		return fmt.Sprintf("archive(path=%s)", a.path)
	case remoteArchive:
		return fmt.Sprintf("archive(uri=%s)", a.uri)
	default:
		return fmt.Sprintf("archive(%d assets)", len(a.assets))
	}
}

func (*Archive) isAssetOrArchive() {}
