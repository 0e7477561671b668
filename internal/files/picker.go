package files

import "strings"

// PickerAsset is one file in the assets-style picker result.
type PickerAsset struct {
	URI      string `json:"uri"`
	Name     string `json:"name"`
	Size     *int64 `json:"size,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`
}

// PickerResult accepts both document picker response shapes: the current
// {canceled, assets[]} form and the legacy flat {type: "success"|"cancel",
// uri, name, size, mimeType} form.
type PickerResult struct {
	Canceled bool          `json:"canceled"`
	Assets   []PickerAsset `json:"assets,omitempty"`

	Type     string `json:"type,omitempty"`
	URI      string `json:"uri,omitempty"`
	Name     string `json:"name,omitempty"`
	Size     *int64 `json:"size,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`
}

// Normalize returns the first selected file as a Descriptor. A canceled
// picker yields ErrCanceled.
func Normalize(p PickerResult) (Descriptor, error) {
	if p.Canceled || strings.EqualFold(p.Type, "cancel") {
		return Descriptor{}, ErrCanceled
	}

	var asset PickerAsset
	switch {
	case len(p.Assets) > 0:
		asset = p.Assets[0]
	case p.Assets != nil:
		return Descriptor{}, ErrNoFile
	case strings.EqualFold(p.Type, "success"):
		asset = PickerAsset{URI: p.URI, Name: p.Name, Size: p.Size, MIMEType: p.MIMEType}
	case p.Type == "" && p.URI == "":
		return Descriptor{}, ErrNoFile
	default:
		return Descriptor{}, ErrInvalidShape
	}

	d := Descriptor{
		Name:     asset.Name,
		URI:      asset.URI,
		MIMEType: mediaType(asset.MIMEType),
	}
	if d.Name == "" {
		d.Name = nameFromURI(asset.URI)
	}
	if asset.Size != nil {
		d.Size = *asset.Size
	}

	return d, d.Validate()
}

func nameFromURI(uri string) string {
	if i := strings.LastIndex(uri, "/"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}
