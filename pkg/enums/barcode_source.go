package enums

import "fmt"

// BarcodeSource records whether a barcode was minted by the allocator or
// registered from a supplier-issued code.
type BarcodeSource string

const (
	BarcodeSourceGenerated BarcodeSource = "generated"
	BarcodeSourceExternal  BarcodeSource = "external"
)

var validBarcodeSources = []BarcodeSource{
	BarcodeSourceGenerated,
	BarcodeSourceExternal,
}

// String implements fmt.Stringer.
func (b BarcodeSource) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BarcodeSource.
func (b BarcodeSource) IsValid() bool {
	for _, candidate := range validBarcodeSources {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBarcodeSource converts raw input into a BarcodeSource.
func ParseBarcodeSource(value string) (BarcodeSource, error) {
	for _, candidate := range validBarcodeSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid barcode source %q", value)
}
