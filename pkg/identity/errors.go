package identity

import "errors"

// Sentinel errors for the identity package.
var (
	// ErrEmptyGallery indicates there is nothing enrolled to compare against.
	ErrEmptyGallery = errors.New("identity: gallery is empty")

	// ErrFeatureLength indicates a vector's length does not match the gallery.
	ErrFeatureLength = errors.New("identity: feature length mismatch")

	// ErrEmptyLabel indicates a template without a label.
	ErrEmptyLabel = errors.New("identity: label is required")

	// ErrNoCrop indicates a face had no pixels to extract features from.
	ErrNoCrop = errors.New("identity: empty face crop")

	// ErrUnsupportedFormat indicates a gallery file extension with no codec.
	ErrUnsupportedFormat = errors.New("identity: unsupported gallery format")
)
