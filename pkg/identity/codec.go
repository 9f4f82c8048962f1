package identity

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

const currentVersion = 1

// galleryFile is the on-disk envelope.
type galleryFile struct {
	Version   int        `json:"version" msgpack:"version"`
	UpdatedAt string     `json:"updated_at" msgpack:"updated_at"`
	Templates []Template `json:"templates" msgpack:"templates"`
}

// Codec encodes the gallery envelope.
type Codec interface {
	Marshal(v *galleryFile) ([]byte, error)
	Unmarshal(data []byte, v *galleryFile) error
	Name() string
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v *galleryFile) ([]byte, error) { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v *galleryFile) error {
	return json.Unmarshal(data, v)
}
func (jsonCodec) Name() string { return "json" }

// msgpack keeps 50 samples of 10000 floats per driver far smaller than JSON.
type msgpackCodec struct{}

func (msgpackCodec) Marshal(v *galleryFile) ([]byte, error) { return msgpack.Marshal(v) }
func (msgpackCodec) Unmarshal(data []byte, v *galleryFile) error {
	return msgpack.Unmarshal(data, v)
}
func (msgpackCodec) Name() string { return "msgpack" }

// CodecFor picks a codec from the gallery file extension.
func CodecFor(path string) (Codec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return jsonCodec{}, nil
	case ".msgpack", ".mpk":
		return msgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}
