package codec

import (
	"bytes"
	"encoding/gob"
)

// GobCodec uses the standard library's encoding/gob as a dense,
// Go-native binary format — the stand-in for a Bincode-style codec for
// callers who don't need cross-language interoperability.
type GobCodec struct{}

func (c *GobCodec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *GobCodec) Decode(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (c *GobCodec) Type() CodecType {
	return CodecTypeGob
}
