package codec

import "github.com/fxamacker/cbor/v2"

// CBORCodec uses CBOR (RFC 8949), a cross-language binary format with a
// stable published spec — a useful alternative to MessagePack when a peer
// requires CBOR specifically.
type CBORCodec struct{}

func (c *CBORCodec) Encode(v any) ([]byte, error) {
	return cbor.Marshal(v)
}

func (c *CBORCodec) Decode(data []byte, v any) error {
	return cbor.Unmarshal(data, v)
}

func (c *CBORCodec) Type() CodecType {
	return CodecTypeCBOR
}
