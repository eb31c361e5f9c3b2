package codec

import "github.com/vmihailenco/msgpack/v5"

// MsgpackCodec uses MessagePack, a compact cross-language binary format,
// for callers that want binary efficiency without giving up interop with
// non-Go clients.
type MsgpackCodec struct{}

func (c *MsgpackCodec) Encode(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (c *MsgpackCodec) Decode(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

func (c *MsgpackCodec) Type() CodecType {
	return CodecTypeMsgpack
}
