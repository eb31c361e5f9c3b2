// Package codec provides the serialization layer for the engine.
//
// It defines a pluggable Codec interface with several implementations:
//   - JSONCodec:    human-readable, easy to debug, slower (~589 ns/op)
//   - BinaryCodec:  compact binary format specific to RPCMessage, faster (~65 ns/op)
//   - GobCodec:     encoding/gob, a Bincode-equivalent dense binary format
//   - MsgpackCodec: github.com/vmihailenco/msgpack, cross-language binary format
//   - CBORCodec:    github.com/fxamacker/cbor, cross-language binary format with a stable spec
//
// The codec type is written into each protocol frame header. Receivers
// decode with their own configured codec; they do not pick one from the
// header.
package codec

// CodecType identifies the serialization format, stored as 1 byte in the frame header.
type CodecType byte

const (
	CodecTypeJSON    CodecType = 0 // JSON serialization (encoding/json)
	CodecTypeBinary  CodecType = 1 // Custom binary serialization, RPCMessage-specific
	CodecTypeGob     CodecType = 2 // encoding/gob
	CodecTypeMsgpack CodecType = 3 // MessagePack via vmihailenco/msgpack
	CodecTypeCBOR    CodecType = 4 // CBOR via fxamacker/cbor
)

// Codec is the interface for serialization/deserialization.
// Implementing this interface allows adding new formats (e.g., Protobuf)
// without changing any other layer — this is the Strategy Pattern.
type Codec interface {
	Encode(v any) ([]byte, error)    // Serialize a struct to bytes
	Decode(data []byte, v any) error // Deserialize bytes back to a struct
	Type() CodecType                 // Return the codec type identifier
}

// GetCodec is a factory function that returns the appropriate codec by type.
func GetCodec(codecType CodecType) Codec {
	switch codecType {
	case CodecTypeJSON:
		return &JSONCodec{}
	case CodecTypeGob:
		return &GobCodec{}
	case CodecTypeMsgpack:
		return &MsgpackCodec{}
	case CodecTypeCBOR:
		return &CBORCodec{}
	default:
		return &BinaryCodec{}
	}
}
