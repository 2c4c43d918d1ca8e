package wire

import "bytes"

// Codec is implemented by types that can encode and decode a particular
// value type using the wire contract. A job registers one codec for each of
// its configured vertex ID, vertex value, edge value and message types;
// the same codecs are used for routing messages across workers and for
// writing checkpoints, which keeps both byte-for-byte reproducible.
type Codec[T any] interface {
	// Encode appends the encoded form of v to w.
	Encode(w *Writer, v T) error

	// Decode consumes the encoded form of a value from r.
	Decode(r *Reader) (T, error)
}

// EncodeToBytes encodes v into a standalone byte slice.
func EncodeToBytes[T any](c Codec[T], v T) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Encode(NewWriter(&buf), v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeFromBytes decodes a value previously encoded with EncodeToBytes.
func DecodeFromBytes[T any](c Codec[T], b []byte) (T, error) {
	return c.Decode(NewReader(bytes.NewReader(b)))
}

// Int64Codec encodes int64 values as signed varints.
type Int64Codec struct{}

// Encode implements Codec.
func (Int64Codec) Encode(w *Writer, v int64) error { return w.WriteVarint(v) }

// Decode implements Codec.
func (Int64Codec) Decode(r *Reader) (int64, error) { return r.ReadVarint() }

// Uint64Codec encodes uint64 values as unsigned varints.
type Uint64Codec struct{}

// Encode implements Codec.
func (Uint64Codec) Encode(w *Writer, v uint64) error { return w.WriteUvarint(v) }

// Decode implements Codec.
func (Uint64Codec) Decode(r *Reader) (uint64, error) { return r.ReadUvarint() }

// IntCodec encodes int values as signed varints.
type IntCodec struct{}

// Encode implements Codec.
func (IntCodec) Encode(w *Writer, v int) error { return w.WriteVarint(int64(v)) }

// Decode implements Codec.
func (IntCodec) Decode(r *Reader) (int, error) {
	v, err := r.ReadVarint()
	return int(v), err
}

// Float64Codec encodes float64 values as fixed-width 8-byte values.
type Float64Codec struct{}

// Encode implements Codec.
func (Float64Codec) Encode(w *Writer, v float64) error { return w.WriteFloat64(v) }

// Decode implements Codec.
func (Float64Codec) Decode(r *Reader) (float64, error) { return r.ReadFloat64() }

// BoolCodec encodes bool values as a single byte.
type BoolCodec struct{}

// Encode implements Codec.
func (BoolCodec) Encode(w *Writer, v bool) error { return w.WriteBool(v) }

// Decode implements Codec.
func (BoolCodec) Decode(r *Reader) (bool, error) { return r.ReadBool() }

// StringCodec encodes strings as length-prefixed chunks.
type StringCodec struct{}

// Encode implements Codec.
func (StringCodec) Encode(w *Writer, v string) error { return w.WriteString(v) }

// Decode implements Codec.
func (StringCodec) Decode(r *Reader) (string, error) { return r.ReadString() }

// BytesCodec encodes byte slices as length-prefixed chunks.
type BytesCodec struct{}

// Encode implements Codec.
func (BytesCodec) Encode(w *Writer, v []byte) error { return w.WriteBytes(v) }

// Decode implements Codec.
func (BytesCodec) Decode(r *Reader) ([]byte, error) { return r.ReadBytes() }

// NoneCodec encodes the unit type. It emits no bytes; jobs whose edges or
// messages carry no payload configure it for the corresponding slot.
type NoneCodec struct{}

// Encode implements Codec.
func (NoneCodec) Encode(*Writer, struct{}) error { return nil }

// Decode implements Codec.
func (NoneCodec) Decode(*Reader) (struct{}, error) { return struct{}{}, nil }
