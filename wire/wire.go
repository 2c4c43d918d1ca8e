package wire

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"golang.org/x/xerrors"
)

// ErrCorrupt is returned by Reader methods when the underlying stream does
// not contain a well-formed value.
var ErrCorrupt = xerrors.New("corrupt wire data")

// maxChunkLen caps the length prefix of byte chunks so that a corrupt length
// field cannot trigger an arbitrarily large allocation.
const maxChunkLen = 1 << 26

// Writer encodes primitive values using an explicit binary contract: varints
// for integral types, fixed-width little-endian for floats and
// length-prefixed chunks for byte slices and strings. The encoded form is
// byte-for-byte reproducible across processes and restarts.
type Writer struct {
	w       io.Writer
	scratch [binary.MaxVarintLen64]byte
}

// NewWriter returns a Writer that appends encoded values to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteUvarint encodes v as an unsigned varint.
func (w *Writer) WriteUvarint(v uint64) error {
	n := binary.PutUvarint(w.scratch[:], v)
	_, err := w.w.Write(w.scratch[:n])
	return err
}

// WriteVarint encodes v as a zig-zag signed varint.
func (w *Writer) WriteVarint(v int64) error {
	n := binary.PutVarint(w.scratch[:], v)
	_, err := w.w.Write(w.scratch[:n])
	return err
}

// WriteFloat64 encodes v as a fixed-width 8-byte value.
func (w *Writer) WriteFloat64(v float64) error {
	binary.LittleEndian.PutUint64(w.scratch[:8], math.Float64bits(v))
	_, err := w.w.Write(w.scratch[:8])
	return err
}

// WriteBool encodes v as a single byte.
func (w *Writer) WriteBool(v bool) error {
	w.scratch[0] = 0
	if v {
		w.scratch[0] = 1
	}
	_, err := w.w.Write(w.scratch[:1])
	return err
}

// WriteBytes encodes b as a length-prefixed chunk.
func (w *Writer) WriteBytes(b []byte) error {
	if err := w.WriteUvarint(uint64(len(b))); err != nil {
		return err
	}
	_, err := w.w.Write(b)
	return err
}

// WriteString encodes s as a length-prefixed chunk.
func (w *Writer) WriteString(s string) error {
	return w.WriteBytes([]byte(s))
}

// WriteField encodes a tagged, length-prefixed field. Readers that do not
// recognize a tag can skip the field without understanding its contents
// which allows optional fields to be added to record layouts.
func (w *Writer) WriteField(tag uint64, payload []byte) error {
	if err := w.WriteUvarint(tag); err != nil {
		return err
	}
	return w.WriteBytes(payload)
}

// Reader decodes values encoded by a Writer.
type Reader struct {
	r *bufio.Reader
}

// NewReader returns a Reader that consumes encoded values from r.
func NewReader(r io.Reader) *Reader {
	if br, ok := r.(*bufio.Reader); ok {
		return &Reader{r: br}
	}
	return &Reader{r: bufio.NewReader(r)}
}

// ReadUvarint decodes an unsigned varint.
func (r *Reader) ReadUvarint() (uint64, error) {
	v, err := binary.ReadUvarint(r.r)
	if err != nil {
		return 0, corrupt(err)
	}
	return v, nil
}

// ReadVarint decodes a zig-zag signed varint.
func (r *Reader) ReadVarint() (int64, error) {
	v, err := binary.ReadVarint(r.r)
	if err != nil {
		return 0, corrupt(err)
	}
	return v, nil
}

// ReadFloat64 decodes a fixed-width 8-byte float value.
func (r *Reader) ReadFloat64() (float64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r.r, buf[:]); err != nil {
		return 0, corrupt(err)
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[:])), nil
}

// ReadBool decodes a single-byte bool value.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return false, corrupt(err)
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, xerrors.Errorf("unexpected bool marker %d: %w", b, ErrCorrupt)
	}
}

// ReadBytes decodes a length-prefixed chunk.
func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	if n > maxChunkLen {
		return nil, xerrors.Errorf("chunk length %d exceeds limit: %w", n, ErrCorrupt)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return nil, corrupt(err)
	}
	return buf, nil
}

// ReadString decodes a length-prefixed string chunk.
func (r *Reader) ReadString() (string, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadField decodes the tag and payload of the next tagged field.
func (r *Reader) ReadField() (uint64, []byte, error) {
	tag, err := r.ReadUvarint()
	if err != nil {
		return 0, nil, err
	}
	payload, err := r.ReadBytes()
	if err != nil {
		return 0, nil, err
	}
	return tag, payload, nil
}

func corrupt(err error) error {
	if err == io.EOF {
		return io.EOF
	}
	return xerrors.Errorf("%v: %w", err, ErrCorrupt)
}
