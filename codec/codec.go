// Package codec implements the length-prefixed framed message codec: a
// wire frame is a little-endian u64 size header followed by that many
// bytes of an implementation-defined body encoding. It turns byte streams
// into typed message streams for both service request/response traffic
// and dispatch id decoding.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// HeaderSize is the fixed width of the frame size header.
const HeaderSize = 8

// DefaultMaxFrameSize bounds the memory a single frame may claim before
// Decode refuses to believe its own header. Override via
// Framed.MaxFrameSize for a different cap.
const DefaultMaxFrameSize = 16 << 20 // 16 MiB

// ErrFrameTooLarge is returned when a decoded header claims a body larger
// than the configured maximum frame size.
var ErrFrameTooLarge = errors.New("codec: frame exceeds maximum size")

// ErrMalformedHeader is returned when a frame header cannot be parsed.
var ErrMalformedHeader = errors.New("codec: malformed frame header")

// Codec turns a value of type T into an exact-length byte slice and back.
// Implementations must not add any length prefix of their own — that is
// Framed's job.
type Codec[T any] interface {
	Marshal(item T) ([]byte, error)
	Unmarshal(data []byte) (T, error)
}

// MsgpackCodec encodes message bodies with msgpack. It is the concrete
// Codec used for dispatch ids and service Request/Response envelopes.
type MsgpackCodec[T any] struct{}

func (MsgpackCodec[T]) Marshal(item T) ([]byte, error) {
	b, err := msgpack.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("codec: marshalling: %w", err)
	}
	return b, nil
}

func (MsgpackCodec[T]) Unmarshal(data []byte) (T, error) {
	var item T
	if err := msgpack.Unmarshal(data, &item); err != nil {
		return item, fmt.Errorf("codec: unmarshalling: %w", err)
	}
	return item, nil
}

// Encode writes size(8 bytes LE) || body into buf, where body is
// codec.Marshal(item). It never truncates buf — bytes are appended.
func Encode[T any](c Codec[T], item T, buf []byte) ([]byte, error) {
	body, err := c.Marshal(item)
	if err != nil {
		return buf, err
	}
	header := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint64(header, uint64(len(body)))
	buf = append(buf, header...)
	buf = append(buf, body...)
	return buf, nil
}

// Decode attempts to peel one frame off the front of src without
// consuming any bytes unless a full frame is present. It returns the
// decoded item, the number of bytes consumed from src, and an error; a
// "need more" outcome (no full frame yet) is consumed==0 with err==nil.
func Decode[T any](c Codec[T], src []byte, maxFrameSize int) (item T, consumed int, err error) {
	if len(src) < HeaderSize {
		return item, 0, nil
	}
	size := binary.LittleEndian.Uint64(src[:HeaderSize])
	if maxFrameSize > 0 && size > uint64(maxFrameSize) {
		return item, 0, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, size, maxFrameSize)
	}
	total := HeaderSize + int(size)
	if len(src) < total {
		return item, 0, nil
	}
	item, err = c.Unmarshal(src[HeaderSize:total])
	if err != nil {
		return item, 0, err
	}
	return item, total, nil
}

// Framed adapts a byte-oriented io.Reader/io.Writer pair into a typed
// message stream/sink over Codec[T]. It is restartable across partial
// reads: a partial frame never advances the internal buffer. Decode itself
// allocates nothing on a "need more" outcome; Recv allocates a fresh read
// chunk for each read it issues.
type Framed[T any] struct {
	r            io.Reader
	w            io.Writer
	codec        Codec[T]
	buf          []byte
	chunkSize    int
	MaxFrameSize int
}

// NewFramed wraps r and w with codec c using the default chunk size and max
// frame size.
func NewFramed[T any](r io.Reader, w io.Writer, c Codec[T]) *Framed[T] {
	return &Framed[T]{
		r:            r,
		w:            w,
		codec:        c,
		chunkSize:    4096,
		MaxFrameSize: DefaultMaxFrameSize,
	}
}

// Recv reads from the underlying reader until one full frame decodes, or
// returns io.EOF when the peer closed the stream with no pending frame.
func (f *Framed[T]) Recv() (T, error) {
	for {
		item, consumed, err := Decode[T](f.codec, f.buf, f.MaxFrameSize)
		if err != nil {
			var zero T
			return zero, err
		}
		if consumed > 0 {
			remaining := len(f.buf) - consumed
			copy(f.buf, f.buf[consumed:])
			f.buf = f.buf[:remaining]
			return item, nil
		}

		chunk := make([]byte, f.chunkSize)
		n, err := f.r.Read(chunk)
		if n > 0 {
			f.buf = append(f.buf, chunk[:n]...)
		}
		if err != nil {
			if n > 0 {
				continue
			}
			var zero T
			return zero, err
		}
	}
}

// Send encodes item and writes it to the underlying writer in full.
func (f *Framed[T]) Send(item T) error {
	out, err := Encode[T](f.codec, item, nil)
	if err != nil {
		return err
	}
	for len(out) > 0 {
		n, err := f.w.Write(out)
		if err != nil {
			return fmt.Errorf("codec: writing frame: %w", err)
		}
		out = out[n:]
	}
	return nil
}

// TakeBuffered returns and clears any bytes already read into the internal
// buffer but not yet consumed as a full frame. Used by dispatch.DispatchStream
// to forward tail bytes buffered while peeling the id frame off the stream,
// per spec §9 ("id-frame tail bytes").
func (f *Framed[T]) TakeBuffered() []byte {
	b := f.buf
	f.buf = nil
	return b
}

// Reader returns the underlying io.Reader, for handing off to a consumer
// that wants to keep reading raw bytes after Framed stops being used.
func (f *Framed[T]) Reader() io.Reader { return f.r }
