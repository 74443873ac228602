package media

import (
	"context"
	"encoding/binary"
	"math"

	"clipforge/internal/services"
)

// Buffer holds decoded audio as interleaved signed 16-bit little-endian PCM.
// All merge arithmetic happens on this representation so the concatenation
// and gain steps stay independent of the container formats on disk.
type Buffer struct {
	Data       []byte
	SampleRate int
	Channels   int
}

// DurationSeconds returns the playback length of the buffer.
func (b *Buffer) DurationSeconds() float64 {
	if b == nil || b.SampleRate <= 0 || b.Channels <= 0 {
		return 0
	}
	frames := len(b.Data) / (2 * b.Channels)
	return float64(frames) / float64(b.SampleRate)
}

// Clone returns an independent copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	if b == nil {
		return nil
	}
	cp := *b
	cp.Data = append([]byte(nil), b.Data...)
	return &cp
}

// Codec decodes source clips to PCM, adjusts levels, and encodes merged
// PCM back to a container format. Implementations are expected to honor
// context cancellation on the decode, encode, and probe calls.
type Codec interface {
	Decode(ctx context.Context, path string, sampleRate, channels int) (*Buffer, error)
	Encode(ctx context.Context, buf *Buffer, path, format string) error
	ApplyGain(buf *Buffer, db float64) (*Buffer, error)
	Probe(ctx context.Context, path string) (float64, error)
}

// Concatenate joins the buffers in order into a single buffer. Every input
// must share the first buffer's sample rate and channel count.
func Concatenate(buffers []*Buffer) (*Buffer, error) {
	if len(buffers) == 0 {
		return nil, services.Wrap(services.ErrValidation, "media", "concatenate", "no buffers to join", nil)
	}
	first := buffers[0]
	if first == nil || first.SampleRate <= 0 || first.Channels <= 0 {
		return nil, services.Wrap(services.ErrValidation, "media", "concatenate", "first buffer has no audio parameters", nil)
	}
	total := 0
	for _, buf := range buffers {
		if buf == nil {
			return nil, services.Wrap(services.ErrValidation, "media", "concatenate", "nil buffer in sequence", nil)
		}
		if buf.SampleRate != first.SampleRate || buf.Channels != first.Channels {
			return nil, services.Wrap(services.ErrValidation, "media", "concatenate", "mismatched audio parameters across clips", nil)
		}
		total += len(buf.Data)
	}

	joined := make([]byte, 0, total)
	for _, buf := range buffers {
		joined = append(joined, buf.Data...)
	}
	return &Buffer{Data: joined, SampleRate: first.SampleRate, Channels: first.Channels}, nil
}

// ApplyGainDB scales every sample by the given decibel delta, clipping at
// the 16-bit range. A zero delta returns an unmodified copy.
func ApplyGainDB(buf *Buffer, db float64) (*Buffer, error) {
	if buf == nil {
		return nil, services.Wrap(services.ErrValidation, "media", "gain", "nil buffer", nil)
	}
	out := buf.Clone()
	if db == 0 {
		return out, nil
	}
	factor := math.Pow(10, db/20)
	for i := 0; i+1 < len(out.Data); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(out.Data[i:]))
		scaled := math.Round(float64(sample) * factor)
		if scaled > math.MaxInt16 {
			scaled = math.MaxInt16
		} else if scaled < math.MinInt16 {
			scaled = math.MinInt16
		}
		binary.LittleEndian.PutUint16(out.Data[i:], uint16(int16(scaled)))
	}
	return out, nil
}
