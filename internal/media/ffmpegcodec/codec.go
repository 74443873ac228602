package ffmpegcodec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"clipforge/internal/media"
	"clipforge/internal/media/ffprobe"
	"clipforge/internal/services"
)

// Codec decodes and encodes clips by shelling out to ffmpeg. Every source
// clip is decoded to a common PCM layout so buffers from different input
// formats can be concatenated directly.
type Codec struct {
	ffmpegBinary  string
	ffprobeBinary string
}

// New constructs a codec using the given binaries. Empty values fall back
// to the binaries on PATH.
func New(ffmpegBinary, ffprobeBinary string) *Codec {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	if strings.TrimSpace(ffprobeBinary) == "" {
		ffprobeBinary = "ffprobe"
	}
	return &Codec{ffmpegBinary: ffmpegBinary, ffprobeBinary: ffprobeBinary}
}

// Decode reads the clip at path and returns it as PCM at the requested
// sample rate and channel count.
func (c *Codec) Decode(ctx context.Context, path string, sampleRate, channels int) (*media.Buffer, error) {
	if strings.TrimSpace(path) == "" {
		return nil, services.Wrap(services.ErrValidation, "ffmpegcodec", "decode", "empty path", nil)
	}
	if sampleRate <= 0 || channels <= 0 {
		return nil, services.Wrap(services.ErrValidation, "ffmpegcodec", "decode", "invalid audio parameters", nil)
	}

	args := []string{
		"-v", "error",
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"pipe:1",
	}
	cmd := exec.CommandContext(ctx, c.ffmpegBinary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, services.Wrap(services.ErrCodec, "ffmpegcodec", "decode", commandFailure(path, &stderr), err)
	}
	return &media.Buffer{
		Data:       stdout.Bytes(),
		SampleRate: sampleRate,
		Channels:   channels,
	}, nil
}

// Encode writes the PCM buffer to path in the given container format.
func (c *Codec) Encode(ctx context.Context, buf *media.Buffer, path, format string) error {
	if buf == nil || len(buf.Data) == 0 {
		return services.Wrap(services.ErrValidation, "ffmpegcodec", "encode", "empty buffer", nil)
	}
	if strings.TrimSpace(path) == "" {
		return services.Wrap(services.ErrValidation, "ffmpegcodec", "encode", "empty path", nil)
	}

	args := []string{
		"-v", "error",
		"-y",
		"-f", "s16le",
		"-ar", strconv.Itoa(buf.SampleRate),
		"-ac", strconv.Itoa(buf.Channels),
		"-i", "pipe:0",
	}
	args = append(args, formatArgs(format)...)
	args = append(args, path)

	cmd := exec.CommandContext(ctx, c.ffmpegBinary, args...)
	cmd.Stdin = bytes.NewReader(buf.Data)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return services.Wrap(services.ErrCodec, "ffmpegcodec", "encode", commandFailure(path, &stderr), err)
	}
	return nil
}

// ApplyGain scales the decoded samples by the given decibel delta.
func (c *Codec) ApplyGain(buf *media.Buffer, db float64) (*media.Buffer, error) {
	return media.ApplyGainDB(buf, db)
}

// Probe returns the clip duration in seconds.
func (c *Codec) Probe(ctx context.Context, path string) (float64, error) {
	result, err := ffprobe.Inspect(ctx, c.ffprobeBinary, path)
	if err != nil {
		return 0, services.Wrap(services.ErrCodec, "ffmpegcodec", "probe", path, err)
	}
	return result.DurationSeconds(), nil
}

func formatArgs(format string) []string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "mp3":
		return []string{"-codec:a", "libmp3lame", "-q:a", "2", "-f", "mp3"}
	case "wav":
		return []string{"-codec:a", "pcm_s16le", "-f", "wav"}
	case "flac":
		return []string{"-codec:a", "flac", "-f", "flac"}
	default:
		// Validation upstream restricts formats; let ffmpeg decide here.
		return []string{"-f", strings.ToLower(strings.TrimSpace(format))}
	}
}

func commandFailure(path string, stderr *bytes.Buffer) string {
	detail := strings.TrimSpace(stderr.String())
	if detail == "" {
		return path
	}
	return fmt.Sprintf("%s: %s", path, detail)
}
