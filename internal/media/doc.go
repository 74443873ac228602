// Package media defines the PCM buffer model used by merge jobs and the
// codec contract for decoding and encoding clips. The ffmpegcodec and
// ffprobe subpackages provide the external-tool implementations.
package media
