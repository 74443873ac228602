// Package ffmpegcodec implements the media.Codec contract by invoking
// ffmpeg and ffprobe as external processes.
package ffmpegcodec
