package config

const (
	defaultUploadDir      = "~/.local/share/clipforge/uploads"
	defaultMergedDir      = "~/.local/share/clipforge/merged"
	defaultDataDir        = "~/.local/share/clipforge/data"
	defaultLogDir         = "~/.local/share/clipforge/logs"
	defaultAPIBind        = "127.0.0.1:8093"
	defaultWorkers        = 2
	defaultQueueDepth     = 32
	defaultOutputFormat   = "mp3"
	defaultFFmpegBinary   = "ffmpeg"
	defaultFFprobeBinary  = "ffprobe"
	defaultSampleRate     = 44100
	defaultChannels       = 2
	defaultRetainTerminal = 64
	defaultLogLevel       = "info"
	defaultLogFormat      = "text"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir: defaultUploadDir,
			MergedDir: defaultMergedDir,
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Merge: Merge{
			Workers:       defaultWorkers,
			QueueDepth:    defaultQueueDepth,
			OutputFormat:  defaultOutputFormat,
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
			SampleRate:    defaultSampleRate,
			Channels:      defaultChannels,
		},
		Jobs: Jobs{
			RetainTerminal: defaultRetainTerminal,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
