package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateMerge(); err != nil {
		return err
	}
	if err := c.validateJobs(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.UploadDir == "" {
		return errors.New("paths.upload_dir must be set")
	}
	if c.Paths.MergedDir == "" {
		return errors.New("paths.merged_dir must be set")
	}
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.UploadDir == c.Paths.MergedDir {
		return errors.New("paths.upload_dir and paths.merged_dir must differ")
	}
	return nil
}

func (c *Config) validateMerge() error {
	if c.Merge.Workers < 1 {
		return errors.New("merge.workers must be at least 1")
	}
	if c.Merge.QueueDepth < 1 {
		return errors.New("merge.queue_depth must be at least 1")
	}
	switch c.Merge.OutputFormat {
	case "mp3", "wav", "flac":
	default:
		return fmt.Errorf("merge.output_format: unsupported value %q", c.Merge.OutputFormat)
	}
	if c.Merge.SampleRate < 8000 {
		return errors.New("merge.sample_rate must be at least 8000")
	}
	if c.Merge.Channels != 1 && c.Merge.Channels != 2 {
		return errors.New("merge.channels must be 1 or 2")
	}
	return nil
}

func (c *Config) validateJobs() error {
	if c.Jobs.RetainTerminal < 1 {
		return errors.New("jobs.retain_terminal must be at least 1")
	}
	return nil
}
