package config

import (
	"errors"
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	for _, field := range []*string{&c.Paths.MediaDir, &c.Paths.LogDir} {
		if strings.TrimSpace(*field) == "" {
			continue
		}
		expanded, err := ExpandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.FFmpeg.Binary = strings.TrimSpace(c.FFmpeg.Binary)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}

// Validate reports configuration errors that would prevent startup.
func (c *Config) Validate() error {
	var problems []string

	if c.Paths.MediaDir == "" {
		problems = append(problems, "paths.media_dir is required")
	}
	if c.Paths.LogDir == "" {
		problems = append(problems, "paths.log_dir is required")
	}
	if c.Paths.APIBind == "" {
		problems = append(problems, "paths.api_bind is required")
	}
	if c.FFmpeg.Binary == "" {
		problems = append(problems, "ffmpeg.binary is required")
	}
	if c.Workflow.Workers < 1 {
		problems = append(problems, "workflow.workers must be at least 1")
	}
	if c.Workflow.QueueCapacity < 1 {
		problems = append(problems, "workflow.queue_capacity must be at least 1")
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not supported", c.Logging.Format))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
