package config

// Default returns the configuration used when no file overrides are present.
func Default() Config {
	return Config{
		Paths: Paths{
			MediaDir: "~/.local/share/merge-videos/media",
			LogDir:   "~/.local/share/merge-videos/logs",
			APIBind:  "127.0.0.1:8085",
		},
		FFmpeg: FFmpeg{
			Binary: "ffmpeg",
		},
		Workflow: Workflow{
			Workers:       2,
			QueueCapacity: 64,
		},
		Notifications: Notifications{
			Enabled: true,
			Buffer:  256,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
