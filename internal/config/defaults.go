package config

import "time"

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Service: ServiceConfig{
			BaseURL:        "http://localhost:3000",
			TimeoutSeconds: 60,
		},
		Voice: VoiceConfig{
			Enabled:    true,
			ProfileDir: "~/.guardian/profiles",
		},
		Session: SessionConfig{
			IdleMinutes: 10,
		},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  "~/.guardian/history.db",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9695",
		},
	}
}

// IdleWindow returns the configured inactivity window as a duration.
func (s SessionConfig) IdleWindow() time.Duration {
	return time.Duration(s.IdleMinutes) * time.Minute
}

// Timeout returns the per-request timeout as a duration.
func (s ServiceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}
