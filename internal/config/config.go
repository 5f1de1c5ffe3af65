package config

import "time"

// Config holds connector configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogPretty         bool          `mapstructure:"log_pretty" yaml:"log_pretty"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	MetadataTTL       time.Duration `mapstructure:"metadata_ttl" yaml:"metadata_ttl"`

	Auth  AuthConfig  `mapstructure:"auth" yaml:"auth"`
	XMPP  XMPPConfig  `mapstructure:"xmpp" yaml:"xmpp"`
	Prefs PrefsConfig `mapstructure:"prefs" yaml:"prefs"`

	RateLimitPerSecond float64 `mapstructure:"rate_limit_per_second" yaml:"rate_limit_per_second"`
	RateLimitBurst     int     `mapstructure:"rate_limit_burst" yaml:"rate_limit_burst"`
}

// AuthConfig describes the host application's authentication endpoint and the
// shared-secret parameters for validating host-issued tokens.
type AuthConfig struct {
	URL            string        `mapstructure:"url" yaml:"url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	JWTSecret      string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer      string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience    string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	OIDCProviders  []string      `mapstructure:"oidc_providers" yaml:"oidc_providers"`
}

// XMPPConfig describes the local chat server: where local rooms live and what
// federation transports the server itself advertises.
type XMPPConfig struct {
	Domain        string `mapstructure:"domain" yaml:"domain"`
	MUCDomain     string `mapstructure:"muc_domain" yaml:"muc_domain"`
	AnonymousHost string `mapstructure:"anonymous_host" yaml:"anonymous_host"`
	BOSHURL       string `mapstructure:"bosh_url" yaml:"bosh_url"`
	WebsocketURL  string `mapstructure:"websocket_url" yaml:"websocket_url"`
	WebsocketS2S  bool   `mapstructure:"websocket_s2s" yaml:"websocket_s2s"`
	DirectS2S     bool   `mapstructure:"direct_s2s" yaml:"direct_s2s"`
}

// PrefsConfig carries the instance-wide defaults for user preferences; the
// host page may override them per request.
type PrefsConfig struct {
	AutoViewerMode   bool `mapstructure:"auto_viewer_mode" yaml:"auto_viewer_mode"`
	ForceReadonly    bool `mapstructure:"force_readonly" yaml:"force_readonly"`
	AdvancedControls bool `mapstructure:"advanced_controls" yaml:"advanced_controls"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		LogPretty:         true,
		DatabasePath:      "connector.db",
		MetadataTTL:       1 * time.Hour,
		Auth: AuthConfig{
			RequestTimeout: 5 * time.Second,
			JWTIssuer:      "peertube",
			JWTAudience:    "livechat",
		},
		XMPP: XMPPConfig{
			Domain:        "localhost",
			MUCDomain:     "room.localhost",
			AnonymousHost: "anon.localhost",
			BOSHURL:       "http://localhost:5280/http-bind",
			WebsocketURL:  "ws://localhost:5280/xmpp-websocket",
			WebsocketS2S:  true,
		},
		RateLimitPerSecond: 10,
		RateLimitBurst:     20,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.Auth.URL != "" {
		c.Auth.URL = other.Auth.URL
	}
	if other.XMPP.Domain != "" {
		c.XMPP = other.XMPP
	}
}
