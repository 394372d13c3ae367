package app

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"woorkroom-web/authapi"
)

// EnvPrefix prefixes environment overrides, e.g. WOORKROOM_API_BASE_URL.
const EnvPrefix = "WOORKROOM"

// Credential media accepted by credential.medium.
const (
	MediumCookie = "cookie"
	MediumRedis  = "redis"
	MediumMemory = "memory"
)

// ErrUnknownMedium is returned for a credential.medium that is not one of the above.
var ErrUnknownMedium = errors.New("unknown credential medium")

// Options is the full runtime configuration.
type Options struct {
	Server     ServerOptions     `mapstructure:"server"`
	Log        LogOptions        `mapstructure:"log"`
	API        APIOptions        `mapstructure:"api"`
	Credential CredentialOptions `mapstructure:"credential"`
	Redis      RedisOptions      `mapstructure:"redis"`
	Guard      GuardOptions      `mapstructure:"guard"`
	RateLimit  RateLimitOptions  `mapstructure:"ratelimit"`
	DevAPI     DevAPIOptions     `mapstructure:"devapi"`
}

type ServerOptions struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
}

type LogOptions struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// APIOptions points at the remote user API.
type APIOptions struct {
	Kind    string        `mapstructure:"kind"`
	BaseURL string        `mapstructure:"base-url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// CredentialOptions selects where tokens are kept.
type CredentialOptions struct {
	Medium      string        `mapstructure:"medium"`
	Secure      bool          `mapstructure:"secure"`
	RememberFor time.Duration `mapstructure:"remember-for"`
}

type RedisOptions struct {
	URL string `mapstructure:"url"`
}

// GuardOptions configures the route guard.
type GuardOptions struct {
	// EntryPoint is where unauthenticated visitors of protected routes are sent.
	EntryPoint string `mapstructure:"entry-point"`
}

// RateLimitOptions bounds form submissions per client IP. RPS of zero disables it.
type RateLimitOptions struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// DevAPIOptions configures the local stand-in user API.
type DevAPIOptions struct {
	Addr        string `mapstructure:"addr"`
	IssueTokens bool   `mapstructure:"issue-tokens"`
	SigningKeys int    `mapstructure:"signing-keys"`
}

// NewOptions returns the defaults.
func NewOptions() *Options {
	return &Options{
		Server: ServerOptions{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogOptions{
			Level:  "info",
			Format: "console",
		},
		API: APIOptions{
			Kind:    authapi.KindREST,
			BaseURL: "https://nt-shopping-list.onrender.com",
			Timeout: 30 * time.Second,
		},
		Credential: CredentialOptions{
			Medium:      MediumCookie,
			RememberFor: 30 * 24 * time.Hour,
		},
		Redis: RedisOptions{
			URL: "redis://127.0.0.1:6379/0",
		},
		Guard: GuardOptions{
			EntryPoint: "/auth/login",
		},
		RateLimit: RateLimitOptions{
			RPS:   2,
			Burst: 5,
		},
		DevAPI: DevAPIOptions{
			Addr:        ":4000",
			IssueTokens: true,
			SigningKeys: 2,
		},
	}
}

// AddFlags registers every option on fs, with the current values as defaults.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Server.Addr, "server.addr", o.Server.Addr, "Address the web frontend listens on.")
	fs.DurationVar(&o.Server.ShutdownTimeout, "server.shutdown-timeout", o.Server.ShutdownTimeout, "Grace period for in-flight requests on shutdown.")

	fs.StringVar(&o.Log.Level, "log.level", o.Log.Level, "Log level: debug, info, warn, error.")
	fs.StringVar(&o.Log.Format, "log.format", o.Log.Format, "Log encoding: console or json.")

	fs.StringVar(&o.API.Kind, "api.kind", o.API.Kind, "Remote user API flavour: rest or kratos.")
	fs.StringVar(&o.API.BaseURL, "api.base-url", o.API.BaseURL, "Base URL of the remote user API.")
	fs.DurationVar(&o.API.Timeout, "api.timeout", o.API.Timeout, "Timeout of a single remote API call. Zero keeps the transport default.")

	fs.StringVar(&o.Credential.Medium, "credential.medium", o.Credential.Medium, "Where tokens are kept: cookie, redis or memory.")
	fs.BoolVar(&o.Credential.Secure, "credential.secure", o.Credential.Secure, "Mark credential cookies Secure (HTTPS only).")
	fs.DurationVar(&o.Credential.RememberFor, "credential.remember-for", o.Credential.RememberFor, "Lifetime of credentials stored with remember me.")

	fs.StringVar(&o.Redis.URL, "redis.url", o.Redis.URL, "Redis URL, used when credential.medium is redis.")

	fs.StringVar(&o.Guard.EntryPoint, "guard.entry-point", o.Guard.EntryPoint, "Route unauthenticated visitors are redirected to.")

	fs.Float64Var(&o.RateLimit.RPS, "ratelimit.rps", o.RateLimit.RPS, "Form submissions per second allowed per client IP. Zero disables limiting.")
	fs.IntVar(&o.RateLimit.Burst, "ratelimit.burst", o.RateLimit.Burst, "Burst of form submissions allowed per client IP.")

	fs.StringVar(&o.DevAPI.Addr, "devapi.addr", o.DevAPI.Addr, "Address the development user API listens on.")
	fs.BoolVar(&o.DevAPI.IssueTokens, "devapi.issue-tokens", o.DevAPI.IssueTokens, "Return tokens from the development user API.")
	fs.IntVar(&o.DevAPI.SigningKeys, "devapi.signing-keys", o.DevAPI.SigningKeys, "Number of rotating signing keys of the development user API.")
}

// Validate checks the options for consistency.
func (o *Options) Validate() error {
	switch o.API.Kind {
	case authapi.KindREST, authapi.KindKratos:
	default:
		return fmt.Errorf("api.kind: unknown backend %q", o.API.Kind)
	}
	u, err := url.Parse(o.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base-url: %q is not an absolute URL", o.API.BaseURL)
	}
	if o.API.Timeout < 0 {
		return fmt.Errorf("api.timeout: must not be negative")
	}

	switch o.Credential.Medium {
	case MediumCookie, MediumMemory:
	case MediumRedis:
		if o.Redis.URL == "" {
			return fmt.Errorf("redis.url: required when credential.medium is redis")
		}
	default:
		return fmt.Errorf("credential.medium: %w %q", ErrUnknownMedium, o.Credential.Medium)
	}

	if !strings.HasPrefix(o.Guard.EntryPoint, "/") || o.Guard.EntryPoint == "/" {
		return fmt.Errorf("guard.entry-point: %q must be an absolute path other than /", o.Guard.EntryPoint)
	}

	if o.RateLimit.RPS < 0 || (o.RateLimit.RPS > 0 && o.RateLimit.Burst < 1) {
		return fmt.Errorf("ratelimit: rps must be >= 0 and burst >= 1 when enabled")
	}
	return nil
}

// Load merges, in increasing priority, defaults, the YAML config file (if any),
// WOORKROOM_* environment variables and flags set on fs.
func Load(v *viper.Viper, fs *pflag.FlagSet, configFile string) (*Options, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	opts := NewOptions()
	if err := v.Unmarshal(opts); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}
