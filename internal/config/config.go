package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/classhub/trustgate/internal/api/middleware"
	"github.com/classhub/trustgate/internal/audit"
	"github.com/classhub/trustgate/internal/authz"
	"github.com/classhub/trustgate/internal/core"
	"github.com/classhub/trustgate/internal/directory"
	"github.com/classhub/trustgate/internal/gateway"
	"github.com/classhub/trustgate/internal/paths"
	"github.com/classhub/trustgate/internal/token"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQL    = "sql"
)

const (
	DefaultAddr         = ":8080"
	DefaultGatewayAddr  = ":8000"
	DefaultKeyID        = "k1"
	DefaultIssuer       = "trustgate"
	DefaultAccessTTL    = 15 * time.Minute
	DefaultMaxLifetime  = 24 * time.Hour
	DefaultRefreshTTL   = 7 * 24 * time.Hour
	DefaultDirTimeout   = 5 * time.Second
	DefaultRevokeMax    = 1_000_000
	DefaultRevokeLookup = 250 * time.Millisecond
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Token      TokenConfig      `yaml:"token"`
	Auth       AuthConfig       `yaml:"auth"`
	Directory  DirectoryConfig  `yaml:"directory"`
	Roles      StoreConfig      `yaml:"roles"`
	Refresh    StoreConfig      `yaml:"refresh"`
	Revocation RevocationConfig `yaml:"revocation"`
	Audit      AuditConfig      `yaml:"audit"`
	Authz      AuthzConfig      `yaml:"authz"`
	Gateway    GatewayConfig    `yaml:"gateway"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`

	// InternalAddr serves the trusted /internal routes. Empty disables the listener.
	InternalAddr string `yaml:"internal_addr"`

	// TrustedProxies lists the addresses or CIDRs whose X-Forwarded-For
	// entries are believed, typically the gateway.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

type DatabaseConfig struct {
	// DSN is either a postgres:// URL or a sqlite path.
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// TokenConfig holds the shared token settings every participant must agree on.
type TokenConfig struct {
	KeyID  string       `yaml:"key_id"`
	Secret token.Secret `yaml:"secret"`

	// PreviousKeys are accepted for verification only.
	PreviousKeys map[string]token.Secret `yaml:"previous_keys"`

	Issuer      string        `yaml:"issuer"`
	AccessTTL   time.Duration `yaml:"access_ttl"`
	MaxLifetime time.Duration `yaml:"max_lifetime"`
	ClockSkew   time.Duration `yaml:"clock_skew"`
	Header      string        `yaml:"header"`
	Scheme      string        `yaml:"scheme"`
}

// Transport returns how tokens travel on requests.
func (c TokenConfig) Transport() token.Transport {
	return token.Transport{Header: c.Header, Scheme: c.Scheme}
}

type AuthConfig struct {
	DefaultRole      string        `yaml:"default_role"`
	DirectoryTimeout time.Duration `yaml:"directory_timeout"`
	RefreshTTL       time.Duration `yaml:"refresh_ttl"`

	// RevokeOnLogout is a pointer so that an omitted key keeps the default (on).
	RevokeOnLogout *bool `yaml:"revoke_on_logout"`
}

// DirectoryConfig selects the identity directory.
type DirectoryConfig struct {
	Type   string         `yaml:"type"`    // "sql" or "static"
	Config map[string]any `yaml:",inline"` // remaining fields, decoded by the directory
}

type StoreConfig struct {
	Backend string `yaml:"backend"`
}

type RevocationConfig struct {
	Backend string `yaml:"backend"`

	// Timeout bounds a single revocation lookup; past it verification fails open.
	Timeout    time.Duration `yaml:"timeout"`
	MaxEntries int64         `yaml:"max_entries"`
}

type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Type    string `yaml:"type"` // "file", "memory" or "noop"
}

type AuthzConfig struct {
	Rules []authz.Rule `yaml:"rules"`
}

type GatewayConfig struct {
	Addr string `yaml:"addr"`

	// PublicPaths defaults to paths.EdgePublic when omitted.
	PublicPaths []string `yaml:"public_paths"`

	// CheckRevocation defaults to on with the redis revocation backend and
	// off otherwise. It requires the redis backend.
	CheckRevocation *bool           `yaml:"check_revocation"`
	Routes          []gateway.Route `yaml:"routes"`
}

// ErrEdgeRevocationNotShared rejects edge revocation checks against a
// process-local store, which the issuer's revocations never reach.
var ErrEdgeRevocationNotShared = errors.New("gateway.check_revocation requires revocation.backend redis")

// Override adjusts a decoded Config before validation, e.g. from environment variables.
type Override func(*Config)

// WithSecret replaces the active signing secret when s is not empty.
func WithSecret(s string) Override {
	return func(c *Config) {
		if s != "" {
			c.Token.Secret = token.Secret(s)
		}
	}
}

// Load reads and parses the configuration file at the given path.
// Defaults and overrides are applied before validation.
func Load(path string, overrides ...Override) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data, overrides...)
}

// Parse decodes a YAML document into a Config, applies defaults and validates it.
func Parse(data []byte, overrides ...Override) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.ApplyDefaults()
	for _, o := range overrides {
		o(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file: %w", err)
	}
	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	setDefault(&c.Server.Addr, DefaultAddr)
	setDefault(&c.Gateway.Addr, DefaultGatewayAddr)
	setDefault(&c.Token.KeyID, DefaultKeyID)
	setDefault(&c.Token.Issuer, DefaultIssuer)
	setDefault(&c.Token.Header, token.DefaultHeader)
	setDefault(&c.Token.Scheme, token.DefaultScheme)
	setDefault(&c.Token.AccessTTL, DefaultAccessTTL)
	setDefault(&c.Token.MaxLifetime, DefaultMaxLifetime)
	setDefault(&c.Auth.DefaultRole, core.RoleStudent)
	setDefault(&c.Auth.DirectoryTimeout, DefaultDirTimeout)
	setDefault(&c.Auth.RefreshTTL, DefaultRefreshTTL)
	setDefault(&c.Directory.Type, directory.TypeSQL)
	setDefault(&c.Roles.Backend, BackendSQL)
	setDefault(&c.Refresh.Backend, BackendMemory)
	setDefault(&c.Revocation.Backend, BackendMemory)
	setDefault(&c.Revocation.Timeout, DefaultRevokeLookup)
	setDefault(&c.Revocation.MaxEntries, DefaultRevokeMax)
	setDefault(&c.Audit.Type, audit.TypeMemory)
	if c.Auth.RevokeOnLogout == nil {
		c.Auth.RevokeOnLogout = ptr(true)
	}
	if c.Gateway.CheckRevocation == nil {
		c.Gateway.CheckRevocation = ptr(c.Revocation.Backend == BackendRedis)
	}
	if c.Gateway.PublicPaths == nil {
		c.Gateway.PublicPaths = paths.EdgePublic()
	}
}

func (c *Config) Validate() error {
	var errs []error

	if _, err := token.NewKeyring(c.Token.KeyID, c.Token.Secret, c.Token.PreviousKeys); err != nil {
		errs = append(errs, fmt.Errorf("token: %w", err))
	}
	if c.Token.AccessTTL <= 0 {
		errs = append(errs, errors.New("token.access_ttl must be positive"))
	}
	if c.Token.MaxLifetime < c.Token.AccessTTL {
		errs = append(errs, errors.New("token.max_lifetime must not be shorter than token.access_ttl"))
	}
	if c.Token.ClockSkew < 0 {
		errs = append(errs, errors.New("token.clock_skew must not be negative"))
	}

	if _, err := core.NormalizeRole(c.Auth.DefaultRole); err != nil {
		errs = append(errs, fmt.Errorf("auth.default_role: %w", err))
	}
	if c.Auth.RefreshTTL <= 0 {
		errs = append(errs, errors.New("auth.refresh_ttl must be positive"))
	}

	switch c.Directory.Type {
	case directory.TypeSQL, directory.TypeStatic:
	default:
		errs = append(errs, fmt.Errorf("directory.type: unknown type %q", c.Directory.Type))
	}

	errs = append(errs, checkBackend("roles.backend", c.Roles.Backend, BackendMemory, BackendSQL))
	errs = append(errs, checkBackend("refresh.backend", c.Refresh.Backend, BackendMemory, BackendRedis))
	errs = append(errs, checkBackend("revocation.backend", c.Revocation.Backend, BackendMemory, BackendRedis))
	if c.UsesRedis() && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required by a redis backend"))
	}
	if c.Gateway.CheckRevocation != nil && *c.Gateway.CheckRevocation && c.Revocation.Backend != BackendRedis {
		errs = append(errs, ErrEdgeRevocationNotShared)
	}
	if _, err := middleware.ParseTrustedProxies(c.Server.TrustedProxies); err != nil {
		errs = append(errs, fmt.Errorf("server.trusted_proxies: %w", err))
	}

	switch c.Audit.Type {
	case audit.TypeFile:
		if c.Audit.Enabled && c.Audit.Path == "" {
			errs = append(errs, errors.New("audit.path is required for file audits"))
		}
	case audit.TypeMemory, audit.TypeNoop:
	default:
		errs = append(errs, fmt.Errorf("audit.type: unknown type %q", c.Audit.Type))
	}

	if _, err := authz.CompileRules(c.Authz.Rules); err != nil {
		errs = append(errs, fmt.Errorf("authz.rules: %w", err))
	}
	if _, err := gateway.NewProxy(c.Gateway.Routes); err != nil {
		errs = append(errs, fmt.Errorf("gateway.routes: %w", err))
	}

	return errors.Join(errs...)
}

// UsesRedis reports whether any store is backed by Redis.
func (c *Config) UsesRedis() bool {
	return c.Refresh.Backend == BackendRedis || c.Revocation.Backend == BackendRedis
}

// UsesDatabase reports whether any component needs the SQL database.
func (c *Config) UsesDatabase() bool {
	return c.Directory.Type == directory.TypeSQL || c.Roles.Backend == BackendSQL
}

func checkBackend(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s: unknown backend %q", key, value)
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}

func ptr[T any](v T) *T {
	return &v
}
