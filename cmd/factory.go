package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/classhub/trustgate/internal/audit"
	"github.com/classhub/trustgate/internal/authz"
	"github.com/classhub/trustgate/internal/cliconfig"
	"github.com/classhub/trustgate/internal/config"
	"github.com/classhub/trustgate/internal/core"
	"github.com/classhub/trustgate/internal/db"
	"github.com/classhub/trustgate/internal/directory"
	"github.com/classhub/trustgate/internal/refresh"
	"github.com/classhub/trustgate/internal/revocation"
	"github.com/classhub/trustgate/internal/roles"
	"github.com/classhub/trustgate/internal/service"
	"github.com/classhub/trustgate/internal/tasks"
	"github.com/classhub/trustgate/internal/token"
	"github.com/classhub/trustgate/pkg/client"
)

type Factory struct {
	// RemoteAddr is the address of the trustgate server to connect to.
	RemoteAddr string

	// ConfigPath is the service configuration file used by local commands.
	ConfigPath string
}

func NewFactory() *Factory {
	return &Factory{}
}

// ServerAddr resolves the remote server address.
func (f *Factory) ServerAddr() (string, error) {
	server := f.RemoteAddr // prio 1: command-line flag
	if server == "" {
		server = viper.GetString(ServerAddrKey) // prio 2: config/env
	}
	if server == "" {
		return "", fmt.Errorf("server address not configured (use --server or set %s_ADDR)", EnvPrefix)
	}
	return server, nil
}

// GetClient returns an HTTP client carrying the saved session token, if any.
func (f *Factory) GetClient() (*client.Client, error) {
	server, err := f.ServerAddr()
	if err != nil {
		return nil, err
	}

	var accessToken string
	if cfg, err := cliconfig.Load(); err == nil {
		if cred, err := cfg.GetCredential(server); err == nil { // token prio 1: saved credential
			accessToken = cred.AccessToken
		}
	}

	if envToken := viper.GetString(TokenKey); envToken != "" { // token prio 2: env var
		accessToken = envToken
	}

	return client.New(server, client.WithAuthToken(accessToken)), nil
}

// LoadConfig loads the service configuration. TRUSTGATE_TOKEN_SECRET overrides
// the signing secret of the file.
func (f *Factory) LoadConfig() (*config.Config, error) {
	path := f.ConfigPath
	if path == "" {
		path = viper.GetString(ConfigPathKey)
	}
	if path == "" {
		return nil, fmt.Errorf("config file not specified (use --config or set %s_CONFIG)", EnvPrefix)
	}
	return config.Load(path, config.WithSecret(viper.GetString(TokenSecretKey)))
}

func (f *Factory) bindConfigFlag(flags *pflag.FlagSet) {
	flags.StringVarP(&f.ConfigPath, "config", "c", "", "The trustgate service config file to use")
}

// Stack is the wired set of components described by a Config.
type Stack struct {
	Config *config.Config
	Clock  clockwork.Clock

	Codec       *token.Codec
	Verifier    *token.Verifier
	Revocations core.RevocationStore
	Refresh     core.RefreshStore
	Roles       core.RoleStore
	Directory   core.Directory
	Auditor     core.Auditor
	Rules       *authz.RuleTable
	Tasks       *tasks.Manager

	Auth      *service.AuthService
	RoleAdmin *service.RoleService
	DB        *db.DB
	Redis     redis.UniversalClient
	closers   []func() error
}

// Close releases every resource opened by BuildStack.
func (s *Stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// BuildKeys builds the codec shared by every participant from the token settings.
func BuildKeys(cfg *config.Config, clock clockwork.Clock) (*token.Codec, error) {
	keys, err := token.NewKeyring(cfg.Token.KeyID, cfg.Token.Secret, cfg.Token.PreviousKeys)
	if err != nil {
		return nil, fmt.Errorf("building keyring: %w", err)
	}
	return token.NewCodec(keys, token.Options{
		Issuer:    cfg.Token.Issuer,
		AccessTTL: cfg.Token.AccessTTL,
		ClockSkew: cfg.Token.ClockSkew,
		Clock:     clock,
	}), nil
}

// BuildStack opens stores and wires services. On error, everything opened so far is closed.
func BuildStack(ctx context.Context, cfg *config.Config, clock clockwork.Clock) (_ *Stack, err error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s := &Stack{Config: cfg, Clock: clock}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	if s.Codec, err = BuildKeys(cfg, clock); err != nil {
		return nil, err
	}

	if cfg.UsesRedis() {
		s.openRedis(ctx)
	}

	if cfg.UsesDatabase() {
		if s.DB, err = db.Open(ctx, cfg.Database.DSN); err != nil {
			return nil, err
		}
		s.closers = append(s.closers, s.DB.Close)
		if err = db.Migrate(ctx, s.DB); err != nil {
			return nil, err
		}
	}

	if err = s.buildRevocations(); err != nil {
		return nil, err
	}
	s.buildStores()

	switch cfg.Directory.Type {
	case directory.TypeStatic:
		if s.Directory, err = directory.NewStaticDirectoryFromConfig(cfg.Directory.Config, s.Roles); err != nil {
			return nil, err
		}
	default:
		s.Directory = directory.NewSQLDirectory(s.DB, s.Roles)
	}

	if s.Auditor, err = audit.New(cfg.Audit.Enabled, cfg.Audit.Type, cfg.Audit.Path); err != nil {
		return nil, fmt.Errorf("creating auditor: %w", err)
	}
	s.closers = append(s.closers, s.Auditor.Close)

	if s.Rules, err = authz.CompileRules(cfg.Authz.Rules); err != nil {
		return nil, err
	}

	checker, err := s.buildChecker()
	if err != nil {
		return nil, err
	}
	s.Verifier = token.NewVerifier(s.Codec, checker)

	s.Auth, err = service.NewAuthService(service.AuthConfig{
		DefaultRole:      cfg.Auth.DefaultRole,
		DirectoryTimeout: cfg.Auth.DirectoryTimeout,
		RefreshTTL:       cfg.Auth.RefreshTTL,
		RevokeOnLogout:   *cfg.Auth.RevokeOnLogout,
	}, s.Directory, s.Verifier, s.Refresh, s.Revocations, s.Auditor, clock)
	if err != nil {
		return nil, err
	}
	s.RoleAdmin = service.NewRoleService(s.Roles, s.Auditor, clock)

	s.Tasks = tasks.NewManager(clock)
	if pruner, ok := s.Refresh.(tasks.ExpiredDeleter); ok {
		s.Tasks.Register(tasks.PruneRefreshTokens, PruneInterval, tasks.Prune(pruner))
	}
	if pruner, ok := s.Revocations.(tasks.ExpiredDeleter); ok {
		s.Tasks.Register(tasks.PruneRevocations, PruneInterval, tasks.Prune(pruner))
	}
	return s, nil
}

// PruneInterval is how often expired refresh tokens and revocations are removed from memory.
const PruneInterval = 10 * time.Minute

// BuildEdgeStack wires only what the gateway needs: the codec and, when
// enabled, the shared revocation store behind a fail-open checker.
// An in-process store would never see the issuer's revocations, so it is
// refused; configuration validation rejects that combination as well.
func BuildEdgeStack(ctx context.Context, cfg *config.Config, clock clockwork.Clock) (_ *Stack, err error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s := &Stack{Config: cfg, Clock: clock}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	if s.Codec, err = BuildKeys(cfg, clock); err != nil {
		return nil, err
	}
	if !*cfg.Gateway.CheckRevocation {
		log.Warn().Msg("gateway does not check revocation, revoked tokens pass the edge until they expire")
		s.Verifier = token.NewVerifier(s.Codec, nil)
		return s, nil
	}
	if cfg.Revocation.Backend != config.BackendRedis {
		return nil, config.ErrEdgeRevocationNotShared
	}

	s.openRedis(ctx)
	if err = s.buildRevocations(); err != nil {
		return nil, err
	}
	checker, err := s.buildChecker()
	if err != nil {
		return nil, err
	}
	s.Verifier = token.NewVerifier(s.Codec, checker)
	return s, nil
}

// Hits from a remote store are cached for this long.
const revocationHitTTL = time.Minute

func (s *Stack) buildChecker() (*revocation.Checker, error) {
	cfg := s.Config.Revocation
	if cfg.Backend != config.BackendRedis {
		return revocation.NewChecker(s.Revocations, cfg.Timeout), nil
	}
	checker, err := revocation.NewCachedChecker(s.Revocations, cfg.Timeout, revocationHitTTL, cfg.MaxEntries)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, func() error {
		checker.Close()
		return nil
	})
	return checker, nil
}

func (s *Stack) openRedis(ctx context.Context) {
	cfg := s.Config.Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	s.closers = append(s.closers, rdb.Close)
	s.Redis = rdb

	// unreachable redis is not fatal: revocation lookups fail open
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Addr).Msg("redis is not reachable")
	}
}

func (s *Stack) buildRevocations() error {
	cfg := s.Config

	switch cfg.Revocation.Backend {
	case config.BackendRedis:
		store, err := revocation.NewRedisStore(s.Redis, "", cfg.Token.MaxLifetime)
		if err != nil {
			return err
		}
		s.Revocations = store
	default:
		store, err := revocation.NewMemoryStore(cfg.Token.MaxLifetime, cfg.Revocation.MaxEntries, revocation.WithClock(s.Clock))
		if err != nil {
			return err
		}
		s.closers = append(s.closers, func() error {
			store.Close()
			return nil
		})
		s.Revocations = store
	}
	return nil
}

func (s *Stack) buildStores() {
	cfg := s.Config

	switch cfg.Refresh.Backend {
	case config.BackendRedis:
		s.Refresh = refresh.NewRedisStore(s.Redis, "", s.Clock)
	default:
		s.Refresh = refresh.NewMemoryStore(s.Clock)
	}

	switch cfg.Roles.Backend {
	case config.BackendSQL:
		s.Roles = roles.NewSQLStore(s.DB)
	default:
		s.Roles = roles.NewMemoryStore()
	}
}
