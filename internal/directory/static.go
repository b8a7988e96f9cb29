package directory

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/classhub/trustgate/internal/core"
)

var _ core.Directory = (*StaticDirectory)(nil)

const (
	TypeSQL    = "sql"
	TypeStatic = "static"
)

// StaticUser is a user declared in the configuration file.
type StaticUser struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`

	// Roles may be written as a list or as a comma-joined string.
	Roles   []string `mapstructure:"roles"`
	Deleted bool     `mapstructure:"deleted"`
}

type StaticConfig struct {
	Users []StaticUser `mapstructure:"users"`
}

// StaticDirectory authenticates against users declared in configuration.
// Roles assigned at runtime through the RoleStore are merged with the declared ones.
type StaticDirectory struct {
	users map[string]StaticUser
	roles core.RoleStore
}

func NewStaticDirectory(cfg StaticConfig, roles core.RoleStore) (*StaticDirectory, error) {
	users := make(map[string]StaticUser, len(cfg.Users))
	for idx, u := range cfg.Users {
		if u.Username == "" {
			return nil, fmt.Errorf("static user at index %d has empty username", idx)
		}
		if _, dup := users[u.Username]; dup {
			return nil, fmt.Errorf("duplicate static user %q", u.Username)
		}
		if u.PasswordHash == "" {
			return nil, fmt.Errorf("static user %q has no password_hash", u.Username)
		}
		if _, err := core.ParseRoles(u.Roles); err != nil {
			return nil, fmt.Errorf("static user %q: %w", u.Username, err)
		}
		users[u.Username] = u
	}
	return &StaticDirectory{users: users, roles: roles}, nil
}

// NewStaticDirectoryFromConfig decodes the free-form directory section of the service config.
func NewStaticDirectoryFromConfig(raw map[string]any, roles core.RoleStore) (*StaticDirectory, error) {
	var conf StaticConfig

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
		WeaklyTypedInput: true,
		Result:           &conf,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder for %s directory: %w", TypeStatic, err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode config for %s directory: %w", TypeStatic, err)
	}

	return NewStaticDirectory(conf, roles)
}

func (s *StaticDirectory) Authenticate(ctx context.Context, username, password string) (*core.Identity, error) {
	user, ok := s.users[username]
	if !ok {
		_ = passwordMatches(string(dummyHash), password)
		return nil, core.ErrInvalidCredentials
	}
	if !passwordMatches(user.PasswordHash, password) {
		return nil, core.ErrInvalidCredentials
	}
	if user.Deleted {
		return nil, core.ErrAccountDeleted
	}

	roles := append([]string(nil), user.Roles...)
	if s.roles != nil {
		assigned, err := s.roles.ListRoles(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("listing roles of %s: %w", username, err)
		}
		roles = append(roles, assigned...)
	}
	return &core.Identity{Subject: username, Roles: roles}, nil
}
