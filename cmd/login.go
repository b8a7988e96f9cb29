package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/classhub/trustgate/internal/cliconfig"
	"github.com/classhub/trustgate/pkg/client"
)

var (
	loginUsername      string
	loginPassword      string
	loginPasswordStdin bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with a trustgate server",
	Long: `Exchanges username and password for an access and refresh token.
Both are saved locally to allow future authenticated requests (like audit logs).`,
	Example: `  trustgate login --server http://localhost:8080 -u alice -p secret
  echo "$PASSWORD" | trustgate login --server http://localhost:8080 -u alice --password-stdin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := f.ServerAddr()
		if err != nil {
			return err
		}

		password := loginPassword
		if loginPasswordStdin {
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("reading password from stdin: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}
		if loginUsername == "" || password == "" {
			return fmt.Errorf("username and password are required")
		}

		log.Debug().Msgf("Logging in to %s as %s...", server, loginUsername)
		pair, correlation, err := client.New(server).Login(cmd.Context(), loginUsername, password)
		if err != nil {
			return logError(err, correlation, "login failed")
		}

		cfg, err := cliconfig.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfg.SetCredential(server, &cliconfig.Credential{
			Username:     loginUsername,
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
		}); err != nil {
			return err
		}
		if err := cliconfig.Save(cfg); err != nil {
			return logError(err, "", "login succeeded but could not save credentials")
		}

		logSuccess("logged in as %s with roles %s (token expires in %ds)",
			bold(pair.User.Subject), pair.User.Roles, pair.ExpiresIn)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the saved session",
	Long:  `Revokes the saved access token and its refresh token family on the server and removes them locally.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := f.ServerAddr()
		if err != nil {
			return err
		}
		cfg, err := cliconfig.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cred, err := cfg.GetCredential(server)
		if err != nil {
			return fmt.Errorf("no saved session for %s: %w", server, err)
		}

		cli := client.New(server, client.WithAuthToken(cred.AccessToken))
		if correlation, err := cli.Logout(cmd.Context(), cred.RefreshToken); err != nil {
			return logError(err, correlation, "logout failed")
		}

		if err := cfg.RemoveCredential(server); err != nil {
			return err
		}
		if err := cliconfig.Save(cfg); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		logSuccess("logged out")
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Rotate the saved session's tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := f.ServerAddr()
		if err != nil {
			return err
		}
		cfg, err := cliconfig.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cred, err := cfg.GetCredential(server)
		if err != nil || cred.RefreshToken == "" {
			return fmt.Errorf("no refreshable session for %s, run 'trustgate login'", server)
		}

		pair, correlation, err := client.New(server).Refresh(cmd.Context(), cred.RefreshToken)
		if err != nil {
			return logError(err, correlation, "refresh failed")
		}
		cred.AccessToken = pair.AccessToken
		cred.RefreshToken = pair.RefreshToken
		if err := cliconfig.Save(cfg); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		logSuccess("session refreshed (token expires in %ds)", pair.ExpiresIn)
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the principal of the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}
		me, correlation, err := cli.Me(cmd.Context())
		if err != nil {
			return logError(err, correlation, "failed to resolve session")
		}
		fmt.Printf("  %s: %s\n", faint("Subject"), bold(me.Subject))
		fmt.Printf("  %s:   %s\n", faint("Roles"), strings.Join(me.Roles.Names(), ", "))
		fmt.Printf("  %s: %s\n", faint("Expires"), me.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, refreshCmd, whoamiCmd)

	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Password")
	loginCmd.Flags().BoolVar(&loginPasswordStdin, "password-stdin", false, "Read the password from stdin")

	_ = loginCmd.MarkFlagRequired("username")
	loginCmd.MarkFlagsMutuallyExclusive("password", "password-stdin")
}
