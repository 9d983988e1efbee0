// filevault serves private, public and temporary file storage with
// expiring share links.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kbukum/filevault/auth"
	"github.com/kbukum/filevault/config"
	"github.com/kbukum/filevault/version"
)

const serviceName = "filevault"

var (
	cfgFile   string
	envFile   string
	envPrefix string
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   serviceName,
		Short: "File storage with expiring share links",
		Long: `filevault stores files in public, private and temporary roots and hands
out share links that expire by time or by number of downloads.

Run without a subcommand to start the HTTP service.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./cmd/filevault/config.yml or ./config.yml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", ".env file to load before reading the environment")
	rootCmd.PersistentFlags().StringVar(&envPrefix, "env-prefix", "", "only bind environment variables with this prefix")

	rootCmd.AddCommand(newServeCmd(), newTokenCmd(), newVersionCmd())
	return rootCmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newTokenCmd() *cobra.Command {
	var (
		subject string
		name    string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token signed with the configured secret",
		Long: `Issue a bearer token for the given subject. The subject becomes the owner
id of every file uploaded with the token.

  filevault token --subject alice`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			provider, err := auth.NewJWTProvider(cfg.Auth.JWT)
			if err != nil {
				return err
			}
			token, err := provider.Issue(subject, name)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVarP(&subject, "subject", "s", "", "owner id the token is issued for (required)")
	cmd.Flags().StringVar(&name, "name", "", "display name carried in the token")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", serviceName, version.Get())
		},
	}
}

func loadConfig() (*AppConfig, error) {
	var opts []config.LoaderOption
	if cfgFile != "" {
		opts = append(opts, config.WithConfigFile(cfgFile))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	if envPrefix != "" {
		opts = append(opts, config.WithEnvPrefix(envPrefix))
	}

	cfg := &AppConfig{}
	if err := config.Load(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Version == "" {
		cfg.Version = version.Get().Short()
	}
	return cfg, nil
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return serve(ctx, cfg)
}
