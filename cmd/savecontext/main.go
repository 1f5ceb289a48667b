// Command savecontext is the installer/admin CLI: one-shot setup
// operations (status-line, skill files) and embedding-provider
// management, per spec.md §6. The long-running server lives in
// cmd/savecontext-server; this binary never opens a connection to an
// agent, it only touches the on-disk config and database directly.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/savecontext/savecontext/internal/config"
	"github.com/savecontext/savecontext/internal/credstore"
	"github.com/savecontext/savecontext/internal/embedding"
	"github.com/savecontext/savecontext/internal/installer"
	"github.com/savecontext/savecontext/internal/store"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "savecontext",
		Short:         "Manage the savecontext agent-memory server's setup and embedding provider",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(newSetupStatusLineCmd())
	root.AddCommand(newSetupSkillCmd())
	root.AddCommand(newEmbeddingsCmd())
	return root
}

func newSetupStatusLineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup-statusline",
		Short: "Install the status-line script and hook into ~/.claude/settings.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := installer.SetupStatusLine(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "status line installed")
			return nil
		},
	}
}

func newSetupSkillCmd() *cobra.Command {
	var tool, path string
	var sync bool

	cmd := &cobra.Command{
		Use:   "setup-skill",
		Short: "Write the savecontext skill file for one or more coding tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			root := path
			if root == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				root = wd
			}
			if sync {
				tool = ""
			}
			installed, err := installer.SetupSkill(root, tool)
			if err != nil {
				return err
			}
			for _, p := range installed {
				fmt.Fprintln(cmd.OutOrStdout(), "wrote", p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tool, "tool", "", "coding tool to install for (claude-code, cursor, windsurf); all known tools if omitted")
	cmd.Flags().StringVar(&path, "path", "", "project root to install into (defaults to the current directory)")
	cmd.Flags().BoolVar(&sync, "sync", false, "install the skill for every known tool, ignoring --tool; earlier installs are not detected")
	return cmd
}

func newEmbeddingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "embeddings",
		Short: "Inspect and reconfigure the embedding provider",
	}
	cmd.AddCommand(newEmbeddingsStatusCmd())
	cmd.AddCommand(newEmbeddingsBackfillCmd())
	cmd.AddCommand(newEmbeddingsProvidersCmd())
	cmd.AddCommand(newEmbeddingsModelsCmd())
	cmd.AddCommand(newEmbeddingsResetCmd())
	cmd.AddCommand(newEmbeddingsConfigCmd())
	return cmd
}

func openDataStore() (*store.Store, string, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, "", err
	}
	dataDir := filepath.Join(dir, "data")
	s, err := store.Open(dataDir)
	if err != nil {
		return nil, "", fmt.Errorf("open store: %w", err)
	}
	return s, dataDir, nil
}

func newEmbeddingsStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the configured provider and pending/failed embedding counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			s, _, err := openDataStore()
			if err != nil {
				return err
			}
			defer s.Close()

			pending, err := s.ItemsNeedingEmbedding(1_000_000)
			if err != nil {
				return err
			}
			dim, err := s.CurrentVectorDim()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			provider := cfg.Embedding.Provider
			if provider == "" {
				provider = "(auto-detect, falls back to local-hash)"
			}
			fmt.Fprintf(out, "provider:        %s\n", provider)
			fmt.Fprintf(out, "model:           %s\n", orPlaceholder(cfg.Embedding.Model))
			fmt.Fprintf(out, "endpoint:        %s\n", orPlaceholder(cfg.Embedding.Endpoint))
			fmt.Fprintf(out, "vector dim:      %d\n", dim)
			fmt.Fprintf(out, "pending to embed: %d\n", len(pending))
			return nil
		},
	}
}

func orPlaceholder(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

func newEmbeddingsBackfillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Embed every context item currently missing an embedding, using the configured provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			s, _, err := openDataStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			provider := providerFromConfig(cfg)
			if _, err := embedding.Reconcile(ctx, s, provider); err != nil {
				return fmt.Errorf("reconcile vector table: %w", err)
			}

			pending, err := s.ItemsNeedingEmbedding(1_000_000)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backfilling %d item(s) with %s/%s\n", len(pending), provider.Name(), provider.Model())
			return embedding.Backfill(ctx, s, provider)
		},
	}
}

func newEmbeddingsProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the embedding providers this build knows how to talk to",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "local-hash  always available, feature-hashing fallback, no network")
			fmt.Fprintln(out, "lmstudio    local LM Studio server's OpenAI-compatible /v1/embeddings endpoint")
			fmt.Fprintln(out, "remote      any OpenAI-compatible remote embeddings endpoint (bearer token)")
			return nil
		},
	}
}

func newEmbeddingsModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List known embedding models for the configured provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch cfg.Embedding.Provider {
			case "lmstudio":
				fmt.Fprintln(out, "nomic-embed-text")
				fmt.Fprintln(out, "bge-small-en-v1.5")
			case "remote":
				fmt.Fprintln(out, "text-embedding-3-small")
				fmt.Fprintln(out, "text-embedding-3-large")
			default:
				fmt.Fprintln(out, "feature-hash-v1 (local-hash's only model)")
			}
			return nil
		},
	}
}

func newEmbeddingsResetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear every item's embedding status so the next backfill re-embeds everything",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset all embeddings without --yes")
			}
			s, _, err := openDataStore()
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.ResetAllEmbeddings(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "all embedding statuses reset to pending")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

func newEmbeddingsConfigCmd() *cobra.Command {
	var provider, model, endpoint, token string
	var clearToken, reset bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Set or clear the embedding provider configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if reset {
				cfg.Embedding = config.Embedding{}
				if err := config.Save(cfg); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "embedding config reset to auto-detect")
				return nil
			}

			switching := provider != "" && cfg.Embedding.Provider != "" && provider != cfg.Embedding.Provider
			if switching {
				s, dataDir, err := openDataStore()
				if err != nil {
					return err
				}
				dim, dimErr := s.CurrentVectorDim()
				s.Close()
				if dimErr == nil && dim > 0 {
					backupPath, err := config.BackupPath(time.Now().UnixMilli())
					if err != nil {
						return err
					}
					if err := copyFile(filepath.Join(dataDir, "savecontext.db"), backupPath); err != nil {
						return fmt.Errorf("back up database before switching providers: %w", err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "existing provider %q had embeddings; backed up database to %s\n", cfg.Embedding.Provider, backupPath)
				}
			}

			if provider != "" {
				cfg.Embedding.Provider = provider
			}
			if model != "" {
				cfg.Embedding.Model = model
			}
			if endpoint != "" {
				cfg.Embedding.Endpoint = endpoint
			}
			if clearToken {
				cfg.Embedding.Token = ""
			} else if token != "" {
				if err := saveProviderToken(provider, token); err != nil {
					return err
				}
				cfg.Embedding.Token = token
			}

			if err := config.Save(cfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "embedding config saved")
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "provider name: lmstudio, remote")
	cmd.Flags().StringVar(&model, "model", "", "model name for the selected provider")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "endpoint URL for lmstudio/remote providers")
	cmd.Flags().StringVar(&token, "token", "", "bearer token for the remote provider")
	cmd.Flags().BoolVar(&clearToken, "clear-token", false, "remove the stored bearer token")
	cmd.Flags().BoolVar(&reset, "reset", false, "clear the embedding config back to auto-detect")
	return cmd
}

// saveProviderToken mirrors the token into the OS credential store (or its
// file fallback) rather than relying solely on config.json's plaintext
// field, so a provider switch doesn't leave a stale token behind in both
// places disagreeing.
func saveProviderToken(provider, token string) error {
	dir, err := config.Dir()
	if err != nil {
		return err
	}
	cs := credstore.Open(dir)
	return cs.Set(context.Background(), "embedding-"+provider, token)
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o600)
}

func providerFromConfig(cfg *config.Config) embedding.Provider {
	switch cfg.Embedding.Provider {
	case "lmstudio":
		return embedding.NewLMStudioProvider(orDefaultStr(cfg.Embedding.Endpoint, "http://localhost:1234/v1"), orDefaultStr(cfg.Embedding.Model, "nomic-embed-text"))
	case "remote":
		return embedding.NewRemoteProvider(cfg.Embedding.Endpoint, cfg.Embedding.Model, cfg.Embedding.Token, 1536)
	default:
		return embedding.NewLocalVectorProvider()
	}
}

func orDefaultStr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
