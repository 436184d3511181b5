package tap

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tapkit/tapkit/plugin"
	"github.com/tapkit/tapkit/singer"
)

// StreamFactory builds the streams of a tap once configuration is loaded.
type StreamFactory func(t *Tap) ([]Stream, error)

// capabilities advertised by every tap built on this framework.
var tapCapabilities = []string{"catalog", "discover", "state", "test"}

// NewCommand builds the cobra command tree for a tap plugin.
func NewCommand(name string, factory StreamFactory) *cobra.Command {
	var (
		configPath  string
		catalogPath string
		statePath   string
		discover    bool
		testConn    bool
		logJSON     bool
	)

	t := New(name)

	rootCmd := &cobra.Command{
		Use:     name,
		Short:   name + " is a Singer tap",
		Version: t.Base.Version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			t.Logger = plugin.NewLogger(logJSON)

			if configPath != "" {
				cfg, err := plugin.LoadConfig(configPath)
				if err != nil {
					return err
				}
				t.Config = cfg
				t.Logger.Info("config loaded", "config", plugin.MaskSecrets(cfg))
			}

			streams, err := factory(t)
			if err != nil {
				return fmt.Errorf("initialize streams: %w", err)
			}
			for _, s := range streams {
				t.AddStream(s)
			}

			if discover {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(t.Discover())
			}

			if catalogPath != "" {
				catalog, err := singer.LoadCatalog(catalogPath)
				if err != nil {
					return err
				}
				t.ApplyCatalog(catalog)
			}
			if statePath != "" {
				tree, err := loadState(statePath)
				if err != nil {
					return err
				}
				t.SetState(tree)
			}

			if testConn {
				if err := t.TestConnection(cmd.Context()); err != nil {
					return err
				}
				t.Logger.Info("connection test passed")
				return nil
			}

			t.SetOutput(cmd.OutOrStdout())
			return t.SyncAll(cmd.Context())
		},
	}

	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to config file (.json or .yaml)")
	rootCmd.Flags().StringVar(&catalogPath, "catalog", "", "Path to catalog file")
	rootCmd.Flags().StringVar(&statePath, "state", "", "Path to state file")
	rootCmd.Flags().BoolVar(&discover, "discover", false, "Write the discovered catalog to stdout and exit")
	rootCmd.Flags().BoolVar(&testConn, "test-connection", false, "Open every selected stream and pull one record")
	rootCmd.Flags().BoolVar(&logJSON, "log-json", false, "Emit logs as JSON")

	aboutCmd := &cobra.Command{
		Use:   "about",
		Short: "Print plugin name, version, and capabilities",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return t.WriteAbout(cmd.OutOrStdout(), tapCapabilities...)
		},
	}
	rootCmd.AddCommand(aboutCmd)

	return rootCmd
}

// Execute runs the tap CLI and exits non-zero on error.
func Execute(name string, factory StreamFactory) {
	if err := NewCommand(name, factory).Execute(); err != nil {
		os.Exit(1)
	}
}

func loadState(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read state %s: %w", path, err)
	}
	tree := map[string]any{}
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("parse state %s: %w", path, err)
	}
	return tree, nil
}
