package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tfkr-ae/gantry"
)

// cli holds the persistent flags and the app opened for the running command.
type cli struct {
	configDir string
	envFile   string
	offline   bool
	app       *gantry.App
}

func defaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".gantry"
	}
	return filepath.Join(dir, "gantry")
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "gantry",
		Short: "Browse the launchpads and launches of the launch catalog",
		Long: `gantry browses the launchpads of the launch catalog and the launches made
from each of them. Tables are fetched once and then sorted, filtered and
paged locally, in the terminal or in the browser dashboard.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.open,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configDir, "config-dir", defaultConfigDir(), "configuration directory, created on first run")
	flags.StringVar(&c.envFile, "env-file", ".env", "dotenv file with GANTRY_* overrides, ignored when missing")
	flags.BoolVar(&c.offline, "offline", false, "read the last synced snapshot instead of the catalog")

	root.AddCommand(
		c.launchpadsCmd(),
		c.launchesCmd(),
		c.imagesCmd(),
		c.syncCmd(),
		c.logsCmd(),
		c.statsCmd(),
		c.serveCmd(),
		c.configCmd(),
	)
	return root
}

// open loads the environment and the configuration, then opens the snapshot
// store and the catalog client.
func (c *cli) open(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s : %w", c.envFile, err)
	}

	app, err := gantry.New(
		gantry.WithConfigDir(c.configDir),
		gantry.WithConfiguredLogger(cmd.ErrOrStderr()),
	)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("offline") {
		app.Config.Offline = c.offline
	}
	if err := app.WithOptions(gantry.WithDatabase(), gantry.WithCatalogFromConfig()); err != nil {
		app.Close()
		return err
	}
	c.app = app
	return nil
}

// run wraps a command body so the app is closed whether or not it fails.
func (c *cli) run(fn func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if c.app == nil {
				return
			}
			if closeErr := c.app.Close(); err == nil {
				err = closeErr
			}
			c.app = nil
		}()
		return fn(cmd, args)
	}
}
