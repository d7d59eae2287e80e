package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tfkr-ae/gantry"
	"github.com/tfkr-ae/gantry/catalog"
	"github.com/tfkr-ae/gantry/domain"
	"github.com/tfkr-ae/gantry/render"
	"github.com/tfkr-ae/gantry/table"
	"github.com/tfkr-ae/gantry/web"
)

func (c *cli) imagesCmd() *cobra.Command {
	var (
		name   string
		search string
		page   int
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "images",
		Short: "Locate launchpad, rocket and crew pictures",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			boxes, err := c.app.Images(cmd.Context(), page, limit)
			if errors.Is(err, gantry.ErrNoImageLocator) {
				return err
			}
			if err != nil {
				c.app.Logger.Error("locating images", "error", err)
				render.TerminalError(cmd.ErrOrStderr(), err)
				return errReported
			}

			out := cmd.OutOrStdout()
			if search != "" {
				for _, match := range catalog.FilterNames(catalog.Names(boxes), search) {
					fmt.Fprintln(out, match)
				}
				return nil
			}
			if name != "" {
				box, ok := catalog.FindImage(boxes, name)
				if !ok {
					return fmt.Errorf("no image named %q", name)
				}
				boxes = []domain.ImageBox{box}
			}
			return render.Terminal(out, render.ImageGrid(boxes), render.Summary{
				Filtered: len(boxes),
				Total:    len(boxes),
				Page:     table.Page{Size: len(boxes)},
			})
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "show only the image with this name")
	cmd.Flags().StringVar(&search, "search", "", "list the names containing this text")
	cmd.Flags().IntVar(&page, "page", catalog.DefaultImagePage, "1-based page of each group")
	cmd.Flags().IntVar(&limit, "limit", catalog.DefaultImageLimit, "pictures per group")
	return cmd
}

func (c *cli) syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Store the launchpads and all their launches for offline use",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			if c.app.Config.Offline {
				return errors.New("cannot sync in offline mode")
			}
			result, err := c.app.Sync(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "synced %d launchpads and %d launches in %s\n",
				result.Launchpads, result.Launches, result.Duration.Round(time.Millisecond))
			return nil
		}),
	}
}

func (c *cli) logsCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the persisted log entries",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			logs, err := c.app.Logs()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			g := render.LogGrid(logs)
			s := render.Summary{Filtered: len(logs), Total: len(logs), Page: table.Page{Size: len(logs)}}
			switch f, err := render.ParseFormat(format); {
			case err != nil:
				return err
			case f == render.FormatJSON:
				return render.JSON(out, logs)
			case f == render.FormatXML:
				return render.XML(out, g, s)
			case f == render.FormatHTML:
				return render.HTML(out, g, s)
			default:
				return render.Terminal(out, g, s)
			}
		}),
	}
	cmd.Flags().StringVar(&format, "format", string(render.FormatTable), "output format: table, json, xml or html")
	return cmd
}

func (c *cli) statsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Count what the snapshot store holds",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			stats, err := c.app.Stats()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return render.JSON(out, stats)
			}
			lastFetched := "never"
			if !stats.LastFetched.IsZero() {
				lastFetched = stats.LastFetched.Local().Format(time.DateTime)
			}
			fmt.Fprintf(out, "launchpads:   %d\nlaunches:     %d\nlogs:         %d\nlast fetched: %s\n",
				stats.Launchpads, stats.Launches, stats.Logs, lastFetched)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the counts as JSON")
	return cmd
}

func (c *cli) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser dashboard",
		Long: `Serve the browser dashboard on listen_addr. When tls_cert and tls_key are
set, the same port also accepts HTTPS.`,
		Args: cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.app.Config.ListenAddr
			}
			server, err := web.New(c.app, web.WithLogger(c.app.Logger))
			if err != nil {
				return err
			}
			l, err := c.app.Listen(addr)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dashboard on http://%s\n", l.Addr())
			return server.Serve(cmd.Context(), l)
		}),
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default listen_addr)")
	return cmd
}

func (c *cli) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print every configuration key",
			Args:  cobra.NoArgs,
			RunE: c.run(func(cmd *cobra.Command, args []string) error {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "# %s\n", c.app.ConfigDir)
				for _, key := range c.app.Config.Keys() {
					fmt.Fprintf(out, "%s = %v\n", key, c.app.Config.Get(key))
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Change one configuration key and save it",
			Args:  cobra.ExactArgs(2),
			RunE: c.run(func(cmd *cobra.Command, args []string) error {
				key := strings.ToLower(strings.TrimSpace(args[0]))
				var value any = args[1]
				if strings.Contains(args[1], ",") {
					value = strings.Split(args[1], ",")
				}
				if err := c.app.Config.Set(key, value); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, c.app.Config.Get(key))
				return nil
			}),
		},
	)
	return cmd
}
