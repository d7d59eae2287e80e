package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tfkr-ae/gantry"
	"github.com/tfkr-ae/gantry/core"
	"github.com/tfkr-ae/gantry/domain"
	"github.com/tfkr-ae/gantry/render"
	"github.com/tfkr-ae/gantry/table"
)

const (
	prompt          = "> "
	interactiveHelp = "commands: n next page, p previous page, f <text> filter, s <field> sort, size <n> page size, q quit"
)

// errReported is returned once a failure has already been printed.
var errReported = errors.New("failure already reported")

var errStreamClosed = errors.New("table stream closed")

type tableFlags struct {
	page        int
	size        int
	sort        string
	direction   string
	filter      string
	format      string
	interactive bool
}

func (f *tableFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.IntVar(&f.page, "page", 0, "0-based page index")
	flags.IntVar(&f.size, "size", 0, "rows per page (default page_size)")
	flags.StringVar(&f.sort, "sort", "", "sort field")
	flags.StringVar(&f.direction, "dir", "asc", "sort direction: asc or desc")
	flags.StringVar(&f.filter, "filter", "", "keep rows containing this text")
	flags.StringVar(&f.format, "format", string(render.FormatTable), "output format: table, json, xml or html")
	flags.BoolVarP(&f.interactive, "interactive", "i", false, "browse the table from stdin")
}

// view is one table and the controls driving it.
type view[T any] struct {
	scope     string
	source    *table.DataSource[T]
	paginator *table.Paginator
	sorter    *table.Sorter
	fields    []string
	grid      func([]T) render.Grid
	connect   func(context.Context) (<-chan table.Emission[T], error)
}

func (c *cli) launchpadsCmd() *cobra.Command {
	f := &tableFlags{}
	cmd := &cobra.Command{
		Use:   "launchpads",
		Short: "Show the launchpad table",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			source, paginator, sorter, err := c.app.NewLaunchpadSource()
			if err != nil {
				return err
			}
			return runTable(c, cmd, f, &view[domain.Launchpad]{
				scope:     gantry.LaunchpadsScope,
				source:    source.DataSource,
				paginator: paginator,
				sorter:    sorter,
				fields:    gantry.LaunchpadFields,
				grid:      render.LaunchpadGrid,
				connect:   source.Connect,
			})
		}),
	}
	f.register(cmd)
	return cmd
}

func (c *cli) launchesCmd() *cobra.Command {
	f := &tableFlags{}
	cmd := &cobra.Command{
		Use:   "launches <launchpad-id>",
		Short: "Show the launches made from a launchpad",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if id == "" {
				return errors.New("launchpad id cannot be empty")
			}
			source, paginator, sorter, err := c.app.NewLaunchSource(id)
			if err != nil {
				return err
			}
			return runTable(c, cmd, f, &view[domain.Launch]{
				scope:     id,
				source:    source.DataSource,
				paginator: paginator,
				sorter:    sorter,
				fields:    gantry.LaunchFields,
				grid:      render.LaunchGrid,
				connect:   source.Connect,
			})
		}),
	}
	f.register(cmd)
	return cmd
}

// runTable connects v, prints its first emission and, in interactive mode,
// keeps reading commands until q or end of input.
func runTable[T any](c *cli, cmd *cobra.Command, f *tableFlags, v *view[T]) error {
	format, err := render.ParseFormat(f.format)
	if err != nil {
		return err
	}
	if err := v.apply(f); err != nil {
		return err
	}

	ctx := gantry.ContextWithScope(gantry.ContextWithSessionID(cmd.Context(), c.app.SessionID), v.scope)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer v.source.Disconnect()

	stream, err := v.connect(ctx)
	if err != nil {
		return err
	}
	e, err := v.await(ctx, stream, table.TriggerInitial)
	if err != nil {
		return c.fail(ctx, cmd, err)
	}
	if err := render.Write(cmd.OutOrStdout(), format, e, v.grid(e.Rows)); err != nil {
		return err
	}
	if !f.interactive {
		return nil
	}
	return v.interact(ctx, c, cmd, format, stream)
}

// apply sets the starting view state. The filter goes first since it resets
// the page.
func (v *view[T]) apply(f *tableFlags) error {
	if f.sort != "" && !slices.Contains(v.fields, f.sort) {
		return fmt.Errorf("unknown sort field %q, expected one of %s", f.sort, strings.Join(v.fields, ", "))
	}
	direction, err := table.ParseDirection(f.direction)
	if err != nil {
		return err
	}
	v.source.SetFilter(f.filter)
	if f.size != 0 {
		if err := v.paginator.SetPageSize(f.size); err != nil {
			return err
		}
	}
	if err := v.paginator.SetPage(f.page); err != nil {
		return err
	}
	if f.sort != "" {
		v.sorter.SetSort(f.sort, direction)
	}
	return nil
}

// await reads emissions until one caused by want arrives. Earlier emissions
// only update the paginator length.
func (v *view[T]) await(ctx context.Context, stream <-chan table.Emission[T], want table.Trigger) (table.Emission[T], error) {
	for {
		select {
		case <-ctx.Done():
			return table.Emission[T]{}, ctx.Err()
		case e, ok := <-stream:
			if !ok {
				return table.Emission[T]{}, errStreamClosed
			}
			if e.Err != nil {
				return e, e.Err
			}
			v.paginator.SetLength(e.FilteredCount)
			if e.Trigger == want {
				return e, nil
			}
		}
	}
}

func (v *view[T]) interact(ctx context.Context, c *cli, cmd *cobra.Command, format render.Format, stream <-chan table.Emission[T]) error {
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())
	fmt.Fprint(out, prompt)
	for scanner.Scan() {
		want, quit, err := v.command(scanner.Text())
		switch {
		case err != nil:
			fmt.Fprintln(out, err)
		case quit:
			return nil
		case want != "":
			e, err := v.await(ctx, stream, want)
			if err != nil {
				return c.fail(ctx, cmd, err)
			}
			if err := render.Write(out, format, e, v.grid(e.Rows)); err != nil {
				return err
			}
		}
		fmt.Fprint(out, prompt)
	}
	return scanner.Err()
}

// command applies one interactive line and returns the trigger of the
// emission it causes, if any.
func (v *view[T]) command(line string) (table.Trigger, bool, error) {
	name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "":
		return "", false, nil
	case "q", "quit":
		return "", true, nil
	case "n":
		if !v.paginator.NextPage() {
			return "", false, errors.New("already on the last page")
		}
		return table.TriggerPage, false, nil
	case "p":
		if !v.paginator.PreviousPage() {
			return "", false, errors.New("already on the first page")
		}
		return table.TriggerPage, false, nil
	case "f":
		v.source.SetFilter(arg)
		return table.TriggerFilter, false, nil
	case "s":
		if !slices.Contains(v.fields, arg) {
			return "", false, fmt.Errorf("unknown sort field %q, expected one of %s", arg, strings.Join(v.fields, ", "))
		}
		v.sorter.Toggle(arg)
		return table.TriggerSort, false, nil
	case "size":
		size, err := strconv.Atoi(arg)
		if err != nil {
			return "", false, fmt.Errorf("page size should be a number, got %q", arg)
		}
		if size == v.paginator.Page().Size {
			return "", false, nil
		}
		if err := v.paginator.SetPageSize(size); err != nil {
			return "", false, err
		}
		return table.TriggerPage, false, nil
	}
	return "", false, errors.New(interactiveHelp)
}

// fail persists a fetch failure and prints the generic backend message.
func (c *cli) fail(ctx context.Context, cmd *cobra.Command, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	options := append(gantry.LogOptionsFromContext(ctx), core.LogWithContext(map[string]any{"error": err.Error()}))
	if logErr := c.app.WriteLog("ERROR", "table fetch failed", options...); logErr != nil {
		c.app.Logger.Error("persisting fetch failure", "error", logErr)
	}
	render.TerminalError(cmd.ErrOrStderr(), err)
	return errReported
}
