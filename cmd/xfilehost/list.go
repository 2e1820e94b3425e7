package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alexballas/xfilehost/api"
	"github.com/alexballas/xfilehost/config"
	"github.com/alexballas/xfilehost/pager"
)

type listFlags struct {
	page     int
	pageSize int
	endpoint string
}

func newListCmd(global *globalFlags) *cobra.Command {
	flags := &listFlags{}

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "Print one page of a listing",
		Example: `  xfilehost ls
  xfilehost ls --endpoint /shared --page 2 --page-size 50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := global.load()
			if err != nil {
				return err
			}
			client, err := api.NewClient(cfg, api.WithLogger(log))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			endpoint := flags.endpoint
			if endpoint == "" {
				endpoint = cfg.Listings[0].Endpoint
			}
			return listPage(ctx, cmd.OutOrStdout(), client, endpoint, flags.page, flags.pageSize)
		},
	}

	cmd.Flags().IntVar(&flags.page, "page", 1, "Page number, starting at 1")
	cmd.Flags().IntVar(&flags.pageSize, "page-size", 50, "Files per page")
	cmd.Flags().StringVar(&flags.endpoint, "endpoint", "", "List endpoint (default: the first configured listing)")
	return cmd
}

// listPage loads one page through the same controller the grid uses. A
// single row of unit-wide tiles makes the page size equal the measured width.
func listPage(ctx context.Context, out io.Writer, lister pager.Lister, endpoint string, page, pageSize int) error {
	if pageSize < 1 {
		return fmt.Errorf("page size must be positive, got %d", pageSize)
	}
	ctrl := pager.New(lister, pager.Options{
		Endpoint:  endpoint,
		Page:      page,
		Rows:      1,
		TileWidth: 1,
	})
	defer ctrl.Close()

	done := make(chan struct{})
	go func() {
		ctrl.Measure(float32(pageSize))
		ctrl.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if msg := ctrl.Err(); msg != "" {
		return fmt.Errorf("%s", msg)
	}
	return printPage(out, ctrl)
}

func printPage(out io.Writer, ctrl *pager.Controller) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSIZE\tLINK")
	for _, it := range ctrl.Items() {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", it.ID, it.DisplayName(), humanSize(it.Size), it.DirectLink)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "page %d of %d, %d files\n", ctrl.Page(), ctrl.TotalPages(), ctrl.Total())
	return err
}

func humanSize(n int64) string {
	if n <= 0 {
		return "-"
	}
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func newConfigCmd(global *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the defaults and the given flags",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := global.path()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			}
			cfg := config.Default()
			global.apply(cfg)
			if err := cfg.Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}
