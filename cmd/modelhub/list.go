package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jask/modelhub/internal/registry"
	"github.com/jask/modelhub/internal/session"
)

func listCmd(envFn func() *env, c session.Collection) *cobra.Command {
	short := "List approved models"
	if c == session.Pending {
		short = "List models pending approval"
	}
	return &cobra.Command{
		Use:   c.String(),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFn()
			sync := session.NewRegistrySync(e.client, e.log.Named("sync"))
			var err error
			if c == session.Pending {
				err = sync.RefreshPending(cmd.Context())
			} else {
				err = sync.RefreshApproved(cmd.Context())
			}
			if err != nil {
				return fmt.Errorf("refresh %s models: %w", c, err)
			}
			models := sync.Approved()
			if c == session.Pending {
				models = sync.Pending()
			}
			return printModels(cmd.OutOrStdout(), e, c, models)
		},
	}
}

func printModels(out io.Writer, e *env, c session.Collection, models []registry.Model) error {
	if len(models) == 0 {
		_, err := fmt.Fprintf(out, "No %s models\n", c)
		return err
	}
	tz := e.cfg.Location()
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header := "NAME\tTASK\tCREATED\tMODEL ID\tBLOCK ID"
	if c == session.Approved {
		header += "\tEXPLORER"
	}
	fmt.Fprintln(tw, header)
	for _, m := range models {
		created := "-"
		if !m.CreatedAt.IsZero() {
			created = m.CreatedAt.In(tz).Format(e.cfg.UI.DateFormat)
		}
		row := fmt.Sprintf("%s\t%s\t%s\t%s\t%s", m.Name, dash(m.Task), created, m.ID, dash(m.NFTID))
		if c == session.Approved {
			row += "\t" + dash(e.explorer().BlockURL(m.NFTID))
		}
		fmt.Fprintln(tw, row)
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
