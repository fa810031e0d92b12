package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jask/modelhub/internal/config"
)

func configCmd(envFn func() *env) *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Show the configuration after defaults, the config file, .env and
environment overrides are applied. With --save the effective values are
written back to the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFn()
			c := e.cfg
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			rows := [][2]string{
				{"api.url", c.API.URL},
				{"api.timeout", c.API.Timeout.String()},
				{"api.upload_timeout", c.API.UploadTimeout.String()},
				{"explorer.base_url", c.Explorer.BaseURL},
				{"explorer.network", c.Explorer.Network},
				{"aggregation.resync_delay", c.Aggregation.ResyncDelay.String()},
				{"ui.date_format", c.UI.DateFormat},
				{"ui.timezone", c.UI.Timezone},
				{"log.path", c.Log.Path},
				{"log.level", c.Log.Level},
				{"journal.path", c.Journal.Path},
				{"download.dir", c.Download.Dir},
			}
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\n", r[0], dash(r[1]))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if !save {
				return nil
			}
			path := e.cfgPath
			if path == "" {
				path = config.Path()
			}
			if err := config.Save(c, path); err != nil {
				return err
			}
			e.log.Infow("config saved", "path", path)
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "write the effective configuration to the config file")
	return cmd
}
