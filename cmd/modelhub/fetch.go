package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jask/modelhub/internal/journal"
	"github.com/jask/modelhub/internal/registry"
)

func fetchCmd(envFn func() *env) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "fetch <nft_id>",
		Short: "Download a model artifact by its ledger block id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFn()
			if dir == "" {
				dir = e.cfg.Download.Dir
			}
			path, n, err := registry.SaveArtifact(cmd.Context(), e.client, args[0], dir)

			if j := e.openJournal(); j != nil {
				defer j.Close()
				entry := journal.Entry{Kind: journal.KindFetch, Name: args[0], Outcome: journal.OutcomeSucceeded, Detail: path}
				if err != nil {
					entry.Outcome = journal.OutcomeFailed
					entry.Detail = err.Error()
				}
				if _, jerr := j.Record(cmd.Context(), entry); jerr != nil {
					e.log.Warnw("journal write failed", "error", jerr)
				}
			}
			if err != nil {
				return fmt.Errorf("fetch %s: %s", args[0], registry.UserMessage(err, err.Error()))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d bytes)\n", path, n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "output-dir", "o", "", "directory to write into (default download.dir)")
	return cmd
}
