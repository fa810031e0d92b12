package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jask/modelhub/internal/journal"
	"github.com/jask/modelhub/internal/registry"
	"github.com/jask/modelhub/internal/session"
)

func aggregateCmd(envFn func() *env) *cobra.Command {
	var name, base string
	var members []string

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Request an aggregation of approved models",
		Long: `Request an aggregation of approved models into a new model.

The request is sent without waiting for the aggregation itself; the new
model shows up in the approved list once the registry approves it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFn()
			ctx := cmd.Context()
			sync := session.NewRegistrySync(e.client, e.log.Named("sync"))
			if err := sync.RefreshApproved(ctx); err != nil {
				return fmt.Errorf("refresh approved models: %w", err)
			}
			approved := sync.Approved()

			dispatcher := session.NewAsyncDispatcher(e.client, e.cfg.API.Timeout, e.log.Named("dispatch"))
			builder := session.NewAggregationBuilder(dispatcher, nil, e.log.Named("aggregate"))
			defer builder.Close()

			if base != "" {
				m, err := resolve(approved, base, builder.BaseExclusions())
				if err != nil {
					return err
				}
				if err := builder.SetBase(m); err != nil {
					return err
				}
			}
			for _, member := range members {
				m, err := resolve(approved, member, builder.MemberExclusions())
				if err != nil {
					return err
				}
				if err := builder.AddMember(m); err != nil {
					return err
				}
			}

			req, err := builder.Submit(name)
			if err != nil {
				return err
			}
			// the process must not exit before the request is handed over
			dispatcher.Wait()

			if j := e.openJournal(); j != nil {
				defer j.Close()
				entry := journal.Entry{
					Kind:    journal.KindAggregation,
					Name:    req.ModelName,
					Detail:  fmt.Sprintf("base=%s members=%s", req.BaseModel, strings.Join(req.ModelsToAggregate, ",")),
					Outcome: journal.OutcomeDispatched,
				}
				if _, jerr := j.Record(ctx, entry); jerr != nil {
					e.log.Warnw("journal write failed", "error", jerr)
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(req); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), builder.Notice().Message)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "name of the aggregated model")
	cmd.Flags().StringVarP(&base, "base", "b", "", "base model name")
	cmd.Flags().StringSliceVarP(&members, "member", "m", nil, "model to aggregate (repeatable)")
	return cmd
}

// resolve finds an approved model by exact (case-insensitive) name or id,
// suggesting the closest name when nothing matches.
func resolve(approved []registry.Model, query string, exclude session.IDSet) (registry.Model, error) {
	q := strings.TrimSpace(query)
	for _, m := range approved {
		if strings.EqualFold(m.Name, q) || m.ID == q {
			return m, nil
		}
	}
	if hint, ok := session.Closest(approved, q, exclude); ok {
		return registry.Model{}, fmt.Errorf("no approved model named %q, did you mean %q?", q, hint.Name)
	}
	return registry.Model{}, fmt.Errorf("no approved model named %q", q)
}
