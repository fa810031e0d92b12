package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jask/modelhub/internal/dropzone"
	"github.com/jask/modelhub/internal/journal"
	"github.com/jask/modelhub/internal/registry"
	"github.com/jask/modelhub/internal/session"
)

func uploadCmd(envFn func() *env) *cobra.Command {
	var name, task, modelPath, tokenizerPath string

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload a model and its tokenizer for community voting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFn()
			ctx := cmd.Context()
			sync := session.NewRegistrySync(e.client, e.log.Named("sync"))
			up := session.NewUploadSession(e.client, sync, e.log.Named("upload"))

			if err := attach(up, session.ModelArchive, modelPath); err != nil {
				return err
			}
			if err := attach(up, session.TokenizerArchive, tokenizerPath); err != nil {
				return err
			}

			err := up.Submit(ctx, name, task)
			if j := e.openJournal(); j != nil {
				defer j.Close()
				if !registry.IsValidation(err) {
					entry := journal.Entry{Kind: journal.KindUpload, Name: name, Outcome: journal.OutcomeSucceeded}
					if err != nil {
						entry.Outcome = journal.OutcomeFailed
						entry.Detail = up.Notice().Message
					}
					if _, jerr := j.Record(ctx, entry); jerr != nil {
						e.log.Warnw("journal write failed", "error", jerr)
					}
				}
			}
			if err != nil {
				return errors.New(up.Notice().Message)
			}
			fmt.Fprintln(cmd.OutOrStdout(), up.Notice().Message)
			fmt.Fprintf(cmd.OutOrStdout(), "%d approved models\n", len(sync.Approved()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "model name")
	cmd.Flags().StringVarP(&task, "task", "t", "", "task the model solves")
	cmd.Flags().StringVar(&modelPath, "model", "", "path to model.zip")
	cmd.Flags().StringVar(&tokenizerPath, "tokenizer", "", "path to tokenizer.zip")
	return cmd
}

// attach runs path through a drop zone as a picker selection and stages the
// accepted file. A blank path leaves the slot empty for Submit to report.
func attach(up *session.UploadSession, kind session.ArchiveKind, path string) error {
	pick, err := dropzone.PickPath(path)
	if err != nil {
		return fmt.Errorf("%s archive: %w", kind, err)
	}
	zone := dropzone.New(kind.String())
	for _, sig := range zone.Handle(pick) {
		switch s := sig.(type) {
		case dropzone.FileSelected:
			if err := up.Attach(kind, s.File); err != nil {
				return err
			}
		case dropzone.Rejected:
			return fmt.Errorf("%s: %s", s.File.Name, session.MsgZipOnly)
		}
	}
	return nil
}
