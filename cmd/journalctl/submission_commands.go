package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/journal-submission-api/internal/client"
	"github.com/journal-submission-api/internal/lifecycle"
	"github.com/journal-submission-api/internal/models"
	"github.com/spf13/cobra"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var (
		status   string
		journal  int64
		author   int64
		language string
		search   string
		mine     bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List submissions visible to you",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := ctx.manager(cmd.Context())
			if err != nil {
				return err
			}

			filter := models.SubmissionFilter{JournalID: journal, AuthorID: author, Language: language, Search: search}
			if status != "" {
				st, ok := models.ParseStatus(status)
				if !ok {
					return fmt.Errorf("unknown status %q", status)
				}
				filter.Status = st
			}
			if mine {
				actor := mgr.Session().Actor
				if actor.Anonymous() {
					return errors.New("--mine requires a token; run `journalctl login` first")
				}
				filter.AuthorID = actor.UserID
			}

			subs, err := mgr.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderSubmissions(subs, shouldColorize(out)))
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	cmd.Flags().Int64Var(&journal, "journal", 0, "Filter by journal id")
	cmd.Flags().Int64Var(&author, "author", 0, "Filter by author id")
	cmd.Flags().StringVar(&language, "language", "", "Filter by manuscript language")
	cmd.Flags().StringVar(&search, "search", "", "Search title, abstract, keywords and author")
	cmd.Flags().BoolVar(&mine, "mine", false, "Only your own submissions")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var history bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a submission and the actions available to you",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			mgr, api, err := ctx.manager(cmd.Context())
			if err != nil {
				return err
			}
			sub, err := mgr.Load(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderSubmission(sub, mgr.Session().Actor, colorize))

			if !history {
				return nil
			}
			changes, err := api.History(cmd.Context(), id)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(changes))
			for _, ch := range changes {
				from := "-"
				if ch.FromStatus != "" {
					from = renderStatus(ch.FromStatus, colorize)
				}
				rows = append(rows, []string{formatTime(ch.CreatedAt), from, renderStatus(ch.ToStatus, colorize), strconv.FormatInt(ch.ChangedBy, 10), ch.Reason})
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderTable([]string{"When", "From", "To", "By", "Reason"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&history, "history", false, "Include the status history")
	return cmd
}

func newEstimateCommand(ctx *commandContext) *cobra.Command {
	var pages int

	cmd := &cobra.Command{
		Use:   "estimate <journal-slug>",
		Short: "Estimate the publication fee for a manuscript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, api, err := ctx.manager(cmd.Context())
			if err != nil {
				return err
			}
			quote, err := estimate(cmd, mgr, api, args[0], pages)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Estimated fee for %d pages: %s\n", pages, renderQuote(quote))
			return nil
		},
	}
	cmd.Flags().IntVar(&pages, "pages", 1, "Page count")
	return cmd
}

// estimate computes the fee locally from the journal price and the
// caller's subscription.
func estimate(cmd *cobra.Command, mgr *lifecycle.Manager, api *client.Client, slug string, pages int) (lifecycle.Quote, error) {
	journal, err := api.Journal(cmd.Context(), slug)
	if err != nil {
		return lifecycle.Quote{}, err
	}
	var sub *models.Subscription
	if !mgr.Session().Actor.Anonymous() {
		if sub, err = api.MySubscription(cmd.Context()); err != nil {
			return lifecycle.Quote{}, err
		}
	}
	return mgr.Estimate(journal, pages, sub), nil
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		draft    models.SubmissionDraft
		journal  string
		filePath string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Create a submission, or save it as a draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, api, err := ctx.manager(cmd.Context())
			if err != nil {
				return err
			}

			if id, err := strconv.ParseInt(journal, 10, 64); err == nil {
				draft.JournalID = id
			} else {
				j, err := api.Journal(cmd.Context(), journal)
				if err != nil {
					return err
				}
				draft.JournalID = j.ID
				if filePath != "" && !draft.SaveAsDraft {
					if quote, err := estimate(cmd, mgr, api, j.Slug, draft.PageCount); err == nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "Publication fee: %s\n", renderQuote(quote))
					}
				}
			}

			var upload *lifecycle.Upload
			if filePath != "" {
				f, err := os.Open(filePath)
				if err != nil {
					return fmt.Errorf("open manuscript: %w", err)
				}
				defer f.Close()
				upload = &lifecycle.Upload{Filename: filepath.Base(filePath), Body: f}
			}

			sub, err := mgr.Submit(cmd.Context(), draft, upload)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Submission %d created with status %s\n", sub.ID, renderStatus(sub.Status, shouldColorize(out)))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&draft.Title, "title", "", "Title")
	f.StringVar(&draft.Abstract, "abstract", "", "Abstract")
	f.StringVar(&draft.Keywords, "keywords", "", "Comma separated keywords")
	f.StringVar(&journal, "journal", "", "Journal slug or id")
	f.IntVar(&draft.PageCount, "pages", 0, "Page count")
	f.StringVar(&draft.Language, "language", "en", "Manuscript language (en, uz, ru)")
	f.StringVar(&filePath, "file", "", "Manuscript file; without it the submission is saved as a draft")
	f.BoolVar(&draft.SaveAsDraft, "draft", false, "Save as draft even when a file is attached")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("journal")
	return cmd
}

func newEditCommand(ctx *commandContext) *cobra.Command {
	var title, abstract, keywords string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit the title, abstract or keywords of a submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var patch models.SubmissionPatch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("abstract") {
				patch.Abstract = &abstract
			}
			if cmd.Flags().Changed("keywords") {
				patch.Keywords = &keywords
			}

			mgr, _, err := ctx.manager(cmd.Context())
			if err != nil {
				return err
			}
			sub, err := mgr.UpdateMetadata(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Submission %d updated\n", sub.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&abstract, "abstract", "", "New abstract")
	cmd.Flags().StringVar(&keywords, "keywords", "", "New keywords")
	return cmd
}

type transitionFunc func(cmd *cobra.Command, mgr *lifecycle.Manager, id int64) (*models.Submission, error)

func newTransitionCommand(ctx *commandContext, use, short string, run transitionFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			mgr, _, err := ctx.manager(cmd.Context())
			if err != nil {
				return err
			}
			sub, err := run(cmd, mgr, id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Submission %d is now %s\n", sub.ID, renderStatus(sub.Status, shouldColorize(out)))
			return nil
		},
	}
}

func newTransitionCommands(ctx *commandContext) []*cobra.Command {
	send := newTransitionCommand(ctx, "send", "Submit a saved draft (charges the publication fee)",
		func(cmd *cobra.Command, mgr *lifecycle.Manager, id int64) (*models.Submission, error) {
			return mgr.SubmitDraft(cmd.Context(), id)
		})
	review := newTransitionCommand(ctx, "review", "Start reviewing a submission",
		func(cmd *cobra.Command, mgr *lifecycle.Manager, id int64) (*models.Submission, error) {
			return mgr.StartReview(cmd.Context(), id)
		})
	accept := newTransitionCommand(ctx, "accept", "Accept a submission",
		func(cmd *cobra.Command, mgr *lifecycle.Manager, id int64) (*models.Submission, error) {
			return mgr.Accept(cmd.Context(), id)
		})
	publish := newTransitionCommand(ctx, "publish", "Publish an accepted submission",
		func(cmd *cobra.Command, mgr *lifecycle.Manager, id int64) (*models.Submission, error) {
			return mgr.Publish(cmd.Context(), id)
		})

	var reason string
	reject := newTransitionCommand(ctx, "reject", "Reject a submission",
		func(cmd *cobra.Command, mgr *lifecycle.Manager, id int64) (*models.Submission, error) {
			return mgr.Reject(cmd.Context(), id, reason)
		})
	reject.Flags().StringVar(&reason, "reason", "", "Rejection reason shown to the author")

	var confirmed bool
	withdraw := newTransitionCommand(ctx, "withdraw", "Withdraw your submission (irreversible)",
		func(cmd *cobra.Command, mgr *lifecycle.Manager, id int64) (*models.Submission, error) {
			return mgr.Withdraw(cmd.Context(), id, confirmed)
		})
	withdraw.Flags().BoolVarP(&confirmed, "yes", "y", false, "Confirm the withdrawal")

	return []*cobra.Command{send, review, accept, reject, publish, withdraw}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Permanently delete a submission (admins only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !confirmed {
				return errors.New("deletion cannot be undone; pass --yes to confirm")
			}
			mgr, _, err := ctx.manager(cmd.Context())
			if err != nil {
				return err
			}
			if err := mgr.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Submission %d deleted\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&confirmed, "yes", "y", false, "Confirm the deletion")
	return cmd
}
