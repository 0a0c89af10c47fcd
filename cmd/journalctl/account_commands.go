package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/journal-submission-api/internal/models"
	"github.com/spf13/cobra"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Obtain an access token and store it in the config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.apiClient()
			if err != nil {
				return err
			}
			if password == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("password is required")
				}
				password = strings.TrimRight(line, "\r\n")
			}

			resp, err := api.Login(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			path, err := ctx.saveToken(resp.Access)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s). Token saved to %s\n", resp.User.Username, resp.User.Role, path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	return cmd
}

func newWhoamiCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current user",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.apiClient()
			if err != nil {
				return err
			}
			me, err := api.Me(cmd.Context())
			if err != nil {
				return err
			}
			rows := [][]string{
				{"ID", fmt.Sprint(me.ID)},
				{"Username", me.Username},
				{"Name", me.FullName()},
				{"Email", me.Email},
				{"Role", string(me.Role)},
				{"Balance", "$" + me.Balance.StringFixed(2)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}
}

func newJournalsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "journals [slug]",
		Short: "List journals, or show one by slug",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			api, err := ctx.apiClient()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				j, err := api.Journal(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := renderJournals([]*models.Journal{j}, cfg.Locale)
				if desc := j.Description(cfg.Locale); desc != "" {
					out += "\n\n" + desc
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			}
			journals, err := api.Journals(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderJournals(journals, cfg.Locale))
			return nil
		},
	}
}

func newSubscriptionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "subscription",
		Short: "Show your active subscription plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.apiClient()
			if err != nil {
				return err
			}
			sub, err := api.MySubscription(cmd.Context())
			if err != nil {
				return err
			}
			if sub == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No active subscription. Publication fees are charged from your balance.")
				return nil
			}

			plan, limit := "-", "unlimited"
			if sub.Plan != nil {
				plan = sub.Plan.Name
				if sub.Plan.ArticleLimit > 0 {
					limit = fmt.Sprintf("%d / %d", sub.ArticlesUsedThisMonth, sub.Plan.ArticleLimit)
				}
			}
			rows := [][]string{
				{"Plan", plan},
				{"Active until", formatTime(sub.EndDate)},
				{"Articles this month", limit},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}
}
