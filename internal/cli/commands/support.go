package commands

import (
	"fmt"

	"github.com/bankctl-dev/bankctl/internal/models"
	"github.com/spf13/cobra"
)

// NewSupportCmd creates the support command group
func NewSupportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "support",
		Short: "Open and follow support tickets",
	}

	list := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List your tickets",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := RuntimeFrom(cmd)
			if err != nil {
				return err
			}
			tickets, err := rt.Services.Support.ListTickets(cmd.Context())
			if err != nil {
				return rt.apiError(cmd.Context(), "failed to list tickets", err)
			}
			if len(tickets) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No support tickets.")
				return nil
			}
			w := newTable(cmd.OutOrStdout(), "ID", "SUBJECT", "STATUS", "PRIORITY", "UPDATED AT")
			for _, t := range tickets {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Subject, t.Status, t.Priority, formatTime(t.UpdatedAt))
			}
			return w.Flush()
		},
	}

	var ticket models.SupportTicket
	create := &cobra.Command{
		Use:   "create <subject>",
		Short: "Open a ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := RuntimeFrom(cmd)
			if err != nil {
				return err
			}
			ticket.Subject = args[0]
			created, err := rt.Services.Support.CreateTicket(cmd.Context(), ticket)
			if err != nil {
				return rt.apiError(cmd.Context(), "failed to create ticket", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Ticket %s opened (%s)\n", created.ID, created.Status)
			return nil
		},
	}
	create.Flags().StringVar(&ticket.Description, "description", "", "What went wrong")
	create.Flags().StringVar(&ticket.Priority, "priority", "medium", "low, medium or high")

	closeCmd := &cobra.Command{
		Use:   "close <ticket-id>",
		Short: "Close a ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := RuntimeFrom(cmd)
			if err != nil {
				return err
			}
			closed, err := rt.Services.Support.CloseTicket(cmd.Context(), args[0])
			if err != nil {
				return rt.apiError(cmd.Context(), "failed to close ticket", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Ticket %s %s\n", closed.ID, closed.Status)
			return nil
		},
	}

	reply := &cobra.Command{
		Use:   "reply <ticket-id> <message>",
		Short: "Add a reply to a ticket",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := RuntimeFrom(cmd)
			if err != nil {
				return err
			}
			if _, err := rt.Services.Support.AddReply(cmd.Context(), args[0], args[1]); err != nil {
				return rt.apiError(cmd.Context(), "failed to add reply", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Reply added to ticket %s\n", args[0])
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <ticket-id>",
		Short: "Show a ticket and its replies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := RuntimeFrom(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			t, err := rt.Services.Support.GetTicket(ctx, args[0])
			if err != nil {
				return rt.apiError(ctx, "failed to load ticket", err)
			}
			replies, err := rt.Services.Support.ListReplies(ctx, args[0])
			if err != nil {
				return rt.apiError(ctx, "failed to load replies", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s [%s, %s]\n", t.Subject, t.Status, t.Priority)
			if t.Description != "" {
				fmt.Fprintf(out, "\n%s\n", t.Description)
			}
			for _, r := range replies {
				fmt.Fprintf(out, "\n%s  %s\n", formatTime(r.CreatedAt), r.Message)
			}
			return nil
		},
	}

	for _, sub := range []*cobra.Command{list, create, closeCmd, reply, show} {
		cmd.AddCommand(BindRoute(sub, "/support"))
	}
	return cmd
}
