package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"portfolio-backend/internal/contacts"
)

func newContactsCmd(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "contacts",
		Aliases: []string{"contact"},
		Short:   "Inspect and triage contact submissions",
	}
	cmd.AddCommand(
		newContactsListCmd(env),
		newContactsShowCmd(env),
		newContactsUpdateCmd(env),
		newContactsStatsCmd(env),
	)
	return cmd
}

func newContactsListCmd(env *cliEnv) *cobra.Command {
	var opts contacts.ListOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List submissions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := env.app.ContactsService.List(cmd.Context(), opts)
			if err != nil {
				return describe(err)
			}
			return render(cmd.OutOrStdout(), env.output, page, func(w io.Writer) error {
				fmt.Fprintln(w, "ID\tRECEIVED\tSTATUS\tPRIORITY\tNAME\tSUBJECT")
				for _, c := range page.Items {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
						c.ID, c.CreatedAt.Format(time.DateTime), c.Status, c.Priority, truncate(c.Name, 24), truncate(c.Subject, 40))
				}
				p := page.Pagination
				fmt.Fprintf(w, "\npage %d of %d, %d total\n", p.Current, max(p.Total, 1), p.TotalContacts)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.Status, "status", "", "filter by status (new, read, replied, closed)")
	f.StringVar(&opts.Priority, "priority", "", "filter by priority (low, medium, high, urgent)")
	f.StringVar(&opts.SortBy, "sort", contacts.SortCreatedAt, "sort by createdAt, name or priority")
	f.IntVar(&opts.Page, "page", 1, "page number")
	f.IntVar(&opts.Limit, "limit", contacts.DefaultPageSize, "page size")
	return cmd
}

func newContactsShowCmd(env *cliEnv) *cobra.Command {
	var markRead bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print one submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				c   contacts.Contact
				err error
			)
			if markRead {
				c, err = env.app.ContactsService.Get(cmd.Context(), args[0])
			} else if _, perr := uuid.Parse(args[0]); perr != nil {
				err = contacts.ErrNotFound
			} else {
				c, err = env.app.ContactsRepo.Get(cmd.Context(), args[0])
			}
			if err != nil {
				return describe(err)
			}
			return render(cmd.OutOrStdout(), env.output, c, func(w io.Writer) error {
				return contactTable(w, c)
			})
		},
	}
	cmd.Flags().BoolVar(&markRead, "mark-read", false, "mark the submission read, as the dashboard does")
	return cmd
}

func newContactsUpdateCmd(env *cliEnv) *cobra.Command {
	var status, priority, notes, reply string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change status or priority, add notes or record a reply",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := contacts.UpdateInput{
				Status:   contacts.Status(status),
				Priority: contacts.Priority(priority),
			}
			if cmd.Flags().Changed("notes") {
				in.Notes = &notes
			}
			if cmd.Flags().Changed("reply") {
				in.Reply = &reply
			}
			c, err := env.app.ContactsService.Update(cmd.Context(), args[0], in)
			if err != nil {
				return describe(err)
			}
			return render(cmd.OutOrStdout(), env.output, c, func(w io.Writer) error {
				return contactTable(w, c)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&status, "status", "", "new status")
	f.StringVar(&priority, "priority", "", "new priority")
	f.StringVar(&notes, "notes", "", "replace internal notes")
	f.StringVar(&reply, "reply", "", "record the reply that was sent")
	return cmd
}

func newContactsStatsCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize submissions by status, priority, project type and month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := env.app.ContactsService.Stats(cmd.Context())
			if err != nil {
				return describe(err)
			}
			return render(cmd.OutOrStdout(), env.output, st, func(w io.Writer) error {
				for _, sec := range []struct {
					title  string
					counts []contacts.Count
				}{
					{"STATUS", st.StatusCounts},
					{"PRIORITY", st.PriorityCounts},
					{"PROJECT TYPE", st.ProjectTypeCounts},
				} {
					fmt.Fprintf(w, "%s\tCOUNT\n", sec.title)
					for _, c := range sec.counts {
						fmt.Fprintf(w, "%s\t%d\n", c.Value, c.Count)
					}
					fmt.Fprintln(w)
				}
				fmt.Fprintln(w, "MONTH\tCOUNT")
				for _, m := range st.MonthlyStats {
					fmt.Fprintf(w, "%04d-%02d\t%d\n", m.Year, m.Month, m.Count)
				}
				return nil
			})
		},
	}
}

func contactTable(w io.Writer, c contacts.Contact) error {
	budget := "-"
	if c.Budget != nil {
		budget = fmt.Sprintf("%g %s", *c.Budget, c.Currency)
	}
	replied := "-"
	if c.RepliedAt != nil {
		replied = c.RepliedAt.Format(time.DateTime)
	}
	rows := [][2]string{
		{"ID", c.ID},
		{"Received", c.CreatedAt.Format(time.DateTime)},
		{"Status", string(c.Status)},
		{"Priority", string(c.Priority)},
		{"Read", fmt.Sprint(c.IsRead)},
		{"Name", c.Name},
		{"Email", c.Email},
		{"Phone", orDash(c.Phone)},
		{"Company", orDash(c.Company)},
		{"Project type", c.ProjectType},
		{"Budget", budget},
		{"Timeline", c.Timeline},
		{"Subject", c.Subject},
		{"Replied at", replied},
		{"Notes", orDash(c.Notes)},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%s:\t%s\n", r[0], r[1])
	}
	fmt.Fprintf(w, "\n%s\n", c.Message)
	if c.Reply != "" {
		fmt.Fprintf(w, "\nReply:\n%s\n", c.Reply)
	}
	return nil
}

// describe turns service errors into messages fit for a terminal.
func describe(err error) error {
	var verr *contacts.ValidationError
	switch {
	case errors.As(err, &verr):
		msgs := make([]string, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			msgs = append(msgs, f.Field+": "+f.Message)
		}
		return errors.New(strings.Join(msgs, "; "))
	case errors.Is(err, contacts.ErrNotFound):
		return errors.New("contact not found")
	default:
		return err
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
