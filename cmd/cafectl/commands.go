package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/eightonethree/cafe-api/internal/app/members"
	"github.com/eightonethree/cafe-api/internal/domain"
	"github.com/eightonethree/cafe-api/internal/platform/auth/token"
	platformclock "github.com/eightonethree/cafe-api/internal/platform/clock"
)

// cliActor is recorded as the acting admin for changes made from the command line.
const cliActor = domain.MemberID("cafectl")

func newAdminCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "admin", Short: "Manage admin accounts"}

	var email, name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an approved admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			m, err := a.members.CreateAdmin(cmd.Context(), members.CreateAdminInput{
				DisplayName: name,
				Email:       email,
				Password:    password,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", m.ID, m.Email)
			return nil
		},
	}
	create.Flags().StringVar(&email, "email", "", "admin email address")
	create.Flags().StringVar(&name, "name", "", "display name")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("name")

	cmd.AddCommand(create)
	return cmd
}

func newMemberCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "member", Short: "Moderate members"}

	approve := &cobra.Command{
		Use:   "approve <member-id>",
		Short: "Approve a pending member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			m, err := a.members.Approve(cmd.Context(), cliActor, domain.MemberID(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", m.DisplayName, m.Status)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List members, optionally by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, _ := cmd.Flags().GetString("status")
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			ms, err := a.members.List(cmd.Context(), domain.MemberStatus(strings.ToUpper(status)))
			if err != nil {
				return err
			}
			for _, m := range ms {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", m.ID, m.Status, m.Email, m.DisplayName)
			}
			return nil
		},
	}
	list.Flags().String("status", "", "PENDING, APPROVED, REJECTED or SUSPENDED")

	cmd.AddCommand(approve, list)
	return cmd
}

func newResetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "reset", Short: "Daily reset"}

	var force bool
	run := &cobra.Command{
		Use:   "run",
		Short: "Run the daily reset once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			out, err := a.reset.RunOnce(cmd.Context(), force)
			if err != nil {
				return err
			}
			if !out.Ran {
				fmt.Fprintf(cmd.OutOrStdout(), "skipped: %s\n", out.SkipReason)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reset %s: closed %d sessions, purged %d vouchers\n",
				out.Day.Format("2006-01-02"), out.ClosedSessions, out.PurgedVouchers)
			return nil
		},
	}
	run.Flags().BoolVar(&force, "force", false, "run even if today's reset already happened")

	cmd.AddCommand(run)
	return cmd
}

func newVoucherCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "voucher", Short: "Vouchers"}

	lookup := &cobra.Command{
		Use:   "lookup <code>",
		Short: "Show the status of a voucher code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			status, v, err := a.vouch.Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if v == nil {
				fmt.Fprintln(cmd.OutOrStdout(), status)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d%%\texpires %s\n",
				status, v.Code, v.DiscountPercent, v.ExpiresAt.Format("2006-01-02 15:04"))
			return nil
		},
	}

	cmd.AddCommand(lookup)
	return cmd
}

// newTokenCmd mints access tokens for local testing against AUTH_MODE=jwt.
func newTokenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "token", Short: "Access tokens"}

	var memberID, role string
	mint := &cobra.Command{
		Use:   "mint",
		Short: "Mint an access token for a member id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Token.Secret == "" {
				return errors.New("TOKEN_SECRET is required")
			}
			tokens := token.NewService(a.cfg.Token, platformclock.NewSystemClock())
			raw, exp, err := tokens.Issue(domain.MemberID(memberID), domain.Role(strings.ToUpper(role)))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), raw)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.Format("2006-01-02T15:04:05Z07:00"))
			return nil
		},
	}
	mint.Flags().StringVar(&memberID, "member", "", "member id (token subject)")
	mint.Flags().StringVar(&role, "role", string(domain.RoleMember), "MEMBER or ADMIN")
	_ = mint.MarkFlagRequired("member")

	cmd.AddCommand(mint)
	return cmd
}

// readPassword prompts on a terminal, or reads one line from a pipe.
func readPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	var line string
	if _, err := fmt.Fscanln(cmd.InOrStdin(), &line); err != nil {
		return "", fmt.Errorf("read password from stdin: %w", err)
	}
	return line, nil
}
