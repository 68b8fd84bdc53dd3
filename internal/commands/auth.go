package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"charm.land/huh/v2"
	"github.com/port-experimental/dispatch-cli/internal/authapi"
	"github.com/port-experimental/dispatch-cli/internal/config"
	"github.com/port-experimental/dispatch-cli/internal/output"
	"github.com/port-experimental/dispatch-cli/internal/session"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// RegisterAuth registers the login, logout, status and refresh commands.
func RegisterAuth(rootCmd *cobra.Command) {
	rootCmd.AddCommand(registerLogin())
	rootCmd.AddCommand(registerLogout())
	rootCmd.AddCommand(registerStatus())
	rootCmd.AddCommand(registerRefresh())
}

// registerLogin registers the login command.
func registerLogin() *cobra.Command {
	var username, role string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and start a session",
		Long: `Log in with your username and password and start a session.

The session is renewed automatically while commands run. Without --username
or --password-stdin you are prompted interactively.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openEnv(cmd, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			creds := authapi.Credentials{
				Username: firstNonEmpty(username, rt.profile.Username),
				Role:     firstNonEmpty(role, rt.profile.Role),
			}

			if passwordStdin {
				creds.Password, err = readPassword(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}

			if creds.Username == "" || creds.Password == "" {
				if !stdinIsTerminal() {
					return fmt.Errorf("missing credentials: pass --username and --password-stdin when not running in a terminal")
				}
				if err := promptCredentials(&creds); err != nil {
					return err
				}
			}

			result, err := rt.auth.Login(cmd.Context(), creds)
			if err != nil {
				return err
			}

			if err := rt.session.Login(cmd.Context(), result.Grant); err != nil {
				return fmt.Errorf("failed to start session: %w", err)
			}

			identity := config.Identity{
				Profile:     rt.profileName,
				Username:    creds.Username,
				Role:        firstNonEmpty(result.Role, creds.Role),
				DisplayName: result.DisplayName,
			}
			if err := config.SaveIdentity(rt.identityPath, identity); err != nil {
				rt.logger.Warn("failed to save identity", "error", err)
			}

			name := firstNonEmpty(identity.DisplayName, identity.Username)
			output.SuccessPrintln(fmt.Sprintf("✓ Logged in as %s", name))
			output.VerbosePrintf("Session expires at %s\n", rt.session.Pair().ExpiresAt.Local().Format(time.RFC1123))
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username (overrides profile)")
	cmd.Flags().StringVar(&role, "role", "", "Role to log in as (overrides profile)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")

	return cmd
}

// promptCredentials asks for whatever is missing from creds.
func promptCredentials(creds *authapi.Credentials) error {
	var fields []huh.Field
	if creds.Username == "" {
		fields = append(fields, huh.NewInput().
			Title("Username").
			Value(&creds.Username).
			Validate(requireValue("username")))
	}
	if creds.Password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&creds.Password).
			Validate(requireValue("password")))
	}

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return fmt.Errorf("login cancelled")
		}
		return fmt.Errorf("failed to read credentials: %w", err)
	}
	return nil
}

func requireValue(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

// readPassword reads one line from r.
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password from stdin: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("no password on stdin")
	}
	return password, nil
}

// registerLogout registers the logout command.
func registerLogout() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newEnv(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			wasLive := rt.requireSession() == nil

			if err := rt.session.Logout(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear stored session: %w", err)
			}
			if err := config.ClearIdentity(rt.identityPath); err != nil {
				rt.logger.Warn("failed to clear identity", "error", err)
			}

			if !wasLive {
				output.Println("Not logged in.")
				return nil
			}
			output.SuccessPrintln("✓ Logged out")
			return nil
		},
	}

	return cmd
}

// statusReport is the JSON shape of `dispatch status --json`.
type statusReport struct {
	State            string                 `json:"state"`
	Profile          string                 `json:"profile,omitempty"`
	Username         string                 `json:"username,omitempty"`
	Role             string                 `json:"role,omitempty"`
	DisplayName      string                 `json:"displayName,omitempty"`
	ExpiresAt        *time.Time             `json:"expiresAt,omitempty"`
	ExpiresIn        string                 `json:"expiresIn,omitempty"`
	NeedsRenewal     bool                   `json:"needsRenewal"`
	RenewalScheduled bool                   `json:"renewalScheduled"`
	Remote           map[string]interface{} `json:"remote,omitempty"`
}

// registerStatus registers the status command.
func registerStatus() *cobra.Command {
	var asJSON, remote bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newEnv(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			report := statusReport{
				State:            rt.session.State().String(),
				Profile:          rt.profileName,
				NeedsRenewal:     rt.session.IsExpiredOrNear(),
				RenewalScheduled: rt.session.RenewalScheduled(),
			}

			if id, err := config.LoadIdentity(rt.identityPath); err != nil {
				rt.logger.Warn("failed to read identity", "error", err)
			} else if id != nil {
				report.Username = id.Username
				report.Role = id.Role
				report.DisplayName = id.DisplayName
			}

			if pair := rt.session.Pair(); !pair.IsZero() {
				expiresAt := pair.ExpiresAt
				report.ExpiresAt = &expiresAt
				report.ExpiresIn = time.Until(expiresAt).Truncate(time.Second).String()
			}

			if remote && rt.requireSession() == nil {
				report.Remote, err = fetchRemoteStatus(cmd.Context(), rt)
				if err != nil {
					return err
				}
			}

			if asJSON {
				return output.PrintJSON(report)
			}

			fields := []output.Field{
				{Label: "State", Value: stateLabel(rt.session.State())},
				{Label: "Profile", Value: firstNonEmpty(report.Profile, "-")},
			}
			if report.Username != "" {
				fields = append(fields, output.Field{Label: "User", Value: firstNonEmpty(report.DisplayName, report.Username)})
			}
			if report.Role != "" {
				fields = append(fields, output.Field{Label: "Role", Value: report.Role})
			}
			if report.ExpiresAt != nil {
				fields = append(fields,
					output.Field{Label: "Expires", Value: fmt.Sprintf("%s (in %s)", report.ExpiresAt.Local().Format(time.RFC1123), report.ExpiresIn)},
					output.Field{Label: "Auto-renew", Value: yesNo(report.RenewalScheduled)},
				)
			}
			for _, key := range []string{"orders", "inventory"} {
				if v, ok := report.Remote[key]; ok {
					fields = append(fields, output.Field{Label: strings.ToUpper(key[:1]) + key[1:], Value: fmt.Sprint(v)})
				}
			}

			output.Printf("%s", output.Panel("Dispatch session", fields))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print status as JSON")
	cmd.Flags().BoolVar(&remote, "remote", false, "Also fetch profile and workload from the API")

	return cmd
}

// fetchRemoteStatus loads the server-side profile and workload counts
// concurrently.
func fetchRemoteStatus(ctx context.Context, rt *env) (map[string]interface{}, error) {
	var (
		profile   map[string]interface{}
		orders    int
		inventory int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := rt.client.GetProfile(gctx)
		if err != nil {
			return fmt.Errorf("failed to fetch profile: %w", err)
		}
		profile = p
		return nil
	})
	g.Go(func() error {
		list, err := rt.client.ListOrders(gctx, map[string]string{"status": "open"})
		if err != nil {
			return fmt.Errorf("failed to fetch orders: %w", err)
		}
		orders = len(list)
		return nil
	})
	g.Go(func() error {
		list, err := rt.client.ListInventory(gctx, nil)
		if err != nil {
			return fmt.Errorf("failed to fetch inventory: %w", err)
		}
		inventory = len(list)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"profile":   profile,
		"orders":    orders,
		"inventory": inventory,
	}, nil
}

// registerRefresh registers the refresh command.
func registerRefresh() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Renew the access token now",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newEnv(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.requireSession(); err != nil {
				return err
			}

			if _, err := rt.session.Refresh(cmd.Context()); err != nil {
				if errors.Is(err, session.ErrSessionEnded) {
					return err
				}
				return fmt.Errorf("failed to renew session: %w", err)
			}

			output.SuccessPrintln("✓ Session renewed")
			output.Printf("Expires at %s\n", rt.session.Pair().ExpiresAt.Local().Format(time.RFC1123))
			return nil
		},
	}

	return cmd
}

func stateLabel(s session.State) string {
	switch s {
	case session.Active:
		return output.Success(s.String())
	case session.Refreshing:
		return output.Warning(s.String())
	default:
		return output.Dim(s.String())
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// stdinIsTerminal reports whether prompts can be shown.
func stdinIsTerminal() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
