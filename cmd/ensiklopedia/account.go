package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kalambet/ensiklopedia/internal/backend"
)

// stdin is swapped out by tests.
var stdin io.Reader = os.Stdin

// readSecret returns flagVal, then $envVar, then input from stdin: typed
// without echo on a terminal, or the first line of piped input.
func readSecret(prompt, flagVal, envVar string) (string, error) {
	if flagVal != "" {
		return flagVal, nil
	}
	if v := os.Getenv(envVar); v != "" {
		return v, nil
	}
	fmt.Fprint(os.Stderr, prompt+": ")
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", strings.ToLower(prompt), err)
		}
		return string(secret), nil
	}
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(prompt), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// --- login / logout / whoami / register ---

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the backend to sync history",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		pw, _ := cmd.Flags().GetString("password")
		if email == "" {
			return fmt.Errorf("--email is required")
		}
		pw, err := readSecret("Password", pw, "ENSIKLOPEDIA_PASSWORD")
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/auth/login", map[string]string{"email": email, "password": pw})
		if err != nil {
			return err
		}
		var u backend.User
		if err := decodeJSON(resp, &u); err != nil {
			return err
		}
		printSuccess("Logged in as %s (%s)", u.Username, u.Role)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and log in",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		email, _ := cmd.Flags().GetString("email")
		pw, _ := cmd.Flags().GetString("password")
		if username == "" || email == "" {
			return fmt.Errorf("--username and --email are required")
		}
		pw, err := readSecret("Password", pw, "ENSIKLOPEDIA_PASSWORD")
		if err != nil {
			return err
		}
		confirm, _ := cmd.Flags().GetString("confirm")
		if confirm == "" {
			confirm = pw
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/auth/register", map[string]string{
			"username":              username,
			"email":                 email,
			"password":              pw,
			"password_confirmation": confirm,
		})
		if err != nil {
			return err
		}
		var u backend.User
		if err := decodeJSON(resp, &u); err != nil {
			return err
		}
		printSuccess("Registered and logged in as %s", u.Username)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the backend session",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/auth/logout", nil)
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, nil); err != nil {
			return err
		}
		printSuccess("Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/auth/me")
		if err != nil {
			return err
		}
		var u backend.User
		if err := decodeJSON(resp, &u); err != nil {
			var ae *apiError
			if errors.As(err, &ae) && ae.Code == http.StatusUnauthorized {
				printStatus("User", "not logged in")
				return nil
			}
			return err
		}
		printStatus("User", "%s", u.Username)
		printStatus("Email", "%s", u.Email)
		printStatus("Role", "%s", u.Role)
		return nil
	},
}

func init() {
	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("password", "", "account password (default: $ENSIKLOPEDIA_PASSWORD or prompt)")
	registerCmd.Flags().String("username", "", "display name")
	registerCmd.Flags().String("email", "", "account email")
	registerCmd.Flags().String("password", "", "account password (default: $ENSIKLOPEDIA_PASSWORD or prompt)")
	registerCmd.Flags().String("confirm", "", "password confirmation (default: same as password)")
}

// --- users (admin) ---

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage accounts (admin only)",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts with their query counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, _ := cmd.Flags().GetString("query")
		role, _ := cmd.Flags().GetString("role")
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		if format != "table" && format != "csv" {
			return fmt.Errorf("--format must be table or csv, got %q", format)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		v := url.Values{}
		if q != "" {
			v.Set("q", q)
		}
		if role != "" {
			v.Set("role", role)
		}
		if format == "csv" {
			v.Set("format", "csv")
		}
		path := "/admin/users"
		if len(v) > 0 {
			path += "?" + v.Encode()
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		if format == "csv" {
			return writeUsersCSV(resp, output)
		}
		var users []backend.UserWithStats
		if err := decodeJSON(resp, &users); err != nil {
			return err
		}
		if len(users) == 0 {
			fmt.Fprintln(stdout, "No users found.")
			return nil
		}
		for _, u := range users {
			fmt.Fprintf(stdout, "%s  %-20s %-30s %-6s %d queries\n",
				colorize(colorCyan, fmt.Sprintf("%6s", u.ID)), u.Username, u.Email, u.Role, u.QueryCount)
		}
		return nil
	},
}

// writeUsersCSV copies the server's CSV export to path, or to stdout when
// path is empty.
func writeUsersCSV(resp *http.Response, path string) error {
	if resp.StatusCode >= 400 {
		return decodeJSON(resp, nil)
	}
	defer resp.Body.Close()

	if path == "" {
		_, err := io.Copy(stdout, resp.Body)
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	printSuccess("Wrote %s", path)
	return nil
}

var usersStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the admin overview: totals, top topics, recent queries",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/admin/stats")
		if err != nil {
			return err
		}
		var st backend.DashboardStats
		if err := decodeJSON(resp, &st); err != nil {
			return err
		}
		if asJSON {
			return printJSON(st)
		}

		printStatus("Users", "%d", st.TotalUsers)
		printStatus("Queries", "%d", st.TotalQueries)
		printStatus("Today", "%d", st.QueriesToday)
		if len(st.TopTopics) > 0 {
			fmt.Fprintln(stdout, colorize(colorBold, "Top topics"))
			for i, tc := range st.TopTopics {
				fmt.Fprintf(stdout, "  %d. %s (%d)\n", i+1, truncate(tc.Query, 60), tc.Count)
			}
		}
		if len(st.RecentQueries) > 0 {
			fmt.Fprintln(stdout, colorize(colorBold, "Recent queries"))
			for _, it := range st.RecentQueries {
				fmt.Fprintf(stdout, "  %s  %-16s %s\n", formatTimestamp(it.Timestamp), it.Username, truncate(it.Query, 60))
			}
		}
		return nil
	},
}

var usersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		var nu backend.NewUser
		nu.Username, _ = cmd.Flags().GetString("username")
		nu.Email, _ = cmd.Flags().GetString("email")
		role, _ := cmd.Flags().GetString("role")
		nu.Role = backend.Role(role)
		pw, _ := cmd.Flags().GetString("password")
		pw, err := readSecret("Password", pw, "ENSIKLOPEDIA_PASSWORD")
		if err != nil {
			return err
		}
		nu.Password = pw

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/admin/users", nu)
		if err != nil {
			return err
		}
		var u backend.User
		if err := decodeJSON(resp, &u); err != nil {
			return err
		}
		printSuccess("Created %s (%s) with id %s", u.Username, u.Role, u.ID)
		return nil
	},
}

var usersUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change an account's name or role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var upd backend.UserUpdate
		upd.Username, _ = cmd.Flags().GetString("username")
		role, _ := cmd.Flags().GetString("role")
		upd.Role = backend.Role(role)
		if upd.Username == "" && upd.Role == "" {
			return fmt.Errorf("nothing to update: pass --username or --role")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.put(cmd.Context(), "/admin/users/"+url.PathEscape(args[0]), upd)
		if err != nil {
			return err
		}
		var u backend.User
		if err := decodeJSON(resp, &u); err != nil {
			return err
		}
		printSuccess("Updated %s", u.Username)
		return nil
	},
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.delete(cmd.Context(), "/admin/users/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, nil); err != nil {
			return err
		}
		printSuccess("Deleted user %s", args[0])
		return nil
	},
}

func init() {
	usersListCmd.Flags().String("query", "", "only users whose name or email contains this")
	usersListCmd.Flags().String("role", "", "only users with this role: User or Admin")
	usersListCmd.Flags().String("format", "table", "table or csv")
	usersListCmd.Flags().String("output", "", "write the csv to this file instead of stdout")
	usersStatsCmd.Flags().Bool("json", false, "print the overview as JSON")
	usersCreateCmd.Flags().String("username", "", "display name")
	usersCreateCmd.Flags().String("email", "", "account email")
	usersCreateCmd.Flags().String("password", "", "initial password (default: $ENSIKLOPEDIA_PASSWORD or prompt)")
	usersCreateCmd.Flags().String("role", string(backend.RoleUser), "User or Admin")
	usersUpdateCmd.Flags().String("username", "", "new display name")
	usersUpdateCmd.Flags().String("role", "", "new role: User or Admin")
	usersCmd.AddCommand(usersListCmd, usersStatsCmd, usersCreateCmd, usersUpdateCmd, usersDeleteCmd)
}

// --- admin-history ---

var adminHistoryCmd = &cobra.Command{
	Use:   "admin-history",
	Short: "Search every user's history (admin only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, _ := cmd.Flags().GetString("query")
		userID, _ := cmd.Flags().GetString("user")
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		items, err := fetchAdminHistory(cmd.Context(), client, q, userID, limit)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Fprintln(stdout, "No history found.")
			return nil
		}
		for _, it := range items {
			fmt.Fprintf(stdout, "%s  %s  %-16s %s\n",
				colorize(colorCyan, strconv.FormatInt(it.Timestamp, 10)),
				formatTimestamp(it.Timestamp),
				it.Username,
				truncate(it.Query, 60),
			)
		}
		return nil
	},
}

func fetchAdminHistory(ctx context.Context, client *apiClient, q, userID string, limit int) ([]backend.AdminHistoryItem, error) {
	v := url.Values{}
	if q != "" {
		v.Set("q", q)
	}
	if userID != "" {
		v.Set("user_id", userID)
	}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	path := "/admin/history"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}
	resp, err := client.get(ctx, path)
	if err != nil {
		return nil, err
	}
	var items []backend.AdminHistoryItem
	if err := decodeJSON(resp, &items); err != nil {
		return nil, err
	}
	return items, nil
}

var adminHistoryDeleteCmd = &cobra.Command{
	Use:   "delete <timestamp>",
	Short: "Delete any user's history entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ts, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q", args[0])
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.delete(cmd.Context(), fmt.Sprintf("/admin/history/%d", ts))
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, nil); err != nil {
			return err
		}
		printSuccess("Deleted history entry %d", ts)
		return nil
	},
}

func init() {
	adminHistoryCmd.Flags().String("query", "", "filter by query text")
	adminHistoryCmd.Flags().String("user", "", "filter by user id")
	adminHistoryCmd.Flags().Int("limit", 50, "maximum number of entries")
	adminHistoryCmd.AddCommand(adminHistoryDeleteCmd)
}
