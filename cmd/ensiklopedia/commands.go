package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/ensiklopedia/internal/answer"
	"github.com/kalambet/ensiklopedia/internal/config"
	"github.com/kalambet/ensiklopedia/internal/history"
	"github.com/kalambet/ensiklopedia/internal/i18n"
	"github.com/kalambet/ensiklopedia/internal/prompts"
)

// --- ask ---

type searchResult struct {
	Answer       *answer.MultiLanguage `json:"answer"`
	Query        string                `json:"query"`
	Timestamp    int64                 `json:"timestamp"`
	HistorySaved bool                  `json:"history_saved"`
}

var askCmd = &cobra.Command{
	Use:   "ask <query>",
	Short: "Ask the encyclopedia a question",
	Long: `Ask the encyclopedia a question. The answer is generated in Indonesian,
Arabic and English; the one matching --lang (or the saved language
preference) is printed.

Examples:
  ensiklopedia ask "Baitul Hikmah"
  ensiklopedia ask --lang en "Battle of Badr"
  ensiklopedia ask --json "Dinasti Umayyah" > umayyah.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runAsk(cmd.Context(), client, query, asJSON)
	},
}

func runAsk(ctx context.Context, client *apiClient, query string, asJSON bool) error {
	resp, err := client.post(ctx, "/search", map[string]string{"query": query})
	if err != nil {
		return err
	}
	var result searchResult
	if err := decodeJSON(resp, &result); err != nil {
		return err
	}

	if asJSON {
		return printJSON(result)
	}

	lang := resolveLang(ctx, client)
	printAnswer(stdout, query, result.Answer.Get(lang))
	if !result.HistorySaved {
		printWarning("Not saved to history (log in to keep your searches)")
	}
	return nil
}

// resolveLang picks the display language: --lang, then the saved
// preference, then the default.
func resolveLang(ctx context.Context, client *apiClient) i18n.Lang {
	if langFlag != "" {
		if l, err := i18n.ParseLang(langFlag); err == nil {
			return l
		}
	}
	resp, err := client.get(ctx, "/preferences")
	if err != nil {
		return i18n.Default
	}
	var p struct {
		Language string `json:"language"`
	}
	if err := decodeJSON(resp, &p); err != nil {
		return i18n.Default
	}
	if l, err := i18n.ParseLang(p.Language); err == nil {
		return l
	}
	return i18n.Default
}

func printAnswer(w io.Writer, query string, s answer.Structured) {
	fmt.Fprintln(w, colorize(colorBold, query))
	if s.AccessDate != "" {
		fmt.Fprintln(w, colorize(colorDim, s.AccessDate))
	}
	fmt.Fprintf(w, "\n%s\n", strings.TrimSpace(s.Text))

	if len(s.KeyTerms) > 0 {
		fmt.Fprintf(w, "\n%s\n", colorize(colorBold, "Key terms"))
		for _, kt := range s.KeyTerms {
			fmt.Fprintf(w, "  %s: %s\n", colorize(colorCyan, kt.Term), kt.Definition)
		}
	}
	if len(s.Timeline) > 0 {
		fmt.Fprintf(w, "\n%s\n", colorize(colorBold, "Timeline"))
		for _, ev := range s.Timeline {
			fmt.Fprintf(w, "  %-8s %s\n", ev.Year.String(), ev.Title)
		}
	}
	if len(s.Figures) > 0 {
		fmt.Fprintf(w, "\n%s\n", colorize(colorBold, "Figures"))
		for _, f := range s.Figures {
			fmt.Fprintf(w, "  %s (%s)\n", f.Name, f.Lifespan)
		}
	}
	if s.Map != nil {
		fmt.Fprintf(w, "\n%s %.4f, %.4f (%d markers)\n", colorize(colorBold, "Map:"), s.Map.Center[0], s.Map.Center[1], len(s.Map.Markers))
	}
	if s.Chart != nil {
		fmt.Fprintf(w, "%s %s %q\n", colorize(colorBold, "Chart:"), s.Chart.Type, s.Chart.Title)
	}
	if len(s.Sources) > 0 {
		fmt.Fprintf(w, "\n%s\n", colorize(colorBold, "Sources"))
		for i, src := range s.Sources {
			fmt.Fprintf(w, "  [%d] %s\n      %s\n", i+1, src.Title, colorize(colorDim, src.URI))
		}
	}
}

func init() {
	askCmd.Flags().Bool("json", false, "print the full answer in every language as JSON")
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse and manage search history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List past searches, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), fmt.Sprintf("/history?limit=%d", limit))
		if err != nil {
			return err
		}
		var items []history.ListItem
		if err := decodeJSON(resp, &items); err != nil {
			return err
		}
		printHistoryList(items)
		return nil
	},
}

var historyRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List searches made since the server started",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/history/recent")
		if err != nil {
			return err
		}
		var items []history.ListItem
		if err := decodeJSON(resp, &items); err != nil {
			return err
		}
		printHistoryList(items)
		return nil
	},
}

func printHistoryList(items []history.ListItem) {
	if len(items) == 0 {
		fmt.Fprintln(stdout, "No history yet.")
		return
	}
	for _, li := range items {
		fmt.Fprintf(stdout, "%s  %s  %s\n",
			colorize(colorCyan, strconv.FormatInt(li.Timestamp, 10)),
			formatTimestamp(li.Timestamp),
			truncate(li.Query, 80),
		)
	}
}

var historyShowCmd = &cobra.Command{
	Use:   "show <timestamp>",
	Short: "Show a past answer, fetching it again when not cached",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ts, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q", args[0])
		}
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), fmt.Sprintf("/history/%d", ts))
		if err != nil {
			return err
		}
		var view struct {
			Item      history.Item `json:"item"`
			FromCache bool         `json:"from_cache"`
		}
		if err := decodeJSON(resp, &view); err != nil {
			return err
		}

		if asJSON {
			return printJSON(view.Item)
		}
		if !view.FromCache {
			printStep("Not cached locally; answer was generated again")
		}
		printAnswer(stdout, view.Item.Query, view.Item.Response.Get(resolveLang(cmd.Context(), client)))
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <timestamp>",
	Short: "Delete one history entry",
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
		resp, err := client.delete(cmd.Context(), fmt.Sprintf("/history/%d", ts))
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

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all history entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete ALL history. Use --confirm to proceed.")
			return nil
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.delete(cmd.Context(), "/history")
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, nil); err != nil {
			return err
		}
		printSuccess("History cleared")
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export [timestamp...]",
	Short: "Export cached answers as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		var req struct {
			Timestamps []int64 `json:"timestamps,omitempty"`
		}
		for _, a := range args {
			ts, err := strconv.ParseInt(a, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid timestamp %q", a)
			}
			req.Timestamps = append(req.Timestamps, ts)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/history/export", req)
		if err != nil {
			return err
		}
		var exp struct {
			history.Export
			Message string `json:"message"`
		}
		if err := decodeJSON(resp, &exp); err != nil {
			return err
		}
		if exp.Message != "" {
			printWarning("%s", exp.Message)
		}
		if len(exp.Items) == 0 {
			return nil
		}
		return writeExport(output, exp.Export)
	},
}

func writeExport(output string, exp history.Export) error {
	var w io.Writer = stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(exp); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	if output != "" {
		printSuccess("Exported %d entries to %s", len(exp.Items), output)
	}
	return nil
}

func init() {
	historyListCmd.Flags().Int("limit", 20, "maximum number of entries to list")
	historyShowCmd.Flags().Bool("json", false, "print the entry in every language as JSON")
	historyClearCmd.Flags().Bool("confirm", false, "confirm deleting all history")
	historyExportCmd.Flags().String("output", "", "output file path (default: stdout)")
	historyCmd.AddCommand(historyListCmd, historyRecentCmd, historyShowCmd, historyDeleteCmd, historyClearCmd, historyExportCmd)
}

// --- prompts ---

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Show or override the per-language system prompts",
}

var promptsShowCmd = &cobra.Command{
	Use:   "show [lang]",
	Short: "Show the active system prompts",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/prompts")
		if err != nil {
			return err
		}
		var p struct {
			Current  prompts.Set `json:"current"`
			Defaults prompts.Set `json:"defaults"`
		}
		if err := decodeJSON(resp, &p); err != nil {
			return err
		}

		langs := i18n.All
		if len(args) == 1 {
			l, err := i18n.ParseLang(args[0])
			if err != nil {
				return err
			}
			langs = []i18n.Lang{l}
		}
		for _, l := range langs {
			label := strings.ToUpper(string(l))
			if p.Current.Get(l) != p.Defaults.Get(l) {
				label += " (custom)"
			}
			fmt.Fprintf(stdout, "%s\n%s\n\n", colorize(colorBold, label), strings.TrimSpace(p.Current.Get(l)))
		}
		return nil
	},
}

var promptsSetCmd = &cobra.Command{
	Use:   "set <lang> <file>",
	Short: "Override one language's system prompt from a file (- for stdin)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang, err := i18n.ParseLang(args[0])
		if err != nil {
			return err
		}
		var data []byte
		if args[1] == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(args[1])
		}
		if err != nil {
			return fmt.Errorf("reading prompt: %w", err)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/prompts")
		if err != nil {
			return err
		}
		var p struct {
			Current prompts.Set `json:"current"`
		}
		if err := decodeJSON(resp, &p); err != nil {
			return err
		}

		set := p.Current
		switch lang {
		case i18n.ID:
			set.ID = string(data)
		case i18n.AR:
			set.AR = string(data)
		case i18n.EN:
			set.EN = string(data)
		}
		resp, err = client.put(cmd.Context(), "/prompts", set)
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, nil); err != nil {
			return err
		}
		printSuccess("Saved %s system prompt", lang)
		return nil
	},
}

var promptsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the built-in system prompts",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.delete(cmd.Context(), "/prompts")
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, nil); err != nil {
			return err
		}
		printSuccess("System prompts reset to defaults")
		return nil
	},
}

func init() {
	promptsCmd.AddCommand(promptsShowCmd, promptsSetCmd, promptsResetCmd)
}

// --- prefs ---

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or change interface preferences",
}

var prefsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show language and theme",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/preferences")
		if err != nil {
			return err
		}
		var p map[string]string
		if err := decodeJSON(resp, &p); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "  %s = %s\n", colorize(colorBold, "language"), p["language"])
		fmt.Fprintf(stdout, "  %s = %s\n", colorize(colorBold, "theme"), p["theme"])
		return nil
	},
}

var prefsSetCmd = &cobra.Command{
	Use:       "set <language|theme> <value>",
	Short:     "Change a preference",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"language", "theme"},
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if key != "language" && key != "theme" {
			return fmt.Errorf("unknown preference %q (want language or theme)", key)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.put(cmd.Context(), "/preferences", map[string]string{key: value})
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, nil); err != nil {
			return err
		}
		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	prefsCmd.AddCommand(prefsShowCmd, prefsSetCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(stdout, "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := config.SetKey(key, value); err != nil {
			if errors.Is(err, config.ErrUnknownKey) {
				printStep("Valid keys: %s", strings.Join(config.ValidKeys(), ", "))
			}
			return err
		}
		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a stored value so the default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			if errors.Is(err, config.ErrUnknownKey) {
				printStep("Valid keys: %s", strings.Join(config.ValidKeys(), ", "))
			}
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configUnsetCmd)
}
