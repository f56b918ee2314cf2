package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kalambet/ensiklopedia/internal/directory"
	"github.com/kalambet/ensiklopedia/internal/i18n"
)

// remoteDirectory saves through the local server, which forwards to the
// backend.
type remoteDirectory struct {
	client *apiClient
}

func (r remoteDirectory) SaveDirectory(ctx context.Context, d directory.Data) error {
	resp, err := r.client.put(ctx, "/directory", d)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil)
}

func fetchDirectory(ctx context.Context, client *apiClient) (directory.Data, error) {
	var d directory.Data
	resp, err := client.get(ctx, "/directory")
	if err != nil {
		return d, err
	}
	err = decodeJSON(resp, &d)
	return d, err
}

// editDirectory loads the directory, applies fn to an edit buffer and
// saves the result when fn changed anything.
func editDirectory(ctx context.Context, client *apiClient, fn func(*directory.Editor) error) error {
	d, err := fetchDirectory(ctx, client)
	if err != nil {
		return err
	}
	ed := directory.NewEditor(d)
	if err := fn(ed); err != nil {
		return err
	}
	if !ed.Dirty() {
		return nil
	}
	return ed.Save(ctx, remoteDirectory{client: client})
}

// parseIndex converts a 1-based CLI index to a 0-based one.
func parseIndex(name, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive number, got %q", name, s)
	}
	return n - 1, nil
}

var directoryCmd = &cobra.Command{
	Use:   "directory",
	Short: "Show or edit the topic directory",
}

var directoryShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the topic directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		d, err := fetchDirectory(cmd.Context(), client)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(d)
		}

		lang := resolveLang(cmd.Context(), client)
		for ci, c := range d.Lang(lang) {
			fmt.Fprintf(stdout, "%s %s\n", colorize(colorCyan, fmt.Sprintf("%2d.", ci+1)), colorize(colorBold, c.Category))
			for ii, item := range c.Items {
				fmt.Fprintf(stdout, "    %d.%d  %s\n", ci+1, ii+1, item)
			}
		}
		return nil
	},
}

var directoryEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the directory JSON in $EDITOR (admin only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "vi"
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		d, err := fetchDirectory(cmd.Context(), client)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return err
		}

		tmpFile, err := os.CreateTemp("", "ensiklopedia-directory-*.json")
		if err != nil {
			return fmt.Errorf("creating temp file: %w", err)
		}
		tmpPath := tmpFile.Name()
		defer os.Remove(tmpPath)

		if _, err := tmpFile.Write(data); err != nil {
			tmpFile.Close()
			return err
		}
		tmpFile.Close()

		editorCmd := exec.Command(editor, tmpPath)
		editorCmd.Stdin = os.Stdin
		editorCmd.Stdout = os.Stdout
		editorCmd.Stderr = os.Stderr
		if err := editorCmd.Run(); err != nil {
			return fmt.Errorf("editor exited with error: %w", err)
		}

		edited, err := os.ReadFile(tmpPath)
		if err != nil {
			return err
		}
		var updated directory.Data
		if err := json.Unmarshal(edited, &updated); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
		if err := updated.Validate(); err != nil {
			return err
		}

		if err := directory.NewEditor(updated).Save(cmd.Context(), remoteDirectory{client: client}); err != nil {
			return err
		}
		printSuccess("Directory updated")
		return nil
	},
}

var directoryAddCategoryCmd = &cobra.Command{
	Use:   "add-category <indonesian name>",
	Short: "Append a category; fill in the other languages with rename-category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if err := editDirectory(cmd.Context(), client, func(ed *directory.Editor) error {
			return ed.AddCategory(args[0])
		}); err != nil {
			return err
		}
		printSuccess("Added category %q", args[0])
		return nil
	},
}

var directoryRenameCategoryCmd = &cobra.Command{
	Use:   "rename-category <n> <lang> <name>",
	Short: "Rename category n in one language",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ci, err := parseIndex("category", args[0])
		if err != nil {
			return err
		}
		lang, err := i18n.ParseLang(args[1])
		if err != nil {
			return err
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if err := editDirectory(cmd.Context(), client, func(ed *directory.Editor) error {
			return ed.RenameCategory(ci, lang, args[2])
		}); err != nil {
			return err
		}
		printSuccess("Renamed category %d (%s)", ci+1, lang)
		return nil
	},
}

var directoryRemoveCategoryCmd = &cobra.Command{
	Use:   "remove-category <n>",
	Short: "Remove category n in every language",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ci, err := parseIndex("category", args[0])
		if err != nil {
			return err
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if err := editDirectory(cmd.Context(), client, func(ed *directory.Editor) error {
			return ed.RemoveCategory(ci)
		}); err != nil {
			return err
		}
		printSuccess("Removed category %d", ci+1)
		return nil
	},
}

var directoryAddItemCmd = &cobra.Command{
	Use:   "add-item <n> <indonesian text>",
	Short: "Append an item to category n",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ci, err := parseIndex("category", args[0])
		if err != nil {
			return err
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if err := editDirectory(cmd.Context(), client, func(ed *directory.Editor) error {
			if err := ed.AddItem(ci); err != nil {
				return err
			}
			last := len(ed.Data().ID[ci].Items) - 1
			return ed.RenameItem(ci, last, i18n.ID, args[1])
		}); err != nil {
			return err
		}
		printSuccess("Added item to category %d", ci+1)
		return nil
	},
}

var directoryRenameItemCmd = &cobra.Command{
	Use:   "rename-item <n> <m> <lang> <text>",
	Short: "Set item m of category n in one language",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		ci, err := parseIndex("category", args[0])
		if err != nil {
			return err
		}
		ii, err := parseIndex("item", args[1])
		if err != nil {
			return err
		}
		lang, err := i18n.ParseLang(args[2])
		if err != nil {
			return err
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if err := editDirectory(cmd.Context(), client, func(ed *directory.Editor) error {
			return ed.RenameItem(ci, ii, lang, args[3])
		}); err != nil {
			return err
		}
		printSuccess("Updated item %d.%d (%s)", ci+1, ii+1, lang)
		return nil
	},
}

var directoryRemoveItemCmd = &cobra.Command{
	Use:   "remove-item <n> <m>",
	Short: "Remove item m of category n in every language",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ci, err := parseIndex("category", args[0])
		if err != nil {
			return err
		}
		ii, err := parseIndex("item", args[1])
		if err != nil {
			return err
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if err := editDirectory(cmd.Context(), client, func(ed *directory.Editor) error {
			return ed.RemoveItem(ci, ii)
		}); err != nil {
			return err
		}
		printSuccess("Removed item %d.%d", ci+1, ii+1)
		return nil
	},
}

func init() {
	directoryShowCmd.Flags().Bool("json", false, "print every language as JSON")
	directoryCmd.AddCommand(
		directoryShowCmd,
		directoryEditCmd,
		directoryAddCategoryCmd,
		directoryRenameCategoryCmd,
		directoryRemoveCategoryCmd,
		directoryAddItemCmd,
		directoryRenameItemCmd,
		directoryRemoveItemCmd,
	)
}
