package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/browser"
	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/settings"
	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/syncer"
)

func newFoldersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "folders",
		Short: "List the browser's bookmark folders; selected ones are marked with *",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			folders, err := a.folders(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, f := range folders {
				mark := " "
				if a.selection.Contains(f.ID) {
					mark = "*"
				}
				fmt.Fprintf(out, "%s %s%s [%s]\n", mark, strings.Repeat("  ", f.Depth-1), f.Title, f.ID)
			}
			return nil
		},
	}
}

func newSelectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Manage the folders that are synced",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <folder-id>...",
		Short: "Add folders to the synced set",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folders, err := a.folders(cmd)
			if err != nil {
				return err
			}
			for _, id := range args {
				f, ok := findFolder(folders, id)
				if !ok {
					return errors.Wrapf(browser.ErrFolderNotFound, "id %s", id)
				}
				changed, err := a.selection.Add(settings.Folder{ID: f.ID, Title: f.Title})
				if err != nil {
					return err
				}
				if changed {
					fmt.Fprintf(cmd.OutOrStdout(), "selected %s [%s]\n", f.Title, f.ID)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "already selected [%s]\n", f.ID)
				}
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <folder-id>...",
		Short: "Remove folders from the synced set",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range args {
				changed, err := a.selection.Remove(id)
				if err != nil {
					return err
				}
				if changed {
					fmt.Fprintf(cmd.OutOrStdout(), "unselected [%s]\n", id)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "not selected [%s]\n", id)
				}
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show the synced set",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, f := range a.selection.List() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s [%s]\n", f.Title, f.ID)
			}
		},
	})

	return cmd
}

func newServerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Manage the server endpoint",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set <url>",
		Short: "Set the server base url, e.g. https://bookmarks.example.com",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.SetServerURL(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "server set to %s\n", args[0])
			return nil
		},
	})
	return cmd
}

func newTokenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the API token sent to the server",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set <token>",
		Short: "Set the API token; an empty string clears it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.store.SetAPIToken(args[0])
		},
	})
	return cmd
}

func newSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Send the bookmarks of the selected folders to the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			unlock, err := lockFile(a.store.Path() + ".lock")
			if err != nil {
				return err
			}
			defer unlock()

			source, err := a.source()
			if err != nil {
				return err
			}
			tx := syncer.NewTransmitter(source, a.selection, a.store, a.v.GetDuration(keyTimeout), a.logger)

			res, err := tx.RunSync(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, f := range res.MissingFolders {
				fmt.Fprintf(out, "warning: folder %s [%s] no longer exists\n", f.Title, f.ID)
			}
			fmt.Fprintf(out, "sent %d bookmarks\n", res.Records)
			if res.Report != nil {
				fmt.Fprintf(out, "server: %d merged, %d failed\n", res.Report.Succeeded, res.Report.Failed)
				for _, r := range res.Report.Results {
					if r.Error != "" {
						fmt.Fprintf(out, "  %s: %s\n", r.URL, r.Error)
					}
				}
			}
			fmt.Fprintf(out, "last sync %s\n", res.LastSync.Local().Format(time.RFC1123))
			return nil
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the server, the synced set and the last sync",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()

			server := a.store.ServerURL()
			if server == "" {
				server = "(not set)"
			}
			fmt.Fprintf(out, "server:    %s\n", server)

			token := "(not set)"
			if a.store.APIToken() != "" {
				token = "set"
			}
			fmt.Fprintf(out, "token:     %s\n", token)

			last := "never"
			if t := a.store.LastSync(); !t.IsZero() {
				last = t.Local().Format(time.RFC1123)
			}
			fmt.Fprintf(out, "last sync: %s\n", last)

			folders := a.selection.List()
			fmt.Fprintf(out, "folders:   %d\n", len(folders))
			for _, f := range folders {
				fmt.Fprintf(out, "  %s [%s]\n", f.Title, f.ID)
			}
		},
	}
}

func newHashTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-token <token>",
		Short: "Print the bcrypt hash to configure as the server's BOOKMARKER_API_TOKEN_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	}
}

func (a *app) folders(cmd *cobra.Command) ([]browser.Folder, error) {
	source, err := a.source()
	if err != nil {
		return nil, err
	}
	root, err := source.Tree(cmd.Context())
	if err != nil {
		return nil, err
	}
	return browser.ListFolders(root), nil
}

func findFolder(folders []browser.Folder, id string) (browser.Folder, bool) {
	for _, f := range folders {
		if f.ID == id {
			return f, true
		}
	}
	return browser.Folder{}, false
}
