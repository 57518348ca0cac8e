// Command propsearch runs the property search pipeline from the terminal.
//
// Usage:
//
//	propsearch query "3 bedroom house in Austin under 500k with a pool"
//	propsearch merge
//	propsearch save 12 --session alice
//	propsearch saved --session alice
//	propsearch history --limit 5
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"propchat/internal/app"
	"propchat/internal/config"
	"propchat/internal/model"
	"propchat/internal/observability"
)

func main() {
	if err := run(context.Background(), os.Stdout, os.Stderr, os.Args[1:]...); err != nil {
		os.Exit(1)
	}
}

type cliState struct {
	app *app.App
}

// close flushes pending search logs even when a command failed
func (s *cliState) close() error {
	if s.app == nil {
		return nil
	}
	err := s.app.Close()
	s.app = nil
	return err
}

func run(ctx context.Context, stdout, stderr io.Writer, args ...string) error {
	state := &cliState{}
	root := newRootCmd(state)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if closeErr := state.close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

func newRootCmd(state *cliState) *cobra.Command {
	root := &cobra.Command{
		Use:          "propsearch",
		Short:        "Natural-language property search",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log.Logger = observability.NewStderrLogger(cfg.Logging.Env, cfg.Logging.Level)

			state.app, err = app.New(cmd.Context(), cfg)
			return err
		},
	}

	root.AddCommand(
		newQueryCmd(state),
		newMergeCmd(state),
		newSaveCmd(state),
		newUnsaveCmd(state),
		newSavedCmd(state),
		newHistoryCmd(state),
	)
	return root
}

func newQueryCmd(state *cliState) *cobra.Command {
	var replyOnly bool
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Search the catalog with a natural-language request",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := state.app.Search.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if replyOnly {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), result.Reply)
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().BoolVar(&replyOnly, "reply-only", false, "print only the conversational reply")
	return cmd
}

func newMergeCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Print the merged property catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := state.app.Search.Catalog(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), records)
		},
	}
}

func newSaveCmd(state *cliState) *cobra.Command {
	var session string
	cmd := &cobra.Command{
		Use:   "save <propertyId>",
		Short: "Bookmark a property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := state.app.Search.SaveProperty(cmd.Context(), args[0], session)
			if err != nil {
				return err
			}
			msg := "Property saved successfully"
			if !created {
				msg = "Property already saved"
			}
			return writeJSON(cmd.OutOrStdout(), model.SavePropertyResponse{Message: msg, Saved: true})
		},
	}
	cmd.Flags().StringVar(&session, "session", model.DefaultSessionID, "bookmark session id")
	return cmd
}

func newUnsaveCmd(state *cliState) *cobra.Command {
	var session string
	cmd := &cobra.Command{
		Use:   "unsave <propertyId>",
		Short: "Remove a bookmark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := state.app.Search.RemoveProperty(cmd.Context(), args[0], session)
			if err != nil && !errors.Is(err, model.ErrBookmarkNotFound) {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), model.SavePropertyResponse{Message: "Property removed from saved", Saved: false})
		},
	}
	cmd.Flags().StringVar(&session, "session", model.DefaultSessionID, "bookmark session id")
	return cmd
}

func newSavedCmd(state *cliState) *cobra.Command {
	var session string
	cmd := &cobra.Command{
		Use:   "saved",
		Short: "List bookmarked properties with full details",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			properties, err := state.app.Search.SavedProperties(cmd.Context(), session)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), model.SavedPropertiesResponse{Properties: properties})
		},
	}
	cmd.Flags().StringVar(&session, "session", model.DefaultSessionID, "bookmark session id")
	return cmd
}

func newHistoryCmd(state *cliState) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently logged searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := state.app.Search.RecentSearches(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of searches to show")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
