// Package cmd implements the command-line interface for soundpulse.
package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/samber/lo"
	"github.com/soundpulse-cli/soundpulse/api"
	"github.com/soundpulse-cli/soundpulse/icon"
	"github.com/soundpulse-cli/soundpulse/key"
	"github.com/soundpulse-cli/soundpulse/style"
	"github.com/soundpulse-cli/soundpulse/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringP("filter", "f", "", "Restrict results to a category (songs, artists, albums, playlists)")
	searchCmd.Flags().IntP("limit", "l", 0, "Maximum number of results to display")
	searchCmd.Flags().BoolP("radio", "r", false, "Build a playback queue from tracks related to the selection")

	searchCmd.RegisterFlagCompletionFunc("filter", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"songs", "artists", "albums", "playlists"}, cobra.ShellCompDirectiveNoFileComp
	})
}

// searchCmd queries the backend catalog and plays the selected result.
var searchCmd = &cobra.Command{
	Use:     "search [query]",
	Short:   "Search the backend catalog and play a selected track",
	Args:    cobra.MinimumNArgs(1),
	Example: "  soundpulse search never gonna give you up",
	Run: func(cmd *cobra.Command, args []string) {
		checkDependencies()

		var (
			query  = strings.Join(args, " ")
			filter = lo.Must(cmd.Flags().GetString("filter"))
			limit  = lo.Must(cmd.Flags().GetInt("limit"))
		)

		if filter == "" {
			filter = viper.GetString(key.SearchFilter)
		}
		if limit <= 0 {
			limit = viper.GetInt(key.SearchLimit)
		}

		client := api.New()

		e := util.PrintErasable(fmt.Sprintf("%s Searching for %s...", icon.Get(icon.Search), style.Bold(query)))
		response, err := client.Search(query, filter, limit)
		e()
		handleErr(err)

		playable := lo.Filter(response.Results, func(result api.SearchResult, _ int) bool {
			return result.VideoID != ""
		})
		if len(playable) == 0 {
			handleErr(fmt.Errorf("no playable results for %s", style.Bold(query)))
		}

		options := lo.Map(playable, func(result api.SearchResult, _ int) string {
			return formatSearchResult(result)
		})

		var index int
		prompt := survey.Select{
			Message:  fmt.Sprintf("Found %s", util.Quantify(len(playable), "track", "tracks")),
			Options:  options,
			PageSize: 15,
		}
		if err := survey.AskOne(&prompt, &index); err != nil {
			handleErr(errors.New("selection cancelled"))
		}

		selected := playable[index]

		queue := []string{}
		if lo.Must(cmd.Flags().GetBool("radio")) {
			watch, err := client.WatchPlaylist(selected.VideoID, viper.GetInt(key.WatchQueueLimit))
			handleErr(err)

			queue = lo.Map(watch.Tracks, func(song api.Song, _ int) string {
				return song.VideoID
			})
		}

		handleErr(runPlayback(client, selected.VideoID, queue))
	},
}

func formatSearchResult(result api.SearchResult) string {
	var parts []string

	parts = append(parts, result.Title)

	if len(result.Artists) > 0 {
		parts = append(parts, result.Artists[0].Name)
	}
	if result.Album != nil && result.Album.Name != "" {
		parts = append(parts, result.Album.Name)
	}
	if result.Duration > 0 {
		parts = append(parts, util.FormatClock(result.Duration.Seconds()))
	}

	return strings.Join(parts, " | ")
}
