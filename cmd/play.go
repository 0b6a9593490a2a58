// Package cmd implements the command-line interface for soundpulse.
package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/soundpulse-cli/soundpulse/api"
	"github.com/soundpulse-cli/soundpulse/color"
	"github.com/soundpulse-cli/soundpulse/icon"
	"github.com/soundpulse-cli/soundpulse/key"
	"github.com/soundpulse-cli/soundpulse/playback"
	"github.com/soundpulse-cli/soundpulse/player"
	"github.com/soundpulse-cli/soundpulse/style"
	"github.com/soundpulse-cli/soundpulse/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().StringSliceP("queue", "q", []string{}, "Track ids to enqueue alongside the requested one")
	playCmd.Flags().BoolP("radio", "r", false, "Build a playback queue from tracks related to the requested one")
	playCmd.MarkFlagsMutuallyExclusive("queue", "radio")
}

// playCmd starts playback of a single track or a queue of tracks.
var playCmd = &cobra.Command{
	Use:   "play [track-id]",
	Short: "Play a track from the backend catalog",
	Long: `Start playback of the given track and drive it from a line-based transport on stdin.
The track may be given as a bare id or a full watch URL pasted from a browser.`,
	Args:    cobra.ExactArgs(1),
	Example: "  soundpulse play dQw4w9WgXcQ --radio",
	Run: func(cmd *cobra.Command, args []string) {
		checkDependencies()

		client := api.New()
		trackID := normalizeTrackID(args[0])
		if trackID == "" {
			handleErr(errors.New("track id is required"))
		}

		queue := lo.Must(cmd.Flags().GetStringSlice("queue"))
		if lo.Must(cmd.Flags().GetBool("radio")) {
			e := util.PrintErasable(fmt.Sprintf("%s Building radio queue...", icon.Get(icon.Progress)))
			watch, err := client.WatchPlaylist(trackID, viper.GetInt(key.WatchQueueLimit))
			e()
			handleErr(err)

			queue = lo.Map(watch.Tracks, func(song api.Song, _ int) string {
				return song.VideoID
			})
		}

		handleErr(runPlayback(client, trackID, queue))
	},
}

// normalizeTrackID accepts either a bare track id or a watch URL and
// returns the id.
func normalizeTrackID(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		u, err := url.Parse(raw)
		if err != nil {
			return ""
		}
		return u.Query().Get("v")
	}

	return raw
}

// runPlayback wires the playback drivers to the orchestrator and drives
// them from a line-based transport prompt on stdin. It returns when the
// user quits or stdin closes.
func runPlayback(client *api.Client, trackID string, queueIDs []string) error {
	orchestrator := playback.NewOrchestrator(client, player.NewEmbed(), player.NewMedia())
	defer util.Ignore(orchestrator.Close)

	sub := orchestrator.Subscribe()
	defer orchestrator.Unsubscribe(sub)

	go renderEvents(sub)

	if !orchestrator.PlayTrack(trackID, queueIDs) {
		return fmt.Errorf("unable to start playback for %s", trackID)
	}

	printTransportHelp()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			togglePlayback(orchestrator)
			continue
		}

		switch fields[0] {
		case "q", "quit", "exit":
			return nil
		case "p", "toggle":
			togglePlayback(orchestrator)
		case "play":
			orchestrator.Play()
		case "pause":
			orchestrator.Pause()
		case "n", "next":
			orchestrator.Next()
		case "b", "prev", "previous":
			orchestrator.Previous()
		case "s", "seek":
			if len(fields) < 2 {
				fmt.Println("usage: seek <seconds>")
				continue
			}
			seconds, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				fmt.Printf("invalid seek position: %s\n", fields[1])
				continue
			}
			orchestrator.Seek(seconds)
		case "v", "volume":
			if len(fields) < 2 {
				fmt.Printf("volume: %d\n", orchestrator.Volume())
				continue
			}
			volume, err := strconv.Atoi(fields[1])
			if err != nil {
				fmt.Printf("invalid volume: %s\n", fields[1])
				continue
			}
			orchestrator.SetVolume(volume)
		case "m", "mute":
			orchestrator.ToggleMute()
		case "r", "repeat":
			fmt.Printf("repeat: %s\n", orchestrator.ToggleRepeat())
		case "y", "shuffle":
			if orchestrator.ToggleShuffle() {
				fmt.Println("shuffle: on")
			} else {
				fmt.Println("shuffle: off")
			}
		case "i", "info":
			printNowPlaying(orchestrator)
		case "h", "help", "?":
			printTransportHelp()
		default:
			fmt.Printf("unknown command: %s (try 'help')\n", fields[0])
		}
	}

	return scanner.Err()
}

func togglePlayback(orchestrator *playback.Orchestrator) {
	if orchestrator.Status() == playback.StatusPlaying {
		orchestrator.Pause()
	} else {
		orchestrator.Play()
	}
}

func printNowPlaying(orchestrator *playback.Orchestrator) {
	track := orchestrator.CurrentTrack()
	if track.ID == "" {
		fmt.Println("nothing playing")
		return
	}

	line := fmt.Sprintf("%s %s", icon.Get(icon.Note), style.Bold(track.Title))
	if track.ArtistName != "" {
		line += " " + style.Faint(track.ArtistName)
	}
	if track.DurationSeconds > 0 {
		line += " " + style.Faint(util.FormatClock(track.DurationSeconds))
	}
	fmt.Println(line)

	fmt.Printf(
		"%s, track %d of %d, repeat %s\n",
		orchestrator.Status(),
		orchestrator.QueueIndex()+1,
		len(orchestrator.QueueIDs()),
		orchestrator.Repeat(),
	)
}

func printTransportHelp() {
	fmt.Println(style.Faint("p toggle, n next, b previous, s <sec> seek, v <0-100> volume, m mute, r repeat, y shuffle, i info, q quit"))
}

// renderEvents consumes a subscription and prints playback events until
// the subscription is closed.
func renderEvents(sub *playback.Subscription) {
	for {
		select {
		case <-sub.Done:
			return
		case event := <-sub.TrackChanged:
			title := style.Bold(event.Track.Title)
			if event.Track.ArtistName != "" {
				title += " " + style.Faint(event.Track.ArtistName)
			}
			fmt.Printf("\n%s %s\n", icon.Get(icon.Play), title)
		case event := <-sub.StateChanged:
			if event.UsingFallback {
				fmt.Printf("%s %s %s\n", icon.Get(icon.Note), event.Status, style.Faint("(direct stream)"))
			} else {
				fmt.Printf("%s %s\n", icon.Get(icon.Note), event.Status)
			}
		case event := <-sub.ModeChanged:
			muted := ""
			if event.Muted {
				muted = " muted"
			}
			fmt.Printf("%s repeat %s, shuffle %v, volume %d%s\n", icon.Get(icon.Queue), event.RepeatMode, event.Shuffle, event.Volume, muted)
		case event := <-sub.Notices:
			switch event.Level {
			case playback.NoticeError:
				fmt.Printf("%s %s\n", icon.Get(icon.Fail), style.Fg(color.Red)(event.Message))
			case playback.NoticeWarning:
				fmt.Printf("%s %s\n", icon.Get(icon.Fail), style.Fg(color.Yellow)(event.Message))
			default:
				fmt.Printf("%s %s\n", icon.Get(icon.Progress), event.Message)
			}
		case event := <-sub.Progressed:
			if event.Duration > 0 {
				fmt.Printf("\r%s %s / %s ", icon.Get(icon.Note), util.FormatClock(int(event.CurrentTime)), util.FormatClock(int(event.Duration)))
			}
		}
	}
}
