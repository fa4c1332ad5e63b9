package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/chzyer/readline"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/llehouerou/cadence/internal/app"
	"github.com/llehouerou/cadence/internal/errmsg"
	"github.com/llehouerou/cadence/internal/gesture"
	"github.com/llehouerou/cadence/internal/library"
	"github.com/llehouerou/cadence/internal/playback"
)

const (
	shellPrompt = "cadence> "
	barWidth    = 80
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start the interactive player (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShell(cmd)
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

var shellCommands = []string{
	"ls", "play", "toggle", "next", "prev", "seek", "vol", "shuffle",
	"queue", "history", "np", "add", "addfile", "refresh", "export",
	"import", "help", "quit",
}

func runShell(cmd *cobra.Command) error {
	historyFile, err := xdg.StateFile(filepath.Join("cadence", "history"))
	if err != nil {
		historyFile = ""
	}

	items := make([]readline.PrefixCompleterInterface, 0, len(shellCommands))
	for _, c := range shellCommands {
		items = append(items, readline.PcItem(c))
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          shellPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    readline.NewPrefixCompleter(items...),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	a, err := openApp(&readlinePrompter{rl: rl}, app.Options{})
	if err != nil {
		return err
	}
	defer closeApp(a)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if err := a.SyncConfiguredSources(ctx); err != nil {
		fmt.Fprintln(rl.Stderr(), errmsg.Format(errmsg.OpLibraryScan, err))
	}
	if err := a.Watch(ctx); err != nil {
		fmt.Fprintln(rl.Stderr(), errmsg.Format(errmsg.OpLibraryWatch, err))
	}

	sh := newShell(a, rl.Stdout())
	go sh.printEvents(ctx)

	fmt.Fprintf(rl.Stdout(), "%s tracks in library. Type help for commands.\n", humanize.Comma(int64(a.Library.Len())))
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		quit, err := sh.exec(ctx, line)
		if err != nil {
			fmt.Fprintln(rl.Stderr(), err)
		}
		if quit {
			return nil
		}
	}
}

// readlinePrompter asks permission questions on the shell's terminal.
type readlinePrompter struct {
	rl *readline.Instance
}

func (p *readlinePrompter) Confirm(_ context.Context, question string) (bool, error) {
	p.rl.SetPrompt(question + " [y/N] ")
	defer p.rl.SetPrompt(shellPrompt)

	line, err := p.rl.Readline()
	if err != nil {
		return false, nil //nolint:nilerr // an aborted prompt is a refusal
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// shell runs commands against a running app. Every command is a user
// gesture, so it may prompt for folder access.
type shell struct {
	app *app.App
	out io.Writer

	// listing is the last table printed by ls, addressed by play N.
	listing []*library.Track
}

func newShell(a *app.App, out io.Writer) *shell {
	return &shell{app: a, out: out}
}

func (s *shell) exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	name, args := fields[0], fields[1:]
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), name))
	ctx = gesture.With(ctx)
	e := s.app.Engine

	switch name {
	case "quit", "exit", "q":
		return true, nil

	case "help", "?":
		fmt.Fprintln(s.out, "ls [query] | play [n|query] | toggle | next | prev | seek <sec|+sec|-sec> | vol [0-100]")
		fmt.Fprintln(s.out, "shuffle | queue | history | np | add <folder> | addfile <file...> | refresh")
		fmt.Fprintln(s.out, "export <file> | import <file> | quit")

	case "ls":
		s.listing = s.app.Library.Tracks()
		if rest != "" {
			s.listing = s.app.Library.Search(rest)
		}
		printTracks(s.out, s.listing, currentID(e))

	case "play":
		return false, s.play(ctx, rest)

	case "toggle", "pause", "p":
		return false, wrap(errmsg.OpPlaybackToggle, e.TogglePlay(ctx))

	case "next", "n":
		return false, wrap(errmsg.OpPlaybackNext, e.PlayNext(ctx))

	case "prev", "b":
		return false, wrap(errmsg.OpPlaybackPrevious, e.PlayPrevious(ctx))

	case "seek":
		if len(args) != 1 {
			return false, errors.New("usage: seek <sec|+sec|-sec>")
		}
		secs, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return false, fmt.Errorf("seek: %w", err)
		}
		if strings.HasPrefix(args[0], "+") || strings.HasPrefix(args[0], "-") {
			secs += e.Position().Seconds()
		}
		e.Seek(secs)

	case "vol":
		if len(args) == 0 {
			fmt.Fprintf(s.out, "Volume %d%%\n", int(e.Volume()*100+0.5))
			return false, nil
		}
		pct, err := strconv.Atoi(strings.TrimSuffix(args[0], "%"))
		if err != nil {
			return false, fmt.Errorf("vol: %w", err)
		}
		e.ChangeVolume(float64(pct) / 100)

	case "shuffle":
		if e.ToggleShuffle() {
			fmt.Fprintln(s.out, "Shuffle on")
		} else {
			fmt.Fprintln(s.out, "Shuffle off")
		}

	case "queue":
		printTracks(s.out, e.Queue(), currentID(e))

	case "history":
		printTracks(s.out, e.History(), "")

	case "np", "status":
		fmt.Fprintln(s.out, renderNowPlaying(snapshot(e), barWidth))

	case "add":
		if rest == "" {
			return false, errors.New("usage: add <folder>")
		}
		stats, err := withProgress(s.out, func(progress chan<- library.ScanProgress) (*library.ScanStats, error) {
			return s.app.AddFolder(ctx, rest, progress)
		})
		if err != nil {
			return false, errors.New(errmsg.FormatWith(errmsg.OpFolderAdd, rest, err))
		}
		printStats(s.out, stats)

	case "addfile":
		if len(args) == 0 {
			return false, errors.New("usage: addfile <file...>")
		}
		added, err := s.app.Library.AddFiles(args)
		if err != nil {
			return false, errors.New(errmsg.Format(errmsg.OpFilesAdd, err))
		}
		fmt.Fprintf(s.out, "Added %d files for this session\n", len(added))

	case "refresh":
		stats, err := withProgress(s.out, func(progress chan<- library.ScanProgress) (*library.ScanStats, error) {
			return s.app.Library.Refresh(ctx, progress)
		})
		if err != nil {
			return false, errors.New(errmsg.Format(errmsg.OpLibraryScan, err))
		}
		printStats(s.out, stats)

	case "export":
		if rest == "" {
			return false, errors.New("usage: export <file>")
		}
		f, err := os.Create(rest)
		if err != nil {
			return false, errors.New(errmsg.Format(errmsg.OpUserDataExport, err))
		}
		defer f.Close()
		return false, wrap(errmsg.OpUserDataExport, s.app.Library.Export(f))

	case "import":
		if rest == "" {
			return false, errors.New("usage: import <file>")
		}
		f, err := os.Open(rest)
		if err != nil {
			return false, errors.New(errmsg.Format(errmsg.OpUserDataImport, err))
		}
		defer f.Close()
		n, err := s.app.Library.Import(f)
		if err != nil {
			return false, errors.New(errmsg.Format(errmsg.OpUserDataImport, err))
		}
		fmt.Fprintf(s.out, "Updated %d tracks\n", n)

	default:
		return false, fmt.Errorf("unknown command %q, type help", name)
	}
	return false, nil
}

// play toggles without an argument, plays entry n of the last listing, or
// plays the first search match with the matches as the queue.
func (s *shell) play(ctx context.Context, arg string) error {
	e := s.app.Engine
	if arg == "" {
		return wrap(errmsg.OpPlaybackToggle, e.TogglePlay(ctx))
	}

	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(s.listing) {
			return fmt.Errorf("no track %d in the last listing", n)
		}
		t := s.listing[n-1]
		return wrapWith(errmsg.OpPlaybackStart, t.Title, e.PlayTrack(ctx, t, s.listing))
	}

	matches := s.app.Library.Search(arg)
	if len(matches) == 0 {
		return fmt.Errorf("no track matches %q", arg)
	}
	s.listing = matches
	return wrapWith(errmsg.OpPlaybackStart, matches[0].Title, e.PlayTrack(ctx, matches[0], matches))
}

// printEvents shows the player bar whenever the track changes, including
// on auto-advance.
func (s *shell) printEvents(ctx context.Context) {
	sub := s.app.Engine.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done:
			return
		case ev := <-sub.TrackChanged:
			if ev.Current != nil {
				fmt.Fprintln(s.out, renderNowPlaying(snapshot(s.app.Engine), barWidth))
			}
		}
	}
}

func currentID(e *playback.Engine) string {
	if t := e.CurrentTrack(); t != nil {
		return t.ID
	}
	return ""
}

func wrap(op errmsg.Op, err error) error {
	if err == nil {
		return nil
	}
	return errors.New(errmsg.Format(op, err))
}

func wrapWith(op errmsg.Op, subject string, err error) error {
	if err == nil {
		return nil
	}
	return errors.New(errmsg.FormatWith(op, subject, err))
}
