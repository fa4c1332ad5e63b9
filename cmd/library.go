package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/llehouerou/cadence/internal/app"
	"github.com/llehouerou/cadence/internal/errmsg"
	"github.com/llehouerou/cadence/internal/library"
)

var scanCmd = &cobra.Command{
	Use:   "scan [folder...]",
	Short: "Add folders to the library, or rescan known folders",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil, app.Options{})
		if err != nil {
			return err
		}
		defer closeApp(a)

		out := cmd.OutOrStdout()
		if len(args) == 0 {
			stats, err := withProgress(out, func(progress chan<- library.ScanProgress) (*library.ScanStats, error) {
				return a.Library.Refresh(cmd.Context(), progress)
			})
			if err != nil {
				return errors.New(errmsg.Format(errmsg.OpLibraryScan, err))
			}
			printStats(out, stats)
			return nil
		}

		for _, root := range args {
			stats, err := withProgress(out, func(progress chan<- library.ScanProgress) (*library.ScanStats, error) {
				return a.AddFolder(cmd.Context(), root, progress)
			})
			if err != nil {
				return errors.New(errmsg.FormatWith(errmsg.OpFolderAdd, root, err))
			}
			printStats(out, stats)
		}
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "List library tracks",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil, app.Options{})
		if err != nil {
			return err
		}
		defer closeApp(a)

		tracks := a.Library.Tracks()
		if len(args) == 1 {
			tracks = a.Library.Search(args[0])
		}
		printTracks(cmd.OutOrStdout(), tracks, "")
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export play counts as JSON (default: stdout)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil, app.Options{})
		if err != nil {
			return err
		}
		defer closeApp(a)

		w := cmd.OutOrStdout()
		if len(args) == 1 {
			f, err := os.Create(args[0])
			if err != nil {
				return errors.New(errmsg.Format(errmsg.OpUserDataExport, err))
			}
			defer f.Close()
			w = f
		}
		if err := a.Library.Export(w); err != nil {
			return errors.New(errmsg.Format(errmsg.OpUserDataExport, err))
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Merge play counts from an export, keeping the higher count",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil, app.Options{})
		if err != nil {
			return err
		}
		defer closeApp(a)

		f, err := os.Open(args[0])
		if err != nil {
			return errors.New(errmsg.Format(errmsg.OpUserDataImport, err))
		}
		defer f.Close()

		n, err := a.Library.Import(f)
		if err != nil {
			return errors.New(errmsg.Format(errmsg.OpUserDataImport, err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s tracks\n", humanize.Comma(int64(n)))
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove every track and folder from the library",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil, app.Options{})
		if err != nil {
			return err
		}
		defer closeApp(a)

		if err := a.Library.Reset(); err != nil {
			return errors.New(errmsg.Format(errmsg.OpLibraryReset, err))
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Library cleared")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd, listCmd, exportCmd, importCmd, resetCmd)
}

// withProgress runs a scan while printing its progress to w.
func withProgress(w io.Writer, run func(chan<- library.ScanProgress) (*library.ScanStats, error)) (*library.ScanStats, error) {
	progress := make(chan library.ScanProgress)
	done := make(chan struct{})
	go func() {
		defer close(done)
		printProgress(w, progress)
	}()
	stats, err := run(progress)
	<-done
	return stats, err
}

// printProgress writes scan phases until progress is closed.
func printProgress(w io.Writer, progress <-chan library.ScanProgress) {
	last := ""
	for p := range progress {
		switch p.Phase {
		case library.PhaseProcessing:
			if p.Total > 0 {
				fmt.Fprintf(w, "\rProcessing %d/%d", p.Current, p.Total)
			}
		case library.PhaseDone:
			if last == library.PhaseProcessing {
				fmt.Fprintln(w)
			}
		default:
			if p.Phase != last {
				fmt.Fprintf(w, "%s...\n", p.Phase)
			}
		}
		last = p.Phase
	}
}

func printStats(w io.Writer, stats *library.ScanStats) {
	fmt.Fprintf(w, "%s added, %s updated, %s removed\n",
		humanize.Comma(int64(len(stats.Added))),
		humanize.Comma(int64(len(stats.Updated))),
		humanize.Comma(int64(len(stats.Removed))))
}

// printTracks writes a numbered table of tracks. currentID marks the
// playing track.
func printTracks(w io.Writer, tracks []*library.Track, currentID string) {
	if len(tracks) == 0 {
		fmt.Fprintln(w, "No tracks")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  #\tTITLE\tARTIST\tALBUM\tLENGTH\tQUALITY\tPLAYS")
	for i, t := range tracks {
		marker := " "
		if t.ID == currentID {
			marker = ">"
		}
		if t.IsZombie() {
			marker = "!"
		}
		fmt.Fprintf(tw, "%s %d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			marker, i+1, t.Title, t.Artist, t.Album,
			formatDuration(t.Duration), quality(t), humanize.Comma(int64(t.PlayCount)))
	}
	_ = tw.Flush()
}

// quality renders format and bitrate, e.g. "flac 912 kbps".
func quality(t *library.Track) string {
	if t.Bitrate <= 0 {
		return t.Format
	}
	return t.Format + " " + humanize.SIWithDigits(float64(t.Bitrate)*1000, 0, "bps")
}
