package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/llehouerou/cadence/internal/library"
	"github.com/llehouerou/cadence/internal/playback"
)

var playerBarStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("240"))

var (
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// nowPlaying is a snapshot of what the player bar shows.
type nowPlaying struct {
	Track    *library.Track
	Status   playback.Status
	Position time.Duration
	Duration time.Duration
	Shuffle  bool
}

func snapshot(e *playback.Engine) nowPlaying {
	return nowPlaying{
		Track:    e.CurrentTrack(),
		Status:   e.Status(),
		Position: e.Position(),
		Duration: e.Duration(),
		Shuffle:  e.Shuffle(),
	}
}

func statusIcon(s playback.Status) string {
	switch s {
	case playback.StatusPlaying:
		return "▶"
	case playback.StatusPaused:
		return "⏸"
	case playback.StatusLoading:
		return "…"
	case playback.StatusFailed:
		return failedStyle.Render("✗")
	default:
		return "■"
	}
}

// renderNowPlaying draws a one-line player bar of the given outer width.
// The title always shows; artist and album are added while they fit.
func renderNowPlaying(np nowPlaying, width int) string {
	innerWidth := max(width-2, 0)

	if np.Track == nil {
		return playerBarStyle.Width(innerWidth).Render(dimStyle.Render(" Nothing playing"))
	}

	right := formatDuration(np.Duration) + " "
	if np.Status.IsActive() {
		right = fmt.Sprintf("%s / %s ", formatDuration(np.Position), formatDuration(np.Duration))
	}
	if np.Shuffle {
		right = "⤮ " + right
	}
	rightLen := lipgloss.Width(right)

	trackInfo := np.Track.Title
	artist := strings.Join(np.Track.Artists(), ", ")
	var artistAlbum string
	if artist != "" {
		artistAlbum = artist
		if np.Track.Album != "" {
			artistAlbum = fmt.Sprintf("%s - %s", artist, np.Track.Album)
		}
	}

	const minGap = 2
	statusPart := " " + statusIcon(np.Status) + "  "
	available := innerWidth - lipgloss.Width(statusPart) - rightLen - minGap
	trackLen := lipgloss.Width(trackInfo)

	// Priority is track > artist > artist+album
	var artistPart string
	switch {
	case artistAlbum != "" && lipgloss.Width(artistAlbum)+minGap+trackLen <= available:
		artistPart = artistAlbum
	case artist != "" && lipgloss.Width(artist)+minGap+trackLen <= available:
		artistPart = artist
	}

	left := statusPart + trackInfo
	if artistPart != "" {
		left = statusPart + artistPart + strings.Repeat(" ", minGap) + trackInfo
	}

	padding := max(innerWidth-lipgloss.Width(left)-rightLen, 0)
	content := left + strings.Repeat(" ", padding) + right
	return playerBarStyle.Width(innerWidth).Render(content)
}

func formatDuration(d time.Duration) string {
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", m, s)
}
