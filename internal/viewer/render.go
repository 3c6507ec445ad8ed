package viewer

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/smile-viewer/internal"
)

// ImageSource says what drives the left pane
type ImageSource int

const (
	ImageNone ImageSource = iota
	ImageLive
	ImageSnapshot
)

// ViewState is everything Render needs. It is a copy; mutating it does not
// affect the model.
type ViewState struct {
	Session      SessionState
	Starting     bool
	StartEnabled bool
	StopEnabled  bool
	Image        string
	Source       ImageSource
	Detection    internal.DetectionResult
	Stalled      bool
	Failures     int
	Snapshots    []internal.SnapshotRecord
	Cursor       int
	Selected     string
	Loading      bool
	Help         string
}

const (
	noFeedText      = "No Camera Feed"
	placeholderText = "Select a past smile"
)

var (
	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	feedLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true)

	noFeedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)

	locatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	disabledButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Strikethrough(true).
				Padding(0, 1)

	smileStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	noSmileStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	stalledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	selectorTitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("212")).
				Bold(true)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// StatusText is the detection line of the control pane
func StatusText(d internal.DetectionResult) string {
	text := "😐 No Smile Detected"
	if d.SmileDetected {
		text = "😊 Smile Detected!"
	}
	if d.HasCoordinates() {
		text += "  " + d.Coordinates
	}
	return text
}

// Render draws the feed pane and the control pane side by side. width <= 0
// lets each pane size to its content.
func Render(v ViewState, width int) string {
	left := paneStyle
	right := paneStyle
	if width > 0 {
		// two borders and two paddings per pane
		half := width/2 - 6
		if half > 20 {
			left = left.Width(half)
			right = right.Width(half)
		}
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		left.Render(renderFeed(v)),
		right.Render(renderControls(v)),
	)
	if v.Help == "" {
		return body
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, dimStyle.Render(v.Help))
}

func renderFeed(v ViewState) string {
	switch v.Source {
	case ImageLive:
		return feedLabelStyle.Render("📷 Live") + "\n" + locatorStyle.Render(v.Image)
	case ImageSnapshot:
		return feedLabelStyle.Render("🖼  Smile "+v.Selected) + "\n" + locatorStyle.Render(v.Image)
	default:
		return noFeedStyle.Render(noFeedText)
	}
}

func renderControls(v ViewState) string {
	var b strings.Builder

	startLabel := "Start Camera"
	if v.Starting {
		startLabel = "Starting…"
	}
	b.WriteString(button(startLabel, v.StartEnabled))
	b.WriteString(" ")
	b.WriteString(button("Stop Camera", v.StopEnabled))
	b.WriteString("\n\n")

	status := StatusText(v.Detection)
	if v.Detection.SmileDetected {
		b.WriteString(smileStyle.Render(status))
	} else {
		b.WriteString(noSmileStyle.Render(status))
	}
	b.WriteString("\n")
	if v.Stalled {
		b.WriteString(stalledStyle.Render(fmt.Sprintf("⚠ feed stalled (%d failed polls)", v.Failures)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(selectorTitleStyle.Render("Past Smiles"))
	if v.Loading {
		b.WriteString(dimStyle.Render(" (loading…)"))
	}
	b.WriteString("\n")
	b.WriteString(selectorLine(placeholderText, v.Cursor == 0, false))
	for i, rec := range v.Snapshots {
		b.WriteString("\n")
		b.WriteString(selectorLine(rec.Timestamp, v.Cursor == i+1, rec.Timestamp == v.Selected))
	}
	if len(v.Snapshots) == 0 {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("  no smiles yet"))
	}

	return b.String()
}

func button(label string, enabled bool) string {
	if enabled {
		return buttonStyle.Render(label)
	}
	return disabledButtonStyle.Render(label)
}

func selectorLine(label string, underCursor, selected bool) string {
	prefix := "  "
	if underCursor {
		prefix = cursorStyle.Render("› ")
	}
	if selected {
		label += " ●"
	}
	return prefix + label
}
