package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ANSI 256 palette. Red matches the map's highlight outline.
var (
	colorTeal  = lipgloss.Color("36")
	colorGreen = lipgloss.Color("35")
	colorAmber = lipgloss.Color("220")
	colorRed   = lipgloss.Color("167")
	colorBlue  = lipgloss.Color("75")
	colorWhite = lipgloss.Color("255")
	colorGray  = lipgloss.Color("245")
	colorDim   = lipgloss.Color("240")
)

var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorTeal)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorTeal)
	StyleNumber    = StyleHighlight
	StyleLink      = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)
	StyleDim       = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue     = lipgloss.NewStyle().Foreground(colorWhite)
	StyleMatch     = lipgloss.NewStyle().Foreground(colorRed).Bold(true)

	styleIconSpinner = lipgloss.NewStyle().Foreground(colorTeal)
	styleLabel       = lipgloss.NewStyle().Foreground(colorGray).Width(12)
)

// statusLine is one kind of prefixed status message.
type statusLine struct {
	icon  string
	color lipgloss.Color
	// tint colors the message as well as the icon.
	tint bool
}

var (
	lineSuccess = statusLine{icon: "✓", color: colorGreen}
	lineError   = statusLine{icon: "✗", color: colorRed}
	lineWarning = statusLine{icon: "!", color: colorAmber, tint: true}
	lineInfo    = statusLine{icon: "›", color: colorGray}
)

func (l statusLine) print(format string, args ...any) {
	style := lipgloss.NewStyle().Foreground(l.color)
	msg := fmt.Sprintf(format, args...)
	if l.tint {
		msg = style.Render(msg)
	}
	fmt.Println(style.Render(l.icon) + " " + msg)
}

func printSuccess(format string, args ...any) { lineSuccess.print(format, args...) }
func printError(format string, args ...any) { lineError.print(format, args...) }
func printWarning(format string, args ...any) { lineWarning.print(format, args...) }
func printInfo(format string, args ...any) { lineInfo.print(format, args...) }

// printDetail prints an indented, dimmed line under a status line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a written output path.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render("→") + " " + StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Println(styleLabel.Render(key) + " " + StyleValue.Render(value))
}

// printNextStep suggests a follow-up command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + lipgloss.NewStyle().Foreground(colorBlue).Render(cmd))
}

// formatStats renders dataset statistics on one line, e.g.
// "212 records · 177 countries · 3 unmatched · cached". Zero counts are
// left out.
func formatStats(records, features, unmatched int, cached bool) string {
	var parts []string
	if records > 0 {
		parts = append(parts, StyleDim.Render(plural(records, "record")))
	}
	if features > 0 {
		parts = append(parts, StyleDim.Render(plural(features, "country", "countries")))
	}
	if unmatched > 0 {
		parts = append(parts, StyleDim.Render(strconv.Itoa(unmatched)+" unmatched"))
	}
	if cached {
		parts = append(parts, lipgloss.NewStyle().Foreground(colorGreen).Render("cached"))
	} else {
		parts = append(parts, lipgloss.NewStyle().Foreground(colorGray).Render("fresh"))
	}
	return "  " + strings.Join(parts, StyleDim.Render(" · "))
}

func printStats(records, features, unmatched int, cached bool) {
	fmt.Println(formatStats(records, features, unmatched, cached))
}

// plural formats n with one, or with many[0] (default one+"s") if n != 1.
func plural(n int, one string, many ...string) string {
	if n == 1 {
		return "1 " + one
	}
	word := one + "s"
	if len(many) > 0 {
		word = many[0]
	}
	return strconv.Itoa(n) + " " + word
}

// swatch renders a block of the "#rrggbb" fill color.
func swatch(hex string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Render("██")
}
