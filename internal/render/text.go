// Package render turns a ViewState into something a person can look at.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/i474232898/weather-dashboard/internal/common"
	"github.com/i474232898/weather-dashboard/internal/orchestrator"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	sectionStyle = lipgloss.NewStyle().MarginTop(1)
)

// placeholders per sub-view, one per non-ready status.
type placeholders struct {
	loggedOut string
	empty     string
	loading   string
	failed    string
}

var (
	weatherText   = placeholders{"Please login to view weather data", "Search for a city to see the weather", "Loading weather data...", "Error loading weather data"}
	favoritesText = placeholders{"Please login to see favorites", "No favorite cities yet", "Loading...", "Error loading favorites"}
	historyText   = placeholders{"Please login to see history", "No search history yet", "Loading...", "Error loading history"}
	statsText     = placeholders{"Please login to see statistics", "No statistics available yet", "Loading...", "Error loading statistics"}
	chartText     = placeholders{"Please login to see the chart", "No chart yet", "Loading chart...", "Error loading chart"}
)

// Icon picks a symbol for a weather description.
func Icon(description string) string {
	switch {
	case common.HasAny(description, "sun", "clear"):
		return "☀"
	case common.HasAny(description, "rain"):
		return "☂"
	case common.HasAny(description, "storm"):
		return "⚡"
	case common.HasAny(description, "snow"):
		return "❄"
	default:
		return "☁"
	}
}

// Text renders the whole dashboard.
func Text(vs orchestrator.ViewState) string {
	var b strings.Builder

	if vs.Authenticated {
		b.WriteString(titleStyle.Render(fmt.Sprintf("Welcome, %s!", vs.Username)))
	} else {
		b.WriteString(titleStyle.Render("Not logged in"))
	}
	b.WriteString("\n")

	section(&b, "Current weather", slotText(vs.Weather, weatherText, func(s *weather.Snapshot) string {
		if s == nil {
			return ""
		}
		return snapshotText(*s)
	}))
	section(&b, "Favorites", slotText(vs.Favorites, favoritesText, favoritesTable))
	section(&b, "History", slotText(vs.History, historyText, historyTable))
	section(&b, "Statistics", slotText(vs.Stats, statsText, statsTable))
	section(&b, fmt.Sprintf("Temperature chart (%d days)", vs.ChartDays), slotText(vs.Chart, chartText, func(ref *weather.ResourceRef) string {
		if ref == nil {
			return ""
		}
		return ref.URL
	}))

	return b.String()
}

func section(b *strings.Builder, title, body string) {
	b.WriteString(sectionStyle.Render(headerStyle.Render(title)))
	b.WriteString("\n")
	b.WriteString(body)
	b.WriteString("\n")
}

// slotText renders the data of a ready or loading slot with format and
// falls back to the matching placeholder otherwise. Empty data counts as
// empty.
func slotText[T any](s orchestrator.Slot[T], p placeholders, format func(T) string) string {
	switch s.Status {
	case orchestrator.StatusLoggedOut:
		return mutedStyle.Render(p.loggedOut)
	case orchestrator.StatusFailed:
		msg := p.failed
		if s.Error != "" {
			msg += ": " + s.Error
		}
		return errorStyle.Render(msg)
	}

	body := format(s.Data)
	if s.Status == orchestrator.StatusLoading {
		if body == "" {
			return mutedStyle.Render(p.loading)
		}
		return body + "\n" + mutedStyle.Render("Refreshing...")
	}
	if body == "" {
		return mutedStyle.Render(p.empty)
	}
	return body
}

func snapshotText(s weather.Snapshot) string {
	lines := []string{
		fmt.Sprintf("%s  %s", Icon(s.Description), valueStyle.Render(s.City)),
		fmt.Sprintf("%.1f°C  %s", s.TemperatureC, s.Description),
		fmt.Sprintf("Humidity %d%%  Wind %g m/s  Pressure %d hPa", s.HumidityPct, s.WindSpeed, s.PressureHPa),
	}
	return strings.Join(lines, "\n")
}

func favoritesTable(favs []weather.FavoriteCity) string {
	if len(favs) == 0 {
		return ""
	}
	names := make([]string, 0, len(favs))
	for _, f := range favs {
		names = append(names, "• "+f.City)
	}
	return strings.Join(names, "\n")
}

func historyTable(entries []weather.HistoryEntry) string {
	if len(entries) == 0 {
		return ""
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		when := ""
		if !e.Timestamp.IsZero() {
			when = e.Timestamp.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{e.City, fmt.Sprintf("%.1f°C", e.TemperatureC), e.Description, when})
	}
	return table([]string{"City", "Temperature", "Description", "Date/Time"}, rows)
}

func statsTable(stats []weather.StatsSummary) string {
	if len(stats) == 0 {
		return ""
	}
	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{
			s.City,
			fmt.Sprintf("%d", s.SearchCount),
			fmt.Sprintf("%.1f°C", s.AvgTemperatureC),
			fmt.Sprintf("%.1f%%", s.AvgHumidityPct),
			fmt.Sprintf("%.1f hPa", s.AvgPressureHPa),
			fmt.Sprintf("%.1f m/s", s.AvgWindSpeed),
		})
	}
	return table([]string{"City", "Searches", "Avg temp", "Avg humidity", "Avg pressure", "Avg wind"}, rows)
}

const maxCell = 24

// table aligns columns by display width so wide runes line up.
func table(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], min(runewidth.StringWidth(cell), maxCell))
		}
	}

	line := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			cell = runewidth.Truncate(cell, maxCell, "…")
			parts[i] = runewidth.FillRight(cell, widths[i])
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(line(header)))
	for _, row := range rows {
		b.WriteString("\n")
		b.WriteString(line(row))
	}
	return b.String()
}
