package presenter

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/WangYihang/Sitemap-Generator/pkg/domain/entity"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxRecentURLs = 50

// Dashboard is a TUI dashboard for crawling progress
type Dashboard struct {
	seed       string
	metrics    *entity.Metrics
	recentURLs []string
	spinner    spinner.Model
	width      int
	height     int
	startTime  time.Time
	finished   bool
	onQuit     func()
	done       chan struct{}
	doneOnce   sync.Once
	mu         sync.RWMutex
}

type tickMsg time.Time

type finishedMsg struct{}

// NewDashboard creates a new TUI dashboard; onQuit runs when the user quits
func NewDashboard(seed string, onQuit func()) *Dashboard {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))
	return &Dashboard{
		seed:      seed,
		metrics:   &entity.Metrics{},
		spinner:   s,
		startTime: time.Now(),
		onQuit:    onQuit,
		done:      make(chan struct{}),
	}
}

// Init initializes the dashboard
func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		d.spinner.Tick,
		d.waitFinished,
		tea.EnterAltScreen,
	)
}

// Update handles dashboard updates
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "Q", "ctrl+c":
			if d.onQuit != nil {
				d.onQuit()
			}
			return d, tea.Quit
		}

	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		return d, nil

	case finishedMsg:
		d.mu.Lock()
		d.finished = true
		d.mu.Unlock()
		return d, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		d.spinner, cmd = d.spinner.Update(msg)
		return d, cmd

	case tickMsg:
		return d, tickCmd()
	}

	return d, nil
}

// View renders the dashboard
func (d *Dashboard) View() string {
	if d.width == 0 {
		return "Initializing..."
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	header := d.renderHeader()
	footer := d.renderFooter()

	availableHeight := d.height - lipgloss.Height(header) - lipgloss.Height(footer)
	if availableHeight < 0 {
		availableHeight = 0
	}
	halfHeight := availableHeight / 2
	leftWidth := d.width / 2
	rightWidth := d.width - leftWidth

	// Row 1: Crawl (Left) | Sitemap (Right)
	row1 := lipgloss.JoinHorizontal(
		lipgloss.Top,
		d.renderCrawlStats(leftWidth, halfHeight),
		d.renderSitemapStats(rightWidth, halfHeight),
	)

	// Row 2: Active fetches (Left) | Recent URLs (Right)
	remainingHeight := availableHeight - halfHeight
	row2 := lipgloss.JoinHorizontal(
		lipgloss.Top,
		d.renderList("🌐 Fetching", "#4ECDC4", d.metrics.ActiveURLs, "Idle", leftWidth, remainingHeight),
		d.renderList(fmt.Sprintf("🗺  Recently Added (Total: %d)", d.metrics.Added), "#04B575", d.recentURLs, "No URLs added yet...", rightWidth, remainingHeight),
	)

	return lipgloss.JoinVertical(lipgloss.Left, header, row1, row2, footer)
}

// OnMetricsUpdate implements application.MetricsObserver
func (d *Dashboard) OnMetricsUpdate(metrics *entity.Metrics) {
	d.mu.Lock()
	d.metrics = metrics
	d.mu.Unlock()
}

// AddURL adds a newly added sitemap URL to the recent list
func (d *Dashboard) AddURL(url string) {
	d.mu.Lock()
	d.recentURLs = append(d.recentURLs, url)
	if len(d.recentURLs) > maxRecentURLs {
		d.recentURLs = d.recentURLs[len(d.recentURLs)-maxRecentURLs:]
	}
	d.mu.Unlock()
}

func (d *Dashboard) renderHeader() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7D56F4")).
		Padding(0, 1)

	timeStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#999999"))

	status := d.spinner.View() + " " + d.metrics.State
	if d.finished {
		status = "✅ done"
	}

	title := titleStyle.Render("🗺  Sitemap Generator")
	info := timeStyle.Render(fmt.Sprintf(" %s | %s | Running: %s | Time: %s",
		d.seed, status, formatElapsed(time.Since(d.startTime)), time.Now().Format("15:04:05")))

	return title + info
}

func (d *Dashboard) renderCrawlStats(width, height int) string {
	stats := []string{
		"🕷  Crawl",
		"",
		fmt.Sprintf("Frontier:          %d", d.metrics.FrontierLength),
		fmt.Sprintf("Pending:           %d", d.metrics.PendingLength),
		fmt.Sprintf("In Flight:         %d / %d", d.metrics.InFlight, d.metrics.MaxConcurrency),
		fmt.Sprintf("Fetched:           %d", d.metrics.Fetched),
		fmt.Sprintf("Fetch Errors:      %d", d.metrics.FetchErrors),
	}

	if elapsed := time.Since(d.startTime).Seconds(); elapsed > 0 {
		stats = append(stats,
			"",
			fmt.Sprintf("Fetch Rate:        %.1f req/s", float64(d.metrics.Fetched)/elapsed),
		)
	}

	return panelStyle("#874BFD", width, height).Render(strings.Join(stats, "\n"))
}

func (d *Dashboard) renderSitemapStats(width, height int) string {
	stats := []string{
		"📄 Sitemap",
		"",
		fmt.Sprintf("Added:             %d", d.metrics.Added),
		fmt.Sprintf("Ignored:           %d", d.metrics.Ignored),
		fmt.Sprintf("Errored:           %d", d.metrics.Errored),
		fmt.Sprintf("Max Depth:         %d", d.metrics.MaxDepth),
	}

	if total := d.metrics.Added + d.metrics.Ignored + d.metrics.Errored; total > 0 {
		stats = append(stats,
			"",
			fmt.Sprintf("Accept Rate:       %.1f%%", float64(d.metrics.Added)/float64(total)*100),
		)
	}

	return panelStyle("#FF6B6B", width, height).Render(strings.Join(stats, "\n"))
}

func (d *Dashboard) renderList(title, color string, items []string, empty string, width, height int) string {
	lines := []string{title, ""}

	if len(items) == 0 {
		lines = append(lines, empty)
	} else {
		// border, padding, title and blank line
		maxLines := height - 6
		if maxLines < 0 {
			maxLines = 0
		}
		start := 0
		if len(items) > maxLines {
			start = len(items) - maxLines
		}
		for _, item := range items[start:] {
			lines = append(lines, fmt.Sprintf("  • %s", item))
		}
	}

	return panelStyle(color, width, height).Render(strings.Join(lines, "\n"))
}

func (d *Dashboard) renderFooter() string {
	footerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#626262")).
		Padding(1, 0)

	return footerStyle.Render("Press 'q' or 'Ctrl+C' to stop and write the sitemap")
}

func panelStyle(color string, width, height int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(color)).
		Padding(1, 2).
		Width(width - 2).  // Adjust for border
		Height(height - 2) // Adjust for border
}

func formatElapsed(elapsed time.Duration) string {
	hours := int(elapsed.Hours())
	minutes := int(elapsed.Minutes()) % 60
	seconds := int(elapsed.Seconds()) % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*500, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (d *Dashboard) waitFinished() tea.Msg {
	<-d.done
	return finishedMsg{}
}

// Finish closes the dashboard once the run is over
func (d *Dashboard) Finish() {
	d.doneOnce.Do(func() {
		close(d.done)
	})
}

// Run starts the dashboard and blocks until it exits
func (d *Dashboard) Run() error {
	_, err := tea.NewProgram(d, tea.WithAltScreen()).Run()
	return err
}
