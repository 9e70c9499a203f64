package presenter

import (
	"io"

	"github.com/WangYihang/Sitemap-Generator/pkg/domain/entity"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Progress renders a single progress bar when the dashboard is off.
// The total grows as the crawler discovers pages.
type Progress struct {
	progress *mpb.Progress
	bar      *mpb.Bar
}

// NewProgress creates a progress bar writing to out
func NewProgress(out io.Writer, name string) *Progress {
	p := mpb.New(
		mpb.WithOutput(out),
		mpb.WithWidth(barWidth()),
	)
	bar := p.AddBar(0,
		mpb.PrependDecorators(
			decor.Name(name, decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.CountersNoUnit("[%d / %d]", decor.WCSyncWidth),
			decor.Percentage(decor.WCSyncSpace),
			decor.OnComplete(
				decor.Elapsed(decor.ET_STYLE_GO, decor.WCSyncSpace), "done",
			),
		),
	)
	return &Progress{progress: p, bar: bar}
}

// OnMetricsUpdate implements application.MetricsObserver
func (p *Progress) OnMetricsUpdate(m *entity.Metrics) {
	settled := m.Added + m.Ignored + m.Errored
	total := settled + int64(m.PendingLength+m.FrontierLength+m.InFlight)
	p.bar.SetTotal(total, false)
	p.bar.SetCurrent(settled)
}

// AddURL implements application.MetricsObserver
func (p *Progress) AddURL(string) {}

// Finish completes the bar and waits for the final render
func (p *Progress) Finish() {
	p.bar.SetTotal(-1, true)
	p.progress.Wait()
}

func barWidth() int {
	width := TerminalWidth() / 3
	if width < 20 {
		return 20
	}
	return width
}
