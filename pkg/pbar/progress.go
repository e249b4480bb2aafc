package pbar

import (
	"io"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

const (
	UnitKiB int = decor.UnitKiB
	UnitKB  int = decor.UnitKB
)

// New returns a single progress bar rendered to out, or a no-op bar
// when quiet is set. A fetch or push drives exactly one side-band
// stream at a time, so this owns one mpb.Progress for the bar's own
// lifetime rather than the multi-bar container a concurrent table sync
// would need.
func New(out io.Writer, quiet bool, name string, unit int) Bar {
	if quiet {
		return &noopBar{}
	}
	p := mpb.New(mpb.WithOutput(out))
	pairFmt := "%d / %d"
	if unit != 0 {
		pairFmt = "% .2f / % .2f"
	}
	b := p.New(0,
		mpb.BarStyle().Lbound("[").Filler("=").Tip(">").Padding(" ").Rbound("]"),
		mpb.PrependDecorators(decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DidentRight}), decor.Counters(unit, pairFmt)),
		mpb.AppendDecorators(decor.Elapsed(decor.ET_STYLE_GO)),
		mpb.BarRemoveOnComplete(),
	)
	b.EnableTriggerComplete()
	return &bar{b: b, p: p}
}
