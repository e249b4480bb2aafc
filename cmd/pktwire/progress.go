package pktwire

import (
	"os"

	"github.com/mhauser/pktwire/pkg/pbar"
)

// barNotifier renders side-band progress (channel 2) and error (channel 3)
// chunks against a live progress bar, the way wrgl's own fetch/pull
// commands drive a pbar.Bar off the pack session's progress callback
// instead of printing raw side-band text.
type barNotifier struct {
	bar pbar.Bar
}

func newBarNotifier(quiet bool) *barNotifier {
	return &barNotifier{bar: pbar.New(os.Stderr, quiet, "remote", 0)}
}

func (n *barNotifier) Progress(b []byte) {
	n.bar.IncrBy(len(b))
}

func (n *barNotifier) ServerError(b []byte) {
	n.bar.Abort()
	os.Stderr.Write(b)
}

func (n *barNotifier) done() {
	n.bar.Done()
}
