// Package diag writes step-stamped coordinate dumps for failed constraint
// steps. The sink is a diagnostic courtesy: it never fails outward, I/O
// errors are logged and swallowed so constraint correctness stays
// independent of the filesystem.
package diag

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/velisar/rigidmd/pbc"
	"github.com/velisar/rigidmd/vec"
)

// FileSink dumps before/after coordinates as plain text files, one pair per
// failing step, into a fixed directory.
type FileSink struct {
	dir      string
	log      *slog.Logger
	suppress bool
}

// Option configures a FileSink.
type Option func(*FileSink)

// WithLogger sets the structured log target.
func WithLogger(l *slog.Logger) Option {
	if l == nil {
		panic("diag: logger must not be nil")
	}
	return func(s *FileSink) { s.log = l }
}

// WithSuppression disables the file writes while keeping the log notice,
// for runs where repeated dumps would flood the working directory.
func WithSuppression(suppress bool) Option {
	return func(s *FileSink) { s.suppress = suppress }
}

// NewFileSink returns a sink writing into dir. The directory is created on
// first use, not here.
func NewFileSink(dir string, opts ...Option) *FileSink {
	s := &FileSink{dir: dir, log: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Dump writes the pre- and post-constraint coordinates of one failing step.
// Never fails outward.
func (s *FileSink) Dump(step int64, x, xprime []vec.Vec3, box pbc.Box) {
	if s.suppress {
		s.log.Info("coordinate dump suppressed", "step", step)
		return
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.log.Error("coordinate dump failed", "step", step, "error", err)
		return
	}

	before := filepath.Join(s.dir, fmt.Sprintf("step%d_before.dat", step))
	after := filepath.Join(s.dir, fmt.Sprintf("step%d_after.dat", step))
	for _, d := range []struct {
		path   string
		coords []vec.Vec3
	}{{before, x}, {after, xprime}} {
		if err := writeDump(d.path, step, d.coords, box); err != nil {
			s.log.Error("coordinate dump failed",
				"step", step, "path", d.path, "error", err)
			return
		}
	}
	s.log.Info("wrote coordinate dumps",
		"step", step, "before", before, "after", after)
}

func writeDump(path string, step int64, coords []vec.Vec3, box pbc.Box) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)

	fmt.Fprintf(w, "step %d, %d atoms\n", step, len(coords))
	for i := 0; i < 3; i++ {
		fmt.Fprintf(w, "box %14.8f %14.8f %14.8f\n", box[i][0], box[i][1], box[i][2])
	}
	for i, c := range coords {
		fmt.Fprintf(w, "%8d %14.8f %14.8f %14.8f\n", i, c[0], c[1], c[2])
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
