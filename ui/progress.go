package ui

import (
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Bar is a running progress indicator. Byte bars are fed through Write.
type Bar interface {
	io.Writer
	Add(n int) error
	Finish() error
}

// Progress creates bars.
type Progress interface {
	// Bytes tracks a download; total is -1 when the size is unknown.
	Bytes(total int64, description string) Bar
	// Count tracks a number of items.
	Count(total int, description string) Bar
}

// Bars draws progress bars on Out (stderr when nil).
type Bars struct {
	Out io.Writer
}

// Bytes returns a byte-counting bar.
func (b Bars) Bytes(total int64, description string) Bar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(b.writer()),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() { io.WriteString(b.writer(), "\n") }),
		progressbar.OptionSpinnerType(14),
	)
}

// Count returns an item-counting bar.
func (b Bars) Count(total int, description string) Bar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(b.writer()),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() { io.WriteString(b.writer(), "\n") }),
	)
}

func (b Bars) writer() io.Writer {
	if b.Out == nil {
		return os.Stderr
	}
	return b.Out
}

// Silent is a Progress that draws nothing.
type Silent struct{}

// Bytes returns a silent byte bar.
func (Silent) Bytes(total int64, description string) Bar {
	return progressbar.DefaultBytesSilent(total, description)
}

// Count returns a silent counter.
func (Silent) Count(total int, description string) Bar {
	return progressbar.DefaultSilent(int64(total), description)
}
