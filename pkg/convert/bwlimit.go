// pkg/convert/bwlimit.go

package convert

import (
	"io"

	"github.com/juju/ratelimit"
)

type limitedWriter struct {
	io.Writer
	w *ratelimit.Bucket
}

func (l *limitedWriter) Write(buf []byte) (int, error) {
	if l.w != nil {
		l.w.Wait(int64(len(buf)))
	}
	return l.Writer.Write(buf)
}

// newLimitedWriter caps the write rate of w at limit bytes per second.
// A limit of zero or less leaves w unthrottled.
func newLimitedWriter(w io.Writer, limit int64) io.Writer {
	if limit <= 0 {
		return w
	}
	return &limitedWriter{w, ratelimit.NewBucketWithRate(float64(limit), limit)}
}
