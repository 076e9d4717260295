package capture

import (
	"bytes"
	"errors"
	"sync"

	"gocv.io/x/gocv"
)

// ErrNoFrame is returned by Preview.JPEG before the first frame arrives.
var ErrNoFrame = errors.New("no preview frame yet")

// Preview holds the most recent pipeline frame so viewers never read the
// camera device themselves.
type Preview struct {
	mu    sync.Mutex
	frame gocv.Mat
	has   bool
	seq   uint64
}

// NewPreview creates an empty Preview.
func NewPreview() *Preview {
	return &Preview{frame: gocv.NewMat()}
}

// Update replaces the stored frame with a copy of frame.
func (p *Preview) Update(frame *gocv.Mat) {
	if frame == nil || frame.Empty() {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	frame.CopyTo(&p.frame)
	p.has = true
	p.seq++
}

// JPEG encodes the stored frame. seq increases with every Update, so callers
// can skip frames they have already sent.
func (p *Preview) JPEG() (data []byte, seq uint64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.has {
		return nil, 0, ErrNoFrame
	}
	buf, err := gocv.IMEncode(".jpg", p.frame)
	if err != nil {
		return nil, 0, err
	}
	defer buf.Close()
	return bytes.Clone(buf.GetBytes()), p.seq, nil
}

// Close releases the stored frame.
func (p *Preview) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frame.Close()
	p.frame = gocv.NewMat()
	p.has = false
}
