package voice

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// InterimPrefix marks a line as an interim transcript.
const InterimPrefix = "~"

// LineRecognizer is a Recognizer fed by newline-delimited transcripts in a
// file or named pipe, one utterance per line. Lines starting with
// InterimPrefix are interim results; all others are final. Each Listen
// resumes after the last line already read, so a growing file is tailed and
// reaching EOF ends the run.
type LineRecognizer struct {
	fs   afero.Fs
	path string

	mu     sync.Mutex
	offset int64
}

// NewLineRecognizer creates a LineRecognizer for path on fs.
func NewLineRecognizer(fs afero.Fs, path string) *LineRecognizer {
	return &LineRecognizer{fs: fs, path: path}
}

// Listen implements Recognizer.
func (r *LineRecognizer) Listen(ctx context.Context) (<-chan Result, error) {
	f, err := r.fs.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open transcript source: %w", err)
	}

	r.mu.Lock()
	offset := r.offset
	r.mu.Unlock()

	if info, err := f.Stat(); err == nil && info.Mode().IsRegular() {
		if info.Size() < offset {
			// Truncated; start over.
			offset = 0
		}
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			f.Close()
			return nil, fmt.Errorf("seek transcript source: %w", err)
		}
	} else {
		offset = 0
	}

	results := make(chan Result)
	go func() {
		defer close(results)
		defer f.Close()

		reader := bufio.NewReader(f)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err != io.EOF {
					send(ctx, results, Result{Err: fmt.Errorf("read transcript source: %w", err)})
				}
				// A partial last line is left for the next run.
				return
			}
			offset += int64(len(line))
			r.mu.Lock()
			r.offset = offset
			r.mu.Unlock()

			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			res := Result{Text: text, Final: true}
			if interim, ok := strings.CutPrefix(text, InterimPrefix); ok {
				res = Result{Text: strings.TrimSpace(interim)}
			}
			if !send(ctx, results, res) {
				return
			}
		}
	}()

	return results, nil
}

func send(ctx context.Context, ch chan<- Result, r Result) bool {
	select {
	case ch <- r:
		return true
	case <-ctx.Done():
		return false
	}
}
