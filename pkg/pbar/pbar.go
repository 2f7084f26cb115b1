// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package pbar

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ostafen/oasis/pkg/util/format"
)

const MinRefreshRate = time.Millisecond * 500

// TransferBar renders a single-line progress bar for a running file
// transfer.
type TransferBar struct {
	TotalBytes     int64
	SentBytes      int64
	FilesDone      int
	StartTime      time.Time
	LastUpdateTime time.Time
}

// New initializes a bar for the given total payload size.
func New(totalBytes int64) *TransferBar {
	return &TransferBar{
		TotalBytes: totalBytes,
		StartTime:  time.Now(),
	}
}

// Render updates the progress line; unforced updates are rate limited.
func (b *TransferBar) Render(force bool) {
	if !force && time.Since(b.LastUpdateTime) < MinRefreshRate {
		return
	}
	b.LastUpdateTime = time.Now()

	percentage := 100.0
	if b.TotalBytes > 0 {
		percentage = float64(b.SentBytes) / float64(b.TotalBytes) * 100
	}

	barLength := 20
	filledLen := int(float64(barLength) * percentage / 100)
	var bar string
	if filledLen >= barLength {
		bar = strings.Repeat("=", barLength)
	} else {
		bar = strings.Repeat("=", filledLen) + ">" + strings.Repeat(" ", barLength-filledLen-1)
	}

	elapsed := time.Since(b.StartTime).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(b.SentBytes) / elapsed
	}

	fmt.Fprintf(os.Stdout, "\r[INFO] Progress: [%s] %3.0f%% (%s/%s) | Files: %d | @ %s/s    ",
		bar,
		percentage,
		format.FormatBytes(b.SentBytes),
		format.FormatBytes(b.TotalBytes),
		b.FilesDone,
		format.FormatBytes(int64(rate)))

	os.Stdout.Sync()
}

// Finish forces a final render and terminates the line.
func (b *TransferBar) Finish() {
	b.Render(true)
	fmt.Println()
}
