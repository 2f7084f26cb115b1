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
package comm

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/ostafen/oasis/internal/disk"
	"github.com/ostafen/oasis/pkg/ascii"
	ioutils "github.com/ostafen/oasis/pkg/util/io"
)

// HostDirSink writes received files into a host directory. Content is
// buffered per file and flushed on CLOSE, when the final length and
// timestamp are known.
type HostDirSink struct {
	Dir string

	// ASCII converts sequential text to host line endings on close.
	ASCII bool

	buf bytes.Buffer
}

func (s *HostDirSink) Open(deb *disk.DEB) error {
	s.buf.Reset()
	return nil
}

func (s *HostDirSink) Write(data []byte) error {
	_, err := s.buf.Write(data)
	return err
}

func (s *HostDirSink) Close(deb *disk.DEB) error {
	data := s.buf.Bytes()
	if s.ASCII && deb.Format.Org() == disk.OrgSequential {
		data = ascii.FromOASIS(data)
	}

	path := filepath.Join(s.Dir, deb.HostFilename())
	if err := ioutils.CopyFile(path, bytes.NewReader(data)); err != nil {
		return err
	}

	mtime := deb.Timestamp.Time()
	return os.Chtimes(path, mtime, mtime)
}
