//go:build linux
// +build linux

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
package fuse

import (
	"context"
	"os"
	"sort"
	"sync"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"github.com/ostafen/oasis/internal/disk"
)

// DiskFS exposes the directory of an OASIS image as a read-only
// filesystem. File content is decoded lazily on first read and cached;
// OASIS volumes are small enough that whole files fit comfortably.
type DiskFS struct {
	layout *disk.DiskLayout

	mtx   sync.Mutex
	cache map[string][]byte

	mountpoint string
}

func (d *DiskFS) Root() (fs.Node, error) {
	return &Dir{fs: d}, nil
}

func (d *DiskFS) lookup(name string) (*disk.DEB, bool) {
	for i := range d.layout.Dir {
		deb := &d.layout.Dir[i]
		if deb.Format.IsRegular() && deb.HostFilename() == name {
			return deb, true
		}
	}
	return nil, false
}

func (d *DiskFS) content(deb *disk.DEB) ([]byte, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	name := deb.HostFilename()
	if data, ok := d.cache[name]; ok {
		return data, nil
	}

	data, err := d.layout.ReadFile(deb)
	if err != nil {
		return nil, err
	}
	d.cache[name] = data
	return data, nil
}

// Dir implements both fs.Node and fs.HandleReadDirAller
type Dir struct {
	fs *DiskFS
}

func (*Dir) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = os.ModeDir | 0555
	return nil
}

func (d *Dir) Lookup(ctx context.Context, name string) (fs.Node, error) {
	deb, ok := d.fs.lookup(name)
	if !ok {
		return nil, fuse.ENOENT
	}
	return File{fs: d.fs, deb: deb}, nil
}

func (d *Dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	var dirEntries []fuse.Dirent
	for i := range d.fs.layout.Dir {
		deb := &d.fs.layout.Dir[i]
		if !deb.Format.IsRegular() {
			continue
		}
		dirEntries = append(dirEntries, fuse.Dirent{
			Name: deb.HostFilename(),
			Type: fuse.DT_File,
		})
	}
	sort.Slice(dirEntries, func(i, j int) bool {
		return dirEntries[i].Name < dirEntries[j].Name
	})
	for i := range dirEntries {
		dirEntries[i].Inode = uint64(i)
	}
	return dirEntries, nil
}

// File implements both fs.Node and fs.HandleReader
type File struct {
	fs  *DiskFS
	deb *disk.DEB
}

func (f File) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = 0444
	a.Size = uint64(f.deb.LogicalSize())
	a.Mtime = f.deb.Timestamp.Time()
	return nil
}

func (f File) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	data, err := f.fs.content(f.deb)
	if err != nil {
		return err
	}

	offset := req.Offset
	if offset >= int64(len(data)) {
		resp.Data = []byte{}
		return nil
	}

	end := offset + int64(req.Size)
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	resp.Data = data[offset:end]
	return nil
}
