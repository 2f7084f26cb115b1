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
package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ostafen/oasis/internal/disk"
	"github.com/ostafen/oasis/internal/logger"
	"github.com/ostafen/oasis/pkg/ascii"
	ioutils "github.com/ostafen/oasis/pkg/util/io"
	osutils "github.com/ostafen/oasis/pkg/util/os"
	"github.com/spf13/cobra"
)

func DefineExtractCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "extract <image> [pattern] [dir]",
		Short:        "Extract files from an OASIS disk image to a host directory",
		Args:         cobra.RangeArgs(1, 3),
		SilenceUsage: true,
		RunE:         RunExtract,
	}

	cmd.Flags().BoolP("ascii", "a", false, "convert sequential text to host line endings")
	cmd.Flags().StringP("owner", "u", "*", "only extract files of this owner id")
	return cmd
}

func RunExtract(cmd *cobra.Command, args []string) error {
	pattern := "*.*"
	if len(args) > 1 {
		pattern = args[1]
	}
	outDir := "."
	if len(args) > 2 {
		outDir = args[2]
	}

	asciiMode, _ := cmd.Flags().GetBool("ascii")
	owner, err := disk.ParseOwner(cmd.Flag("owner").Value.String())
	if err != nil {
		return err
	}

	layout, closeFn, err := openLayout(args[0], false)
	if err != nil {
		return err
	}
	defer closeFn()

	if _, err := osutils.EnsureDir(outDir, false); err != nil {
		return err
	}

	log := logger.New(os.Stdout, logger.InfoLevel)

	matches := layout.FindDEB(pattern, owner)
	failed := 0
	for _, i := range matches {
		deb := &layout.Dir[i]
		path := filepath.Join(outDir, deb.HostFilename())

		log.Infof("extracting %s", path)

		data, err := layout.ReadFile(deb)
		if err != nil {
			log.Errorf("unable to read %s: %s", deb.DisplayName(), err)
			failed++
			continue
		}
		if asciiMode && deb.Format.Org() == disk.OrgSequential {
			data = ascii.FromOASIS(data)
		}

		if err := ioutils.CopyFile(path, bytes.NewReader(data)); err != nil {
			log.Errorf("unable to write %s: %s", path, err)
			failed++
			continue
		}

		mtime := deb.Timestamp.Time()
		_ = os.Chtimes(path, mtime, mtime)
	}

	log.Infof("%d file(s) extracted", len(matches)-failed)
	if failed > 0 {
		return fmt.Errorf("%d file(s) failed", failed)
	}
	return nil
}
