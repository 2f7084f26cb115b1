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
	"fmt"
	"os"

	"github.com/ostafen/oasis/internal/disk"
	"github.com/ostafen/oasis/internal/env"
	"github.com/ostafen/oasis/pkg/report"
	"github.com/spf13/cobra"
)

func DefineCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "check <image> [pattern]",
		Short:        "Check an OASIS disk image for consistency",
		Long: `The 'check' command runs a read-only consistency pass over a disk image:
directory entry sanity, sequential chain integrity, cross-file sector
sharing, allocation-map agreement and orphaned blocks. For ImageDisk
containers, sectors the imager recorded as bad are cross-referenced
against the files using them.`,
		Args:         cobra.RangeArgs(1, 2),
		SilenceUsage: true,
		RunE:         RunCheck,
	}

	cmd.Flags().StringP("output", "o", "", "write an XML report to the given path")
	cmd.Flags().StringP("owner", "u", "*", "only check files of this owner id")
	return cmd
}

func RunCheck(cmd *cobra.Command, args []string) error {
	pattern := "*.*"
	if len(args) > 1 {
		pattern = args[1]
	}

	owner, err := disk.ParseOwner(cmd.Flag("owner").Value.String())
	if err != nil {
		return err
	}

	layout, closeFn, err := openLayout(args[0], false)
	if err != nil {
		return err
	}
	defer closeFn()

	result := layout.Check(pattern, owner)

	for _, f := range result.Findings {
		fmt.Println(f)
	}
	fmt.Printf("\n%d file(s) checked: %d error(s), %d warning(s)\n",
		result.FilesChecked, result.Errors(), result.Warnings())

	if outPath, _ := cmd.Flags().GetString("output"); outPath != "" {
		if err := writeReport(outPath, args[0], layout, result); err != nil {
			return err
		}
		fmt.Printf("report saved to %s\n", outPath)
	}

	if result.Errors() > 0 {
		return fmt.Errorf("%d consistency error(s)", result.Errors())
	}
	return nil
}

func writeReport(path, image string, layout *disk.DiskLayout, result *disk.CheckResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := report.NewWriter(f, report.Header{
		Creator: report.NewCreator(env.AppName, env.Version),
		Source: report.Source{
			ImageFilename: image,
			SectorSize:    disk.SectorSize,
			TotalSectors:  layout.Container().TotalSectors(),
			Label:         layout.FS.LabelString(),
		},
	})
	if err != nil {
		return err
	}

	for _, finding := range result.Findings {
		err := w.WriteFinding(report.Finding{
			Severity: finding.Severity.String(),
			File:     finding.File,
			Message:  finding.Message,
		})
		if err != nil {
			return err
		}
	}
	return w.Close(result.FilesChecked)
}
