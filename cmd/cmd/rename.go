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

	"github.com/ostafen/oasis/internal/disk"
	"github.com/spf13/cobra"
)

func DefineRenameCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "rename <image> <old> <new>",
		Short:        "Rename a file on an OASIS disk image",
		Args:         cobra.ExactArgs(3),
		SilenceUsage: true,
		RunE:         RunRename,
	}

	cmd.Flags().StringP("owner", "u", "*", "only rename a file of this owner id")
	return cmd
}

func RunRename(cmd *cobra.Command, args []string) error {
	owner, err := disk.ParseOwner(cmd.Flag("owner").Value.String())
	if err != nil {
		return err
	}

	layout, closeFn, err := openLayout(args[0], true)
	if err != nil {
		return err
	}
	defer closeFn()

	renamed, err := layout.Rename(args[1], args[2], owner)
	if err != nil {
		return err
	}
	if !renamed {
		fmt.Printf("no file matches %q\n", args[1])
		return nil
	}

	fmt.Printf("renamed %s to %s\n", args[1], args[2])
	return nil
}
