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
	"github.com/ostafen/oasis/internal/comm"
	osutils "github.com/ostafen/oasis/pkg/util/os"
	"github.com/spf13/cobra"
)

func DefineRecvCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recv <port> <dir>",
		Short: "Receive files over a serial line into a host directory",
		Long: `The 'recv' command waits for a sending OASIS system, then stores every
transferred file in the given directory using the host filename encoding,
with the file's timestamp restored from its directory entry.`,
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE:         RunRecv,
	}

	addSerialFlags(cmd)
	cmd.Flags().BoolP("ascii", "a", false, "convert sequential text to host line endings")
	return cmd
}

func RunRecv(cmd *cobra.Command, args []string) error {
	outDir := args[1]
	if _, err := osutils.EnsureDir(outDir, false); err != nil {
		return err
	}

	port, closePort, err := openPort(cmd, args[0])
	if err != nil {
		return err
	}
	defer closePort()

	asciiMode, _ := cmd.Flags().GetBool("ascii")

	sink := &comm.HostDirSink{Dir: outDir, ASCII: asciiMode}
	recv := comm.NewReceiver(port, sink, newLogger(cmd))

	return recv.Run()
}
