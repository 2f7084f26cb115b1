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

	"github.com/ostafen/oasis/internal/comm"
	"github.com/ostafen/oasis/internal/disk"
	"github.com/ostafen/oasis/pkg/pbar"
	"github.com/spf13/cobra"
)

func DefineSendCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <port> <image> <pattern>...",
		Short: "Send files from a disk image over a serial line",
		Long: `The 'send' command transmits files matching the given patterns to a
receiving OASIS system using the OASIS serial transfer protocol.`,
		Args:         cobra.MinimumNArgs(3),
		SilenceUsage: true,
		RunE:         RunSend,
	}

	addSerialFlags(cmd)
	cmd.Flags().Duration("pacing", 0, "delay inserted before each packet")
	cmd.Flags().Bool("strict-handshake", false, "reject a handshake ACK with the wrong toggle")
	cmd.Flags().StringP("owner", "u", "*", "only send files of this owner id")
	return cmd
}

func RunSend(cmd *cobra.Command, args []string) error {
	owner, err := disk.ParseOwner(cmd.Flag("owner").Value.String())
	if err != nil {
		return err
	}

	layout, closeLayout, err := openLayout(args[1], false)
	if err != nil {
		return err
	}
	defer closeLayout()

	var matches []int
	for _, pattern := range args[2:] {
		matches = append(matches, layout.FindDEB(pattern, owner)...)
	}
	if len(matches) == 0 {
		return fmt.Errorf("no files match")
	}

	port, closePort, err := openPort(cmd, args[0])
	if err != nil {
		return err
	}
	defer closePort()

	log := newLogger(cmd)

	sender := comm.NewSender(port, log)
	sender.Pacing, _ = cmd.Flags().GetDuration("pacing")
	sender.StrictHandshake, _ = cmd.Flags().GetBool("strict-handshake")

	log.Info("waiting for receiver...")
	if err := sender.Handshake(); err != nil {
		return err
	}

	var totalBytes int64
	for _, i := range matches {
		totalBytes += int64(layout.Dir[i].LogicalSize())
	}
	bar := pbar.New(totalBytes)

	failed := 0
	for _, i := range matches {
		deb := &layout.Dir[i]

		data, err := layout.ReadFile(deb)
		if err != nil {
			log.Errorf("unable to read %s: %s", deb.DisplayName(), err)
			failed++
			continue
		}

		log.Infof("sending %s (%d bytes)", deb.DisplayName(), len(data))
		if err := sender.SendFile(deb, data); err != nil {
			log.Errorf("transfer of %s failed: %s", deb.DisplayName(), err)
			failed++
			continue
		}

		bar.SentBytes += int64(len(data))
		bar.FilesDone++
		bar.Render(false)
	}
	bar.Finish()

	if err := sender.Finish(); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d file(s) failed", failed)
	}
	log.Infof("%d file(s) sent", len(matches))
	return nil
}
