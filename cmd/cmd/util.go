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
	"os"
	"time"

	"github.com/ostafen/oasis/internal/comm"
	"github.com/ostafen/oasis/internal/disk"
	"github.com/ostafen/oasis/internal/logger"
	"github.com/ostafen/oasis/internal/pcap"
	"github.com/ostafen/oasis/internal/serial"
	"github.com/spf13/cobra"
)

// openLayout opens a container and loads its filesystem surfaces,
// returning a cleanup that flushes and closes the container.
func openLayout(path string, writable bool) (*disk.DiskLayout, func(), error) {
	c, err := disk.Open(path, writable)
	if err != nil {
		return nil, nil, err
	}

	layout, err := disk.LoadLayout(c)
	if err != nil {
		c.Close()
		return nil, nil, err
	}
	return layout, func() { _ = c.Close() }, nil
}

func newLogger(cmd *cobra.Command) *logger.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	return logger.New(os.Stdout, logger.ParseLevel(level))
}

// addSerialFlags registers the line-parameter flags shared by send and
// recv.
func addSerialFlags(cmd *cobra.Command) {
	cmd.Flags().Int("baud", serial.DefaultBaudRate, "line speed in bits per second")
	cmd.Flags().Bool("rtscts", false, "enable RTS/CTS hardware flow control")
	cmd.Flags().Duration("timeout", 2*time.Second, "serial read timeout")
	cmd.Flags().String("pcap", "", "record traffic to the given capture file")
	cmd.Flags().String("log-level", "INFO", "log level (DEBUG, INFO, WARN, ERROR)")
}

// openPort opens the serial device per flags, optionally wrapping it
// with pcap capture. The cleanup closes both.
func openPort(cmd *cobra.Command, path string) (comm.Port, func(), error) {
	baud, _ := cmd.Flags().GetInt("baud")
	rtscts, _ := cmd.Flags().GetBool("rtscts")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	sp, err := serial.Open(path, serial.Config{
		BaudRate:    baud,
		RTSCTS:      rtscts,
		ReadTimeout: timeout,
	})
	if err != nil {
		return nil, nil, err
	}

	var port comm.Port = sp
	closeFn := func() { _ = sp.Close() }

	if capPath, _ := cmd.Flags().GetString("pcap"); capPath != "" {
		w, err := pcap.Create(capPath)
		if err != nil {
			sp.Close()
			return nil, nil, err
		}
		port = comm.WithCapture(port, w)
		closeFn = func() {
			_ = sp.Close()
			_ = w.Close()
		}
	}
	return port, closeFn, nil
}
