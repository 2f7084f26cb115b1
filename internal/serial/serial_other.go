//go:build !linux
// +build !linux

package serial

import "fmt"

// Port is an open serial device.
type Port struct{}

// Open is unsupported off Linux; the protocol engines themselves are
// platform independent and can run over any Port implementation.
func Open(path string, cfg Config) (*Port, error) {
	return nil, fmt.Errorf("serial ports are only supported on Linux")
}

func (p *Port) Read(buf []byte) (int, error)  { return 0, fmt.Errorf("port not open") }
func (p *Port) Write(buf []byte) (int, error) { return 0, fmt.Errorf("port not open") }
func (p *Port) Close() error                  { return nil }
