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

// Package report serializes consistency-check results to an XML document
// other tooling can consume.
package report

import (
	"encoding/xml"
	"os"
	"runtime"
	"time"
)

// Header describes the tool run and the image it examined.
type Header struct {
	XMLName xml.Name `xml:"diskcheck"`
	Creator Creator  `xml:"creator"`
	Source  Source   `xml:"source"`
}

// Creator identifies the software that produced the report.
type Creator struct {
	Package   string `xml:"package"`
	Version   string `xml:"version"`
	Host      string `xml:"host"`
	OS        string `xml:"os"`
	Arch      string `xml:"arch"`
	StartTime string `xml:"start_time"`
}

// Source describes the examined disk image.
type Source struct {
	ImageFilename string `xml:"image_filename"`
	SectorSize    int    `xml:"sectorsize"`
	TotalSectors  int    `xml:"total_sectors"`
	Label         string `xml:"label"`
}

// Finding is one consistency result entry.
type Finding struct {
	XMLName  xml.Name `xml:"finding"`
	Severity string   `xml:"severity,attr"`
	File     string   `xml:"file,omitempty"`
	Message  string   `xml:"message"`
}

// Summary closes a report with aggregate counts.
type Summary struct {
	XMLName      xml.Name `xml:"summary"`
	FilesChecked int      `xml:"files_checked"`
	Errors       int      `xml:"errors"`
	Warnings     int      `xml:"warnings"`
}

// NewCreator fills the tool section from the runtime environment.
func NewCreator(pkg, version string) Creator {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return Creator{
		Package:   pkg,
		Version:   version,
		Host:      host,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		StartTime: time.Now().UTC().Format("2006-01-02T15:04:05Z"),
	}
}
