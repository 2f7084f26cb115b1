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
package report

import (
	"encoding/xml"
	"io"
)

// Writer streams a check report: header first, findings as they are
// produced, the summary on Close.
type Writer struct {
	enc     *xml.Encoder
	w       io.Writer
	summary Summary
}

// NewWriter starts a report document on w.
func NewWriter(w io.Writer, hdr Header) (*Writer, error) {
	if _, err := w.Write([]byte(xml.Header)); err != nil {
		return nil, err
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")

	start := xml.StartElement{Name: xml.Name{Local: "diskcheck"}}
	if err := enc.EncodeToken(start); err != nil {
		return nil, err
	}
	if err := enc.EncodeElement(hdr.Creator, xml.StartElement{Name: xml.Name{Local: "creator"}}); err != nil {
		return nil, err
	}
	if err := enc.EncodeElement(hdr.Source, xml.StartElement{Name: xml.Name{Local: "source"}}); err != nil {
		return nil, err
	}
	return &Writer{enc: enc, w: w}, nil
}

// WriteFinding appends one finding and folds it into the summary counts.
func (w *Writer) WriteFinding(f Finding) error {
	if f.Severity == "ERROR" {
		w.summary.Errors++
	} else {
		w.summary.Warnings++
	}
	return w.enc.Encode(f)
}

// Close writes the summary and the closing tag.
func (w *Writer) Close(filesChecked int) error {
	w.summary.FilesChecked = filesChecked
	if err := w.enc.Encode(w.summary); err != nil {
		return err
	}
	if err := w.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: "diskcheck"}}); err != nil {
		return err
	}
	return w.enc.Flush()
}
