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
package disk

import (
	"fmt"
	"strconv"
	"strings"
)

// DisplayName composes the canonical "NAME.TYPE" form of a DEB: trailing
// spaces stripped from both halves, with the dot kept when the type is
// empty so the two always round-trip distinctly.
func (d *DEB) DisplayName() string {
	return d.NameString() + "." + d.TypeString()
}

// HostFilename is the host-side name a file is extracted to. It appends
// the organization letter, and for record-oriented files the record
// length, so the original DEB can be recomposed on re-import.
func (d *DEB) HostFilename() string {
	name := d.DisplayName() + "_" + string(d.Format.Char())
	if rl := d.RecordLen(); rl > 0 {
		name += "_" + strconv.Itoa(rl)
	}
	return name
}

// ParseHostFilename splits a host filename back into DEB metadata. The
// name and type are matched leniently on case and normalized to upper
// case; the optional "_F" and "_F_RL" suffixes select the organization
// and record length. Files without a suffix default to sequential.
func ParseHostFilename(host string) (*DEB, error) {
	deb := &DEB{Format: OrgSequential}

	// Peel the record length, then the format letter.
	if i := strings.LastIndexByte(host, '_'); i >= 0 {
		if rl, err := strconv.Atoi(host[i+1:]); err == nil && rl >= 0 {
			deb.FFD1 = uint16(rl)
			host = host[:i]
		}
	}
	if i := strings.LastIndexByte(host, '_'); i >= 0 && len(host)-i == 2 {
		if org, ok := orgFromChar(host[i+1] &^ 0x20); ok {
			deb.Format = FileFormat(org)
			host = host[:i]
		}
	}

	name, ftype := host, ""
	if i := strings.IndexByte(host, '.'); i >= 0 {
		name, ftype = host[:i], host[i+1:]
	}

	if name == "" {
		return nil, fmt.Errorf("empty file name in %q", host)
	}
	if len(name) > FNameLen {
		return nil, fmt.Errorf("file name %q longer than %d characters", name, FNameLen)
	}
	if len(ftype) > FTypeLen {
		return nil, fmt.Errorf("file type %q longer than %d characters", ftype, FTypeLen)
	}

	deb.SetName(name, ftype)
	return deb, nil
}

// Match reports whether a composed "NAME.TYPE" string matches a wildcard
// pattern. '?' matches exactly one character, '*' any run (possibly
// empty); comparison is case-insensitive.
func Match(pattern, name string) bool {
	p := strings.ToUpper(pattern)
	s := strings.ToUpper(name)

	// Iterative glob match with single-star backtracking.
	pi, si := 0, 0
	star, mark := -1, 0

	for si < len(s) {
		switch {
		case pi < len(p) && (p[pi] == '?' || p[pi] == s[si]):
			pi++
			si++
		case pi < len(p) && p[pi] == '*':
			star, mark = pi, si
			pi++
		case star >= 0:
			mark++
			pi, si = star+1, mark
		default:
			return false
		}
	}

	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}

// MatchDEB matches a DEB's display name against a pattern and an owner
// filter; owner -1 matches any owner.
func MatchDEB(d *DEB, pattern string, owner int) bool {
	if !d.Format.IsRegular() {
		return false
	}
	if owner >= 0 && int(d.OwnerID) != owner {
		return false
	}
	return Match(pattern, d.DisplayName())
}

// ParseOwner parses an owner filter argument: "*" or "-1" match any
// owner, a 0..255 integer selects one.
func ParseOwner(s string) (int, error) {
	if s == "" || s == "*" || s == "-1" {
		return -1, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 || v > 255 {
		return 0, fmt.Errorf("invalid owner filter %q", s)
	}
	return v, nil
}
