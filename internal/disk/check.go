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
)

// Severity of a consistency finding.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "ERROR"
	}
	return "WARN"
}

// Finding is one consistency-check result, tied to the file it concerns
// when there is one.
type Finding struct {
	Severity Severity
	File     string // display name, empty for disk-level findings
	Message  string
}

func (f Finding) String() string {
	if f.File == "" {
		return fmt.Sprintf("[%s] %s", f.Severity, f.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", f.Severity, f.File, f.Message)
}

// CheckResult aggregates a full consistency pass.
type CheckResult struct {
	FilesChecked int
	Findings     []Finding
}

// Errors counts error-severity findings.
func (r *CheckResult) Errors() int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			n++
		}
	}
	return n
}

// Warnings counts warning-severity findings.
func (r *CheckResult) Warnings() int {
	return len(r.Findings) - r.Errors()
}

type checker struct {
	layout  *DiskLayout
	result  CheckResult
	claimed []int // per-sector claimant: -1 free, -2 system, else dir index
	badLBAs map[int]bool
}

func (c *checker) errorf(file, format string, args ...any) {
	c.result.Findings = append(c.result.Findings, Finding{
		Severity: SeverityError,
		File:     file,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (c *checker) warnf(file, format string, args ...any) {
	c.result.Findings = append(c.result.Findings, Finding{
		Severity: SeverityWarning,
		File:     file,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Check runs a read-only consistency pass over the layout, optionally
// restricted to files matching pattern.
func (l *DiskLayout) Check(pattern string, owner int) *CheckResult {
	if pattern == "" {
		pattern = "*.*"
	}

	capacity := l.Alloc.NumBlocks() * SectorsPerBlock
	physical := l.container.TotalSectors()

	c := &checker{
		layout:  l,
		claimed: make([]int, capacity),
		badLBAs: map[int]bool{},
	}
	for i := range c.claimed {
		c.claimed[i] = -1
	}

	// IMD containers know which sectors the imager could not read.
	if imdc, ok := l.container.(*IMDImage); ok {
		for _, lba := range imdc.BadSectors() {
			c.badLBAs[lba] = true
		}
	}

	// System areas: boot sector, fsblock+AM, additional AM sectors, the
	// directory, and everything past the physical end of the disk.
	c.claimSystem(0)
	c.claimSystem(1)
	for s := 0; s < l.FS.AdditionalAMSectors(); s++ {
		c.claimSystem(2 + s)
	}
	dirStart := l.FS.DirStartSector()
	for s := 0; s < l.FS.DirSectorsMax(); s++ {
		c.claimSystem(dirStart + s)
	}
	for lba := physical; lba < capacity; lba++ {
		c.claimSystem(lba)
	}

	for i := range l.Dir {
		deb := &l.Dir[i]
		if !MatchDEB(deb, pattern, owner) {
			continue
		}
		c.result.FilesChecked++
		c.checkFile(i)
	}

	c.checkOrphans(physical)

	// free_blocks accounting against the map population.
	if free := l.Alloc.CountFreeUpTo(l.TotalBlocks()); int(l.FS.FreeBlocks) != free {
		c.errorf("", "free_blocks is %d but the allocation map has %d free blocks",
			l.FS.FreeBlocks, free)
	}

	return &c.result
}

func (c *checker) claimSystem(lba int) {
	if lba >= 0 && lba < len(c.claimed) {
		c.claimed[lba] = -2
	}
}

// claim records ownership of one sector by a file, reporting sharing and
// allocation-map disagreements.
func (c *checker) claim(dirIndex, lba int) {
	deb := &c.layout.Dir[dirIndex]

	if lba < 0 || lba >= len(c.claimed) {
		c.errorf(deb.DisplayName(), "claims sector %d outside the allocation map", lba)
		return
	}

	switch owner := c.claimed[lba]; {
	case owner == -1:
		c.claimed[lba] = dirIndex
	case owner == -2:
		c.errorf(deb.DisplayName(), "claims system sector %d", lba)
	case owner != dirIndex:
		c.errorf(deb.DisplayName(), "shares sector %d with %s",
			lba, c.layout.Dir[owner].DisplayName())
	}

	if alloc, err := c.layout.Alloc.IsAllocated(lba / SectorsPerBlock); err == nil && !alloc {
		c.errorf(deb.DisplayName(), "sector %d lies in unallocated block %d",
			lba, lba/SectorsPerBlock)
	}

	if c.badLBAs[lba] {
		c.errorf(deb.DisplayName(), "uses bad sector %d", lba)
	}
}

func (c *checker) checkFile(dirIndex int) {
	l := c.layout
	deb := &l.Dir[dirIndex]
	name := deb.DisplayName()
	physical := l.container.TotalSectors()

	if !deb.Timestamp.IsValid() {
		c.warnf(name, "timestamp %s has out-of-range fields", deb.Timestamp)
	}
	if int(deb.BlockCount) > l.TotalBlocks() {
		c.errorf(name, "block count %d exceeds disk capacity of %d blocks",
			deb.BlockCount, l.TotalBlocks())
	}
	if deb.BlockCount > 0 && deb.StartSector == 0 {
		if deb.Format.Org() == OrgSequential {
			c.errorf(name, "allocated file has start sector 0")
		} else {
			c.warnf(name, "allocated file has start sector 0")
		}
	}
	if int(deb.StartSector) >= len(c.claimed) {
		c.errorf(name, "start sector %d outside the allocation map", deb.StartSector)
		return
	}
	if end := int(deb.StartSector) + int(deb.BlockCount)*SectorsPerBlock; deb.Format.Org() != OrgSequential && end > physical {
		c.errorf(name, "extends to sector %d past the physical end %d", end, physical)
	}

	if deb.BlockCount == 0 {
		return
	}

	if deb.Format.Org() == OrgSequential {
		c.checkSequential(dirIndex)
		return
	}

	for s := 0; s < int(deb.BlockCount)*SectorsPerBlock; s++ {
		c.claim(dirIndex, int(deb.StartSector)+s)
	}
}

func (c *checker) checkSequential(dirIndex int) {
	l := c.layout
	deb := &l.Dir[dirIndex]
	name := deb.DisplayName()

	sectors := 0
	last, err := l.WalkChain(deb, func(lba int) error {
		sectors++
		c.claim(dirIndex, lba)
		return nil
	})
	if err != nil {
		c.errorf(name, "chain walk failed: %v", err)
		return
	}

	if allocated := int(deb.BlockCount) * SectorsPerBlock; sectors > allocated {
		c.warnf(name, "chain has %d sectors but only %d are allocated", sectors, allocated)
	}
	if last != int(deb.FFD2) {
		c.errorf(name, "chain ends at sector %d but the directory records %d", last, deb.FFD2)
	}
}

// checkOrphans flags allocated blocks none of whose sectors are claimed
// by a file or system area.
func (c *checker) checkOrphans(physical int) {
	l := c.layout
	for block := 0; block < l.TotalBlocks(); block++ {
		alloc, err := l.Alloc.IsAllocated(block)
		if err != nil || !alloc {
			continue
		}

		used := false
		for s := 0; s < SectorsPerBlock; s++ {
			lba := block*SectorsPerBlock + s
			if lba < physical && lba < len(c.claimed) && c.claimed[lba] != -1 {
				used = true
				break
			}
		}
		if !used {
			c.errorf("", "allocated block %d is not used by any file", block)
		}
	}
}
