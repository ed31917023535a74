// Package alloc tracks word allocation in the data region of a PIO file.
package alloc

import (
	"fmt"
)

// Allocator manages the data region of a container being rewritten.
// The region is append-only: new arrays are always placed at the current
// end of data, which then advances. Arrays already present in the source
// file are recorded with Reserve so the layout can be validated.
//
// An Allocator belongs to one rewrite and is not safe for concurrent use.
type Allocator struct {
	// base is the first word of the data region (the header length)
	base int64

	// end is the current end of data; the trailer starts here
	end int64

	reserved    []Extent
	allocations []Extent
}

// Extent is a run of words in the data region.
type Extent struct {
	Offset int64
	Length int64
	Tag    string // array key
}

// End returns the word just past the extent.
func (e Extent) End() int64 {
	return e.Offset + e.Length
}

// New creates an allocator for a data region spanning [base, end).
func New(base, end int64) *Allocator {
	return &Allocator{base: base, end: end}
}

// Reserve records an existing array. It does not move the end of data.
func (a *Allocator) Reserve(offset, length int64, tag string) {
	a.reserved = append(a.reserved, Extent{Offset: offset, Length: length, Tag: tag})
}

// Alloc places length words at the end of data and returns their offset.
func (a *Allocator) Alloc(length int64, tag string) int64 {
	offset := a.end
	if length <= 0 {
		return offset
	}
	a.end += length
	a.allocations = append(a.allocations, Extent{Offset: offset, Length: length, Tag: tag})
	return offset
}

// End returns the current end of data.
func (a *Allocator) End() int64 {
	return a.end
}

// Validate checks that every extent lies inside the data region and that
// allocations neither overlap each other nor any reserved extent.
// Reserved extents may overlap each other; the source file owns them.
func (a *Allocator) Validate() error {
	for _, set := range [][]Extent{a.reserved, a.allocations} {
		for _, e := range set {
			if e.Offset < a.base {
				return fmt.Errorf("%s at word %d is before data start %d", e.Tag, e.Offset, a.base)
			}
			if e.End() > a.end {
				return fmt.Errorf("%s at word %d length %d extends past end of data %d", e.Tag, e.Offset, e.Length, a.end)
			}
		}
	}

	for i, a1 := range a.allocations {
		for _, a2 := range a.allocations[i+1:] {
			if overlaps(a1, a2) {
				return fmt.Errorf("overlapping allocations: %s [%d, %d) and %s [%d, %d)",
					a1.Tag, a1.Offset, a1.End(), a2.Tag, a2.Offset, a2.End())
			}
		}
		for _, r := range a.reserved {
			if overlaps(a1, r) {
				return fmt.Errorf("allocation %s [%d, %d) overlaps existing array %s [%d, %d)",
					a1.Tag, a1.Offset, a1.End(), r.Tag, r.Offset, r.End())
			}
		}
	}

	return nil
}

func overlaps(a, b Extent) bool {
	if a.Length <= 0 || b.Length <= 0 {
		return false
	}
	return a.Offset < b.End() && b.Offset < a.End()
}
