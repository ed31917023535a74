// Package alloc tracks word allocation in the data region of a PIO file.
//
// A PIO data region is append-only. Arrays are never resized or removed in
// place; adding an array means placing it at the current end of data and
// moving the trailer past it. This package records that bookkeeping for the
// append engine.
//
// # Usage
//
// Create an allocator over the region between the header and the trailer,
// record the arrays already there, then place new arrays:
//
//	a := alloc.New(hdr.HeaderLength, hdr.TrailerOffset)
//	for _, h := range headers {
//	    a.Reserve(h.Offset, h.Length, h.Key())
//	}
//	offset := a.Alloc(numCell, "processor_id_0") // old trailer offset
//	newTrailer := a.End()
//
// [Allocator.Validate] reports arrays outside the region and allocations
// that overlap anything else.
package alloc
