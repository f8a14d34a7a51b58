// Package trace implements the ASCII tracing sink (C14): a strictly
// write-out collaborator that records one line per simulation event.
//
// Grounded on the teacher's sim/trace package (decision-record types with
// no dependency on the simulation core) but reshaped from structured
// per-decision records to the core spec's line-oriented ASCII format
// (spec.md §6): `{+|-|r|t|d} <time> <path> <flit-summary>`.
package trace

import (
	"bufio"
	"fmt"
	"io"

	"github.com/nocsim/nocsim/noc/flit"
)

// EventKind is one of the five occurrences the core emits one Write call
// per occurrence for.
type EventKind int

const (
	TX EventKind = iota
	RX
	ENQUEUE
	DEQUEUE
	DROP
)

func (k EventKind) marker() string {
	switch k {
	case TX:
		return "t"
	case RX:
		return "r"
	case ENQUEUE:
		return "+"
	case DEQUEUE:
		return "-"
	case DROP:
		return "d"
	default:
		return "?"
	}
}

// Sink is the observer trait the core calls into once per occurrence of
// {TX, RX, ENQUEUE, DEQUEUE, DROP}. No string concatenation happens in the
// hot path on the core side — callers pass typed arguments and the sink
// alone decides how to render them.
type Sink interface {
	Write(kind EventKind, path string, summary Summary)
}

// Summary is a lightweight, allocation-free view of a flit for tracing.
type Summary struct {
	Type    flit.Type
	UID     uint32
	HeadUID uint32
	Bytes   int
}

// Summarize extracts a Summary from a flit without retaining the flit
// itself.
func Summarize(f flit.Flit) Summary {
	return Summary{
		Type:    f.Type(),
		UID:     f.UID(),
		HeadUID: f.HeadUID(),
		Bytes:   f.SizeBytes(),
	}
}

func (s Summary) String() string {
	return fmt.Sprintf("%s uid=%d head=%d bytes=%d", s.Type, s.UID, s.HeadUID, s.Bytes)
}

// NullSink discards every event; used when tracing is disabled.
type NullSink struct{}

func (NullSink) Write(EventKind, string, Summary) {}

// ASCIISink writes one line per event to an io.Writer in the core spec's
// `{+|-|r|t|d} <time> <path> <flit-summary>` format. Now is a clock reader
// (typically the Simulator's Now method) so the sink never needs to be
// told the time explicitly.
type ASCIISink struct {
	w   *bufio.Writer
	Now func() int64
}

// NewASCIISink wraps w for buffered writes. Callers must call Flush when
// done; lines still buffered at process exit are not written.
func NewASCIISink(w io.Writer, now func() int64) *ASCIISink {
	return &ASCIISink{w: bufio.NewWriter(w), Now: now}
}

func (s *ASCIISink) Write(kind EventKind, path string, summary Summary) {
	fmt.Fprintf(s.w, "%s %d %s %s\n", kind.marker(), s.Now(), path, summary)
}

// Flush drains buffered trace lines to the underlying writer.
func (s *ASCIISink) Flush() error {
	return s.w.Flush()
}
