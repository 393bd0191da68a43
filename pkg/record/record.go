// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 net-ur-plot contributors

// Package record stores robot channel events as a CBOR stream so a drawing
// session can be inspected after the fact.
package record

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/jmpinit/net-ur-plot/pkg/robot"
	"github.com/jmpinit/net-ur-plot/pkg/urproto"
)

// FormatVersion is written in every header
const FormatVersion = 1

// encMode keeps sub-second timestamps, which the default Unix time encoding drops
var encMode = mustEncMode(cbor.EncOptions{Time: cbor.TimeRFC3339Nano})

func mustEncMode(opts cbor.EncOptions) cbor.EncMode {
	em, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("record: invalid CBOR options: %v", err))
	}
	return em
}

// ErrBadHeader is returned when a stream does not start with a valid header
var ErrBadHeader = errors.New("not a session recording")

// Header is the first item of a recording
type Header struct {
	Magic   string    `cbor:"1,keyasint"`
	Version uint      `cbor:"2,keyasint"`
	Started time.Time `cbor:"3,keyasint"`
	Robot   string    `cbor:"4,keyasint,omitempty"`
	Server  string    `cbor:"5,keyasint,omitempty"`
	Source  string    `cbor:"6,keyasint,omitempty"`
}

const headerMagic = "urplot"

// Record is one robot channel event
type Record struct {
	Time    time.Time       `cbor:"1,keyasint"`
	Kind    robot.EventKind `cbor:"2,keyasint"`
	State   robot.State     `cbor:"3,keyasint"`
	Seq     int             `cbor:"4,keyasint,omitempty"`
	Command []int32         `cbor:"5,keyasint,omitempty"`
	Ack     int32           `cbor:"6,keyasint,omitempty"`
	Remote  string          `cbor:"7,keyasint,omitempty"`
	Error   string          `cbor:"8,keyasint,omitempty"`
}

// FromEvent converts a channel event into a record
func FromEvent(e robot.Event) Record {
	r := Record{
		Time:   e.Time,
		Kind:   e.Kind,
		State:  e.State,
		Seq:    e.Seq,
		Ack:    e.Ack,
		Remote: e.Remote,
	}
	if e.Kind == robot.EventFrameSent || e.Kind == robot.EventAck {
		r.Command = e.Command[:]
	}
	if e.Err != nil {
		r.Error = e.Err.Error()
	}
	return r
}

// CommandValue returns the recorded command, if any
func (r Record) CommandValue() (urproto.Command, bool) {
	var c urproto.Command
	if len(r.Command) != len(c) {
		return c, false
	}
	copy(c[:], r.Command)
	return c, true
}

// Writer appends records to a stream
type Writer struct {
	mu  sync.Mutex
	enc *cbor.Encoder
	err error
}

// NewWriter writes the header and returns a writer for the records
func NewWriter(w io.Writer, h Header) (*Writer, error) {
	h.Magic = headerMagic
	h.Version = FormatVersion
	if h.Started.IsZero() {
		h.Started = time.Now()
	}

	enc := encMode.NewEncoder(w)
	if err := enc.Encode(h); err != nil {
		return nil, fmt.Errorf("failed to write recording header: %w", err)
	}
	return &Writer{enc: enc}, nil
}

// Write appends a record. After the first failure all writes are dropped
// and the error is kept for Err.
func (w *Writer) Write(r Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return w.err
	}
	if err := w.enc.Encode(r); err != nil {
		w.err = fmt.Errorf("failed to write record: %w", err)
	}
	return w.err
}

// Observe records a channel event; it can be passed to robot.WithObserver
func (w *Writer) Observe(e robot.Event) {
	_ = w.Write(FromEvent(e))
}

// Err returns the first write error
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Reader decodes a recording
type Reader struct {
	dec    *cbor.Decoder
	header Header
}

// NewReader reads and validates the header
func NewReader(r io.Reader) (*Reader, error) {
	dec := cbor.NewDecoder(r)

	var h Header
	if err := dec.Decode(&h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	if h.Magic != headerMagic {
		return nil, ErrBadHeader
	}
	if h.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported recording version %d", h.Version)
	}
	return &Reader{dec: dec, header: h}, nil
}

// Header returns the recording header
func (r *Reader) Header() Header {
	return r.header
}

// Next returns the next record, or io.EOF at the end of the stream
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("failed to read record: %w", err)
	}
	return rec, nil
}

// Statistics replays the remaining records into a statistics summary
func (r *Reader) Statistics() (*urproto.Statistics, []Record, error) {
	stats := urproto.NewStatistics()
	stats.StartTime = r.header.Started
	stats.LastUpdateTime = r.header.Started

	var records []Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return stats, records, nil
		}
		if err != nil {
			return stats, records, err
		}
		records = append(records, rec)

		switch rec.Kind {
		case robot.EventFrameSent:
			stats.FramesSent++
		case robot.EventAck:
			if rec.Ack == urproto.AckOK {
				stats.AcksOK++
			} else {
				stats.RobotErrors++
				stats.LastErrorCode = rec.Ack
			}
		case robot.EventFatal:
			stats.TransportErrors++
		}
		if rec.Time.After(stats.LastUpdateTime) {
			stats.LastUpdateTime = rec.Time
		}
	}
}
