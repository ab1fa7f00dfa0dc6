// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package recordcodec

import "fmt"

// StreamResult classifies the outcome of checking an inbound CRYPTO frame's
// offset against a Stream, matching the non-fatal/fatal distinctions
// spec.md §7 assigns to out_of_order and incomplete.
type StreamResult int

const (
	// Contiguous means the frame starts exactly at recv_offset: the caller
	// should attempt semantic validation and, only on success, call Commit.
	Contiguous StreamResult = iota
	// Repeat means the whole frame lies below recv_offset (offset+len <=
	// recv_offset); state is unchanged.
	Repeat
	// OutOfOrder means offset is beyond the next expected byte; the caller
	// must buffer and retry once earlier bytes arrive.
	OutOfOrder
)

// Stream tracks one encryption level's CRYPTO byte stream in one direction
// pair: a send offset this side has written through, and a receive offset
// the peer has been acknowledged through, per spec.md §4.4's ordering
// rules. Checking an inbound frame's offset (Check) is separate from
// committing it (Commit) because spec.md §4.5 only appends to the
// transcript and advances recv_offset when the record also passes semantic
// validation (e.g. S5: a Finished with a bad MAC must not touch state even
// though its offset was contiguous). The reference implementation
// (spec.md §9(d)) stored the frame's start offset instead of its end
// offset after a successful receive; this type stores the end offset, per
// the required RFC-aligned fix.
type Stream struct {
	send uint64
	recv uint64

	transcript []byte
}

// SendOffset returns the next offset this side will write at.
func (s *Stream) SendOffset() uint64 { return s.send }

// RecvOffset returns the next offset expected from the peer.
func (s *Stream) RecvOffset() uint64 { return s.recv }

// Transcript returns the bytes committed so far, in canonical order.
func (s *Stream) Transcript() []byte { return s.transcript }

// EncodeSend wraps data in a CRYPTO frame at the current send offset,
// advances the send offset by len(data), and appends data to the
// transcript: sent bytes are part of the handshake transcript
// unconditionally (spec.md §3's transcript definition covers "sent or
// validated" records).
func (s *Stream) EncodeSend(data []byte) ([]byte, error) {
	frame, err := EncodeCryptoFrame(s.send, data)
	if err != nil {
		return nil, err
	}
	s.send += uint64(len(data))
	s.transcript = append(s.transcript, data...)
	return frame, nil
}

// Check classifies an inbound frame's offset without mutating state:
//
//   - offset (plus any already-covered tail) <= recv_offset: Repeat.
//   - offset > recv_offset: OutOfOrder.
//   - offset == recv_offset: Contiguous.
//
// A frame that starts before recv_offset but extends past it is rejected
// outright; spec.md never defines partial-overlap semantics.
func (s *Stream) Check(frame CryptoFrame) (StreamResult, error) {
	end := frame.Offset + uint64(len(frame.Data))
	switch {
	case frame.Offset <= s.recv && end <= s.recv:
		return Repeat, nil
	case frame.Offset > s.recv:
		return OutOfOrder, nil
	case frame.Offset != s.recv:
		return 0, fmt.Errorf("recordcodec: overlapping crypto frame at offset %d, recv_offset %d", frame.Offset, s.recv)
	default:
		return Contiguous, nil
	}
}

// Commit appends frame.Data to the transcript and advances recv_offset to
// frame.Offset+len(frame.Data). Callers MUST only call Commit after Check
// returned Contiguous and any semantic validation of the record succeeded.
func (s *Stream) Commit(frame CryptoFrame) {
	s.transcript = append(s.transcript, frame.Data...)
	s.recv = frame.Offset + uint64(len(frame.Data))
}

// ClearTranscript discards the accumulated transcript bytes once they are no
// longer needed for any further derivation (spec.md §3's lifecycle clause:
// cleared only after the server validates the client's Finished). Offsets
// are left untouched since repeat/gap detection still applies to any
// straggling retransmission at this level.
func (s *Stream) ClearTranscript() {
	s.transcript = nil
}
