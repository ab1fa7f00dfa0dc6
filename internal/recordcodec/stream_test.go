// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package recordcodec

import (
	"bytes"
	"testing"
)

func TestStreamSendAdvancesOffset(t *testing.T) {
	var s Stream
	frame1, err := s.EncodeSend([]byte("hello"))
	if err != nil {
		t.Fatalf("EncodeSend: %v", err)
	}
	if s.SendOffset() != 5 {
		t.Fatalf("send offset = %d, want 5", s.SendOffset())
	}
	frame2, err := s.EncodeSend([]byte("world"))
	if err != nil {
		t.Fatalf("EncodeSend: %v", err)
	}
	if s.SendOffset() != 10 {
		t.Fatalf("send offset = %d, want 10", s.SendOffset())
	}
	if !bytes.Equal(s.Transcript(), []byte("helloworld")) {
		t.Fatalf("transcript = %q, want %q", s.Transcript(), "helloworld")
	}

	f1, _, err := ParseCryptoFrame(frame1)
	if err != nil || f1.Offset != 0 {
		t.Fatalf("frame1 offset = %+v, err %v", f1, err)
	}
	f2, _, err := ParseCryptoFrame(frame2)
	if err != nil || f2.Offset != 5 {
		t.Fatalf("frame2 offset = %+v, err %v", f2, err)
	}
}

func TestStreamCheckAndCommitContiguous(t *testing.T) {
	var s Stream
	frame := CryptoFrame{Offset: 0, Data: []byte("abc")}

	res, err := s.Check(frame)
	if err != nil || res != Contiguous {
		t.Fatalf("Check = %v, %v, want Contiguous", res, err)
	}
	s.Commit(frame)
	if s.RecvOffset() != 3 {
		t.Fatalf("recv offset = %d, want 3", s.RecvOffset())
	}
	if !bytes.Equal(s.Transcript(), []byte("abc")) {
		t.Fatalf("transcript = %q", s.Transcript())
	}
}

func TestStreamCheckOutOfOrder(t *testing.T) {
	var s Stream
	res, err := s.Check(CryptoFrame{Offset: 5, Data: []byte("late")})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res != OutOfOrder {
		t.Fatalf("Check = %v, want OutOfOrder", res)
	}
	if s.RecvOffset() != 0 || len(s.Transcript()) != 0 {
		t.Fatalf("Check must never mutate state")
	}
}

func TestStreamContiguousWithoutCommitLeavesStateUntouched(t *testing.T) {
	// Models S5: a record whose offset is contiguous but whose semantic
	// validation fails (e.g. bad Finished MAC) must not appear in the
	// transcript or advance recv_offset, because the caller never calls
	// Commit when validation fails.
	var s Stream
	frame := CryptoFrame{Offset: 0, Data: []byte("bad finished mac")}

	res, err := s.Check(frame)
	if err != nil || res != Contiguous {
		t.Fatalf("Check = %v, %v, want Contiguous", res, err)
	}
	// ... validation fails here; caller does not call Commit.
	if s.RecvOffset() != 0 || len(s.Transcript()) != 0 {
		t.Fatalf("state must be untouched without a Commit call")
	}
}

// S6: offsets [0, N, N] (duplicate final) must produce two transcript
// commits, not three (spec.md §8 S6).
func TestStreamDuplicateFinalOffsetIsRepeat(t *testing.T) {
	var s Stream

	frame1 := CryptoFrame{Offset: 0, Data: []byte("0123456789")} // N=10
	if res, err := s.Check(frame1); err != nil || res != Contiguous {
		t.Fatalf("check frame1: %v, %v", res, err)
	}
	s.Commit(frame1)

	frame2 := CryptoFrame{Offset: 10, Data: []byte("second")}
	if res, err := s.Check(frame2); err != nil || res != Contiguous {
		t.Fatalf("check frame2: %v, %v", res, err)
	}
	s.Commit(frame2)
	committedTranscript := append([]byte(nil), s.Transcript()...)

	// Duplicate of frame2's offset arrives again.
	res, err := s.Check(frame2)
	if err != nil {
		t.Fatalf("check duplicate: %v", err)
	}
	if res != Repeat {
		t.Fatalf("duplicate final offset = %v, want Repeat", res)
	}
	if !bytes.Equal(s.Transcript(), committedTranscript) {
		t.Fatalf("repeat must not mutate transcript: got %q, want %q", s.Transcript(), committedTranscript)
	}
}

func TestStreamOverlappingFrameRejected(t *testing.T) {
	var s Stream
	frame := CryptoFrame{Offset: 0, Data: []byte("abcdef")}
	if res, err := s.Check(frame); err != nil || res != Contiguous {
		t.Fatalf("setup check: %v, %v", res, err)
	}
	s.Commit(frame)

	if _, err := s.Check(CryptoFrame{Offset: 3, Data: []byte("defghi")}); err == nil {
		t.Fatalf("expected error for a frame overlapping but extending past recv_offset")
	}
}
