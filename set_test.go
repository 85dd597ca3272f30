// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package chainhash

import "testing"

func TestSetRoundTrip(t *testing.T) {
	s := NewComparableSet[string]()

	if inserted, err := s.Add("apple"); err != nil || !inserted {
		t.Fatalf("Add(\"apple\") = (%t, %v), want (true, nil)", inserted, err)
	}
	if _, err := s.Add("banana"); err != nil {
		t.Fatalf("Add(\"banana\"): %v", err)
	}

	if !s.Contains("apple") {
		t.Errorf("Contains(\"apple\") = false, want true")
	}
	if s.Contains("grape") {
		t.Errorf("Contains(\"grape\") = true, want false")
	}

	if !s.Remove("banana") {
		t.Errorf("Remove(\"banana\") = false, want true")
	}
	if s.Contains("banana") {
		t.Errorf("Contains(\"banana\") after Remove = true, want false")
	}
}

func TestSetAddIsIdempotent(t *testing.T) {
	s := NewComparableSet[int]()
	inserted, _ := s.Add(1)
	if !inserted {
		t.Fatalf("first Add(1) = false, want true")
	}
	inserted, _ = s.Add(1)
	if inserted {
		t.Errorf("second Add(1) = true, want false")
	}
	if s.Count() != 1 {
		t.Errorf("Count() = %d, want 1", s.Count())
	}
}

func TestSetClearAndClone(t *testing.T) {
	s := NewComparableSet[int]()
	for i := 0; i < 10; i++ {
		s.Add(i)
	}
	clone, err := s.Clone()
	if err != nil {
		t.Fatalf("Clone(): %v", err)
	}
	s.Clear()
	if s.Count() != 0 {
		t.Errorf("Count() after Clear() = %d, want 0", s.Count())
	}
	if clone.Count() != 10 {
		t.Errorf("clone.Count() = %d, want 10 (clear must not affect the clone)", clone.Count())
	}
	for i := 0; i < 10; i++ {
		if !clone.Contains(i) {
			t.Errorf("clone missing key %d after original cleared", i)
		}
	}
}

func TestSetKeyIterator(t *testing.T) {
	s := NewComparableSet[int]()
	want := map[int]bool{1: true, 2: true, 3: true}
	for k := range want {
		s.Add(k)
	}
	got := map[int]bool{}
	ki := s.KeyIterator()
	for {
		k, ok := ki.Next()
		if !ok {
			break
		}
		got[k] = true
	}
	if len(got) != len(want) {
		t.Fatalf("KeyIterator yielded %d keys, want %d", len(got), len(want))
	}
	for k := range want {
		if !got[k] {
			t.Errorf("KeyIterator missed key %d", k)
		}
	}
}

func TestBytesKeyedSet(t *testing.T) {
	s := NewBytesKeyedSet()
	s.Add([]byte("red"))
	s.Add([]byte("green"))
	if !s.Contains([]byte("red")) {
		t.Errorf("Contains([]byte(\"red\")) = false, want true")
	}
	if s.Contains([]byte("blue")) {
		t.Errorf("Contains([]byte(\"blue\")) = true, want false")
	}
}
