package util

import "testing"

func TestBusyRejectsSecondAcquire(t *testing.T) {
	var b Busy
	if !b.TryAcquire() {
		t.Fatal("first acquire should succeed")
	}
	if b.TryAcquire() {
		t.Fatal("second acquire should fail while busy")
	}
	if !b.Active() {
		t.Fatal("expected active guard")
	}
	b.Release()
	if b.Active() {
		t.Fatal("expected released guard")
	}
	if !b.TryAcquire() {
		t.Fatal("acquire after release should succeed")
	}
}
