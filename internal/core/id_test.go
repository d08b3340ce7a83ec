package core

import (
	"strconv"
	"testing"
	"time"
)

func TestIDGeneratorMonotonic(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)
	g := NewIDGenerator(func() time.Time { return fixed })
	a, b := g.Next(), g.Next()
	if a != "1700000000000" {
		t.Fatalf("first id = %s", a)
	}
	if b != "1700000000001" {
		t.Fatalf("second id in same millisecond = %s", b)
	}
}

func TestIDGeneratorObserve(t *testing.T) {
	fixed := time.UnixMilli(1000)
	g := NewIDGenerator(func() time.Time { return fixed })
	g.Observe("5000")
	g.Observe("not-a-number")
	next, _ := strconv.ParseInt(g.Next(), 10, 64)
	if next != 5001 {
		t.Fatalf("expected id above observed floor, got %d", next)
	}
}
