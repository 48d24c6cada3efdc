package history

import (
	"fmt"
	"sync"
	"testing"
)

func TestAddStampsAndReturns(t *testing.T) {
	log := NewLog(10)
	entry := log.Add(Entry{Command: "ls"})
	if entry.ID == "" {
		t.Fatalf("expected an assigned ID")
	}
	if entry.Time.IsZero() {
		t.Fatalf("expected an assigned timestamp")
	}
	if log.Len() != 1 {
		t.Fatalf("expected one entry, got %d", log.Len())
	}
}

func TestRingDropsOldest(t *testing.T) {
	log := NewLog(3)
	for i := 0; i < 5; i++ {
		log.Add(Entry{Command: fmt.Sprintf("cmd-%d", i)})
	}
	entries := log.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Command != "cmd-2" || entries[2].Command != "cmd-4" {
		t.Fatalf("unexpected retained window: %v", entries)
	}
}

func TestEntriesReturnsCopy(t *testing.T) {
	log := NewLog(5)
	log.Add(Entry{Command: "ls"})
	got := log.Entries()
	got[0].Command = "mutated"
	if log.Entries()[0].Command != "ls" {
		t.Fatalf("Entries must return a copy")
	}
}

func TestConcurrentAdds(t *testing.T) {
	log := NewLog(100)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			log.Add(Entry{Command: fmt.Sprintf("cmd-%d", i)})
		}(i)
	}
	wg.Wait()
	if log.Len() != 50 {
		t.Fatalf("expected 50 entries, got %d", log.Len())
	}
}

func TestDefaultLimit(t *testing.T) {
	log := NewLog(0)
	for i := 0; i < 60; i++ {
		log.Add(Entry{Command: "x"})
	}
	if log.Len() != 50 {
		t.Fatalf("expected the conventional 50-entry cap, got %d", log.Len())
	}
}
