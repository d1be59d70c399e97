package store

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type mapSource map[string]string

func (m mapSource) Values() map[string]string { return m }

func TestAdapter_SaveLoadClear(t *testing.T) {
	kv := NewMemoryKV()
	adapter := New(kv, WithKeySuffix("abc"))

	if adapter.Key() != "scoreform:v1:abc" {
		t.Fatalf("unexpected key: %q", adapter.Key())
	}

	adapter.Save(mapSource{"age": "35", "occupation": "engineer"})

	got, ok := adapter.Load()
	if !ok {
		t.Fatalf("expected snapshot to load")
	}
	want := map[string]string{"age": "35", "occupation": "engineer"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}

	adapter.Clear()
	if _, ok := adapter.Load(); ok {
		t.Fatalf("expected snapshot gone after clear")
	}
	// clearing an empty store is fine
	adapter.Clear()
}

func TestAdapter_SuffixIsolatesSessions(t *testing.T) {
	kv := NewMemoryKV()
	first := New(kv, WithKeySuffix("one"))
	second := New(kv, WithKeySuffix("two"))

	first.Save(mapSource{"age": "30"})
	second.Save(mapSource{"age": "60"})

	got, _ := first.Load()
	if got["age"] != "30" {
		t.Fatalf("sessions share snapshots: %v", got)
	}
}

func TestAdapter_DegradesWhenStoreUnavailable(t *testing.T) {
	adapter := New(&failingKV{})

	// none of these may panic or surface an error
	adapter.Save(mapSource{"age": "35"})
	if _, ok := adapter.Load(); ok {
		t.Fatalf("load from broken store should report absence")
	}
	adapter.Clear()
}

func TestAdapter_IgnoresCorruptSnapshot(t *testing.T) {
	kv := NewMemoryKV()
	if err := kv.Set(Namespace, []byte("{not json")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	adapter := New(kv)
	if _, ok := adapter.Load(); ok {
		t.Fatalf("corrupt snapshot should load as absent")
	}
}

func TestDebouncedSaver_CoalescesEdits(t *testing.T) {
	kv := NewMemoryKV()
	adapter := New(kv)
	saver := NewDebouncedSaver(adapter, 30*time.Millisecond)
	defer saver.Stop()

	src := mapSource{"age": "1"}
	saver.Notify(src)
	src["age"] = "2"
	saver.Notify(src)
	src["age"] = "3"
	saver.Notify(src)

	if kv.Len() != 0 {
		t.Fatalf("write fired before quiet period")
	}

	deadline := time.Now().Add(time.Second)
	for kv.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("debounced write never fired")
		}
		time.Sleep(5 * time.Millisecond)
	}

	got, _ := adapter.Load()
	if got["age"] != "3" {
		t.Fatalf("expected latest value persisted, got %q", got["age"])
	}
}

func TestDebouncedSaver_FlushWritesImmediately(t *testing.T) {
	kv := NewMemoryKV()
	adapter := New(kv)
	saver := NewDebouncedSaver(adapter, time.Hour)
	defer saver.Stop()

	saver.Notify(mapSource{"age": "35"})
	saver.Flush()

	if _, ok := adapter.Load(); !ok {
		t.Fatalf("expected flush to persist the pending snapshot")
	}
}

func TestDebouncedSaver_StopDropsPending(t *testing.T) {
	kv := NewMemoryKV()
	adapter := New(kv)
	saver := NewDebouncedSaver(adapter, 10*time.Millisecond)

	saver.Notify(mapSource{"age": "35"})
	saver.Stop()
	time.Sleep(30 * time.Millisecond)

	if kv.Len() != 0 {
		t.Fatalf("stopped saver still wrote")
	}

	// notifications after stop are ignored
	saver.Notify(mapSource{"age": "36"})
	time.Sleep(30 * time.Millisecond)
	if kv.Len() != 0 {
		t.Fatalf("notify after stop still wrote")
	}
}

func TestFileKV_RoundTrip(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	if err != nil {
		t.Fatalf("new file kv: %v", err)
	}

	adapter := New(kv, WithKeySuffix("sess"))
	adapter.Save(mapSource{"age": "35"})

	got, ok := adapter.Load()
	if !ok || got["age"] != "35" {
		t.Fatalf("unexpected load: %v %v", got, ok)
	}

	adapter.Clear()
	if _, ok := adapter.Load(); ok {
		t.Fatalf("expected snapshot gone after clear")
	}
}

// failingKV simulates an unavailable backing store.
type failingKV struct{}

var errUnavailable = errors.New("kv unavailable")

func (f *failingKV) Get(string) ([]byte, bool, error) { return nil, false, errUnavailable }
func (f *failingKV) Set(string, []byte) error         { return errUnavailable }
func (f *failingKV) Delete(string) error              { return errUnavailable }
