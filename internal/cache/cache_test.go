package cache

import (
	"testing"
	"time"
)

func TestKey_StableAndPrefixed(t *testing.T) {
	k1 := Key("doc-1:0:18:contrato celebrado")
	k2 := Key("doc-1:0:18:contrato celebrado")
	if k1 != k2 {
		t.Error("expected identical keys for identical identities")
	}
	if k1 == Key("doc-1:0:18:other excerpt") {
		t.Error("expected different keys for different identities")
	}
	if len(k1) <= len("veridex:v1:") {
		t.Errorf("unexpected key shape: %s", k1)
	}
}

func TestMemoryCache_RoundTrip(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, found := c.Get("missing"); found {
		t.Error("expected miss for unknown key")
	}

	if err := c.Set("k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	val, found := c.Get("k")
	if !found || string(val) != "v" {
		t.Errorf("expected hit with value v, got %q found=%v", val, found)
	}

	if err := c.Delete("k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, found := c.Get("k"); found {
		t.Error("expected miss after delete")
	}
}

func TestLayeredCache_PromotesFromDisk(t *testing.T) {
	dir := t.TempDir()

	disk := NewDiskCache(dir, time.Minute)
	if err := disk.Set(Key("warm"), []byte("from-disk"), time.Minute); err != nil {
		t.Fatalf("seed disk: %v", err)
	}

	layered := NewLayeredCache(time.Minute, dir, time.Minute)
	val, found := layered.Get(Key("warm"))
	if !found || string(val) != "from-disk" {
		t.Fatalf("expected disk hit through layered cache, got %q found=%v", val, found)
	}

	// The value is now promoted; a second read hits memory even if the
	// disk entry disappears.
	if err := disk.Delete(Key("warm")); err != nil {
		t.Fatalf("delete disk entry: %v", err)
	}
	if _, found := layered.Get(Key("warm")); !found {
		t.Error("expected promoted entry to survive in memory")
	}
}
