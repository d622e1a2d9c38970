package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/broadsheet/internal/model"
)

func TestCacheKey(t *testing.T) {
	a := CacheKey("embed", "openai", "m", "hello")
	b := CacheKey("embed", "openai", "m", "hello")
	c := CacheKey("embed", "openai", "mh", "ello")

	if a != b {
		t.Error("expected stable keys")
	}
	if a == c {
		t.Error("part boundaries must affect the key")
	}
	if !strings.HasPrefix(a, KeyPrefix) {
		t.Errorf("expected prefix %s, got %s", KeyPrefix, a)
	}
	if EmbeddingKey("p", "m", "x") == FetchKey("x") {
		t.Error("embedding and fetch keys must not collide")
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	value := []byte("vector")
	if err := c.Set("k", value, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value[0] = 'X'

	got, ok := c.Get("k")
	if !ok || string(got) != "vector" {
		t.Errorf("expected stored copy, got %q (found=%v)", got, ok)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", c.Len())
	}

	_ = c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after delete")
	}
}

func TestDiskCache_RoundTripAndExpiry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	key := EmbeddingKey("openai", "small", "text")
	if err := c.Set(key, []byte("payload"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok := c.Get(key)
	if !ok || string(got) != "payload" {
		t.Errorf("expected payload, got %q (found=%v)", got, ok)
	}

	if err := c.Set("expired", []byte("old"), -time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, ok := c.Get("expired"); ok {
		t.Error("expected expired entry to miss")
	}

	if err := c.Delete("missing"); err != nil {
		t.Errorf("deleting a missing key should not fail: %v", err)
	}
}

func TestDiskCache_ClearKeepsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	_ = c.Set("a", []byte("1"), 0)
	_ = c.Set("b", []byte("2"), 0)

	foreign := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(foreign, []byte("keep"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, ok := c.Get("a"); ok {
		t.Error("expected cache entries removed")
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Error("expected unrelated file to survive Clear")
	}
}

func TestDiskCache_CorruptEntry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	if err := os.WriteFile(c.path("bad"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("bad"); ok {
		t.Error("expected corrupt entry to miss")
	}
	if _, err := os.Stat(c.path("bad")); !os.IsNotExist(err) {
		t.Error("expected corrupt entry to be removed")
	}
}

func TestLayeredCache_Promotes(t *testing.T) {
	fast := NewMemoryCache(time.Minute, time.Minute)
	slow := NewDiskCache(t.TempDir(), time.Hour)
	c := NewLayered(fast, nil, slow)

	if c.Depth() != 2 {
		t.Fatalf("expected nil layer skipped, got depth %d", c.Depth())
	}

	_ = slow.Set("k", []byte("v"), 0)
	if _, ok := fast.Get("k"); ok {
		t.Fatal("precondition: fast layer should be empty")
	}

	got, ok := c.Get("k")
	if !ok || string(got) != "v" {
		t.Fatalf("expected hit from slow layer, got %q", got)
	}
	if _, ok := fast.Get("k"); !ok {
		t.Error("expected value promoted to fast layer")
	}

	_ = c.Set("both", []byte("x"), 0)
	if _, ok := slow.Get("both"); !ok {
		t.Error("expected write-through to slow layer")
	}
}

func TestNewFromConfig(t *testing.T) {
	c, closeFn := NewFromConfig(model.CacheConfig{Enabled: false})
	if c != nil {
		t.Error("expected nil cache when disabled")
	}
	if err := closeFn(); err != nil {
		t.Errorf("close should be a no-op: %v", err)
	}

	c, closeFn = NewFromConfig(model.CacheConfig{Enabled: true, Dir: t.TempDir()})
	defer func() { _ = closeFn() }()
	layered, ok := c.(*LayeredCache)
	if !ok {
		t.Fatalf("expected *LayeredCache, got %T", c)
	}
	if layered.Depth() != 2 {
		t.Errorf("expected memory and disk layers, got %d", layered.Depth())
	}
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	if _, err := NewRedisCache(RedisConfig{}); err == nil {
		t.Error("expected error without address")
	}

	// Port 1 is reserved and refuses connections
	if _, err := NewRedisCache(RedisConfig{Addr: "127.0.0.1:1"}); err == nil {
		t.Error("expected connectivity error")
	}
}
