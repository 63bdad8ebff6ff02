package toolcache

import (
	"errors"
	"testing"
	"time"
)

func TestProberCachesLookups(t *testing.T) {
	calls := 0
	p := NewProber()
	p.lookPath = func(name string) (string, error) {
		calls++
		if name == "node" {
			return "/usr/bin/node", nil
		}
		return "", errors.New("not found")
	}

	for i := 0; i < 3; i++ {
		if !p.Available("node") {
			t.Fatal("Available(node) = false, want true")
		}
	}
	if calls != 1 {
		t.Fatalf("lookPath calls = %d, want 1", calls)
	}

	if p.Available("dotnet") {
		t.Fatal("Available(dotnet) = true, want false")
	}
}

func TestProberTTLExpiry(t *testing.T) {
	calls := 0
	p := NewProber()
	p.ttl = time.Millisecond
	p.lookPath = func(string) (string, error) {
		calls++
		return "/usr/bin/go", nil
	}

	p.Available("go")
	time.Sleep(5 * time.Millisecond)
	p.Available("go")
	if calls != 2 {
		t.Fatalf("lookPath calls = %d, want 2 after TTL expiry", calls)
	}
}

func TestProberInvalidate(t *testing.T) {
	available := false
	p := NewProber()
	p.lookPath = func(string) (string, error) {
		if available {
			return "/usr/local/bin/python3", nil
		}
		return "", errors.New("not found")
	}

	if p.Available("python3") {
		t.Fatal("Available() = true before install")
	}
	available = true
	if p.Available("python3") {
		t.Fatal("cached miss not served")
	}
	p.Invalidate("python3")
	if !p.Available("python3") {
		t.Fatal("Available() = false after Invalidate")
	}
}

func TestProberEmptyName(t *testing.T) {
	p := NewProber()
	if p.Available("") {
		t.Fatal("Available(\"\") = true, want false")
	}
}
