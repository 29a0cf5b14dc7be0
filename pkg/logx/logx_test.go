package logx

import (
	"testing"
)

func TestDebugDomainFiltering(t *testing.T) {
	// Save and restore global state.
	defer func() {
		SetDebug(false)
		SetDebugDomains(nil)
	}()

	SetDebug(true)
	SetDebugDomains([]string{"engine", "topics"})

	if !IsDebugEnabled("engine") {
		t.Error("expected debug enabled for engine")
	}
	if !IsDebugEnabled("topics") {
		t.Error("expected debug enabled for topics")
	}
	if IsDebugEnabled("publisher") {
		t.Error("expected debug disabled for publisher")
	}

	// Empty list re-enables all domains.
	SetDebugDomains(nil)
	if !IsDebugEnabled("publisher") {
		t.Error("expected debug enabled for all domains after reset")
	}

	SetDebug(false)
	if IsDebugEnabled("engine") {
		t.Error("expected debug disabled globally")
	}
}

func TestDomainTrimming(t *testing.T) {
	defer func() {
		SetDebug(false)
		SetDebugDomains(nil)
	}()

	SetDebug(true)
	SetDebugDomains([]string{" engine ", "index"})

	if !IsDebugEnabled("engine") {
		t.Error("expected whitespace-trimmed domain to match")
	}
}
