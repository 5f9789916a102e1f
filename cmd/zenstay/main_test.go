package main

import (
	"context"
	"testing"
	"time"

	"zenstay/internal/blob"
	"zenstay/internal/config"
	"zenstay/internal/core"
)

func TestOriginAllowed(t *testing.T) {
	if originAllowed(nil) != nil || originAllowed([]string{"*"}) != nil {
		t.Fatalf("wildcard origins should allow everything")
	}
	allow := originAllowed([]string{"https://desk.example"})
	if !allow("https://desk.example") || allow("https://evil.example") {
		t.Fatalf("unexpected origin decision")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	cfg := &config.Config{
		HTTP:    config.HTTPConfig{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second},
		Storage: core.StorageConfig{Driver: core.StorageMemory},
		Blob:    blob.Config{Driver: blob.DriverMemory},
		Strict:  true,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := run(ctx, cfg, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestRunRejectsUnknownStorage(t *testing.T) {
	cfg := &config.Config{Storage: core.StorageConfig{Driver: "tape"}}
	if err := run(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected storage error")
	}
}
