package engine_test

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/san-kum/hadron/internal/dynamo"
	"github.com/san-kum/hadron/internal/engine"
)

func TestOpenLibrary_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "libengine.so")

	lib, err := engine.OpenLibrary(path)
	if !errors.Is(err, dynamo.ErrEngineFailure) {
		t.Fatalf("OpenLibrary(%s) = %v", path, err)
	}
	if lib != nil {
		t.Error("failed open returned a library")
	}
}

func TestOpenLibrary_NotAnEngine(t *testing.T) {
	var candidates []string
	switch runtime.GOOS {
	case "linux":
		candidates = []string{"/lib/x86_64-linux-gnu/libc.so.6", "/lib/aarch64-linux-gnu/libc.so.6", "/lib64/libc.so.6", "/usr/lib/libc.so.6"}
	case "darwin":
		candidates = []string{"/usr/lib/libSystem.B.dylib"}
	default:
		t.Skip("no dynamic loading on " + runtime.GOOS)
	}

	path := ""
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			path = c
			break
		}
	}
	if path == "" && runtime.GOOS == "linux" {
		t.Skip("no libc found")
	}
	if path == "" {
		path = candidates[0]
	}

	lib, err := engine.OpenLibrary(path)
	if !errors.Is(err, dynamo.ErrEngineFailure) {
		if lib != nil {
			lib.Close()
		}
		t.Fatalf("OpenLibrary(%s) = %v, want missing symbol", path, err)
	}
}
