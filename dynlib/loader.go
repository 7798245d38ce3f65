package dynlib

import (
	"bytes"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/gmdecomp/errors"
)

// Config holds configuration for a Loader
type Config struct {
	// Payload is the decompiler module: a native shared library or a
	// WebAssembly module.
	Payload []byte

	// TempDir is where the payload is materialized. Empty means os.TempDir.
	TempDir string

	// MemoryLimitPages caps guest memory of a WebAssembly payload in 64KB
	// pages. 0 means the wazero default.
	MemoryLimitPages uint32

	// CacheDir enables the wazero compilation cache for WebAssembly
	// payloads. Empty disables it.
	CacheDir string
}

type payloadKind int

const (
	kindNative payloadKind = iota
	kindWasm
)

func (k payloadKind) String() string {
	if k == kindWasm {
		return "wasm"
	}
	return "native"
}

var wasmMagic = []byte{0x00, 'a', 's', 'm'}

func detectKind(payload []byte) payloadKind {
	if bytes.HasPrefix(payload, wasmMagic) {
		return kindWasm
	}
	return kindNative
}

// opener loads the module materialized at path
type opener func(path string, kind payloadKind, cfg Config) (Externs, error)

func openModule(path string, kind payloadKind, cfg Config) (Externs, error) {
	if kind == kindWasm {
		return openWasm(path, cfg)
	}
	return openNative(path)
}

type loaded struct {
	externs Externs
}

// Loader loads a decompiler module at most once. A failed attempt leaves
// the loader empty so a later call may retry.
type Loader struct {
	cfg    Config
	open   opener
	mu     sync.Mutex
	module atomic.Pointer[loaded]
}

// New creates a loader for cfg. Nothing is loaded until Init or Externs.
func New(cfg Config) *Loader {
	return &Loader{cfg: cfg, open: openModule}
}

// Init loads the module if it is not loaded yet.
func (l *Loader) Init() error {
	_, err := l.Externs()
	return err
}

// Loaded reports whether the module has been loaded
func (l *Loader) Loaded() bool {
	return l.module.Load() != nil
}

// Externs returns the module's entry points, loading it on first use.
func (l *Loader) Externs() (Externs, error) {
	if m := l.module.Load(); m != nil {
		return m.externs, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if m := l.module.Load(); m != nil {
		return m.externs, nil
	}

	ext, err := l.load()
	if err != nil {
		return nil, errors.Context(err, "loading dynamic library")
	}
	l.module.Store(&loaded{externs: ext})
	return ext, nil
}

func (l *Loader) load() (Externs, error) {
	if len(l.cfg.Payload) == 0 {
		return nil, errors.NotFound(errors.PhaseLoad, "decompiler payload", payloadPath)
	}

	start := time.Now()
	kind := detectKind(l.cfg.Payload)
	log := Logger().With(zap.Stringer("kind", kind), zap.Int("size", len(l.cfg.Payload)))

	f, err := os.CreateTemp(l.cfg.TempDir, "gmdecomp-*"+suffix(kind))
	if err != nil {
		return nil, errors.TempFile(err)
	}
	path := f.Name()
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Warn("failed to remove temporary file", zap.String("path", path), zap.Error(err))
		}
	}()
	log.Debug("materializing payload", zap.String("path", path))

	if _, err := f.Write(l.cfg.Payload); err != nil {
		_ = f.Close()
		return nil, errors.Write(path, err)
	}
	if err := f.Close(); err != nil {
		return nil, errors.Write(path, err)
	}

	ext, err := l.open(path, kind, l.cfg)
	if err != nil {
		return nil, err
	}

	log.Info("decompiler module loaded", zap.Duration("duration", time.Since(start)))
	return ext, nil
}

// suffix returns the file extension the platform loader expects
func suffix(kind payloadKind) string {
	if kind == kindWasm {
		return ".wasm"
	}
	switch runtime.GOOS {
	case "darwin", "ios":
		return ".dylib"
	case "windows":
		return ".dll"
	}
	return ".so"
}
