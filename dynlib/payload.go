package dynlib

import (
	"embed"
	"io/fs"
	"sync"
)

//go:embed payload
var payloadFS embed.FS

// payloadPath is the embedded decompiler module
const payloadPath = "payload/dynlib"

// EmbeddedPayload returns the decompiler module embedded at build time, or
// nil if none was embedded.
func EmbeddedPayload() []byte {
	b, err := fs.ReadFile(payloadFS, payloadPath)
	if err != nil {
		return nil
	}
	return b
}

// Default returns the process-wide loader over the embedded payload.
var Default = sync.OnceValue(func() *Loader {
	return New(Config{Payload: EmbeddedPayload()})
})

// Init loads the embedded decompiler module if it is not loaded yet.
// Calling it is optional; the module is otherwise loaded on first use.
func Init() error {
	return Default().Init()
}
