// Package dynlib loads the external decompiler module and exposes its entry
// points.
//
// The module ships as a payload embedded at build time (see payload/README.md)
// or supplied through Config.Payload. Loading writes the payload to a
// temporary file, opens it and resolves decompile_to_string and
// free_cs_string. The temporary file is removed once the module is open.
//
// Two backends exist. A WebAssembly payload (detected by its magic bytes)
// runs under wazero; snapshots are copied into guest memory using wasm32
// layouts computed from WIT record descriptions. Any other payload is
// treated as a native shared library and opened with dlopen, which requires
// cgo on a unix platform.
//
// A Loader loads at most once. Concurrent first calls block until the single
// attempt finishes; a failed attempt may be retried:
//
//	l := dynlib.New(dynlib.Config{Payload: payload})
//	if err := l.Init(); err != nil {
//		return err
//	}
//	ext, _ := l.Externs()
//
// The package-level Init and Default use the embedded payload.
package dynlib
