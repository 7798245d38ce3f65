// Package gmdecomp hands GameMaker bytecode to the Underanalyzer decompiler
// across a foreign module boundary.
//
// A parsed data file is flattened into fixed-layout snapshots, passed to a
// decompiler module loaded from a payload embedded in the binary, and the
// foreign-owned result string is copied and released exactly once.
//
// # Architecture Overview
//
//	gmdecomp/            Root package with guest Memory and Allocator interfaces
//	├── ffi/             Cross-boundary primitives: Array, Str, ForeignString
//	├── gamedata/        Source graph model and text dump loader
//	├── snapshot/        Fixed-layout snapshot builders
//	├── dynlib/          Embedded payload loader (native and WebAssembly backends)
//	├── decompiler/      Game context and decompilation entry point
//	├── errors/          Structured error types for debugging
//	└── cmd/gmdecomp/    Command line front end
//
// # Quick Start
//
//	data, err := gamedata.Load("data.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx, err := decompiler.NewGameContext(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for i, code := range data.Codes {
//	    if !code.IsRoot() {
//	        continue
//	    }
//	    out, err := ctx.Decompile(gamedata.CodeRef(i), data)
//	    if err != nil {
//	        log.Fatal(errors.Pretty(err))
//	    }
//	    fmt.Println(out)
//	}
//
// # Module Loading
//
// The decompiler module is loaded lazily on first use, exactly once per
// process. Call decompiler.InitDynlib to load it eagerly and surface loader
// failures early. The payload may be a native shared library (requires cgo)
// or a WebAssembly module run under wazero.
//
// # Lifetimes
//
// Snapshots borrow strings from the source data and must not outlive it. A
// game context is immutable; rebuild it after changing the source data.
package gmdecomp
