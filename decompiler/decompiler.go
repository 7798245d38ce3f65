package decompiler

import (
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/gmdecomp/dynlib"
	"github.com/wippyai/gmdecomp/errors"
	"github.com/wippyai/gmdecomp/gamedata"
	"github.com/wippyai/gmdecomp/snapshot"
)

type options struct {
	externs dynlib.Externs
	loader  *dynlib.Loader
}

// Option configures a GameContext
type Option func(*options)

// WithExterns decompiles through ext instead of a loaded module.
func WithExterns(ext dynlib.Externs) Option {
	return func(o *options) {
		o.externs = ext
	}
}

// WithLoader loads the decompiler module through l instead of the
// process-wide loader.
func WithLoader(l *dynlib.Loader) Option {
	return func(o *options) {
		o.loader = l
	}
}

// GameContext is the game-wide state the decompiler needs, built once per
// data set and shared by every Decompile call. It is read-only after
// construction and safe for concurrent use.
//
// The context reflects data at the time it was built. Callers that modify
// data must build a new context.
type GameContext struct {
	snap *snapshot.GameContext
	data *gamedata.Data
	opts options
}

// NewGameContext builds the game context for data.
func NewGameContext(data *gamedata.Data, opts ...Option) (*GameContext, error) {
	snap, err := snapshot.NewGameContext(data)
	if err != nil {
		return nil, errors.Context(err, "constructing game context for %s", data.General.Name)
	}

	c := &GameContext{snap: snap, data: data}
	for _, opt := range opts {
		opt(&c.opts)
	}
	if c.opts.loader == nil {
		c.opts.loader = dynlib.Default()
	}
	return c, nil
}

// Snapshot returns the boundary form of the context
func (c *GameContext) Snapshot() *snapshot.GameContext {
	return c.snap
}

// Release frees any copy of the context held by the decompiler module and
// returns the context's name tables. The context must not be used
// afterwards.
func (c *GameContext) Release() {
	ext := c.opts.externs
	if ext == nil && c.opts.loader.Loaded() {
		ext, _ = c.opts.loader.Externs()
	}
	if r, ok := ext.(dynlib.ContextReleaser); ok {
		r.ReleaseContext(c.snap)
	}
	c.snap.Release()
}

func (c *GameContext) externs() (dynlib.Externs, error) {
	if c.opts.externs != nil {
		return c.opts.externs, nil
	}
	return c.opts.loader.Externs()
}

// Decompile decompiles the code entry ref of data to GML source text. data
// must be the data the context was built from.
//
// A failure reported by the decompiler is returned as *errors.DecompileError,
// wrapped in a context layer. The foreign result string is released on every
// path.
func (c *GameContext) Decompile(ref gamedata.CodeRef, data *gamedata.Data) (string, error) {
	if data != c.data {
		return "", errors.InvalidInput(errors.PhaseConvert, "game data differs from the data the game context was built from")
	}

	start := time.Now()
	code, err := snapshot.BuildCode(ref, data)
	if err != nil {
		return "", errors.Context(err, "converting code entry #%d", ref)
	}
	defer code.Release()

	ext, err := c.externs()
	if err != nil {
		return "", err
	}

	rv, err := ext.Decompile(c.snap, code)
	if err != nil {
		return "", errors.Context(err, "decompiling code entry using Underanalyzer")
	}
	if rv.String == nil {
		return "", errors.Context(
			errors.InvalidInput(errors.PhaseDecode, "decompiler returned no string"),
			"decompiling code entry using Underanalyzer")
	}
	defer rv.String.Release()

	Logger().Debug("decompiled code entry",
		zap.String("name", code.Name.String()),
		zap.Int("instructions", code.Instructions.Len()),
		zap.Duration("duration", time.Since(start)),
		zap.Uint8("error_code", rv.Error))

	text, err := rv.String.String()
	if err != nil {
		return "", errors.Context(err, "decompiling code entry using Underanalyzer")
	}
	if rv.Error != 0 {
		return "", errors.Context(&errors.DecompileError{Code: rv.Error, Message: text},
			"decompiling code entry using Underanalyzer")
	}
	return text, nil
}

// InitDynlib loads the embedded decompiler module. Calling it is optional;
// the module is otherwise loaded by the first Decompile.
func InitDynlib() error {
	return dynlib.Init()
}
