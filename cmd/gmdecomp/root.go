package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/gmdecomp/decompiler"
	"github.com/wippyai/gmdecomp/dynlib"
	"github.com/wippyai/gmdecomp/errors"
	"github.com/wippyai/gmdecomp/gamedata"
)

type options struct {
	library     string
	tmpDir      string
	cont        bool
	interactive bool
	verbose     bool

	// externs replaces the loaded module; set by tests.
	externs dynlib.Externs
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "gmdecomp <data-file>",
		Short: "Decompile GameMaker bytecode with Underanalyzer",
		Long: `Decompile every root code entry of a GameMaker data dump.

The data file is a YAML dump of the game's code entries, functions,
variables and asset names. Child entries are decompiled as part of
their parent.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.library, "library", "", "decompiler module to use instead of the embedded one")
	cmd.Flags().StringVar(&opts.tmpDir, "tmpdir", "", "directory for the materialized decompiler module")
	cmd.Flags().BoolVar(&opts.cont, "continue", false, "keep going after a failed decompilation")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "browse code entries in a terminal UI")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log loader and decompiler activity to stderr")

	return cmd
}

// session is a loaded data file with its game context
type session struct {
	path string
	data *gamedata.Data
	ctx  *decompiler.GameContext
}

func open(opts *options, path string) (*session, error) {
	if opts.verbose {
		log, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		dynlib.SetLogger(log)
		decompiler.SetLogger(log)
	}

	data, err := gamedata.Load(path)
	if err != nil {
		return nil, err
	}

	var gcOpts []decompiler.Option
	if opts.externs != nil {
		gcOpts = append(gcOpts, decompiler.WithExterns(opts.externs))
	} else {
		payload := dynlib.EmbeddedPayload()
		if opts.library != "" {
			if payload, err = os.ReadFile(opts.library); err != nil {
				return nil, errors.Load("failed to read decompiler module", err)
			}
		}
		loader := dynlib.New(dynlib.Config{Payload: payload, TempDir: opts.tmpDir})
		if err := loader.Init(); err != nil {
			return nil, err
		}
		gcOpts = append(gcOpts, decompiler.WithLoader(loader))
	}

	ctx, err := decompiler.NewGameContext(data, gcOpts...)
	if err != nil {
		return nil, err
	}
	return &session{path: path, data: data, ctx: ctx}, nil
}

// roots returns the code entries that are not children of another entry
func (s *session) roots() []gamedata.CodeRef {
	var refs []gamedata.CodeRef
	for i := range s.data.Codes {
		if s.data.Codes[i].IsRoot() {
			refs = append(refs, gamedata.CodeRef(i))
		}
	}
	return refs
}

func run(opts *options, path string, stdout, stderr io.Writer) error {
	if opts.interactive && !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("interactive mode requires a terminal")
	}

	s, err := open(opts, path)
	if err != nil {
		return err
	}
	defer s.ctx.Release()

	if opts.interactive {
		return runInteractive(s)
	}
	return decompileAll(s, opts.cont, stdout, stderr)
}

// decompileAll prints each root entry's source. A failure reported by the
// decompiler stops the run unless cont is set; any other error aborts it.
func decompileAll(s *session, cont bool, stdout, stderr io.Writer) error {
	for _, ref := range s.roots() {
		name := s.data.Codes[ref].Name

		out, err := s.ctx.Decompile(ref, s.data)
		var derr *errors.DecompileError
		switch {
		case stderrors.As(err, &derr):
			fmt.Fprintf(stderr, "Decompilation of %q failed:\n%s\n", name, errors.Pretty(err))
			if !cont {
				return nil
			}
			continue
		case err != nil:
			return err
		}

		fmt.Fprintf(stdout, "Decompilation of %q:\n%s\n\n", name, out)
	}
	return nil
}
