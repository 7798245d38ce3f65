package main

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sebdah/goldie/v2"
	"github.com/spf13/cobra"

	"github.com/wippyai/gmdecomp/errors"
	"github.com/wippyai/gmdecomp/ffi"
	"github.com/wippyai/gmdecomp/snapshot"
)

// summaryExterns "decompiles" an entry into a one-line summary. Entries
// whose name contains "broken" fail with error code 1.
type summaryExterns struct {
	mu      sync.Mutex
	next    uintptr
	strings map[uintptr][]byte
}

func newSummaryExterns() *summaryExterns {
	return &summaryExterns{next: 1, strings: make(map[uintptr][]byte)}
}

func (e *summaryExterns) Read(ptr, n uintptr) ([]byte, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.strings[ptr]
	return b, ok && uintptr(len(b)) == n
}

func (e *summaryExterns) Release(ptr uintptr) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.strings, ptr)
}

func (e *summaryExterns) Decompile(_ *snapshot.GameContext, code *snapshot.Code) (ffi.ReturnValue, error) {
	name := code.Name.String()
	text := fmt.Sprintf("// %s: %d instructions, %d children", name, code.Instructions.Len(), code.Children.Len())
	var status uint8
	if strings.Contains(name, "broken") {
		text, status = "Stack underflow at instruction 2", 1
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	ptr := e.next
	e.next++
	e.strings[ptr] = []byte(text)
	return ffi.ReturnValue{String: ffi.NewForeignString(e, ptr, uintptr(len(text))), Error: status}, nil
}

func execute(t *testing.T, ext *summaryExterns, args ...string) (string, error) {
	t.Helper()

	if args == nil {
		args = []string{}
	}
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	if ext != nil {
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			opts := &options{externs: ext}
			opts.cont, _ = cmd.Flags().GetBool("continue")
			return run(opts, args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
		}
	}
	err := cmd.Execute()
	return out.String(), err
}

func TestDecompileAll_Golden(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"stop_on_failure", []string{"testdata/game.yaml"}},
		{"continue_on_failure", []string{"--continue", "testdata/game.yaml"}},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := newSummaryExterns()
			out, err := execute(t, ext, tt.args...)
			if err != nil {
				t.Fatalf("execute: %v", err)
			}
			g.Assert(t, tt.name, []byte(out))

			if n := len(ext.strings); n != 0 {
				t.Errorf("%d foreign strings never released", n)
			}
		})
	}
}

func TestRun_AbortsOnReferenceError(t *testing.T) {
	out, err := execute(t, newSummaryExterns(), "testdata/invalid.yaml")
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseConvert, Kind: errors.KindInvalidReference}) {
		t.Fatalf("err = %v, want invalid reference", err)
	}
	if out != "" {
		t.Errorf("unexpected output %q", out)
	}
	if chain := errors.Chain(err); chain[0] != "converting code entry #0" {
		t.Errorf("Chain[0] = %q", chain[0])
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want *errors.Error
	}{
		{"missing data file", []string{"testdata/nope.yaml"}, &errors.Error{Phase: errors.PhaseParse, Kind: errors.KindNotFound}},
		{"missing library", []string{"--library", "testdata/nope.so", "testdata/game.yaml"}, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindLoad}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, nil, tt.args...)
			if !stderrors.Is(err, tt.want) {
				t.Errorf("err = %v, want %s/%s", err, tt.want.Phase, tt.want.Kind)
			}
		})
	}

	if _, err := execute(t, nil); err == nil {
		t.Error("expected argument error without a data file")
	}
}

func TestBrowserModel(t *testing.T) {
	s, err := open(&options{externs: newSummaryExterns()}, "testdata/game.yaml")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.ctx.Release()

	m := newBrowserModel(s)
	if len(m.visible) != 3 {
		t.Fatalf("visible = %d, want 3 root entries", len(m.visible))
	}

	for _, r := range "last" {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	if len(m.visible) != 1 || s.data.Codes[m.visible[0]].Name != "gml_Script_last" {
		t.Fatalf("filtered entries = %v", m.visible)
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter should start a decompilation")
	}
	m.Update(cmd())
	if m.state != stateShowSource || m.err != nil {
		t.Fatalf("state = %v, err = %v", m.state, m.err)
	}
	if !strings.Contains(m.View(), "gml_Script_last: 1 instructions") {
		t.Errorf("view does not show the source:\n%s", m.View())
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.state != stateSelectEntry {
		t.Errorf("esc should return to the entry list")
	}
}
