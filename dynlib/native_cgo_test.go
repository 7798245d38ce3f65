//go:build cgo && unix

package dynlib_test

import (
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wippyai/gmdecomp/decompiler"
	"github.com/wippyai/gmdecomp/dynlib"
	"github.com/wippyai/gmdecomp/errors"
	"github.com/wippyai/gmdecomp/gamedata"
)

// buildStub compiles testdata/stub.c into a shared library and returns its
// bytes.
func buildStub(t *testing.T, defines ...string) []byte {
	t.Helper()
	cc, err := exec.LookPath("cc")
	if err != nil {
		t.Skip("no C compiler available")
	}

	out := filepath.Join(t.TempDir(), "stub.so")
	args := append([]string{"-shared", "-fPIC"}, defines...)
	args = append(args, "-o", out, filepath.Join("testdata", "stub.c"))
	if msg, err := exec.Command(cc, args...).CombinedOutput(); err != nil {
		t.Fatalf("cc: %v\n%s", err, msg)
	}
	payload, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	return payload
}

func TestNative_OpenErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload func(t *testing.T) []byte
		want    *errors.Error
	}{
		{
			name:    "not a shared library",
			payload: func(*testing.T) []byte { return []byte("not a shared library") },
			want:    &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindLoad},
		},
		{
			name:    "missing free symbol",
			payload: func(t *testing.T) []byte { return buildStub(t, "-DOMIT_FREE") },
			want:    &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindSymbol},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := dynlib.New(dynlib.Config{Payload: tt.payload(t), TempDir: t.TempDir()})
			err := l.Init()
			if !stderrors.Is(err, tt.want) {
				t.Fatalf("Init err = %v, want %s/%s", err, tt.want.Phase, tt.want.Kind)
			}
			if l.Loaded() {
				t.Error("Loaded() = true after failed Init")
			}
		})
	}
}

func stubData() *gamedata.Data {
	root := gamedata.CodeRef(0)
	body := []gamedata.Instruction{
		gamedata.Push{Value: gamedata.PushDouble(3.14)},
		gamedata.Push{Value: gamedata.PushString("hi")},
		gamedata.Call{Function: 0, ArgumentCount: 1},
		gamedata.Branch{Op: gamedata.OpBranch, Offset: -3},
	}
	return &gamedata.Data{
		General: gamedata.GeneralInfo{
			Name:       "stub_game",
			Version:    gamedata.Version{Major: 2023, Minor: 4},
			WADVersion: 17,
		},
		Objects:   []gamedata.Asset{{Name: "obj_player"}},
		Functions: []gamedata.Function{{Name: "show_message"}},
		Codes: []gamedata.Code{
			{Name: "gml_Script_test", Instructions: body, Modern: &gamedata.CodeModern{}},
			{
				Name:         "gml_Script_child",
				Instructions: []gamedata.Instruction{gamedata.Exit{}},
				Modern:       &gamedata.CodeModern{Parent: &root, Offset: 16},
			},
			{Name: "gml_Script_fail", Instructions: body, Modern: &gamedata.CodeModern{ArgumentCount: 1}},
		},
	}
}

func TestNative_Decompile(t *testing.T) {
	l := dynlib.New(dynlib.Config{Payload: buildStub(t), TempDir: t.TempDir()})
	if err := l.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	data := stubData()
	ctx, err := decompiler.NewGameContext(data, decompiler.WithLoader(l))
	if err != nil {
		t.Fatal(err)
	}
	defer ctx.Release()

	// The stub reports how many strings it has freed so far, so each result
	// proves the previous one was released exactly once.
	for i := range 3 {
		got, err := ctx.Decompile(0, data)
		if err != nil {
			t.Fatalf("Decompile #%d: %v", i, err)
		}
		want := fmt.Sprintf("gml_Script_test n=4 ver=2023.4 objs=1 obj0=obj_player op=c0 d=3.14 s=hi "+
			"f=show_message b=-12 children=1 child=gml_Script_child freed=%d", i)
		if got != want {
			t.Errorf("Decompile #%d\n got: %q\nwant: %q", i, got, want)
		}
	}

	_, err = ctx.Decompile(2, data)
	var derr *errors.DecompileError
	if !stderrors.As(err, &derr) {
		t.Fatalf("err = %v, want *DecompileError", err)
	}
	if derr.Code != 1 {
		t.Errorf("Code = %d, want 1", derr.Code)
	}
	wantMsg := "gml_Script_fail n=4 ver=2023.4 objs=1 obj0=obj_player op=c0 d=3.14 s=hi " +
		"f=show_message b=-12 children=0 child= freed=3"
	if derr.Message != wantMsg {
		t.Errorf("Message\n got: %q\nwant: %q", derr.Message, wantMsg)
	}

	got, err := ctx.Decompile(0, data)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(got, " freed=4") {
		t.Errorf("failed result was not released: %q", got)
	}
}
