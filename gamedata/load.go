package gamedata

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/gmdecomp/errors"
)

// dumpFile is the on-disk text form of a data file.
type dumpFile struct {
	General   dumpGeneral         `yaml:"general"`
	Assets    map[string][]string `yaml:"assets,omitempty"`
	Functions []string            `yaml:"functions,omitempty"`
	Variables []dumpVariable      `yaml:"variables,omitempty"`
	Codes     []dumpCode          `yaml:"codes,omitempty"`
}

type dumpGeneral struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Branch  string `yaml:"branch,omitempty"`
	WAD     uint8  `yaml:"wad"`
}

type dumpVariable struct {
	Name     string `yaml:"name"`
	ID       *int32 `yaml:"id,omitempty"`
	Instance string `yaml:"instance,omitempty"`
}

// UnmarshalYAML accepts either a bare name or a mapping.
func (v *dumpVariable) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		v.Name = node.Value
		return nil
	}
	type plain dumpVariable
	return node.Decode((*plain)(v))
}

type dumpCode struct {
	Name         string   `yaml:"name"`
	Offset       uint32   `yaml:"offset,omitempty"`
	Arguments    uint16   `yaml:"arguments,omitempty"`
	Locals       uint16   `yaml:"locals,omitempty"`
	Parent       string   `yaml:"parent,omitempty"`
	Instructions []string `yaml:"instructions"`
}

// assetKeys lists the accepted asset table names in Data order
var assetKeys = []string{
	"objects", "sprites", "sounds", "rooms", "backgrounds", "paths", "scripts",
	"fonts", "timelines", "shaders", "sequences", "animation_curves", "particle_systems",
}

// Load reads a data dump from path.
func Load(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseParse, errors.KindNotFound, err, fmt.Sprintf("read data file %s", path))
	}
	return Decode(bytes.NewReader(raw))
}

// Decode reads a data dump. The dump is a YAML document with general info,
// asset names, the function and variable tables, and code entries whose
// instructions are written as mnemonics.
func Decode(r io.Reader) (*Data, error) {
	var f dumpFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, errors.ParseFailed("data dump", err)
	}
	return f.build()
}

func (f *dumpFile) build() (*Data, error) {
	d := &Data{}

	version, err := parseVersion(f.General.Version)
	if err != nil {
		return nil, err
	}
	if f.General.Branch != "" {
		b, ok := branchNames[strings.ToLower(f.General.Branch)]
		if !ok {
			return nil, at(invalid("unknown branch %q", f.General.Branch), "general", "branch")
		}
		version.Branch = b
	} else {
		version.Branch = inferBranch(version)
	}
	d.General = GeneralInfo{Name: f.General.Name, Version: version, WADVersion: f.General.WAD}
	modern := d.General.WADVersion >= 15

	lists := []*[]Asset{
		&d.Objects, &d.Sprites, &d.Sounds, &d.Rooms, &d.Backgrounds, &d.Paths, &d.Scripts,
		&d.Fonts, &d.Timelines, &d.Shaders, &d.Sequences, &d.AnimationCurves, &d.ParticleSystems,
	}
	known := make(map[string]bool, len(assetKeys))
	for i, key := range assetKeys {
		known[key] = true
		for _, name := range f.Assets[key] {
			*lists[i] = append(*lists[i], Asset{Name: name})
		}
	}
	for key := range f.Assets {
		if !known[key] {
			return nil, at(invalid("unknown asset table %q", key), "assets")
		}
	}

	for _, name := range f.Functions {
		d.Functions = append(d.Functions, Function{Name: name})
	}

	for i, v := range f.Variables {
		variable := Variable{Name: v.Name}
		if modern {
			m := &VariableModern{ID: int32(i)}
			if v.ID != nil {
				m.ID = *v.ID
			}
			if v.Instance != "" {
				it, err := parseInstance(v.Instance)
				if err != nil {
					return nil, at(err, "variables", v.Name)
				}
				m.InstanceType = it
			}
			variable.Modern = m
		}
		d.Variables = append(d.Variables, variable)
	}

	codeIndex := make(map[string]CodeRef, len(f.Codes))
	for i, c := range f.Codes {
		codeIndex[c.Name] = CodeRef(i)
	}

	syms := newSymbols(d)
	d.Codes = make([]Code, len(f.Codes))
	for i, c := range f.Codes {
		code := Code{Name: c.Name, Instructions: make([]Instruction, 0, len(c.Instructions))}
		for n, line := range c.Instructions {
			instr, err := syms.assemble(line)
			if err != nil {
				return nil, at(err, "codes", c.Name, fmt.Sprintf("#%d", n))
			}
			code.Instructions = append(code.Instructions, instr)
		}
		if modern {
			code.Modern = &CodeModern{Offset: c.Offset, ArgumentCount: c.Arguments, LocalCount: c.Locals}
			if c.Parent != "" {
				ref, err := resolveCode(c.Parent, codeIndex)
				if err != nil {
					return nil, at(err, "codes", c.Name, "parent")
				}
				code.Modern.Parent = &ref
			}
		} else if c.Parent != "" {
			return nil, at(invalid("parent requires WAD 15 or later"), "codes", c.Name, "parent")
		}
		d.Codes[i] = code
	}

	return d, nil
}

// at sets the location of a parse error, or adds a breadcrumb to any other
// error.
func at(err error, path ...string) error {
	if e, ok := err.(*errors.Error); ok && e.Phase == errors.PhaseParse && len(e.Path) == 0 {
		e.Path = path
		return e
	}
	return errors.Context(err, "%s", strings.Join(path, "."))
}

func resolveCode(name string, index map[string]CodeRef) (CodeRef, error) {
	if idx, ok, err := tableIndex(name); ok {
		return CodeRef(idx), err
	}
	ref, ok := index[name]
	if !ok {
		return 0, errors.NotFound(errors.PhaseParse, "code entry", name)
	}
	return ref, nil
}

// parseVersion accepts "major.minor.release.build" with trailing
// components optional.
func parseVersion(s string) (Version, error) {
	var v Version
	if s == "" {
		return v, nil
	}
	parts := strings.Split(s, ".")
	if len(parts) > 4 {
		return v, at(invalid("version %q has more than four components", s), "general", "version")
	}
	fields := []*uint32{&v.Major, &v.Minor, &v.Release, &v.Build}
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return v, at(invalid("bad version component %q", p), "general", "version")
		}
		*fields[i] = uint32(n)
	}
	return v, nil
}

// inferBranch derives the release line from the version: 2022.0 is the
// LTS line, later years are post-LTS.
func inferBranch(v Version) ReleaseBranch {
	switch {
	case v.Major == 2022 && v.Minor == 0:
		return BranchLTS
	case v.Major >= 2022:
		return BranchPostLTS
	}
	return BranchPreLTS
}

func parseInstance(s string) (InstanceType, *errors.Error) {
	if it, ok := instanceNames[s]; ok {
		return it, nil
	}
	n, err := strconv.ParseInt(s, 10, 16)
	if err != nil {
		return 0, invalid("unknown instance %q", s)
	}
	return InstanceType(n), nil
}
