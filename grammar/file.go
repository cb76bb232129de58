package grammar

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileInfo is the header every grammar file starts with.
type FileInfo struct {
	Format string `toml:"format"`
	Type   string `toml:"type"`
}

type tomlRule struct {
	Name string `toml:"name"`
	Def  string `toml:"def"`
}

type tomlGrammar struct {
	Format    string     `toml:"format"`
	Type      string     `toml:"type"`
	Name      string     `toml:"name"`
	Word      string     `toml:"word,omitempty"`
	Extras    []string   `toml:"extras,omitempty"`
	Externals []string   `toml:"externals,omitempty"`
	Conflicts [][]string `toml:"conflicts,omitempty"`
	Rules     []tomlRule `toml:"rule"`
}

// LoadFile reads a grammar spec from a grammar file.
func LoadFile(path string) (Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, fmt.Errorf("%q: reading from disk: %w", path, err)
	}

	spec, err := Decode(data)
	if err != nil {
		return Spec{}, fmt.Errorf("%q: %w", path, err)
	}
	return spec, nil
}

// Decode reads a grammar spec from the contents of a grammar file.
func Decode(data []byte) (Spec, error) {
	info, err := ScanFileInfo(data)
	if err != nil {
		return Spec{}, fmt.Errorf("detecting file type: %w", err)
	}
	if strings.ToUpper(info.Format) != "REMORA" {
		return Spec{}, ErrBadFormat
	}
	if strings.ToUpper(info.Type) != "GRAMMAR" {
		return Spec{}, ErrBadType
	}

	var tg tomlGrammar
	if err := toml.Unmarshal(data, &tg); err != nil {
		return Spec{}, err
	}

	if len(tg.Rules) == 0 {
		return Spec{}, ErrNoRules
	}

	spec := Spec{
		Name:      tg.Name,
		Word:      tg.Word,
		Externals: tg.Externals,
		Conflicts: tg.Conflicts,
	}

	for i, tr := range tg.Rules {
		if tr.Name == "" {
			return Spec{}, fmt.Errorf("rule #%d: missing name", i+1)
		}
		if _, exists := spec.Rule(tr.Name); exists {
			return Spec{}, fmt.Errorf("rule %q: defined more than once", tr.Name)
		}

		r, err := ParseRule(tr.Def)
		if err != nil {
			return Spec{}, fmt.Errorf("rule %q: %w", tr.Name, err)
		}
		spec.Rules = append(spec.Rules, RuleDef{Name: tr.Name, Rule: r})
	}

	for i, ex := range tg.Extras {
		r, err := ParseRule(ex)
		if err != nil {
			return Spec{}, fmt.Errorf("extra #%d: %w", i+1, err)
		}
		spec.Extras = append(spec.Extras, r)
	}

	return spec, nil
}

// ScanFileInfo reads only the header of a grammar file.
func ScanFileInfo(data []byte) (FileInfo, error) {
	var info FileInfo
	_, err := toml.Decode(string(data), &info)
	return info, err
}

// MarshalTOML encodes the spec as the contents of a grammar file.
func (s Spec) MarshalTOML() ([]byte, error) {
	tg := tomlGrammar{
		Format:    "REMORA",
		Type:      "GRAMMAR",
		Name:      s.Name,
		Word:      s.Word,
		Externals: s.Externals,
		Conflicts: s.Conflicts,
	}
	for i := range s.Extras {
		tg.Extras = append(tg.Extras, s.Extras[i].String())
	}
	for i := range s.Rules {
		tg.Rules = append(tg.Rules, tomlRule{Name: s.Rules[i].Name, Def: s.Rules[i].Rule.String()})
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(tg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
