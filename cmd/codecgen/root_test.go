package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/wippyai/bincodec/synth"
)

const testSchema = `
types:
  - name: point
    members:
      - name: x
        type: i32
      - name: "y"
        type: i32
  - name: label
    members:
      - name: text
        type: string
      - name: at
        type: "?point"
        order: min
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// run executes codecgen with args in a scratch directory.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Cleanup(func() { synth.SetLogger(zap.NewNop()) })

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, "--log-level=error", "--color=never"))
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()
	want := map[string]bool{"plan": false, "encode": false, "decode": false, "browse": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	if !cmd.SilenceUsage || !cmd.SilenceErrors {
		t.Error("root command should silence usage and errors")
	}
}

func TestEncodeDecode(t *testing.T) {
	dir := t.TempDir()
	sc := writeFile(t, dir, "schema.yaml", testSchema)
	values := writeFile(t, dir, "point.yaml", "x: 1\n\"y\": 2\n")

	out, err := run(t, "", "encode", sc, "point", values, "--hex")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if out != "0100000002000000\n" {
		t.Errorf("encode = %q", out)
	}

	out, err = run(t, "01000000 02000000\n", "decode", sc, "point", "-", "--hex")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != "x: 1\n\"y\": 2\n" && out != "x: 1\ny: 2\n" {
		t.Errorf("decode = %q", out)
	}
}

func TestEncode_OutputFile(t *testing.T) {
	dir := t.TempDir()
	sc := writeFile(t, dir, "schema.yaml", testSchema)
	target := filepath.Join(dir, "label.bin")

	if _, err := run(t, "text: hi\n", "encode", sc, "label", "-", "-o", target); err != nil {
		t.Fatalf("encode: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	// at is nil and ordered first, then the varint-prefixed text.
	if want := []byte{0, 2, 'h', 'i'}; !bytes.Equal(data, want) {
		t.Errorf("bytes = % x, want % x", data, want)
	}

	out, err := run(t, "", "decode", sc, "label", target)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != "text: hi\nat: null\n" {
		t.Errorf("decode = %q", out)
	}
}

func TestStringPrefixFromEnv(t *testing.T) {
	dir := t.TempDir()
	sc := writeFile(t, dir, "schema.yaml", testSchema)
	t.Setenv("BINCODEC_STRING_PREFIX", "fixed32")

	out, err := run(t, "text: hi\n", "encode", sc, "label", "-", "--hex")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if out != "00020000006869\n" {
		t.Errorf("encode = %q", out)
	}
}

func TestPlan(t *testing.T) {
	dir := t.TempDir()
	sc := writeFile(t, dir, "schema.yaml", testSchema)

	out, err := run(t, "", "plan", sc, "label")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	for _, want := range []string{"label\n", "?composite point", "order=min", "text"} {
		if !strings.Contains(out, want) {
			t.Errorf("plan output missing %q:\n%s", want, out)
		}
	}
}

func TestPlan_SchemaMemberNames(t *testing.T) {
	dir := t.TempDir()
	sc := writeFile(t, dir, "schema.yaml", `
types:
  - name: entry
    members:
      - name: display_name
        type: string
      - name: note
        type: string
        skip: true
`)

	out, err := run(t, "", "plan", sc, "entry")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	for _, want := range []string{" display_name ", "skipped: note"} {
		if !strings.Contains(out, want) {
			t.Errorf("plan output missing %q:\n%s", want, out)
		}
	}
	for _, field := range []string{"Display_name", "Note"} {
		if strings.Contains(out, field) {
			t.Errorf("plan output shows Go field %q:\n%s", field, out)
		}
	}
}

func TestCommandErrors(t *testing.T) {
	dir := t.TempDir()
	sc := writeFile(t, dir, "schema.yaml", testSchema)
	bad := writeFile(t, dir, "bad.yaml", "types: [{name: a, members: [{name: x, type: nope}]}]")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown type", []string{"plan", sc, "circle"}, `type "circle" not in schema`},
		{"invalid schema", []string{"plan", bad, "a"}, `unknown type "nope"`},
		{"missing schema", []string{"plan", filepath.Join(dir, "none.yaml"), "a"}, "read schema"},
		{"bad prefix", []string{"plan", sc, "point", "--string-prefix=u16"}, "string_prefix"},
		{"truncated input", []string{"decode", sc, "point", "-", "--hex"}, "unexpected EOF"},
		{"arity", []string{"encode", sc}, "accepts 3 arg(s)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, "0100", tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	writeFile(t, ".", "codecgen.yaml", "string_prefix: fixed32\nmax_collection_length: 16\ncolor: always\n")

	cfg, err := loadConfig(newViper())
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.StringPrefix != "fixed32" || cfg.MaxCollectionLength != 16 || cfg.Color != "always" || cfg.LogLevel != "warn" {
		t.Errorf("config = %+v", cfg)
	}

	writeFile(t, ".", "codecgen.yaml", "color: sometimes\n")
	if _, err := loadConfig(newViper()); err == nil {
		t.Error("invalid color should fail")
	}
}

func TestBrowseModel(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "schema.yaml", testSchema)
	a := &app{v: newViper(), cfg: &Config{StringPrefix: "varint", LogLevel: "error", Color: "never"}, log: zap.NewNop()}

	m := newBrowseModel(path, a.load)
	m.Update(m.Init()())
	if m.err != nil {
		t.Fatalf("load: %v", m.err)
	}
	if !strings.Contains(m.View(), "point (2 members)") {
		t.Errorf("view:\n%s", m.View())
	}

	key := func(k tea.KeyType) {
		m.Update(tea.KeyMsg{Type: k})
	}
	key(tea.KeyDown)
	key(tea.KeyUp)
	key(tea.KeyEnter)
	if m.state != stateEditValue || !strings.Contains(m.plan, "point") {
		t.Fatalf("state = %d, plan = %q", m.state, m.plan)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("{x: 1, y: 2}")})
	if m.input.Value() != "{x: 1, y: 2}" {
		t.Fatalf("input = %q", m.input.Value())
	}
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter should start encoding")
	}
	m.Update(cmd())
	if m.state != stateShowResult || m.err != nil {
		t.Fatalf("state = %d, err = %v", m.state, m.err)
	}
	if !strings.Contains(m.result, "8 bytes") || !strings.Contains(m.result, "01 00 00 00 02 00 00 00") {
		t.Errorf("result = %q", m.result)
	}

	key(tea.KeyEsc)
	key(tea.KeyEsc)
	if m.state != stateSelectType {
		t.Errorf("state = %d, want select", m.state)
	}
}
