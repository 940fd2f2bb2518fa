package synth

import (
	"bytes"
	"context"
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/bincodec"
	cerrors "github.com/wippyai/bincodec/errors"
	"github.com/wippyai/bincodec/stream"
	"github.com/wippyai/bincodec/wasmmem"
)

func codecFor[T any](t *testing.T, s *Synthesizer) *Codec[T] {
	t.Helper()
	c, err := For[T](s)
	if err != nil {
		t.Fatalf("For[%s]: %v", reflect.TypeFor[T](), err)
	}
	return c
}

func marshal[T any](t *testing.T, s *Synthesizer, v T) []byte {
	t.Helper()
	data, err := codecFor[T](t, s).Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return data
}

func roundTrip[T any](t *testing.T, s *Synthesizer, v T) T {
	t.Helper()
	c := codecFor[T](t, s)
	data, err := c.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := c.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal(% x): %v", data, err)
	}
	return got
}

type position struct {
	X, Y int32
}

type nestedRecord struct {
	Position  position `bin:"order=0"`
	Position2 position `bin:"order=1"`
	IsEmpty   bool
	Test2     int32
}

func TestNestedComposites_Ordering(t *testing.T) {
	s := New(Config{})
	v := nestedRecord{
		Position:  position{X: 1, Y: 2},
		Position2: position{X: 3, Y: 4},
		IsEmpty:   true,
		Test2:     5,
	}

	want := []byte{
		1, 0, 0, 0, 2, 0, 0, 0,
		3, 0, 0, 0, 4, 0, 0, 0,
		1,
		5, 0, 0, 0,
	}
	if got := marshal(t, s, v); !bytes.Equal(got, want) {
		t.Errorf("bytes = % x, want % x", got, want)
	}
	if got := roundTrip(t, s, v); got != v {
		t.Errorf("round trip = %+v, want %+v", got, v)
	}
}

type gatedRecord struct {
	Version    int32  `bin:"order=min"`
	SecondProp string `bin:"order=1"`
	NewProp    string `bin:"order=2,when=never"`
}

type gatedFallbackRecord struct {
	Version int32
	NewProp string `bin:"when=never,fallback='n/a'"`
}

func TestGate_NeverReadMember(t *testing.T) {
	s := New(Config{})
	v := gatedRecord{Version: 3, SecondProp: "ab", NewProp: "dropped"}

	want := []byte{3, 0, 0, 0, 2, 'a', 'b'}
	if got := marshal(t, s, v); !bytes.Equal(got, want) {
		t.Errorf("bytes = % x, want % x", got, want)
	}
	got := roundTrip(t, s, v)
	if got.Version != 3 || got.SecondProp != "ab" || got.NewProp != "" {
		t.Errorf("round trip = %+v", got)
	}

	fb := roundTrip(t, s, gatedFallbackRecord{Version: 1, NewProp: "x"})
	if fb.NewProp != "n/a" {
		t.Errorf("fallback NewProp = %q, want n/a", fb.NewProp)
	}
}

type int16Counts struct {
	Countings []int16
}

func TestCollection_Int16List(t *testing.T) {
	s := New(Config{})

	want := []byte{0x03, 0, 0, 0, 0x01, 0, 0x17, 0, 0x04, 0}
	v := int16Counts{Countings: []int16{1, 23, 4}}
	if got := marshal(t, s, v); !bytes.Equal(got, want) {
		t.Errorf("bytes = % x, want % x", got, want)
	}
	if got := roundTrip(t, s, v); !reflect.DeepEqual(got, v) {
		t.Errorf("round trip = %+v", got)
	}

	empty := marshal(t, s, int16Counts{})
	if !bytes.Equal(empty, []byte{0, 0, 0, 0}) {
		t.Errorf("empty list bytes = % x", empty)
	}
	got := roundTrip(t, s, int16Counts{})
	if got.Countings == nil || len(got.Countings) != 0 {
		t.Errorf("empty list decoded as %#v, want empty non-nil", got.Countings)
	}
}

type ultimateHolder struct {
	Ultimate    int32 `bin:"readonly"`
	Complain    string
	FirstCustom int32 `bin:"order=min"`

	built bool
}

func newUltimateHolder(ultimate int32) ultimateHolder {
	return ultimateHolder{Ultimate: ultimate, built: true}
}

func TestConstructor_BindsMember(t *testing.T) {
	s := New(Config{})
	err := Configure[ultimateHolder](s, Constructors(
		Ctor(newUltimateHolder, "ultimate").Bind("ultimate", "Ultimate"),
	))
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}

	v := ultimateHolder{Ultimate: 42, Complain: "loud", FirstCustom: 7}
	want := []byte{7, 0, 0, 0, 42, 0, 0, 0, 4, 'l', 'o', 'u', 'd'}
	if got := marshal(t, s, v); !bytes.Equal(got, want) {
		t.Errorf("bytes = % x, want % x", got, want)
	}

	got := roundTrip(t, s, v)
	if !got.built {
		t.Error("constructor was not called")
	}
	if got.Ultimate != 42 || got.Complain != "loud" || got.FirstCustom != 7 {
		t.Errorf("round trip = %+v", got)
	}

	plan, err := s.Describe(reflect.TypeFor[ultimateHolder]())
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	wantBindings := []struct{ name, binding string }{
		{"FirstCustom", "setter"},
		{"Ultimate", "param ultimate"},
		{"Complain", "setter"},
	}
	for i, w := range wantBindings {
		m := plan.Members[i]
		if m.Name != w.name || m.Binding != w.binding {
			t.Errorf("member %d = %s [%s], want %s [%s]", i, m.Name, m.Binding, w.name, w.binding)
		}
	}
}

type primitives struct {
	B   bool
	I8  int8
	I16 int16
	I32 int32
	I64 int64
	U8  uint8
	U16 uint16
	U32 uint32
	U64 uint64
	F32 float32
	F64 float64
	S   string
	N   int
	U   uint
}

func TestPrimitives_RoundTrip(t *testing.T) {
	s := New(Config{})
	v := primitives{
		B: true, I8: -8, I16: -16, I32: -32, I64: math.MinInt64,
		U8: 8, U16: 16, U32: 32, U64: math.MaxUint64,
		F32: 1.5, F64: -2.25, S: "héllo", N: -1, U: 1 << 30,
	}
	if got := roundTrip(t, s, v); got != v {
		t.Errorf("round trip = %+v, want %+v", got, v)
	}

	// 1 + 1+2+4+8 + 1+2+4+8 + 4+8 + (1+6) + 8+8
	if n := len(marshal(t, s, v)); n != 66 {
		t.Errorf("encoded size = %d, want 66", n)
	}
}

type nullable struct {
	P  *int32
	PS *position
	PP **string
}

func TestNullable_RoundTrip(t *testing.T) {
	s := New(Config{})

	if got := marshal(t, s, nullable{}); !bytes.Equal(got, []byte{0, 0, 0}) {
		t.Errorf("nil pointers = % x, want 00 00 00", got)
	}

	n := int32(9)
	str := "deep"
	ps := &str
	v := nullable{P: &n, PS: &position{X: 1, Y: 2}, PP: &ps}
	got := roundTrip(t, s, v)
	if got.P == nil || *got.P != 9 {
		t.Errorf("P = %v", got.P)
	}
	if got.PS == nil || *got.PS != (position{X: 1, Y: 2}) {
		t.Errorf("PS = %v", got.PS)
	}
	if got.PP == nil || *got.PP == nil || **got.PP != "deep" {
		t.Errorf("PP = %v", got.PP)
	}

	st := codecFor[nullable](t, s).Strategy()
	if m, _ := st.Composite.Lookup("PP"); m.Strategy.String() != "??string" {
		t.Errorf("PP strategy = %s", m.Strategy)
	}
}

type treeNode struct {
	Value    int32
	Children []treeNode
	Next     *treeNode
}

func TestRecursiveTypes(t *testing.T) {
	s := New(Config{})
	v := treeNode{
		Value: 1,
		Children: []treeNode{
			{Value: 2, Children: []treeNode{}},
			{Value: 3, Children: []treeNode{}, Next: &treeNode{Value: 4, Children: []treeNode{}}},
		},
	}
	if got := roundTrip(t, s, v); !reflect.DeepEqual(got, v) {
		t.Errorf("round trip = %+v, want %+v", got, v)
	}
}

type collections struct {
	Bytes  []byte
	Fixed  [4]byte
	Arr    [2]int16
	Names  map[string]int32
	Nested [][]uint8
	ByID   map[int64]*position
}

func TestCollections_RoundTrip(t *testing.T) {
	s := New(Config{})
	v := collections{
		Bytes:  []byte("raw"),
		Fixed:  [4]byte{1, 2, 3, 4},
		Arr:    [2]int16{-1, 1},
		Names:  map[string]int32{"b": 2, "a": 1},
		Nested: [][]uint8{{1}, {}},
		ByID:   map[int64]*position{7: {X: 7}, 3: nil},
	}
	if got := roundTrip(t, s, v); !reflect.DeepEqual(got, v) {
		t.Errorf("round trip = %+v, want %+v", got, v)
	}
}

func TestMap_DeterministicOrder(t *testing.T) {
	s := New(Config{})
	type ranks struct{ M map[string]int32 }

	want := []byte{
		2, 0, 0, 0,
		1, 'a', 1, 0, 0, 0,
		1, 'b', 2, 0, 0, 0,
	}
	for i := 0; i < 10; i++ {
		got := marshal(t, s, ranks{M: map[string]int32{"b": 2, "a": 1}})
		if !bytes.Equal(got, want) {
			t.Fatalf("bytes = % x, want % x", got, want)
		}
	}
}

func TestMap_DuplicateKey(t *testing.T) {
	s := New(Config{})
	data := []byte{
		2, 0, 0, 0,
		1, 'a', 1, 0, 0, 0,
		1, 'a', 2, 0, 0, 0,
	}
	var m map[string]int32
	if err := s.Unmarshal(data, &m); !errors.Is(err, cerrors.ErrStreamCorruption) {
		t.Errorf("err = %v, want stream corruption", err)
	}
}

func TestCollections_Corruption(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		data []byte
		into any
	}{
		{"negative count", Config{}, []byte{0xff, 0xff, 0xff, 0xff}, new([]int32)},
		{"count over limit", Config{MaxCollectionLength: 4}, []byte{5, 0, 0, 0}, new([]int32)},
		{"raw count over limit", Config{MaxCollectionLength: 2}, []byte{3, 0, 0, 0, 1, 2, 3}, new([]byte)},
		{"array length mismatch", Config{}, []byte{1, 0, 0, 0, 1, 0}, new([2]int16)},
		{"trailing bytes", Config{}, []byte{0, 0, 0, 0, 9}, new([]int32)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.cfg).Unmarshal(tt.data, tt.into)
			if !errors.Is(err, cerrors.ErrStreamCorruption) {
				t.Errorf("err = %v, want stream corruption", err)
			}
		})
	}
}

func TestTruncatedInput_PassesReaderError(t *testing.T) {
	s := New(Config{})
	data := marshal(t, s, nestedRecord{Test2: 1})

	var dst nestedRecord
	err := s.Unmarshal(data[:len(data)-2], &dst)
	if err == nil {
		t.Fatal("expected error")
	}
	var ce *cerrors.Error
	if errors.As(err, &ce) {
		t.Errorf("reader error was wrapped: %v", err)
	}
}

type color uint8

const (
	red color = iota + 1
	green
)

type paint struct {
	Color color
	Alt   color
}

func TestEnum(t *testing.T) {
	s := New(Config{})
	if err := s.RegisterEnum(red, green); err != nil {
		t.Fatalf("RegisterEnum: %v", err)
	}

	v := paint{Color: green, Alt: red}
	if got := marshal(t, s, v); !bytes.Equal(got, []byte{2, 1}) {
		t.Errorf("bytes = % x", got)
	}
	if got := roundTrip(t, s, v); got != v {
		t.Errorf("round trip = %+v", got)
	}

	var dst paint
	if err := s.Unmarshal([]byte{7, 1}, &dst); !errors.Is(err, cerrors.ErrStreamCorruption) {
		t.Errorf("undeclared value err = %v, want stream corruption", err)
	}

	m, _ := codecFor[paint](t, s).Strategy().Composite.Lookup("Color")
	if m.Strategy.Kind.String() != "enum" {
		t.Errorf("Color kind = %s, want enum", m.Strategy.Kind)
	}

	codecFor[color](t, s)
	if err := s.RegisterEnum(red); !errors.Is(err, cerrors.ErrInvalidDirective) {
		t.Errorf("register after use err = %v, want invalid directive", err)
	}
}

type event struct {
	At    time.Time
	Color uint32 `bin:"conv=hex"`
}

func TestConverters(t *testing.T) {
	s := New(Config{})
	err := s.RegisterConverter("hex",
		func(v uint32) string { return strings.ToUpper(strconv.FormatUint(uint64(v), 16)) },
		func(h string) (uint32, error) {
			var v uint32
			for _, c := range h {
				d := strings.IndexRune("0123456789ABCDEF", c)
				if d < 0 {
					return 0, errors.New("bad hex digit")
				}
				v = v<<4 | uint32(d)
			}
			return v, nil
		})
	if err != nil {
		t.Fatalf("RegisterConverter: %v", err)
	}

	at := time.Date(2024, 3, 1, 12, 30, 0, 123, time.UTC)
	v := event{At: at, Color: 0xff00aa}
	data := marshal(t, s, v)
	if !bytes.HasSuffix(data, []byte("\x06FF00AA")) {
		t.Errorf("converted wire bytes = % x", data)
	}

	got := roundTrip(t, s, v)
	if !got.At.Equal(at) || got.At.Location() != time.UTC {
		t.Errorf("At = %v", got.At)
	}
	if got.Color != 0xff00aa {
		t.Errorf("Color = %x", got.Color)
	}

	bad := append(data[:8:8], []byte("\x02ZZ")...)
	var dst event
	err = s.Unmarshal(bad, &dst)
	var ce *cerrors.Error
	if !errors.As(err, &ce) || ce.Kind != cerrors.KindHook {
		t.Errorf("bad converter input err = %v, want hook error", err)
	}
}

type point3 struct {
	x, y, z int16
}

func (p point3) EncodeBinary(w bincodec.Writer) error {
	for _, c := range []int16{p.x, p.y, p.z} {
		if err := w.WriteI16(c); err != nil {
			return err
		}
	}
	return nil
}

func (p *point3) DecodeBinary(r bincodec.Reader) error {
	for _, c := range []*int16{&p.x, &p.y, &p.z} {
		v, err := r.ReadI16()
		if err != nil {
			return err
		}
		*c = v
	}
	return nil
}

type packed struct {
	bits uint8
}

func (p packed) Save(w bincodec.Writer) error {
	return w.WriteU8(p.bits)
}

func (p *packed) Load(r bincodec.Reader) error {
	b, err := r.ReadU8()
	p.bits = b
	return err
}

type shapes3 struct {
	P      point3
	PP     *point3
	Packed packed `bin:"method=Save/Load"`
	Title  string `bin:"func=upper"`
}

func TestCustomHooks(t *testing.T) {
	s := New(Config{})
	err := s.RegisterFuncs("upper",
		func(w bincodec.Writer, v string) error { return w.WriteString(strings.ToUpper(v)) },
		func(r bincodec.Reader) (string, error) { return r.ReadString() })
	if err != nil {
		t.Fatalf("RegisterFuncs: %v", err)
	}

	v := shapes3{
		P:      point3{1, 2, 3},
		PP:     &point3{4, 5, 6},
		Packed: packed{bits: 0xa5},
		Title:  "title",
	}
	data := marshal(t, s, v)
	want := []byte{
		1, 0, 2, 0, 3, 0,
		1, 4, 0, 5, 0, 6, 0,
		0xa5,
		5, 'T', 'I', 'T', 'L', 'E',
	}
	if !bytes.Equal(data, want) {
		t.Errorf("bytes = % x, want % x", data, want)
	}

	got := roundTrip(t, s, v)
	if got.P != v.P || *got.PP != *v.PP || got.Packed != v.Packed || got.Title != "TITLE" {
		t.Errorf("round trip = %+v", got)
	}
}

func TestCustomHooks_AutoMethodsDisabled(t *testing.T) {
	s := New(Config{DisableAutoMethods: true})
	type holder struct{ P point3 }
	// point3 has no exported fields, so without its methods it encodes as
	// an empty composite.
	if got := marshal(t, s, holder{P: point3{1, 2, 3}}); len(got) != 0 {
		t.Errorf("bytes = % x, want none", got)
	}
}

type baseRecord struct {
	ID   int64
	Kind string `bin:"order=-1"`
}

type derivedRecord struct {
	Extra bool `bin:"order=-5"`
	baseRecord
	Name string
}

func TestBaseDescriptor_Prefix(t *testing.T) {
	s := New(Config{})
	plan, err := s.Describe(reflect.TypeFor[derivedRecord]())
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}

	var names []string
	for _, m := range plan.Members {
		names = append(names, m.Name)
	}
	want := []string{"Kind", "ID", "Extra", "Name"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("order = %v, want %v", names, want)
	}
	if !plan.Members[0].Inherited || plan.Members[2].Inherited {
		t.Error("inherited flags wrong")
	}
	if plan.Base != "synth.baseRecord" {
		t.Errorf("base = %q", plan.Base)
	}

	v := derivedRecord{Extra: true, baseRecord: baseRecord{ID: 9, Kind: "k"}, Name: "n"}
	if got := roundTrip(t, s, v); got != v {
		t.Errorf("round trip = %+v, want %+v", got, v)
	}
}

type gated struct {
	Version uint8
	Name    string `bin:"when=atLeast2(Version)"`
	Score   int32  `bin:"when=atLeast2(Version),fallback=-1"`
}

func TestGates_ContextMembers(t *testing.T) {
	s := New(Config{})
	if err := s.RegisterPredicate("atLeast2", func(v uint8) bool { return v >= 2 }); err != nil {
		t.Fatalf("RegisterPredicate: %v", err)
	}

	old := gated{Version: 1, Name: "ignored", Score: 10}
	if got := marshal(t, s, old); !bytes.Equal(got, []byte{1}) {
		t.Errorf("v1 bytes = % x, want 01", got)
	}
	got := roundTrip(t, s, old)
	if got.Name != "" || got.Score != -1 {
		t.Errorf("v1 round trip = %+v", got)
	}

	cur := gated{Version: 2, Name: "n", Score: 10}
	if got := roundTrip(t, s, cur); got != cur {
		t.Errorf("v2 round trip = %+v", got)
	}
}

type gatedOption struct {
	Flags uint8
	Extra *string
}

func TestGates_MemberOptions(t *testing.T) {
	s := New(Config{})
	def := "default"
	err := Configure[gatedOption](s, Member("Extra", When("nonzero", "Flags"), Fallback(&def)))
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}

	a := roundTrip(t, s, gatedOption{})
	b := roundTrip(t, s, gatedOption{})
	if a.Extra == nil || *a.Extra != "default" {
		t.Fatalf("Extra = %v, want fallback", a.Extra)
	}
	if a.Extra == b.Extra || a.Extra == &def {
		t.Error("pointer fallback must be copied per decode")
	}

	x := "set"
	got := roundTrip(t, s, gatedOption{Flags: 1, Extra: &x})
	if got.Extra == nil || *got.Extra != "set" {
		t.Errorf("Extra = %v", got.Extra)
	}
}

type readOnlyOut struct {
	Data     string
	Checksum uint32 `bin:"readonly"`
}

func TestDecodeWithOut(t *testing.T) {
	s := New(Config{})
	c := codecFor[readOnlyOut](t, s)
	data := marshal(t, s, readOnlyOut{Data: "d", Checksum: 0xbeef})

	got, out, err := c.DecodeWithOut(stream.NewBytesReader(data))
	if err != nil {
		t.Fatalf("DecodeWithOut: %v", err)
	}
	if got.Data != "d" || got.Checksum != 0 {
		t.Errorf("value = %+v, read-only member must not be assigned", got)
	}
	if out["Checksum"] != uint32(0xbeef) {
		t.Errorf("out = %v", out)
	}
}

func TestDecodeInto_NoWriteOnFailure(t *testing.T) {
	s := New(Config{})
	c := codecFor[nestedRecord](t, s)
	data := marshal(t, s, nestedRecord{Test2: 77})

	dst := nestedRecord{Test2: 1, IsEmpty: true}
	if err := c.DecodeInto(stream.NewBytesReader(data[:10]), &dst); err == nil {
		t.Fatal("expected error")
	}
	if dst.Test2 != 1 || !dst.IsEmpty {
		t.Errorf("dst modified on failure: %+v", dst)
	}

	if err := c.DecodeInto(stream.NewBytesReader(data), &dst); err != nil {
		t.Fatalf("DecodeInto: %v", err)
	}
	if dst.Test2 != 77 {
		t.Errorf("dst = %+v", dst)
	}

	if err := s.Unmarshal(data[:10], &dst); err == nil || dst.Test2 != 77 {
		t.Errorf("Unmarshal failure wrote dst: %+v, %v", dst, err)
	}
}

type report struct {
	Lines []string
}

type request struct {
	Query string
}

func TestOptOut(t *testing.T) {
	s := New(Config{})
	if err := Configure[report](s, EncodeOnly()); err != nil {
		t.Fatal(err)
	}
	if err := Configure[request](s, DecodeOnly()); err != nil {
		t.Fatal(err)
	}

	data, err := s.Marshal(report{Lines: []string{"a"}})
	if err != nil {
		t.Fatalf("Marshal encode-only: %v", err)
	}
	var r report
	if err := s.Unmarshal(data, &r); !errors.Is(err, cerrors.ErrOptOut) {
		t.Errorf("decode of encode-only err = %v, want opt out", err)
	}

	if _, err := s.Marshal(request{}); !errors.Is(err, cerrors.ErrOptOut) {
		t.Errorf("encode of decode-only err = %v, want opt out", err)
	}
	var q request
	if err := s.Unmarshal([]byte{1, 'q'}, &q); err != nil || q.Query != "q" {
		t.Errorf("decode-only Unmarshal = %+v, %v", q, err)
	}

	if err := Configure[report](s, EncodeOnly(), DecodeOnly()); err == nil {
		t.Error("encode-only and decode-only together should fail")
	}
}

func TestNoDefaultStream(t *testing.T) {
	s := New(Config{NoDefaultStream: true})
	if _, err := s.Marshal(position{}); !errors.Is(err, cerrors.ErrOptOut) {
		t.Errorf("Marshal err = %v, want opt out", err)
	}

	var buf bytes.Buffer
	if err := s.Encode(stream.NewWriter(&buf), &position{X: 1, Y: 2}); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var p position
	if err := s.Decode(stream.NewReader(&buf), &p); err != nil || p != (position{X: 1, Y: 2}) {
		t.Errorf("Decode = %+v, %v", p, err)
	}
}

func TestConfigure_AfterSynthesis(t *testing.T) {
	s := New(Config{})
	codecFor[position](t, s)

	err := Configure[position](s, Member("X", Order(5)))
	if !errors.Is(err, cerrors.ErrInvalidDirective) {
		t.Errorf("err = %v, want invalid directive", err)
	}
}

func TestConfigure_Validation(t *testing.T) {
	tests := []struct {
		name string
		opts []TypeOption
	}{
		{"unknown member", []TypeOption{Member("Z", Order(1))}},
		{"unexported member", []TypeOption{Member("built", Order(1))}},
		{"constructor wrong result", []TypeOption{Constructors(Ctor(func() int { return 0 }))}},
		{"constructor name count", []TypeOption{Constructors(Ctor(newUltimateHolder))}},
		{"bind unknown param", []TypeOption{Constructors(Ctor(newUltimateHolder, "u").Bind("x", "Ultimate"))}},
		{"integer default for string param", []TypeOption{Constructors(
			Ctor(func(u int32, c string) ultimateHolder {
				return ultimateHolder{Ultimate: u, Complain: c}
			}, "Ultimate", "Complain").Default("Complain", 65),
		)}},
		{"two preferred", []TypeOption{Constructors(
			Ctor(newUltimateHolder, "Ultimate").Preferred(),
			Ctor(newUltimateHolder, "Ultimate").Preferred(),
		)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Configure[ultimateHolder](New(Config{}), tt.opts...)
			if !errors.Is(err, cerrors.ErrInvalidDirective) {
				t.Errorf("err = %v, want invalid directive", err)
			}
		})
	}

	if err := New(Config{}).Configure(reflect.TypeFor[int](), EncodeOnly()); err == nil {
		t.Error("configuring a non-struct should fail")
	}
}

func TestMemberOptions_Order(t *testing.T) {
	s := New(Config{})
	if err := Configure[position](s, Member("X", Order(1)), Member("Y", Order(0))); err != nil {
		t.Fatal(err)
	}
	got := marshal(t, s, position{X: 1, Y: 2})
	if !bytes.Equal(got, []byte{2, 0, 0, 0, 1, 0, 0, 0}) {
		t.Errorf("bytes = % x", got)
	}
}

type skipping struct {
	Keep   int8
	Drop   int8 `bin:"-"`
	Hidden int8 `bin:"-"`
	secret int8
}

func TestSkipAndInclude(t *testing.T) {
	s := New(Config{})
	if err := Configure[skipping](s, Member("Hidden", Include())); err != nil {
		t.Fatal(err)
	}
	v := skipping{Keep: 1, Drop: 2, Hidden: 3, secret: 4}
	if got := marshal(t, s, v); !bytes.Equal(got, []byte{1, 3}) {
		t.Errorf("bytes = % x, want 01 03", got)
	}
	got := roundTrip(t, s, v)
	if got != (skipping{Keep: 1, Hidden: 3}) {
		t.Errorf("round trip = %+v", got)
	}
}

func TestConcurrentFirstUse(t *testing.T) {
	s := New(Config{})
	v := nestedRecord{Position: position{X: 1}, Test2: 2}

	var wg sync.WaitGroup
	results := make([][]byte, 16)
	strategies := make([]*Strategy, 16)
	errs := make([]error, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := For[nestedRecord](s)
			if err != nil {
				errs[i] = err
				return
			}
			strategies[i] = c.Strategy()
			results[i], errs[i] = c.Marshal(v)
		}(i)
	}
	wg.Wait()

	for i := range results {
		if errs[i] != nil {
			t.Fatalf("goroutine %d: %v", i, errs[i])
		}
		if !bytes.Equal(results[i], results[0]) {
			t.Errorf("goroutine %d bytes differ", i)
		}
		if strategies[i] != strategies[0] {
			t.Errorf("goroutine %d saw a different strategy", i)
		}
	}
}

func TestPackageLevelHelpers(t *testing.T) {
	data, err := Marshal(&position{X: 5, Y: 6})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var p position
	if err := Unmarshal(data, &p); err != nil || p != (position{X: 5, Y: 6}) {
		t.Errorf("Unmarshal = %+v, %v", p, err)
	}

	if _, err := Marshal(nil); !errors.Is(err, &cerrors.Error{Kind: cerrors.KindNilPointer}) {
		t.Errorf("Marshal(nil) err = %v", err)
	}
	if err := Unmarshal(data, p); err == nil {
		t.Error("Unmarshal into non-pointer should fail")
	}
}

func TestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(zap.NewNop())

	s := New(Config{})
	codecFor[nestedRecord](t, s)
	if n := logs.FilterMessage("synthesized type").Len(); n != 2 {
		t.Errorf("synthesized type entries = %d, want 2", n)
	}

	type broken struct{ C chan int }
	if _, err := For[broken](s); err == nil {
		t.Fatal("expected error")
	}
	if logs.FilterMessage("synthesis failed").Len() != 1 {
		t.Error("failure was not logged")
	}
}

func TestWasmMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	inst, err := wasmmem.Open(ctx, wasmmem.Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer inst.Close(ctx)

	s := New(Config{NoDefaultStream: true})
	c := codecFor[collections](t, s)
	v := collections{
		Bytes:  []byte{9, 8},
		Names:  map[string]int32{"x": 1},
		Nested: [][]uint8{},
		ByID:   map[int64]*position{},
	}

	w, wc := stream.NewMemoryWriter(inst, 128)
	if err := c.Encode(w, v); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	r, rc := stream.NewMemoryReader(inst, 128)
	got, err := c.Decode(r)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, v) {
		t.Errorf("round trip = %+v, want %+v", got, v)
	}
	if rc.Offset() != wc.Offset() {
		t.Errorf("read %d bytes, wrote %d", rc.Offset()-128, wc.Offset()-128)
	}
}
