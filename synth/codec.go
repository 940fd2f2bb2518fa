package synth

import (
	"bytes"
	"reflect"

	"github.com/wippyai/bincodec"
	"github.com/wippyai/bincodec/errors"
	"github.com/wippyai/bincodec/stream"
)

// Codec is the typed handle on a synthesized encode/decode pair.
type Codec[T any] struct {
	s   *Synthesizer
	st  *Strategy
	typ reflect.Type
}

// For returns the codec for T, synthesizing it on first use.
func For[T any](s *Synthesizer) (*Codec[T], error) {
	t := reflect.TypeFor[T]()
	st, err := s.strategyFor(t)
	if err != nil {
		return nil, err
	}
	return &Codec[T]{s: s, st: st, typ: t}, nil
}

// MustFor is For that panics on synthesis failure, for package-level vars.
func MustFor[T any](s *Synthesizer) *Codec[T] {
	c, err := For[T](s)
	if err != nil {
		panic(err)
	}
	return c
}

// Strategy returns the root strategy.
func (c *Codec[T]) Strategy() *Strategy {
	return c.st
}

func (c *Codec[T]) Encode(w bincodec.Writer, v T) error {
	return c.st.enc(w, reflect.ValueOf(&v).Elem())
}

func (c *Codec[T]) Decode(r bincodec.Reader) (T, error) {
	p := reflect.New(c.typ)
	if err := c.st.dec(r, p.Elem()); err != nil {
		var zero T
		return zero, err
	}
	return *(p.Interface().(*T)), nil
}

// DecodeInto decodes into dst. dst is only written when decoding succeeds.
func (c *Codec[T]) DecodeInto(r bincodec.Reader, dst *T) error {
	if dst == nil {
		return errors.NilPointer(errors.PhaseDecode, nil, c.typ.String())
	}
	v, err := c.Decode(r)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// DecodeWithOut decodes like Decode and also returns the read-only members
// of T that were neither constructor arguments nor assigned.
func (c *Codec[T]) DecodeWithOut(r bincodec.Reader) (T, OutValues, error) {
	var zero T
	out := OutValues{}
	if c.st.Composite == nil {
		v, err := c.Decode(r)
		return v, out, err
	}
	p := reflect.New(c.typ)
	if err := c.st.Composite.decode(r, p.Elem(), out); err != nil {
		return zero, nil, err
	}
	return *(p.Interface().(*T)), out, nil
}

// Marshal encodes v with the default stream.
func (c *Codec[T]) Marshal(v T) ([]byte, error) {
	return c.s.marshalValue(c.st, reflect.ValueOf(&v).Elem())
}

// Unmarshal decodes data with the default stream. Trailing bytes are an
// error.
func (c *Codec[T]) Unmarshal(data []byte) (T, error) {
	var zero T
	p := reflect.New(c.typ)
	if err := c.s.unmarshalValue(c.st, data, p.Elem()); err != nil {
		return zero, err
	}
	return *(p.Interface().(*T)), nil
}

func (s *Synthesizer) defaultStream() error {
	if s.cfg.NoDefaultStream {
		return errors.New(errors.PhaseConfig, errors.KindOptOut).
			Detail("default stream disabled; use Encode and Decode with a Reader or Writer").
			Build()
	}
	return nil
}

func (s *Synthesizer) marshalValue(st *Strategy, v reflect.Value) ([]byte, error) {
	if err := s.defaultStream(); err != nil {
		return nil, err
	}
	buf := stream.GetBuffer()
	defer stream.PutBuffer(buf)
	if err := st.enc(stream.NewWriter(buf, s.cfg.Stream...), v); err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}

func (s *Synthesizer) unmarshalValue(st *Strategy, data []byte, v reflect.Value) error {
	if err := s.defaultStream(); err != nil {
		return err
	}
	r := stream.NewBytesReader(data, s.cfg.Stream...)
	if err := st.dec(r, v); err != nil {
		return err
	}
	if n := r.Consumed(); n != int64(len(data)) {
		return errors.StreamCorruption(errors.PhaseDecode, nil, "%d trailing bytes after %s", int64(len(data))-n, v.Type())
	}
	return nil
}

// rootValue dereferences one level of pointer so Encode(x) and Encode(&x)
// write the same bytes.
func rootValue(v any, phase errors.Phase) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return rv, errors.NilPointer(phase, nil, "<nil>")
	}
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return rv, errors.NilPointer(phase, nil, rv.Type().String())
		}
		rv = rv.Elem()
	}
	return rv, nil
}

// Encode writes v, or the value v points to, to w.
func (s *Synthesizer) Encode(w bincodec.Writer, v any) error {
	rv, err := rootValue(v, errors.PhaseEncode)
	if err != nil {
		return err
	}
	st, err := s.strategyFor(rv.Type())
	if err != nil {
		return err
	}
	return st.enc(w, rv)
}

// Decode reads into the value ptr points to. *ptr is only written when
// decoding succeeds.
func (s *Synthesizer) Decode(r bincodec.Reader, ptr any) error {
	dst, tmp, st, err := s.decodeTarget(ptr)
	if err != nil {
		return err
	}
	if err := st.dec(r, tmp); err != nil {
		return err
	}
	dst.Set(tmp)
	return nil
}

func (s *Synthesizer) decodeTarget(ptr any) (reflect.Value, reflect.Value, *Strategy, error) {
	rv := reflect.ValueOf(ptr)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, reflect.Value{}, nil, errors.NilPointer(errors.PhaseDecode, nil, typeString(reflect.TypeOf(ptr)))
	}
	dst := rv.Elem()
	st, err := s.strategyFor(dst.Type())
	if err != nil {
		return reflect.Value{}, reflect.Value{}, nil, err
	}
	return dst, reflect.New(dst.Type()).Elem(), st, nil
}

// Marshal encodes v with the default stream.
func (s *Synthesizer) Marshal(v any) ([]byte, error) {
	rv, err := rootValue(v, errors.PhaseEncode)
	if err != nil {
		return nil, err
	}
	st, err := s.strategyFor(rv.Type())
	if err != nil {
		return nil, err
	}
	return s.marshalValue(st, rv)
}

// Unmarshal decodes data into the value ptr points to.
func (s *Synthesizer) Unmarshal(data []byte, ptr any) error {
	dst, tmp, st, err := s.decodeTarget(ptr)
	if err != nil {
		return err
	}
	if err := s.unmarshalValue(st, data, tmp); err != nil {
		return err
	}
	dst.Set(tmp)
	return nil
}

// Marshal encodes v with the default Synthesizer.
func Marshal(v any) ([]byte, error) {
	return defaultSynth.Marshal(v)
}

// Unmarshal decodes data into ptr with the default Synthesizer.
func Unmarshal(data []byte, ptr any) error {
	return defaultSynth.Unmarshal(data, ptr)
}
