package synth

import (
	"cmp"
	"math"
	"reflect"
	"slices"

	"github.com/wippyai/bincodec"
	"github.com/wippyai/bincodec/errors"
	"github.com/wippyai/bincodec/synth/internal/strategy"
)

var byteType = reflect.TypeFor[byte]()

func resolveCollection(ss *session, t reflect.Type, _ *Directives, path []string) (*Strategy, error) {
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
	case reflect.Map:
		return ss.mapStrategy(t, path)
	default:
		return nil, nil
	}

	length := -1
	if t.Kind() == reflect.Array {
		length = t.Len()
	}
	limit := ss.s.cfg.MaxCollectionLength

	if t.Elem() == byteType {
		st := &Strategy{Kind: strategy.KindCollection, Type: t, Length: length, Raw: true}
		st.Elem = &Strategy{Kind: strategy.KindPrimitive, Type: byteType, Prim: strategy.PrimU8, Length: -1}
		st.Elem.enc, st.Elem.dec = primitiveCodec(strategy.PrimU8, path)
		st.enc, st.dec = rawBytesCodec(t, limit, path)
		return st, nil
	}

	elem, err := ss.classify(t.Elem(), nil, append(slices.Clip(path), "[elem]"))
	if err != nil {
		return nil, err
	}
	st := &Strategy{Kind: strategy.KindCollection, Type: t, Elem: elem, Length: length}

	st.enc = func(w bincodec.Writer, v reflect.Value) error {
		n := v.Len()
		if err := writeCount(w, n, path); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := elem.enc(w, v.Index(i)); err != nil {
				return err
			}
		}
		return nil
	}

	if length >= 0 {
		st.dec = func(r bincodec.Reader, v reflect.Value) error {
			n, err := readCount(r, limit, path)
			if err != nil {
				return err
			}
			if n != length {
				return errors.StreamCorruption(errors.PhaseDecode, path, "count %d for array of length %d", n, length)
			}
			for i := 0; i < n; i++ {
				if err := elem.dec(r, v.Index(i)); err != nil {
					return err
				}
			}
			return nil
		}
		return st, nil
	}

	zero := reflect.Zero(t.Elem())
	st.dec = func(r bincodec.Reader, v reflect.Value) error {
		n, err := readCount(r, limit, path)
		if err != nil {
			return err
		}
		s := reflect.MakeSlice(t, 0, min(n, preallocLimit))
		for i := 0; i < n; i++ {
			s = reflect.Append(s, zero)
			if err := elem.dec(r, s.Index(i)); err != nil {
				return err
			}
		}
		v.Set(s)
		return nil
	}
	return st, nil
}

func rawBytesCodec(t reflect.Type, limit int, path []string) (encodeFn, decodeFn) {
	isArray := t.Kind() == reflect.Array
	enc := func(w bincodec.Writer, v reflect.Value) error {
		var data []byte
		if isArray {
			data = make([]byte, v.Len())
			reflect.Copy(reflect.ValueOf(data), v)
		} else {
			data = v.Bytes()
		}
		if err := writeCount(w, len(data), path); err != nil {
			return err
		}
		return w.WriteRawBytes(data)
	}
	dec := func(r bincodec.Reader, v reflect.Value) error {
		n, err := readCount(r, limit, path)
		if err != nil {
			return err
		}
		if isArray && n != t.Len() {
			return errors.StreamCorruption(errors.PhaseDecode, path, "count %d for array of length %d", n, t.Len())
		}
		data, err := r.ReadRawBytes(n)
		if err != nil {
			return err
		}
		if len(data) != n {
			return errors.StreamCorruption(errors.PhaseDecode, path, "read %d raw bytes, want %d", len(data), n)
		}
		if isArray {
			reflect.Copy(v, reflect.ValueOf(data))
			return nil
		}
		if data == nil {
			data = []byte{}
		}
		v.Set(reflect.ValueOf(data).Convert(t))
		return nil
	}
	return enc, dec
}

func (ss *session) mapStrategy(t reflect.Type, path []string) (*Strategy, error) {
	key, err := ss.classify(t.Key(), nil, append(slices.Clip(path), "[key]"))
	if err != nil {
		return nil, err
	}
	val, err := ss.classify(t.Elem(), nil, append(slices.Clip(path), "[value]"))
	if err != nil {
		return nil, err
	}
	limit := ss.s.cfg.MaxCollectionLength
	compare := keyCompare(t.Key())

	st := &Strategy{Kind: strategy.KindCollection, Type: t, IsMap: true, Key: key, Elem: val, Length: -1}
	st.enc = func(w bincodec.Writer, v reflect.Value) error {
		n := v.Len()
		if err := writeCount(w, n, path); err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		keys := v.MapKeys()
		if compare != nil {
			slices.SortFunc(keys, compare)
		}
		for _, k := range keys {
			if err := key.enc(w, k); err != nil {
				return err
			}
			if err := val.enc(w, v.MapIndex(k)); err != nil {
				return err
			}
		}
		return nil
	}
	st.dec = func(r bincodec.Reader, v reflect.Value) error {
		n, err := readCount(r, limit, path)
		if err != nil {
			return err
		}
		m := reflect.MakeMapWithSize(t, min(n, preallocLimit))
		for i := 0; i < n; i++ {
			k := reflect.New(t.Key()).Elem()
			if err := key.dec(r, k); err != nil {
				return err
			}
			e := reflect.New(t.Elem()).Elem()
			if err := val.dec(r, e); err != nil {
				return err
			}
			if m.MapIndex(k).IsValid() {
				return errors.StreamCorruption(errors.PhaseDecode, path, "duplicate map key %v", k.Interface())
			}
			m.SetMapIndex(k, e)
		}
		v.Set(m)
		return nil
	}
	return st, nil
}

// keyCompare orders map keys of scalar kinds so map output is
// deterministic. Other key kinds are written in iteration order.
func keyCompare(t reflect.Type) func(a, b reflect.Value) int {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(a, b reflect.Value) int { return cmp.Compare(a.Int(), b.Int()) }
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return func(a, b reflect.Value) int { return cmp.Compare(a.Uint(), b.Uint()) }
	case reflect.Float32, reflect.Float64:
		return func(a, b reflect.Value) int { return cmp.Compare(a.Float(), b.Float()) }
	case reflect.String:
		return func(a, b reflect.Value) int { return cmp.Compare(a.String(), b.String()) }
	case reflect.Bool:
		return func(a, b reflect.Value) int {
			switch {
			case a.Bool() == b.Bool():
				return 0
			case b.Bool():
				return -1
			default:
				return 1
			}
		}
	default:
		return nil
	}
}

func writeCount(w bincodec.Writer, n int, path []string) error {
	if n > math.MaxInt32 {
		return errors.StreamCorruption(errors.PhaseEncode, path, "collection of %d elements exceeds int32 count", n)
	}
	return w.WriteI32(int32(n))
}

func readCount(r bincodec.Reader, limit int, path []string) (int, error) {
	n, err := r.ReadI32()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.StreamCorruption(errors.PhaseDecode, path, "negative collection count %d", n)
	}
	if int(n) > limit {
		return 0, errors.StreamCorruption(errors.PhaseDecode, path, "collection count %d exceeds limit %d", n, limit)
	}
	return int(n), nil
}
