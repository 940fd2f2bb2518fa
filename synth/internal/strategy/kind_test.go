package strategy

import (
	"reflect"
	"testing"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		want string
		kind Kind
	}{
		{"primitive", KindPrimitive},
		{"enum", KindEnum},
		{"collection", KindCollection},
		{"composite", KindComposite},
		{"custom", KindCustom},
		{"converter", KindConverter},
		{"dynamic", KindDynamic},
		{"versioned", KindVersioned},
		{"nullable", KindNullable},
		{"unknown", Kind(255)},
	}

	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			if got := tc.kind.String(); got != tc.want {
				t.Errorf("String() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestKindPriority(t *testing.T) {
	chain := []Kind{
		KindCustom, KindConverter, KindEnum, KindDynamic,
		KindCollection, KindPrimitive, KindComposite,
	}
	for i, k := range chain {
		if got := k.Priority(); got != i+1 {
			t.Errorf("%s.Priority() = %d, want %d", k, got, i+1)
		}
		if k.IsWrapper() {
			t.Errorf("%s should not be a wrapper", k)
		}
	}

	for _, k := range []Kind{KindVersioned, KindNullable} {
		if k.Priority() != 0 {
			t.Errorf("%s.Priority() = %d, want 0", k, k.Priority())
		}
		if !k.IsWrapper() {
			t.Errorf("%s should be a wrapper", k)
		}
	}
}

func TestKindIsLeaf(t *testing.T) {
	if !KindPrimitive.IsLeaf() || !KindEnum.IsLeaf() {
		t.Error("primitive and enum should be leaves")
	}
	if KindCollection.IsLeaf() || KindComposite.IsLeaf() {
		t.Error("collection and composite should not be leaves")
	}
}

func TestPrimOf(t *testing.T) {
	tests := []struct {
		kind reflect.Kind
		want Prim
		ok   bool
	}{
		{reflect.Bool, PrimBool, true},
		{reflect.Int, PrimI64, true},
		{reflect.Int16, PrimI16, true},
		{reflect.Uint, PrimU64, true},
		{reflect.Uint8, PrimU8, true},
		{reflect.Float32, PrimF32, true},
		{reflect.String, PrimString, true},
		{reflect.Uintptr, 0, false},
		{reflect.Complex128, 0, false},
		{reflect.Struct, 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.kind.String(), func(t *testing.T) {
			got, ok := PrimOf(tc.kind)
			if ok != tc.ok || (ok && got != tc.want) {
				t.Errorf("PrimOf(%s) = %s, %v; want %s, %v", tc.kind, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestPrimSize(t *testing.T) {
	tests := []struct {
		prim Prim
		want int
	}{
		{PrimBool, 1},
		{PrimI16, 2},
		{PrimU32, 4},
		{PrimF64, 8},
		{PrimString, 0},
	}
	for _, tc := range tests {
		if got := tc.prim.Size(); got != tc.want {
			t.Errorf("%s.Size() = %d, want %d", tc.prim, got, tc.want)
		}
	}
}

func TestPrimClassification(t *testing.T) {
	if !PrimI32.IsInteger() || !PrimI32.IsSigned() {
		t.Error("i32 should be a signed integer")
	}
	if !PrimU8.IsInteger() || PrimU8.IsSigned() {
		t.Error("u8 should be an unsigned integer")
	}
	if PrimF32.IsInteger() || PrimString.IsInteger() || PrimBool.IsInteger() {
		t.Error("f32, string and bool are not integers")
	}
}
