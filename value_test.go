// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package dscsfmt

import "testing"

func TestEntryValueAccessors(t *testing.T) {
	if v, ok := Int32Value(42).Int32(); !ok || v != 42 {
		t.Errorf("Int32Value(42).Int32() = (%d, %v), want (42, true)", v, ok)
	}
	if _, ok := Int32Value(42).String(); ok {
		t.Error("Int32Value.String() should report ok=false")
	}
	if v, ok := StringValue("hi").String(); !ok || v != "hi" {
		t.Errorf("StringValue(hi).String() = (%q, %v), want (hi, true)", v, ok)
	}
	if !Absent().IsAbsent() {
		t.Error("Absent() should report IsAbsent")
	}
	if BoolValue(true).IsAbsent() {
		t.Error("BoolValue should not report IsAbsent")
	}
}

func TestIntArrayValueCopies(t *testing.T) {
	src := []int32{1, 2, 3}
	v := IntArrayValue(src)
	src[0] = 999
	got, _ := v.IntArray()
	if got[0] != 1 {
		t.Errorf("IntArrayValue should copy its input; got %v", got)
	}
}

func TestCheckValueTag(t *testing.T) {
	if err := checkValueTag(INT32, Int32Value(1)); err != nil {
		t.Errorf("matching tag should not error: %v", err)
	}
	if err := checkValueTag(INT32, StringValue("x")); err == nil {
		t.Error("mismatched tag should error")
	}
	if !IsValueError(checkValueTag(BOOL, Int8Value(1))) {
		t.Error("checkValueTag mismatch should be a ValueError")
	}
	if err := checkValueTag(EMPTY, StringValue("anything")); err != nil {
		t.Errorf("EMPTY column should accept any value: %v", err)
	}
	if err := checkValueTag(STRING, StringValue("")); err != nil {
		t.Errorf("empty string should still satisfy a STRING column: %v", err)
	}
}
