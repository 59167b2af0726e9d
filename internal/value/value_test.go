package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFalsey(t *testing.T) {
	assert.True(t, NewNil().Falsey())
	assert.True(t, NewBool(false).Falsey())
	assert.False(t, NewBool(true).Falsey())
	assert.False(t, NewNumber(0).Falsey())
	assert.False(t, NewObj(&ObjString{Chars: ""}).Falsey())
}

func TestEqualDifferentTypesNeverEqual(t *testing.T) {
	assert.False(t, Equal(NewNil(), NewBool(false)))
	assert.False(t, Equal(NewNumber(0), NewBool(false)))
	assert.False(t, Equal(NewNumber(1), NewObj(&ObjString{Chars: "1"})))
}

func TestEqualNumbersNaN(t *testing.T) {
	nan := NewNumber(nan())
	assert.False(t, Equal(nan, nan), "NaN must never equal itself")
}

func nan() float64 {
	var zero float64
	return zero / zero
}

func TestEqualStringsByIdentity(t *testing.T) {
	a := &ObjString{Chars: "foo"}
	b := &ObjString{Chars: "foo"}
	assert.False(t, Equal(NewObj(a), NewObj(b)), "distinct objects with equal bytes are not equal without interning")
	assert.True(t, Equal(NewObj(a), NewObj(a)))
}

func TestString(t *testing.T) {
	assert.Equal(t, "nil", NewNil().String())
	assert.Equal(t, "true", NewBool(true).String())
	assert.Equal(t, "false", NewBool(false).String())
	assert.Equal(t, "7", NewNumber(7).String())
	assert.Equal(t, "foobar", NewObj(&ObjString{Chars: "foobar"}).String())
}
