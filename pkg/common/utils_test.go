package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterfaceToSlice(t *testing.T) {
	s, ok := InterfaceToSlice([]string{"a", "b"})
	assert.True(t, ok)
	assert.Equal(t, []interface{}{"a", "b"}, s)

	_, ok = InterfaceToSlice("ab")
	assert.False(t, ok)

	_, ok = InterfaceToSlice(nil)
	assert.False(t, ok)
}

func TestInterfaceToMap(t *testing.T) {
	m, ok := InterfaceToMap(map[string]int{"c": 3})
	assert.True(t, ok)
	assert.Equal(t, map[string]interface{}{"c": 3}, m)

	m, ok = InterfaceToMap(map[interface{}]interface{}{1: "one"})
	assert.True(t, ok)
	assert.Equal(t, map[string]interface{}{"1": "one"}, m)

	_, ok = InterfaceToMap([]int{1})
	assert.False(t, ok)
}

func TestValuesEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b interface{}
		want bool
	}{
		{"int and int64", 3, int64(3), true},
		{"int and float", 3, 3.0, true},
		{"different numbers", 3, 4, false},
		{"number and string", 3, "3", false},
		{"strings", "cmh", "cmh", true},
		{"slices of mixed ints", []interface{}{1, 2}, []int{1, 2}, true},
		{"slices of different length", []int{1}, []int{1, 2}, false},
		{"nil and nil", nil, nil, true},
		{"maps", map[string]interface{}{"a": "b"}, map[string]interface{}{"a": "b"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValuesEqual(tt.a, tt.b))
		})
	}
}

func TestCopyMap(t *testing.T) {
	orig := map[string]interface{}{"a": 1}
	cp := CopyMap(orig)
	cp["b"] = 2
	assert.NotContains(t, orig, "b")
	assert.Nil(t, CopyMap(nil))
}
