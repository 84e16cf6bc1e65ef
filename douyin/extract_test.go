package douyin

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func decode(t *testing.T, raw string) interface{} {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestGetNested(t *testing.T) {
	root := decode(t, `{"a":{"b":{"c":"ok"}}}`)

	assert.Equal(t, "ok", Get(root, []string{"a", "b", "c"}, "def"))
	assert.Equal(t, "def", Get(root, []string{"a", "x", "c"}, "def"))
	assert.Equal(t, "def", Get(root, []string{"a", "b", "c", "d"}, "def"))
	assert.Equal(t, "def", Get(nil, []string{"a"}, "def"))
}

func TestGetNullValue(t *testing.T) {
	root := decode(t, `{"a":null}`)
	assert.Equal(t, "def", Get(root, []string{"a"}, "def"))
}

func TestGetStringTypeMismatch(t *testing.T) {
	root := decode(t, `{"a":123}`)
	assert.Equal(t, "def", GetString(root, []string{"a"}, "def"))
}

func TestGetList(t *testing.T) {
	root := decode(t, `{"a":[1,2],"b":"notalist"}`)
	assert.Len(t, GetList(root, []string{"a"}), 2)
	assert.Nil(t, GetList(root, []string{"b"}))
	assert.Nil(t, GetList(root, []string{"missing"}))
}

func TestGetNumber(t *testing.T) {
	root := decode(t, `{"n":65000,"f":1.5,"s":"x"}`)

	n, ok := GetNumber(root, []string{"n"})
	assert.True(t, ok)
	assert.Equal(t, float64(65000), n)

	f, ok := GetNumber(root, []string{"f"})
	assert.True(t, ok)
	assert.Equal(t, 1.5, f)

	_, ok = GetNumber(root, []string{"s"})
	assert.False(t, ok)
	_, ok = GetNumber(root, []string{"missing"})
	assert.False(t, ok)
}
