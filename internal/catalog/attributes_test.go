package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAttributes() Attributes {
	return Attributes{
		"brand":      StringValue("toyota"),
		"series":     StringValue("corolla"),
		"year":       NumberValue(2020),
		"km":         NumberValue(15432.5),
		"damageFree": BoolValue(false),
		"color":      StringValue("Beyaz / İnci"),
	}
}

func TestAttributesJSONRoundTrip(t *testing.T) {
	in := sampleAttributes()
	b, err := json.Marshal(in)
	require.NoError(t, err)

	var out Attributes
	require.NoError(t, json.Unmarshal(b, &out))
	assert.True(t, in.Equal(out))
}

func TestAttributesSQLRoundTrip(t *testing.T) {
	in := sampleAttributes()
	v, err := in.Value()
	require.NoError(t, err)

	var fromString, fromBytes Attributes
	require.NoError(t, fromString.Scan(v))
	require.NoError(t, fromBytes.Scan([]byte(v.(string))))
	assert.True(t, in.Equal(fromString))
	assert.True(t, in.Equal(fromBytes))
}

func TestAttributesScanEmpty(t *testing.T) {
	var a Attributes
	require.NoError(t, a.Scan(nil))
	assert.Empty(t, a)
	require.NoError(t, a.Scan([]byte{}))
	assert.Empty(t, a)
	assert.Error(t, a.Scan(42))
}

func TestAttributesEqualIsOrderFree(t *testing.T) {
	a := Attributes{"a": StringValue("1"), "b": NumberValue(1)}
	b := Attributes{"b": NumberValue(1), "a": StringValue("1")}
	assert.True(t, a.Equal(b))

	c := Attributes{"a": NumberValue(1), "b": NumberValue(1)}
	assert.False(t, a.Equal(c))
	assert.Equal(t, []string{"a", "b"}, a.Keys())
}

func TestValueText(t *testing.T) {
	assert.Equal(t, "2020", NumberValue(2020).Text())
	assert.Equal(t, "1.5", NumberValue(1.5).Text())
	assert.Equal(t, "true", BoolValue(true).Text())
	assert.Equal(t, "dizel", StringValue("dizel").Text())
}

func TestValueRejectsNestedJSON(t *testing.T) {
	var a Attributes
	assert.Error(t, json.Unmarshal([]byte(`{"x":{"y":1}}`), &a))
}
