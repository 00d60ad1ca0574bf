package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapOfAny_ScanValue(t *testing.T) {
	m := MapOfAny{"subject": "Hi", "count": float64(2)}
	v, err := m.Value()
	require.NoError(t, err)

	var scanned MapOfAny
	require.NoError(t, scanned.Scan(v))
	assert.Equal(t, m, scanned)

	var nilMap MapOfAny
	v, err = nilMap.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), v)
}

func TestScanJSON_ClonesBytes(t *testing.T) {
	buf := []byte(`{"a":"b"}`)
	var m MapOfAny
	require.NoError(t, m.Scan(buf))

	copy(buf, []byte(`{"x":"y"}`))
	assert.Equal(t, "b", m["a"])
}

func TestScanJSON_Inputs(t *testing.T) {
	var m MapOfAny
	require.NoError(t, m.Scan(nil))
	assert.Nil(t, m)

	require.NoError(t, m.Scan(""))
	require.NoError(t, m.Scan(`{"k":1}`))
	assert.Equal(t, float64(1), m["k"])

	assert.Error(t, m.Scan(42))
	assert.Error(t, m.Scan("not json"))
}
