package stringutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinNonEmpty(t *testing.T) {
	assert.Equal(t, "a:b", JoinNonEmpty([]string{"", "a", "", "b"}, ":"))
	assert.Equal(t, "", JoinNonEmpty(nil, ":"))
}

func TestDecodeLossy(t *testing.T) {
	assert.Equal(t, "plain", DecodeLossy([]byte("plain")))
	assert.Equal(t, "a�b", DecodeLossy([]byte{'a', 0xff, 'b'}))
}

func TestParseYesNo(t *testing.T) {
	b, err := ParseYesNo(" yes ")
	require.NoError(t, err)
	assert.True(t, b)

	b, err = ParseYesNo("NO")
	require.NoError(t, err)
	assert.False(t, b)

	_, err = ParseYesNo("maybe")
	require.Error(t, err)

	assert.Equal(t, "YES", YesNo(true))
	assert.Equal(t, "NO", YesNo(false))
}
