package otp

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, 4)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 1000)
		assert.LessOrEqual(t, n, 9999)

		seen[code] = struct{}{}
	}
	// 200 draws from a 9000-code space collide sometimes, but a single
	// repeated value for all draws would mean a broken source.
	assert.Greater(t, len(seen), 1)
}

func TestMatch(t *testing.T) {
	assert.True(t, Match("4821", "4821"))
	assert.False(t, Match("4821", "0000"))
	assert.False(t, Match("4821", "482"))
	assert.False(t, Match("4821", ""))
	assert.False(t, Match("", ""))
	assert.False(t, Match("", "0000"))
}
