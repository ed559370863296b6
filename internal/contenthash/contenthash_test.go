package contenthash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHexIsDeterministicAndContentSensitive(t *testing.T) {
	a := Hex([]byte("def f():\n    return 1\n"))
	b := Hex([]byte("def f():\n    return 1\n"))
	c := Hex([]byte("def f():\n    return 2\n"))

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Len(t, a, 40)
}
