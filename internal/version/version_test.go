package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	require.Equal(t, "bookbuilder dev", format("dev", "", ""))
	require.Equal(t, "bookbuilder v1.2.0 (0123456789ab)", format("v1.2.0", "0123456789abcdef", ""))
	require.Equal(t, "bookbuilder v1.2.0 (abc, 2026-01-02T03:04:05Z)", format("v1.2.0", "abc", "2026-01-02T03:04:05Z"))
}

func TestStringStartsWithVersion(t *testing.T) {
	require.True(t, strings.HasPrefix(String(), "bookbuilder "+Version))
}
