package checksum

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile_RoundTripStable(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/box/a.txt", []byte("hello mrbox"), 0644))

	first, err := File(fs, "/box/a.txt")
	require.NoError(t, err)
	second, err := File(fs, "/box/a.txt")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 8)
}

func TestReader_MatchesBytes(t *testing.T) {
	sum, err := Reader(strings.NewReader("123456789"))
	require.NoError(t, err)

	// CRC32C check value for "123456789"
	assert.Equal(t, "e3069283", sum)
	assert.Equal(t, sum, Bytes([]byte("123456789")))
}

func TestFile_Missing(t *testing.T) {
	_, err := File(afero.NewMemMapFs(), "/nope")
	assert.Error(t, err)
}

func TestFile_DetectsChange(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/f", []byte("v1"), 0644))
	before, err := File(fs, "/f")
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(fs, "/f", []byte("v2"), 0644))
	after, err := File(fs, "/f")
	require.NoError(t, err)

	assert.NotEqual(t, before, after)
}
