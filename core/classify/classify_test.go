package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Rules(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want Classification
	}{
		{
			name: "existing placeholder is a link",
			in:   Input{LocalPath: "/box/big.csv.link", ExistsLocally: true, Threshold: 10},
			want: Link,
		},
		{
			name: "existing placeholder wins over directory flag",
			in:   Input{LocalPath: "/box/odd.link", ExistsLocally: true, IsDir: true},
			want: Link,
		},
		{
			name: "absent and oversized becomes a link",
			in:   Input{LocalPath: "/box/big.csv", RemoteSize: 11, Threshold: 10, RemoteType: File},
			want: Link,
		},
		{
			name: "existing directory",
			in:   Input{LocalPath: "/box/dir", ExistsLocally: true, IsDir: true, RemoteSize: 999, Threshold: 1},
			want: Directory,
		},
		{
			name: "existing regular file ignores remote size",
			in:   Input{LocalPath: "/box/a.txt", ExistsLocally: true, RemoteSize: 999, Threshold: 1},
			want: File,
		},
		{
			name: "absent falls back to remote type",
			in:   Input{LocalPath: "/box/out", RemoteSize: 0, Threshold: 10, RemoteType: Directory},
			want: Directory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.in))
		})
	}
}

func TestClassify_ThresholdBoundary(t *testing.T) {
	in := Input{LocalPath: "/box/part-00000", Threshold: 1024, RemoteType: File}

	in.RemoteSize = 1024
	assert.Equal(t, File, Classify(in), "size equal to threshold is copied")

	in.RemoteSize = 1025
	assert.Equal(t, Link, Classify(in), "one byte over the threshold is a link")
	assert.Equal(t, "/box/part-00000.link", EffectivePath(in))
}

func TestClassify_Deterministic(t *testing.T) {
	in := Input{LocalPath: "/box/x", RemoteSize: 5, Threshold: 4, RemoteType: File}
	first := Classify(in)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Classify(in))
	}
}

func TestLinkPath(t *testing.T) {
	assert.Equal(t, "/a/b.link", LinkPath("/a/b"))
	assert.Equal(t, "/a/b.link", LinkPath("/a/b.link"))
	assert.True(t, HasLinkSuffix("/a/b.link"))
	assert.False(t, HasLinkSuffix("/a/b.linked"))
}

func TestClassification_ScanValue(t *testing.T) {
	for _, c := range []Classification{File, Directory, Link} {
		v, err := c.Value()
		require.NoError(t, err)

		var got Classification
		require.NoError(t, got.Scan(v))
		assert.Equal(t, c, got)
	}

	_, err := Unknown.Value()
	assert.Error(t, err)

	var c Classification
	assert.Error(t, c.Scan("symlink"))
	assert.NoError(t, c.Scan([]byte("dir")))
	assert.Equal(t, Directory, c)
}
