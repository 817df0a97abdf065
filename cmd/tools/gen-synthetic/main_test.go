package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/wishart/internal/fsutil"
	"github.com/banshee-data/wishart/internal/polsar"
	"github.com/banshee-data/wishart/internal/polsarpro"
)

func TestGenerateT3(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, generate(fsys, "syn/T3", 8, 4, 0, 1, false))

	r, err := polsarpro.ReadDir(fsys, "syn/T3")
	require.NoError(t, err)
	assert.Equal(t, polsar.Coherency, r.Kind())
	assert.Equal(t, 3, r.Order())
	m, ok := r.Pixel(0, 0)
	require.True(t, ok)
	assert.Equal(t, polsar.Diagonal(8, 1, 0.5), m)

	labels, err := polsarpro.ReadClassRaster(fsys, filepath.Join("syn/T3", LabelFile), 8, 4)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), labels[0])
	assert.Equal(t, uint16(4), labels[7])
}

func TestGenerateDualPol(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, generate(fsys, "syn/C2", 6, 2, 3, 5, true))

	kind, order, err := polsarpro.Detect(fsys, "syn/C2")
	require.NoError(t, err)
	assert.Equal(t, polsar.Covariance, kind)
	assert.Equal(t, 2, order)
}
