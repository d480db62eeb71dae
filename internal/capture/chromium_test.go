package capture

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsNormalize(t *testing.T) {
	o := Options{SVGPath: "a.svg", OutputPath: "a.png"}
	require.NoError(t, o.normalize())
	assert.Equal(t, DefaultWidth, o.Width)
	assert.Equal(t, DefaultHeight, o.Height)
	assert.Positive(t, o.Timeout)

	assert.Error(t, (&Options{OutputPath: "a.png"}).normalize())
	assert.Error(t, (&Options{SVGPath: "a.svg"}).normalize())
}

func TestRasterizeSVG_MissingInput(t *testing.T) {
	dir := t.TempDir()
	err := RasterizeSVG(context.Background(), Options{
		SVGPath:    filepath.Join(dir, "missing.svg"),
		OutputPath: filepath.Join(dir, "out.png"),
	})
	assert.Error(t, err)
}

func TestFileURL(t *testing.T) {
	url, err := fileURL("calendar.svg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "file:///"))
	assert.True(t, strings.HasSuffix(url, "/calendar.svg"))
}

func TestPNGPath(t *testing.T) {
	assert.Equal(t, "out/m01.png", PNGPath("out/m01.svg"))
	assert.Equal(t, "plain.png", PNGPath("plain"))
}
