package document

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func writeJPEG(t *testing.T, path string, w, h int) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(w, h), nil))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(w, h)))
	return buf.Bytes()
}

func pdfPages(t *testing.T, a *Assembler) int {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, a.Finalize(&buf))

	n, err := api.PageCount(bytes.NewReader(buf.Bytes()), nil)
	require.NoError(t, err)
	return n
}

func TestAssembler_AppendsInOrder(t *testing.T) {
	dir := t.TempDir()
	writeJPEG(t, filepath.Join(dir, "1.jpg"), 100, 200)
	writeJPEG(t, filepath.Join(dir, "2.jpg"), 300, 100)
	writeJPEG(t, filepath.Join(dir, "3.jpg"), 60, 90)

	a := NewAssembler(A4, nil)
	for _, name := range []string{"1.jpg", "2.jpg", "3.jpg"} {
		require.NoError(t, a.AppendPage(dir, name))
	}

	assert.Equal(t, 3, a.PageCount())

	pages := a.Pages()
	require.Len(t, pages, 3)
	assert.Equal(t, filepath.Join(dir, "1.jpg"), pages[0].Source)
	assert.Equal(t, Portrait, pages[0].Layout.Orientation)
	assert.Equal(t, Landscape, pages[1].Layout.Orientation)
	assert.Equal(t, Portrait, pages[2].Layout.Orientation)
	for _, p := range pages {
		assert.NoError(t, p.Err)
		assert.False(t, p.Fallback)
	}

	assert.Equal(t, 3, pdfPages(t, a))
}

func TestAssembler_FallbackReencodes(t *testing.T) {
	dir := t.TempDir()
	// PNG content behind a .jpg name: the JPEG reader rejects it, the
	// re-encoded PNG is accepted.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1.jpg"), pngBytes(t, 40, 20), 0644))

	a := NewAssembler(A4, nil)
	require.NoError(t, a.AppendPage(dir, "1.jpg"))

	pages := a.Pages()
	require.Len(t, pages, 1)
	assert.True(t, pages[0].Fallback)
	assert.Equal(t, Landscape, pages[0].Layout.Orientation)
	assert.FileExists(t, filepath.Join(dir, "1.png"))
	assert.Equal(t, 1, pdfPages(t, a))
}

func TestAssembler_FailedPageStaysBlank(t *testing.T) {
	dir := t.TempDir()
	writeJPEG(t, filepath.Join(dir, "1.jpg"), 100, 200)

	// a valid PNG header with the pixel data cut off: dimensions are known
	// but neither placement nor re-encode can read it
	truncated := pngBytes(t, 50, 80)[:60]
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2.jpg"), truncated, 0644))

	writeJPEG(t, filepath.Join(dir, "3.jpg"), 100, 200)

	a := NewAssembler(A4, nil)
	require.NoError(t, a.AppendPage(dir, "1.jpg"))

	err := a.AppendPage(dir, "2.jpg")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEncode)
	var ee *EncodeError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, filepath.Join(dir, "2.jpg"), ee.Path)

	require.NoError(t, a.AppendPage(dir, "3.jpg"), "assembly continues after a failed page")

	assert.Equal(t, 3, a.PageCount())
	pages := a.Pages()
	assert.Equal(t, Portrait, pages[1].Layout.Orientation)
	assert.Error(t, pages[1].Err)
	assert.Equal(t, 3, pdfPages(t, a))
}

func TestAssembler_UnreadableImageReservesPage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1.jpg"), []byte("<html>403</html>"), 0644))

	a := NewAssembler(A4, nil)
	err := a.AppendPage(dir, "1.jpg")
	require.ErrorIs(t, err, ErrEncode)

	assert.Equal(t, 1, a.PageCount())
	assert.Equal(t, 1, pdfPages(t, a))
}

func TestAssembler_FinalizeFile(t *testing.T) {
	dir := t.TempDir()
	writeJPEG(t, filepath.Join(dir, "1.jpg"), 100, 200)

	a := NewAssembler(A4, nil)
	require.NoError(t, a.AppendPage(dir, "1.jpg"))

	out := filepath.Join(dir, "out.pdf")
	require.NoError(t, a.FinalizeFile(out))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	n, err := api.PageCount(f, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
