package imgutil

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/color/palette"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

func solid(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.NRGBA{R: 120, G: 60, B: 200, A: 255})
		}
	}
	return img
}

func TestRehashPNG(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	dst := filepath.Join(dir, "dst.png")

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(200, 100)))
	require.NoError(t, os.WriteFile(src, buf.Bytes(), 0644))

	result, err := NewRehasher(50).Rehash(src, dst)
	require.NoError(t, err)
	require.Equal(t, "image/png", result.MIME)
	require.Equal(t, Hash(buf.Bytes()), result.Before)
	require.NotEqual(t, result.Before, result.After)

	out, err := imaging.Open(dst)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 200, 100), out.Bounds())
}

func TestRehashJPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, solid(64, 64), imaging.JPEG))

	out, mime, err := NewRehasher(0).RehashBytes(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", mime)

	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, 64, img.Bounds().Dx())
}

func encodeGIF(t *testing.T, p color.Palette) []byte {
	anim := &gif.GIF{}
	for i := 0; i < 3; i++ {
		frame := image.NewPaletted(image.Rect(0, 0, 40, 40), p)
		for x := 0; x < 40; x++ {
			for y := 0; y < 40; y++ {
				frame.SetColorIndex(x, y, uint8((x/10+i)%len(p)))
			}
		}
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 10)
	}
	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, anim))
	return buf.Bytes()
}

func TestRehashGIF(t *testing.T) {
	testCases := []struct {
		name    string
		palette color.Palette
	}{
		{name: "full palette", palette: palette.Plan9},
		{name: "small gray palette", palette: color.Palette{
			color.Gray{Y: 128}, color.Gray{Y: 40}, color.Gray{Y: 220},
		}},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			in := encodeGIF(t, test.palette)
			for i := 0; i < 10; i++ {
				out, mime, err := NewRehasher(10).RehashBytes(in)
				require.NoError(t, err)
				require.Equal(t, "image/gif", mime)
				require.NotEqual(t, Hash(in), Hash(out))

				decoded, err := gif.DecodeAll(bytes.NewReader(out))
				require.NoError(t, err)
				require.Len(t, decoded.Image, 3)
				require.Equal(t, image.Rect(0, 0, 40, 40), decoded.Image[0].Bounds())
			}
		})
	}
}

func TestTouchPalettedKeepsColors(t *testing.T) {
	p := color.Palette{color.Gray{Y: 128}, color.Gray{Y: 40}}
	frame := image.NewPaletted(image.Rect(0, 0, 20, 20), p)
	NewRehasher(5).touchPaletted(frame)

	require.Equal(t, color.Gray{Y: 40}, p[1])
	require.Greater(t, len(frame.Palette), 2)
	for _, entry := range frame.Palette[2:] {
		c := entry.(color.NRGBA)
		for _, channel := range []uint8{c.R, c.G, c.B} {
			require.InDelta(t, 128, int(channel), 10)
		}
		require.Equal(t, uint8(255), c.A)
	}
}

func TestJitteredKeepsAlpha(t *testing.T) {
	r := NewRehasher(1)
	for i := 0; i < 100; i++ {
		c := r.jittered(color.NRGBA{R: 100, G: 100, B: 100, A: 128})
		require.Equal(t, uint8(128), c.A)
		for _, channel := range []uint8{c.R, c.G, c.B} {
			require.InDelta(t, 100, int(channel), 10)
		}
	}
}

func TestRehashUnsupported(t *testing.T) {
	_, _, err := NewRehasher(5).RehashBytes([]byte("plain text is not an image"))
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestShiftWraps(t *testing.T) {
	r := NewRehasher(1)
	for i := 0; i < 200; i++ {
		low := r.shift(3)
		require.True(t, low <= 13 || low >= 249, low)
		high := r.shift(250)
		require.True(t, high >= 240 || high <= 4, high)
	}
}
