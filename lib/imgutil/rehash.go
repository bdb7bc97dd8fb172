package imgutil

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"math/rand/v2"
	"os"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
)

var ErrUnsupported = errors.New("unsupported image format")

const (
	DefaultPoints = 10
	jitter        = 10
	jpegQuality   = 95
)

type Result struct {
	MIME   string
	Before string
	After  string
}

// Rehasher changes a handful of random pixels in an image so the file
// hash differs while the picture looks the same.
type Rehasher struct {
	Points int
	rnd    *rand.Rand
}

func NewRehasher(points int) Rehasher {
	if points <= 0 {
		points = DefaultPoints
	}
	return Rehasher{
		Points: points,
		rnd:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

func Hash(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// MIME sniffs the mime type of data, unknown data returns "".
func MIME(data []byte) string {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return ""
	}
	return kind.MIME.Value
}

// Rehash reads src and writes the rehashed image to dst.
func (r Rehasher) Rehash(src, dst string) (Result, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return Result{}, fmt.Errorf("rehash: %w", err)
	}
	out, mime, err := r.RehashBytes(data)
	if err != nil {
		return Result{}, err
	}
	err = os.WriteFile(dst, out, 0644)
	if err != nil {
		return Result{}, fmt.Errorf("rehash: %w", err)
	}
	return Result{MIME: mime, Before: Hash(data), After: Hash(out)}, nil
}

func (r Rehasher) RehashBytes(data []byte) ([]byte, string, error) {
	mime := MIME(data)
	var (
		out bytes.Buffer
		err error
	)
	switch mime {
	case "image/jpeg":
		err = r.still(data, &out, imaging.JPEG)
	case "image/png":
		err = r.still(data, &out, imaging.PNG)
	case "image/gif":
		err = r.animated(data, &out)
	default:
		return nil, mime, fmt.Errorf("rehash %q: %w", mime, ErrUnsupported)
	}
	if err != nil {
		return nil, mime, fmt.Errorf("rehash: %w", err)
	}
	return out.Bytes(), mime, nil
}

func (r Rehasher) still(data []byte, out *bytes.Buffer, format imaging.Format) error {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return err
	}
	canvas := imaging.Clone(img)
	r.touch(canvas)
	return imaging.Encode(out, canvas, format, imaging.JPEGQuality(jpegQuality))
}

func (r Rehasher) animated(data []byte, out *bytes.Buffer) error {
	anim, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return err
	}
	for _, frame := range anim.Image {
		r.touchPaletted(frame)
	}
	return gif.EncodeAll(out, anim)
}

// position picks a coordinate within 1%..99% of the bounds.
func (r Rehasher) position(bounds image.Rectangle) (int, int) {
	width, height := bounds.Dx(), bounds.Dy()
	x := between(r.rnd, width/100, width*99/100)
	y := between(r.rnd, height/100, height*99/100)
	return bounds.Min.X + x, bounds.Min.Y + y
}

func (r Rehasher) jittered(c color.Color) color.NRGBA {
	src := color.NRGBAModel.Convert(c).(color.NRGBA)
	return color.NRGBA{
		R: r.shift(src.R),
		G: r.shift(src.G),
		B: r.shift(src.B),
		A: src.A,
	}
}

func (r Rehasher) touch(img draw.Image) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return
	}
	for range r.Points {
		x, y := r.position(bounds)
		img.Set(x, y, r.jittered(img.At(x, y)))
	}
}

// touchPaletted moves every touched pixel to another palette index. The
// jittered color is appended while the palette has room, otherwise the
// closest other entry is used.
func (r Rehasher) touchPaletted(img *image.Paletted) {
	bounds := img.Bounds()
	if bounds.Empty() || len(img.Palette) == 0 {
		return
	}
	// frames without a local table share the global one
	img.Palette = append(color.Palette(nil), img.Palette...)
	for range r.Points {
		x, y := r.position(bounds)
		current := int(img.ColorIndexAt(x, y))
		if current >= len(img.Palette) {
			continue
		}
		// the encoder treats the first fully transparent entry as the transparent index
		if _, _, _, alpha := img.Palette[current].RGBA(); alpha == 0 {
			continue
		}
		moved := r.jittered(img.Palette[current])
		if len(img.Palette) < 256 {
			img.Palette = append(img.Palette, moved)
			img.SetColorIndex(x, y, uint8(len(img.Palette)-1))
			continue
		}
		img.SetColorIndex(x, y, uint8(closestOther(img.Palette, moved, current)))
	}
}

func closestOther(p color.Palette, c color.Color, skip int) int {
	best, bestDist := skip, uint32(0)
	cr, cg, cb, ca := c.RGBA()
	for i, entry := range p {
		if i == skip {
			continue
		}
		er, eg, eb, ea := entry.RGBA()
		dist := sqDiff(cr, er) + sqDiff(cg, eg) + sqDiff(cb, eb) + sqDiff(ca, ea)
		if best == skip || dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}

// sqDiff mirrors the scaling color.Palette.Index uses to stay in uint32.
func sqDiff(x, y uint32) uint32 {
	d := x - y
	return (d * d) >> 2
}

func (r Rehasher) shift(value uint8) uint8 {
	moved := int(value) + between(r.rnd, -jitter, jitter)
	return uint8(((moved % 256) + 256) % 256)
}

func between(rnd *rand.Rand, low, high int) int {
	if high <= low {
		return low
	}
	return low + rnd.IntN(high-low+1)
}
