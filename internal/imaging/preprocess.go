package imaging

import (
	"image"

	"github.com/nfnt/resize"
)

// Normalization holds per-channel mean and standard deviation, RGB order.
type Normalization struct {
	Mean [3]float32
	Std  [3]float32
}

// PixelValues prepares img for a vision transformer: the shorter side is
// resized to size with bicubic resampling, the centre size x size square is
// cropped, values are scaled to [0,1] and normalized. The result is laid out
// channel-planar (CHW) with 3*size*size values.
//
// The centre square is cut before resizing, so the long side is never
// scaled up and the work stays bounded by size*size whatever the aspect
// ratio.
func PixelValues(img image.Image, size int, norm Normalization) []float32 {
	cropped := CenterCrop(ResizeShortestEdge(CropSquare(img), size), size)

	b := cropped.Bounds()
	width, height := b.Dx(), b.Dy()
	plane := width * height
	data := make([]float32, 3*plane)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, bl, _ := cropped.At(b.Min.X+x, b.Min.Y+y).RGBA()

			idx := y*width + x
			data[idx] = (float32(r)/65535.0 - norm.Mean[0]) / norm.Std[0]
			data[plane+idx] = (float32(g)/65535.0 - norm.Mean[1]) / norm.Std[1]
			data[2*plane+idx] = (float32(bl)/65535.0 - norm.Mean[2]) / norm.Std[2]
		}
	}
	return data
}

// ResizeShortestEdge scales img so that its shorter side equals size while
// keeping the aspect ratio.
func ResizeShortestEdge(img image.Image, size int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	var nw, nh int
	if w <= h {
		nw, nh = size, h*size/w
	} else {
		nw, nh = w*size/h, size
	}
	if nw == w && nh == h {
		return img
	}
	return resize.Resize(uint(nw), uint(nh), img, resize.Bicubic)
}

// CropSquare returns the centre square of img with the shorter edge as its
// side.
func CropSquare(img image.Image) image.Image {
	b := img.Bounds()
	side := min(b.Dx(), b.Dy())
	if b.Dx() == side && b.Dy() == side {
		return img
	}
	return CenterCrop(img, side)
}

// CenterCrop returns the centre size x size region of img. Dimensions
// smaller than size are left as they are.
func CenterCrop(img image.Image, size int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	cw, ch := min(size, w), min(size, h)
	x0 := b.Min.X + (w-cw)/2
	y0 := b.Min.Y + (h-ch)/2
	rect := image.Rect(x0, y0, x0+cw, y0+ch)

	if sub, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	}); ok {
		return sub.SubImage(rect)
	}

	dst := image.NewRGBA(image.Rect(0, 0, cw, ch))
	for y := 0; y < ch; y++ {
		for x := 0; x < cw; x++ {
			dst.Set(x, y, img.At(x0+x, y0+y))
		}
	}
	return dst
}
