package rimage

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestReadWriteImage(t *testing.T) {
	dir := t.TempDir()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 6))
	img.Set(2, 3, color.NRGBA{200, 10, 10, 255})
	path := filepath.Join(dir, "img.png")
	test.That(t, WriteImageToFile(path, img), test.ShouldBeNil)

	read, err := ReadImageFromFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, read.Bounds(), test.ShouldResemble, image.Rect(0, 0, 8, 6))
	r, g, b, _ := read.At(2, 3).RGBA()
	test.That(t, []uint32{r >> 8, g >> 8, b >> 8}, test.ShouldResemble, []uint32{200, 10, 10})

	depth := image.NewGray16(image.Rect(0, 0, 4, 4))
	depth.SetGray16(1, 1, color.Gray16{1234})
	depthPath := filepath.Join(dir, "depth.png")
	test.That(t, WriteImageToFile(depthPath, depth), test.ShouldBeNil)
	readDepth, err := ReadImageFromFile(depthPath)
	test.That(t, err, test.ShouldBeNil)
	gray16, ok := readDepth.(*image.Gray16)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, gray16.Gray16At(1, 1).Y, test.ShouldEqual, 1234)

	err = WriteImageToFile(filepath.Join(dir, "img.bmp"), img)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unsupported image extension")
	_, err = ReadImageFromFile(filepath.Join(dir, "missing.png"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestToGray(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.Set(0, 0, color.NRGBA{255, 255, 255, 255})
	img.Set(1, 0, color.NRGBA{0, 0, 0, 255})
	img.Set(2, 1, color.NRGBA{100, 100, 100, 255})
	gray := ToGray(img)
	test.That(t, gray.Bounds(), test.ShouldResemble, image.Rect(0, 0, 3, 2))
	test.That(t, gray.GrayAt(0, 0).Y, test.ShouldEqual, 255)
	test.That(t, gray.GrayAt(1, 0).Y, test.ShouldEqual, 0)
	test.That(t, gray.GrayAt(2, 1).Y, test.ShouldEqual, 100)

	test.That(t, ToGray(gray), test.ShouldEqual, gray)
	test.That(t, Blur(gray, 0), test.ShouldEqual, gray)
	test.That(t, Resize(gray, 1), test.ShouldEqual, gray)
	test.That(t, Resize(image.NewGray(image.Rect(0, 0, 10, 20)), 0.5).Bounds(), test.ShouldResemble, image.Rect(0, 0, 5, 10))
}

func TestBlur(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 9, 9))
	img.SetGray(4, 4, color.Gray{255})
	blurred := Blur(img, 1)
	test.That(t, blurred.GrayAt(4, 4).Y, test.ShouldBeLessThan, 255)
	test.That(t, blurred.GrayAt(4, 3).Y, test.ShouldBeGreaterThan, 0)
	test.That(t, blurred.GrayAt(0, 0).Y, test.ShouldEqual, 0)
}

func TestDepthToGray(t *testing.T) {
	depth := image.NewGray16(image.Rect(0, 0, 3, 1))
	depth.SetGray16(0, 0, color.Gray16{0})
	depth.SetGray16(1, 0, color.Gray16{1234})
	depth.SetGray16(2, 0, color.Gray16{9000})
	gray := DepthToGray(depth, 0.1)
	test.That(t, gray.GrayAt(0, 0).Y, test.ShouldEqual, 0)
	test.That(t, gray.GrayAt(1, 0).Y, test.ShouldEqual, 123)
	test.That(t, gray.GrayAt(2, 0).Y, test.ShouldEqual, 255)
}
