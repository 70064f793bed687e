package pointcloud

import (
	"bytes"
	"image/color"
	"math"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func makeTestCloud(withColor bool) *Organized {
	cloud := NewOrganized(3, 2)
	cloud.Iterate(func(x, y int, pt r3.Vector) bool {
		if x == 1 && y == 1 {
			return true
		}
		cloud.Set(x, y, r3.Vector{X: float64(x) * 0.25, Y: float64(y) * -0.5, Z: 1.5})
		if withColor {
			cloud.SetColor(x, y, color.NRGBA{uint8(x * 50), uint8(y * 100), 7, 255})
		}
		return true
	})
	cloud.Set(2, 0, r3.Vector{})
	return cloud
}

func TestOrganizedPCDRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name      string
		pcdType   PCDType
		withColor bool
	}{
		{"ascii", PCDAscii, false},
		{"ascii color", PCDAscii, true},
		{"binary", PCDBinary, false},
		{"binary color", PCDBinary, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cloud := makeTestCloud(tc.withColor)
			var buf bytes.Buffer
			test.That(t, WriteOrganizedPCD(cloud, &buf, tc.pcdType), test.ShouldBeNil)
			test.That(t, buf.String(), test.ShouldContainSubstring, "WIDTH 3\nHEIGHT 2\n")

			read, err := ReadOrganizedPCD(&buf)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, read.Width(), test.ShouldEqual, 3)
			test.That(t, read.Height(), test.ShouldEqual, 2)
			test.That(t, read.HasColor(), test.ShouldEqual, tc.withColor)
			test.That(t, read.IsValid(1, 1), test.ShouldBeFalse)
			test.That(t, read.IsZero(2, 0), test.ShouldBeTrue)
			got := read.At(1, 0)
			test.That(t, got.X, test.ShouldAlmostEqual, 0.25, 1e-6)
			test.That(t, got.Z, test.ShouldAlmostEqual, 1.5, 1e-6)
			got = read.At(0, 1)
			test.That(t, got.Y, test.ShouldAlmostEqual, -0.5, 1e-6)
			if tc.withColor {
				c, _ := read.Color(1, 1)
				test.That(t, c, test.ShouldResemble, color.NRGBA{0, 0, 0, 255})
				c, _ = read.Color(1, 0)
				test.That(t, c, test.ShouldResemble, color.NRGBA{50, 0, 7, 255})
			}
		})
	}

	var buf bytes.Buffer
	err := WriteOrganizedPCD(makeTestCloud(false), &buf, PCDCompressed)
	test.That(t, err, test.ShouldNotBeNil)
}

const validHeader = `# .PCD v0.7 - Point Cloud Data file format
VERSION .7
FIELDS x y z
SIZE 4 4 4
TYPE F F F
COUNT 1 1 1
WIDTH 2
HEIGHT 2
VIEWPOINT 0 0 0 1 0 0 0
POINTS 4
DATA ascii
`

func TestReadOrganizedPCD(t *testing.T) {
	cloud, err := ReadOrganizedPCD(strings.NewReader(validHeader + "0 0 1\nnan nan nan\n0 0 0\n1 1 2"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.At(0, 0), test.ShouldResemble, r3.Vector{X: 0, Y: 0, Z: 1})
	test.That(t, math.IsNaN(cloud.At(1, 0).Z), test.ShouldBeTrue)
	test.That(t, cloud.IsZero(0, 1), test.ShouldBeTrue)
	test.That(t, cloud.At(1, 1), test.ShouldResemble, r3.Vector{X: 1, Y: 1, Z: 2})

	for _, tc := range []struct {
		name     string
		data     string
		expected string
	}{
		{"version", strings.Replace(validHeader, "VERSION .7", "VERSION .6", 1), "unsupported pcd version"},
		{"fields", strings.Replace(validHeader, "FIELDS x y z", "FIELDS x y z normal_x", 1), "unsupported pcd fields"},
		{"order", strings.Replace(validHeader, "SIZE 4 4 4\n", "", 1), "supposed to start with SIZE"},
		{"points", strings.Replace(validHeader, "POINTS 4", "POINTS 5", 1), "does not match WIDTH*HEIGHT"},
		{"unorganized", strings.Replace(strings.Replace(validHeader, "HEIGHT 2", "HEIGHT 1", 1), "POINTS 4", "POINTS 2", 1), "not organized"},
		{"viewpoint", strings.Replace(validHeader, "VIEWPOINT 0 0 0 1 0 0 0", "VIEWPOINT 0 0 0", 1), "VIEWPOINT"},
		{"short data", validHeader + "0 0 1\n", "error reading point"},
		{"bad value", validHeader + "0 0 a\n1 1 1\n1 1 1\n1 1 1\n", "invalid point 0"},
		{"compressed", strings.Replace(validHeader, "DATA ascii", "DATA binary_compressed", 1), "compressed"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadOrganizedPCD(strings.NewReader(tc.data))
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.expected)
		})
	}
}
