package linedetection

import (
	"image/color"
	"strings"

	"github.com/pkg/errors"

	"go.viam.com/linedetection/spatialmath"
)

// LineType says how a 3D line relates to the surfaces next to it.
type LineType int

const (
	// Discont is a depth discontinuity: the line lies on the nearer of two unrelated surfaces.
	Discont LineType = iota
	// Plane is a line on a single planar surface, such as a texture or colour boundary.
	Plane
	// Edge is a convex crease or a fold seen from outside.
	Edge
	// Intersect is a line where two surfaces meet that continue past it.
	Intersect
)

var lineTypeNames = []string{"DISCONT", "PLANE", "EDGE", "INTERSECT"}

// LineTypes lists every type in output order.
var LineTypes = []LineType{Discont, Plane, Edge, Intersect}

func (t LineType) String() string {
	if t < 0 || int(t) >= len(lineTypeNames) {
		return "UNKNOWN"
	}
	return lineTypeNames[t]
}

// ParseLineType reads a type name, ignoring case, or its numeric code.
func ParseLineType(s string) (LineType, error) {
	for i, name := range lineTypeNames {
		if strings.EqualFold(s, name) {
			return LineType(i), nil
		}
	}
	if len(s) == 1 && s[0] >= '0' && int(s[0]-'0') < len(lineTypeNames) {
		return LineType(s[0] - '0'), nil
	}
	return 0, errors.Errorf("unknown line type %q", s)
}

// LineWithPlanes is a 3D line together with the planes that explain it.
// Hessians[0] belongs to the right side of the image line and Hessians[1] to the left side;
// an absent plane is the zero Plane.
type LineWithPlanes struct {
	Line     spatialmath.LineSegment
	Hessians [2]spatialmath.Plane
	Type     LineType
	// Colors holds the mean colour of the left and right patch when the cloud is coloured.
	Colors []color.NRGBA
}
