package linedetection

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/linedetection/spatialmath"
)

// numLineFields is the number of values written for a line before its optional colours:
// start, end, right plane, left plane, type.
const numLineFields = 3 + 3 + 4 + 4 + 1

// StoreLinesAfterType groups the lines by type, keeping their order within each type.
func StoreLinesAfterType(lines []LineWithPlanes) map[LineType][]LineWithPlanes {
	return lo.GroupBy(lines, func(l LineWithPlanes) LineType { return l.Type })
}

// WriteLines writes one line per row as space separated values: start, end, the right and the
// left plane equation, and the type name, followed by the patch colours in hex if present.
func WriteLines(out io.Writer, lines []LineWithPlanes) error {
	w := bufio.NewWriter(out)
	for _, l := range lines {
		fields := make([]string, 0, numLineFields+len(l.Colors))
		for _, v := range []r3.Vector{l.Line.Start, l.Line.End} {
			fields = append(fields, formatFloat(v.X), formatFloat(v.Y), formatFloat(v.Z))
		}
		for _, h := range l.Hessians {
			for _, v := range h.Equation() {
				fields = append(fields, formatFloat(v))
			}
		}
		fields = append(fields, l.Type.String())
		for _, c := range l.Colors {
			cf, ok := colorful.MakeColor(c)
			if !ok {
				cf = colorful.Color{}
			}
			fields = append(fields, cf.Hex())
		}
		if _, err := fmt.Fprintln(w, strings.Join(fields, " ")); err != nil {
			return err
		}
	}
	return w.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ReadLines parses the output of WriteLines. Empty rows are skipped.
func ReadLines(in io.Reader) ([]LineWithPlanes, error) {
	var lines []LineWithPlanes
	scanner := bufio.NewScanner(in)
	row := 0
	for scanner.Scan() {
		row++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < numLineFields {
			return nil, errors.Errorf("line %d: expected at least %d values, got %d", row, numLineFields, len(fields))
		}
		values := make([]float64, numLineFields-1)
		for i := range values {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d: value %d", row, i+1)
			}
			values[i] = v
		}
		t, err := ParseLineType(fields[numLineFields-1])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", row)
		}
		l := LineWithPlanes{
			Line: spatialmath.LineSegment{
				Start: r3.Vector{X: values[0], Y: values[1], Z: values[2]},
				End:   r3.Vector{X: values[3], Y: values[4], Z: values[5]},
			},
			Type: t,
		}
		for i := range l.Hessians {
			e := values[6+4*i : 10+4*i]
			l.Hessians[i] = spatialmath.Plane{Normal: r3.Vector{X: e[0], Y: e[1], Z: e[2]}, Offset: e[3]}
		}
		for _, hex := range fields[numLineFields:] {
			c, err := colorful.Hex(hex)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d: color %q", row, hex)
			}
			r, g, b := c.RGB255()
			l.Colors = append(l.Colors, color.NRGBA{R: r, G: g, B: b, A: 255})
		}
		lines = append(lines, l)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "error reading lines")
	}
	return lines, nil
}
