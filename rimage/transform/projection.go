package transform

import (
	"encoding/json"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ProjectionMatrix is a homogeneous 3x4 camera projection matrix mapping camera frame points
// to pixels.
type ProjectionMatrix struct {
	p *mat.Dense
}

// NewProjectionMatrix builds a projection from its 12 row-major entries.
func NewProjectionMatrix(rows [3][4]float64) *ProjectionMatrix {
	data := make([]float64, 0, 12)
	for _, row := range rows {
		data = append(data, row[:]...)
	}
	return &ProjectionMatrix{p: mat.NewDense(3, 4, data)}
}

// At returns the entry at row i, column j.
func (pm *ProjectionMatrix) At(i, j int) float64 {
	return pm.p.At(i, j)
}

// Dense returns a copy of the matrix.
func (pm *ProjectionMatrix) Dense() *mat.Dense {
	return mat.DenseCopyOf(pm.p)
}

// Project maps a camera frame point to pixel coordinates. It fails for points on the
// camera plane (zero homogeneous coordinate).
func (pm *ProjectionMatrix) Project(pt r3.Vector) (r2.Point, bool) {
	var out mat.VecDense
	out.MulVec(pm.p, mat.NewVecDense(4, []float64{pt.X, pt.Y, pt.Z, 1}))
	w := out.AtVec(2)
	if math.Abs(w) < 1e-12 {
		return r2.Point{}, false
	}
	return r2.Point{X: out.AtVec(0) / w, Y: out.AtVec(1) / w}, true
}

type projectionJSON struct {
	Projection [][]float64 `json:"projection_matrix"`
}

// NewProjectionMatrixFromJSONFile reads either a "projection_matrix" (3 rows of 4 values) or
// pinhole intrinsics from a JSON file.
func NewProjectionMatrixFromJSONFile(jsonPath string) (*ProjectionMatrix, error) {
	byteValue, err := readJSONFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var raw projectionJSON
	if err := json.Unmarshal(byteValue, &raw); err != nil {
		return nil, errors.Wrap(err, "error parsing JSON string")
	}
	if raw.Projection != nil {
		if len(raw.Projection) != 3 {
			return nil, errors.Errorf("projection_matrix must have 3 rows, got %d", len(raw.Projection))
		}
		var rows [3][4]float64
		for i, row := range raw.Projection {
			if len(row) != 4 {
				return nil, errors.Errorf("projection_matrix row %d must have 4 values, got %d", i, len(row))
			}
			copy(rows[i][:], row)
		}
		return NewProjectionMatrix(rows), nil
	}
	intrinsics := &PinholeCameraIntrinsics{}
	if err := json.Unmarshal(byteValue, intrinsics); err != nil {
		return nil, errors.Wrap(err, "error parsing JSON string")
	}
	if err := intrinsics.CheckValid(); err != nil {
		return nil, err
	}
	return intrinsics.ProjectionMatrix(), nil
}
