package projector

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// fitProject standardizes the matrix (center and unit-variance scale), fits a
// PCA model via gonum's stat.PC, and returns every row projected onto the
// first two principal components. The numerical routine itself is gonum's;
// this wrapper only owns standardization and the 2-component projection.
func fitProject(rows [][]float64) ([][2]float64, error) {
	n := len(rows)
	w := len(rows[0])

	// A single centered row is identically zero: the projection collapses to
	// the origin without needing a fit.
	if n == 1 {
		return [][2]float64{{0, 0}}, nil
	}

	data := mat.NewDense(n, w, nil)
	for i, row := range rows {
		data.SetRow(i, row)
	}
	standardize(data)

	var pc stat.PC
	if ok := pc.PrincipalComponents(data, nil); !ok {
		return nil, fmt.Errorf("principal component decomposition failed")
	}

	var vecs mat.Dense
	pc.VectorsTo(&vecs)

	_, k := vecs.Dims()
	var proj mat.Dense
	proj.Mul(data, vecs.Slice(0, w, 0, min(2, k)))

	out := make([][2]float64, n)
	for i := range n {
		out[i][0] = proj.At(i, 0)
		if k > 1 {
			out[i][1] = proj.At(i, 1)
		}
	}
	return out, nil
}

// standardize centers each column on its mean and scales it to unit variance
// in place. Zero-variance columns are centered only.
func standardize(m *mat.Dense) {
	n, w := m.Dims()
	col := make([]float64, n)
	for j := range w {
		mat.Col(col, j, m)
		mean, std := stat.MeanStdDev(col, nil)
		for i := range n {
			v := col[i] - mean
			if std > 0 {
				v /= std
			}
			m.Set(i, j, v)
		}
	}
}
