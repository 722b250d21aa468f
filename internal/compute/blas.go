package compute

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// gemm computes c[m×n] = op(a)[m×k]·op(b)[k×n] + beta*c with row-major
// operands. transA means a is stored k×m; transB means b is stored n×k.
func gemm(transA, transB bool, m, n, k int, a, b []float32, beta float32, c []float32) {
	ta, tb := blas.NoTrans, blas.NoTrans
	ga := blas32.General{Rows: m, Cols: k, Stride: k, Data: a}
	if transA {
		ta = blas.Trans
		ga = blas32.General{Rows: k, Cols: m, Stride: m, Data: a}
	}
	gb := blas32.General{Rows: k, Cols: n, Stride: n, Data: b}
	if transB {
		tb = blas.Trans
		gb = blas32.General{Rows: n, Cols: k, Stride: k, Data: b}
	}
	gc := blas32.General{Rows: m, Cols: n, Stride: n, Data: c}
	blas32.Gemm(ta, tb, 1, ga, gb, beta, gc)
}

// addRows adds bias to every row of x (rows×len(bias)).
func addRows(x, bias []float32) {
	n := len(bias)
	for r := 0; r < len(x); r += n {
		row := x[r : r+n]
		for j, v := range bias {
			row[j] += v
		}
	}
}

// sumRows accumulates the column sums of x (rows×len(dst)) into dst.
func sumRows(dst, x []float32) {
	n := len(dst)
	for r := 0; r < len(x); r += n {
		for j, v := range x[r : r+n] {
			dst[j] += v
		}
	}
}
