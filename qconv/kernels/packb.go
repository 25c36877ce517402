// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package kernels

import "github.com/ajroetker/go-qconv/qconv/convparam"

// PackedBMatrix holds im2col weights, one K × N matrix per group, cut into
// Nr-wide micro-panels stored K-first: Data[((g*panels+j)*K+k)*Nr+col].
// The last panel of each group is zero padded to Nr columns.
type PackedBMatrix struct {
	Groups int
	K      int // taps × IC/G
	N      int // OC/G
	Nr     int
	Data   []int8
}

// PackBMatrix packs KRSC weights for the im2col path. Row k of group g's
// matrix is reduction index (tap, input channel), matching PackAWithIm2Col
// columns, so B_g[k][n] = weights[(g*N+n)*K+k].
func PackBMatrix(p convparam.ConvParams, weights []int8, nr int) *PackedBMatrix {
	if len(weights) < p.WeightSize() {
		panic("packb: weights slice too short")
	}
	if nr <= 0 {
		panic("packb: Nr must be positive")
	}
	k := p.KernelProd() * p.ICPerGroup()
	n := p.OCPerGroup()
	b := &PackedBMatrix{Groups: p.G, K: k, N: n, Nr: nr}
	panels := b.NumPanels()
	b.Data = make([]int8, p.G*panels*k*nr)
	for g := range p.G {
		for col := range n {
			src := weights[(g*n+col)*k:][:k]
			panel := b.Panel(g, col/nr)
			lane := col % nr
			for kk, v := range src {
				panel[kk*nr+lane] = v
			}
		}
	}
	return b
}

// NumPanels is the number of Nr-wide micro-panels per group.
func (b *PackedBMatrix) NumPanels() int {
	return (b.N + b.Nr - 1) / b.Nr
}

// Panel returns micro-panel j of group g, laid out [K, Nr].
func (b *PackedBMatrix) Panel(g, j int) []int8 {
	size := b.K * b.Nr
	off := (g*b.NumPanels() + j) * size
	return b.Data[off : off+size]
}
