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

import (
	"github.com/ajroetker/go-qconv/qconv/convparam"
)

// Im2colRowOffsetBufferSize returns the int32 scratch PackAWithIm2Col needs:
// one row offset per (row, group) of a single Mc row panel.
func Im2colRowOffsetBufferSize(p convparam.ConvParams, bf BlockingFactors) int {
	return bf.Mc * p.G
}

// PackAWithIm2Col packs activations into the im2col matrix on the fly.
//
// The logical matrix of group g has one row per output pixel (MB × OUT_DIM)
// and one column per (filter tap, input channel of g), taps outer. Pixels
// that fall into padding read the activation zero point.
//
// Unless the weights are symmetric (all weight zero points 0), Pack also
// accumulates the row offsets the output pipeline needs.
type PackAWithIm2Col struct {
	p          convparam.ConvParams
	act        []uint8
	zeroPoint  uint8
	rowOffsets []int32
	bSymmetric bool
	bf         BlockingFactors

	packed []uint8

	outDim    []int
	inStride  []int // pixel strides of the input spatial axes
	outSpat   int
	origin    []int // scratch: first input coordinate of the current row
	batchBase int   // scratch: pixel offset of the current image
}

// NewPackAWithIm2Col binds an activation packer to one convolution call.
// rowOffsets must hold Im2colRowOffsetBufferSize(p, bf) elements unless
// bSymmetric is set. The packing buffer is owned by the packer.
func NewPackAWithIm2Col(
	p convparam.ConvParams,
	act []uint8,
	aZeroPoint int32,
	rowOffsets []int32,
	bSymmetric bool,
	bf BlockingFactors,
) *PackAWithIm2Col {
	if len(act) < p.ActivationSize() {
		panic("im2col: activation slice too short")
	}
	if !bSymmetric && len(rowOffsets) < Im2colRowOffsetBufferSize(p, bf) {
		panic("im2col: row offset buffer too short")
	}
	a := &PackAWithIm2Col{
		p:          p,
		act:        act,
		zeroPoint:  uint8(aZeroPoint),
		rowOffsets: rowOffsets,
		bSymmetric: bSymmetric,
		bf:         bf,
		packed:     make([]uint8, bf.PackedASize()),
		outDim:     p.OutDim(),
		inStride:   make([]int, p.SpatialDim),
		origin:     make([]int, p.SpatialDim),
	}
	a.outSpat = p.OutSpatialProd()
	stride := 1
	for d := p.SpatialDim - 1; d >= 0; d-- {
		a.inStride[d] = stride
		stride *= p.InDim[d]
	}
	return a
}

// NumRows is the number of im2col rows (output pixels across the batch).
func (a *PackAWithIm2Col) NumRows() int { return a.p.MB * a.outSpat }

// NumCols is the reduction depth of one group: taps × IC/G.
func (a *PackAWithIm2Col) NumCols() int { return a.p.KernelProd() * a.p.ICPerGroup() }

// Groups returns the number of independent matrices, one per group.
func (a *PackAWithIm2Col) Groups() int { return a.p.G }

// BlockingFactors returns the tiling the packer was built with.
func (a *PackAWithIm2Col) BlockingFactors() BlockingFactors { return a.bf }

// Pack packs rows [rowStart, rowStart+numRows) and columns
// [kStart, kStart+numK) of group g into the layout [ceil(numRows/Mr), numK, Mr].
// numRows must not exceed Mc and numK must not exceed Kc.
//
// Row offsets for group g are reset when kStart is 0 and accumulated
// otherwise, so after the last K block rowOffsets[r*G+g] holds the full sum.
func (a *PackAWithIm2Col) Pack(rowStart, numRows, kStart, numK, g int) []uint8 {
	if numRows > a.bf.Mc || numK > a.bf.Kc {
		panic("im2col: block exceeds blocking factors")
	}
	mr := a.bf.Mr
	icg := a.p.ICPerGroup()
	for r := range numRows {
		a.seekRow(rowStart + r)
		base := (r/mr)*numK*mr + r%mr
		var sum int32
		for kk := range numK {
			k := kStart + kk
			v := a.value(k/icg, g*icg+k%icg)
			a.packed[base+kk*mr] = v
			sum += int32(v)
		}
		if a.bSymmetric {
			continue
		}
		idx := r*a.p.G + g
		if kStart == 0 {
			a.rowOffsets[idx] = sum
		} else {
			a.rowOffsets[idx] += sum
		}
	}
	return a.packed
}

// seekRow decodes an im2col row into its image and the input coordinate of
// the filter window's first tap.
func (a *PackAWithIm2Col) seekRow(row int) {
	n, pix := row/a.outSpat, row%a.outSpat
	a.batchBase = n * a.p.InSpatialProd()
	for d := a.p.SpatialDim - 1; d >= 0; d-- {
		o := pix % a.outDim[d]
		pix /= a.outDim[d]
		a.origin[d] = o*a.p.Stride[d] - a.p.Pad[d]
	}
}

// value reads input channel ch at filter tap of the current row.
func (a *PackAWithIm2Col) value(tap, ch int) uint8 {
	pixel := a.batchBase
	for d := a.p.SpatialDim - 1; d >= 0; d-- {
		kd := tap % a.p.K[d]
		tap /= a.p.K[d]
		in := a.origin[d] + kd*a.p.Dilation[d]
		if in < 0 || in >= a.p.InDim[d] {
			return a.zeroPoint
		}
		pixel += in * a.inStride[d]
	}
	return a.act[pixel*a.p.IC+ch]
}
