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
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/ajroetker/go-qconv/qconv/convparam"
)

// GConvChannelsPerGroup lists the per-group channel counts the groupwise
// kernel is tuned for. Input and output channels per group must be equal and
// one of these values.
var GConvChannelsPerGroup = []int{4, 8, 16}

// GConvGroupMultiple is the group-count granularity of the groupwise kernel.
const GConvGroupMultiple = 8

// OptimizedGConv reports whether the groupwise kernel is the fast choice for
// p: 2D, 3×3 filters, unit stride, dilation and padding, equal input and
// output channels per group in GConvChannelsPerGroup, and a group count that
// is a multiple of GConvGroupMultiple.
func OptimizedGConv(p convparam.ConvParams) bool {
	if p.SpatialDim != 2 || p.G <= 0 {
		return false
	}
	cPerG := p.IC / p.G
	kPerG := p.OC / p.G
	return cPerG == kPerG &&
		slices.Contains(GConvChannelsPerGroup, cPerG) &&
		p.G%GConvGroupMultiple == 0 &&
		lo.EveryBy(p.K, func(k int) bool { return k == 3 }) &&
		lo.EveryBy(p.Stride, func(s int) bool { return s == 1 }) &&
		lo.EveryBy(p.Dilation, func(d int) bool { return d == 1 }) &&
		lo.EveryBy(p.Pad, func(v int) bool { return v == 1 })
}

// RowOffsetBufferSizeGConv returns the int32 scratch the groupwise kernel
// needs: one row offset per (output x, group) of a single output row.
func RowOffsetBufferSizeGConv(p convparam.ConvParams) int {
	if p.SpatialDim != 2 {
		return 0
	}
	return p.OutDim()[1] * p.G
}

// PackedGConv holds groupwise weights as [G, taps, IC/G, OC/G] so one input
// channel's contributions to every output channel of its group are adjacent.
type PackedGConv struct {
	Groups     int
	KernelProd int
	ICPerGroup int
	OCPerGroup int
	Data       []int8
}

// PackGConv reorders KRSC weights for the groupwise kernel.
func PackGConv(p convparam.ConvParams, weights []int8) *PackedGConv {
	if len(weights) < p.WeightSize() {
		panic("gconv: weights slice too short")
	}
	g, taps, icg, ocg := p.G, p.KernelProd(), p.ICPerGroup(), p.OCPerGroup()
	data := make([]int8, g*taps*icg*ocg)
	for gi := range g {
		for k := range ocg {
			src := weights[((gi*ocg+k)*taps)*icg:]
			for tap := range taps {
				for c := range icg {
					data[((gi*taps+tap)*icg+c)*ocg+k] = src[tap*icg+c]
				}
			}
		}
	}
	return &PackedGConv{Groups: g, KernelProd: taps, ICPerGroup: icg, OCPerGroup: ocg, Data: data}
}

// tap returns the [IC/G, OC/G] weight slab of group g at one filter tap.
func (w *PackedGConv) tap(g, tap int) []int8 {
	size := w.ICPerGroup * w.OCPerGroup
	off := (g*w.KernelProd + tap) * size
	return w.Data[off : off+size]
}

// GroupwiseConv runs a 2D grouped convolution over the output rows owned by
// threadID. Accumulators go to outBuffer (ld = OC), then through proc into
// out. rowOffsets must hold RowOffsetBufferSizeGConv(p) elements and be the
// slice registered with proc.
func GroupwiseConv[T Output](
	p convparam.ConvParams,
	act []uint8,
	aZeroPoint int32,
	rowOffsets []int32,
	w *PackedGConv,
	out []T,
	outBuffer []int32,
	proc OutputPipeline[T],
	threadID, numThreads int,
) {
	if p.SpatialDim != 2 {
		panic(fmt.Sprintf("gconv: only 2D groupwise convolutions are supported, got %dD", p.SpatialDim))
	}
	if w.Groups != p.G || w.ICPerGroup != p.ICPerGroup() || w.OCPerGroup != p.OCPerGroup() || w.KernelProd != p.KernelProd() {
		panic("gconv: packed weights do not match parameters")
	}
	if len(rowOffsets) < RowOffsetBufferSizeGConv(p) {
		panic("gconv: row offset buffer too short")
	}
	h, wd := p.InDim[0], p.InDim[1]
	outDim := p.OutDim()
	oh, ow := outDim[0], outDim[1]
	icg, ocg := w.ICPerGroup, w.OCPerGroup
	kh, kw := p.K[0], p.K[1]
	ld := p.OC

	rowStart, rowEnd := Partition1D(threadID, numThreads, p.MB*oh)
	for row := rowStart; row < rowEnd; row++ {
		n, y := row/oh, row%oh
		for x := range ow {
			pixAcc := outBuffer[(row*ow+x)*ld:][:ld]
			clear(pixAcc)
			for g := range p.G {
				acc := pixAcc[g*ocg : (g+1)*ocg]
				var sum int32
				for r := range kh {
					ih := y*p.Stride[0] - p.Pad[0] + r*p.Dilation[0]
					for s := range kw {
						iw := x*p.Stride[1] - p.Pad[1] + s*p.Dilation[1]
						slab := w.tap(g, r*kw+s)
						if ih < 0 || ih >= h || iw < 0 || iw >= wd {
							for c := range icg {
								sum += aZeroPoint
								axpy(acc, slab[c*ocg:(c+1)*ocg], aZeroPoint)
							}
							continue
						}
						in := act[((n*h+ih)*wd+iw)*p.IC+g*icg:][:icg]
						for c, a := range in {
							v := int32(a)
							sum += v
							axpy(acc, slab[c*ocg:(c+1)*ocg], v)
						}
					}
				}
				rowOffsets[x*p.G+g] = sum
			}
		}
		off := row * ow * ld
		proc.Process(out[off:], outBuffer[off:], Block{RowStart: row * ow, NumRows: ow, NumCols: ld}, ld, ld)
	}
}

// axpy computes acc += a * w.
func axpy(acc []int32, w []int8, a int32) {
	for k, wv := range w {
		acc[k] += a * int32(wv)
	}
}
