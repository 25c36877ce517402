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

	"github.com/ajroetker/go-qconv/qconv/convparam"
)

// PackedDepthwise holds depthwise weights tap-major: Data[tap*Channels+c].
// One tap across all channels is contiguous, which is the order the
// kernels sweep channels in.
type PackedDepthwise struct {
	Channels   int
	KernelProd int
	Data       []int8
}

// PackDepthwise reorders KRSC depthwise weights ([C, taps, 1]) to tap-major.
func PackDepthwise(weights []int8, channels, kernelProd int) *PackedDepthwise {
	if len(weights) < channels*kernelProd {
		panic("depthwise: weights slice too short")
	}
	data := make([]int8, channels*kernelProd)
	for c := range channels {
		for tap := range kernelProd {
			data[tap*channels+c] = weights[c*kernelProd+tap]
		}
	}
	return &PackedDepthwise{Channels: channels, KernelProd: kernelProd, Data: data}
}

// Tap returns the weights of one filter tap for every channel.
func (w *PackedDepthwise) Tap(tap int) []int8 {
	return w.Data[tap*w.Channels : (tap+1)*w.Channels]
}

// Depthwise2D runs a 2D depthwise convolution (G == IC == OC) over the
// output rows owned by threadID. Rows are (image, output y) pairs.
//
// Out-of-bounds taps read aZeroPoint, so padding contributes nothing once
// the pipeline applies zero-point correction.
func Depthwise2D[T Output](
	p convparam.ConvParams,
	aZeroPoint int32,
	act []uint8,
	w *PackedDepthwise,
	out []T,
	proc OutputPipeline[T],
	threadID, numThreads int,
) {
	if p.SpatialDim != 2 {
		panic(fmt.Sprintf("depthwise2d: got %dD parameters", p.SpatialDim))
	}
	if w.Channels != p.OC || w.KernelProd != p.KernelProd() {
		panic("depthwise2d: packed weights do not match parameters")
	}
	h, wd := p.InDim[0], p.InDim[1]
	outDim := p.OutDim()
	oh, ow := outDim[0], outDim[1]
	c := p.OC
	kh, kw := p.K[0], p.K[1]

	acc := make([]int32, ow*c)
	rowOffsets := make([]int32, ow*c)
	proc.SetRowOffsets(rowOffsets)

	rowStart, rowEnd := Partition1D(threadID, numThreads, p.MB*oh)
	for row := rowStart; row < rowEnd; row++ {
		n, y := row/oh, row%oh
		clear(acc)
		clear(rowOffsets)
		for x := range ow {
			accPix := acc[x*c : (x+1)*c]
			offPix := rowOffsets[x*c : (x+1)*c]
			for r := range kh {
				ih := y*p.Stride[0] - p.Pad[0] + r*p.Dilation[0]
				for s := range kw {
					iw := x*p.Stride[1] - p.Pad[1] + s*p.Dilation[1]
					tap := w.Tap(r*kw + s)
					if ih < 0 || ih >= h || iw < 0 || iw >= wd {
						padTap(accPix, offPix, tap, aZeroPoint)
						continue
					}
					in := act[((n*h+ih)*wd+iw)*c:][:c]
					accumulateTap(accPix, offPix, tap, in)
				}
			}
		}
		proc.Process(out[row*ow*c:], acc, Block{RowStart: row * ow, NumRows: ow, NumCols: c}, c, c)
	}
}

// Depthwise3D runs a 3D depthwise convolution over the output rows owned by
// threadID. Rows are (image, output t) pairs, each covering an OH×OW plane.
func Depthwise3D[T Output](
	p convparam.ConvParams,
	aZeroPoint int32,
	act []uint8,
	w *PackedDepthwise,
	out []T,
	proc OutputPipeline[T],
	threadID, numThreads int,
) {
	if p.SpatialDim != 3 {
		panic(fmt.Sprintf("depthwise3d: got %dD parameters", p.SpatialDim))
	}
	if w.Channels != p.OC || w.KernelProd != p.KernelProd() {
		panic("depthwise3d: packed weights do not match parameters")
	}
	it, h, wd := p.InDim[0], p.InDim[1], p.InDim[2]
	outDim := p.OutDim()
	ot, oh, ow := outDim[0], outDim[1], outDim[2]
	c := p.OC
	kt, kh, kw := p.K[0], p.K[1], p.K[2]
	plane := oh * ow

	acc := make([]int32, plane*c)
	rowOffsets := make([]int32, plane*c)
	proc.SetRowOffsets(rowOffsets)

	rowStart, rowEnd := Partition1D(threadID, numThreads, p.MB*ot)
	for row := rowStart; row < rowEnd; row++ {
		n, z := row/ot, row%ot
		clear(acc)
		clear(rowOffsets)
		for y := range oh {
			for x := range ow {
				pix := y*ow + x
				accPix := acc[pix*c : (pix+1)*c]
				offPix := rowOffsets[pix*c : (pix+1)*c]
				for q := range kt {
					iz := z*p.Stride[0] - p.Pad[0] + q*p.Dilation[0]
					for r := range kh {
						ih := y*p.Stride[1] - p.Pad[1] + r*p.Dilation[1]
						for s := range kw {
							iw := x*p.Stride[2] - p.Pad[2] + s*p.Dilation[2]
							tap := w.Tap((q*kh+r)*kw + s)
							if iz < 0 || iz >= it || ih < 0 || ih >= h || iw < 0 || iw >= wd {
								padTap(accPix, offPix, tap, aZeroPoint)
								continue
							}
							in := act[(((n*it+iz)*h+ih)*wd+iw)*c:][:c]
							accumulateTap(accPix, offPix, tap, in)
						}
					}
				}
			}
		}
		proc.Process(out[row*plane*c:], acc, Block{RowStart: row * plane, NumRows: plane, NumCols: c}, c, c)
	}
}

func accumulateTap(acc, rowOffsets []int32, tap []int8, in []uint8) {
	for ch, a := range in {
		v := int32(a)
		acc[ch] += v * int32(tap[ch])
		rowOffsets[ch] += v
	}
}

func padTap(acc, rowOffsets []int32, tap []int8, aZeroPoint int32) {
	for ch, wv := range tap {
		acc[ch] += aZeroPoint * int32(wv)
		rowOffsets[ch] += aZeroPoint
	}
}
