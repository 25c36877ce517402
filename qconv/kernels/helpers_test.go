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
	"math/rand"

	"github.com/ajroetker/go-qconv/qconv/convparam"
)

// correctedPipeline applies zero-point correction only, writing the exact
// sum of (a - aZP) * (w - bZP) into out.
type correctedPipeline struct {
	aZeroPoint int32
	bZeroPoint int32
	colOffsets []int32
	groups     int
	ocPerGroup int
	rowOffsets []int32
}

func newCorrectedPipeline(p convparam.ConvParams, weights []int8, aZP, bZP int32) *correctedPipeline {
	return &correctedPipeline{
		aZeroPoint: aZP,
		bZeroPoint: bZP,
		colOffsets: columnOffsets(p, weights, bZP),
		groups:     p.G,
		ocPerGroup: p.OCPerGroup(),
	}
}

func (c *correctedPipeline) SetRowOffsets(rowOffsets []int32) { c.rowOffsets = rowOffsets }

func (c *correctedPipeline) Process(out []int32, acc []int32, blk Block, ldOut, ldAcc int) {
	for r := range blk.NumRows {
		for col := range blk.NumCols {
			j := blk.ColStart + col
			g := j / c.ocPerGroup
			v := acc[r*ldAcc+col] - c.aZeroPoint*c.colOffsets[j]
			if c.bZeroPoint != 0 {
				v -= c.bZeroPoint * c.rowOffsets[r*c.groups+g]
			}
			out[r*ldOut+col] = v
		}
	}
}

// columnOffsets returns sum_k (w[j,k] - bZP) for every output channel j.
func columnOffsets(p convparam.ConvParams, weights []int8, bZP int32) []int32 {
	k := p.KernelProd() * p.ICPerGroup()
	out := make([]int32, p.OC)
	for j := range p.OC {
		var sum int32
		for _, w := range weights[j*k : (j+1)*k] {
			sum += int32(w) - bZP
		}
		out[j] = sum
	}
	return out
}

// naiveConv is the direct definition: out = sum over valid taps of
// (a - aZP) * (w - bZP). Padding contributes nothing.
func naiveConv(p convparam.ConvParams, act []uint8, weights []int8, aZP, bZP int32) []int32 {
	outDim := p.OutDim()
	outSpat := p.OutSpatialProd()
	inSpat := p.InSpatialProd()
	icg, ocg, taps := p.ICPerGroup(), p.OCPerGroup(), p.KernelProd()
	out := make([]int32, p.OutputSize())
	oc := make([]int, p.SpatialDim)
	kc := make([]int, p.SpatialDim)
	for n := range p.MB {
		for pix := range outSpat {
			unravel(pix, outDim, oc)
			for j := range p.OC {
				g := j / ocg
				var sum int32
				for tap := range taps {
					unravel(tap, p.K, kc)
					inPix, ok := 0, true
					for d := range p.SpatialDim {
						in := oc[d]*p.Stride[d] - p.Pad[d] + kc[d]*p.Dilation[d]
						if in < 0 || in >= p.InDim[d] {
							ok = false
							break
						}
						inPix = inPix*p.InDim[d] + in
					}
					if !ok {
						continue
					}
					for c := range icg {
						a := int32(act[(n*inSpat+inPix)*p.IC+g*icg+c]) - aZP
						w := int32(weights[(j*taps+tap)*icg+c]) - bZP
						sum += a * w
					}
				}
				out[(n*outSpat+pix)*p.OC+j] = sum
			}
		}
	}
	return out
}

func unravel(idx int, dims, coords []int) {
	for d := len(dims) - 1; d >= 0; d-- {
		coords[d] = idx % dims[d]
		idx /= dims[d]
	}
}

func randomInputs(rng *rand.Rand, p convparam.ConvParams) ([]uint8, []int8) {
	act := make([]uint8, p.ActivationSize())
	for i := range act {
		act[i] = uint8(rng.Intn(256))
	}
	weights := make([]int8, p.WeightSize())
	for i := range weights {
		weights[i] = int8(rng.Intn(256) - 128)
	}
	return act, weights
}

func smallBlocking() BlockingFactors {
	return BlockingFactors{Mr: 4, Nr: 4, Kc: 8, Mc: 8, Nc: 8}
}
