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

package qconv

import (
	"math"
	"math/rand"

	"github.com/ajroetker/go-qconv/qconv/convparam"
)

// testCase is one convolution together with everything needed to run it and
// compute its expected output.
type testCase struct {
	name    string
	p       ConvParams
	want    ExecutionStrategy
	act     []uint8
	weights []int8
}

func newTestCase(rng *rand.Rand, name string, p ConvParams, want ExecutionStrategy) testCase {
	act := make([]uint8, p.ActivationSize())
	for i := range act {
		act[i] = uint8(rng.Intn(256))
	}
	weights := make([]int8, p.WeightSize())
	for i := range weights {
		weights[i] = int8(rng.Intn(256) - 128)
	}
	return testCase{name: name, p: p, want: want, act: act, weights: weights}
}

// pathCases covers every execution strategy in 2D and 3D.
func pathCases(rng *rand.Rand) []testCase {
	dilated := convparam.New2D(2, 6, 10, [2]int{9, 9}, 2, [2]int{3, 2}, [2]int{2, 1}, [2]int{2, 0})
	dilated.Dilation = []int{2, 3}
	return []testCase{
		newTestCase(rng, "depthwise2d_stride1", convparam.New2D(2, 16, 16, [2]int{7, 6}, 16,
			[2]int{3, 3}, [2]int{1, 1}, [2]int{1, 1}), Depthwise),
		newTestCase(rng, "depthwise2d_stride2", convparam.New2D(1, 8, 8, [2]int{7, 8}, 8,
			[2]int{3, 3}, [2]int{2, 2}, [2]int{1, 1}), Depthwise),
		newTestCase(rng, "depthwise3d", convparam.New3D(2, 8, 8, [3]int{3, 4, 5}, 8,
			[3]int{3, 3, 3}, [3]int{1, 2, 1}, [3]int{1, 1, 1}), Depthwise),
		newTestCase(rng, "groupwise_c4", convparam.New2D(2, 32, 32, [2]int{5, 6}, 8,
			[2]int{3, 3}, [2]int{1, 1}, [2]int{1, 1}), Groupwise),
		newTestCase(rng, "groupwise_c16", convparam.New2D(1, 128, 128, [2]int{4, 3}, 8,
			[2]int{3, 3}, [2]int{1, 1}, [2]int{1, 1}), Groupwise),
		newTestCase(rng, "im2col_dense_5x5", convparam.New2D(1, 3, 7, [2]int{9, 8}, 1,
			[2]int{5, 5}, [2]int{1, 1}, [2]int{2, 2}), Im2col),
		newTestCase(rng, "im2col_grouped_dilated", dilated, Im2col),
		newTestCase(rng, "im2col_3d", convparam.New3D(2, 4, 6, [3]int{3, 4, 4}, 2,
			[3]int{3, 3, 3}, [3]int{1, 1, 2}, [3]int{1, 1, 1}), Im2col),
		newTestCase(rng, "im2col_pointwise", convparam.New2D(3, 16, 24, [2]int{5, 5}, 1,
			[2]int{1, 1}, [2]int{1, 1}, [2]int{0, 0}), Im2col),
	}
}

// quant is the quantization metadata for one test run.
type quant struct {
	gran  Granularity
	relu  bool
	aZP   int32
	bZPs  []int32
	bias  []int32
	mults []float32
	cZP   int32
}

func newQuant(rng *rand.Rand, p ConvParams, gran Granularity, relu, symmetric bool) quant {
	n := gran.Count(p)
	q := quant{gran: gran, relu: relu, aZP: int32(rng.Intn(256)), cZP: int32(rng.Intn(64) + 64)}
	if !symmetric {
		q.bZPs = make([]int32, n)
		for i := range q.bZPs {
			q.bZPs[i] = int32(rng.Intn(9) - 4)
		}
	}
	q.mults = make([]float32, n)
	for i := range q.mults {
		q.mults[i] = float32(rng.Intn(8)+1) * 2e-5
	}
	q.bias = make([]int32, p.OC)
	for i := range q.bias {
		q.bias[i] = int32(rng.Intn(2001) - 1000)
	}
	return q
}

func (q quant) params(p ConvParams, weights []int8) QuantParams {
	colOffsets, err := ColumnOffsets(p, weights, q.bZPs, q.gran)
	if err != nil {
		panic(err)
	}
	return QuantParams{
		AZeroPoint:  q.aZP,
		BZeroPoints: q.bZPs,
		ColOffsets:  colOffsets,
		Bias:        q.bias,
		Granularity: q.gran,
		ReLUFused:   q.relu,
	}
}

func (q quant) requantizer(p ConvParams, weights []int8) *ReQuantizeOutput {
	return &ReQuantizeOutput{QuantParams: q.params(p, weights), CMultipliers: q.mults, CZeroPoint: q.cZP}
}

func (q quant) accumulator(p ConvParams, weights []int8) *AccumulatorOutput {
	return &AccumulatorOutput{QuantParams: q.params(p, weights)}
}

func (q quant) index(p ConvParams, j int) int {
	switch q.gran {
	case GroupGranularity:
		return j / p.OCPerGroup()
	case OutChannelGranularity:
		return j
	}
	return 0
}

// referenceInt32 is the direct definition of the corrected output:
// sum over in-bounds taps of (a - aZP) * (w - bZP[q]) plus bias.
func referenceInt32(p ConvParams, act []uint8, weights []int8, q quant) []int32 {
	outDim := p.OutDim()
	outSpat, inSpat := p.OutSpatialProd(), p.InSpatialProd()
	icg, ocg, taps := p.ICPerGroup(), p.OCPerGroup(), p.KernelProd()
	out := make([]int32, p.OutputSize())
	oc := make([]int, p.SpatialDim)
	kc := make([]int, p.SpatialDim)
	for n := range p.MB {
		for pix := range outSpat {
			unravel(pix, outDim, oc)
			for j := range p.OC {
				g := j / ocg
				var bzp int32
				if q.bZPs != nil {
					bzp = q.bZPs[q.index(p, j)]
				}
				sum := q.bias[j]
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
						a := int32(act[(n*inSpat+inPix)*p.IC+g*icg+c]) - q.aZP
						w := int32(weights[(j*taps+tap)*icg+c]) - bzp
						sum += a * w
					}
				}
				if q.relu {
					sum = max(sum, 0)
				}
				out[(n*outSpat+pix)*p.OC+j] = sum
			}
		}
	}
	return out
}

// referenceUint8 requantizes the corrected output. ReLU is applied by the
// clamp at the output zero point rather than on the int32 value.
func referenceUint8(p ConvParams, act []uint8, weights []int8, q quant) []uint8 {
	noReLU := q
	noReLU.relu = false
	raw := referenceInt32(p, act, weights, noReLU)
	out := make([]uint8, len(raw))
	for i, v := range raw {
		j := i % p.OC
		scaled := math.RoundToEven(float64(float32(v)*q.mults[q.index(p, j)])) + float64(q.cZP)
		lower := 0.0
		if q.relu {
			lower = float64(q.cZP)
		}
		out[i] = uint8(math.Min(math.Max(scaled, lower), 255))
	}
	return out
}

func unravel(idx int, dims, coords []int) {
	for d := len(dims) - 1; d >= 0; d-- {
		coords[d] = idx % dims[d]
		idx /= dims[d]
	}
}

func smallBlocking() *BlockingFactors {
	return &BlockingFactors{Mr: 4, Nr: 4, Kc: 8, Mc: 8, Nc: 8}
}
