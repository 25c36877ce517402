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
	"github.com/pkg/errors"

	"github.com/ajroetker/go-qconv/qconv/convparam"
	"github.com/ajroetker/go-qconv/qconv/kernels"
)

// ConvParams describes a quantized convolution. See convparam.ConvParams.
type ConvParams = convparam.ConvParams

// BlockingFactors are the im2col matmul tile sizes. See
// kernels.BlockingFactors.
type BlockingFactors = kernels.BlockingFactors

// PackedWeights holds the weights of one convolution in the layout of the
// execution strategy its parameters classify to. Exactly one sub-form is
// populated. PackedWeights is immutable after PackWeights and may be shared
// by any number of concurrent Run calls.
type PackedWeights struct {
	params ConvParams
	acc    AccumulatorKind

	dw2D   *kernels.PackedDepthwise
	dw3D   *kernels.PackedDepthwise
	gconv  *kernels.PackedGConv
	im2col *kernels.PackedBMatrix
}

// PackWeights packs KRSC weights ([OC][taps][IC/G]) for p under the
// accumulator kind acc. bf only matters for the im2col form, where its Nr
// sets the panel width; nil selects DefaultBlockingFactors.
func PackWeights(p ConvParams, acc AccumulatorKind, weights []int8, bf *BlockingFactors) (*PackedWeights, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if !acc.valid() {
		return nil, errors.Wrapf(ErrInvalidArgument, "accumulator kind %s", acc)
	}
	if len(weights) != p.WeightSize() {
		return nil, errors.Wrapf(ErrInvalidArgument, "%d weights for %s, want %d", len(weights), p, p.WeightSize())
	}
	factors, err := kernels.ResolveBlockingFactors(bf)
	if err != nil {
		return nil, err
	}

	pw := &PackedWeights{params: p.Clone(), acc: acc}
	switch Classify(p, acc) {
	case Depthwise:
		packed := kernels.PackDepthwise(weights, p.OC, p.KernelProd())
		if p.SpatialDim == 3 {
			pw.dw3D = packed
		} else {
			pw.dw2D = packed
		}
	case Groupwise:
		pw.gconv = kernels.PackGConv(p, weights)
	default:
		pw.im2col = kernels.PackBMatrix(p, weights, factors.Nr)
	}
	return pw, nil
}

// Strategy returns the execution strategy the weights were packed for.
func (pw *PackedWeights) Strategy() ExecutionStrategy {
	s, _ := pw.packedStrategy()
	return s
}

func (pw *PackedWeights) packedStrategy() (ExecutionStrategy, bool) {
	switch {
	case pw == nil:
		return Im2col, false
	case pw.dw2D != nil || pw.dw3D != nil:
		return Depthwise, true
	case pw.gconv != nil:
		return Groupwise, true
	case pw.im2col != nil:
		return Im2col, true
	}
	return Im2col, false
}

// AccKind returns the accumulator kind the weights were packed under.
func (pw *PackedWeights) AccKind() AccumulatorKind { return pw.acc }

// Params returns a copy of the parameters the weights were packed for.
func (pw *PackedWeights) Params() ConvParams { return pw.params.Clone() }

// PackedWFor2DDW returns the 2D depthwise form, or nil.
func (pw *PackedWeights) PackedWFor2DDW() *kernels.PackedDepthwise { return pw.dw2D }

// PackedWFor3DDW returns the 3D depthwise form, or nil.
func (pw *PackedWeights) PackedWFor3DDW() *kernels.PackedDepthwise { return pw.dw3D }

// PackedWForGroupwise returns the groupwise form, or nil.
func (pw *PackedWeights) PackedWForGroupwise() *kernels.PackedGConv { return pw.gconv }

// PackedWForIm2col returns the im2col matmul form, or nil.
func (pw *PackedWeights) PackedWForIm2col() *kernels.PackedBMatrix { return pw.im2col }

// IsPackingCompliant reports whether the weights can run a convolution with
// parameters p: the packed form must be the one Classify picks for p under
// the packing accumulator, and the weight shape (dimensionality, channels,
// groups, filter size) must match what was packed.
//
// A nil receiver is never compliant.
func (pw *PackedWeights) IsPackingCompliant(p ConvParams) bool {
	s, ok := pw.packedStrategy()
	if !ok {
		return false
	}
	return pw.params.SameWeightShape(p) && s == Classify(p, pw.acc)
}

// RowOffsetBufferSize returns how many int32 row offsets strategy s needs
// for p: OW*G for groupwise, Mc*G for im2col and 0 for depthwise, whose
// kernels keep their row offsets internal.
func RowOffsetBufferSize(p ConvParams, s ExecutionStrategy, bf BlockingFactors) int {
	switch s {
	case Groupwise:
		return kernels.RowOffsetBufferSizeGConv(p)
	case Im2col:
		return kernels.Im2colRowOffsetBufferSize(p, bf)
	default:
		return 0
	}
}
