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

	"github.com/ajroetker/go-qconv/qconv/kernels"
)

func runDepthwise[T kernels.Output](
	p ConvParams,
	activations []uint8,
	pw *PackedWeights,
	out []T,
	proc OutputProcessor[T],
	threadID, numThreads int,
) error {
	aZeroPoint := proc.ActivationZeroPoint()
	if p.SpatialDim == 3 {
		if outputKindOf[T]() != OutputUint8 {
			return errors.Wrap(ErrUnsupportedConfiguration, "3D depthwise convolution supports only requantized uint8 output")
		}
		kernels.Depthwise3D(p, aZeroPoint, activations, pw.PackedWFor3DDW(), out, proc, threadID, numThreads)
		return nil
	}
	kernels.Depthwise2D(p, aZeroPoint, activations, pw.PackedWFor2DDW(), out, proc, threadID, numThreads)
	return nil
}

func runGroupwise[T kernels.Output](
	p ConvParams,
	activations []uint8,
	pw *PackedWeights,
	out []T,
	outBuffer []int32,
	proc OutputProcessor[T],
	threadID, numThreads int,
) error {
	if p.SpatialDim != 2 {
		return errors.Wrapf(ErrUnsupportedConfiguration, "groupwise convolution is 2D only, got %dD", p.SpatialDim)
	}
	rowOffsets := make([]int32, RowOffsetBufferSize(p, Groupwise, BlockingFactors{}))
	proc.SetRowOffsets(rowOffsets)
	kernels.GroupwiseConv(p, activations, proc.ActivationZeroPoint(), rowOffsets,
		pw.PackedWForGroupwise(), out, outBuffer, proc, threadID, numThreads)
	return nil
}

func runIm2col[T kernels.Output](
	p ConvParams,
	activations []uint8,
	pw *PackedWeights,
	out []T,
	outBuffer []int32,
	proc OutputProcessor[T],
	threadID, numThreads int,
	bf BlockingFactors,
) error {
	rowOffsets := make([]int32, RowOffsetBufferSize(p, Im2col, bf))
	packA := kernels.NewPackAWithIm2Col(p, activations, proc.ActivationZeroPoint(), rowOffsets, proc.BSymmetric(), bf)
	proc.SetRowOffsets(rowOffsets)
	kernels.PackedMatMul(packA, pw.PackedWForIm2col(), out, outBuffer, p.OC, proc, threadID, numThreads)
	return nil
}
