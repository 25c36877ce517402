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
	"github.com/samber/lo"

	"github.com/ajroetker/go-qconv/qconv/kernels"
)

// ExecutionStrategy is the kernel family that runs a convolution.
type ExecutionStrategy int

const (
	// Depthwise is the register-blocked 3×3(×3) depthwise kernel.
	Depthwise ExecutionStrategy = iota

	// Groupwise is the 2D grouped-convolution kernel.
	Groupwise

	// Im2col lowers the convolution to a packed matmul. It is correct for
	// every valid ConvParams.
	Im2col
)

func (s ExecutionStrategy) String() string {
	switch s {
	case Depthwise:
		return "depthwise"
	case Groupwise:
		return "groupwise"
	case Im2col:
		return "im2col"
	default:
		return "unknown"
	}
}

// TakeDepthwiseFastPath reports whether p is the common depthwise shape the
// depthwise kernels are specialized for: int32 accumulation, G == IC == OC,
// G a multiple of 8, 3-wide filters on every axis, stride 1 or 2, unit
// dilation and padding 1.
func TakeDepthwiseFastPath(p ConvParams, acc AccumulatorKind) bool {
	return acc == AccInt32 &&
		p.G > 0 && p.G == p.IC && p.G == p.OC && p.G%8 == 0 &&
		lo.EveryBy(p.Stride, func(s int) bool { return s == 1 || s == 2 }) &&
		lo.EveryBy(p.K, func(k int) bool { return k == 3 }) &&
		lo.EveryBy(p.Dilation, func(d int) bool { return d == 1 }) &&
		lo.EveryBy(p.Pad, func(v int) bool { return v == 1 })
}

// Classify picks the execution strategy for p. The first match wins:
// depthwise, then groupwise (kernels.OptimizedGConv), then im2col.
// The weight packer and the driver both use it, so weights packed for p
// are always compliant with p.
func Classify(p ConvParams, acc AccumulatorKind) ExecutionStrategy {
	switch {
	case TakeDepthwiseFastPath(p, acc):
		return Depthwise
	case kernels.OptimizedGConv(p):
		return Groupwise
	default:
		return Im2col
	}
}
