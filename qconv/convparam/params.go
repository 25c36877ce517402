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

// Package convparam describes the shape of a 2D or 3D convolution.
//
// Tensors are laid out channels-last:
//   - activations: [MB, IN_DIM..., IC] (NHWC / NTHWC)
//   - weights:     [OC, K..., IC/G]    (KRSC), output channels group-major
//   - outputs:     [MB, OUT_DIM..., OC]
package convparam

import (
	"fmt"
	"slices"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

var (
	// ErrInvalidDimensionality is returned for spatial dimensionality outside {2, 3}.
	ErrInvalidDimensionality = errors.New("convparam: spatial dimensionality must be 2 or 3")

	// ErrInvalidParams is returned when a ConvParams violates a shape invariant.
	ErrInvalidParams = errors.New("convparam: invalid convolution parameters")
)

// ConvParams holds the shape of one convolution. Every per-axis slice has
// length SpatialDim. Padding is symmetric: Pad[d] zeros are added on both
// sides of axis d.
type ConvParams struct {
	SpatialDim int

	MB int // minibatch size
	IC int // input channels
	OC int // output channels
	G  int // groups

	InDim    []int
	K        []int
	Stride   []int
	Dilation []int
	Pad      []int
}

// New2D returns 2D convolution parameters with unit dilation.
func New2D(mb, ic, oc int, inDim [2]int, g int, k, stride, pad [2]int) ConvParams {
	return ConvParams{
		SpatialDim: 2,
		MB:         mb,
		IC:         ic,
		OC:         oc,
		G:          g,
		InDim:      inDim[:],
		K:          k[:],
		Stride:     stride[:],
		Dilation:   []int{1, 1},
		Pad:        pad[:],
	}
}

// New3D returns 3D convolution parameters with unit dilation.
func New3D(mb, ic, oc int, inDim [3]int, g int, k, stride, pad [3]int) ConvParams {
	return ConvParams{
		SpatialDim: 3,
		MB:         mb,
		IC:         ic,
		OC:         oc,
		G:          g,
		InDim:      inDim[:],
		K:          k[:],
		Stride:     stride[:],
		Dilation:   []int{1, 1, 1},
		Pad:        pad[:],
	}
}

// Validate checks the shape invariants. The returned error wraps
// ErrInvalidDimensionality or ErrInvalidParams.
func (p ConvParams) Validate() error {
	if p.SpatialDim != 2 && p.SpatialDim != 3 {
		return errors.Wrapf(ErrInvalidDimensionality, "got %d", p.SpatialDim)
	}
	if p.MB <= 0 || p.IC <= 0 || p.OC <= 0 || p.G <= 0 {
		return errors.Wrapf(ErrInvalidParams, "MB=%d IC=%d OC=%d G=%d must be positive", p.MB, p.IC, p.OC, p.G)
	}
	if p.IC%p.G != 0 || p.OC%p.G != 0 {
		return errors.Wrapf(ErrInvalidParams, "IC=%d and OC=%d must be divisible by G=%d", p.IC, p.OC, p.G)
	}
	axes := map[string][]int{
		"IN_DIM":   p.InDim,
		"K":        p.K,
		"stride":   p.Stride,
		"dilation": p.Dilation,
		"pad":      p.Pad,
	}
	for _, name := range []string{"IN_DIM", "K", "stride", "dilation", "pad"} {
		if len(axes[name]) != p.SpatialDim {
			return errors.Wrapf(ErrInvalidParams, "%s has %d entries, want %d", name, len(axes[name]), p.SpatialDim)
		}
	}
	positive := func(v int) bool { return v > 0 }
	if !lo.EveryBy(p.InDim, positive) || !lo.EveryBy(p.K, positive) ||
		!lo.EveryBy(p.Stride, positive) || !lo.EveryBy(p.Dilation, positive) {
		return errors.Wrapf(ErrInvalidParams, "IN_DIM, K, stride and dilation must be positive: %s", p)
	}
	if !lo.EveryBy(p.Pad, func(v int) bool { return v >= 0 }) {
		return errors.Wrapf(ErrInvalidParams, "negative padding: %v", p.Pad)
	}
	for d := range p.SpatialDim {
		if p.InDim[d]+2*p.Pad[d] < p.Dilation[d]*(p.K[d]-1)+1 {
			return errors.Wrapf(ErrInvalidParams, "empty output along axis %d for %s", d, p)
		}
	}
	return nil
}

// OutDim returns the output spatial dimensions.
func (p ConvParams) OutDim() []int {
	out := make([]int, p.SpatialDim)
	for d := range out {
		extent := p.Dilation[d]*(p.K[d]-1) + 1
		out[d] = (p.InDim[d]+2*p.Pad[d]-extent)/p.Stride[d] + 1
	}
	return out
}

// KernelProd is the number of taps in one filter window.
func (p ConvParams) KernelProd() int {
	return prod(p.K)
}

// InSpatialProd is the number of input pixels per image.
func (p ConvParams) InSpatialProd() int {
	return prod(p.InDim)
}

// OutSpatialProd is the number of output pixels per image.
func (p ConvParams) OutSpatialProd() int {
	return prod(p.OutDim())
}

// ICPerGroup returns IC/G.
func (p ConvParams) ICPerGroup() int { return p.IC / p.G }

// OCPerGroup returns OC/G.
func (p ConvParams) OCPerGroup() int { return p.OC / p.G }

// ActivationSize is the number of uint8 activations the convolution reads.
func (p ConvParams) ActivationSize() int {
	return p.MB * p.InSpatialProd() * p.IC
}

// OutputSize is the number of output elements the convolution writes.
func (p ConvParams) OutputSize() int {
	return p.MB * p.OutSpatialProd() * p.OC
}

// WeightSize is the number of int8 weights in KRSC layout.
func (p ConvParams) WeightSize() int {
	return p.OC * p.KernelProd() * p.ICPerGroup()
}

// SameWeightShape reports whether weights packed for p can be indexed with q:
// dimensionality, channel counts, groups and kernel sizes agree.
func (p ConvParams) SameWeightShape(q ConvParams) bool {
	return p.SpatialDim == q.SpatialDim &&
		p.IC == q.IC && p.OC == q.OC && p.G == q.G &&
		slices.Equal(p.K, q.K)
}

// Clone returns a deep copy of p.
func (p ConvParams) Clone() ConvParams {
	c := p
	c.InDim = slices.Clone(p.InDim)
	c.K = slices.Clone(p.K)
	c.Stride = slices.Clone(p.Stride)
	c.Dilation = slices.Clone(p.Dilation)
	c.Pad = slices.Clone(p.Pad)
	return c
}

func (p ConvParams) String() string {
	return fmt.Sprintf("%dD MB=%d IC=%d OC=%d G=%d IN=%v K=%v stride=%v dilation=%v pad=%v",
		p.SpatialDim, p.MB, p.IC, p.OC, p.G, p.InDim, p.K, p.Stride, p.Dilation, p.Pad)
}

func prod(v []int) int {
	n := 1
	for _, x := range v {
		n *= x
	}
	return n
}
