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
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/ajroetker/go-qconv/qconv/kernels"
)

// Granularity is how finely the weight zero points and requantization
// multipliers are specified.
type Granularity int

const (
	// TensorGranularity uses one value for the whole weight tensor.
	TensorGranularity Granularity = iota
	// GroupGranularity uses one value per group.
	GroupGranularity
	// OutChannelGranularity uses one value per output channel.
	OutChannelGranularity
)

func (g Granularity) String() string {
	switch g {
	case TensorGranularity:
		return "tensor"
	case GroupGranularity:
		return "group"
	case OutChannelGranularity:
		return "out_channel"
	default:
		return fmt.Sprintf("Granularity(%d)", int(g))
	}
}

// ParseGranularity parses "tensor", "group" or "out_channel".
func ParseGranularity(s string) (Granularity, error) {
	for _, g := range []Granularity{TensorGranularity, GroupGranularity, OutChannelGranularity} {
		if g.String() == s {
			return g, nil
		}
	}
	return 0, fmt.Errorf("unknown granularity %q", s)
}

// Count returns how many zero points or multipliers p needs at this
// granularity.
func (g Granularity) Count(p ConvParams) int {
	switch g {
	case GroupGranularity:
		return p.G
	case OutChannelGranularity:
		return p.OC
	default:
		return 1
	}
}

func (g Granularity) valid() bool {
	return g >= TensorGranularity && g <= OutChannelGranularity
}

// OutputProcessor is the output pipeline a convolution finishes through.
// It is implemented by *ReQuantizeOutput (uint8) and *AccumulatorOutput
// (int32).
//
// A processor holds per-call row offsets, so a single instance must not be
// shared by concurrently running threads: give each thread its own Fork.
type OutputProcessor[T kernels.Output] interface {
	kernels.OutputPipeline[T]

	// ActivationZeroPoint is the activation zero point the kernels pad with.
	ActivationZeroPoint() int32

	// BSymmetric reports whether every weight zero point is zero, in which
	// case row offsets need not be computed.
	BSymmetric() bool

	// Fork returns an independent copy sharing the read-only metadata.
	Fork() OutputProcessor[T]

	bind(p ConvParams) error
	settings() (Granularity, bool)
}

// QuantParams is the quantization metadata shared by both output
// processors.
//
// For output channel j in group g with quantization index q (0, g or j
// depending on Granularity) and reduction-window activation sum rowOff, the
// corrected accumulator is
//
//	acc - AZeroPoint*ColOffsets[j] - BZeroPoints[q]*rowOff + Bias[j]
//
// ColOffsets[j] must be sum_k (w[j,k] - BZeroPoints[q]); see ColumnOffsets.
type QuantParams struct {
	AZeroPoint  int32
	BZeroPoints []int32 // nil means all zero
	ColOffsets  []int32 // may be nil when AZeroPoint is 0
	Bias        []int32 // optional
	Granularity Granularity
	ReLUFused   bool

	rowOffsets []int32
	groups     int
	ocPerGroup int
}

// SetRowOffsets registers the row offsets for the next processed block.
func (q *QuantParams) SetRowOffsets(rowOffsets []int32) { q.rowOffsets = rowOffsets }

// ActivationZeroPoint returns AZeroPoint.
func (q *QuantParams) ActivationZeroPoint() int32 { return q.AZeroPoint }

// BSymmetric reports whether every weight zero point is zero.
func (q *QuantParams) BSymmetric() bool {
	return lo.EveryBy(q.BZeroPoints, func(z int32) bool { return z == 0 })
}

func (q *QuantParams) settings() (Granularity, bool) { return q.Granularity, q.ReLUFused }

func (q *QuantParams) bind(p ConvParams) error {
	if !q.Granularity.valid() {
		return errors.Wrapf(ErrInvalidArgument, "granularity %s", q.Granularity)
	}
	if q.AZeroPoint < 0 || q.AZeroPoint > math.MaxUint8 {
		return errors.Wrapf(ErrInvalidArgument, "activation zero point %d out of uint8 range", q.AZeroPoint)
	}
	n := q.Granularity.Count(p)
	if q.BZeroPoints != nil && len(q.BZeroPoints) != n {
		return errors.Wrapf(ErrInvalidArgument, "%d weight zero points for %s granularity, want %d",
			len(q.BZeroPoints), q.Granularity, n)
	}
	if _, bad, found := lo.FindIndexOf(q.BZeroPoints, func(z int32) bool {
		return z < math.MinInt8 || z > math.MaxInt8
	}); found {
		return errors.Wrapf(ErrInvalidArgument, "weight zero point %d at index %d out of int8 range", q.BZeroPoints[bad], bad)
	}
	if q.ColOffsets == nil && q.AZeroPoint != 0 {
		return errors.Wrap(ErrInvalidArgument, "column offsets are required when the activation zero point is non-zero")
	}
	if q.ColOffsets != nil && len(q.ColOffsets) < p.OC {
		return errors.Wrapf(ErrInvalidArgument, "%d column offsets for %d output channels", len(q.ColOffsets), p.OC)
	}
	if q.Bias != nil && len(q.Bias) < p.OC {
		return errors.Wrapf(ErrInvalidArgument, "%d bias values for %d output channels", len(q.Bias), p.OC)
	}
	q.groups = p.G
	q.ocPerGroup = p.OCPerGroup()
	return nil
}

// quantIndex maps output channel j to its zero point / multiplier index.
func (q *QuantParams) quantIndex(j int) int {
	switch q.Granularity {
	case GroupGranularity:
		return j / q.ocPerGroup
	case OutChannelGranularity:
		return j
	default:
		return 0
	}
}

// corrected applies zero-point correction and bias to one accumulator at
// block-relative row r and global column j.
func (q *QuantParams) corrected(acc int32, r, j int) int32 {
	v := acc
	if q.ColOffsets != nil {
		v -= q.AZeroPoint * q.ColOffsets[j]
	}
	if q.BZeroPoints != nil {
		if bzp := q.BZeroPoints[q.quantIndex(j)]; bzp != 0 {
			v -= bzp * q.rowOffsets[r*q.groups+j/q.ocPerGroup]
		}
	}
	if q.Bias != nil {
		v += q.Bias[j]
	}
	return v
}

// ReQuantizeOutput corrects the accumulators and requantizes them to uint8:
// round(corrected * CMultipliers[q]) + CZeroPoint, clamped to [0, 255] or,
// with ReLUFused, to [CZeroPoint, 255].
type ReQuantizeOutput struct {
	QuantParams
	CMultipliers []float32
	CZeroPoint   int32
}

// Process implements kernels.OutputPipeline.
func (o *ReQuantizeOutput) Process(out []uint8, acc []int32, blk kernels.Block, ldOut, ldAcc int) {
	for r := range blk.NumRows {
		outRow := out[r*ldOut : r*ldOut+blk.NumCols]
		accRow := acc[r*ldAcc : r*ldAcc+blk.NumCols]
		for c, a := range accRow {
			j := blk.ColStart + c
			v := o.corrected(a, r, j)
			outRow[c] = Requantize(v, o.CMultipliers[o.quantIndex(j)], o.CZeroPoint, o.ReLUFused)
		}
	}
}

// Fork implements OutputProcessor.
func (o *ReQuantizeOutput) Fork() OutputProcessor[uint8] {
	c := *o
	c.rowOffsets = nil
	return &c
}

func (o *ReQuantizeOutput) bind(p ConvParams) error {
	if err := o.QuantParams.bind(p); err != nil {
		return err
	}
	if n := o.Granularity.Count(p); len(o.CMultipliers) != n {
		return errors.Wrapf(ErrInvalidArgument, "%d multipliers for %s granularity, want %d",
			len(o.CMultipliers), o.Granularity, n)
	}
	if o.CZeroPoint < 0 || o.CZeroPoint > math.MaxUint8 {
		return errors.Wrapf(ErrInvalidArgument, "output zero point %d out of uint8 range", o.CZeroPoint)
	}
	return nil
}

// AccumulatorOutput writes the corrected int32 accumulators. With ReLUFused
// negative values become 0.
type AccumulatorOutput struct {
	QuantParams
}

// Process implements kernels.OutputPipeline.
func (o *AccumulatorOutput) Process(out []int32, acc []int32, blk kernels.Block, ldOut, ldAcc int) {
	for r := range blk.NumRows {
		outRow := out[r*ldOut : r*ldOut+blk.NumCols]
		accRow := acc[r*ldAcc : r*ldAcc+blk.NumCols]
		for c, a := range accRow {
			v := o.corrected(a, r, blk.ColStart+c)
			if o.ReLUFused {
				v = max(v, 0)
			}
			outRow[c] = v
		}
	}
}

// Fork implements OutputProcessor.
func (o *AccumulatorOutput) Fork() OutputProcessor[int32] {
	c := *o
	c.rowOffsets = nil
	return &c
}

// Requantize scales a corrected accumulator to uint8. Rounding is half to
// even, matching the hardware round-to-nearest mode.
func Requantize(v int32, multiplier float32, zeroPoint int32, reluFused bool) uint8 {
	scaled := math.RoundToEven(float64(float32(v)*multiplier)) + float64(zeroPoint)
	lower := 0.0
	if reluFused {
		lower = float64(zeroPoint)
	}
	return uint8(min(max(scaled, lower), math.MaxUint8))
}

// ColumnOffsets returns sum_k (w[j,k] - bZeroPoints[q]) for every output
// channel j of KRSC weights, ready for QuantParams.ColOffsets. A nil
// bZeroPoints is treated as all zero.
func ColumnOffsets(p ConvParams, weights []int8, bZeroPoints []int32, gran Granularity) ([]int32, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(weights) != p.WeightSize() {
		return nil, errors.Wrapf(ErrInvalidArgument, "%d weights, want %d", len(weights), p.WeightSize())
	}
	if bZeroPoints != nil && len(bZeroPoints) != gran.Count(p) {
		return nil, errors.Wrapf(ErrInvalidArgument, "%d weight zero points for %s granularity, want %d",
			len(bZeroPoints), gran, gran.Count(p))
	}
	k := p.KernelProd() * p.ICPerGroup()
	ocg := p.OCPerGroup()
	out := make([]int32, p.OC)
	for j := range p.OC {
		var bzp int32
		if bZeroPoints != nil {
			switch gran {
			case GroupGranularity:
				bzp = bZeroPoints[j/ocg]
			case OutChannelGranularity:
				bzp = bZeroPoints[j]
			default:
				bzp = bZeroPoints[0]
			}
		}
		var sum int32
		for _, w := range weights[j*k : (j+1)*k] {
			sum += int32(w) - bzp
		}
		out[j] = sum
	}
	return out, nil
}
