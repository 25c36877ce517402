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

// Run executes the share of the convolution p owned by threadID out of
// numThreads, reading NHWC (NTHWC) activations and writing NHWC output.
//
// Every thread must call Run with identical arguments except threadID; the
// threads write disjoint parts of out and outBuffer. proc must not be shared
// between concurrent threads (see OutputProcessor.Fork and RunParallel).
//
// outBuffer holds int32 accumulators for the groupwise and im2col paths and
// must have p.OutputSize() elements there; the depthwise path ignores it.
// bf tunes the im2col matmul; nil selects DefaultBlockingFactors.
//
// Errors are returned before any output is written:
// ErrIncompatibleWeights when pw was packed for a different strategy or
// weight shape, ErrUnsupportedConfiguration when no kernel exists for the
// combination, and ErrInvalidParams, ErrInvalidDimensionality or
// ErrInvalidArgument for malformed arguments.
func Run[T kernels.Output](
	p ConvParams,
	activations []uint8,
	pw *PackedWeights,
	out []T,
	outBuffer []int32,
	proc OutputProcessor[T],
	threadID, numThreads int,
	bf *BlockingFactors,
) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if numThreads <= 0 || threadID < 0 || threadID >= numThreads {
		return errors.Wrapf(ErrInvalidArgument, "thread %d of %d", threadID, numThreads)
	}
	if pw == nil || proc == nil {
		return errors.Wrap(ErrInvalidArgument, "nil packed weights or output processor")
	}
	if !pw.IsPackingCompliant(p) {
		return errors.Wrapf(ErrIncompatibleWeights, "weights packed as %s for %s, called with %s",
			pw.Strategy(), pw.params, p)
	}

	factors, err := kernels.ResolveBlockingFactors(bf)
	if err != nil {
		return errors.Wrap(err, "qconv")
	}
	if err := proc.bind(p); err != nil {
		return err
	}
	gran, relu := proc.settings()
	cfg := Config{
		Acc:         pw.AccKind(),
		SpatialDim:  p.SpatialDim,
		Granularity: gran,
		ReLUFused:   relu,
		Output:      outputKindOf[T](),
	}
	if err := checkSupported(cfg); err != nil {
		return err
	}

	strategy := Classify(p, pw.AccKind())
	if err := checkBuffers(p, strategy, activations, len(out), outBuffer); err != nil {
		return err
	}

	switch strategy {
	case Depthwise:
		return runDepthwise(p, activations, pw, out, proc, threadID, numThreads)
	case Groupwise:
		return runGroupwise(p, activations, pw, out, outBuffer, proc, threadID, numThreads)
	default:
		return runIm2col(p, activations, pw, out, outBuffer, proc, threadID, numThreads, factors)
	}
}

func checkBuffers(p ConvParams, s ExecutionStrategy, activations []uint8, outLen int, outBuffer []int32) error {
	if len(activations) < p.ActivationSize() {
		return errors.Wrapf(ErrInvalidArgument, "%d activations for %s, want %d", len(activations), p, p.ActivationSize())
	}
	if outLen < p.OutputSize() {
		return errors.Wrapf(ErrInvalidArgument, "output holds %d values, want %d", outLen, p.OutputSize())
	}
	if s != Depthwise && len(outBuffer) < p.OutputSize() {
		return errors.Wrapf(ErrInvalidArgument, "%s needs an accumulator buffer of %d, got %d",
			s, p.OutputSize(), len(outBuffer))
	}
	return nil
}
