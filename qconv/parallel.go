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
	"github.com/ajroetker/go-qconv/qconv/workerpool"
)

// RunParallel runs the whole convolution on pool, one Run per worker, each
// with its own Fork of proc. A nil pool runs on the calling goroutine.
//
// Argument validation is identical across threads, so either every thread
// fails with the same error or none does; the first error is returned.
func RunParallel[T kernels.Output](
	pool *workerpool.Pool,
	p ConvParams,
	activations []uint8,
	pw *PackedWeights,
	out []T,
	outBuffer []int32,
	proc OutputProcessor[T],
	bf *BlockingFactors,
) error {
	if proc == nil {
		return errors.Wrap(ErrInvalidArgument, "nil output processor")
	}
	if pool == nil {
		return Run(p, activations, pw, out, outBuffer, proc, 0, 1, bf)
	}

	numThreads := pool.NumWorkers()
	errs := make([]error, numThreads)
	pool.RunThreads(numThreads, func(threadID int) {
		errs[threadID] = Run(p, activations, pw, out, outBuffer, proc.Fork(), threadID, numThreads, bf)
	})
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
