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

// Package qconv runs quantized (uint8 activation × int8 weight) 2D and 3D
// convolutions by dispatching each one to the fastest applicable kernel
// family:
//
//   - Depthwise: G == IC == OC, 3×3(×3) filters, stride 1 or 2, padding 1.
//   - Groupwise: 2D, 4, 8 or 16 channels per group, 3×3, stride 1.
//   - Im2col: everything else, lowered to a packed matmul.
//
// Weights are packed once per convolution with PackWeights, which applies
// the same Classify rule as Run. Run refuses weights packed for a different
// strategy or shape with ErrIncompatibleWeights.
//
// Example:
//
//	p := convparam.New2D(1, 32, 32, [2]int{56, 56}, 32,
//	    [2]int{3, 3}, [2]int{1, 1}, [2]int{1, 1})
//	pw, err := qconv.PackWeights(p, qconv.AccInt32, weights, nil)
//	if err != nil {
//	    return err
//	}
//	proc := &qconv.ReQuantizeOutput{
//	    QuantParams: qconv.QuantParams{AZeroPoint: 128, ColOffsets: colOffsets},
//	    CMultipliers: []float32{0.01},
//	    CZeroPoint:   10,
//	}
//	out := make([]uint8, p.OutputSize())
//	err = qconv.Run(p, activations, pw, out, make([]int32, p.OutputSize()), proc, 0, 1, nil)
//
// Multi-threaded callers either invoke Run from each of their threads with
// a distinct threadID and a forked processor, or use RunParallel with a
// workerpool.Pool.
package qconv
