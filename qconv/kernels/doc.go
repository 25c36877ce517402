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

// Package kernels provides the int8 convolution kernels behind the qconv
// dispatcher: depthwise 2D/3D, groupwise 2D, and im2col lowering onto a
// blocked int8 × int8 → int32 matmul.
//
// Activations are uint8, weights int8, accumulation int32. Kernels only
// produce raw accumulators and per-row activation sums (row offsets); zero
// point correction, bias and requantization belong to the OutputPipeline
// the caller supplies.
//
// Every kernel takes a (threadID, numThreads) pair and writes only the
// output rows Partition1D assigns to that thread, so calling it once per
// thread id yields the same result as a single-threaded call.
//
// Kernels panic on shape mismatches. The qconv package validates all
// inputs before calling them.
package kernels
