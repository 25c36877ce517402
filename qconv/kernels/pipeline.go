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

package kernels

// Output is the element type a kernel writes: requantized uint8 or raw int32.
type Output interface {
	~uint8 | ~int32
}

// Block is a rectangle of the output matrix, rows are output pixels and
// columns are output channels.
type Block struct {
	RowStart int
	NumRows  int
	ColStart int
	NumCols  int
}

// OutputPipeline turns int32 accumulators into output values.
//
// Kernels call Process once per finished block. out and acc are positioned
// at the block origin: element (r, c) of the block lives at out[r*ldOut+c]
// and acc[r*ldAcc+c], and corresponds to global row blk.RowStart+r and
// column blk.ColStart+c.
//
// Row offsets are registered with SetRowOffsets before the block is
// processed. They are indexed by block-relative row: rowOffsets[r*G+g] holds
// the activation sum of row r over the reduction window of group g.
type OutputPipeline[T Output] interface {
	Process(out []T, acc []int32, blk Block, ldOut, ldAcc int)
	SetRowOffsets(rowOffsets []int32)
}
