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

// PackedMatMul multiplies packed im2col activations by packed weights for
// the rows owned by threadID, then hands each finished block to proc.
//
// Loop structure (GEBP) per row panel:
//
//	for ic := rowStart; ic < rowEnd; ic += Mc:     // A row panels (L2)
//	  for g := range G:                            // independent group matmuls
//	    for pc := 0; pc < K; pc += Kc:             // K blocking (L1)
//	      PackA(A_g[ic:ic+Mc, pc:pc+Kc])
//	      for jc := 0; jc < N; jc += Nc:           // column blocking
//	        for jr, ir: Mr × Nr micro-kernel
//	    proc.Process(C[ic:ic+Mc, g*N:(g+1)*N])
//
// int32 accumulators live in outBuffer (ld = ldOut). ldOut is the total
// output channel count.
func PackedMatMul[T Output](
	packA *PackAWithIm2Col,
	packB *PackedBMatrix,
	out []T,
	outBuffer []int32,
	ldOut int,
	proc OutputPipeline[T],
	threadID, numThreads int,
) {
	m, k := packA.NumRows(), packA.NumCols()
	if k != packB.K || packA.Groups() != packB.Groups {
		panic("packedmatmul: packed A and packed B disagree on shape")
	}
	if ldOut < packB.Groups*packB.N {
		panic("packedmatmul: ldOut smaller than output channels")
	}
	if len(outBuffer) < m*ldOut || len(out) < m*ldOut {
		panic("packedmatmul: output slice too short")
	}

	bf := packA.BlockingFactors()
	mr, nr := bf.Mr, packB.Nr
	nc := max(nr, bf.Nc/nr*nr)
	n := packB.N

	rowStart, rowEnd := Partition1D(threadID, numThreads, m)
	for ic := rowStart; ic < rowEnd; ic += bf.Mc {
		rows := min(bf.Mc, rowEnd-ic)
		for g := range packB.Groups {
			colBase := g * n
			c := outBuffer[ic*ldOut+colBase:]
			for r := range rows {
				clear(c[r*ldOut : r*ldOut+n])
			}
			for pc := 0; pc < k; pc += bf.Kc {
				kc := min(bf.Kc, k-pc)
				packedA := packA.Pack(ic, rows, pc, kc, g)
				for jc := 0; jc < n; jc += nc {
					cols := min(nc, n-jc)
					gebp(packedA, packB, g, c[jc:], ldOut, rows, cols, jc, pc, kc, mr, nr)
				}
			}
			off := ic*ldOut + colBase
			blk := Block{RowStart: ic, NumRows: rows, ColStart: colBase, NumCols: n}
			proc.Process(out[off:], outBuffer[off:], blk, ldOut, ldOut)
		}
	}
}

// gebp performs C[0:rows, 0:cols] += packedA * packedB for one K block.
// c is positioned at column jc of the current group.
func gebp(packedA []uint8, packB *PackedBMatrix, g int, c []int32, ldc, rows, cols, jc, pc, kc, mr, nr int) {
	for j := 0; j < cols; j += nr {
		activeCols := min(nr, cols-j)
		bPanel := packB.Panel(g, (jc+j)/nr)[pc*nr:]
		for i := 0; i < rows; i += mr {
			activeRows := min(mr, rows-i)
			aPanel := packedA[(i/mr)*kc*mr:]
			if activeRows == mr && activeCols == nr {
				microKernel(aPanel, bPanel, c[i*ldc+j:], ldc, kc, mr, nr)
			} else {
				microKernelPartial(aPanel, bPanel, c[i*ldc+j:], ldc, kc, mr, nr, activeRows, activeCols)
			}
		}
	}
}

// microKernel accumulates a full Mr × Nr tile. Accumulators stay in a local
// tile for the whole K block and are written back once.
func microKernel(packedA []uint8, packedB []int8, c []int32, ldc, kc, mr, nr int) {
	var tile [maxTile]int32
	var acc []int32
	if mr*nr <= maxTile {
		acc = tile[:mr*nr]
	} else {
		acc = make([]int32, mr*nr)
	}
	for p := range kc {
		a := packedA[p*mr : (p+1)*mr]
		b := packedB[p*nr : (p+1)*nr]
		for r, av := range a {
			row := acc[r*nr : (r+1)*nr]
			va := int32(av)
			for col, bv := range b {
				row[col] += va * int32(bv)
			}
		}
	}
	for r := range mr {
		dst := c[r*ldc : r*ldc+nr]
		for col, v := range acc[r*nr : (r+1)*nr] {
			dst[col] += v
		}
	}
}

// microKernelPartial handles edge tiles with fewer than Mr rows or Nr columns.
func microKernelPartial(packedA []uint8, packedB []int8, c []int32, ldc, kc, mr, nr, activeRows, activeCols int) {
	for r := range activeRows {
		dst := c[r*ldc : r*ldc+activeCols]
		for p := range kc {
			va := int32(packedA[p*mr+r])
			b := packedB[p*nr : p*nr+activeCols]
			for col, bv := range b {
				dst[col] += va * int32(bv)
			}
		}
	}
}

// maxTile bounds the stack tile used by microKernel (AVX-512 uses 14 × 32).
const maxTile = 16 * 32
