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

import (
	"github.com/pkg/errors"

	"github.com/ajroetker/go-qconv/internal/cpuinfo"
)

// ErrInvalidBlocking is returned by BlockingFactors.Validate.
var ErrInvalidBlocking = errors.New("kernels: invalid blocking factors")

// BlockingFactors are the tuning parameters of the packed int8 matmul used
// by the im2col path. They change speed, never results.
//
//   - Mr × Nr: micro-tile (register blocking)
//   - Kc: K-blocking, height of one packed A strip (L1)
//   - Mc: M-blocking, rows of one packed A panel (L2)
//   - Nc: N-blocking, columns swept per packed A panel (L3)
//
// Packed A layout: [ceil(Mc/Mr), Kc, Mr], K-first within micro-panels.
// Packed B layout: [G, ceil(N/Nr), K, Nr], fixed at weight-packing time.
type BlockingFactors struct {
	Mr int
	Nr int
	Kc int
	Mc int
	Nc int
}

// BlockingFactorsAVX512 returns blocking factors for AVX-512 with int32 accumulation.
// 14 rows × 32 int32 columns keeps 28 zmm accumulators live.
func BlockingFactorsAVX512() BlockingFactors {
	return BlockingFactors{
		Mr: 14,
		Nr: 32,
		Kc: 256, // 14 * 256 bytes uint8 strip
		Mc: 56,
		Nc: 128,
	}
}

// BlockingFactorsAVX2 returns blocking factors for AVX2 with int32 accumulation.
func BlockingFactorsAVX2() BlockingFactors {
	return BlockingFactors{
		Mr: 12,
		Nr: 8,
		Kc: 512,
		Mc: 120,
		Nc: 64,
	}
}

// BlockingFactorsNEON returns blocking factors for ARM NEON.
func BlockingFactorsNEON() BlockingFactors {
	return BlockingFactors{
		Mr: 8,
		Nr: 8,
		Kc: 256,
		Mc: 64,
		Nc: 64,
	}
}

// BlockingFactorsFallback returns conservative blocking factors.
func BlockingFactorsFallback() BlockingFactors {
	return BlockingFactors{
		Mr: 4,
		Nr: 4,
		Kc: 128,
		Mc: 32,
		Nc: 32,
	}
}

// BlockingFactorsFor returns the blocking factors tuned for a CPU level.
func BlockingFactorsFor(level cpuinfo.Level) BlockingFactors {
	switch level {
	case cpuinfo.LevelAVX512:
		return BlockingFactorsAVX512()
	case cpuinfo.LevelAVX2:
		return BlockingFactorsAVX2()
	case cpuinfo.LevelNEON:
		return BlockingFactorsNEON()
	default:
		return BlockingFactorsFallback()
	}
}

// DefaultBlockingFactors returns the blocking factors for the running CPU.
func DefaultBlockingFactors() BlockingFactors {
	return BlockingFactorsFor(cpuinfo.Detect().Level())
}

// ResolveBlockingFactors returns *bf when set, otherwise the CPU defaults.
// The zero value counts as unset.
func ResolveBlockingFactors(bf *BlockingFactors) (BlockingFactors, error) {
	if bf == nil || *bf == (BlockingFactors{}) {
		return DefaultBlockingFactors(), nil
	}
	if err := bf.Validate(); err != nil {
		return BlockingFactors{}, err
	}
	return *bf, nil
}

// Validate checks that the factors describe a consistent tiling.
func (bf BlockingFactors) Validate() error {
	if bf.Mr <= 0 || bf.Nr <= 0 || bf.Kc <= 0 || bf.Mc <= 0 || bf.Nc <= 0 {
		return errors.Wrapf(ErrInvalidBlocking, "all factors must be positive: %+v", bf)
	}
	if bf.Mc%bf.Mr != 0 {
		return errors.Wrapf(ErrInvalidBlocking, "Mc=%d is not a multiple of Mr=%d", bf.Mc, bf.Mr)
	}
	if bf.Nc%bf.Nr != 0 {
		return errors.Wrapf(ErrInvalidBlocking, "Nc=%d is not a multiple of Nr=%d", bf.Nc, bf.Nr)
	}
	return nil
}

// PackedASize returns the buffer size needed for one packed A panel.
func (bf BlockingFactors) PackedASize() int {
	numPanels := (bf.Mc + bf.Mr - 1) / bf.Mr
	return numPanels * bf.Mr * bf.Kc
}
