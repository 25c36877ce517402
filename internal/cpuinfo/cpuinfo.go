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

// Package cpuinfo snapshots the CPU features that drive blocking-factor
// selection for the int8 convolution kernels.
package cpuinfo

import (
	"os"
	"runtime"
	"strconv"

	"golang.org/x/sys/cpu"
)

// Level is the instruction-set family the kernels are tuned for.
type Level int

const (
	// LevelScalar means no SIMD tuning, conservative blocking.
	LevelScalar Level = iota

	// LevelAVX2 is 256-bit x86 SIMD.
	LevelAVX2

	// LevelAVX512 is 512-bit x86 SIMD with byte/word support.
	LevelAVX512

	// LevelNEON is 128-bit ARM SIMD.
	LevelNEON
)

// String returns a human-readable name for the level.
func (l Level) String() string {
	switch l {
	case LevelScalar:
		return "scalar"
	case LevelAVX2:
		return "avx2"
	case LevelAVX512:
		return "avx512"
	case LevelNEON:
		return "neon"
	default:
		return "unknown"
	}
}

// Features is a snapshot of the int8-relevant CPU capabilities.
type Features struct {
	Arch   string
	NumCPU int

	// x86
	HasAVX2       bool
	HasFMA        bool
	HasAVX512F    bool
	HasAVX512BW   bool
	HasAVX512VNNI bool

	// arm64
	HasASIMD   bool
	HasASIMDDP bool // SDOT/UDOT
	HasSVE     bool

	// NoSIMD is set when QCONV_NO_SIMD disables SIMD tuning.
	NoSIMD bool
}

// Detect reads the current CPU features.
func Detect() Features {
	f := Features{
		Arch:   runtime.GOARCH,
		NumCPU: runtime.NumCPU(),
		NoSIMD: NoSimdEnv(),
	}
	switch runtime.GOARCH {
	case "amd64", "386":
		f.HasAVX2 = cpu.X86.HasAVX2
		f.HasFMA = cpu.X86.HasFMA
		f.HasAVX512F = cpu.X86.HasAVX512F
		f.HasAVX512BW = cpu.X86.HasAVX512BW
		f.HasAVX512VNNI = cpu.X86.HasAVX512VNNI
	case "arm64":
		f.HasASIMD = cpu.ARM64.HasASIMD
		f.HasASIMDDP = cpu.ARM64.HasASIMDDP
		f.HasSVE = cpu.ARM64.HasSVE
	}
	return f
}

// Level picks the tuning family for these features.
func (f Features) Level() Level {
	switch {
	case f.NoSIMD:
		return LevelScalar
	case f.HasAVX512F && f.HasAVX512BW:
		return LevelAVX512
	case f.HasAVX2:
		return LevelAVX2
	case f.HasASIMD:
		return LevelNEON
	default:
		return LevelScalar
	}
}

// NoSimdEnv checks the QCONV_NO_SIMD environment variable. Any non-empty
// value that does not parse as false disables SIMD tuning.
func NoSimdEnv() bool {
	val := os.Getenv("QCONV_NO_SIMD")
	if val == "" {
		return false
	}
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return true
}
