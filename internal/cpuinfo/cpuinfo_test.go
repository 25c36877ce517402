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

package cpuinfo

import (
	"runtime"
	"testing"
)

func TestLevelSelection(t *testing.T) {
	tests := []struct {
		name string
		f    Features
		want Level
	}{
		{"none", Features{}, LevelScalar},
		{"avx2", Features{HasAVX2: true, HasFMA: true}, LevelAVX2},
		{"avx512_without_bw", Features{HasAVX2: true, HasAVX512F: true}, LevelAVX2},
		{"avx512", Features{HasAVX2: true, HasAVX512F: true, HasAVX512BW: true}, LevelAVX512},
		{"neon", Features{HasASIMD: true}, LevelNEON},
		{"disabled", Features{HasAVX2: true, NoSIMD: true}, LevelScalar},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.f.Level(); got != tt.want {
				t.Errorf("Level() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNoSimdEnv(t *testing.T) {
	for val, want := range map[string]bool{"": false, "1": true, "true": true, "0": false, "false": false, "yes": true} {
		t.Setenv("QCONV_NO_SIMD", val)
		if got := NoSimdEnv(); got != want {
			t.Errorf("QCONV_NO_SIMD=%q: NoSimdEnv() = %v, want %v", val, got, want)
		}
	}
}

func TestDetect(t *testing.T) {
	t.Setenv("QCONV_NO_SIMD", "1")
	f := Detect()
	if f.Arch != runtime.GOARCH {
		t.Errorf("Arch = %s, want %s", f.Arch, runtime.GOARCH)
	}
	if f.Level() != LevelScalar {
		t.Errorf("Level() = %s with QCONV_NO_SIMD set, want scalar", f.Level())
	}
}
