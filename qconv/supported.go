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

	"github.com/pkg/errors"

	"github.com/ajroetker/go-qconv/qconv/kernels"
)

// OutputKind is the element type written by a convolution.
type OutputKind int

const (
	// OutputUint8 is requantized uint8 output (ReQuantizeOutput).
	OutputUint8 OutputKind = iota
	// OutputInt32 is raw int32 output (AccumulatorOutput).
	OutputInt32
	outputUnknown
)

func (k OutputKind) String() string {
	switch k {
	case OutputUint8:
		return "uint8"
	case OutputInt32:
		return "int32"
	default:
		return "unknown"
	}
}

func outputKindOf[T kernels.Output]() OutputKind {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return OutputUint8
	case int32:
		return OutputInt32
	}
	return outputUnknown
}

// Config is one combination of template-level options a convolution can be
// run with.
type Config struct {
	Acc         AccumulatorKind
	SpatialDim  int
	Granularity Granularity
	ReLUFused   bool
	Output      OutputKind
}

func (c Config) String() string {
	return fmt.Sprintf("acc=%s dim=%dD granularity=%s relu=%t output=%s",
		c.Acc, c.SpatialDim, c.Granularity, c.ReLUFused, c.Output)
}

var supportedConfigs = buildSupportedConfigs()

// buildSupportedConfigs enumerates every int32-accumulator combination.
// Strategy-specific restrictions (3D depthwise needs uint8 output, groupwise
// is 2D only) are checked by the executors.
func buildSupportedConfigs() map[Config]struct{} {
	m := make(map[Config]struct{})
	for _, dim := range []int{2, 3} {
		for _, gran := range []Granularity{TensorGranularity, GroupGranularity, OutChannelGranularity} {
			for _, relu := range []bool{false, true} {
				for _, out := range []OutputKind{OutputUint8, OutputInt32} {
					m[Config{Acc: AccInt32, SpatialDim: dim, Granularity: gran, ReLUFused: relu, Output: out}] = struct{}{}
				}
			}
		}
	}
	return m
}

// IsSupported reports whether Run has a kernel instantiation for c.
func IsSupported(c Config) bool {
	_, ok := supportedConfigs[c]
	return ok
}

func checkSupported(c Config) error {
	if !IsSupported(c) {
		return errors.Wrapf(ErrUnsupportedConfiguration, "%s", c)
	}
	return nil
}
