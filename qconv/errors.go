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

	"github.com/ajroetker/go-qconv/qconv/convparam"
)

var (
	// ErrIncompatibleWeights means the packed weights were prepared for a
	// different execution strategy or weight shape than the call's parameters
	// select. Returned before any output is written.
	ErrIncompatibleWeights = errors.New("qconv: prepacked weights can't be used with these convolution parameters")

	// ErrUnsupportedConfiguration means the combination of accumulator,
	// dimensionality, quantization granularity, fusion and output type has no
	// kernel, e.g. 3D groupwise or 3D depthwise with int32 output.
	ErrUnsupportedConfiguration = errors.New("qconv: unsupported configuration")

	// ErrInvalidArgument covers thread ids, nil arguments, short buffers and
	// malformed quantization metadata.
	ErrInvalidArgument = errors.New("qconv: invalid argument")

	// ErrInvalidDimensionality is convparam.ErrInvalidDimensionality.
	ErrInvalidDimensionality = convparam.ErrInvalidDimensionality

	// ErrInvalidParams is convparam.ErrInvalidParams.
	ErrInvalidParams = convparam.ErrInvalidParams
)
