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

package main

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/pflag"

	"github.com/ajroetker/go-qconv/qconv"
	"github.com/ajroetker/go-qconv/qconv/convparam"
)

// convFlags are the command-line fields of a convolution. Per-axis flags
// left empty default to a value repeated over every spatial axis.
type convFlags struct {
	dim      int
	mb       int
	ic       int
	oc       int
	groups   int
	inDim    []int
	kernel   []int
	stride   []int
	dilation []int
	pad      []int
	acc      string
}

func (f *convFlags) register(fs *pflag.FlagSet) {
	fs.IntVar(&f.dim, "dim", 2, "Spatial dimensionality (2 or 3)")
	fs.IntVar(&f.mb, "mb", 1, "Batch size")
	fs.IntVar(&f.ic, "ic", 32, "Input channels")
	fs.IntVar(&f.oc, "oc", 32, "Output channels")
	fs.IntVarP(&f.groups, "groups", "g", 1, "Number of groups")
	fs.IntSliceVar(&f.inDim, "in", []int{56, 56}, "Input spatial dimensions, one per axis")
	fs.IntSliceVarP(&f.kernel, "kernel", "k", nil, "Filter size per axis (default 3)")
	fs.IntSliceVar(&f.stride, "stride", nil, "Stride per axis (default 1)")
	fs.IntSliceVar(&f.dilation, "dilation", nil, "Dilation per axis (default 1)")
	fs.IntSliceVar(&f.pad, "pad", nil, "Symmetric padding per axis (default 1)")
	fs.StringVar(&f.acc, "acc", "int32", "Accumulator kind (int32 or int16)")
}

// params builds and validates the convolution parameters.
func (f *convFlags) params() (qconv.ConvParams, qconv.AccumulatorKind, error) {
	acc, err := qconv.ParseAccumulatorKind(f.acc)
	if err != nil {
		return qconv.ConvParams{}, 0, err
	}
	axes := func(name string, v []int, def int) ([]int, error) {
		if len(v) == 0 {
			return lo.RepeatBy(f.dim, func(int) int { return def }), nil
		}
		if len(v) == 1 && f.dim > 1 {
			return lo.RepeatBy(f.dim, func(int) int { return v[0] }), nil
		}
		if len(v) != f.dim {
			return nil, fmt.Errorf("--%s has %d values for a %dD convolution", name, len(v), f.dim)
		}
		return v, nil
	}
	p := convparam.ConvParams{
		SpatialDim: f.dim,
		MB:         f.mb,
		IC:         f.ic,
		OC:         f.oc,
		G:          f.groups,
	}
	for _, axis := range []struct {
		name string
		in   []int
		def  int
		out  *[]int
	}{
		{"in", f.inDim, 0, &p.InDim},
		{"kernel", f.kernel, 3, &p.K},
		{"stride", f.stride, 1, &p.Stride},
		{"dilation", f.dilation, 1, &p.Dilation},
		{"pad", f.pad, 1, &p.Pad},
	} {
		if *axis.out, err = axes(axis.name, axis.in, axis.def); err != nil {
			return qconv.ConvParams{}, 0, err
		}
	}
	if err := p.Validate(); err != nil {
		return qconv.ConvParams{}, 0, err
	}
	return p, acc, nil
}
