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

package convparam

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutDim(t *testing.T) {
	tests := []struct {
		name string
		p    ConvParams
		want []int
	}{
		{"same_padding", New2D(1, 16, 16, [2]int{8, 8}, 16, [2]int{3, 3}, [2]int{1, 1}, [2]int{1, 1}), []int{8, 8}},
		{"stride_2", New2D(1, 16, 16, [2]int{8, 7}, 16, [2]int{3, 3}, [2]int{2, 2}, [2]int{1, 1}), []int{4, 4}},
		{"valid", New2D(2, 3, 4, [2]int{10, 10}, 1, [2]int{5, 5}, [2]int{1, 1}, [2]int{0, 0}), []int{6, 6}},
		{"3d", New3D(1, 8, 8, [3]int{4, 6, 6}, 8, [3]int{3, 3, 3}, [3]int{1, 2, 2}, [3]int{1, 1, 1}), []int{4, 3, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.p.Validate())
			assert.Equal(t, tt.want, tt.p.OutDim())
		})
	}
}

func TestOutDimDilation(t *testing.T) {
	p := New2D(1, 4, 4, [2]int{9, 9}, 1, [2]int{3, 3}, [2]int{1, 1}, [2]int{0, 0})
	p.Dilation = []int{2, 3}
	require.NoError(t, p.Validate())
	// effective extents 5 and 7
	assert.Equal(t, []int{5, 3}, p.OutDim())
}

func TestValidate(t *testing.T) {
	base := func() ConvParams {
		return New2D(1, 16, 32, [2]int{8, 8}, 4, [2]int{3, 3}, [2]int{1, 1}, [2]int{1, 1})
	}
	tests := []struct {
		name   string
		mutate func(p *ConvParams)
		want   error
	}{
		{"dim_1", func(p *ConvParams) { p.SpatialDim = 1 }, ErrInvalidDimensionality},
		{"dim_4", func(p *ConvParams) { p.SpatialDim = 4 }, ErrInvalidDimensionality},
		{"ic_not_divisible", func(p *ConvParams) { p.IC = 18 }, ErrInvalidParams},
		{"oc_not_divisible", func(p *ConvParams) { p.OC = 30 }, ErrInvalidParams},
		{"zero_groups", func(p *ConvParams) { p.G = 0 }, ErrInvalidParams},
		{"short_kernel", func(p *ConvParams) { p.K = []int{3} }, ErrInvalidParams},
		{"zero_stride", func(p *ConvParams) { p.Stride = []int{0, 1} }, ErrInvalidParams},
		{"negative_pad", func(p *ConvParams) { p.Pad = []int{-1, 1} }, ErrInvalidParams},
		{"empty_output", func(p *ConvParams) { p.K = []int{11, 11} }, ErrInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base()
			tt.mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
	require.NoError(t, base().Validate())
}

func TestDerivedSizes(t *testing.T) {
	p := New3D(2, 8, 16, [3]int{4, 5, 6}, 2, [3]int{3, 3, 3}, [3]int{1, 1, 1}, [3]int{1, 1, 1})
	require.NoError(t, p.Validate())
	assert.Equal(t, 27, p.KernelProd())
	assert.Equal(t, 4, p.ICPerGroup())
	assert.Equal(t, 8, p.OCPerGroup())
	assert.Equal(t, 2*120*8, p.ActivationSize())
	assert.Equal(t, 2*120*16, p.OutputSize())
	assert.Equal(t, 16*27*4, p.WeightSize())
}

func TestSameWeightShapeAndClone(t *testing.T) {
	p := New2D(1, 16, 16, [2]int{8, 8}, 16, [2]int{3, 3}, [2]int{1, 1}, [2]int{1, 1})
	q := p.Clone()
	q.Stride[0] = 2
	q.InDim[1] = 20
	assert.Equal(t, 1, p.Stride[0], "Clone must not alias")
	assert.True(t, p.SameWeightShape(q))

	q.K = []int{5, 5}
	assert.False(t, p.SameWeightShape(q))
}
