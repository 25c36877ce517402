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

import "fmt"

// AccumulatorKind is the integer width the matmul accumulates in.
type AccumulatorKind int

const (
	// AccInt32 accumulates in int32. Every path supports it.
	AccInt32 AccumulatorKind = iota

	// AccInt16 accumulates in int16. It never takes the depthwise fast path
	// and has no execution kernels here; weights can still be packed and
	// classified for it.
	AccInt16
)

func (a AccumulatorKind) String() string {
	switch a {
	case AccInt32:
		return "int32"
	case AccInt16:
		return "int16"
	default:
		return fmt.Sprintf("AccumulatorKind(%d)", int(a))
	}
}

func (a AccumulatorKind) valid() bool {
	return a == AccInt32 || a == AccInt16
}

// ParseAccumulatorKind parses "int32" or "int16".
func ParseAccumulatorKind(s string) (AccumulatorKind, error) {
	switch s {
	case "int32", "32":
		return AccInt32, nil
	case "int16", "16":
		return AccInt16, nil
	}
	return 0, fmt.Errorf("unknown accumulator kind %q", s)
}
