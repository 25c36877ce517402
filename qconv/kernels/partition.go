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

// Partition1D splits [0, total) into numThreads contiguous ranges of nearly
// equal size and returns the range owned by threadID. The ranges of all
// threads are disjoint and cover [0, total).
func Partition1D(threadID, numThreads, total int) (start, end int) {
	if numThreads <= 1 {
		return 0, total
	}
	base := total / numThreads
	rem := total % numThreads
	start = threadID*base + min(threadID, rem)
	end = start + base
	if threadID < rem {
		end++
	}
	return start, end
}
