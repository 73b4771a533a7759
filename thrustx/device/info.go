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

package device

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/ajroetker/go-highway/hwy"
	"golang.org/x/sys/cpu"
)

// DeviceInfo describes the host the kernels run on.
type DeviceInfo struct {
	Arch        string
	SIMD        string // go-highway dispatch target, e.g. "avx2", "neon", "scalar"
	VectorBytes int
	CacheLine   int
	NumWorkers  int
	Features    []string
}

func (d DeviceInfo) String() string {
	return fmt.Sprintf("%s/%s (%d-byte vectors, %d-byte cache lines, %d workers) [%s]",
		d.Arch, d.SIMD, d.VectorBytes, d.CacheLine, d.NumWorkers, strings.Join(d.Features, " "))
}

// Info reports the host device configuration.
func Info() DeviceInfo {
	return DeviceInfo{
		Arch:        runtime.GOARCH,
		SIMD:        hwy.CurrentName(),
		VectorBytes: hwy.CurrentWidth(),
		CacheLine:   CacheLine,
		NumWorkers:  sharedPool().NumWorkers(),
		Features:    cpuFeatures(),
	}
}

func cpuFeatures() []string {
	var feats []string
	add := func(ok bool, name string) {
		if ok {
			feats = append(feats, name)
		}
	}
	switch runtime.GOARCH {
	case "amd64", "386":
		add(cpu.X86.HasSSE41, "sse4.1")
		add(cpu.X86.HasAVX, "avx")
		add(cpu.X86.HasAVX2, "avx2")
		add(cpu.X86.HasFMA, "fma")
		add(cpu.X86.HasAVX512F, "avx512f")
	case "arm64":
		add(cpu.ARM64.HasASIMD, "asimd")
		add(cpu.ARM64.HasFPHP, "fphp")
		add(cpu.ARM64.HasSVE, "sve")
	}
	return feats
}
