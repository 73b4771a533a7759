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
	"os"
	"strconv"

	"github.com/ajroetker/go-thrustx/thrustx"
)

// DefaultBlockBytes is the amount of input one block of the host reducer
// covers when THRUSTX_BLOCK_LEN is not set. It keeps a block within L1.
const DefaultBlockBytes = 16 << 10

// Config holds the host device settings read from the environment.
type Config struct {
	// NumWorkers is the size of the shared worker pool. 0 means GOMAXPROCS.
	NumWorkers int

	// BlockLen is the number of elements per reduction block. 0 means
	// DefaultBlockBytes worth of elements.
	BlockLen int

	// ScratchLimit caps the bytes the shared allocator hands out at once.
	// 0 means no limit.
	ScratchLimit int64
}

// ConfigFromEnv reads THRUSTX_NUM_WORKERS, THRUSTX_BLOCK_LEN and
// THRUSTX_SCRATCH_LIMIT. Unset, malformed or negative values keep their
// defaults; malformed values are logged.
func ConfigFromEnv() Config {
	return Config{
		NumWorkers:   int(envInt("THRUSTX_NUM_WORKERS")),
		BlockLen:     int(envInt("THRUSTX_BLOCK_LEN")),
		ScratchLimit: envInt("THRUSTX_SCRATCH_LIMIT"),
	}
}

func envInt(name string) int64 {
	val := os.Getenv(name)
	if val == "" {
		return 0
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil || n < 0 {
		thrustx.Logger().Warn("ignoring malformed environment variable", "name", name, "value", val)
		return 0
	}
	return n
}
