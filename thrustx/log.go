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

package thrustx

import (
	"log/slog"
	"os"
	"strconv"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

func init() {
	if DebugEnv() {
		SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		return
	}
	SetLogger(nil)
}

// DebugEnv checks if the THRUSTX_DEBUG environment variable is set.
// Any non-empty value that does not parse as false enables debug logging.
func DebugEnv() bool {
	val := os.Getenv("THRUSTX_DEBUG")
	if val == "" {
		return false
	}
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return true
}

// SetLogger installs the logger used by thrustx and its backends.
// A nil logger discards all records.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	logger.Store(l)
}

// Logger returns the logger installed by SetLogger.
func Logger() *slog.Logger {
	return logger.Load()
}
