/*
Copyright 2023 Alexander Bartolomey (github@alexanderbartolomey.de)

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package ipfix

import (
	"context"
	"sync/atomic"

	"github.com/go-logr/logr"
)

var (
	rootLog atomic.Pointer[logr.Logger]
)

func init() {
	l := logr.Discard()
	rootLog.Store(&l)
}

// SetLogger sets the logger used by the package whenever a context does not carry one.
// Until called, the package does not log at all.
func SetLogger(l logr.Logger) {
	rootLog.Store(&l)
}

// Log returns the package's root logger
func Log() logr.Logger {
	return *rootLog.Load()
}

// FromContext returns the logger stored in ctx, falling back to the root logger, decorated
// with the given key/value pairs
func FromContext(ctx context.Context, keysAndValues ...interface{}) logr.Logger {
	log := Log()
	if ctx != nil {
		if logger, err := logr.FromContext(ctx); err == nil {
			log = logger
		}
	}
	return log.WithValues(keysAndValues...)
}

func IntoContext(ctx context.Context, l logr.Logger) context.Context {
	return logr.NewContext(ctx, l)
}
