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
	"errors"
	"fmt"
	"io"
	"time"
)

var (
	// MaxConsecutiveReadErrors is the number of failed reads in a row after which Run gives up
	MaxConsecutiveReadErrors = 10

	readErrorBackoff    = 10 * time.Millisecond
	maxReadErrorBackoff = time.Second
)

// Collector reads packets from a source and decodes them one after the other. Each packet is
// decoded and aggregated completely before the next read, so the decode path never runs
// concurrently with itself.
type Collector struct {
	source  PacketSource
	decoder *Decoder
}

func NewCollector(source PacketSource, decoder *Decoder) *Collector {
	return &Collector{
		source:  source,
		decoder: decoder,
	}
}

// Run processes packets until the source is exhausted or closed, or ctx is done. Decode errors are
// logged and skipped. Read errors are retried with an increasing backoff, Run returns an error once
// the source is not bound or MaxConsecutiveReadErrors reads in a row failed. Closing the source is
// the caller's responsibility; closing it from another goroutine is the way to unblock a pending read.
func (c *Collector) Run(ctx context.Context) error {
	logger := FromContext(ctx)
	failures := 0
	backoff := readErrorBackoff
	for {
		if ctx.Err() != nil {
			return nil
		}
		env, err := c.source.ReadPacket()
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.V(1).Info("packet source exhausted")
				return nil
			}
			if errors.Is(err, ErrNotBound) {
				return err
			}
			failures++
			if failures >= MaxConsecutiveReadErrors {
				return fmt.Errorf("giving up after %d consecutive read errors: %w", failures, err)
			}
			logger.Error(err, "failed to read packet", "failures", failures, "backoff", backoff.String())
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff = min(2*backoff, maxReadErrorBackoff)
			continue
		}
		failures = 0
		backoff = readErrorBackoff

		msg, err := c.decoder.Decode(ctx, env)
		if err != nil {
			logger.V(1).Info("packet not fully decoded", "source", env.Source, "size", len(env.Payload), "error", err.Error())
			continue
		}
		logger.V(2).Info("decoded packet", "message", msg.String())
	}
}
