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
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/zoomoid/ipfix-inspect/iana/version"
)

// Decoder classifies packets by version, walks the sets of IPFIX messages and feeds
// template announcements into Statistics. The decoder itself is stateless apart from
// the statistics it is bound to, and never mutates the packet buffer.
type Decoder struct {
	stats *Statistics
}

// NewDecoder creates a new Decoder that records its findings in stats. If stats is nil, the
// decoder allocates its own, which is then available from Statistics.
func NewDecoder(stats *Statistics) *Decoder {
	if stats == nil {
		stats = NewStatistics()
	}
	d := &Decoder{
		stats: stats,
	}

	d.initMetrics()

	return d
}

// Statistics returns the statistics the decoder records into
func (d *Decoder) Statistics() *Statistics {
	return d.stats
}

// Decode classifies a single packet and decodes it as far as possible. The returned error is
// never fatal: it describes why the packet was discarded, or why decoding stopped early. In the
// latter case the returned message contains everything decoded before, and the statistics already
// reflect it.
func (d *Decoder) Decode(ctx context.Context, env PacketEnvelope) (msg *Message, err error) {
	decoderStart := time.Now()

	// update metrics at the end of decoding depending on the outcome
	defer func() {
		DurationMicroseconds.Observe(float64(time.Since(decoderStart).Nanoseconds()) / 1000)
		if err != nil {
			ErrorsTotal.WithLabelValues(errorKind(err)).Inc()
		}
	}()

	b := env.Payload
	if len(b) < 4 {
		d.stats.RecordDiscard(len(b))
		DiscardedPacketsTotal.Inc()
		return nil, truncated("version", 0, 4, len(b))
	}

	raw := binary.BigEndian.Uint16(b[0:2])
	v := version.Classify(raw)
	msg = &Message{
		Source:     env.Source,
		Version:    v,
		RawVersion: raw,
	}

	switch v {
	case version.IPFIX:
		if len(b) < MessageHeaderLength {
			d.stats.RecordDiscard(len(b))
			DiscardedPacketsTotal.Inc()
			return nil, truncated("message header", 0, MessageHeaderLength, len(b))
		}
		d.stats.RecordPacket(len(b), v)
		PacketsTotal.WithLabelValues(v.String()).Inc()
		err = d.decodeIPFIX(ctx, b, msg)
		return msg, err
	case version.NetFlowV5, version.NetFlowV9:
		// recognized by header, record bodies are not decoded
		d.stats.RecordPacket(len(b), v)
		PacketsTotal.WithLabelValues(v.String()).Inc()
		return msg, nil
	default:
		d.stats.RecordPacket(len(b), v)
		PacketsTotal.WithLabelValues(v.String()).Inc()
		return msg, unknownVersion(raw)
	}
}

func (d *Decoder) decodeIPFIX(ctx context.Context, b []byte, msg *Message) error {
	h, offset, err := decodeMessageHeader(b)
	if err != nil {
		return err
	}
	msg.Header = &h

	// the declared message length bounds set iteration, unless it claims more than we received
	end := int(h.Length)
	if end > len(b) {
		end = len(b)
	}

	logger := FromContext(ctx, "source", msg.Source, "domain", h.ObservationDomainId, "sequenceNumber", h.SequenceNumber)

	var errs []error
	for i := 1; offset < end && end-offset >= SetHeaderLength; i++ {
		sh, next, err := decodeSetHeader(b[:end], offset)
		if err != nil {
			return errors.Join(append(errs, err)...)
		}
		if int(sh.Length) < SetHeaderLength {
			// there is no way to tell where the next set would start
			d.stats.RecordMalformedSet()
			MalformedSetsTotal.Inc()
			err := malformedSetLength(sh.Id, sh.Length, offset)
			logger.V(1).Info("terminating set iteration", "set", i, "error", err.Error())
			return errors.Join(append(errs, err)...)
		}

		// a set claiming more than is left is cut to the remainder, and its decoders
		// will report truncation
		setEnd := offset + int(sh.Length)
		if setEnd > end {
			setEnd = end
		}
		payload := b[next:setEnd]
		offset = setEnd

		kind := sh.Kind()
		s := Set{SetHeader: sh, Kind: kind}

		switch kind {
		case KindTemplateSet:
			ts := (&TemplateSet{}).With(d.stats, msg.Source, h.ObservationDomainId)
			if _, err := ts.Decode(ctx, payload); err != nil {
				errs = append(errs, fmt.Errorf("template set at index %d: %w", i, err))
			}
			s.Set = ts
		case KindOptionsTemplateSet:
			ots := &OptionsTemplateSet{}
			_, _ = ots.Decode(payload)
			s.Set = ots
		case KindDataSet:
			ds := &DataSet{TemplateId: sh.Id}
			_, _ = ds.Decode(payload)
			s.Set = ds
		default:
			us := &UnsupportedSet{}
			_, _ = us.Decode(payload)
			s.Set = us
			errs = append(errs, unsupportedSetId(sh.Id))
			logger.V(1).Info("unsupported set id", "set", i, "setId", sh.Id)
		}

		d.stats.RecordSet(kind, len(payload))
		DecodedSets.WithLabelValues(string(kind)).Inc()
		msg.Sets = append(msg.Sets, s)
	}

	return errors.Join(errs...)
}

func (d *Decoder) initMetrics() {
	// set this so that we don't get too many empty data points in prometheus
	DurationMicroseconds.Observe(0)
	for _, v := range version.Known() {
		PacketsTotal.WithLabelValues(v.String()).Add(0)
	}
	PacketsTotal.WithLabelValues(version.Unknown.String()).Add(0)
	for _, kind := range SetKinds() {
		DecodedSets.WithLabelValues(string(kind)).Add(0)
	}
	for _, kind := range []string{"truncated", "malformed_length", "unknown_version", "unsupported_set_id"} {
		ErrorsTotal.WithLabelValues(kind).Add(0)
	}
	for _, a := range []FieldAnomaly{AnomalyVariableLength, AnomalyLargeLength} {
		FieldAnomaliesTotal.WithLabelValues(a.String()).Add(0)
	}
}

// errorKind maps the error taxonomy onto metric labels. Joined errors are labeled by their
// most severe member.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrMalformedLength):
		return "malformed_length"
	case errors.Is(err, ErrUnknownVersion):
		return "unknown_version"
	case isTruncation(err):
		return "truncated"
	case errors.Is(err, ErrUnsupportedSetId):
		return "unsupported_set_id"
	default:
		return "other"
	}
}
