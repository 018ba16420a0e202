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

import "github.com/prometheus/client_golang/prometheus"

var (
	PacketsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "collector",
		Name:      "decoder_decoded_packets_total",
		Help:      "Total number of classified packets in decoder per protocol version",
	}, []string{"version"})
	DiscardedPacketsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "collector",
		Name:      "decoder_discarded_packets_total",
		Help:      "Total number of packets too short to be decoded",
	})
	ErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "collector",
		Name:      "decoder_errors_total",
		Help:      "Total number of non-fatal errors in decoder per kind",
	}, []string{"kind"})
	DurationMicroseconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "collector",
		Name:      "decoder_duration_microseconds",
		Help:      "Duration of decoding per packet in microseconds",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})
	DecodedSets = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "collector",
		Name:      "decoder_decoded_sets_total",
		Help:      "Total number of decoded sets per kind",
	}, []string{"kind"})
	MalformedSetsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "collector",
		Name:      "decoder_malformed_sets_total",
		Help:      "Total number of sets with a declared length below the set header length",
	})
	DecodedTemplatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "collector",
		Name:      "decoder_decoded_templates_total",
		Help:      "Total number of decoded template records, including truncated ones",
	})
	TruncatedFieldsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "collector",
		Name:      "decoder_truncated_templates_total",
		Help:      "Total number of template records cut off within their field specifiers",
	})
	FieldAnomaliesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "collector",
		Name:      "decoder_field_anomalies_total",
		Help:      "Total number of field specifiers with unusual lengths per anomaly",
	}, []string{"anomaly"})
)

// Collectors returns all metrics of the package for registration with a prometheus.Registerer
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		PacketsTotal,
		DiscardedPacketsTotal,
		ErrorsTotal,
		DurationMicroseconds,
		DecodedSets,
		MalformedSetsTotal,
		DecodedTemplatesTotal,
		TruncatedFieldsTotal,
		FieldAnomaliesTotal,
		UDPPacketsTotal,
		UDPErrorsTotal,
		UDPPacketBytes,
		TCPActiveConnections,
		TCPErrorsTotal,
		TCPReceivedBytes,
	}
}
