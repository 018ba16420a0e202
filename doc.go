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

/*
Package for inspecting what IPFIX exporters actually send. The decoder walks IPFIX messages
(RFC 7011) down to the field specifiers of template records, including enterprise-specific
fields, and aggregates what it sees into Statistics: how often each template was announced
per exporter and observation domain, and which field types appear with which lengths.
From a Snapshot of those statistics, a Report ranks templates and field types and lists field
types with suspicious lengths, i.e., the variable-length marker 0xFFFF and lengths above 1000.

The decoder is meant for hostile input. Nothing in a packet is fatal: truncated structures are
decoded as far as possible and kept, a set with a malformed length ends iteration of the message,
and NetFlow v5 and v9 packets are recognized by their version, but not decoded. Data sets and
options template sets are only counted.

# Collecting

Packets are read from a PacketSource, one after the other. Sources are a UDPListener, a TCPListener
accepting IPFIX sessions, and a FileReader replaying an IPFIX file (RFC 5655):

	stats := ipfix.NewStatistics()
	decoder := ipfix.NewDecoder(stats)

	listener := ipfix.NewUDPListener("0.0.0.0:9995")
	if err := listener.Listen(ctx); err != nil {
		log.Fatal(err)
	}
	defer listener.Close()

	_ = ipfix.NewCollector(listener, decoder).Run(ctx)

	report := ipfix.NewReport(stats.Snapshot())

Statistics are safe for concurrent use, such that reports can be taken while the collector runs.
*/
package ipfix
