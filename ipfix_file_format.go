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
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"sync"
	"time"

	"github.com/zoomoid/ipfix-inspect/iana/version"
)

var (
	ErrIllegalFileMessage = errors.New("illegal message in IPFIX file")
)

// FileReader is a PacketSource replaying an IPFIX File (RFC 5655), i.e., a sequence of
// IPFIX messages, one message per packet. All messages are attributed to a single exporter.
type FileReader struct {
	handle   io.ReadCloser
	exporter netip.Addr

	// once framing is lost, everything that follows is garbage
	done bool

	closer *sync.Once
}

var _ PacketSource = &FileReader{}

// NewFileReader creates a new reader from a file-like reader. Messages are attributed to exporter,
// which may be the zero netip.Addr.
func NewFileReader(f io.ReadCloser, exporter netip.Addr) *FileReader {
	return &FileReader{
		handle:   f,
		exporter: exporter,
		closer:   &sync.Once{},
	}
}

// ReadPacket returns the next message of the file. A message cut off by the end of the file is
// still returned, and the following call returns io.EOF. An illegal message header is reported
// once, after which the reader is exhausted.
func (r *FileReader) ReadPacket() (PacketEnvelope, error) {
	if r.done {
		return PacketEnvelope{}, io.EOF
	}
	msg, err := readMessage(r.handle)
	if msg != nil {
		return PacketEnvelope{
			Payload: msg,
			Source:  r.exporter,
			Arrival: time.Now(),
		}, nil
	}
	r.done = true
	return PacketEnvelope{}, err
}

func (r *FileReader) Close() error {
	var err error
	r.closer.Do(func() {
		err = r.handle.Close()
	})
	return err
}

// ReadFull consumes an entire io.Reader of a file containing IPFIX File Format messages
// and returns those messages as byte slices. io.EOF is not propagated.
func ReadFull(f io.Reader) ([][]byte, error) {
	b := make([][]byte, 0)
	for {
		msg, err := readMessage(f)
		if msg != nil {
			b = append(b, msg)
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
	}
	return b, nil
}

// readMessage reads a single message framed by the length in its header. A message cut short is
// returned without error; the next call then observes io.EOF.
func readMessage(r io.Reader) ([]byte, error) {
	messageHeader := make([]byte, 4)
	n, err := io.ReadFull(r, messageHeader)
	if err != nil {
		if n == 0 {
			return nil, io.EOF
		}
		return messageHeader[:n], nil
	}

	v := binary.BigEndian.Uint16(messageHeader[0:2])
	length := int(binary.BigEndian.Uint16(messageHeader[2:4]))

	if version.Classify(v) != version.IPFIX {
		return nil, fmt.Errorf("%w: version %d", ErrIllegalFileMessage, v)
	}
	if length < MessageHeaderLength {
		return nil, fmt.Errorf("%w: message length %d", ErrIllegalFileMessage, length)
	}

	p := make([]byte, length)
	copy(p, messageHeader)
	n, err = io.ReadFull(r, p[4:])
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return p[:4+n], nil
}
