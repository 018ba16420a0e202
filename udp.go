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
	"net"
	"net/netip"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sys/unix"
)

// PacketSource yields one packet per call. ReadPacket blocks until a packet is available and
// returns io.EOF once the source is exhausted or closed.
type PacketSource interface {
	ReadPacket() (PacketEnvelope, error)
	Close() error
}

// UDPListener is a PacketSource reading datagrams from a single UDP socket. There is no
// buffering in user space: every ReadPacket call is one blocking read on the socket.
type UDPListener struct {
	bindAddr   string
	bufferSize int
	reusePort  bool

	buffer   []byte
	listener net.PacketConn
	closer   *sync.Once
}

var _ PacketSource = &UDPListener{}

type UDPListenerOptions struct {
	// BufferSize bounds the size of datagrams read from the socket. Larger datagrams are cut
	// off by the kernel. Defaults to MaxDatagramSize.
	BufferSize int
	// ReusePort sets SO_REUSEADDR and SO_REUSEPORT on the socket
	ReusePort bool
}

func NewUDPListener(bindAddr string, opts ...UDPListenerOptions) *UDPListener {
	l := &UDPListener{
		bindAddr:   bindAddr,
		bufferSize: MaxDatagramSize,
		closer:     &sync.Once{},
	}
	for _, o := range opts {
		if o.BufferSize > 0 {
			l.bufferSize = o.BufferSize
		}
		l.reusePort = l.reusePort || o.ReusePort
	}
	return l
}

// Listen binds the socket. Once ctx is done, the socket is closed, which unblocks a pending
// ReadPacket.
func (l *UDPListener) Listen(ctx context.Context) (err error) {
	logger := FromContext(ctx, "addr", l.bindAddr)

	listenConfig := net.ListenConfig{}
	if l.reusePort {
		listenConfig.Control = func(network, address string, c syscall.RawConn) error {
			var err error
			controlErr := c.Control(func(fd uintptr) {
				err = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
				if err != nil {
					return
				}
				err = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			})
			if controlErr != nil {
				err = controlErr
			}
			return err
		}
	}

	l.listener, err = listenConfig.ListenPacket(ctx, "udp", l.bindAddr)
	if err != nil {
		logger.Error(err, "failed to bind udp listener")
		return fmt.Errorf("failed to bind udp listener on %s, %w", l.bindAddr, err)
	}
	// allocate this buffer once and re-use it for each packet to read from the socket
	l.buffer = make([]byte, l.bufferSize)

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down UDP listener")
		l.Close()
	}()

	logger.Info("Started UDP listener", "local", l.listener.LocalAddr().String())
	return nil
}

// ReadPacket blocks on the socket until a datagram arrives
func (l *UDPListener) ReadPacket() (PacketEnvelope, error) {
	if l.listener == nil {
		return PacketEnvelope{}, fmt.Errorf("udp %w", ErrNotBound)
	}
	n, addr, err := l.listener.ReadFrom(l.buffer)
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return PacketEnvelope{}, io.EOF
		}
		UDPErrorsTotal.Inc()
		return PacketEnvelope{}, err
	}
	UDPPacketsTotal.Inc()
	UDPPacketBytes.Add(float64(n))

	// hand out a copy trimmed to the datagram, the read buffer is re-used for the next packet
	packet := make([]byte, n)
	copy(packet, l.buffer[:n])

	return PacketEnvelope{
		Payload: packet,
		Source:  sourceAddr(addr),
		Arrival: time.Now(),
	}, nil
}

// LocalAddr returns the bound address, or nil if the listener is not bound
func (l *UDPListener) LocalAddr() net.Addr {
	if l.listener == nil {
		return nil
	}
	return l.listener.LocalAddr()
}

func (l *UDPListener) Close() error {
	var err error
	l.closer.Do(func() {
		if l.listener != nil {
			err = l.listener.Close()
		}
	})
	return err
}

func sourceAddr(addr net.Addr) netip.Addr {
	if ua, ok := addr.(*net.UDPAddr); ok {
		return ua.AddrPort().Addr().Unmap()
	}
	if ap, err := netip.ParseAddrPort(addr.String()); err == nil {
		return ap.Addr().Unmap()
	}
	return netip.Addr{}
}

var (
	UDPPacketsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "udp_listener_packets_total",
		Help: "Total number of packets received via UDP listener",
	})
	UDPErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "udp_listener_errors_total",
		Help: "Total number of errors encountered in the UDP listener",
	})
	UDPPacketBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "udp_listener_packet_bytes",
		Help: "Total number of bytes read in the UDP listener",
	})
)
