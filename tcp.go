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
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TCPListener is a PacketSource accepting IPFIX over TCP (RFC 7011, section 10.4). Each connection
// is a session carrying a stream of messages, framed by the length in their headers. Connections are
// read concurrently, but packets are handed out one at a time through ReadPacket.
type TCPListener struct {
	bindAddr string

	listener net.Listener
	packets  chan PacketEnvelope

	mu    sync.Mutex
	conns map[net.Conn]struct{}

	done   chan struct{}
	closer *sync.Once
}

var _ PacketSource = &TCPListener{}

var (
	TCPChannelBufferSize int = 10
)

func NewTCPListener(bindAddr string) *TCPListener {
	return &TCPListener{
		bindAddr: bindAddr,
		packets:  make(chan PacketEnvelope, TCPChannelBufferSize),
		conns:    make(map[net.Conn]struct{}),
		done:     make(chan struct{}),
		closer:   &sync.Once{},
	}
}

// Listen binds the socket and starts accepting connections in the background. Once ctx is done,
// the listener and all of its connections are closed.
func (l *TCPListener) Listen(ctx context.Context) (err error) {
	logger := FromContext(ctx, "addr", l.bindAddr)

	lc := net.ListenConfig{}
	l.listener, err = lc.Listen(ctx, "tcp", l.bindAddr)
	if err != nil {
		logger.Error(err, "failed to bind tcp listener")
		return fmt.Errorf("failed to bind tcp listener on %s, %w", l.bindAddr, err)
	}

	go l.accept(ctx)
	go func() {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down TCP listener")
			l.Close()
		case <-l.done:
		}
	}()

	logger.Info("Started TCP listener", "local", l.listener.Addr().String())
	return nil
}

func (l *TCPListener) accept(ctx context.Context) {
	logger := FromContext(ctx, "addr", l.bindAddr)
	for {
		conn, err := l.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			TCPErrorsTotal.Inc()
			logger.Error(err, "failed to accept TCP connection")
			continue
		}
		if !l.track(conn) {
			conn.Close()
			return
		}
		go l.serve(ctx, conn)
	}
}

// serve reads messages from a single session until the remote closes it, framing is lost, or
// the listener is closed
func (l *TCPListener) serve(ctx context.Context, conn net.Conn) {
	source := sourceAddr(conn.RemoteAddr())
	logger := FromContext(ctx, "remote", conn.RemoteAddr().String())

	TCPActiveConnections.Inc()
	defer TCPActiveConnections.Dec()
	defer l.untrack(conn)

	logger.V(1).Info("accepted TCP session")
	for {
		msg, err := readMessage(conn)
		if msg != nil {
			TCPReceivedBytes.Add(float64(len(msg)))
			select {
			case l.packets <- PacketEnvelope{Payload: msg, Source: source, Arrival: time.Now()}:
			case <-l.done:
				return
			}
			continue
		}
		switch {
		case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
			logger.V(1).Info("TCP session closed")
		default:
			TCPErrorsTotal.Inc()
			logger.Error(err, "closing TCP session")
		}
		return
	}
}

func (l *TCPListener) track(conn net.Conn) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case <-l.done:
		return false
	default:
	}
	l.conns[conn] = struct{}{}
	return true
}

func (l *TCPListener) untrack(conn net.Conn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.conns, conn)
	conn.Close()
}

// ReadPacket blocks until any session delivers a message, or the listener is closed
func (l *TCPListener) ReadPacket() (PacketEnvelope, error) {
	select {
	case env := <-l.packets:
		return env, nil
	case <-l.done:
		return PacketEnvelope{}, io.EOF
	}
}

// Addr returns the bound address, or nil if the listener is not bound
func (l *TCPListener) Addr() net.Addr {
	if l.listener == nil {
		return nil
	}
	return l.listener.Addr()
}

func (l *TCPListener) Close() error {
	var err error
	l.closer.Do(func() {
		l.mu.Lock()
		close(l.done)
		for conn := range l.conns {
			conn.Close()
		}
		l.mu.Unlock()
		if l.listener != nil {
			err = l.listener.Close()
		}
	})
	return err
}

var (
	TCPActiveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tcp_listener_active_connections_total",
		Help: "Total number of active connections currently maintained by the TCP listener",
	})
	TCPErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tcp_listener_errors_total",
		Help: "Total number of errors encountered in the TCP listener",
	})
	TCPReceivedBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tcp_listener_received_bytes",
		Help: "Total number of bytes read in the TCP listener",
	})
)
