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
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

func TestUDPListener(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewUDPListener("127.0.0.1:0", UDPListenerOptions{ReusePort: true})
	if err := l.Listen(ctx); err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	conn, err := net.Dial("udp", l.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	packets := [][]byte{
		message(t, 1, templateSet(t, templateRecord(256, field(8, 4)))),
		{0x00, 0x05, 0x00, 0x01},
	}
	for _, p := range packets {
		if _, err := conn.Write(p); err != nil {
			t.Fatal(err)
		}
	}

	for i, want := range packets {
		env, err := l.ReadPacket()
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(env.Payload, want) {
			t.Errorf("packet %d: expected %x, got %x", i, want, env.Payload)
		}
		if env.Source.String() != "127.0.0.1" {
			t.Errorf("packet %d: expected source 127.0.0.1, got %s", i, env.Source)
		}
		if env.Arrival.IsZero() {
			t.Errorf("packet %d: expected arrival time", i)
		}
	}
}

func TestUDPListener_CloseUnblocksRead(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	l := NewUDPListener("127.0.0.1:0")
	if err := l.Listen(ctx); err != nil {
		t.Fatal(err)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := l.ReadPacket()
		errCh <- err
	}()

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, io.EOF) {
			t.Errorf("expected io.EOF, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("read was not unblocked")
	}
	// closing twice is fine
	if err := l.Close(); err != nil {
		t.Errorf("expected second close to be a no-op, got %v", err)
	}
}

func TestUDPListener_BindFailure(t *testing.T) {
	l := NewUDPListener("256.0.0.1:0")
	if err := l.Listen(context.Background()); err == nil {
		l.Close()
		t.Fatal("expected bind failure")
	}
	if _, err := l.ReadPacket(); !errors.Is(err, ErrNotBound) {
		t.Errorf("expected unbound listener to fail reading with ErrNotBound, got %v", err)
	}
}
