package tio_test

import (
	"bytes"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/brickingsoft/tio"
)

func TestListenTCP_PortZero(t *testing.T) {
	ln, lnErr := tio.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if lnErr != nil {
		t.Fatal(lnErr)
	}
	defer func() {
		_ = ln.Close()
	}()
	addr, ok := ln.Addr().(*net.TCPAddr)
	if !ok {
		t.Fatalf("addr type: %T", ln.Addr())
	}
	if addr.Port == 0 {
		t.Error("assigned port is zero")
	}
}

func TestListen_Textual(t *testing.T) {
	ln, lnErr := tio.Listen("tcp", "127.0.0.1:0")
	if lnErr != nil {
		t.Fatal(lnErr)
	}
	defer func() {
		_ = ln.Close()
	}()
	if ln.Addr().(*net.TCPAddr).Port == 0 {
		t.Error("assigned port is zero")
	}
}

func TestListen_NoUsableAddress(t *testing.T) {
	// an IPv4 literal leaves tcp6 with zero candidates
	ln, lnErr := tio.Listen("tcp6", "127.0.0.1:0")
	if lnErr == nil {
		_ = ln.Close()
		t.Fatal("expected error")
	}
	if !tio.IsNoUsableAddress(lnErr) {
		t.Errorf("expected no usable address, got %v", lnErr)
	}
}

func TestAccept_RoundTrip(t *testing.T) {
	ln, lnErr := tio.Listen("tcp", "127.0.0.1:0")
	if lnErr != nil {
		t.Fatal(lnErr)
	}
	defer func() {
		_ = ln.Close()
	}()

	type acceptResult struct {
		conn *tio.TCPConn
		addr net.Addr
		err  error
	}
	acceptCh := make(chan acceptResult, 1)
	go func() {
		conn, addr, err := ln.Accept(context.Background())
		acceptCh <- acceptResult{conn: conn, addr: addr, err: err}
	}()

	cli, dialErr := net.Dial("tcp", ln.Addr().String())
	if dialErr != nil {
		t.Fatal(dialErr)
	}
	defer func() {
		_ = cli.Close()
	}()
	if _, writeErr := cli.Write([]byte("test")); writeErr != nil {
		t.Fatal(writeErr)
	}

	accepted := <-acceptCh
	if accepted.err != nil {
		t.Fatal(accepted.err)
	}
	defer func() {
		_ = accepted.conn.Close()
	}()
	if accepted.addr == nil {
		t.Fatal("peer address is nil")
	}
	cliPort := cli.LocalAddr().(*net.TCPAddr).Port
	if peerPort := accepted.addr.(*net.TCPAddr).Port; peerPort != cliPort {
		t.Errorf("peer port %d, client port %d", peerPort, cliPort)
	}

	b := make([]byte, 4)
	n := 0
	for n < len(b) {
		read, readErr := accepted.conn.Read(b[n:])
		if readErr != nil {
			t.Fatal(readErr)
		}
		n += read
	}
	if !bytes.Equal(b, []byte("test")) {
		t.Errorf("read %q", b)
	}

	if _, writeErr := accepted.conn.Write([]byte("okay")); writeErr != nil {
		t.Fatal(writeErr)
	}
	if _, readErr := cli.Read(b); readErr != nil {
		t.Fatal(readErr)
	}
	if !bytes.Equal(b, []byte("okay")) {
		t.Errorf("read back %q", b)
	}
}

func TestAccept_Concurrent(t *testing.T) {
	ln, lnErr := tio.Listen("tcp", "127.0.0.1:0")
	if lnErr != nil {
		t.Fatal(lnErr)
	}
	defer func() {
		_ = ln.Close()
	}()

	peers := make(chan net.Addr, 2)
	wg := new(sync.WaitGroup)
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func() {
			defer wg.Done()
			conn, addr, err := ln.Accept(context.Background())
			if err != nil {
				t.Error(err)
				return
			}
			peers <- addr
			_ = conn.Close()
		}()
	}

	clients := make([]net.Conn, 0, 2)
	for i := 0; i < 2; i++ {
		cli, dialErr := net.Dial("tcp", ln.Addr().String())
		if dialErr != nil {
			t.Fatal(dialErr)
		}
		clients = append(clients, cli)
	}
	defer func() {
		for _, cli := range clients {
			_ = cli.Close()
		}
	}()

	wg.Wait()
	close(peers)
	seen := make(map[string]int)
	for addr := range peers {
		if addr == nil {
			t.Fatal("peer address is nil")
			continue
		}
		seen[addr.String()]++
	}
	if len(seen) != 2 {
		t.Errorf("expected two distinct peers, got %v", seen)
	}
	for peer, count := range seen {
		if count != 1 {
			t.Errorf("peer %s delivered %d times", peer, count)
		}
	}
}

func TestAccept_Canceled(t *testing.T) {
	ln, lnErr := tio.Listen("tcp", "127.0.0.1:0")
	if lnErr != nil {
		t.Fatal(lnErr)
	}
	defer func() {
		_ = ln.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := ln.Accept(ctx); err == nil {
		t.Fatal("expected error from canceled accept")
	} else if !tio.IsClosed(err) {
		t.Errorf("expected closed error, got %v", err)
	}

	// give the driver a moment to reap the canceled request, then the
	// listener must still accept a new incoming connection
	time.Sleep(100 * time.Millisecond)
	acceptCh := make(chan error, 1)
	go func() {
		conn, _, err := ln.Accept(context.Background())
		if err == nil {
			_ = conn.Close()
		}
		acceptCh <- err
	}()
	cli, dialErr := net.Dial("tcp", ln.Addr().String())
	if dialErr != nil {
		t.Fatal(dialErr)
	}
	defer func() {
		_ = cli.Close()
	}()
	if err := <-acceptCh; err != nil {
		t.Error(err)
	}
}

func TestAccept_AfterClose(t *testing.T) {
	ln, lnErr := tio.Listen("tcp", "127.0.0.1:0")
	if lnErr != nil {
		t.Fatal(lnErr)
	}
	if closeErr := ln.Close(); closeErr != nil {
		t.Fatal(closeErr)
	}
	if _, _, err := ln.Accept(context.Background()); !tio.IsClosed(err) {
		t.Errorf("expected closed error, got %v", err)
	}
}

func TestOnAccept(t *testing.T) {
	ln, lnErr := tio.Listen("tcp", "127.0.0.1:0")
	if lnErr != nil {
		t.Fatal(lnErr)
	}

	wg := new(sync.WaitGroup)
	wg.Add(3)
	ln.OnAccept(func(ctx context.Context, conn *tio.TCPConn, addr net.Addr, err error) {
		if err != nil {
			if !tio.IsClosed(err) {
				t.Error("accept failed:", err)
			}
			return
		}
		t.Log("accepted:", addr)
		_ = conn.Close()
		wg.Done()
	})

	for i := 0; i < 3; i++ {
		cli, dialErr := net.Dial("tcp", ln.Addr().String())
		if dialErr != nil {
			t.Fatal(dialErr)
		}
		_ = cli.Close()
	}
	wg.Wait()
	_ = ln.Close()
}
