package device

import (
	"bufio"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

func TestLineDeviceReadLine(t *testing.T) {
	local, remote := net.Pipe()
	d := NewLineDevice(local)
	defer d.Close()

	go func() {
		_, _ = io.WriteString(remote, "FS26,1,2\r\nsecond line\n")
	}()

	tests := []string{"FS26,1,2", "second line"}
	for _, want := range tests {
		got, err := d.ReadLine(time.Second)
		if err != nil {
			t.Fatalf("ReadLine error = %v", err)
		}
		if got != want {
			t.Errorf("ReadLine = %q, want %q", got, want)
		}
	}
}

func TestLineDeviceReadTimeoutKeepsData(t *testing.T) {
	local, remote := net.Pipe()
	d := NewLineDevice(local)
	defer d.Close()

	if _, err := d.ReadLine(10 * time.Millisecond); !errors.Is(err, ErrReadTimeout) {
		t.Fatalf("ReadLine on idle stream = %v, want ErrReadTimeout", err)
	}

	go func() { _, _ = io.WriteString(remote, "late\n") }()
	got, err := d.ReadLine(time.Second)
	if err != nil || got != "late" {
		t.Errorf("ReadLine after timeout = %q, %v, want \"late\"", got, err)
	}
}

func TestLineDeviceWriteLine(t *testing.T) {
	local, remote := net.Pipe()
	d := NewLineDevice(local)
	defer d.Close()

	r := bufio.NewReader(remote)
	done := make(chan string, 1)
	go func() {
		s, _ := r.ReadString('\n')
		done <- s
	}()

	if err := d.WriteLine("FS26,42"); err != nil {
		t.Fatalf("WriteLine error = %v", err)
	}
	select {
	case got := <-done:
		if got != "FS26,42\n" {
			t.Errorf("remote read %q, want %q", got, "FS26,42\n")
		}
	case <-time.After(time.Second):
		t.Fatal("line not written")
	}
}

func TestLineDeviceClose(t *testing.T) {
	local, _ := net.Pipe()
	d := NewLineDevice(local)
	if err := d.Close(); err != nil {
		t.Fatalf("Close error = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close error = %v, want nil", err)
	}
	if err := d.WriteLine("x"); !errors.Is(err, ErrClosed) {
		t.Errorf("WriteLine after Close = %v, want ErrClosed", err)
	}
	if _, err := d.ReadLine(time.Second); err == nil {
		t.Error("ReadLine after Close error = nil")
	}
}
