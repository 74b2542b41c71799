package spidev

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// syscalls is the seam between the device handle and the kernel. Tests
// substitute a fake kernel here; everything else goes through unix.
//
// arg must point into memory the caller keeps referenced until the call
// returns (Device.message holds its buffers alive with runtime.KeepAlive);
// the uintptr conversion happens only inside the real ioctl implementation.
type syscalls interface {
	open(path string) (int, error)
	close(fd int) error
	ioctl(fd int, req uint32, arg unsafe.Pointer) (int, error)
}

var defaultSyscalls syscalls = linuxSyscalls{}

type linuxSyscalls struct{}

func (linuxSyscalls) open(path string) (int, error) {
	return unix.Open(path, unix.O_RDWR, 0)
}

func (linuxSyscalls) close(fd int) error {
	return unix.Close(fd)
}

func (linuxSyscalls) ioctl(fd int, req uint32, arg unsafe.Pointer) (int, error) {
	r, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(arg))
	if errno != 0 {
		return -1, errno
	}
	return int(r), nil
}
