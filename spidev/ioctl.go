package spidev

import "unsafe"

// ioctl request packing. This is a golang replica of the kernel's _IOC macros,
// see include/uapi/asm-generic/ioctl.h and include/uapi/linux/spi/spidev.h.

const (
	iocNrBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14
	iocDirBits  = 2

	iocNrShift   = 0
	iocTypeShift = iocNrShift + iocNrBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	iocNone  = 0
	iocWrite = 1
	iocRead  = 2
)

const spiIocMagic = 'k'

func ioc(dir, typ, nr, size uint32) uint32 {
	return dir<<iocDirShift | typ<<iocTypeShift | nr<<iocNrShift | size<<iocSizeShift
}

func ior(typ, nr, size uint32) uint32 {
	return ioc(iocRead, typ, nr, size)
}

func iow(typ, nr, size uint32) uint32 {
	return ioc(iocWrite, typ, nr, size)
}

// Request numbers from linux/spi/spidev.h. LSB-first has a WR counterpart in
// the kernel, but this package only ever queries it.
var (
	spiIocRdMode        = ior(spiIocMagic, 1, 1)
	spiIocWrMode        = iow(spiIocMagic, 1, 1)
	spiIocRdLsbFirst    = ior(spiIocMagic, 2, 1)
	spiIocRdBitsPerWord = ior(spiIocMagic, 3, 1)
	spiIocWrBitsPerWord = iow(spiIocMagic, 3, 1)
	spiIocRdMaxSpeedHz  = ior(spiIocMagic, 4, 4)
	spiIocWrMaxSpeedHz  = iow(spiIocMagic, 4, 4)
)

// iocMessage returns the request for submitting n transfer segments in one
// call (SPI_IOC_MESSAGE(n)). A size overflowing the 14-bit field degenerates
// to 0, as the kernel macro does.
func iocMessage(n int) uint32 {
	size := uint32(n) * uint32(unsafe.Sizeof(xfer{}))
	if n < 0 || size >= 1<<iocSizeBits {
		size = 0
	}
	return iow(spiIocMagic, 0, size)
}
