package spidev

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestRingEvictsOldestFirst(t *testing.T) {
	r := NewRing(3)
	for _, op := range []string{"a", "b", "c", "d"} {
		r.Trace(Record{Op: op})
	}

	recs := r.Records()
	require.Len(t, recs, 3)
	assert.Equal(t, "b", recs[0].Op)
	assert.Equal(t, "c", recs[1].Op)
	assert.Equal(t, "d", recs[2].Op)
	for _, rec := range recs {
		assert.False(t, rec.When.IsZero())
	}
}

func TestDeviceTracesTransfers(t *testing.T) {
	f := newFakeKernel(t)
	r := NewRing(8)
	d, err := Open("/dev/mock0", 0, 8, 500000,
		withSyscalls(f), WithTracer(r), WithLogger(quietLogger()))
	require.NoError(t, err)

	_, err = d.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	f.msgErr = unix.EIO
	_, err = d.Read(make([]byte, 4))
	require.Error(t, err)

	recs := r.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "write", recs[0].Op)
	assert.Equal(t, 3, recs[0].Len)
	assert.NoError(t, recs[0].Err)
	assert.Equal(t, "read", recs[1].Op)
	assert.Equal(t, 4, recs[1].Len)
	assert.ErrorIs(t, recs[1].Err, unix.EIO)
	assert.Equal(t, "/dev/mock0", recs[1].Device)
}
