package rerrno

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestErrnoFailed(t *testing.T) {
	require.False(t, OK.Failed())
	require.True(t, Errno(-1).Failed())
	require.False(t, Errno(37).Failed())
}

func TestFromSyscallErr(t *testing.T) {
	require.Equal(t, OK, FromSyscallErr(nil))
	require.Equal(t, Errno(-int32(unix.ENOENT)), FromSyscallErr(unix.ENOENT))
}

func TestConstructionErrorUnwraps(t *testing.T) {
	inner := unix.ENOMEM
	err := NewConstructionError("stack.Create", inner)
	require.ErrorIs(t, err, inner)
	require.Contains(t, err.Error(), "stack.Create")
}

func TestPanicfRaisesInvariantViolation(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r)
		iv, ok := r.(*InvariantViolation)
		require.True(t, ok)
		require.Contains(t, iv.Error(), "fiber 7")
	}()
	Panicf("fiber %d in bad state", 7)
}
