package utils

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitComponents(t *testing.T) {
	assert.Equal(t, []string{"Windows", "System32"},
		SplitComponents("\\Windows\\System32"))
	assert.Equal(t, []string{"Windows", "System32"},
		SplitComponents("Windows/System32/"))
	assert.Empty(t, SplitComponents(""))

	assert.Equal(t, "Windows\\System32",
		JoinComponents("Windows", "System32"))
	assert.Equal(t, "System32",
		BaseComponent("\\Windows\\System32"))
}

func TestRot13(t *testing.T) {
	// UserAssist style encoded program path.
	assert.Equal(t, "C:\\Tools\\run.exe", Rot13("P:\\Gbbyf\\eha.rkr"))
	// Involution.
	assert.Equal(t, "hello", Rot13(Rot13("hello")))
	// Non letters pass through.
	assert.Equal(t, "{GUID}-123", Rot13(Rot13("{GUID}-123")))
}

func TestWinFileTime(t *testing.T) {
	// 2023-04-01 10:30:00 UTC as FILETIME.
	expected := time.Date(2023, 4, 1, 10, 30, 0, 0, time.UTC)
	ft := uint64(expected.UnixNano()/100 + 116444736000000000)

	assert.Equal(t, expected, WinFileTime(ft))
	assert.True(t, WinFileTime(0).IsZero())
	// Values before the unix epoch are treated as invalid.
	assert.True(t, WinFileTime(1).IsZero())
}

func TestBrowserTimes(t *testing.T) {
	expected := time.Date(2023, 4, 1, 10, 30, 0, 0, time.UTC)

	chrome := expected.UnixNano()/100/10 + 11644473600000000
	assert.Equal(t, expected, ChromeTime(chrome))
	assert.True(t, ChromeTime(0).IsZero())

	assert.Equal(t, expected, FirefoxTime(expected.UnixMicro()))
	assert.True(t, FirefoxTime(0).IsZero())
}

func TestOffsetReader(t *testing.T) {
	backing := bytes.NewReader([]byte("0123456789"))
	reader := &OffsetReader{Reader: backing, Offset: 2, Size: 5}

	buf := make([]byte, 3)
	n, err := reader.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "234", string(buf[:n]))

	// Reads are clamped at the window end.
	buf = make([]byte, 10)
	n, err = reader.ReadAt(buf, 3)
	assert.Equal(t, 2, n)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, "56", string(buf[:n]))

	_, err = reader.ReadAt(buf, 99)
	assert.Equal(t, io.EOF, err)
}

func TestReadSeekReaderAdapter(t *testing.T) {
	adapter := NewReadSeekReaderAdapter(
		bytes.NewReader([]byte("0123456789")), 10)

	buf := make([]byte, 4)
	n, err := adapter.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(buf[:n]))

	offset, err := adapter.Seek(2, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(2), offset)

	n, err = adapter.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "2345", string(buf[:n]))

	offset, err = adapter.Seek(-2, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(8), offset)
}

func TestMockTime(t *testing.T) {
	mock := &MockClock{MockNow: time.Unix(100, 0)}
	restore := MockTime(mock)

	assert.Equal(t, time.Unix(100, 0), GetTime().Now())
	mock.Set(time.Unix(200, 0))
	assert.Equal(t, time.Unix(200, 0), GetTime().Now())

	restore()
	assert.NotEqual(t, time.Unix(200, 0), GetTime().Now())
}
