package imaging

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSegments(t *testing.T, dir string, data []byte,
	segment_size int) string {

	base := filepath.Join(dir, "evidence.dd")
	for idx := 0; ; idx++ {
		start := idx * segment_size
		if start >= len(data) {
			break
		}
		end := start + segment_size
		if end > len(data) {
			end = len(data)
		}
		segment := fmt.Sprintf("%s.%03d", base, idx+1)
		require.NoError(t, ioutil.WriteFile(segment, data[start:end], 0600))
	}
	return base + ".001"
}

func makePattern(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func TestRawImage(t *testing.T) {
	dir := t.TempDir()
	data := makePattern(4096)

	path := filepath.Join(dir, "image.dd")
	require.NoError(t, ioutil.WriteFile(path, data, 0600))

	handle, err := Open(path)
	require.NoError(t, err)
	defer handle.Close()

	assert.Equal(t, FormatRaw, handle.Format())
	assert.Equal(t, int64(4096), handle.Size())

	buf, err := handle.ReadRange(100, 200)
	require.NoError(t, err)
	assert.Equal(t, data[100:300], buf)
}

// Reads across every segment seam must be byte identical to reading
// the unsegmented image.
func TestSplitImageMatchesUnsegmented(t *testing.T) {
	dir := t.TempDir()
	data := makePattern(10000)

	whole := filepath.Join(dir, "whole.dd")
	require.NoError(t, ioutil.WriteFile(whole, data, 0600))
	split := writeSegments(t, dir, data, 3000)

	whole_handle, err := Open(whole)
	require.NoError(t, err)
	defer whole_handle.Close()

	split_handle, err := Open(split)
	require.NoError(t, err)
	defer split_handle.Close()

	assert.Equal(t, FormatRawSplit, split_handle.Format())
	require.Equal(t, whole_handle.Size(), split_handle.Size())

	// Reads straddling each seam (3000, 6000, 9000) and the ends.
	for _, offset := range []int64{0, 2990, 2999, 3000, 5990, 8995, 9980} {
		expected, err := whole_handle.ReadRange(offset, 20)
		require.NoError(t, err)

		got, err := split_handle.ReadRange(offset, 20)
		require.NoError(t, err)

		assert.True(t, bytes.Equal(expected, got),
			"mismatch at offset %v", offset)
	}
}

// The scenario from the design: two 10MB segments, a 20 byte read
// spanning the seam.
func TestSegmentSeamScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("large fixture")
	}

	dir := t.TempDir()
	segment_size := 10_000_000
	data := makePattern(2 * segment_size)
	split := writeSegments(t, dir, data, segment_size)

	handle, err := Open(split)
	require.NoError(t, err)
	defer handle.Close()

	buf, err := handle.ReadRange(9_999_990, 20)
	require.NoError(t, err)
	require.Len(t, buf, 20)
	assert.Equal(t, data[9_999_990:10_000_010], buf)
}

func TestOutOfRangeRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.dd")
	require.NoError(t, ioutil.WriteFile(path, makePattern(1000), 0600))

	handle, err := Open(path)
	require.NoError(t, err)
	defer handle.Close()

	// Reads past the end fail outright instead of returning partial
	// data.
	_, err = handle.ReadRange(990, 20)
	assert.True(t, errors.Is(err, ErrOutOfRange))

	_, err = handle.ReadRange(-1, 10)
	assert.True(t, errors.Is(err, ErrOutOfRange))

	_, err = handle.ReadRange(2000, 10)
	assert.True(t, errors.Is(err, ErrOutOfRange))
}

// Segment listing must follow the extension case of the first
// segment. A lowercase acquisition (.e01, .e02, ...) is a complete
// set, not a single segment.
func TestEWFSegmentExtensionCase(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"lower.e01", "lower.e02", "lower.e03"} {
		require.NoError(t, ioutil.WriteFile(
			filepath.Join(dir, name), []byte("x"), 0600))
	}
	segments, err := ewfSegments(filepath.Join(dir, "lower.e01"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "lower.e01"),
		filepath.Join(dir, "lower.e02"),
		filepath.Join(dir, "lower.e03"),
	}, segments)

	for _, name := range []string{"upper.E01", "upper.E02"} {
		require.NoError(t, ioutil.WriteFile(
			filepath.Join(dir, name), []byte("x"), 0600))
	}
	segments, err = ewfSegments(filepath.Join(dir, "upper.E01"))
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, filepath.Join(dir, "upper.E02"), segments[1])
}

func TestUnrecognizedImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tiny.img")
	require.NoError(t, ioutil.WriteFile(path, []byte("abc"), 0600))

	_, err := Open(path)
	assert.True(t, errors.Is(err, ErrImageFormat))

	_, err = Open(filepath.Join(dir, "missing.img"))
	assert.True(t, os.IsNotExist(errors.Cause(err)))
}
