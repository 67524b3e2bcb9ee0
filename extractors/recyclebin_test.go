package extractors

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeUTF16(s string) []byte {
	result := make([]byte, 0, len(s)*2+2)
	for _, r := range s {
		result = append(result, byte(r), byte(r>>8))
	}
	return append(result, 0, 0)
}

func filetimeOf(t time.Time) uint64 {
	return uint64(t.UnixNano()/100 + 116444736000000000)
}

func makeDollarIRecord(version uint64, path string) []byte {
	deletion := time.Date(2023, 4, 1, 10, 30, 0, 0, time.UTC)

	header := make([]byte, 24)
	binary.LittleEndian.PutUint64(header[0:], version)
	binary.LittleEndian.PutUint64(header[8:], 4096)
	binary.LittleEndian.PutUint64(header[16:], filetimeOf(deletion))

	encoded := encodeUTF16(path)
	switch version {
	case 1:
		fixed := make([]byte, 520)
		copy(fixed, encoded)
		return append(header, fixed...)

	case 2:
		length := make([]byte, 4)
		// Length includes the terminating null, in characters.
		binary.LittleEndian.PutUint32(length, uint32(len(encoded)/2))
		return append(append(header, length...), encoded...)
	}
	return header
}

func TestParseRecycleBinV1(t *testing.T) {
	record, err := ParseRecycleBinRecord(
		makeDollarIRecord(1, "C:\\Users\\bob\\secret.docx"))
	require.NoError(t, err)

	assert.Equal(t, "C:\\Users\\bob\\secret.docx", record.OriginalPath)
	assert.Equal(t, uint64(4096), record.FileSize)
	assert.Equal(t,
		time.Date(2023, 4, 1, 10, 30, 0, 0, time.UTC),
		record.DeletionTime)
}

func TestParseRecycleBinV2(t *testing.T) {
	record, err := ParseRecycleBinRecord(
		makeDollarIRecord(2, "D:\\exfil\\dump.zip"))
	require.NoError(t, err)

	assert.Equal(t, "D:\\exfil\\dump.zip", record.OriginalPath)
	assert.Equal(t, uint64(2), record.Version)
}

func TestParseRecycleBinBadRecords(t *testing.T) {
	// Truncated header.
	_, err := ParseRecycleBinRecord(make([]byte, 10))
	assert.Error(t, err)

	// Unknown version.
	_, err = ParseRecycleBinRecord(makeDollarIRecord(9, "x"))
	assert.Error(t, err)

	// V2 with an implausible path length.
	data := makeDollarIRecord(2, "x")
	binary.LittleEndian.PutUint32(data[24:], 0xFFFFFF)
	_, err = ParseRecycleBinRecord(data)
	assert.Error(t, err)
}
