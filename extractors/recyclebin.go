// Recycle bin extractor. $Recycle.Bin holds one $I metadata file per
// deleted object; the $I record alone is enough to synthesize the
// deletion event even when the $R data file is long gone.

package extractors

import (
	"context"
	"encoding/binary"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/Velocidex/ordereddict"
	errors "github.com/pkg/errors"

	"github.com/Dhanushkumar2/computer-forensic/artifacts"
	"github.com/Dhanushkumar2/computer-forensic/filesystem"
	"github.com/Dhanushkumar2/computer-forensic/utils"
)

const recycleBinRoot = "$Recycle.Bin"

type RecycleBinExtractor struct{}

func (self RecycleBinExtractor) Name() string {
	return "recyclebin"
}

func (self RecycleBinExtractor) Extract(
	ctx context.Context, walker *filesystem.Walker,
	case_id string, output chan<- *artifacts.Artifact) error {

	for _, volume := range walker.ListVolumes() {
		// No recycle bin on this volume is not an error - it just
		// yields nothing.
		for _, sid_dir := range volume.ListDirectory(recycleBinRoot) {
			if !sid_dir.IsDir {
				continue
			}

			sid_path := recycleBinRoot + "\\" + sid_dir.Name
			for _, info := range volume.ListDirectory(sid_path) {
				if !strings.HasPrefix(info.Name, "$I") {
					continue
				}

				file_path := sid_path + "\\" + info.Name
				data, err := volume.ReadFile(file_path)
				if err != nil {
					continue
				}

				record, err := ParseRecycleBinRecord(data)
				if err != nil {
					// Corrupt $I record - skip it, keep walking.
					continue
				}

				artifact := newDeletedFileArtifact(
					case_id, volume.Name()+"\\"+file_path,
					sid_dir.Name, record)
				if !emit(ctx, output, self.Name(), artifact) {
					return ctx.Err()
				}
			}
		}

		// Also synthesize deletions from unlinked MFT entries whose
		// bytes may be gone entirely.
		deleted, err := volume.EnumerateDeleted(ctx)
		if err != nil {
			continue
		}
		for _, entry := range deleted {
			if entry.IsDir || entry.Modified.IsZero() {
				continue
			}

			artifact := &artifacts.Artifact{
				CaseId: case_id,
				Type:   artifacts.DeletedFile,
				NaturalKey: artifacts.MakeKey(
					entry.Path, artifacts.TimeKey(entry.Modified)),
				Source:    volume.Name() + "\\$MFT",
				Timestamp: entry.Modified,
				Payload: ordereddict.NewDict().
					Set("original_path", entry.Path).
					Set("file_size", entry.Size).
					Set("mft_id", entry.MFTId).
					Set("recovery", "mft_unallocated"),
			}
			if !emit(ctx, output, self.Name(), artifact) {
				return ctx.Err()
			}
		}
	}
	return nil
}

type RecycleBinRecord struct {
	Version      uint64
	FileSize     uint64
	DeletionTime time.Time
	OriginalPath string
}

// Decode a $I metadata record. Version 1 (Vista-8) carries a fixed
// 520 byte path, version 2 (10+) a length prefixed one.
func ParseRecycleBinRecord(data []byte) (*RecycleBinRecord, error) {
	if len(data) < 24 {
		return nil, errors.New("$I record truncated")
	}

	result := &RecycleBinRecord{
		Version:      binary.LittleEndian.Uint64(data[0:8]),
		FileSize:     binary.LittleEndian.Uint64(data[8:16]),
		DeletionTime: utils.WinFileTime(binary.LittleEndian.Uint64(data[16:24])),
	}

	switch result.Version {
	case 1:
		if len(data) < 24+520 {
			return nil, errors.New("$I v1 record truncated")
		}
		result.OriginalPath = decodeUTF16Z(data[24 : 24+520])

	case 2:
		if len(data) < 28 {
			return nil, errors.New("$I v2 record truncated")
		}
		name_len := binary.LittleEndian.Uint32(data[24:28])
		if name_len > 0x8000 || len(data) < 28+int(name_len)*2 {
			return nil, errors.New("$I v2 path length implausible")
		}
		result.OriginalPath = decodeUTF16Z(data[28 : 28+int(name_len)*2])

	default:
		return nil, errors.Errorf("unknown $I version %v", result.Version)
	}

	if result.OriginalPath == "" {
		return nil, errors.New("$I record has no path")
	}
	return result, nil
}

func decodeUTF16Z(data []byte) string {
	u16 := make([]uint16, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		c := binary.LittleEndian.Uint16(data[i : i+2])
		if c == 0 {
			break
		}
		u16 = append(u16, c)
	}
	return string(utf16.Decode(u16))
}

func newDeletedFileArtifact(case_id, source, sid string,
	record *RecycleBinRecord) *artifacts.Artifact {
	return &artifacts.Artifact{
		CaseId: case_id,
		Type:   artifacts.DeletedFile,
		NaturalKey: artifacts.MakeKey(
			record.OriginalPath, artifacts.TimeKey(record.DeletionTime)),
		Source:    source,
		Timestamp: record.DeletionTime,
		Payload: ordereddict.NewDict().
			Set("original_path", record.OriginalPath).
			Set("file_size", int64(record.FileSize)).
			Set("sid", sid).
			Set("recovery", "recycle_bin"),
	}
}

func init() {
	RegisterExtractor(&RecycleBinExtractor{})
}
