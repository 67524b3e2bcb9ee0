package filesystem

import (
	"context"
	"strings"
	"time"

	errors "github.com/pkg/errors"
	ntfs "www.velocidex.com/golang/go-ntfs/parser"
)

// MFT records are 1KB in 4KB clusters on every NTFS volume we care
// about.
const (
	mftClusterSize = 0x1000
	mftRecordSize  = 0x400
)

// A directory entry recoverable from filesystem metadata even though
// the file itself was unlinked.
type DeletedEntry struct {
	MFTId    int64     `json:"mft_id"`
	Path     string    `json:"path"`
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	IsDir    bool      `json:"is_dir"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// Scan the volume's $MFT for entries whose in-use flag is clear.
// These are files the filesystem has forgotten but whose metadata
// still survives.
func (self *Volume) EnumerateDeleted(ctx context.Context) (
	[]*DeletedEntry, error) {

	mft_reader, size, err := self.Open("$MFT")
	if err != nil {
		return nil, errors.Wrap(err, "opening $MFT")
	}

	result := []*DeletedEntry{}
	for hl := range ntfs.ParseMFTFile(
		ctx, mft_reader, size, mftClusterSize, mftRecordSize) {
		if hl.InUse {
			continue
		}

		name := hl.FileName()
		if name == "" || name == "." {
			continue
		}

		result = append(result, &DeletedEntry{
			MFTId:    hl.EntryNumber,
			Path:     strings.Join(hl.Components(), "\\"),
			Name:     name,
			Size:     hl.FileSize,
			IsDir:    hl.IsDir,
			Created:  hl.Created0x10,
			Modified: hl.LastModified0x10,
		})
	}
	return result, nil
}
