// The filesystem walker interprets an ingested image as a set of
// NTFS volumes and exposes the read primitives extractors need:
// file-by-path reads, directory listings, deleted entry recovery and
// raw sector reads.

package filesystem

import (
	"sync"

	errors "github.com/pkg/errors"

	"github.com/Dhanushkumar2/computer-forensic/imaging"
)

var (
	// Unrecoverable at mount time - no recognizable partition table
	// or no supported filesystem anywhere on the image.
	ErrFilesystem = errors.New("no supported filesystem found")

	// Recoverable - the requested path does not exist on this
	// volume.
	ErrFileNotFound = errors.New("file not found")
)

const (
	sectorSize = 512

	// Page size and cache entries for the paged reader feeding the
	// ntfs parser. The MFT gets traversed over and over so caching
	// pays for itself quickly.
	pagedReaderPageSize = 4096
	pagedReaderCacheNum = 10000
)

// A mounted view over one disk image. Traversal is tolerant: local
// corruption (a damaged subtree, one broken volume) yields warnings,
// not failure - forensic images are frequently imperfect.
type Walker struct {
	mu sync.Mutex

	handle  *imaging.Handle
	volumes []*Volume

	warnings []string
}

func (self *Walker) ListVolumes() []*Volume {
	return self.volumes
}

// Raw sector read against the whole image address space.
func (self *Walker) ReadRawSectors(sector, count int64) ([]byte, error) {
	return self.handle.ReadRange(sector*sectorSize, count*sectorSize)
}

func (self *Walker) addWarning(format string, v ...interface{}) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.warnings = append(self.warnings, errors.Errorf(format, v...).Error())
}

// Warnings accumulated during mounting and traversal. Never cleared -
// callers attach them to the job record.
func (self *Walker) Warnings() []string {
	self.mu.Lock()
	defer self.mu.Unlock()

	return append([]string{}, self.warnings...)
}

// A walker over no volumes at all. Lets the extraction pipeline be
// driven without a mounted image.
func NewEmptyWalker() *Walker {
	return &Walker{}
}

// Interpret the image as partitioned or unpartitioned NTFS media.
// Only a total failure to find any filesystem is fatal.
func Mount(handle *imaging.Handle) (*Walker, error) {
	result := &Walker{handle: handle}

	partitions, err := scanPartitions(handle)
	if err != nil {
		return nil, err
	}

	// No partition table - maybe the image starts directly with a
	// volume boot record.
	if len(partitions) == 0 {
		partitions = []partition{{Index: 0, Offset: 0, Size: handle.Size()}}
	}

	for _, part := range partitions {
		volume, err := newVolume(handle, part)
		if err != nil {
			result.addWarning(
				"volume %d at offset %d: %v", part.Index, part.Offset, err)
			continue
		}
		volume.warn = result.addWarning
		result.volumes = append(result.volumes, volume)
	}

	if len(result.volumes) == 0 {
		return nil, errors.Wrapf(ErrFilesystem, "image %v", handle.Path())
	}
	return result, nil
}

// Check for the NTFS OEM magic in a volume boot record.
func isNTFS(handle *imaging.Handle, offset int64) bool {
	header := make([]byte, 8)
	n, _ := handle.ReadAt(header, offset+3)
	return n == 8 && string(header) == "NTFS    "
}
