package filesystem

import (
	"fmt"
	"io"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	errors "github.com/pkg/errors"
	ntfs "www.velocidex.com/golang/go-ntfs/parser"

	"github.com/Dhanushkumar2/computer-forensic/imaging"
	"github.com/Dhanushkumar2/computer-forensic/utils"
)

const (
	// Directory lookups hit the same parents over and over while an
	// extractor walks profile trees, so we cache component -> mft id
	// maps per directory.
	dirCacheSize = 512

	// Ceiling for whole-file reads. Anything bigger must use Open()
	// and stream.
	maxReadFileSize = 512 * 1024 * 1024

	rootMFTId = 5
)

type cachedEntry struct {
	MftId int64
	Name  string
}

// One NTFS volume inside the image.
type Volume struct {
	Index  int
	Offset int64
	Size   int64

	ntfs_ctx  *ntfs.NTFSContext
	reader    *utils.OffsetReader
	dir_cache *lru.Cache

	warn func(format string, v ...interface{})
}

func newVolume(handle *imaging.Handle, part partition) (*Volume, error) {
	if !isNTFS(handle, part.Offset) {
		return nil, errors.New("not an NTFS volume")
	}

	size := part.Size
	if part.Offset+size > handle.Size() {
		size = handle.Size() - part.Offset
	}

	reader := &utils.OffsetReader{
		Reader: handle,
		Offset: part.Offset,
		Size:   size,
	}

	paged_reader, err := ntfs.NewPagedReader(
		reader, pagedReaderPageSize, pagedReaderCacheNum)
	if err != nil {
		return nil, err
	}

	ntfs_ctx, err := ntfs.GetNTFSContext(paged_reader, 0)
	if err != nil {
		return nil, err
	}

	dir_cache, err := lru.New(dirCacheSize)
	if err != nil {
		return nil, err
	}

	return &Volume{
		Index:     part.Index,
		Offset:    part.Offset,
		Size:      size,
		ntfs_ctx:  ntfs_ctx,
		reader:    reader,
		dir_cache: dir_cache,
		warn:      func(format string, v ...interface{}) {},
	}, nil
}

func (self *Volume) Name() string {
	return fmt.Sprintf("vol%d", self.Index)
}

// Raw sector read relative to the start of this volume. Extractors
// that parse structures below file granularity use this.
func (self *Volume) ReadRawSectors(sector, count int64) ([]byte, error) {
	buf := make([]byte, count*sectorSize)
	n, err := self.reader.ReadAt(buf, sector*sectorSize)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if int64(n) != count*sectorSize {
		return nil, errors.Wrapf(imaging.ErrOutOfRange,
			"sector read [%d, +%d) in volume of %d bytes",
			sector*sectorSize, count*sectorSize, self.Size)
	}
	return buf, nil
}

// List a directory. A damaged subtree yields a warning and an empty
// listing rather than aborting the whole walk.
func (self *Volume) ListDirectory(path string) []*ntfs.FileInfo {
	listing, err := self.listDirectory(path)
	if err != nil {
		if !errors.Is(err, ErrFileNotFound) {
			self.warn("%v: listing %v: %v", self.Name(), path, err)
		}
		return nil
	}
	return listing
}

func (self *Volume) listDirectory(path string) (
	result []*ntfs.FileInfo, err error) {
	defer func() {
		r := recover()
		if r != nil {
			err = errors.Errorf("corrupt directory structure: %v", r)
		}
	}()

	dir, err := self.openEntryByPath(path)
	if err != nil {
		return nil, err
	}

	return ntfs.ListDir(self.ntfs_ctx, dir), nil
}

func (self *Volume) Stat(path string) (*ntfs.FileInfo, error) {
	components := utils.SplitComponents(path)
	if len(components) == 0 {
		return nil, errors.Wrap(ErrFileNotFound, path)
	}

	parent := utils.JoinComponents(components[:len(components)-1]...)
	base := strings.ToLower(components[len(components)-1])

	for _, info := range self.ListDirectory(parent) {
		if strings.ToLower(info.Name) == base {
			return info, nil
		}
	}
	return nil, errors.Wrap(ErrFileNotFound, path)
}

// Open a file for random access reads. Returns the reader and the
// file size.
func (self *Volume) Open(path string) (io.ReaderAt, int64, error) {
	info, err := self.Stat(path)
	if err != nil {
		return nil, 0, err
	}
	if info.IsDir {
		return nil, 0, errors.Wrapf(ErrFileNotFound,
			"%v is a directory", path)
	}

	components := utils.SplitComponents(path)
	data, err := ntfs.GetDataForPath(self.ntfs_ctx,
		"\\"+utils.JoinComponents(components...))
	if err != nil {
		return nil, 0, errors.Wrap(ErrFileNotFound, path)
	}

	return data, info.Size, nil
}

func (self *Volume) ReadFile(path string) ([]byte, error) {
	reader, size, err := self.Open(path)
	if err != nil {
		return nil, err
	}

	if size > maxReadFileSize {
		return nil, errors.Errorf(
			"%v is too large to slurp (%d bytes)", path, size)
	}

	buf := make([]byte, size)
	n, err := reader.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

type UserProfile struct {
	Name string
	Path string
}

// Enumerate user profile roots. Modern layouts keep them under
// \Users, pre-Vista under \Documents and Settings.
func (self *Volume) ListUserProfiles() []UserProfile {
	result := []UserProfile{}

	for _, root := range []string{"Users", "Documents and Settings"} {
		for _, info := range self.ListDirectory(root) {
			if !info.IsDir {
				continue
			}
			switch strings.ToLower(info.Name) {
			case "all users", "default", "default user", "public", ".", "..":
				continue
			}
			result = append(result, UserProfile{
				Name: info.Name,
				Path: root + "\\" + info.Name,
			})
		}
	}
	return result
}

// Walk the directory index from the root entry to the named path.
func (self *Volume) openEntryByPath(path string) (*ntfs.MFT_ENTRY, error) {
	dir, err := self.ntfs_ctx.GetMFT(rootMFTId)
	if err != nil {
		return nil, err
	}

	dir_path := ""
	for _, component := range utils.SplitComponents(path) {
		next, err := self.lookupComponent(dir, dir_path, component)
		if err != nil {
			return nil, err
		}
		dir = next
		dir_path = dir_path + "\\" + component
	}
	return dir, nil
}

func (self *Volume) lookupComponent(
	dir *ntfs.MFT_ENTRY, dir_path, component string) (
	*ntfs.MFT_ENTRY, error) {

	lower_component := strings.ToLower(component)

	cached, pres := self.dir_cache.Get(dir_path)
	if !pres {
		// Populate the cache with the whole directory - we will
		// almost certainly come back for siblings.
		lookup := make(map[string]cachedEntry)
		for _, idx_record := range dir.Dir(self.ntfs_ctx) {
			file := idx_record.File()
			if file.NameType().Name == "DOS" {
				continue
			}
			name := file.Name()
			lookup[strings.ToLower(name)] = cachedEntry{
				MftId: int64(idx_record.MftReference()),
				Name:  name,
			}
		}
		self.dir_cache.Add(dir_path, lookup)
		cached = lookup
	}

	lookup, _ := cached.(map[string]cachedEntry)
	entry, pres := lookup[lower_component]
	if !pres {
		return nil, errors.Wrapf(ErrFileNotFound,
			"%v in %v", component, dir_path)
	}
	return self.ntfs_ctx.GetMFT(entry.MftId)
}
