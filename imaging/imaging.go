// Image ingestion. Opens a disk image container (raw file, split raw
// set or an EWF evidence container) and presents it as a single
// seekable address space. Segmentation is hidden from callers - a
// read spanning a segment seam is byte exact.

package imaging

import (
	"fmt"
	"io"
	"os"
	"regexp"

	errors "github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Unrecoverable - the container is corrupt or not a supported
	// format. Jobs fail on this error.
	ErrImageFormat = errors.New("unrecognized or corrupt image format")

	// A read request outside the image's address space. This is a
	// contract violation by the caller, not a short read.
	ErrOutOfRange = errors.New("read past end of image")

	imageBytesRead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "image_bytes_read_total",
		Help: "Total bytes read from evidence containers.",
	})

	splitSegmentRegex = regexp.MustCompile(`^(.*)\.(\d{3})$`)
	ewfSegmentRegex   = regexp.MustCompile(`^(.*)\.([eE])(\d{2})$`)
)

const ewfSignature = "EVF\x09\x0d\x0a\xff\x00"

type Format string

const (
	FormatRaw      Format = "raw"
	FormatRawSplit Format = "raw-split"
	FormatEWF      Format = "ewf"
)

// A single logical address space over the evidence container.
// Immutable once opened.
type Handle struct {
	path   string
	format Format
	size   int64
	reader io.ReaderAt

	closers []io.Closer
}

func (self *Handle) Path() string {
	return self.path
}

func (self *Handle) Format() Format {
	return self.format
}

func (self *Handle) Size() int64 {
	return self.size
}

// Standard io.ReaderAt for parsers layered on top of the image.
func (self *Handle) ReadAt(buf []byte, offset int64) (int, error) {
	n, err := self.reader.ReadAt(buf, offset)
	imageBytesRead.Add(float64(n))
	return n, err
}

// Bounds checked read. A request extending past the end of the image
// fails outright so callers can tell a malformed request from a
// genuinely short read.
func (self *Handle) ReadRange(offset, length int64) ([]byte, error) {
	if offset < 0 || length < 0 || offset+length > self.size {
		return nil, errors.Wrapf(ErrOutOfRange,
			"read [%d, %d) in image of size %d",
			offset, offset+length, self.size)
	}

	buf := make([]byte, length)
	n, err := self.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if int64(n) != length {
		return nil, errors.Wrapf(ErrOutOfRange,
			"short read %d of %d at %d", n, length, offset)
	}
	return buf, nil
}

func (self *Handle) Close() error {
	var first_err error
	for _, closer := range self.closers {
		err := closer.Close()
		if err != nil && first_err == nil {
			first_err = err
		}
	}
	return first_err
}

// Open an evidence container. The format is detected from content,
// not only the file extension.
func Open(path string) (*Handle, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	header := make([]byte, len(ewfSignature))
	n, _ := fd.ReadAt(header, 0)
	if n < len(ewfSignature) {
		fd.Close()
		return nil, errors.Wrapf(ErrImageFormat,
			"%v is too small to be a disk image", path)
	}

	if string(header) == ewfSignature {
		fd.Close()
		return openEWF(path)
	}

	if splitSegmentRegex.MatchString(path) {
		fd.Close()
		return openSplitRaw(path)
	}

	return openRaw(path, fd)
}

func openRaw(path string, fd *os.File) (*Handle, error) {
	st, err := fd.Stat()
	if err != nil {
		fd.Close()
		return nil, err
	}

	return &Handle{
		path:    path,
		format:  FormatRaw,
		size:    st.Size(),
		reader:  fd,
		closers: []io.Closer{fd},
	}, nil
}

// List consecutive numbered segments starting at the given first
// segment. Numbering gaps terminate the set.
func listSegments(first string, re *regexp.Regexp,
	render func(base string, idx int) string) ([]string, error) {

	m := re.FindStringSubmatch(first)
	if m == nil {
		return []string{first}, nil
	}

	base := m[1]
	result := []string{}
	for idx := 1; ; idx++ {
		segment := render(base, idx)
		_, err := os.Stat(segment)
		if err != nil {
			break
		}
		result = append(result, segment)
	}

	if len(result) == 0 {
		return nil, errors.Wrapf(ErrImageFormat,
			"no segments found for %v", first)
	}
	return result, nil
}

func openSplitRaw(path string) (*Handle, error) {
	segments, err := listSegments(path, splitSegmentRegex,
		func(base string, idx int) string {
			return fmt.Sprintf("%s.%03d", base, idx)
		})
	if err != nil {
		return nil, err
	}

	set := &segmentSet{}
	for _, segment := range segments {
		err := set.add(segment)
		if err != nil {
			set.Close()
			return nil, err
		}
	}

	return &Handle{
		path:    path,
		format:  FormatRawSplit,
		size:    set.total,
		reader:  set,
		closers: []io.Closer{set},
	}, nil
}
