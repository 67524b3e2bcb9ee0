package extractors

import (
	"encoding/binary"
	"time"

	errors "github.com/pkg/errors"

	"github.com/Dhanushkumar2/computer-forensic/utils"
)

// Shell link header constants.
const (
	lnkHeaderSize = 0x4C

	lnkFlagHasLinkTargetIDList = 0x01
	lnkFlagHasLinkInfo         = 0x02
)

var lnkCLSID = []byte{
	0x01, 0x14, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xc0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x46,
}

type ShellLink struct {
	TargetPath   string
	TargetSize   uint32
	CreationTime time.Time
	AccessTime   time.Time
	WriteTime    time.Time
}

// Decode the fixed shell link header and the LinkInfo local base path
// of a .lnk file. That is all the triage timeline needs - the shell
// item id list is skipped.
func ParseShellLink(data []byte) (*ShellLink, error) {
	if len(data) < lnkHeaderSize {
		return nil, errors.New("lnk file truncated")
	}

	if binary.LittleEndian.Uint32(data[0:4]) != lnkHeaderSize {
		return nil, errors.New("bad lnk header size")
	}
	for i, b := range lnkCLSID {
		if data[4+i] != b {
			return nil, errors.New("bad lnk clsid")
		}
	}

	flags := binary.LittleEndian.Uint32(data[0x14:0x18])
	result := &ShellLink{
		CreationTime: utils.WinFileTime(binary.LittleEndian.Uint64(data[0x1C:0x24])),
		AccessTime:   utils.WinFileTime(binary.LittleEndian.Uint64(data[0x24:0x2C])),
		WriteTime:    utils.WinFileTime(binary.LittleEndian.Uint64(data[0x2C:0x34])),
		TargetSize:   binary.LittleEndian.Uint32(data[0x34:0x38]),
	}

	offset := lnkHeaderSize

	// Skip the shell item id list if present.
	if flags&lnkFlagHasLinkTargetIDList != 0 {
		if len(data) < offset+2 {
			return nil, errors.New("lnk idlist truncated")
		}
		id_list_size := int(binary.LittleEndian.Uint16(data[offset : offset+2]))
		offset += 2 + id_list_size
	}

	if flags&lnkFlagHasLinkInfo != 0 {
		path, err := parseLinkInfo(data, offset)
		if err != nil {
			return nil, err
		}
		result.TargetPath = path
	}

	if result.TargetPath == "" {
		return nil, errors.New("lnk has no resolvable target path")
	}
	return result, nil
}

func parseLinkInfo(data []byte, offset int) (string, error) {
	if len(data) < offset+28 {
		return "", errors.New("lnk linkinfo truncated")
	}
	info := data[offset:]

	info_size := binary.LittleEndian.Uint32(info[0:4])
	if int(info_size) > len(info) || info_size < 28 {
		return "", errors.New("lnk linkinfo size implausible")
	}

	info_flags := binary.LittleEndian.Uint32(info[8:12])
	// VolumeIDAndLocalBasePath
	if info_flags&0x01 == 0 {
		return "", errors.New("lnk target is not a local path")
	}

	base_path_offset := binary.LittleEndian.Uint32(info[16:20])
	if base_path_offset >= info_size {
		return "", errors.New("lnk base path offset out of range")
	}

	// Null terminated ANSI string.
	path := info[base_path_offset:info_size]
	end := 0
	for end < len(path) && path[end] != 0 {
		end++
	}
	return string(path[:end]), nil
}
