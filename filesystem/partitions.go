package filesystem

import (
	"encoding/binary"

	errors "github.com/pkg/errors"

	"github.com/Dhanushkumar2/computer-forensic/imaging"
)

type partition struct {
	Index  int
	Offset int64
	Size   int64
}

const (
	mbrSignatureOffset = 510
	mbrEntryOffset     = 446
	mbrEntrySize       = 16

	// MBR partition type marking a protective GPT.
	gptProtectiveType = 0xEE
)

// Scan the partition table at the start of the image. Returns an
// empty set (not an error) when no table is present - the caller
// falls back to treating the image as a single volume.
func scanPartitions(handle *imaging.Handle) ([]partition, error) {
	if handle.Size() < sectorSize {
		// Nothing this small can carry a filesystem - unmountable
		// media, not a read contract violation.
		return nil, errors.Wrap(ErrFilesystem, "image smaller than one sector")
	}

	sector, err := handle.ReadRange(0, sectorSize)
	if err != nil {
		return nil, err
	}

	if sector[mbrSignatureOffset] != 0x55 ||
		sector[mbrSignatureOffset+1] != 0xAA {
		return nil, nil
	}

	result := []partition{}
	for i := 0; i < 4; i++ {
		entry := sector[mbrEntryOffset+i*mbrEntrySize:][:mbrEntrySize]
		part_type := entry[4]
		start_lba := binary.LittleEndian.Uint32(entry[8:12])
		num_sectors := binary.LittleEndian.Uint32(entry[12:16])

		if part_type == 0 || num_sectors == 0 {
			continue
		}

		if part_type == gptProtectiveType {
			return scanGPT(handle)
		}

		result = append(result, partition{
			Index:  len(result),
			Offset: int64(start_lba) * sectorSize,
			Size:   int64(num_sectors) * sectorSize,
		})
	}
	return result, nil
}

func scanGPT(handle *imaging.Handle) ([]partition, error) {
	header, err := handle.ReadRange(1*sectorSize, sectorSize)
	if err != nil {
		return nil, err
	}

	if string(header[:8]) != "EFI PART" {
		return nil, errors.Wrap(imaging.ErrImageFormat,
			"protective MBR without GPT header")
	}

	entries_lba := binary.LittleEndian.Uint64(header[72:80])
	num_entries := binary.LittleEndian.Uint32(header[80:84])
	entry_size := binary.LittleEndian.Uint32(header[84:88])

	if entry_size < 128 || num_entries > 1024 {
		return nil, errors.Wrap(imaging.ErrImageFormat,
			"implausible GPT entry table")
	}

	table, err := handle.ReadRange(
		int64(entries_lba)*sectorSize, int64(num_entries)*int64(entry_size))
	if err != nil {
		return nil, err
	}

	result := []partition{}
	for i := uint32(0); i < num_entries; i++ {
		entry := table[i*entry_size:][:entry_size]

		// All zero type GUID means unused slot.
		empty := true
		for _, b := range entry[:16] {
			if b != 0 {
				empty = false
				break
			}
		}
		if empty {
			continue
		}

		first_lba := binary.LittleEndian.Uint64(entry[32:40])
		last_lba := binary.LittleEndian.Uint64(entry[40:48])
		if last_lba < first_lba {
			continue
		}

		result = append(result, partition{
			Index:  len(result),
			Offset: int64(first_lba) * sectorSize,
			Size:   int64(last_lba-first_lba+1) * sectorSize,
		})
	}
	return result, nil
}
