// Package zipwriter is a minimal, purpose-built ZIP writer matching the
// exact byte layout an external Minecraft replay viewer expects: local
// file headers with placeholder CRC/sizes patched back after streaming,
// raw deflate entries, and a central directory. Grounded byte-for-byte
// on sniffcraft/src/Zip/ZeptoZip.cpp; stdlib hash/crc32 and
// compress/flate supply the primitives that file hand-rolls in C++ (see
// DESIGN.md for why these two stay on the standard library).
package zipwriter

import (
	"compress/flate"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"time"
)

const (
	localFileHeaderSignature = 0x04034b50
	centralDirSignature      = 0x02014b50
	endOfCentralDirSignature = 0x06054b50
	versionNeeded            = 20
	versionMadeBy            = 20
	compressionMethodDeflate = 8
	internalFileAttributes   = 0x0001
	externalFileAttributes   = 0x00000020
)

// dosDateTime packs t into MS-DOS date/time fields the way
// sniffcraft/include/sniffcraft/Zip/DosTime.hpp does: year-since-1980
// (5 bits), month, day in the date word; hour, minute, second/2 in the
// time word.
func dosDateTime(t time.Time) (date uint16, timeWord uint16) {
	date = uint16((t.Year()-1980)<<9 | int(t.Month())<<5 | t.Day())
	timeWord = uint16(t.Hour()<<11 | t.Minute()<<5 | t.Second()/2)
	return date, timeWord
}

// CreateZipArchive writes outPath as a ZIP containing each inputs[i]
// file's contents stored under filenames[i], streaming raw deflate
// directly from the input file to the output file so memory stays
// bounded regardless of capture size.
func CreateZipArchive(outPath string, inputs, filenames []string) error {
	if len(inputs) != len(filenames) {
		return fmt.Errorf("zipwriter: inputs and filenames length mismatch")
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("zipwriter: create %s: %w", outPath, err)
	}
	defer out.Close()

	date, timeWord := dosDateTime(time.Now())

	crcs := make([]uint32, len(inputs))
	compressedSizes := make([]uint32, len(inputs))
	rawSizes := make([]uint32, len(inputs))
	headerOffsets := make([]uint32, len(inputs))

	var offset uint32
	for i, inputPath := range inputs {
		headerOffsets[i] = offset
		n, err := writeLocalEntry(out, inputPath, filenames[i], date, timeWord)
		if err != nil {
			return err
		}
		crcs[i] = n.crc
		compressedSizes[i] = n.compressedSize
		rawSizes[i] = n.rawSize
		offset += n.totalBytes
	}

	centralDirStart := offset
	var centralDirSize uint32
	for i, name := range filenames {
		n, err := writeCentralDirEntry(out, name, date, timeWord, crcs[i], compressedSizes[i], rawSizes[i], headerOffsets[i])
		if err != nil {
			return err
		}
		centralDirSize += n
	}

	return writeEndOfCentralDir(out, uint16(len(inputs)), centralDirSize, centralDirStart)
}

type entryResult struct {
	crc            uint32
	compressedSize uint32
	rawSize        uint32
	totalBytes     uint32
}

func writeLocalEntry(out *os.File, inputPath, filename string, date, timeWord uint16) (entryResult, error) {
	var written uint32

	header := make([]byte, 0, 30+len(filename))
	header = append(header, le32(localFileHeaderSignature)...)
	header = append(header, le16(versionNeeded)...)
	header = append(header, le16(0)...) // general purpose flag
	header = append(header, le16(compressionMethodDeflate)...)
	header = append(header, le16(timeWord)...)
	header = append(header, le16(date)...)
	crcOffsetInHeader := len(header)
	header = append(header, le32(0)...) // CRC-32 placeholder
	compSizeOffsetInHeader := len(header)
	header = append(header, le32(0)...) // compressed size placeholder
	rawSizeOffsetInHeader := len(header)
	header = append(header, le32(0)...) // uncompressed size placeholder
	header = append(header, le16(uint16(len(filename)))...)
	header = append(header, le16(0)...) // extra field length
	header = append(header, []byte(filename)...)

	headerStart, err := out.Seek(0, io.SeekCurrent)
	if err != nil {
		return entryResult{}, fmt.Errorf("zipwriter: seek: %w", err)
	}
	if _, err := out.Write(header); err != nil {
		return entryResult{}, fmt.Errorf("zipwriter: write local header: %w", err)
	}
	written += uint32(len(header))

	in, err := os.Open(inputPath)
	if err != nil {
		return entryResult{}, fmt.Errorf("zipwriter: open %s: %w", inputPath, err)
	}
	defer in.Close()

	crcWriter := crc32.NewIEEE()
	tee := io.TeeReader(in, crcWriter)

	compStart, err := out.Seek(0, io.SeekCurrent)
	if err != nil {
		return entryResult{}, fmt.Errorf("zipwriter: seek: %w", err)
	}
	fw, err := flate.NewWriter(out, flate.DefaultCompression)
	if err != nil {
		return entryResult{}, fmt.Errorf("zipwriter: init deflate: %w", err)
	}
	rawSize, err := io.Copy(fw, tee)
	if err != nil {
		return entryResult{}, fmt.Errorf("zipwriter: deflate stream: %w", err)
	}
	if err := fw.Close(); err != nil {
		return entryResult{}, fmt.Errorf("zipwriter: close deflate stream: %w", err)
	}
	compEnd, err := out.Seek(0, io.SeekCurrent)
	if err != nil {
		return entryResult{}, fmt.Errorf("zipwriter: seek: %w", err)
	}
	compressedSize := uint32(compEnd - compStart)
	written += compressedSize

	crc := crcWriter.Sum32()

	if _, err := out.WriteAt(le32(crc), headerStart+int64(crcOffsetInHeader)); err != nil {
		return entryResult{}, fmt.Errorf("zipwriter: patch crc: %w", err)
	}
	if _, err := out.WriteAt(le32(compressedSize), headerStart+int64(compSizeOffsetInHeader)); err != nil {
		return entryResult{}, fmt.Errorf("zipwriter: patch compressed size: %w", err)
	}
	if _, err := out.WriteAt(le32(uint32(rawSize)), headerStart+int64(rawSizeOffsetInHeader)); err != nil {
		return entryResult{}, fmt.Errorf("zipwriter: patch raw size: %w", err)
	}

	return entryResult{crc: crc, compressedSize: compressedSize, rawSize: uint32(rawSize), totalBytes: written}, nil
}

func writeCentralDirEntry(out *os.File, filename string, date, timeWord uint16, crc, compressedSize, rawSize, headerOffset uint32) (uint32, error) {
	entry := make([]byte, 0, 46+len(filename))
	entry = append(entry, le32(centralDirSignature)...)
	entry = append(entry, le16(versionMadeBy)...)
	entry = append(entry, le16(versionNeeded)...)
	entry = append(entry, le16(0)...) // general purpose flag
	entry = append(entry, le16(compressionMethodDeflate)...)
	entry = append(entry, le16(timeWord)...)
	entry = append(entry, le16(date)...)
	entry = append(entry, le32(crc)...)
	entry = append(entry, le32(compressedSize)...)
	entry = append(entry, le32(rawSize)...)
	entry = append(entry, le16(uint16(len(filename)))...)
	entry = append(entry, le16(0)...) // extra field length
	entry = append(entry, le16(0)...) // file comment length
	entry = append(entry, le16(0)...) // disk number start
	entry = append(entry, le16(internalFileAttributes)...)
	entry = append(entry, le32(externalFileAttributes)...)
	entry = append(entry, le32(headerOffset)...)
	entry = append(entry, []byte(filename)...)

	if _, err := out.Write(entry); err != nil {
		return 0, fmt.Errorf("zipwriter: write central dir entry: %w", err)
	}
	return uint32(len(entry)), nil
}

func writeEndOfCentralDir(out *os.File, numRecords uint16, centralDirSize, centralDirOffset uint32) error {
	eocd := make([]byte, 0, 22)
	eocd = append(eocd, le32(endOfCentralDirSignature)...)
	eocd = append(eocd, le16(0)...) // number of this disk
	eocd = append(eocd, le16(0)...) // disk where central dir starts
	eocd = append(eocd, le16(numRecords)...)
	eocd = append(eocd, le16(numRecords)...)
	eocd = append(eocd, le32(centralDirSize)...)
	eocd = append(eocd, le32(centralDirOffset)...)
	eocd = append(eocd, le16(0)...) // comment length
	_, err := out.Write(eocd)
	if err != nil {
		return fmt.Errorf("zipwriter: write end of central directory: %w", err)
	}
	return nil
}

func le16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}
