package tree

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/jamesainslie/bit/pkg/bit/storage"
)

// Index format constants.
const (
	// FormatVersion is the index version written by Encode.
	FormatVersion uint16 = 1

	// MaxNameLength bounds the encoded length of a single entry name.
	MaxNameLength = 64 * 1024

	// MaxDepth bounds directory nesting. Encoders refuse deeper trees and
	// Decode rejects them.
	MaxDepth = 4096

	// TempSuffix names the file Save writes before replacing the index.
	TempSuffix = ".tmp"
)

// Magic opens every index written with a header.
var Magic = [4]byte{'B', 'I', 'D', 'X'}

// Tick conversion constants: ticks are 100ns units since 0001-01-01 UTC.
const (
	ticksPerSecond = int64(time.Second / Tick)
	unixEpochTicks = int64(621355968000000000)
	maxTicks       = int64(3155378975999999999)
)

// ErrCorrupt is returned when an index stream is truncated or malformed.
var ErrCorrupt = errors.New("corrupt index")

// ErrTimeRange is returned when a timestamp cannot be represented in ticks.
var ErrTimeRange = errors.New("timestamp out of index range")

// ErrTooDeep is returned for directories nested deeper than MaxDepth.
var ErrTooDeep = errors.New("directory nesting too deep")

func checkDepth(depth int) error {
	if depth > MaxDepth {
		return fmt.Errorf("%w: more than %d levels", ErrTooDeep, MaxDepth)
	}
	return nil
}

// TimeToTicks converts t to index ticks.
func TimeToTicks(t time.Time) (int64, error) {
	t = normalizeTime(t)
	sec := t.Unix()
	// Bounds of years 1 and 9999 in Unix seconds.
	if sec < -62135596800 || sec > 253402300799 {
		return 0, fmt.Errorf("%w: %s", ErrTimeRange, t.Format(time.RFC3339))
	}
	return sec*ticksPerSecond + int64(t.Nanosecond())/int64(Tick) + unixEpochTicks, nil
}

// TicksToTime converts index ticks to a UTC time.
func TicksToTime(ticks int64) time.Time {
	d := ticks - unixEpochTicks
	sec := d / ticksPerSecond
	rem := d % ticksPerSecond
	if rem < 0 {
		sec--
		rem += ticksPerSecond
	}
	return time.Unix(sec, rem*int64(Tick)).UTC()
}

// Save writes t to path through dev. The index is encoded into a sibling
// temporary file that replaces path only once it is complete, so a failed
// save leaves the previous index intact.
func (t *Tree) Save(dev storage.Device, path string) error {
	tmp := path + TempSuffix
	if err := t.saveTo(dev, tmp); err != nil {
		_ = dev.Remove(tmp)
		return err
	}
	if err := dev.Rename(tmp, path); err != nil {
		_ = dev.Remove(tmp)
		return fmt.Errorf("replacing index %s: %w", path, err)
	}
	return nil
}

// saveTo encodes t into a fresh file at path. The device stream is
// seekable, so the child counts are backpatched in place.
func (t *Tree) saveTo(dev storage.Device, path string) (err error) {
	f, err := dev.Open(path, storage.ModeCreate)
	if err != nil {
		return fmt.Errorf("opening index %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing index %s: %w", path, closeErr)
		}
	}()

	if err := Encode(t, f); err != nil {
		return fmt.Errorf("writing index %s: %w", path, err)
	}
	return nil
}

// Encode writes t to w. Each node is preceded by a placeholder child count
// that is patched once the node's children have been written.
func Encode(t *Tree, w io.WriteSeeker) error {
	start, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("locating stream position: %w", err)
	}

	e := &seekEncoder{ws: w, bw: bufio.NewWriter(w), pos: start}
	e.writeHeader()
	e.writeNode(t, Root, 0)
	if e.err == nil {
		e.err = e.bw.Flush()
	}
	return e.err
}

// EncodeStream writes t to w without seeking. Child counts come from the
// counters maintained by Append; the bytes are identical to Encode's.
func EncodeStream(t *Tree, w io.Writer) error {
	bw := bufio.NewWriter(w)
	var scratch [8]byte

	copy(scratch[:4], Magic[:])
	binary.LittleEndian.PutUint16(scratch[4:6], FormatVersion)
	binary.LittleEndian.PutUint16(scratch[6:8], 0)
	_, _ = bw.Write(scratch[:8])

	var writeNode func(parent NodeID, depth int) error
	writeNode = func(parent NodeID, depth int) error {
		if err := checkDepth(depth); err != nil {
			return err
		}
		n := t.nodes[parent]
		binary.LittleEndian.PutUint32(scratch[:4], uint32(int32(n.subfolders+n.files)))
		if _, err := bw.Write(scratch[:4]); err != nil {
			return err
		}

		for c := n.firstChild; c != None; c = t.nodes[c].next {
			if err := writeEntry(bw, t.nodes[c].entry); err != nil {
				return err
			}
			if t.nodes[c].entry.IsDir {
				if err := writeNode(c, depth+1); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := writeNode(Root, 0); err != nil {
		return err
	}
	return bw.Flush()
}

type seekEncoder struct {
	ws  io.WriteSeeker
	bw  *bufio.Writer
	pos int64
	err error
}

func (e *seekEncoder) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.bw.Write(p)
	e.pos += int64(n)
	e.err = err
	return n, err
}

func (e *seekEncoder) writeHeader() {
	var hdr [8]byte
	copy(hdr[:4], Magic[:])
	binary.LittleEndian.PutUint16(hdr[4:6], FormatVersion)
	_, _ = e.Write(hdr[:])
}

func (e *seekEncoder) writeNode(t *Tree, parent NodeID, depth int) {
	if e.err != nil {
		return
	}
	if e.err = checkDepth(depth); e.err != nil {
		return
	}
	offset := e.pos
	_, _ = e.Write([]byte{0, 0, 0, 0})

	var count int32
	for c := t.nodes[parent].firstChild; c != None; c = t.nodes[c].next {
		if e.err != nil {
			return
		}
		if err := writeEntry(e, t.nodes[c].entry); err != nil {
			e.err = err
			return
		}
		if t.nodes[c].entry.IsDir {
			e.writeNode(t, c, depth+1)
		}
		count++
	}

	e.patch(offset, count)
}

// patch overwrites the placeholder at offset with count and returns to the
// end of the stream.
func (e *seekEncoder) patch(offset int64, count int32) {
	if e.err != nil {
		return
	}
	if e.err = e.bw.Flush(); e.err != nil {
		return
	}
	if _, e.err = e.ws.Seek(offset, io.SeekStart); e.err != nil {
		return
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(count))
	if _, e.err = e.ws.Write(b[:]); e.err != nil {
		return
	}
	_, e.err = e.ws.Seek(e.pos, io.SeekStart)
}

func writeEntry(w io.Writer, entry Entry) error {
	created, err := TimeToTicks(entry.CreationTime)
	if err != nil {
		return fmt.Errorf("entry %q creation time: %w", entry.Name, err)
	}
	written, err := TimeToTicks(entry.LastWriteTime)
	if err != nil {
		return fmt.Errorf("entry %q last write time: %w", entry.Name, err)
	}

	buf := make([]byte, 0, binary.MaxVarintLen64+len(entry.Name)+25)
	buf = binary.AppendUvarint(buf, uint64(len(entry.Name)))
	buf = append(buf, entry.Name...)
	if entry.IsDir {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = binary.LittleEndian.AppendUint64(buf, uint64(entry.Length))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(created))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(written))

	_, err = w.Write(buf)
	return err
}

// Decode reads an index from r. Streams without the header are read as the
// original headerless layout. Any malformation fails with ErrCorrupt and no
// tree is returned.
func Decode(r io.Reader) (*Tree, error) {
	d := &decoder{br: bufio.NewReader(r), t: New()}

	if err := d.readHeader(); err != nil {
		return nil, err
	}
	if err := d.readNode(Root, 0); err != nil {
		return nil, err
	}
	if _, err := d.br.ReadByte(); err == nil {
		return nil, fmt.Errorf("%w: trailing data after root node", ErrCorrupt)
	} else if !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading index: %w", err)
	}

	return d.t, nil
}

type decoder struct {
	br *bufio.Reader
	t  *Tree
}

func (d *decoder) readHeader() error {
	peek, err := d.br.Peek(len(Magic))
	if err != nil {
		return d.fail(err, "header")
	}
	if !bytes.Equal(peek, Magic[:]) {
		return nil
	}

	var hdr [8]byte
	if _, err := io.ReadFull(d.br, hdr[:]); err != nil {
		return d.fail(err, "header")
	}
	if v := binary.LittleEndian.Uint16(hdr[4:6]); v != FormatVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrCorrupt, v)
	}
	return nil
}

func (d *decoder) readNode(parent NodeID, depth int) error {
	if err := checkDepth(depth); err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	count, err := d.readInt32("child count")
	if err != nil {
		return err
	}
	if count < 0 {
		return fmt.Errorf("%w: negative child count %d", ErrCorrupt, count)
	}

	for i := int32(0); i < count; i++ {
		entry, err := d.readEntry()
		if err != nil {
			return err
		}
		id, err := d.t.Append(parent, entry)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if entry.IsDir {
			if err := d.readNode(id, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *decoder) readEntry() (Entry, error) {
	var e Entry

	size, err := d.readLength()
	if err != nil {
		return e, err
	}
	if size == 0 || size > MaxNameLength {
		return e, fmt.Errorf("%w: name length %d", ErrCorrupt, size)
	}
	name := make([]byte, size)
	if _, err := io.ReadFull(d.br, name); err != nil {
		return e, d.fail(err, "name")
	}
	if !utf8.Valid(name) {
		return e, fmt.Errorf("%w: name is not valid UTF-8", ErrCorrupt)
	}
	e.Name = string(name)

	flag, err := d.br.ReadByte()
	if err != nil {
		return e, d.fail(err, "directory flag")
	}
	switch flag {
	case 0:
	case 1:
		e.IsDir = true
	default:
		return e, fmt.Errorf("%w: directory flag %#x for %q", ErrCorrupt, flag, e.Name)
	}

	if e.Length, err = d.readInt64("length"); err != nil {
		return e, err
	}
	if e.Length < 0 {
		return e, fmt.Errorf("%w: negative length for %q", ErrCorrupt, e.Name)
	}

	if e.CreationTime, err = d.readTicks("creation time"); err != nil {
		return e, err
	}
	if e.LastWriteTime, err = d.readTicks("last write time"); err != nil {
		return e, err
	}
	return e, nil
}

func (d *decoder) readTicks(field string) (time.Time, error) {
	ticks, err := d.readInt64(field)
	if err != nil {
		return time.Time{}, err
	}
	if ticks < 0 || ticks > maxTicks {
		return time.Time{}, fmt.Errorf("%w: %s ticks %d out of range", ErrCorrupt, field, ticks)
	}
	return TicksToTime(ticks), nil
}

func (d *decoder) readInt32(field string) (int32, error) {
	var b [4]byte
	if _, err := io.ReadFull(d.br, b[:]); err != nil {
		return 0, d.fail(err, field)
	}
	return int32(binary.LittleEndian.Uint32(b[:])), nil
}

func (d *decoder) readInt64(field string) (int64, error) {
	var b [8]byte
	if _, err := io.ReadFull(d.br, b[:]); err != nil {
		return 0, d.fail(err, field)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// readLength reads a name length: 7-bit groups, low group first, at most
// five bytes.
func (d *decoder) readLength() (uint64, error) {
	var v uint64
	for i := 0; i < binary.MaxVarintLen32; i++ {
		b, err := d.br.ReadByte()
		if err != nil {
			return 0, d.fail(err, "name length")
		}
		v |= uint64(b&0x7f) << (7 * i)
		if b < 0x80 {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: name length overflows", ErrCorrupt)
}

// fail classifies a read error: end of stream means the index is corrupt,
// anything else is an I/O failure of the source.
func (d *decoder) fail(err error, field string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated reading %s", ErrCorrupt, field)
	}
	return fmt.Errorf("reading %s: %w", field, err)
}
