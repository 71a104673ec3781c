package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/docdb/internal/cache"
	"github.com/hupe1980/docdb/internal/conv"
	"github.com/hupe1980/docdb/internal/fs"
	"github.com/hupe1980/docdb/internal/mmap"
	"github.com/hupe1980/docdb/internal/resource"
)

// DefaultMaxDataFileSize is the size data files are pre-allocated to.
const DefaultMaxDataFileSize = 512 << 20

// DefaultReaderCacheSize is the number of mappings kept after eviction.
const DefaultReaderCacheSize = 2

// Config configures a Manager.
type Config struct {
	// MaxDataFileSize bounds the size of every data file.
	MaxDataFileSize int64
	// Codec is the compression algorithm for compressed records.
	Codec Codec
	// Synchronous makes every flush wait for the disk.
	Synchronous bool
	// ReaderCacheSize is the LRU capacity of mapped data files.
	ReaderCacheSize int
	// FS opens data files. Defaults to fs.Default.
	FS fs.FileSystem
	// Resources accounts mapped memory and throttles writes. May be nil.
	Resources *resource.Controller
	// Logger defaults to a discarding logger.
	Logger *slog.Logger
}

func (c *Config) setDefaults() {
	if c.MaxDataFileSize <= 0 {
		c.MaxDataFileSize = DefaultMaxDataFileSize
	}
	if c.ReaderCacheSize <= 0 {
		c.ReaderCacheSize = DefaultReaderCacheSize
	}
	if c.FS == nil {
		c.FS = fs.Default
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// Manager appends blobs to the data files of one collection and reads them
// back.
//
// Writes are serialized by an internal mutex. Reads take no lock on the
// writer; they go through the reader cache.
type Manager struct {
	cfg     Config
	catalog FileCatalog
	logger  *slog.Logger
	dec     *decoder

	mu      sync.Mutex
	closed  atomic.Bool
	current *mmap.File
	info    FileInfo
	offset  int64

	readers *cache.LRU[int32, *mmap.File]
}

// New opens the current data file of catalog, creating it if needed.
func New(ctx context.Context, catalog FileCatalog, cfg Config) (*Manager, error) {
	cfg.setDefaults()

	m := &Manager{
		cfg:     cfg,
		catalog: catalog,
		logger:  cfg.Logger,
		dec:     newDecoder(cfg.MaxDataFileSize),
		readers: cache.NewLRU(cfg.ReaderCacheSize, func(_ int32, f *mmap.File) {
			_ = f.Release()
		}),
	}

	info, err := catalog.CurrentDataFile(ctx)
	if err != nil {
		return nil, err
	}
	f, err := m.openWritable(info)
	if err != nil {
		return nil, err
	}

	if info.DataLength > 0 {
		m.offset = info.DataLength
	}
	if m.offset > int64(f.Size()) {
		_ = f.Release()
		return nil, &CorruptError{FileKey: info.Key, Offset: m.offset, Err: fmt.Errorf("%w: data length exceeds file size %d", ErrCorrupt, f.Size())}
	}
	if err := catalog.UpdateDataFileLength(ctx, info.Key, m.offset); err != nil {
		_ = f.Release()
		return nil, err
	}
	info.DataLength = m.offset

	m.current, m.info = f, info
	m.publish(info.Key, f, false)
	return m, nil
}

// publish hands the cache its own reference to f.
func (m *Manager) publish(key int32, f *mmap.File, evictable bool) {
	if f.TryRetain() {
		m.readers.Add(key, f, evictable)
	}
}

// openWritable maps info read-write, pre-allocating it to the maximum data
// file size.
func (m *Manager) openWritable(info FileInfo) (*mmap.File, error) {
	file, err := m.cfg.FS.OpenFile(info.Path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	st, err := file.Stat()
	if err != nil {
		return nil, err
	}
	size := st.Size()
	if size < m.cfg.MaxDataFileSize {
		if err := mmap.Allocate(file, m.cfg.MaxDataFileSize); err != nil {
			return nil, fmt.Errorf("allocate %s: %w", info.Name, err)
		}
		size = m.cfg.MaxDataFileSize
	}
	return m.mapFile(file, size, mmap.ReadWrite)
}

// openReadable maps a sealed file read-only.
func (m *Manager) openReadable(info FileInfo) (*mmap.File, error) {
	file, err := m.cfg.FS.OpenFile(info.Path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	st, err := file.Stat()
	if err != nil {
		return nil, err
	}
	return m.mapFile(file, st.Size(), mmap.ReadOnly)
}

func (m *Manager) mapFile(file fs.File, size int64, mode mmap.Mode) (*mmap.File, error) {
	length, err := conv.Int64ToInt(size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", mmap.ErrInvalidSize, err)
	}
	res := m.cfg.Resources
	if err := res.AcquireMemory(size); err != nil {
		if !errors.Is(err, resource.ErrMemoryLimitExceeded) {
			return nil, err
		}
		m.readers.PerformEviction()
		if err := res.AcquireMemory(size); err != nil {
			return nil, err
		}
	}

	mp, err := mmap.Map(file, length, mode)
	if err != nil {
		res.ReleaseMemory(size)
		return nil, err
	}
	return mmap.NewFile(mp, func(*mmap.File) { res.ReleaseMemory(size) }), nil
}

// Put appends blob and returns its location.
func (m *Manager) Put(ctx context.Context, blob []byte, compress bool) (Metadata, error) {
	mds, err := m.MultiPut(ctx, [][]byte{blob}, compress)
	if err != nil {
		return Metadata{}, err
	}
	return mds[0], nil
}

// MultiPut appends blobs in order and returns their metadata once every blob
// is durable.
//
// When the blobs span a data file rotation, the part written before the
// rotation is committed first. If a later step fails, MultiPut returns the
// metadata of that committed prefix together with the error; those blobs
// stay in the log and are visible to Scan.
func (m *Manager) MultiPut(ctx context.Context, blobs [][]byte, compress bool) ([]Metadata, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}

	total := 0
	records := make([]record, len(blobs))
	for i, b := range blobs {
		rec, err := m.encode(b, compress)
		if err != nil {
			return nil, err
		}
		records[i] = rec
		total += len(b)
	}
	if err := m.cfg.Resources.AcquireIO(ctx, total); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed.Load() {
		return nil, ErrClosed
	}

	mds := make([]Metadata, len(records))
	base, committed := m.offset, 0
	for i, rec := range records {
		if m.offset+rec.size() > m.cfg.MaxDataFileSize {
			if err := m.commit(ctx, base); err != nil {
				return mds[:committed], err
			}
			committed = i
			if err := m.switchToNewDataFile(ctx); err != nil {
				return mds[:committed], err
			}
			base = m.offset
		}
		mds[i] = Metadata{FileKey: m.info.Key, Offset: m.offset}
		m.offset += int64(rec.writeTo(m.current.Bytes()[m.offset:]))
	}
	if err := m.commit(ctx, base); err != nil {
		return mds[:committed], err
	}
	return mds, nil
}

// commit flushes [base, offset) of the current file and records the new
// length. On failure the offset is rolled back to base.
func (m *Manager) commit(ctx context.Context, base int64) error {
	if m.offset == base {
		return nil
	}
	if err := m.current.Flush(int(base), int(m.offset-base), !m.cfg.Synchronous); err != nil {
		m.offset = base
		return fmt.Errorf("flush %s: %w", m.info.Name, err)
	}
	if err := m.catalog.UpdateDataFileLength(ctx, m.info.Key, m.offset); err != nil {
		m.offset = base
		return err
	}
	m.info.DataLength = m.offset
	return nil
}

// switchToNewDataFile seals the current file and makes a new one current.
// The new file is mapped before anything else changes, so a failure leaves
// the previous file current.
func (m *Manager) switchToNewDataFile(ctx context.Context) error {
	next, err := m.catalog.NextDataFile(ctx)
	if err != nil {
		return err
	}
	f, err := m.openWritable(next)
	if err != nil {
		err = fmt.Errorf("rotate to %s: %w", next.Name, err)
		return errors.Join(err, m.catalog.RemoveDataFile(ctx, next.Key))
	}
	if err := m.catalog.UpdateDataFileLength(ctx, m.info.Key, m.offset); err != nil {
		_ = f.Release()
		return err
	}

	prev := m.info
	prev.DataLength = m.offset
	m.readers.SetEvictable(prev.Key, true)
	_ = m.current.Release()

	m.current, m.info, m.offset = f, next, 0
	m.publish(next.Key, f, false)

	m.logger.Info("blob data file rotated",
		slog.String("sealed", prev.Name),
		slog.Int64("sealed_length", prev.DataLength),
		slog.String("current", next.Name))
	return nil
}

// record is an encoded blob ready to be copied into a data file.
type record struct {
	hdr     [maxHeaderSize]byte
	hdrLen  int
	payload []byte
}

func (r record) size() int64 { return int64(r.hdrLen + len(r.payload)) }

func (r record) writeTo(dst []byte) int {
	n := copy(dst, r.hdr[:r.hdrLen])
	return n + copy(dst[n:], r.payload)
}

func (m *Manager) encode(blob []byte, doCompress bool) (record, error) {
	var rec record
	if int64(len(blob)) > m.cfg.MaxDataFileSize {
		return rec, fmt.Errorf("%w: %d bytes, limit %d", ErrBlobTooLarge, len(blob), m.cfg.MaxDataFileSize)
	}
	payload, flags := blob, uint8(0)
	if doCompress {
		c, f, ok, err := compress(m.cfg.Codec, blob)
		if err != nil {
			return rec, err
		}
		if ok {
			payload, flags = c, f
		}
	}
	rec.payload = payload
	rec.hdrLen = putHeader(rec.hdr[:], header{flags: flags, crc: checksum(payload), size: uint64(len(payload))})
	if rec.size() > m.cfg.MaxDataFileSize {
		return rec, fmt.Errorf("%w: %d bytes, limit %d", ErrBlobTooLarge, rec.size(), m.cfg.MaxDataFileSize)
	}
	return rec, nil
}

// Get reads the blob at md into buf, growing it if needed, and returns the
// filled slice.
func (m *Manager) Get(ctx context.Context, md Metadata, buf []byte) ([]byte, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	f, err := m.acquire(ctx, md.FileKey)
	if err != nil {
		return nil, err
	}
	defer f.Release()

	out, _, err := m.dec.decodeAt(f.Bytes(), md.Offset, buf)
	if err != nil {
		return nil, &CorruptError{FileKey: md.FileKey, Offset: md.Offset, Err: err}
	}
	return out, nil
}

// decodeAt decodes the record at off and returns the blob and the encoded
// record length.
func (d *decoder) decodeAt(data []byte, off int64, buf []byte) ([]byte, int64, error) {
	if off < 0 || off >= int64(len(data)) {
		return nil, 0, fmt.Errorf("%w: offset out of range", ErrCorrupt)
	}
	h, n, err := readHeader(data[off:])
	if err != nil {
		return nil, 0, err
	}
	start := off + int64(n)
	if h.size > uint64(int64(len(data))-start) {
		return nil, 0, fmt.Errorf("%w: blob size %d exceeds file", ErrCorrupt, h.size)
	}
	payload := data[start : start+int64(h.size)]
	if checksum(payload) != h.crc {
		return nil, 0, ErrChecksumMismatch
	}

	recLen := int64(n) + int64(h.size)
	if !h.compressed() {
		out := grow(buf, len(payload))
		copy(out, payload)
		return out, recLen, nil
	}
	out, err := d.decompress(h.flags, payload, buf)
	if err != nil {
		return nil, 0, err
	}
	return out, recLen, nil
}

// acquire returns a retained mapping of the file with key. Callers must
// Release it.
func (m *Manager) acquire(ctx context.Context, key int32) (*mmap.File, error) {
	if f, ok := m.readers.Find(key); ok && f.TryRetain() {
		return f, nil
	}

	info, err := m.catalog.FileInfo(ctx, key)
	if err != nil {
		return nil, err
	}
	f, err := m.openReadable(info)
	if err != nil {
		return nil, err
	}
	// f holds the caller's reference; the cache gets its own.
	m.publish(key, f, true)
	return f, nil
}

// UnmapLRUDataFiles unmaps least recently used sealed files until the
// reader cache is back at capacity. It returns the number of files
// released.
func (m *Manager) UnmapLRUDataFiles() int {
	n := m.readers.PerformEviction()
	if n > 0 {
		m.logger.Debug("blob data files unmapped", slog.Int("count", n))
	}
	return n
}

// Scan calls fn for every record in file key order. blob is only valid
// during the call.
func (m *Manager) Scan(ctx context.Context, fn func(md Metadata, blob []byte) error) error {
	if m.closed.Load() {
		return ErrClosed
	}
	files, err := m.catalog.DataFiles(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	curKey, curLen := m.info.Key, m.offset
	m.mu.Unlock()

	var buf []byte
	for _, info := range files {
		length := info.DataLength
		if info.Key == curKey {
			length = curLen
		}
		if length <= 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		f, err := m.acquire(ctx, info.Key)
		if err != nil {
			return err
		}
		err = m.scanFile(f, info.Key, length, &buf, fn)
		_ = f.Release()
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) scanFile(f *mmap.File, key int32, length int64, buf *[]byte, fn func(Metadata, []byte) error) error {
	data := f.Bytes()
	if length > int64(len(data)) {
		return &CorruptError{FileKey: key, Offset: length, Err: fmt.Errorf("%w: data length exceeds file", ErrCorrupt)}
	}
	data = data[:length]
	for off := int64(0); off < length; {
		out, n, err := m.dec.decodeAt(data, off, *buf)
		if err != nil {
			return &CorruptError{FileKey: key, Offset: off, Err: err}
		}
		*buf = out
		if err := fn(Metadata{FileKey: key, Offset: off}, out); err != nil {
			return err
		}
		off += n
	}
	return nil
}

// SealedFiles returns the data files that are no longer written to.
func (m *Manager) SealedFiles(ctx context.Context) ([]FileInfo, error) {
	files, err := m.catalog.DataFiles(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	curKey := m.info.Key
	m.mu.Unlock()

	out := files[:0]
	for _, fi := range files {
		if fi.Key != curKey && fi.DataLength > 0 {
			out = append(out, fi)
		}
	}
	return out, nil
}

// Seal rotates to a new data file when the current one holds records, so
// that every record written so far lives in a sealed file.
func (m *Manager) Seal(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed.Load() {
		return ErrClosed
	}
	if m.offset == 0 {
		return nil
	}
	return m.switchToNewDataFile(ctx)
}

// Current returns the file being written and its write offset.
func (m *Manager) Current() (FileInfo, int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info, m.offset
}

// CachedFiles returns the keys of the mapped data files, most recently used
// first.
func (m *Manager) CachedFiles() []int32 {
	return m.readers.Keys()
}

// Close records the final length of the current file and unmaps every data
// file. Readers still holding a mapping keep it until they release it.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed.Swap(true) {
		return nil
	}

	err := m.catalog.UpdateDataFileLength(ctx, m.info.Key, m.offset)
	err = errors.Join(err, m.current.Release())
	m.current = nil
	return errors.Join(err, m.readers.Close())
}
