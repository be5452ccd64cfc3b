package xml

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

const (
	defaultMaxDocumentSize = 16 << 20
	statePreview           = 256
)

// DocumentReader splits a stream of NUL terminated XML documents read from an
// io.Reader, like a socket carrying one document after another.
// It does not look inside the documents, it only finds the terminators so
// every document can be handed to a Scanner as a whole.
//
// DecodeAll (or Read and NextDocument) must be driven by a single goroutine.
// The accessors and State may be called from any goroutine.
type DocumentReader struct {
	reader  io.Reader
	context context.Context
	maxRead int

	// Guards writes to buffer, cursor and length. The decoding goroutine is
	// the only writer, so it reads them without the lock.
	mu     sync.Mutex
	buffer []byte
	cursor int // Points to beginning of next document
	length int // Number of bytes used in buffer

	// Parsing policy
	maxDocumentSize int
}

// Create a new DocumentReader with the given reader and buffer size.
func NewDocumentReader(
	context context.Context,
	reader io.Reader,
	bufferSize int,
	maxRead int,
) *DocumentReader {
	if maxRead <= 0 {
		maxRead = 4096
	}
	if bufferSize < maxRead {
		bufferSize = maxRead
	}

	return &DocumentReader{
		reader:  reader,
		context: context,
		buffer:  make([]byte, bufferSize),
		maxRead: maxRead,

		maxDocumentSize: defaultMaxDocumentSize,
	}
}

// SetMaxDocumentSize limits the size of a single document, terminator excluded.
func (r *DocumentReader) SetMaxDocumentSize(n int) {
	if n > 0 {
		r.maxDocumentSize = n
	}
}

// Read reads at most maxRead bytes from the underlying reader into the buffer,
// growing the buffer when there is not enough room left.
func (r *DocumentReader) Read() (int, error) {
	if len(r.buffer)-r.length < r.maxRead {
		newCap := len(r.buffer) * 2
		if minCap := r.length + r.maxRead; newCap < minCap {
			newCap = minCap
		}
		newBuffer := make([]byte, newCap)
		copy(newBuffer, r.buffer[:r.length])

		r.mu.Lock()
		r.buffer = newBuffer
		r.mu.Unlock()
	}

	// Bytes past length are never looked at by State, so the blocking read
	// runs without the lock.
	n, err := r.reader.Read(r.buffer[r.length : r.length+r.maxRead])
	if n > 0 {
		r.mu.Lock()
		r.length += n
		r.mu.Unlock()
	}
	return n, err
}

// DecodeAll reads until EOF or an error and calls cb with every complete
// document, terminator excluded. The slice passed to cb is only valid for the
// duration of the call. A trailing document without terminator is passed to cb
// at EOF.
func (r *DocumentReader) DecodeAll(cb func([]byte), errCb func(error)) {
	for {
		select {
		case <-r.context.Done():
			return
		default:
		}

		n, err := r.Read()
		if n > 0 {
			if failed := r.processBuffer(cb, errCb); failed {
				return
			}
		}

		if err == io.EOF {
			r.flush(cb)
			return
		}

		if err != nil && err != io.ErrUnexpectedEOF {
			errCb(err)
			return
		}
	}
}

// NextDocument returns the bounds of the next complete document in the
// buffer. end is the position of its terminator, or -1 if the document is not
// complete yet.
func (r *DocumentReader) NextDocument() (start, end int, err error) {
	start = r.cursor
	idx := bytes.IndexByte(r.buffer[start:r.length], 0)
	if idx < 0 {
		if r.length-start > r.maxDocumentSize {
			return 0, 0, fmt.Errorf("%w of %d bytes", ErrDocumentTooLarge, r.maxDocumentSize)
		}
		return start, -1, nil
	}

	end = start + idx
	if end-start > r.maxDocumentSize {
		return 0, 0, fmt.Errorf("%w of %d bytes", ErrDocumentTooLarge, r.maxDocumentSize)
	}
	return start, end, nil
}

// processBuffer passes complete documents in the buffer to cb.
func (r *DocumentReader) processBuffer(cb func([]byte), errCb func(err error)) (failed bool) {
	for r.cursor < r.length {
		start, end, err := r.NextDocument()
		if err != nil {
			errCb(err)
			return true
		}
		if end == -1 {
			break // Need more data
		}

		// Empty documents from consecutive terminators are skipped
		if end > start {
			cb(r.buffer[start:end])
		}
		r.mu.Lock()
		r.cursor = end + 1
		r.mu.Unlock()
	}

	r.compact()
	return false
}

func (r *DocumentReader) flush(cb func([]byte)) {
	if r.cursor < r.length && len(bytes.TrimSpace(r.buffer[r.cursor:r.length])) > 0 {
		cb(r.buffer[r.cursor:r.length])
	}
	r.mu.Lock()
	r.cursor = r.length
	r.mu.Unlock()
	r.compact()
}

func (r *DocumentReader) compact() {
	if r.cursor == 0 {
		return
	}
	r.mu.Lock()
	copy(r.buffer, r.buffer[r.cursor:r.length])
	r.length -= r.cursor
	r.cursor = 0
	r.mu.Unlock()
}

// ReaderState is a consistent copy of a DocumentReader's buffer bookkeeping.
type ReaderState struct {
	Length   int
	Cursor   int
	Capacity int
	Pending  []byte // Up to 256 unprocessed bytes from the cursor
}

// State returns a snapshot of the buffer that is safe to take while another
// goroutine is decoding.
func (r *DocumentReader) State() ReaderState {
	r.mu.Lock()
	defer r.mu.Unlock()

	end := r.length
	if end-r.cursor > statePreview {
		end = r.cursor + statePreview
	}
	pending := make([]byte, end-r.cursor)
	copy(pending, r.buffer[r.cursor:end])

	return ReaderState{
		Length:   r.length,
		Cursor:   r.cursor,
		Capacity: cap(r.buffer),
		Pending:  pending,
	}
}

// BufferLength returns the number of buffered, unprocessed bytes.
func (r *DocumentReader) BufferLength() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.length
}

// Cursor returns the start of the next document in the buffer.
func (r *DocumentReader) Cursor() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursor
}

// Buffer returns the underlying buffer. Its contents may change while a
// decoding goroutine is running; use State for a stable copy.
func (r *DocumentReader) Buffer() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buffer
}

// BufferContent returns a printable preview of the buffered bytes.
func (r *DocumentReader) BufferContent() string {
	state := r.State()
	if state.Length-state.Cursor > len(state.Pending) {
		return fmt.Sprintf("%q...", state.Pending)
	}
	return fmt.Sprintf("%q", state.Pending)
}
