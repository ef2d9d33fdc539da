// Package aio implements the engine's non-blocking pipe I/O: reading a
// pipe to EOF and writing a payload to a pipe, both in bounded chunks,
// with backpressure.
//
// Go's runtime registers os.Pipe ends (and any os.File whose fd is
// already non-blocking when it is wrapped) with its network poller, so a
// goroutine blocked in Read or Write is suspended without tying up an OS
// thread and resumes the instant the fd is ready. A goroutine per
// in-flight pipe endpoint gets that suspension for free; no manual
// wait_readable/wait_writable loop is needed. A file on a blocking fd
// (os.NewFile on a pipe made without O_NONBLOCK, as the engine's own
// pipes are) is not polled: its Read or Write occupies an OS thread, and
// closing the file does not interrupt a call already in flight.
package aio

import (
	"context"
	"io"
	"os"

	"github.com/canonical/shish/shisherr"
)

// DefaultChunkSize is the buffer size used by ReadAll/WriteAll absent an
// explicit override — 64 KiB, matching the default pipe buffer.
const DefaultChunkSize = 65536

// ReadAll reads f to EOF in chunkSize chunks and closes f on completion
// (whether it reached EOF or was interrupted by ctx). A watcher
// goroutine closes f when ctx is done; for a poller-registered f (such
// as an os.Pipe end) that unblocks any in-flight Read, so ReadAll does
// not block past ctx's cancellation.
func ReadAll(ctx context.Context, f *os.File, chunkSize int) ([]byte, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = f.Close()
		case <-done:
		}
	}()

	var out []byte
	buf := make([]byte, chunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			_ = f.Close()
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			return out, &shisherr.IoError{Op: "read", Err: err}
		}
	}

	if err := f.Close(); err != nil && ctx.Err() == nil {
		return out, &shisherr.IoError{Op: "close", Err: err}
	}
	return out, nil
}

// WriteAll writes data to f in DefaultChunkSize chunks, handling partial
// writes by resuming at the byte offset, and closes f on completion —
// closing signals EOF to the reader on the other end of the pipe.
func WriteAll(ctx context.Context, f *os.File, data []byte) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = f.Close()
		case <-done:
		}
	}()

	for _, chunk := range Iterencode(data, DefaultChunkSize) {
		written := 0
		for written < len(chunk) {
			n, err := f.Write(chunk[written:])
			written += n
			if err != nil {
				_ = f.Close()
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return &shisherr.IoError{Op: "write", Err: err}
			}
		}
	}

	if err := f.Close(); err != nil && ctx.Err() == nil {
		return &shisherr.IoError{Op: "close", Err: err}
	}
	return nil
}

// WriteAllString is WriteAll for a string payload, chunked through
// IterencodeString rather than converting data to one contiguous []byte.
// IterencodeString returns every chunk at once, so the whole encoding is
// still held in memory while it is written.
func WriteAllString(ctx context.Context, f *os.File, data string) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = f.Close()
		case <-done:
		}
	}()

	for _, chunk := range IterencodeString(data, DefaultChunkSize) {
		written := 0
		for written < len(chunk) {
			n, err := f.Write(chunk[written:])
			written += n
			if err != nil {
				_ = f.Close()
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return &shisherr.IoError{Op: "write", Err: err}
			}
		}
	}

	if err := f.Close(); err != nil && ctx.Err() == nil {
		return &shisherr.IoError{Op: "close", Err: err}
	}
	return nil
}
