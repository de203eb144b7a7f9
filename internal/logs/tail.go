package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const maxLineBytes = 1024 * 1024

// Last returns the final n lines of path and the offset of its end. A missing
// file yields no lines and offset zero.
func Last(path string, n int) ([]string, int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if n <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, end, nil
	}

	ring := make([]string, n)
	count := 0
	scanner := newScanner(file)
	for scanner.Scan() {
		ring[count%n] = scanner.Text()
		count++
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}
	end, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("determine log offset: %w", err)
	}

	if count <= n {
		return ring[:count], end, nil
	}
	lines := make([]string, 0, n)
	for i := range n {
		lines = append(lines, ring[(count+i)%n])
	}
	return lines, end, nil
}

// ReadFrom returns complete lines written after offset and the new offset.
// An offset past the end of a truncated file restarts from the beginning.
func ReadFrom(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, offset, fmt.Errorf("stat log file: %w", err)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek log file: %w", err)
	}

	var lines []string
	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			// A partial trailing line is left for the next read.
			break
		}
		offset += int64(len(line))
		lines = append(lines, line[:len(line)-1])
	}
	return lines, offset, nil
}

// Follow polls path every interval and hands each new line to fn until ctx
// is cancelled. It starts at offset.
func Follow(ctx context.Context, path string, offset int64, interval time.Duration, fn func(string)) error {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		lines, next, err := ReadFrom(path, offset)
		if err != nil {
			return err
		}
		for _, line := range lines {
			fn(line)
		}
		offset = next

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return scanner
}
