// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logstore

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// header is the first line of every log file.
var header = []string{"instance", "id", "volts", "amps", "temp", "time", "flags"}

const (
	// BackupSuffix is appended to the previous file on a full rewrite.
	BackupSuffix = "~"

	newSuffix = ".new"
)

// Open loads the history stored at path. A missing file yields an
// empty Store that will create it on the first Flush.
//
// Loading stops at the first malformed line and keeps the entries
// before it. The watermark is then zero rather than the count of
// parsed entries, so the next Flush rewrites the file in full and the
// corrupt original survives as the path+BackupSuffix backup.
func Open(path string, logger *slog.Logger) (*Store, error) {
	store := &Store{path: path, logger: logger}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("no existing log file", "path", path)
			return store, nil
		}
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	defer file.Close()

	entries, err := readEntries(file)
	store.entries = entries
	store.written = len(entries)
	if err != nil {
		logger.Warn("log file truncated at malformed line",
			"path", path,
			"entries", len(entries),
			"error", err,
		)
		store.written = 0
	}
	logger.Info("loaded log file", "path", path, "entries", len(entries))
	return store, nil
}

// readEntries parses a log file, returning every entry read before the
// first error.
func readEntries(r io.Reader) ([]Entry, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.FieldsPerRecord = len(header)
	reader.ReuseRecord = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	var entries []Entry
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return entries, err
		}
		entry, err := parseEntry(record)
		if err != nil {
			line, _ := reader.FieldPos(0)
			return entries, fmt.Errorf("line %d: %w", line, err)
		}
		entries = append(entries, entry)
	}
}

func parseEntry(record []string) (Entry, error) {
	var entry Entry

	instance, err := strconv.ParseUint(record[0], 0, 8)
	if err != nil || instance >= Instances {
		return Entry{}, fmt.Errorf("instance %q out of range", record[0])
	}
	entry.Instance = uint8(instance)

	id, err := strconv.ParseUint(record[1], 0, 32)
	if err != nil {
		return Entry{}, fmt.Errorf("id: %w", err)
	}
	entry.ID = uint32(id)

	if entry.Volts, err = strconv.ParseFloat(record[2], 64); err != nil {
		return Entry{}, fmt.Errorf("volts: %w", err)
	}
	if entry.Amps, err = strconv.ParseFloat(record[3], 64); err != nil {
		return Entry{}, fmt.Errorf("amps: %w", err)
	}

	temp, err := strconv.ParseInt(record[4], 0, 32)
	if err != nil {
		return Entry{}, fmt.Errorf("temp: %w", err)
	}
	entry.Temp = int(temp)

	if entry.Time, err = strconv.ParseInt(record[5], 10, 64); err != nil {
		return Entry{}, fmt.Errorf("time: %w", err)
	}

	flags, err := strconv.ParseUint(record[6], 0, 32)
	if err != nil {
		return Entry{}, fmt.Errorf("flags: %w", err)
	}
	entry.Flags = Flags(flags)

	return entry, nil
}

func formatEntry(entry Entry) []string {
	return []string{
		strconv.FormatUint(uint64(entry.Instance), 10),
		"0x" + strconv.FormatUint(uint64(entry.ID), 16),
		strconv.FormatFloat(entry.Volts, 'f', -1, 64),
		strconv.FormatFloat(entry.Amps, 'f', -1, 64),
		strconv.Itoa(entry.Temp),
		strconv.FormatInt(entry.Time, 10),
		"0x" + strconv.FormatUint(uint64(entry.Flags), 16),
	}
}

// Flush makes the file match the in-memory history. Entries past the
// watermark are appended; a reset watermark (or a missing file) causes
// a full atomic rewrite. The watermark advances only when every write
// succeeded, so a failed Flush is retried in full by the next one.
func (s *Store) Flush() error {
	if s.written > 0 {
		err := s.appendPending()
		if err == nil {
			return nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		s.logger.Warn("log file disappeared, rewriting", "path", s.path)
		s.written = 0
	}
	return s.rewrite()
}

// appendPending writes the entries past the watermark to the end of
// the file. A failed write or sync cuts the file back to its size
// before the attempt so the retry does not land after a partial row.
// If the file cannot be cut back the watermark drops to zero and the
// next Flush rewrites the whole history instead.
func (s *Store) appendPending() error {
	if s.written == len(s.entries) {
		return nil
	}
	file, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return fmt.Errorf("opening log file for append: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("reading log file size: %w", err)
	}
	size := info.Size()

	pending := s.entries[s.written:]
	if err := writeEntries(file, pending); err != nil {
		s.discardPartialAppend(file, size)
		return fmt.Errorf("appending to log file: %w", err)
	}
	if err := file.Sync(); err != nil {
		s.discardPartialAppend(file, size)
		return fmt.Errorf("syncing log file: %w", err)
	}
	if err := file.Close(); err != nil {
		s.written = 0
		return fmt.Errorf("closing log file: %w", err)
	}

	s.logger.Debug("appended log entries", "path", s.path, "entries", len(pending))
	s.written = len(s.entries)
	return nil
}

// discardPartialAppend truncates file back to size and closes it.
func (s *Store) discardPartialAppend(file *os.File, size int64) {
	err := file.Truncate(size)
	if err == nil {
		err = file.Sync()
	}
	file.Close()
	if err != nil {
		s.logger.Warn("could not discard partial append, next flush rewrites the log",
			"path", s.path,
			"size", size,
			"error", err,
		)
		s.written = 0
	}
}

// rewrite writes the whole history to a new file, moves the current
// file aside and renames the new one into place.
func (s *Store) rewrite() error {
	newPath := s.path + newSuffix

	file, err := os.OpenFile(newPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating new log file: %w", err)
	}

	// Write, sync, close. On failure remove the partial file and
	// leave the current one untouched.
	if err := WriteCSV(file, s.entries); err != nil {
		file.Close()
		os.Remove(newPath)
		return fmt.Errorf("writing new log file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(newPath)
		return fmt.Errorf("syncing new log file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(newPath)
		return fmt.Errorf("closing new log file: %w", err)
	}

	if err := os.Rename(s.path, s.path+BackupSuffix); err != nil && !errors.Is(err, os.ErrNotExist) {
		os.Remove(newPath)
		return fmt.Errorf("keeping previous log file: %w", err)
	}
	if err := os.Rename(newPath, s.path); err != nil {
		os.Remove(newPath)
		return fmt.Errorf("renaming log file into place: %w", err)
	}

	parentDirectory, err := os.Open(filepath.Dir(s.path))
	if err == nil {
		parentDirectory.Sync()
		parentDirectory.Close()
	}

	s.logger.Info("rewrote log file", "path", s.path, "entries", len(s.entries))
	s.written = len(s.entries)
	return nil
}

// WriteCSV writes entries in the log file format, header included.
func WriteCSV(w io.Writer, entries []Entry) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	return writeRecords(writer, entries)
}

func writeEntries(w io.Writer, entries []Entry) error {
	return writeRecords(csv.NewWriter(w), entries)
}

func writeRecords(writer *csv.Writer, entries []Entry) error {
	for _, entry := range entries {
		if err := writer.Write(formatEntry(entry)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
