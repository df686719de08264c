// Package csvbackend archives runs as CSV rows, one record per row.
// The result document is base64 encoded to survive CSV quoting.
package csvbackend

import (
	"context"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/quillon/newslens/internal/storage"
)

var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	file *os.File
}

var columns = []string{
	"run_id",
	"topic",
	"article_count",
	"failed_count",
	"partial",
	"result_base64",
	"started_at",
	"finished_at",
}

// New opens filePath for appending, writing the header row when the
// file is new.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open csv archive: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat csv archive: %w", err)
	}

	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(columns); err != nil {
			f.Close()
			return nil, fmt.Errorf("write csv header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("flush csv header: %w", err)
		}
	}

	return &csvBackend{file: f}, nil
}

func (b *csvBackend) Save(ctx context.Context, record *storage.RunRecord) error {
	row := []string{
		record.RunID,
		record.Topic,
		strconv.Itoa(record.ArticleCount),
		strconv.Itoa(record.FailedCount),
		strconv.FormatBool(record.Partial),
		base64.StdEncoding.EncodeToString(record.Result),
		record.StartedAt.Format(time.RFC3339Nano),
		record.FinishedAt.Format(time.RFC3339Nano),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek csv archive: %w", err)
	}

	w := csv.NewWriter(b.file)
	if err := w.Write(row); err != nil {
		return fmt.Errorf("append run %s: %w", record.RunID, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush run %s: %w", record.RunID, err)
	}
	return nil
}

func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.RunRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek csv archive: %w", err)
	}
	defer func() {
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	r := csv.NewReader(b.file)

	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return []*storage.RunRecord{}, nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var filtered []*storage.RunRecord
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		if len(row) != len(columns) {
			continue
		}

		articleCount, _ := strconv.Atoi(row[2])
		failedCount, _ := strconv.Atoi(row[3])
		partial, _ := strconv.ParseBool(row[4])
		result, _ := base64.StdEncoding.DecodeString(row[5])
		startedAt, _ := time.Parse(time.RFC3339Nano, row[6])
		finishedAt, _ := time.Parse(time.RFC3339Nano, row[7])

		rec := &storage.RunRecord{
			RunID:        row[0],
			Topic:        row[1],
			ArticleCount: articleCount,
			FailedCount:  failedCount,
			Partial:      partial,
			Result:       result,
			StartedAt:    startedAt,
			FinishedAt:   finishedAt,
		}

		if filter.Topic != "" && rec.Topic != filter.Topic {
			continue
		}
		if filter.Partial != nil && rec.Partial != *filter.Partial {
			continue
		}
		if filter.Since != nil && rec.StartedAt.Before(*filter.Since) {
			continue
		}
		filtered = append(filtered, rec)
	}

	for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
		filtered[i], filtered[j] = filtered[j], filtered[i]
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(filtered) {
			return []*storage.RunRecord{}, nil
		}
		filtered = filtered[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(filtered) {
		filtered = filtered[:filter.Limit]
	}

	return filtered, nil
}

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
