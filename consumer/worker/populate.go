package worker

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/trintel/tri-api/entity"
	"github.com/trintel/tri-api/utils"
)

// upsertChunkSize bounds how many records go into one bulk write.
const upsertChunkSize = 100

// jsonlMaxLineSize caps a single record line at 16 MiB; some CVE entries
// carry large embedded advisories.
const jsonlMaxLineSize = 16 * 1024 * 1024

// presignExpiry is how long the archive download link stays valid.
const presignExpiry = time.Hour

// rawDocument is one parsed line of a trove dataset file.
type rawDocument struct {
	ID   string
	Data []byte
}

// populateTroveDatabase refreshes the CVE/CWE/CAPEC reference tables from
// today's archive in the object store. The archive is a tar.gz named after
// the current UTC date, holding one jsonl file per dataset. Records are
// written in bounded chunks so a failure mid-way leaves earlier chunks
// committed; the upserts are idempotent and a rerun converges.
func (tc *TaskConsumer) populateTroveDatabase(ctx context.Context) error {
	archiveName := time.Now().UTC().Format("2006-01-02") + ".tar.gz"

	url, err := tc.Infra.Minio.PresignedDownloadURL(ctx, archiveName, presignExpiry)
	if err != nil {
		return fmt.Errorf("presign %s: %w", archiveName, err)
	}

	scrape := tc.Config.EnvConfig.Scrape
	body, err := utils.Scrape(ctx, url, utils.ScrapeOptions{
		Timeout:       scrape.Timeout,
		Retries:       scrape.Retries,
		BackoffFactor: scrape.BackoffFactor,
		Randomize:     true,
	})
	if err != nil {
		return fmt.Errorf("download %s: %w", archiveName, err)
	}
	tc.Infra.Logger.InfoWithContextf(ctx, "Downloaded trove archive %s (%d bytes)", archiveName, len(body))

	workDir, err := os.MkdirTemp(tc.Config.EnvConfig.DownloadDir, "trove-*")
	if err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	if err := extractTarGz(bytes.NewReader(body), workDir); err != nil {
		return fmt.Errorf("extract %s: %w", archiveName, err)
	}

	datasets := []struct {
		file  string
		flush func(context.Context, []rawDocument) error
	}{
		{"cve.jsonl", tc.flushCVEs},
		{"cwe.jsonl", tc.flushCWEs},
		{"capec.jsonl", tc.flushCAPECs},
	}

	for _, ds := range datasets {
		f, err := os.Open(filepath.Join(workDir, ds.file))
		if err != nil {
			return fmt.Errorf("open dataset %s: %w", ds.file, err)
		}

		written, skipped, err := ingestJSONLines(ctx, f, upsertChunkSize, ds.flush)
		f.Close()
		if err != nil {
			return fmt.Errorf("ingest %s: %w", ds.file, err)
		}
		if skipped > 0 {
			tc.Infra.Logger.WarningWithContextf(ctx, "Skipped %d malformed records in %s", skipped, ds.file)
		}
		tc.Infra.Logger.InfoWithContextf(ctx, "Ingested %d records from %s", written, ds.file)
	}

	return nil
}

// ingestJSONLines streams newline-delimited JSON documents from r and
// hands them to flush in chunks of at most chunkSize. Lines that are not
// valid JSON objects or lack an id are counted and skipped; a flush error
// aborts immediately, leaving already-flushed chunks in place.
func ingestJSONLines(ctx context.Context, r io.Reader, chunkSize int, flush func(context.Context, []rawDocument) error) (written, skipped int, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), jsonlMaxLineSize)

	chunk := make([]rawDocument, 0, chunkSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var probe struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(line, &probe); err != nil || probe.ID == "" {
			skipped++
			continue
		}

		data := make([]byte, len(line))
		copy(data, line)
		chunk = append(chunk, rawDocument{ID: probe.ID, Data: data})

		if len(chunk) == chunkSize {
			if err := flush(ctx, chunk); err != nil {
				return written, skipped, err
			}
			written += len(chunk)
			chunk = chunk[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return written, skipped, err
	}

	if len(chunk) > 0 {
		if err := flush(ctx, chunk); err != nil {
			return written, skipped, err
		}
		written += len(chunk)
	}

	return written, skipped, nil
}

// dedupeLastWins drops earlier occurrences of a repeated id within one
// chunk. The store rejects a batch touching the same row twice, and the
// replace semantics make the last occurrence the right one to keep.
func dedupeLastWins(docs []rawDocument) []rawDocument {
	last := make(map[string]int, len(docs))
	for i, d := range docs {
		last[d.ID] = i
	}
	if len(last) == len(docs) {
		return docs
	}
	out := make([]rawDocument, 0, len(last))
	for i, d := range docs {
		if last[d.ID] == i {
			out = append(out, d)
		}
	}
	return out
}

func (tc *TaskConsumer) flushCVEs(ctx context.Context, docs []rawDocument) error {
	docs = dedupeLastWins(docs)
	records := make([]entity.CVERecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, entity.CVERecord{ID: d.ID, Data: datatypes.JSON(d.Data)})
	}
	return tc.Repository.TroveRepo.UpsertCVEs(ctx, records)
}

func (tc *TaskConsumer) flushCWEs(ctx context.Context, docs []rawDocument) error {
	docs = dedupeLastWins(docs)
	records := make([]entity.CWERecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, entity.CWERecord{ID: d.ID, Data: datatypes.JSON(d.Data)})
	}
	return tc.Repository.TroveRepo.UpsertCWEs(ctx, records)
}

func (tc *TaskConsumer) flushCAPECs(ctx context.Context, docs []rawDocument) error {
	docs = dedupeLastWins(docs)
	records := make([]entity.CAPECRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, entity.CAPECRecord{ID: d.ID, Data: datatypes.JSON(d.Data)})
	}
	return tc.Repository.TroveRepo.UpsertCAPECs(ctx, records)
}

// extractTarGz unpacks a gzipped tar stream into dest. Entries that would
// escape dest are rejected.
func extractTarGz(r io.Reader, dest string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		name := filepath.Clean(hdr.Name)
		if filepath.IsAbs(name) || strings.HasPrefix(name, "..") {
			return fmt.Errorf("archive entry %q escapes extraction dir", hdr.Name)
		}
		target := filepath.Join(dest, name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
			if err != nil {
				return err
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
		default:
			// symlinks and the rest have no place in a dataset archive
			return fmt.Errorf("archive entry %q has unsupported type %d", hdr.Name, hdr.Typeflag)
		}
	}
}
