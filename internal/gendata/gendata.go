// Package gendata builds a synthetic year/month archive tree for exercising
// the uploader against a real store. The generated .rar files are stored-mode
// zip archives, so they carry their full payload size on disk without any
// external archiver.
package gendata

import (
	"archive/zip"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/aisdata/aisup/errors"
)

// Params describes the tree to generate.
type Params struct {
	BasePath      string
	Years         []int
	Months        []int
	FilesPerMonth int
	FileSizeMB    int
}

// Validate rejects parameter sets that would generate nothing sensible.
func (p Params) Validate() error {
	switch {
	case p.BasePath == "":
		return fmt.Errorf("%w: output directory must not be empty", errors.ErrInvalidInput)
	case len(p.Years) == 0:
		return fmt.Errorf("%w: at least one year required", errors.ErrInvalidInput)
	case len(p.Months) == 0:
		return fmt.Errorf("%w: at least one month required", errors.ErrInvalidInput)
	case p.FilesPerMonth < 1:
		return fmt.Errorf("%w: files per month must be at least 1, got %d", errors.ErrInvalidInput, p.FilesPerMonth)
	case p.FileSizeMB < 1:
		return fmt.Errorf("%w: file size must be at least 1 MiB, got %d", errors.ErrInvalidInput, p.FileSizeMB)
	}
	for _, m := range p.Months {
		if m < 1 || m > 12 {
			return fmt.Errorf("%w: month out of range: %d", errors.ErrInvalidInput, m)
		}
	}
	return nil
}

// Result summarizes a generation run.
type Result struct {
	Files int
	Bytes int64
}

// Generate creates the year/month directory tree under p.BasePath and fills
// each month with FilesPerMonth archives of roughly FileSizeMB each.
func Generate(p Params, log zerolog.Logger) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var res Result

	for _, year := range p.Years {
		for _, month := range p.Months {
			dir := filepath.Join(p.BasePath, fmt.Sprintf("%d", year), fmt.Sprintf("%02d", month))
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return res, errors.NewPathError("gendata", dir, err)
			}

			for i := 0; i < p.FilesPerMonth; i++ {
				name := fmt.Sprintf("ais_data_%s_%04d.rar",
					time.Now().Format("20060102_150405"), rng.Intn(9000)+1000)
				path := filepath.Join(dir, name)

				n, err := writeArchive(path, int64(p.FileSizeMB)*1024*1024, rng)
				if err != nil {
					return res, err
				}
				res.Files++
				res.Bytes += n
				log.Debug().Str("path", path).Int64("size", n).Msg("generated archive")
			}
		}
	}

	log.Info().
		Int("files", res.Files).
		Int64("bytes", res.Bytes).
		Str("base_path", p.BasePath).
		Msg("test data generated")
	return res, nil
}

// writeArchive writes a stored-mode zip at path whose single entry carries
// targetBytes of synthetic payload, and returns the archive's on-disk size.
func writeArchive(path string, targetBytes int64, rng *rand.Rand) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, errors.NewPathError("gendata", path, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:   "dummy.txt",
		Method: zip.Store,
	})
	if err != nil {
		return 0, errors.NewPathError("gendata", path, err)
	}

	var written int64
	var line int
	for written < targetBytes {
		chunk := fmt.Sprintf("AIS Data Test File #%06d - Sample data for testing. Random: %06d\n",
			line, rng.Intn(900000)+100000)
		if rem := targetBytes - written; int64(len(chunk)) > rem {
			chunk = chunk[:rem]
		}
		n, err := w.Write([]byte(chunk))
		if err != nil {
			return 0, errors.NewPathError("gendata", path, err)
		}
		written += int64(n)
		line++
	}

	if err := zw.Close(); err != nil {
		return 0, errors.NewPathError("gendata", path, err)
	}
	if err := f.Close(); err != nil {
		return 0, errors.NewPathError("gendata", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, errors.NewPathError("gendata", path, err)
	}
	return info.Size(), nil
}
