// Package scanner discovers candidate archive files in a dated directory tree.
//
// The expected layout is BASE/YEAR/MONTH/*.<ext> with numeric directory
// names. Year is taken as-is from the directory name; month is zero-padded
// to two digits. Each file maps deterministically onto the remote key
// year/month/filename.
package scanner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aisdata/aisup/errors"
)

// FileDescriptor identifies one candidate local file. Descriptors are
// produced per scan and are immutable.
type FileDescriptor struct {
	// Path is the absolute local path and the unique key for ledger lookups
	Path string `json:"filepath"`

	// Name is the file's base name
	Name string `json:"filename"`

	// Size is the byte size at scan time
	Size int64 `json:"size"`

	// ModTime is the modification timestamp at scan time
	ModTime time.Time `json:"modified"`

	// Year and Month are derived from the directory position
	Year  string `json:"year"`
	Month string `json:"month"`

	// RemoteKey is the deterministic target key: year/month/filename
	RemoteKey string `json:"remote_key"`
}

// Scanner walks a base directory for archive files.
type Scanner struct {
	basePath string
	ext      string
}

// New creates a scanner rooted at basePath that matches files with the given
// extension (e.g. ".rar"). Extension matching is case-insensitive.
func New(basePath, ext string) *Scanner {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return &Scanner{basePath: basePath, ext: ext}
}

// Scan walks the YEAR/MONTH tree and returns all matching files ordered by
// year, month, then filename. A missing base path is a setup failure.
func (s *Scanner) Scan() ([]FileDescriptor, error) {
	info, err := os.Stat(s.basePath)
	if err != nil || !info.IsDir() {
		return nil, errors.NewPathError("scan", s.basePath,
			fmt.Errorf("%w: base path does not exist", errors.ErrSetup))
	}

	years, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, errors.NewPathError("scan", s.basePath, err)
	}

	var files []FileDescriptor
	for _, yearDir := range years {
		if !yearDir.IsDir() || !isNumeric(yearDir.Name()) {
			continue
		}
		year := yearDir.Name()

		months, err := os.ReadDir(filepath.Join(s.basePath, year))
		if err != nil {
			return nil, errors.NewPathError("scan", filepath.Join(s.basePath, year), err)
		}

		for _, monthDir := range months {
			if !monthDir.IsDir() || !isNumeric(monthDir.Name()) {
				continue
			}
			month := zeroPad(monthDir.Name())

			dir := filepath.Join(s.basePath, year, monthDir.Name())
			entries, err := os.ReadDir(dir)
			if err != nil {
				return nil, errors.NewPathError("scan", dir, err)
			}

			for _, entry := range entries {
				if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), s.ext) {
					continue
				}
				fi, err := entry.Info()
				if err != nil {
					return nil, errors.NewPathError("scan", filepath.Join(dir, entry.Name()), err)
				}

				path, err := filepath.Abs(filepath.Join(dir, entry.Name()))
				if err != nil {
					return nil, errors.NewPathError("scan", dir, err)
				}

				files = append(files, FileDescriptor{
					Path:      path,
					Name:      entry.Name(),
					Size:      fi.Size(),
					ModTime:   fi.ModTime(),
					Year:      year,
					Month:     month,
					RemoteKey: fmt.Sprintf("%s/%s/%s", year, month, entry.Name()),
				})
			}
		}
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].Year != files[j].Year {
			return files[i].Year < files[j].Year
		}
		if files[i].Month != files[j].Month {
			return files[i].Month < files[j].Month
		}
		return files[i].Name < files[j].Name
	})

	return files, nil
}

// PeriodCount is the number of files found for one year/month period.
type PeriodCount struct {
	Year  string
	Month string
	Count int
	Bytes int64
}

// Summarize groups descriptors by period, ordered by year then month.
func Summarize(files []FileDescriptor) []PeriodCount {
	index := make(map[string]*PeriodCount)
	var order []string
	for _, f := range files {
		key := f.Year + "/" + f.Month
		pc, ok := index[key]
		if !ok {
			pc = &PeriodCount{Year: f.Year, Month: f.Month}
			index[key] = pc
			order = append(order, key)
		}
		pc.Count++
		pc.Bytes += f.Size
	}

	sort.Strings(order)
	counts := make([]PeriodCount, 0, len(order))
	for _, key := range order {
		counts = append(counts, *index[key])
	}
	return counts
}

// fileList is the on-disk shape of a saved scan: year -> month -> files.
type fileList map[string]map[string][]FileDescriptor

// SaveList writes the scan result to path as a JSON document grouped by
// year and month.
func SaveList(path string, files []FileDescriptor) error {
	grouped := make(fileList)
	for _, f := range files {
		if grouped[f.Year] == nil {
			grouped[f.Year] = make(map[string][]FileDescriptor)
		}
		grouped[f.Year][f.Month] = append(grouped[f.Year][f.Month], f)
	}

	data, err := json.MarshalIndent(grouped, "", "  ")
	if err != nil {
		return errors.NewPathError("saveList", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.NewPathError("saveList", path, err)
	}
	return nil
}

// LoadList reads a file list previously written with SaveList, returning the
// files in year, month, filename order.
func LoadList(path string) ([]FileDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewPathError("loadList", path, err)
	}

	var grouped fileList
	if err := json.Unmarshal(data, &grouped); err != nil {
		return nil, errors.NewPathError("loadList", path, err)
	}

	var files []FileDescriptor
	for _, months := range grouped {
		for _, fs := range months {
			files = append(files, fs...)
		}
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].Year != files[j].Year {
			return files[i].Year < files[j].Year
		}
		if files[i].Month != files[j].Month {
			return files[i].Month < files[j].Month
		}
		return files[i].Name < files[j].Name
	})
	return files, nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func zeroPad(month string) string {
	if len(month) == 1 {
		return "0" + month
	}
	return month
}
