package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecsandermergen11/SMAP-auto-download/appeears"
	"github.com/alecsandermergen11/SMAP-auto-download/model"
	"github.com/alecsandermergen11/SMAP-auto-download/ui"
	"github.com/alecsandermergen11/SMAP-auto-download/util"
)

const partSuffix = ".part"

// FileSource opens bundle files for reading; *appeears.Client is one.
type FileSource interface {
	OpenFile(ctx context.Context, taskID, fileID string) (*appeears.FileStream, error)
}

// Result counts what DownloadFiles did with each bundle file.
type Result struct {
	Downloaded int
	Skipped    int
	Ignored    int
	Failed     int
	Mirrored   int
	Bytes      int64
}

// Add accumulates other into r.
func (r *Result) Add(other Result) {
	r.Downloaded += other.Downloaded
	r.Skipped += other.Skipped
	r.Ignored += other.Ignored
	r.Failed += other.Failed
	r.Mirrored += other.Mirrored
	r.Bytes += other.Bytes
}

// Downloader saves the files of finished tasks under
// <OutputDir>/<aoi>/<ProductFolder>/<period>/<file name>.
type Downloader struct {
	Source        FileSource
	OutputDir     string
	ProductFolder string
	// Suffixes limits which files are fetched; empty means all.
	Suffixes []string
	Progress ui.Progress
	Mirror   *Mirror
	Log      util.LogContext
}

// New builds a Downloader from cfg.
func New(cfg util.Config, source FileSource, progress ui.Progress, log util.LogContext) *Downloader {
	return &Downloader{
		Source:        source,
		OutputDir:     cfg.OutputDir,
		ProductFolder: cfg.ProductFolder,
		Suffixes:      cfg.FileSuffixes,
		Progress:      progress,
		Log:           log,
	}
}

// PeriodDir is the folder the files of task are saved in.
func (d *Downloader) PeriodDir(task model.Task) string {
	return filepath.Join(d.OutputDir, task.AOI, d.ProductFolder, task.Period())
}

// Wanted reports whether name passes the suffix filter.
func (d *Downloader) Wanted(name string) bool {
	if len(d.Suffixes) == 0 {
		return true
	}
	lower := strings.ToLower(name)
	for _, suffix := range d.Suffixes {
		if strings.HasSuffix(lower, strings.ToLower(suffix)) {
			return true
		}
	}
	return false
}

// LocalPath maps a bundle file name to its save path. Names that would
// leave the period folder are rejected.
func (d *Downloader) LocalPath(task model.Task, fileName string) (string, error) {
	rel := filepath.FromSlash(fileName)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("refusing file name %q", fileName)
	}
	return filepath.Join(d.PeriodDir(task), rel), nil
}

// DownloadFiles fetches every wanted file that is not on disk yet. A file
// that fails is logged and counted; the others still run. Files already
// present cost no request.
func (d *Downloader) DownloadFiles(ctx context.Context, task model.Task, files []appeears.BundleFile) Result {
	var result Result
	for _, file := range files {
		if !d.Wanted(file.FileName) {
			result.Ignored++
			continue
		}
		if ctx.Err() != nil {
			result.Failed++
			continue
		}
		path, err := d.LocalPath(task, file.FileName)
		if err != nil {
			util.LogAlert(d.Log, fmt.Sprintf("Task %v: %v", task.ID, err))
			result.Failed++
			continue
		}
		if present(path) {
			util.LogInfo(d.Log, "Already present: "+file.FileName)
			result.Skipped++
			continue
		}
		if isArchive(path) && exists(path) {
			// downloaded by an earlier run that stopped before extraction finished
			util.LogInfo(d.Log, "Extracting leftover archive: "+file.FileName)
			saved, err := d.unpack(path)
			if err != nil {
				util.LogSimpleErr(d.Log, fmt.Sprintf("Failed to extract %v of task %v", file.FileName, task.ID), err)
				os.Remove(path)
				os.RemoveAll(extractDir(path))
				result.Failed++
				continue
			}
			result.Skipped++
			result.Mirrored += d.mirror(ctx, saved)
			continue
		}

		written, err := d.fetch(ctx, task, file, path)
		result.Bytes += written
		if err != nil {
			util.LogSimpleErr(d.Log, fmt.Sprintf("Failed to download %v of task %v", file.FileName, task.ID), err)
			result.Failed++
			continue
		}
		result.Downloaded++

		saved := []string{path}
		if isArchive(path) {
			if saved, err = d.unpack(path); err != nil {
				util.LogSimpleErr(d.Log, fmt.Sprintf("Failed to extract %v of task %v", file.FileName, task.ID), err)
				result.Failed++
				continue
			}
		}
		result.Mirrored += d.mirror(ctx, saved)
	}
	return result
}

// present is true when the file exists. An archive is present once it has
// been unpacked and removed; a leftover archive still needs extracting.
func present(path string) bool {
	if !isArchive(path) {
		return exists(path)
	}
	info, err := os.Stat(extractDir(path))
	return err == nil && info.IsDir() && !exists(path)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// fetch streams one file to path via a .part file and returns the bytes written.
func (d *Downloader) fetch(ctx context.Context, task model.Task, file appeears.BundleFile, path string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	stream, err := d.Source.OpenFile(ctx, task.ID, file.FileID)
	if err != nil {
		return 0, err
	}
	defer stream.Body.Close()

	part := path + partSuffix
	out, err := os.Create(part)
	if err != nil {
		return 0, err
	}
	var sink io.Writer = out
	var bar ui.Bar
	if d.Progress != nil {
		bar = d.Progress.Bytes(stream.ContentLength, shortName(file.FileName))
		sink = io.MultiWriter(out, bar)
	}
	written, err := io.Copy(sink, stream.Body)
	if bar != nil {
		bar.Finish()
	}
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err == nil && stream.ContentLength >= 0 && written != stream.ContentLength {
		err = fmt.Errorf("short read: %d of %d bytes", written, stream.ContentLength)
	}
	if err != nil {
		os.Remove(part)
		return written, err
	}
	return written, os.Rename(part, path)
}

func (d *Downloader) unpack(archive string) ([]string, error) {
	files, err := extract(archive)
	if err != nil {
		return nil, err
	}
	if err = os.Remove(archive); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	util.LogInfo(d.Log, fmt.Sprintf("Extracted %d files into %s", len(files), extractDir(archive)))
	return files, nil
}

func (d *Downloader) mirror(ctx context.Context, paths []string) int {
	if d.Mirror == nil {
		return 0
	}
	uploaded := 0
	for _, path := range paths {
		ok, err := d.Mirror.Upload(ctx, path)
		if err != nil {
			util.LogSimpleErr(d.Log, "Failed to mirror "+path, err)
			continue
		}
		if ok {
			uploaded++
		}
	}
	return uploaded
}

// shortName is the bar label: the base name, at most 20 characters.
func shortName(name string) string {
	base := []rune(filepath.Base(filepath.FromSlash(name)))
	if len(base) > 20 {
		base = base[:20]
	}
	return string(base)
}
