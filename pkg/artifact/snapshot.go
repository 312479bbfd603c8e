package artifact

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Snapshot archives the workspace into a single file under scratchDir and
// returns its path. The .git directory and the scratch directory itself
// are excluded. Supported formats: zip, tar.gz, tgz.
func Snapshot(workspace, scratchDir, format, name string) (string, error) {
	switch format {
	case "zip":
		out := filepath.Join(scratchDir, name+".zip")
		return out, snapshotZip(workspace, scratchDir, out)
	case "tar.gz", "tgz":
		out := filepath.Join(scratchDir, name+".tar.gz")
		return out, snapshotTarGz(workspace, scratchDir, out)
	default:
		return "", fmt.Errorf("unsupported archive format: %s", format)
	}
}

// walkWorkspace visits every regular file under workspace, skipping .git
// and the scratch directory, and calls fn with the file's relative path.
func walkWorkspace(workspace, scratchDir string, fn func(path, rel string, info fs.FileInfo) error) error {
	absScratch, err := filepath.Abs(scratchDir)
	if err != nil {
		return err
	}

	return filepath.WalkDir(workspace, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			abs, err := filepath.Abs(path)
			if err != nil {
				return err
			}
			if d.Name() == ".git" || abs == absScratch {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(workspace, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return fn(path, filepath.ToSlash(rel), info)
	})
}

func snapshotZip(workspace, scratchDir, out string) error {
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	err = walkWorkspace(workspace, scratchDir, func(path, rel string, info fs.FileInfo) error {
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = rel
		header.Method = zip.Deflate

		w, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()

		_, err = io.Copy(w, src)
		return err
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("failed to archive workspace: %w", err)
	}
	return zw.Close()
}

func snapshotTarGz(workspace, scratchDir, out string) error {
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	err = walkWorkspace(workspace, scratchDir, func(path, rel string, info fs.FileInfo) error {
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = rel

		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()

		_, err = io.Copy(tw, src)
		return err
	})
	if err != nil {
		tw.Close()
		gz.Close()
		return fmt.Errorf("failed to archive workspace: %w", err)
	}
	if err := tw.Close(); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}

// SnapshotName derives the archive base name from the repository and PR
// number, e.g. "myrepo-pr42".
func SnapshotName(repo string, prNumber int) string {
	base := repo
	if i := strings.LastIndex(repo, "/"); i >= 0 {
		base = repo[i+1:]
	}
	if base == "" {
		base = "workspace"
	}
	return fmt.Sprintf("%s-pr%d", base, prNumber)
}
