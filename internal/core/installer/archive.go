package installer

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"
)

// maxArchiveFile caps a single extracted file.
const maxArchiveFile = 50 << 20

// packFiles builds a gzip-compressed tarball of a skill tree.
func packFiles(files []file) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, f := range files {
		hdr := &tar.Header{
			Name:     f.rel,
			Mode:     int64(f.perm()),
			Size:     int64(len(f.data)),
			ModTime:  time.Unix(0, 0),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("writing header for %s: %w", f.rel, err)
		}
		if _, err := tw.Write(f.data); err != nil {
			return nil, fmt.Errorf("writing %s: %w", f.rel, err)
		}
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("closing tar: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip: %w", err)
	}
	return buf.Bytes(), nil
}

// unpackFiles reads a tarball produced by packFiles. Only regular files are
// returned; any entry escaping the tree fails the whole archive.
func unpackFiles(data []byte) ([]file, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	var files []file
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		rel, err := cleanRel(hdr.Name)
		if err != nil {
			return nil, err
		}
		if hdr.Size > maxArchiveFile {
			return nil, fmt.Errorf("archive entry %s is too large", rel)
		}
		content, err := io.ReadAll(io.LimitReader(tr, hdr.Size))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", rel, err)
		}
		files = append(files, file{rel: rel, data: content, mode: fs.FileMode(hdr.Mode).Perm()})
	}

	if len(files) == 0 {
		return nil, errors.New("archive is empty")
	}
	return files, nil
}
