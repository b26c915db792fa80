package containerfs

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/absfs/absfs"
)

// archiveDir is one pending directory on the traversal work stack.
type archiveDir struct {
	abs string // absolute path on the filesystem
	rel string // slash-separated path inside the archive ("" for the root)
}

// ArchiveDirectory serializes the directory tree rooted at root into a tar
// stream written to w. Entry names are root-relative with forward-slash
// separators; when includeRootName is true they are prefixed with the base
// name of root. Within each directory all files are written before any
// subdirectory is descended into, in sorted order, so output is
// deterministic for a given tree. Directories are implied by file entry
// paths; an explicit directory entry is written only for a directory with
// no children, so empty directories survive the round trip.
//
// The traversal uses an explicit work stack rather than recursion, so
// arbitrarily deep trees cannot exhaust the call stack. Cancellation is
// checked before every directory and every entry.
func ArchiveDirectory(ctx context.Context, fsys absfs.FileSystem, root string, includeRootName bool, w io.Writer) error {
	rootSlash := path.Clean(toSlash(fsys, root))

	info, err := fsys.Stat(fromSlash(fsys, rootSlash))
	if err != nil {
		return NewIOError("stat", root, err)
	}
	if !info.IsDir() {
		return NewIOError("archive", root, fmt.Errorf("not a directory"))
	}

	prefix := ""
	if includeRootName {
		prefix = path.Base(rootSlash)
	}

	tw := tar.NewWriter(w)

	stack := []archiveDir{{abs: rootSlash, rel: prefix}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			tw.Close()
			return err
		}

		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := readDirSorted(fsys, dir.abs)
		if err != nil {
			tw.Close()
			return NewIOError("readdir", dir.abs, err)
		}

		if len(entries) == 0 && dir.rel != "" {
			hdr := &tar.Header{
				Name:     dir.rel + "/",
				Mode:     0755,
				Typeflag: tar.TypeDir,
			}
			if err := tw.WriteHeader(hdr); err != nil {
				tw.Close()
				return fmt.Errorf("failed to write directory entry %q: %w", dir.rel, err)
			}
			continue
		}

		var subdirs []archiveDir
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				tw.Close()
				return err
			}

			abs := path.Join(dir.abs, entry.Name())
			rel := entry.Name()
			if dir.rel != "" {
				rel = dir.rel + "/" + entry.Name()
			}

			if entry.IsDir() {
				subdirs = append(subdirs, archiveDir{abs: abs, rel: rel})
				continue
			}

			if err := writeFileEntry(fsys, tw, abs, rel, entry); err != nil {
				tw.Close()
				return err
			}
		}

		// Push in reverse so subdirectories pop in sorted order.
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, subdirs[i])
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}

// writeFileEntry writes one regular file to the tar stream.
func writeFileEntry(fsys absfs.FileSystem, tw *tar.Writer, abs, rel string, info os.FileInfo) error {
	hdr := &tar.Header{
		Name:     rel,
		Mode:     int64(info.Mode().Perm()),
		Size:     info.Size(),
		ModTime:  info.ModTime(),
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write entry header %q: %w", rel, err)
	}

	f, err := fsys.Open(fromSlash(fsys, abs))
	if err != nil {
		return NewIOError("open", abs, err)
	}
	defer f.Close()

	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("failed to write entry %q: %w", rel, err)
	}
	return nil
}

// ExtractArchive extracts a tar stream into dest, creating dest if needed.
//
// Every entry name is sanitized before use: backslashes are normalized to
// forward slashes, leading separators and dots are stripped, and "." or
// ".." path segments are dropped entirely. An entry whose name sanitizes to
// nothing, or whose resolved path would land outside dest, is skipped
// rather than failing the whole extraction, so one malicious entry does not
// abort recovery of an otherwise valid archive.
func ExtractArchive(ctx context.Context, fsys absfs.FileSystem, r io.Reader, dest string) error {
	destAbs, err := absPath(fsys, dest)
	if err != nil {
		return err
	}

	if err := fsys.MkdirAll(fromSlash(fsys, destAbs), 0755); err != nil {
		return NewIOError("mkdir", dest, err)
	}

	tr := tar.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read archive entry: %w", err)
		}

		name := sanitizeEntryName(hdr.Name)
		if name == "" {
			continue
		}

		target := path.Join(destAbs, name)
		if target != destAbs && !strings.HasPrefix(target, destAbs+"/") {
			continue
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := fsys.MkdirAll(fromSlash(fsys, target), 0755); err != nil {
				return NewIOError("mkdir", target, err)
			}

		case tar.TypeReg:
			if err := extractFileEntry(ctx, fsys, tr, target); err != nil {
				return err
			}
		}
	}
}

// extractFileEntry writes one regular file entry, creating parents first.
func extractFileEntry(ctx context.Context, fsys absfs.FileSystem, tr *tar.Reader, target string) error {
	parent := path.Dir(target)
	if err := fsys.MkdirAll(fromSlash(fsys, parent), 0755); err != nil {
		return NewIOError("mkdir", parent, err)
	}

	f, err := fsys.OpenFile(fromSlash(fsys, target), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return NewIOError("create", target, err)
	}

	if _, err := copyContext(ctx, f, tr); err != nil {
		f.Close()
		return fmt.Errorf("failed to extract %q: %w", target, err)
	}

	if err := f.Close(); err != nil {
		return NewIOError("close", target, err)
	}
	return nil
}

// sanitizeEntryName normalizes an archive entry name to a safe relative
// slash path. Leading separators and dots are stripped, then "." and ".."
// segments are dropped. Dropping (rather than rejecting) ".." means
// "a/../b" collapses to "a/b"; adversarial names lose their traversal
// segments instead of failing the extraction. Returns "" when nothing
// usable remains.
func sanitizeEntryName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimLeft(name, "/.")

	parts := strings.Split(name, "/")
	kept := parts[:0]
	for _, part := range parts {
		switch part {
		case "", ".", "..":
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, "/")
}

// readDirSorted lists a directory in a stable, name-sorted order.
func readDirSorted(fsys absfs.FileSystem, dir string) ([]os.FileInfo, error) {
	f, err := fsys.Open(fromSlash(fsys, dir))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries, err := f.Readdir(-1)
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	return entries, nil
}

// copyContext copies src to dst in bounded chunks, checking cancellation
// before each chunk.
func copyContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, 32*1024)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, err := src.Read(buf)
		if n > 0 {
			wn, werr := dst.Write(buf[:n])
			written += int64(wn)
			if werr != nil {
				return written, werr
			}
			if wn < n {
				return written, io.ErrShortWrite
			}
		}
		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, err
		}
	}
}

// toSlash converts a filesystem path to slash-separated form.
func toSlash(fsys absfs.FileSystem, p string) string {
	if sep := fsys.Separator(); sep != '/' {
		return strings.ReplaceAll(p, string(sep), "/")
	}
	return p
}

// fromSlash converts a slash-separated path to the filesystem's native
// separator.
func fromSlash(fsys absfs.FileSystem, p string) string {
	if sep := fsys.Separator(); sep != '/' {
		return strings.ReplaceAll(p, "/", string(sep))
	}
	return p
}

// absPath resolves p to an absolute slash-separated path on fsys.
func absPath(fsys absfs.FileSystem, p string) (string, error) {
	s := toSlash(fsys, p)
	if path.IsAbs(s) {
		return path.Clean(s), nil
	}
	wd, err := fsys.Getwd()
	if err != nil {
		return "", NewIOError("getwd", p, err)
	}
	return path.Join(toSlash(fsys, wd), s), nil
}
