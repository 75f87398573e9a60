// Package hostfs implements the storage side of SPEC_FULL.md section
// 6.5's Node-compatible filesystem surface: real file I/O plus errno
// translation into Node's {code, syscall, path} error shape. It is the
// thing imports/nodefs' "fs"/"fs/promises" extension calls into.
//
// Grounded on the teacher's own WASI filesystem host functions
// (imports/wasi_snapshot_preview1/fs.go) for the shape of "one Go
// function per syscall, mapped to a small stable error-code enum". The
// directory-entry shape (Dirent) follows the teacher's own
// internal/fsapi.Dirent field-for-field; that package otherwise wraps
// a File abstraction this package has no use for (hostfs talks to
// os/io-fs directly for actual I/O), so only the one reused shape is
// kept in-tree rather than the whole package.
package hostfs

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

// Dirent is an entry read from a directory, following the teacher's
// own internal/fsapi.Dirent shape.
type Dirent struct {
	Name string
	Type fs.FileMode
}

// IsDir reports whether the entry is a directory.
func (d Dirent) IsDir() bool { return d.Type&fs.ModeDir != 0 }

// FS is the filesystem a Node extension operates against. The default
// (NewOS) roots at the process's actual filesystem; tests substitute
// an instance rooted at a temp directory rather than a fake in-memory
// store, matching the teacher's own preference for exercising real
// syscalls over mocks wherever the test can afford to.
type FS struct {
	root string
}

// NewOS returns an FS rooted at root (every relative path is joined to
// it; an absolute path is used as-is, matching Node's own fs module,
// which does not sandbox paths by default).
func NewOS(root string) *FS { return &FS{root: root} }

// Resolve exposes the root-joining rule Open-like callers outside this
// package (imports/nodefs's raw fd table) need to reach the same path
// every other FS method reads/writes through.
func (f *FS) Resolve(path string) string { return f.resolve(path) }

func (f *FS) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(f.root, path)
}

// Error is the Node-shaped filesystem error: {code, syscall, path,
// dest}, grounded on the teacher's Errno-to-WASI mapping in
// imports/wasi_snapshot_preview1/fs.go, re-targeted at Node's string
// error codes (`ENOENT`, `EACCES`, ...) instead of WASI's numeric
// Errno.
type Error struct {
	Code    string
	Syscall string
	Path    string
	Dest    string
	errno   syscall.Errno
}

func (e *Error) Error() string {
	if e.Dest != "" {
		return e.Code + ": " + e.Syscall + ", " + e.Path + " -> " + e.Dest
	}
	return e.Code + ": " + e.Syscall + ", " + e.Path
}

// errnoCode maps a syscall.Errno to Node's string error code, the same
// finite small table shape as the teacher's Errno-to-WASI switch in
// fs.go, just targeting a different output vocabulary.
func errnoCode(errno syscall.Errno) string {
	switch errno {
	case syscall.ENOENT:
		return "ENOENT"
	case syscall.EACCES:
		return "EACCES"
	case syscall.EEXIST:
		return "EEXIST"
	case syscall.EISDIR:
		return "EISDIR"
	case syscall.ENOTDIR:
		return "ENOTDIR"
	case syscall.ENOTEMPTY:
		return "ENOTEMPTY"
	case syscall.EINVAL:
		return "EINVAL"
	case syscall.EBADF:
		return "EBADF"
	case syscall.EPERM:
		return "EPERM"
	case syscall.ELOOP:
		return "ELOOP"
	case syscall.ENAMETOOLONG:
		return "ENAMETOOLONG"
	default:
		return "EIO"
	}
}

func wrapErr(op, path, dest string, err error) error {
	if err == nil {
		return nil
	}
	var pathErr *os.PathError
	var linkErr *os.LinkError
	var errno syscall.Errno
	switch {
	case errors.As(err, &linkErr):
		errno, _ = linkErr.Err.(syscall.Errno)
	case errors.As(err, &pathErr):
		errno, _ = pathErr.Err.(syscall.Errno)
	default:
		errno, _ = err.(syscall.Errno)
	}
	if errno == 0 {
		if errors.Is(err, fs.ErrNotExist) {
			errno = syscall.ENOENT
		} else if errors.Is(err, fs.ErrExist) {
			errno = syscall.EEXIST
		} else if errors.Is(err, fs.ErrPermission) {
			errno = syscall.EACCES
		}
	}
	return &Error{Code: errnoCode(errno), Syscall: op, Path: path, Dest: dest, errno: errno}
}

// Stat mirrors Node's fs.Stat result: the handful of fields a script
// actually reads off it (size, mode bits, modification time and
// IsDir; the other is-a/is-b predicates are left to the caller via
// the fs.FileMode helpers on Mode).
type Stat struct {
	Size    int64
	Mode    fs.FileMode
	ModTime int64 // unix nanos
	IsDir   bool
}

func (f *FS) ReadFile(path string) ([]byte, error) {
	b, err := os.ReadFile(f.resolve(path))
	return b, wrapErr("read", path, "", err)
}

func (f *FS) WriteFile(path string, data []byte, mode fs.FileMode) error {
	return wrapErr("open", path, "", os.WriteFile(f.resolve(path), data, mode))
}

func (f *FS) AppendFile(path string, data []byte, mode fs.FileMode) error {
	fh, err := os.OpenFile(f.resolve(path), os.O_APPEND|os.O_CREATE|os.O_WRONLY, mode)
	if err != nil {
		return wrapErr("open", path, "", err)
	}
	defer fh.Close()
	_, err = fh.Write(data)
	return wrapErr("write", path, "", err)
}

func (f *FS) Exists(path string) bool {
	_, err := os.Stat(f.resolve(path))
	return err == nil
}

func (f *FS) Access(path string) error {
	_, err := os.Stat(f.resolve(path))
	return wrapErr("access", path, "", err)
}

func (f *FS) Stat(path string) (Stat, error) {
	return statOf(f.resolve(path), path, os.Stat)
}

func (f *FS) Lstat(path string) (Stat, error) {
	return statOf(f.resolve(path), path, os.Lstat)
}

func statOf(resolved, orig string, stat func(string) (os.FileInfo, error)) (Stat, error) {
	info, err := stat(resolved)
	if err != nil {
		return Stat{}, wrapErr("stat", orig, "", err)
	}
	return Stat{Size: info.Size(), Mode: info.Mode(), ModTime: info.ModTime().UnixNano(), IsDir: info.IsDir()}, nil
}

func (f *FS) ReadDir(path string) ([]Dirent, error) {
	entries, err := os.ReadDir(f.resolve(path))
	if err != nil {
		return nil, wrapErr("scandir", path, "", err)
	}
	out := make([]Dirent, 0, len(entries))
	for _, e := range entries {
		typ := fs.FileMode(0)
		if e.IsDir() {
			typ = fs.ModeDir
		} else if e.Type()&fs.ModeSymlink != 0 {
			typ = fs.ModeSymlink
		}
		out = append(out, Dirent{Name: e.Name(), Type: typ})
	}
	return out, nil
}

func (f *FS) Mkdir(path string, mode fs.FileMode, recursive bool) error {
	resolved := f.resolve(path)
	var err error
	if recursive {
		err = os.MkdirAll(resolved, mode)
	} else {
		err = os.Mkdir(resolved, mode)
	}
	return wrapErr("mkdir", path, "", err)
}

func (f *FS) MkdirTemp(pattern string) (string, error) {
	dir, err := os.MkdirTemp(f.root, pattern)
	if err != nil {
		return "", wrapErr("mkdtemp", pattern, "", err)
	}
	return dir, nil
}

func (f *FS) Rmdir(path string) error {
	return wrapErr("rmdir", path, "", os.Remove(f.resolve(path)))
}

func (f *FS) RemoveAll(path string) error {
	return wrapErr("rm", path, "", os.RemoveAll(f.resolve(path)))
}

func (f *FS) Unlink(path string) error {
	return wrapErr("unlink", path, "", os.Remove(f.resolve(path)))
}

func (f *FS) Rename(oldPath, newPath string) error {
	return wrapErr("rename", oldPath, newPath, os.Rename(f.resolve(oldPath), f.resolve(newPath)))
}

func (f *FS) CopyFile(src, dst string) error {
	in, err := os.Open(f.resolve(src))
	if err != nil {
		return wrapErr("open", src, "", err)
	}
	defer in.Close()
	out, err := os.Create(f.resolve(dst))
	if err != nil {
		return wrapErr("open", dst, "", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return wrapErr("copyfile", src, dst, err)
	}
	return nil
}

func (f *FS) Realpath(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(f.resolve(path))
	if err != nil {
		return "", wrapErr("realpath", path, "", err)
	}
	return resolved, nil
}

func (f *FS) Chmod(path string, mode fs.FileMode) error {
	return wrapErr("chmod", path, "", os.Chmod(f.resolve(path), mode))
}

func (f *FS) Symlink(target, linkPath string) error {
	return wrapErr("symlink", linkPath, target, os.Symlink(target, f.resolve(linkPath)))
}

func (f *FS) Readlink(path string) (string, error) {
	target, err := os.Readlink(f.resolve(path))
	if err != nil {
		return "", wrapErr("readlink", path, "", err)
	}
	return target, nil
}
