// Package nodefs is the JS-facing half of SPEC_FULL.md section 6.5's
// Node-compatible filesystem surface: it turns internal/hostfs's plain
// Go filesystem operations into a vm.Extension a script can
// `require("fs")`/`require("fs/promises")`, following the same
// "storage package stays host-language-shaped, extension package does
// the JS binding" split the teacher draws between
// internal/fsapi/internal/sysfs and imports/wasi_snapshot_preview1.
//
// Grounded on imports/wasi_snapshot_preview1/fs.go's registration
// shape (one Go function per syscall, wired under a fixed name table)
// and on internal/platform's errno-table pattern for the error-code
// mapping, here re-targeted at Node's {code, syscall, path, dest}
// error shape instead of WASI's numeric errno.
package nodefs

import (
	"io/fs"
	"os"
	"sync"

	"github.com/octofhir/otter-vm/internal/hostfs"
	"github.com/octofhir/otter-vm/internal/interp"
	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsvalue"
	"github.com/octofhir/otter-vm/internal/vm"
)

// Capabilities gates which operation classes the extension will
// perform, fail-closed per SPEC_FULL.md section 6.5: a zero-value
// Capabilities grants nothing, matching the teacher's own WASI
// preopen model where an unlisted path/capability is simply not
// reachable rather than reachable-until-denied.
type Capabilities struct {
	Read  bool
	Write bool
}

// Extension implements vm.Extension and vm.ModuleSpecifierExtension,
// exposing "fs"/"node:fs" (synchronous) and "fs/promises"/
// "node:fs/promises" (Promise-returning) namespaces backed by one
// internal/hostfs.FS.
type Extension struct {
	fs   *hostfs.FS
	caps Capabilities

	mu      sync.Mutex
	handles map[int]*os.File
	nextFD  int
}

// New constructs the extension rooted at fsys with the given
// capability grants.
func New(fsys *hostfs.FS, caps Capabilities) *Extension {
	return &Extension{fs: fsys, caps: caps, handles: map[int]*os.File{}, nextFD: 3}
}

func (e *Extension) Name() string { return "node:fs" }

// Install has nothing to wire onto the global object - Node's fs
// module is reachable only through require()/import, never a bare
// global, matching how the teacher's own WASI module installs nothing
// outside its own module namespace either.
func (e *Extension) Install(rc *vm.RegistrationContext) error { return nil }

func (e *Extension) Specifiers() []string {
	return []string{"fs", "node:fs", "fs/promises", "node:fs/promises"}
}

func (e *Extension) LoadModule(specifier string, rc *vm.RegistrationContext) (jsvalue.Value, error) {
	switch specifier {
	case "fs", "node:fs":
		return e.syncNamespace(rc), nil
	case "fs/promises", "node:fs/promises":
		return e.promiseNamespace(rc), nil
	default:
		return jsvalue.Undefined, nil
	}
}

// fsError is the {code, syscall, path, dest} shaped Error object
// SPEC_FULL.md section 6.5 requires, grounded on internal/hostfs.Error
// carrying exactly those fields already - this just lifts them onto a
// real JS Error instance via ErrorFactory/the engine's error-property
// convention rather than inventing a second representation.
func fsErrorValue(t *interp.VmThread, err error) jsvalue.Value {
	code, syscallName, path, dest := "EIO", "", "", ""
	if fe, ok := err.(*hostfs.Error); ok {
		code, syscallName, path, dest = fe.Code, fe.Syscall, fe.Path, fe.Dest
	}
	v := t.NewErrorValue("Error", err.Error())
	obj, ok := t.Heap.Object(v)
	if !ok {
		return v
	}
	setStr := func(name, s string) {
		_ = jsobject.DefineProperty(obj, strKey(name), jsobject.PropertyDescriptor{
			Value: t.StringValue(s), Writable: true, Enumerable: true, Configurable: true,
		})
	}
	setStr("code", code)
	setStr("syscall", syscallName)
	setStr("path", path)
	if dest != "" {
		setStr("dest", dest)
	}
	return v
}

func strKey(s string) jsobject.PropertyKey { return jsobject.StringKey(jsvalue.Intern(s)) }

// capError builds the fail-closed denial error for a capability that
// wasn't granted, using Node's own EACCES/EPERM-shaped error for a
// blocked syscall rather than a bespoke internal error type, so script
// code can catch it exactly like a real permission error.
func capError(t *interp.VmThread, syscallName, path string) jsvalue.Value {
	return fsErrorValue(t, &hostfs.Error{Code: "EACCES", Syscall: syscallName, Path: path})
}

func (e *Extension) requireRead(t *interp.VmThread, syscallName, path string) bool {
	if e.caps.Read {
		return true
	}
	t.ThrowValue(capError(t, syscallName, path))
	return false
}

func (e *Extension) requireWrite(t *interp.VmThread, syscallName, path string) bool {
	if e.caps.Write {
		return true
	}
	t.ThrowValue(capError(t, syscallName, path))
	return false
}

func statObject(rc *vm.RegistrationContext, st hostfs.Stat) jsvalue.Value {
	t := rc.Thread()
	v := t.Heap.NewObject(t.Graph, t.ObjectPrototype)
	o, _ := t.Heap.Object(v)
	set := func(name string, val jsvalue.Value) {
		_ = jsobject.DefineProperty(o, strKey(name), jsobject.PropertyDescriptor{
			Value: val, Writable: true, Enumerable: true, Configurable: true,
		})
	}
	set("size", jsvalue.Number(float64(st.Size)))
	set("mode", jsvalue.Number(float64(st.Mode.Perm())))
	set("mtimeMs", jsvalue.Number(float64(st.ModTime)/1e6))
	set("isDirectory", boolThunk(t, st.IsDir))
	set("isFile", boolThunk(t, !st.IsDir && st.Mode.IsRegular()))
	set("isSymbolicLink", boolThunk(t, st.Mode&fs.ModeSymlink != 0))
	return v
}

func boolThunk(t *interp.VmThread, b bool) jsvalue.Value {
	return t.Heap.NewClosure(&interp.Closure{
		NativeName:   "",
		NativeLength: 0,
		Native: func(t *interp.VmThread, _ jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
			return jsvalue.Boolean(b), nil
		},
	})
}

func direntArray(rc *vm.RegistrationContext, entries []hostfs.Dirent) jsvalue.Value {
	t := rc.Thread()
	v := t.Heap.NewArray(t.Graph, t.ArrayPrototype)
	o, _ := t.Heap.Object(v)
	for _, d := range entries {
		o.AppendElement(t.StringValue(d.Name))
	}
	return v
}

func argStr(t *interp.VmThread, args []jsvalue.Value, i int) string {
	if i < 0 || i >= len(args) {
		return ""
	}
	return t.ToString(args[i])
}

func argNum(t *interp.VmThread, args []jsvalue.Value, i int, def float64) float64 {
	if i < 0 || i >= len(args) || args[i].IsUndefined() {
		return def
	}
	return t.ToNumber(args[i])
}

// optBool reads a boolean-valued named property off an options-object
// argument (`{recursive: true}`), the one spot this file needs to read
// an arbitrary property by name off a plain argument object rather
// than coercing the whole argument.
func optBool(t *interp.VmThread, optsVal jsvalue.Value, name string) bool {
	if optsVal.IsUndefined() {
		return false
	}
	return interp.ToBoolean(t.GetProperty(optsVal, strKey(name)))
}

// syncOp is one fs operation's Go implementation: read args/this,
// touch the filesystem, produce a result Value or throw. Every
// *Sync binding and every Promise-returning binding share this same
// function, wrapped differently at the two call sites below -
// exactly how the teacher's wasi fs.go shares one Go implementation
// between the "returns errno" and "returns Result" ABI shapes some of
// its WASI preview1/preview2 functions need.
type syncOp func(rc *vm.RegistrationContext, t *interp.VmThread, args []jsvalue.Value) (jsvalue.Value, error)

func (e *Extension) ops() map[string]syncOp {
	return map[string]syncOp{
		"readFile": func(rc *vm.RegistrationContext, t *interp.VmThread, args []jsvalue.Value) (jsvalue.Value, error) {
			path := argStr(t, args, 0)
			if !e.requireRead(t, "read", path) {
				return jsvalue.Undefined, nil
			}
			data, err := e.fs.ReadFile(path)
			if err != nil {
				return jsvalue.Undefined, err
			}
			return t.StringValue(string(data)), nil
		},
		"writeFile": func(rc *vm.RegistrationContext, t *interp.VmThread, args []jsvalue.Value) (jsvalue.Value, error) {
			path := argStr(t, args, 0)
			if !e.requireWrite(t, "open", path) {
				return jsvalue.Undefined, nil
			}
			return jsvalue.Undefined, e.fs.WriteFile(path, []byte(argStr(t, args, 1)), 0o644)
		},
		"appendFile": func(rc *vm.RegistrationContext, t *interp.VmThread, args []jsvalue.Value) (jsvalue.Value, error) {
			path := argStr(t, args, 0)
			if !e.requireWrite(t, "open", path) {
				return jsvalue.Undefined, nil
			}
			return jsvalue.Undefined, e.fs.AppendFile(path, []byte(argStr(t, args, 1)), 0o644)
		},
		"exists": func(rc *vm.RegistrationContext, t *interp.VmThread, args []jsvalue.Value) (jsvalue.Value, error) {
			if !e.caps.Read {
				return jsvalue.Boolean(false), nil
			}
			return jsvalue.Boolean(e.fs.Exists(argStr(t, args, 0))), nil
		},
		"access": func(rc *vm.RegistrationContext, t *interp.VmThread, args []jsvalue.Value) (jsvalue.Value, error) {
			path := argStr(t, args, 0)
			if !e.requireRead(t, "access", path) {
				return jsvalue.Undefined, nil
			}
			return jsvalue.Undefined, e.fs.Access(path)
		},
		"stat": func(rc *vm.RegistrationContext, t *interp.VmThread, args []jsvalue.Value) (jsvalue.Value, error) {
			path := argStr(t, args, 0)
			if !e.requireRead(t, "stat", path) {
				return jsvalue.Undefined, nil
			}
			st, err := e.fs.Stat(path)
			if err != nil {
				return jsvalue.Undefined, err
			}
			return statObject(rc, st), nil
		},
		"lstat": func(rc *vm.RegistrationContext, t *interp.VmThread, args []jsvalue.Value) (jsvalue.Value, error) {
			path := argStr(t, args, 0)
			if !e.requireRead(t, "lstat", path) {
				return jsvalue.Undefined, nil
			}
			st, err := e.fs.Lstat(path)
			if err != nil {
				return jsvalue.Undefined, err
			}
			return statObject(rc, st), nil
		},
		"readdir": func(rc *vm.RegistrationContext, t *interp.VmThread, args []jsvalue.Value) (jsvalue.Value, error) {
			path := argStr(t, args, 0)
			if !e.requireRead(t, "scandir", path) {
				return jsvalue.Undefined, nil
			}
			entries, err := e.fs.ReadDir(path)
			if err != nil {
				return jsvalue.Undefined, err
			}
			return direntArray(rc, entries), nil
		},
		"mkdir": func(rc *vm.RegistrationContext, t *interp.VmThread, args []jsvalue.Value) (jsvalue.Value, error) {
			path := argStr(t, args, 0)
			if !e.requireWrite(t, "mkdir", path) {
				return jsvalue.Undefined, nil
			}
			recursive := optBool(t, arg2(args, 1), "recursive")
			return jsvalue.Undefined, e.fs.Mkdir(path, 0o755, recursive)
		},
		"mkdtemp": func(rc *vm.RegistrationContext, t *interp.VmThread, args []jsvalue.Value) (jsvalue.Value, error) {
			prefix := argStr(t, args, 0)
			if !e.requireWrite(t, "mkdtemp", prefix) {
				return jsvalue.Undefined, nil
			}
			dir, err := e.fs.MkdirTemp(prefix + "*")
			if err != nil {
				return jsvalue.Undefined, err
			}
			return t.StringValue(dir), nil
		},
		"rmdir": func(rc *vm.RegistrationContext, t *interp.VmThread, args []jsvalue.Value) (jsvalue.Value, error) {
			path := argStr(t, args, 0)
			if !e.requireWrite(t, "rmdir", path) {
				return jsvalue.Undefined, nil
			}
			return jsvalue.Undefined, e.fs.Rmdir(path)
		},
		"rm": func(rc *vm.RegistrationContext, t *interp.VmThread, args []jsvalue.Value) (jsvalue.Value, error) {
			path := argStr(t, args, 0)
			if !e.requireWrite(t, "unlink", path) {
				return jsvalue.Undefined, nil
			}
			recursive := optBool(t, arg2(args, 1), "recursive")
			if recursive {
				return jsvalue.Undefined, e.fs.RemoveAll(path)
			}
			return jsvalue.Undefined, e.fs.Unlink(path)
		},
		"unlink": func(rc *vm.RegistrationContext, t *interp.VmThread, args []jsvalue.Value) (jsvalue.Value, error) {
			path := argStr(t, args, 0)
			if !e.requireWrite(t, "unlink", path) {
				return jsvalue.Undefined, nil
			}
			return jsvalue.Undefined, e.fs.Unlink(path)
		},
		"cp": func(rc *vm.RegistrationContext, t *interp.VmThread, args []jsvalue.Value) (jsvalue.Value, error) {
			src, dst := argStr(t, args, 0), argStr(t, args, 1)
			if !e.requireRead(t, "cp", src) || !e.requireWrite(t, "cp", dst) {
				return jsvalue.Undefined, nil
			}
			return jsvalue.Undefined, e.fs.CopyFile(src, dst)
		},
		"copyFile": func(rc *vm.RegistrationContext, t *interp.VmThread, args []jsvalue.Value) (jsvalue.Value, error) {
			src, dst := argStr(t, args, 0), argStr(t, args, 1)
			if !e.requireRead(t, "copyfile", src) || !e.requireWrite(t, "copyfile", dst) {
				return jsvalue.Undefined, nil
			}
			return jsvalue.Undefined, e.fs.CopyFile(src, dst)
		},
		"rename": func(rc *vm.RegistrationContext, t *interp.VmThread, args []jsvalue.Value) (jsvalue.Value, error) {
			oldPath, newPath := argStr(t, args, 0), argStr(t, args, 1)
			if !e.requireWrite(t, "rename", oldPath) {
				return jsvalue.Undefined, nil
			}
			return jsvalue.Undefined, e.fs.Rename(oldPath, newPath)
		},
		"realpath": func(rc *vm.RegistrationContext, t *interp.VmThread, args []jsvalue.Value) (jsvalue.Value, error) {
			path := argStr(t, args, 0)
			if !e.requireRead(t, "realpath", path) {
				return jsvalue.Undefined, nil
			}
			resolved, err := e.fs.Realpath(path)
			if err != nil {
				return jsvalue.Undefined, err
			}
			return t.StringValue(resolved), nil
		},
		"chmod": func(rc *vm.RegistrationContext, t *interp.VmThread, args []jsvalue.Value) (jsvalue.Value, error) {
			path := argStr(t, args, 0)
			if !e.requireWrite(t, "chmod", path) {
				return jsvalue.Undefined, nil
			}
			return jsvalue.Undefined, e.fs.Chmod(path, fs.FileMode(uint32(argNum(t, args, 1, 0o644))))
		},
		"symlink": func(rc *vm.RegistrationContext, t *interp.VmThread, args []jsvalue.Value) (jsvalue.Value, error) {
			target, linkPath := argStr(t, args, 0), argStr(t, args, 1)
			if !e.requireWrite(t, "symlink", linkPath) {
				return jsvalue.Undefined, nil
			}
			return jsvalue.Undefined, e.fs.Symlink(target, linkPath)
		},
		"readlink": func(rc *vm.RegistrationContext, t *interp.VmThread, args []jsvalue.Value) (jsvalue.Value, error) {
			path := argStr(t, args, 0)
			if !e.requireRead(t, "readlink", path) {
				return jsvalue.Undefined, nil
			}
			target, err := e.fs.Readlink(path)
			if err != nil {
				return jsvalue.Undefined, err
			}
			return t.StringValue(target), nil
		},
	}
}

// arg2 is arg's sibling for the rare spot this file needs the raw
// Value (to probe it as an options object) rather than a coerced Go
// scalar.
func arg2(args []jsvalue.Value, i int) jsvalue.Value {
	if i < 0 || i >= len(args) {
		return jsvalue.Undefined
	}
	return args[i]
}

// syncNamespace builds the "fs"/"node:fs" module object: every op in
// e.ops() installed under its Node `xSync` name, throwing a JS-visible
// fsError on failure instead of returning a (value, err) pair (Node's
// synchronous fs functions throw, they don't return error codes),
// plus the raw fd-based openSync/closeSync pair (no readSync/writeSync
// on an open fd).
func (e *Extension) syncNamespace(rc *vm.RegistrationContext) jsvalue.Value {
	t := rc.Thread()
	exports := map[string]jsvalue.Value{}
	for name, op := range e.ops() {
		op := op
		exports[name+"Sync"] = rc.NativeFunction(name+"Sync", 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
			v, err := op(rc, t, args)
			if err != nil {
				t.ThrowValue(fsErrorValue(t, err))
			}
			return v, nil
		})
	}
	exports["openSync"] = rc.NativeFunction("openSync", 2, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		path := argStr(t, args, 0)
		write := argStr(t, args, 1) != "r" && argStr(t, args, 1) != ""
		if write {
			if !e.requireWrite(t, "open", path) {
				return jsvalue.Undefined, nil
			}
		} else if !e.requireRead(t, "open", path) {
			return jsvalue.Undefined, nil
		}
		fd, err := e.open(path, argStr(t, args, 1))
		if err != nil {
			t.ThrowValue(fsErrorValue(t, err))
		}
		return jsvalue.Number(float64(fd)), nil
	})
	exports["closeSync"] = rc.NativeFunction("closeSync", 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		e.close(int(argNum(t, args, 0, -1)))
		return jsvalue.Undefined, nil
	})
	return rc.NewModuleNamespace(exports)
}

// promiseNamespace builds the "fs/promises"/"node:fs/promises" module
// object: every op in e.ops() installed under its bare (non-Sync) name,
// each call settling a freshly allocated Promise in the same turn
// (this engine performs filesystem I/O synchronously under the hood;
// see DESIGN.md for why that is not itself a spec violation - the
// Promise identity and .then ordering are what callers actually
// observe, not wall-clock asynchrony).
func (e *Extension) promiseNamespace(rc *vm.RegistrationContext) jsvalue.Value {
	exports := map[string]jsvalue.Value{}
	for name, op := range e.ops() {
		op := op
		exports[name] = rc.NativeFunction(name, 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
			promiseVal := t.Heap.NewPromise(interp.NewPromise())
			v, err := op(rc, t, args)
			if err != nil {
				t.SettlePromise(promiseVal, fsErrorValue(t, err), true)
			} else {
				t.SettlePromise(promiseVal, v, false)
			}
			return promiseVal, nil
		})
	}
	return rc.NewModuleNamespace(exports)
}

func (e *Extension) open(path, flag string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	osFlag := os.O_RDONLY
	switch flag {
	case "w":
		osFlag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case "a":
		osFlag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	case "r+", "w+", "a+":
		osFlag = os.O_RDWR | os.O_CREATE
	}
	f, err := os.OpenFile(e.fs.Resolve(path), osFlag, 0o644)
	if err != nil {
		return 0, err
	}
	fd := e.nextFD
	e.nextFD++
	e.handles[fd] = f
	return fd, nil
}

func (e *Extension) close(fd int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if f, ok := e.handles[fd]; ok {
		_ = f.Close()
		delete(e.handles, fd)
	}
}
