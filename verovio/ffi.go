package verovio

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"unsafe"

	"github.com/jupiterrider/ffi"
	"golang.org/x/sys/unix"
)

// backend is the C interface of the toolkit. Strings passed to it never
// contain NUL bytes.
type backend interface {
	constructor() uintptr
	constructorResourcePath(path string) uintptr
	destructor(tk uintptr)
	getLog(tk uintptr) string
	getVersion(tk uintptr) string
	getPageCount(tk uintptr) int
	loadData(tk uintptr, data string) bool
	renderToSVG(tk uintptr, page int, xmlDeclaration bool) string
	setOptions(tk uintptr, options string) bool
	getOptions(tk uintptr) string
	setResourcePath(tk uintptr, path string) bool
	getMEI(tk uintptr, options string) string
	enableLog(on bool)
	enableLogToBuffer(on bool)
}

var (
	backendMu sync.RWMutex
	lib       backend
)

func setBackend(b backend) {
	backendMu.Lock()
	defer backendMu.Unlock()
	lib = b
}

func loaded() (backend, error) {
	backendMu.RLock()
	defer backendMu.RUnlock()
	if lib == nil {
		return nil, ErrNotLoaded
	}
	return lib, nil
}

// Load opens the verovio library found in dir and prepares its entry
// points.
func Load(dir string) error {
	l, err := ffi.Load(getLibraryPath(dir))
	if err != nil {
		return fmt.Errorf("failed to load library: %w", err)
	}

	b := &ffiBackend{lib: l}
	if err := b.loadFuncs(); err != nil {
		return err
	}

	setBackend(b)
	return nil
}

func getLibraryPath(basePath string) string {
	var filename string
	switch runtime.GOOS {
	case "linux", "freebsd":
		filename = "libverovio.so"
	case "darwin":
		filename = "libverovio.dylib"
	case "windows":
		filename = "verovio.dll"
	default:
		filename = "libverovio.so"
	}
	return filepath.Join(basePath, filename)
}

type ffiBackend struct {
	lib ffi.Lib

	constructorFunc             ffi.Fun
	constructorResourcePathFunc ffi.Fun
	destructorFunc              ffi.Fun
	getLogFunc                  ffi.Fun
	getVersionFunc              ffi.Fun
	getPageCountFunc            ffi.Fun
	loadDataFunc                ffi.Fun
	renderToSVGFunc             ffi.Fun
	setOptionsFunc              ffi.Fun
	getOptionsFunc              ffi.Fun
	setResourcePathFunc         ffi.Fun
	getMEIFunc                  ffi.Fun
	enableLogFunc               ffi.Fun
	enableLogToBufferFunc       ffi.Fun
}

func (b *ffiBackend) loadFuncs() error {
	funcs := []struct {
		name string
		fn   *ffi.Fun
		ret  *ffi.Type
		args []*ffi.Type
	}{
		{"vrvToolkit_constructor", &b.constructorFunc, &ffi.TypePointer, nil},
		{"vrvToolkit_constructorResourcePath", &b.constructorResourcePathFunc, &ffi.TypePointer, []*ffi.Type{&ffi.TypePointer}},
		{"vrvToolkit_destructor", &b.destructorFunc, &ffi.TypeVoid, []*ffi.Type{&ffi.TypePointer}},
		{"vrvToolkit_getLog", &b.getLogFunc, &ffi.TypePointer, []*ffi.Type{&ffi.TypePointer}},
		{"vrvToolkit_getVersion", &b.getVersionFunc, &ffi.TypePointer, []*ffi.Type{&ffi.TypePointer}},
		{"vrvToolkit_getPageCount", &b.getPageCountFunc, &ffi.TypeSint32, []*ffi.Type{&ffi.TypePointer}},
		{"vrvToolkit_loadData", &b.loadDataFunc, &ffi.TypeUint8, []*ffi.Type{&ffi.TypePointer, &ffi.TypePointer}},
		{"vrvToolkit_renderToSVG", &b.renderToSVGFunc, &ffi.TypePointer, []*ffi.Type{&ffi.TypePointer, &ffi.TypeSint32, &ffi.TypeUint8}},
		{"vrvToolkit_setOptions", &b.setOptionsFunc, &ffi.TypeUint8, []*ffi.Type{&ffi.TypePointer, &ffi.TypePointer}},
		{"vrvToolkit_getOptions", &b.getOptionsFunc, &ffi.TypePointer, []*ffi.Type{&ffi.TypePointer}},
		{"vrvToolkit_setResourcePath", &b.setResourcePathFunc, &ffi.TypeUint8, []*ffi.Type{&ffi.TypePointer, &ffi.TypePointer}},
		{"vrvToolkit_getMEI", &b.getMEIFunc, &ffi.TypePointer, []*ffi.Type{&ffi.TypePointer, &ffi.TypePointer}},
		{"enableLog", &b.enableLogFunc, &ffi.TypeVoid, []*ffi.Type{&ffi.TypeUint8}},
		{"enableLogToBuffer", &b.enableLogToBufferFunc, &ffi.TypeVoid, []*ffi.Type{&ffi.TypeUint8}},
	}

	for _, f := range funcs {
		var err error
		if *f.fn, err = b.lib.Prep(f.name, f.ret, f.args...); err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
	}
	return nil
}

func goString(ptr *byte) string {
	if ptr == nil {
		return ""
	}
	return unix.BytePtrToString(ptr)
}

func (b *ffiBackend) constructor() uintptr {
	var result uintptr
	b.constructorFunc.Call(unsafe.Pointer(&result))
	return result
}

func (b *ffiBackend) constructorResourcePath(path string) uintptr {
	pathPtr, _ := unix.BytePtrFromString(path)
	var result uintptr
	b.constructorResourcePathFunc.Call(unsafe.Pointer(&result), unsafe.Pointer(&pathPtr))
	return result
}

func (b *ffiBackend) destructor(tk uintptr) {
	b.destructorFunc.Call(nil, unsafe.Pointer(&tk))
}

func (b *ffiBackend) callString(fn ffi.Fun, tk uintptr) string {
	var resultPtr *byte
	fn.Call(unsafe.Pointer(&resultPtr), unsafe.Pointer(&tk))
	return goString(resultPtr)
}

func (b *ffiBackend) callBoolString(fn ffi.Fun, tk uintptr, s string) bool {
	sPtr, _ := unix.BytePtrFromString(s)
	var result ffi.Arg
	fn.Call(unsafe.Pointer(&result), unsafe.Pointer(&tk), unsafe.Pointer(&sPtr))
	return result.Bool()
}

func (b *ffiBackend) getLog(tk uintptr) string {
	return b.callString(b.getLogFunc, tk)
}

func (b *ffiBackend) getVersion(tk uintptr) string {
	return b.callString(b.getVersionFunc, tk)
}

func (b *ffiBackend) getPageCount(tk uintptr) int {
	var result ffi.Arg
	b.getPageCountFunc.Call(unsafe.Pointer(&result), unsafe.Pointer(&tk))
	return int(int32(result))
}

func (b *ffiBackend) loadData(tk uintptr, data string) bool {
	return b.callBoolString(b.loadDataFunc, tk, data)
}

func (b *ffiBackend) renderToSVG(tk uintptr, page int, xmlDeclaration bool) string {
	pageNo := int32(page)
	var resultPtr *byte
	b.renderToSVGFunc.Call(unsafe.Pointer(&resultPtr), unsafe.Pointer(&tk), unsafe.Pointer(&pageNo), unsafe.Pointer(&xmlDeclaration))
	return goString(resultPtr)
}

func (b *ffiBackend) setOptions(tk uintptr, options string) bool {
	return b.callBoolString(b.setOptionsFunc, tk, options)
}

func (b *ffiBackend) getOptions(tk uintptr) string {
	return b.callString(b.getOptionsFunc, tk)
}

func (b *ffiBackend) setResourcePath(tk uintptr, path string) bool {
	return b.callBoolString(b.setResourcePathFunc, tk, path)
}

func (b *ffiBackend) getMEI(tk uintptr, options string) string {
	optionsPtr, _ := unix.BytePtrFromString(options)
	var resultPtr *byte
	b.getMEIFunc.Call(unsafe.Pointer(&resultPtr), unsafe.Pointer(&tk), unsafe.Pointer(&optionsPtr))
	return goString(resultPtr)
}

func (b *ffiBackend) enableLog(on bool) {
	b.enableLogFunc.Call(nil, unsafe.Pointer(&on))
}

func (b *ffiBackend) enableLogToBuffer(on bool) {
	b.enableLogToBufferFunc.Call(nil, unsafe.Pointer(&on))
}
