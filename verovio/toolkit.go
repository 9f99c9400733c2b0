package verovio

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrNotLoaded is returned before a successful Load.
	ErrNotLoaded = errors.New("verovio library not loaded")
	// ErrClosed is returned for calls on a closed Toolkit.
	ErrClosed = errors.New("toolkit closed")
	// ErrInvalidString is returned for arguments containing a NUL byte.
	ErrInvalidString = errors.New("string contains a NUL byte")
	// ErrRejected is returned when the toolkit reports failure.
	ErrRejected = errors.New("rejected by the toolkit")
)

// Toolkit is one instance of vrv::Toolkit. Its methods may be called from
// several goroutines; they run one at a time.
type Toolkit struct {
	mu sync.Mutex
	b  backend
	h  uintptr

	// Log buffer content already passed to the interceptor.
	delivered string
}

// New returns a toolkit using the resources compiled into the library.
func New() (*Toolkit, error) {
	b, err := loaded()
	if err != nil {
		return nil, err
	}
	return newToolkit(b, b.constructor())
}

// NewWithResourcePath returns a toolkit reading its fonts from path.
func NewWithResourcePath(path string) (*Toolkit, error) {
	if err := checkString("path", path); err != nil {
		return nil, err
	}
	b, err := loaded()
	if err != nil {
		return nil, err
	}
	return newToolkit(b, b.constructorResourcePath(path))
}

func newToolkit(b backend, h uintptr) (*Toolkit, error) {
	if h == 0 {
		return nil, fmt.Errorf("creating toolkit: %w", ErrRejected)
	}
	return &Toolkit{b: b, h: h}, nil
}

func checkString(name, s string) error {
	if strings.IndexByte(s, 0) != -1 {
		return fmt.Errorf("%s: %w", name, ErrInvalidString)
	}
	return nil
}

// do runs fn on the toolkit handle. Log lines produced by the call are
// passed to the installed interceptor.
func (t *Toolkit) do(fn func(b backend, h uintptr)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.h == 0 {
		return ErrClosed
	}
	fn(t.b, t.h)
	t.delivered = deliverLog(t.b, t.h, t.delivered)
	return nil
}

// Close destroys the toolkit. Closing a closed toolkit does nothing.
func (t *Toolkit) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.h == 0 {
		return nil
	}
	t.b.destructor(t.h)
	t.h = 0
	return nil
}

func (t *Toolkit) Version() (string, error) {
	var v string
	err := t.do(func(b backend, h uintptr) {
		v = b.getVersion(h)
	})
	return v, err
}

// LoadData loads a document in any of the input formats the toolkit
// detects.
func (t *Toolkit) LoadData(data string) error {
	if err := checkString("data", data); err != nil {
		return err
	}
	var ok bool
	if err := t.do(func(b backend, h uintptr) {
		ok = b.loadData(h, data)
	}); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("loading data: %w", ErrRejected)
	}
	return nil
}

func (t *Toolkit) PageCount() (int, error) {
	var n int
	err := t.do(func(b backend, h uintptr) {
		n = b.getPageCount(h)
	})
	return n, err
}

// RenderToSVG renders page, counted from 1.
func (t *Toolkit) RenderToSVG(page int, xmlDeclaration bool) (string, error) {
	if page < 1 {
		return "", fmt.Errorf("page %d: %w", page, ErrRejected)
	}
	var svg string
	err := t.do(func(b backend, h uintptr) {
		svg = b.renderToSVG(h, page, xmlDeclaration)
	})
	return svg, err
}

// SetOptions applies options given as a JSON object.
func (t *Toolkit) SetOptions(json string) error {
	if err := checkString("options", json); err != nil {
		return err
	}
	var ok bool
	if err := t.do(func(b backend, h uintptr) {
		ok = b.setOptions(h, json)
	}); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("setting options: %w", ErrRejected)
	}
	return nil
}

// Options returns the current options as a JSON object.
func (t *Toolkit) Options() (string, error) {
	var v string
	err := t.do(func(b backend, h uintptr) {
		v = b.getOptions(h)
	})
	return v, err
}

func (t *Toolkit) SetResourcePath(path string) error {
	if err := checkString("path", path); err != nil {
		return err
	}
	var ok bool
	if err := t.do(func(b backend, h uintptr) {
		ok = b.setResourcePath(h, path)
	}); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("setting resource path %s: %w", path, ErrRejected)
	}
	return nil
}

// MEI returns the loaded document as MEI. options is a JSON object, empty
// for the defaults.
func (t *Toolkit) MEI(options string) (string, error) {
	if err := checkString("options", options); err != nil {
		return "", err
	}
	var v string
	err := t.do(func(b backend, h uintptr) {
		v = b.getMEI(h, options)
	})
	return v, err
}

// Log returns the log buffer of the toolkit. It is empty while an
// interceptor is installed.
func (t *Toolkit) Log() (string, error) {
	var v string
	err := t.do(func(b backend, h uintptr) {
		if interceptorInstalled() {
			return
		}
		v = b.getLog(h)
	})
	return v, err
}
