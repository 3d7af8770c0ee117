//go:build darwin || linux

package engine

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/san-kum/hadron/internal/dynamo"
)

// Library is a Native backed by a shared library exporting EngineStart,
// EngineSync, EngineStepCount and EngineStop with C linkage.
type Library struct {
	path   string
	handle uintptr

	start     func(params unsafe.Pointer, dim int32, size int64, particles unsafe.Pointer, count int64, infos unsafe.Pointer, linkCount int64, links unsafe.Pointer) uintptr
	sync      func(h uintptr, params unsafe.Pointer, size int64, particles unsafe.Pointer, count int64, infos unsafe.Pointer)
	stepCount func(h uintptr) int64
	stop      func(h uintptr)
}

func OpenLibrary(path string) (*Library, error) {
	h, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("open engine library %s: %w: %v", path, dynamo.ErrEngineFailure, err)
	}
	l := &Library{path: path, handle: h}

	syms := []struct {
		name string
		fn   any
	}{
		{"EngineStart", &l.start},
		{"EngineSync", &l.sync},
		{"EngineStepCount", &l.stepCount},
		{"EngineStop", &l.stop},
	}
	for _, s := range syms {
		addr, err := purego.Dlsym(h, s.name)
		if err != nil {
			purego.Dlclose(h)
			return nil, fmt.Errorf("engine library %s: symbol %s: %w: %v", path, s.name, dynamo.ErrEngineFailure, err)
		}
		purego.RegisterFunc(s.fn, addr)
	}
	return l, nil
}

func (l *Library) Close() error {
	if l.handle == 0 {
		return nil
	}
	err := purego.Dlclose(l.handle)
	l.handle = 0
	return err
}

func (l *Library) Start(params *Parameters, dim int, particles []float64, infos []ParticleInfo, links []Link) (Handle, error) {
	h := l.start(unsafe.Pointer(params), int32(dim),
		int64(len(particles)), first(particles),
		int64(len(infos)), first(infos),
		int64(len(links)), first(links))
	runtime.KeepAlive(params)
	runtime.KeepAlive(particles)
	runtime.KeepAlive(infos)
	runtime.KeepAlive(links)
	return Handle(h), nil
}

func (l *Library) Sync(h Handle, params *Parameters, particles []float64, infos []ParticleInfo) error {
	// the engine takes the particle array by reference to its pointer
	data := first(particles)
	l.sync(uintptr(h), unsafe.Pointer(params),
		int64(len(particles)), unsafe.Pointer(&data),
		int64(len(infos)), first(infos))
	runtime.KeepAlive(params)
	runtime.KeepAlive(particles)
	runtime.KeepAlive(infos)
	return nil
}

func (l *Library) StepCount(h Handle) int64 {
	return l.stepCount(uintptr(h))
}

func (l *Library) Stop(h Handle) error {
	l.stop(uintptr(h))
	return nil
}

func first[T any](s []T) unsafe.Pointer {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Pointer(&s[0])
}
