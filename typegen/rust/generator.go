// Package rust is the built-in translation engine: it scans C headers with
// cparse and renders bindgen-style Rust FFI declarations.
package rust

import (
	"fmt"

	"github.com/teranos/avbindgen/errors"
	"github.com/teranos/avbindgen/typegen"
	"github.com/teranos/avbindgen/typegen/cparse"
)

// DefaultCTypesPrefix is used when Options.CTypesPrefix is empty.
const DefaultCTypesPrefix = "::std::os::raw"

// Generator implements typegen.Engine for Rust
type Generator struct{}

var _ typegen.Engine = (*Generator)(nil)

// NewGenerator creates a new Rust generator
func NewGenerator() *Generator {
	return &Generator{}
}

// Translate scans req.Headers and renders every declaration that survives
// the callbacks and blocklists. Scanner failures are returned verbatim.
func (g *Generator) Translate(req typegen.Request) (*typegen.Result, error) {
	callbacks := req.Callbacks
	if callbacks == nil {
		callbacks = typegen.DefaultCallbacks{}
	}

	e, err := newEmitter(req.Options, callbacks)
	if err != nil {
		return nil, err
	}

	e.model = targetModel(req.ClangArgs)

	unit, err := cparse.Parse(scannerConfig(req.ClangArgs), req.Headers)
	if err != nil {
		return nil, err
	}

	e.emitUnit(unit)
	e.res.Text = e.sb.String()
	e.res.Files = unit.Files
	e.res.Warnings = append(e.res.Warnings, unit.Skipped...)
	for _, m := range unit.Missing {
		e.res.Warnings = append(e.res.Warnings, fmt.Sprintf("include not found: %s", m))
	}

	if e.res.Declarations == 0 {
		return nil, typegen.ErrNoDeclarations
	}
	return e.res, nil
}

func newEmitter(opts typegen.Options, callbacks typegen.ParseCallbacks) (*emitter, error) {
	fns, err := anchored(opts.BlocklistFunctions)
	if err != nil {
		return nil, errors.Wrap(err, "invalid function blocklist pattern")
	}
	types, err := anchored(opts.BlocklistTypes)
	if err != nil {
		return nil, errors.Wrap(err, "invalid type blocklist pattern")
	}
	opaque, err := anchored(opts.OpaqueTypes)
	if err != nil {
		return nil, errors.Wrap(err, "invalid opaque type pattern")
	}

	prefix := opts.CTypesPrefix
	if prefix == "" {
		prefix = DefaultCTypesPrefix
	}
	return &emitter{
		opts:         opts,
		callbacks:    callbacks,
		types:        typeWriter{ctypes: prefix, sizeTIsUsize: opts.SizeTIsUsize},
		blockedFns:   fns,
		blockedTypes: types,
		opaque:       opaque,
		res:          &typegen.Result{},
	}, nil
}
