package rust

import (
	"strings"

	"github.com/teranos/avbindgen/typegen/cparse"
)

// dataModel holds the target-dependent scalar widths, in bytes.
type dataModel struct {
	pointer int64
	long    int64
}

var (
	// wasm32 is the emscripten target and the default
	wasm32 = dataModel{pointer: 4, long: 4}
	lp64   = dataModel{pointer: 8, long: 8}
)

// targetModel picks the data model from a --target/-target flag.
func targetModel(args []string) dataModel {
	triple := ""
	for i, arg := range args {
		switch {
		case strings.HasPrefix(arg, "--target="):
			triple = strings.TrimPrefix(arg, "--target=")
		case (arg == "-target" || arg == "--target") && i+1 < len(args):
			triple = args[i+1]
		}
	}
	for _, arch := range []string{"x86_64", "aarch64", "arm64", "wasm64", "riscv64", "powerpc64"} {
		if strings.HasPrefix(triple, arch) {
			return lp64
		}
	}
	return wasm32
}

// layout is the size and alignment of a C type, in bytes.
type layout struct {
	size  int64
	align int64
}

// layoutCalc lays out C types the way a SysV-style C compiler does.
type layoutCalc struct {
	model    dataModel
	records  map[string]*cparse.Record
	typedefs map[string]cparse.Type
	enums    map[string]*cparse.Enum
	visiting map[string]bool
}

func newLayoutCalc(model dataModel, unit *cparse.Unit) *layoutCalc {
	c := &layoutCalc{
		model:    model,
		records:  make(map[string]*cparse.Record),
		typedefs: make(map[string]cparse.Type),
		enums:    make(map[string]*cparse.Enum),
		visiting: make(map[string]bool),
	}
	for _, d := range unit.Decls {
		switch d := d.(type) {
		case *cparse.Record:
			c.records[d.Name] = d
		case *cparse.Typedef:
			c.typedefs[d.Name] = d.Type
		case *cparse.Enum:
			c.enums[d.Name] = d
		}
	}
	return c
}

func (c *layoutCalc) scalar(name string) (layout, bool) {
	switch name {
	case "char", "signed char", "unsigned char", "_Bool", "bool", "int8_t", "uint8_t":
		return layout{1, 1}, true
	case "short", "unsigned short", "int16_t", "uint16_t":
		return layout{2, 2}, true
	case "int", "unsigned int", "float", "int32_t", "uint32_t":
		return layout{4, 4}, true
	case "long long", "unsigned long long", "double", "int64_t", "uint64_t":
		return layout{8, 8}, true
	case "long double", "__int128", "unsigned __int128":
		return layout{16, 16}, true
	case "long", "unsigned long":
		return layout{c.model.long, c.model.long}, true
	case "size_t", "ssize_t", "ptrdiff_t", "intptr_t", "uintptr_t", "__builtin_va_list":
		return layout{c.model.pointer, c.model.pointer}, true
	}
	return layout{}, false
}

// of returns the layout of t. It fails for incomplete types and names it
// cannot see.
func (c *layoutCalc) of(t cparse.Type) (layout, bool) {
	switch t.Kind {
	case cparse.KindPointer:
		return layout{c.model.pointer, c.model.pointer}, true
	case cparse.KindArray:
		el, ok := c.of(*t.Elem)
		if !ok {
			return layout{}, false
		}
		n := t.Len
		if n < 0 {
			n = 0
		}
		return layout{el.size * n, el.align}, true
	case cparse.KindFunc:
		return layout{}, false
	}

	if l, ok := c.scalar(t.Name); ok {
		return l, true
	}
	if t.Tag == "" {
		if td, ok := c.typedefs[t.Name]; ok && !c.visiting[t.Name] {
			c.visiting[t.Name] = true
			defer delete(c.visiting, t.Name)
			return c.of(td)
		}
	}
	if t.Tag != "enum" {
		if r, ok := c.records[t.Name]; ok {
			return c.record(r)
		}
	}
	if en, ok := c.enums[t.Name]; ok || t.Tag == "enum" {
		return enumLayout(en), true
	}
	return layout{}, false
}

func enumLayout(en *cparse.Enum) layout {
	if en == nil {
		return layout{4, 4}
	}
	values := make([]int64, len(en.Variants))
	for i, v := range en.Variants {
		values[i] = v.Value
	}
	switch enumRepr(values) {
	case "u32", "i32":
		return layout{4, 4}
	}
	return layout{8, 8}
}

// record lays out a struct or union. Bitfields share storage units of
// their declared type and never straddle one.
func (c *layoutCalc) record(r *cparse.Record) (layout, bool) {
	if r.Opaque || c.visiting[r.Name] {
		return layout{}, false
	}
	c.visiting[r.Name] = true
	defer delete(c.visiting, r.Name)

	var bits, size int64
	align := int64(1)
	for _, f := range r.Fields {
		fl, ok := c.of(f.Type)
		if !ok {
			return layout{}, false
		}
		if r.Union {
			size = max(size, fl.size)
			align = max(align, fl.align)
			continue
		}
		if f.Bitfield {
			if f.Width == 0 {
				bits = alignUp(bits, fl.align*8)
				continue
			}
			if unit := fl.size * 8; unit > 0 && bits/unit != (bits+f.Width-1)/unit {
				bits = alignUp(bits, unit)
			}
			bits += f.Width
			if f.Name != "" {
				align = max(align, fl.align)
			}
			continue
		}
		offset := alignUp((bits+7)/8, fl.align)
		bits = (offset + fl.size) * 8
		align = max(align, fl.align)
	}
	if !r.Union {
		size = (bits + 7) / 8
	}
	return layout{alignUp(size, align), align}, true
}

func alignUp(n, align int64) int64 {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}
