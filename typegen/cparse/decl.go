package cparse

// TypeKind classifies a C type.
type TypeKind int

const (
	KindNamed TypeKind = iota
	KindPointer
	KindArray
	KindFunc
)

// Type is a C type. Named types carry a canonical builtin name ("unsigned
// int", "long double") or a typedef/tag name.
type Type struct {
	Kind  TypeKind
	Name  string
	Tag   string // "struct", "union", "enum" or empty
	Const bool
	Elem  *Type
	Len   int64 // array length, -1 when incomplete
	Func  *FuncType
}

// FuncType is a function signature.
type FuncType struct {
	Return   Type
	Params   []Param
	Variadic bool
}

// Param is one function parameter; Name may be empty.
type Param struct {
	Name string
	Type Type
}

func named(name string) Type {
	return Type{Kind: KindNamed, Name: name}
}

func pointerTo(t Type) Type {
	elem := t
	return Type{Kind: KindPointer, Elem: &elem}
}

func arrayOf(t Type, n int64) Type {
	elem := t
	return Type{Kind: KindArray, Elem: &elem, Len: n}
}

// IsVoid reports whether t is plain void.
func (t Type) IsVoid() bool {
	return t.Kind == KindNamed && t.Name == "void"
}

// Decl is any top-level declaration found in the headers.
type Decl interface {
	DeclName() string
}

// MacroKind classifies the value of an object-like macro.
type MacroKind int

const (
	MacroInt MacroKind = iota
	MacroFloat
	MacroString
)

// Macro is an object-like macro whose body evaluates to a constant.
type Macro struct {
	Name  string
	Kind  MacroKind
	Int   int64
	Float float64
	Str   []byte
	File  string
}

func (m Macro) DeclName() string { return m.Name }

// Enumerator is one member of a C enum.
type Enumerator struct {
	Name  string
	Value int64
}

// Enum is a C enum definition. Name is empty for anonymous enums.
type Enum struct {
	Name      string
	Variants  []Enumerator
	Anonymous bool
}

func (e *Enum) DeclName() string { return e.Name }

// Field is one member of a struct or union.
type Field struct {
	Name string
	Type Type
	// Bitfield members carry their declared Width in bits
	Bitfield bool
	Width    int64
}

// Record is a struct or union. Opaque records are forward declarations
// that were never defined.
type Record struct {
	Name   string
	Union  bool
	Fields []Field
	Opaque bool
	// Bitfields is set when any member is a bitfield
	Bitfields bool
}

func (r *Record) DeclName() string { return r.Name }

// Typedef is a type alias.
type Typedef struct {
	Name string
	Type Type
}

func (t *Typedef) DeclName() string { return t.Name }

// Function is a function prototype.
type Function struct {
	Name string
	Sig  FuncType
}

func (f *Function) DeclName() string { return f.Name }

// Var is a global variable declaration.
type Var struct {
	Name string
	Type Type
}

func (v *Var) DeclName() string { return v.Name }

// Unit is the result of scanning a set of headers.
type Unit struct {
	// Macros are in first-definition order
	Macros []Macro
	// Decls are in source order, nested definitions before their parent
	Decls []Decl
	// Files lists every file read
	Files []string
	// Missing lists nested includes that were not found
	Missing []string
	// Skipped describes statements the parser could not read
	Skipped []string
}
