package engine

// The interfaces in this file are external-collaborator contracts:
// the worker depends on them but their implementation is out of scope for
// this engine. Each mirrors the original debugger's collaborator surface
// closely enough that a real implementation (a PDB/DIA wrapper, a PE
// header reader, an x86 stack walker, a module-file resolver) can be
// dropped in without touching the orchestration engine itself.

// SourceLocation names a function entry and its position, mirroring what a
// symbol engine resolves an instruction address to.
type SourceLocation struct {
	Document string
	Function string
	Line     int
	NumArgs  int
	NumLocals int
}

// VariableInfo describes one local/parameter reported by the symbol engine
// for a given instruction address.
type VariableInfo struct {
	Name        string
	Type        string
	BuiltIn     bool
	Offset      int
	Indirection int
}

// VariableKind distinguishes parameters from locals in VarForAddr.
type VariableKind int

const (
	VariableParam VariableKind = iota
	VariableLocal
)

// SymbolEngine is the PDB/DIA symbol engine contract.
type SymbolEngine interface {
	FindSourceForAddr(module *Module, base, rva uint64) (SourceLocation, error)
	VarForAddr(base, rva uint64, kind VariableKind, index int) (VariableInfo, error)
	AddrForSourceLocation(base uint64, document string, line, col int) (uint64, error)
}

// ModuleResolver maps an OS module-load event to the file path it maps, via
// the module resolver contract.
type ModuleResolver interface {
	ResolveMappedFile(processHandle uintptr, base uint64, fileHandle uintptr) (string, error)
}

// PEReader is the PE/COFF image-size reader contract.
type PEReader interface {
	ImageSize(processHandle uintptr, dllBase uint64) (uint64, error)
}

// StackWalker is the x86 stack-frame register extractor contract.
type StackWalker interface {
	Walk(processHandle, threadHandle uintptr, modules []*Module) ([]FrameInfo, error)
}
