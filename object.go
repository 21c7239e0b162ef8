package lox

// ObjType tags which of the eight concrete object kinds an Obj holds.
// Rather than a polymorphic header with per-kind structs linked by
// pointer, this is a tagged variant: one shared header, one shared
// struct, dispatch is a switch on Type everywhere (blacken, byteSize,
// String).
type ObjType int

const (
	ObjString ObjType = iota
	ObjFunction
	ObjNative
	ObjUpvalue
	ObjClosure
	ObjClass
	ObjInstance
	ObjBoundMethod
)

func (t ObjType) String() string {
	switch t {
	case ObjString:
		return "string"
	case ObjFunction:
		return "function"
	case ObjNative:
		return "native"
	case ObjUpvalue:
		return "upvalue"
	case ObjClosure:
		return "closure"
	case ObjClass:
		return "class"
	case ObjInstance:
		return "instance"
	case ObjBoundMethod:
		return "bound method"
	default:
		return "<unknown obj>"
	}
}

// NativeFn is the signature every native (host-provided) function
// must implement: receive the argument slice, return a Value or an
// error that becomes a runtime error.
type NativeFn func(args []Value) (Value, error)

// Obj is every heap object the VM ever allocates. It carries a type
// tag, a GC mark bit, and the intrusive next-pointer threading every
// live object into the allocator's single list, plus the fields
// needed by whichever of the eight kinds Type selects. Fields not
// used by the current Type are simply zero.
type Obj struct {
	Type     ObjType
	IsMarked bool
	Next     *Obj

	// ObjString
	Chars string
	Hash  uint32

	// ObjFunction
	Arity        int
	UpvalueCount int
	Chunk        *Chunk
	Name         *Obj // ObjString, nil for the top-level script

	// ObjNative
	Native NativeFn

	// ObjUpvalue: Location is non-nil while open (points at a stack
	// slot); closing copies *Location into Closed and nils Location.
	Location *Value
	Closed   Value
	NextOpen *Obj // intrusive, sorted-by-descending-slot open-upvalue list
	OpenSlot int  // stack slot this upvalue watches while still open

	// ObjClosure
	Function *Obj // ObjFunction
	Upvalues []*Obj

	// ObjClass
	Methods *Table // name(ObjString) -> Value(ObjClosure)

	// ObjInstance
	Class  *Obj // ObjClass
	Fields *Table

	// ObjBoundMethod
	Receiver Value
	Method   *Obj // ObjClosure
}

func (o *Obj) String() string {
	switch o.Type {
	case ObjString:
		return o.Chars
	case ObjFunction:
		if o.Name == nil {
			return "<script>"
		}
		return "<fn " + o.Name.Chars + ">"
	case ObjNative:
		return "<native fn>"
	case ObjUpvalue:
		return "<upvalue>"
	case ObjClosure:
		return o.Function.String()
	case ObjClass:
		return o.Name.Chars
	case ObjInstance:
		return o.Class.Name.Chars + " instance"
	case ObjBoundMethod:
		return o.Method.Function.String()
	default:
		return "<unknown obj>"
	}
}

// byteSize approximates the allocation's contribution to the GC's
// bytesAllocated counter. It doesn't need to be exact, only
// proportional enough that the threshold heuristic behaves sensibly.
func (o *Obj) byteSize() int {
	const headerSize = 48
	switch o.Type {
	case ObjString:
		return headerSize + len(o.Chars)
	case ObjFunction:
		return headerSize
	case ObjNative:
		return headerSize
	case ObjUpvalue:
		return headerSize
	case ObjClosure:
		return headerSize + 8*len(o.Upvalues)
	case ObjClass:
		return headerSize
	case ObjInstance:
		return headerSize
	case ObjBoundMethod:
		return headerSize
	default:
		return headerSize
	}
}

// newObject allocates o, splices it onto the VM's all-objects list and
// charges its size against the GC's byte counter, possibly triggering
// a collection first. Every constructor in this file funnels through
// it, so allocation always goes through one routine.
func (vm *VM) newObject(o *Obj) *Obj {
	vm.gcMaybeCollect(o.byteSize())
	o.Next = vm.objects
	vm.objects = o
	return o
}

// copyString hashes s, probes the intern pool, and returns the
// existing canonical string if found; otherwise it allocates, interns,
// and returns the fresh one. The new string is pushed on the VM stack
// around the pool insert so a GC triggered by the table's own growth
// can't reclaim it mid-construction.
func (vm *VM) copyString(s string) *Obj {
	hash := hashString(s)
	if interned := vm.strings.findString(s, hash); interned != nil {
		return interned
	}
	str := vm.newObject(&Obj{Type: ObjString, Chars: s, Hash: hash})
	vm.push(ObjValue(str))
	vm.strings.Set(str, NilValue())
	vm.pop()
	return str
}

// takeString interns a string the VM just built itself (e.g. the
// result of concatenation). Go's strings are immutable, so there is no
// buffer ownership to transfer the way a C implementation would; this
// is kept as its own entry point purely to name the "I already own a
// fresh buffer" call site distinctly from copyString's "this came from
// caller-owned source text" one.
func (vm *VM) takeString(s string) *Obj {
	return vm.copyString(s)
}

func hashString(s string) uint32 {
	// FNV-1a: cheap, allocation-free, good enough dispersion for an
	// intern table keyed on short identifiers and literals.
	var hash uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= 16777619
	}
	return hash
}

func (vm *VM) newFunction() *Obj {
	return vm.newObject(&Obj{Type: ObjFunction, Chunk: &Chunk{}})
}

func (vm *VM) newNative(fn NativeFn) *Obj {
	return vm.newObject(&Obj{Type: ObjNative, Native: fn})
}

func (vm *VM) newClosure(fn *Obj) *Obj {
	return vm.newObject(&Obj{
		Type:     ObjClosure,
		Function: fn,
		Upvalues: make([]*Obj, fn.UpvalueCount),
	})
}

func (vm *VM) newClass(name *Obj) *Obj {
	return vm.newObject(&Obj{Type: ObjClass, Name: name, Methods: NewTable()})
}

func (vm *VM) newInstance(class *Obj) *Obj {
	return vm.newObject(&Obj{Type: ObjInstance, Class: class, Fields: NewTable()})
}

func (vm *VM) newBoundMethod(receiver Value, method *Obj) *Obj {
	return vm.newObject(&Obj{Type: ObjBoundMethod, Receiver: receiver, Method: method})
}

func (vm *VM) newUpvalue(slot *Value) *Obj {
	return vm.newObject(&Obj{Type: ObjUpvalue, Location: slot})
}
