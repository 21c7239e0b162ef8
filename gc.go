package lox

// gcMaybeCollect charges size against bytesAllocated and, if the
// allocation pushed the total over nextGC (or StressGC demands it on
// every growth), runs a full collection before the caller is allowed
// to use the memory it just "bought". A collection only ever grows
// bytesAllocated down, never the allocation currently in flight, so
// the object under construction is always safe by the time this
// returns.
func (vm *VM) gcMaybeCollect(size int) {
	vm.bytesAllocated += size
	if vm.bytesAllocated > vm.nextGC || vm.opts.StressGC {
		vm.collectGarbage()
	}
}

func (vm *VM) collectGarbage() {
	vm.markRoots()
	vm.traceReferences()
	vm.strings.removeWhite()
	vm.sweep()
	vm.nextGC = vm.bytesAllocated * 2
}

func (vm *VM) markRoots() {
	for i := 0; i < vm.stackTop; i++ {
		vm.markValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		vm.markObject(vm.frames[i].closure)
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.NextOpen {
		vm.markObject(uv)
	}
	vm.globals.mark(vm)
	for c := vm.compilerRoot; c != nil; c = c.enclosing {
		vm.markObject(c.function)
	}
	vm.markObject(vm.initString)
}

// markObject marks o and, if this is the first time it's been seen
// this cycle, adds it to the gray worklist so traceReferences visits
// its children. Safe to call with o == nil.
func (vm *VM) markObject(o *Obj) {
	if o == nil || o.IsMarked {
		return
	}
	o.IsMarked = true
	vm.grayStack = append(vm.grayStack, o)
}

func (vm *VM) markValue(v Value) {
	if v.IsObj() {
		vm.markObject(v.Obj)
	}
}

func (vm *VM) markArray(arr *ValueArray) {
	for _, v := range arr.values {
		vm.markValue(v)
	}
}

// traceReferences drains the gray worklist, blackening each object in
// turn. Blackening an object may push more objects onto the worklist,
// so this keeps going until nothing gray remains.
func (vm *VM) traceReferences() {
	for len(vm.grayStack) > 0 {
		n := len(vm.grayStack) - 1
		o := vm.grayStack[n]
		vm.grayStack = vm.grayStack[:n]
		vm.blackenObject(o)
	}
}

func (vm *VM) blackenObject(o *Obj) {
	switch o.Type {
	case ObjBoundMethod:
		vm.markValue(o.Receiver)
		vm.markObject(o.Method)
	case ObjInstance:
		vm.markObject(o.Class)
		o.Fields.mark(vm)
	case ObjClass:
		vm.markObject(o.Name)
		o.Methods.mark(vm)
	case ObjClosure:
		vm.markObject(o.Function)
		for _, uv := range o.Upvalues {
			vm.markObject(uv)
		}
	case ObjFunction:
		vm.markObject(o.Name)
		vm.markArray(&o.Chunk.Constants)
	case ObjUpvalue:
		vm.markValue(o.Closed)
	case ObjNative, ObjString:
		// no outgoing references
	}
}

// sweep walks the all-objects list, unlinking everything left
// unmarked and clearing the mark bit on every survivor, crediting each
// unreached object's byteSize() back out of bytesAllocated so the next
// collection's threshold tracks the live set rather than every byte
// ever allocated. There is no manual free: unlinking an object drops
// the last reference the VM holds to it and Go's own collector
// reclaims the memory.
func (vm *VM) sweep() {
	var prev *Obj
	o := vm.objects
	for o != nil {
		if o.IsMarked {
			o.IsMarked = false
			prev = o
			o = o.Next
			continue
		}
		unreached := o
		o = o.Next
		if prev == nil {
			vm.objects = o
		} else {
			prev.Next = o
		}
		vm.bytesAllocated -= unreached.byteSize()
		unreached.Next = nil
	}
}
