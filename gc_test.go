package lox

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGC_StressCollectsWithoutCorruptingLiveState(t *testing.T) {
	var stdout, stderr bytes.Buffer
	vm := NewVM(VMOptions{StressGC: true, Stdout: &stdout, Stderr: &stderr})

	err := vm.Interpret(`
		fun makeCounter() {
			var count = 0;
			fun increment() {
				count = count + 1;
				return count;
			}
			return increment;
		}
		var counter = makeCounter();
		print counter();
		print counter();
		print counter();

		class Point {
			init(x, y) {
				this.x = x;
				this.y = y;
			}
			sum() {
				return this.x + this.y;
			}
		}
		var p = Point(3, 4);
		print p.sum();

		var s = "a";
		var i = 0;
		while (i < 50) {
			s = s + "a";
			i = i + 1;
		}
		print len(s);
	`)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n3\n7\n51\n", stdout.String())
}

func TestGC_UnreferencedObjectsGetSwept(t *testing.T) {
	vm := NewVM(VMOptions{})

	vm.push(ObjValue(vm.copyString("ephemeral")))
	vm.pop()

	count := func() int {
		n := 0
		for o := vm.objects; o != nil; o = o.Next {
			n++
		}
		return n
	}
	require.Greater(t, count(), 0)

	vm.collectGarbage()

	found := vm.strings.findString("ephemeral", hashString("ephemeral"))
	assert.Nil(t, found, "a string with no remaining roots should be swept and its intern entry reclaimed")
}

func TestGC_GlobalsKeepStringsAlive(t *testing.T) {
	vm := NewVM(VMOptions{})
	name := vm.copyString("kept")
	vm.globals.Set(name, NumberValue(1))

	vm.collectGarbage()

	found := vm.strings.findString("kept", hashString("kept"))
	assert.NotNil(t, found, "a string referenced from globals must survive collection")
}

func TestGC_SweepCreditsFreedBytesBack(t *testing.T) {
	vm := NewVM(VMOptions{})

	vm.push(ObjValue(vm.copyString("ephemeral")))
	vm.pop()
	afterAlloc := vm.bytesAllocated
	require.Greater(t, afterAlloc, 0)

	vm.collectGarbage()

	assert.Less(t, vm.bytesAllocated, afterAlloc,
		"sweeping an unreferenced object must credit its size back out of bytesAllocated, or nextGC only ever grows")
}
