package lox

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run interprets source against a fresh VM and returns everything
// `print` wrote, alongside any compile/runtime error.
func run(source string) (string, error) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	vm := NewVM(VMOptions{Stdout: &stdout, Stderr: &stderr})
	err := vm.Interpret(source)
	return stdout.String(), err
}

func TestVM_Arithmetic(t *testing.T) {
	out, err := run(`print 1 + 2 * 3;`)
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)
}

func TestVM_StringConcatenation(t *testing.T) {
	out, err := run(`print "foo" + "bar";`)
	require.NoError(t, err)
	assert.Equal(t, "foobar\n", out)
}

func TestVM_GlobalsAndAssignment(t *testing.T) {
	out, err := run(`
		var a = 1;
		a = a + 1;
		print a;
	`)
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)
}

func TestVM_IfElse(t *testing.T) {
	out, err := run(`
		if (1 < 2) { print "yes"; } else { print "no"; }
	`)
	require.NoError(t, err)
	assert.Equal(t, "yes\n", out)
}

func TestVM_WhileLoop(t *testing.T) {
	out, err := run(`
		var i = 0;
		var sum = 0;
		while (i < 5) {
			sum = sum + i;
			i = i + 1;
		}
		print sum;
	`)
	require.NoError(t, err)
	assert.Equal(t, "10\n", out)
}

func TestVM_ForLoop(t *testing.T) {
	out, err := run(`
		var total = 0;
		for (var i = 0; i < 4; i = i + 1) {
			total = total + i;
		}
		print total;
	`)
	require.NoError(t, err)
	assert.Equal(t, "6\n", out)
}

func TestVM_FunctionsAndRecursion(t *testing.T) {
	out, err := run(`
		fun fib(n) {
			if (n < 2) return n;
			return fib(n - 1) + fib(n - 2);
		}
		print fib(10);
	`)
	require.NoError(t, err)
	assert.Equal(t, "55\n", out)
}

func TestVM_Closures(t *testing.T) {
	out, err := run(`
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
	`)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n3\n", out)
}

func TestVM_ClassesAndMethods(t *testing.T) {
	out, err := run(`
		class Greeter {
			init(name) {
				this.name = name;
			}
			greet() {
				print "hi " + this.name;
			}
		}
		var g = Greeter("world");
		g.greet();
	`)
	require.NoError(t, err)
	assert.Equal(t, "hi world\n", out)
}

func TestVM_Inheritance(t *testing.T) {
	out, err := run(`
		class Animal {
			speak() {
				print "...";
			}
		}
		class Dog < Animal {
			speak() {
				super.speak();
				print "woof";
			}
		}
		Dog().speak();
	`)
	require.NoError(t, err)
	assert.Equal(t, "...\nwoof\n", out)
}

func TestVM_FieldsShadowMethods(t *testing.T) {
	out, err := run(`
		fun replacement() {
			print "field wins";
		}
		class Box {
			value() { print "method wins"; }
		}
		var b = Box();
		b.value = replacement;
		b.value();
	`)
	require.NoError(t, err)
	assert.Equal(t, "field wins\n", out)
}

func TestVM_RuntimeErrorUndefinedVariable(t *testing.T) {
	_, err := run(`print undefined_name;`)
	require.Error(t, err)
	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
	assert.Contains(t, rerr.Message, "Undefined variable")
}

func TestVM_RuntimeErrorTypeMismatch(t *testing.T) {
	_, err := run(`print 1 + "a";`)
	require.Error(t, err)
	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
	assert.Contains(t, rerr.Message, "Operands must be")
}

func TestVM_CompileErrorReported(t *testing.T) {
	_, err := run(`var a = ;`)
	require.Error(t, err)
	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
	assert.True(t, len(cerr.Messages) > 0)
}

func TestVM_StateResetsAfterRuntimeError(t *testing.T) {
	vm := NewVM(VMOptions{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}})
	err := vm.Interpret(`print nope;`)
	require.Error(t, err)
	assert.Equal(t, 0, vm.stackTop)
	assert.Equal(t, 0, vm.frameCount)

	var out bytes.Buffer
	vm.opts.Stdout = &out
	require.NoError(t, vm.Interpret(`print "still alive";`))
	assert.Equal(t, "still alive\n", out.String())
}

func TestVM_NativeLenAndType(t *testing.T) {
	out, err := run(`
		print len("hello");
		print type(1);
		print type("s");
		print type(nil);
	`)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "5", lines[0])
	assert.Equal(t, "number", lines[1])
	assert.Equal(t, "string", lines[2])
	assert.Equal(t, "nil", lines[3])
}

func TestVM_NativeTypeDistinguishesCallableKinds(t *testing.T) {
	out, err := run(`
		class Greeter {
			greet() { print "hi"; }
		}
		var g = Greeter();
		print type(clock);
		print type(g.greet);
		print type(g);
		print type(Greeter);
	`)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "native", lines[0], "a host-provided function is its own kind, not lumped in with 'function'")
	assert.Equal(t, "bound method", lines[1], "a method fetched off an instance is a bound method, not a bare function")
	assert.Equal(t, "instance", lines[2])
	assert.Equal(t, "class", lines[3])
}
