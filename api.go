package lox

import "os"

// RunFile reads path and interprets it as one Lox program against a
// freshly constructed VM configured by opts.
func RunFile(path string, opts VMOptions) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return NewVM(opts).Interpret(string(source))
}

// RunSource interprets source against a freshly constructed VM
// configured by opts. Most callers that need more than one
// interpreter call in the same VM (the REPL, tests) should construct
// their own VM with NewVM and call Interpret directly instead.
func RunSource(source string, opts VMOptions) error {
	return NewVM(opts).Interpret(source)
}
