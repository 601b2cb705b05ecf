package main

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/uplang/acf"
)

// stdinName selects standard input as the document.
const stdinName = "-"

// environment carries what the commands share during one run.
type environment struct {
	stdin  io.Reader
	stdout io.Writer
	reg    *acf.Registry
}

func (e *environment) open() {
	e.reg = acf.NewRegistry()
}

func (e *environment) close() error {
	if e.reg == nil {
		return nil
	}
	return e.reg.Close()
}

// document opens the named file, or standard input for "-".
func (e *environment) document(name string) (*acf.Document, error) {
	if name == stdinName {
		return e.reg.OpenReader(name, e.stdin)
	}
	return e.reg.Open(name, name)
}

// commit saves doc, or prints it when it came from standard input.
func (e *environment) commit(name string, doc *acf.Document) error {
	if name == stdinName {
		out, err := doc.Bytes()
		if err != nil {
			return err
		}
		_, err = e.stdout.Write(out)
		return err
	}
	return doc.SaveTo(doc.Path())
}

// requireArgs fails unless the command got exactly n arguments.
func requireArgs(c *cli.Context, n int) error {
	if c.NArg() != n {
		return fmt.Errorf("%s: expected %d arguments, got %d (usage: %s %s)",
			c.Command.Name, n, c.NArg(), c.Command.Name, c.Command.ArgsUsage)
	}
	return nil
}
