package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/urfave/cli/v2"

	"github.com/uplang/acf"
)

func checkCommand(env *environment) *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "parse files and report format errors",
		ArgsUsage: "FILE...",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return errors.New("check: no files given")
			}
			failed := 0
			for _, name := range c.Args().Slice() {
				if _, err := env.document(name); err != nil {
					failed++
					fmt.Fprintf(env.stdout, "FAIL %s: %v\n", name, err)
					continue
				}
				fmt.Fprintf(env.stdout, "ok   %s\n", name)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, c.NArg())
			}
			return nil
		},
	}
}

func getCommand(env *environment) *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "print the value bound to a path",
		ArgsUsage: "FILE PATH",
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 2); err != nil {
				return err
			}
			doc, err := env.document(c.Args().Get(0))
			if err != nil {
				return err
			}
			path := c.Args().Get(1)
			e := doc.Get(path)
			if e == nil {
				return fmt.Errorf("%w: %s", acf.ErrNotFound, acf.Qualify(path))
			}
			if s, ok := e.(acf.Scalar); ok {
				fmt.Fprintln(env.stdout, s.Str())
				return nil
			}
			fmt.Fprintln(env.stdout, e.String())
			return nil
		},
	}
}

func setCommand(env *environment) *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "bind a path to a scalar or, with --item, to a list",
		ArgsUsage: "FILE PATH [VALUE]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "recursive", Aliases: []string{"r"}, Usage: "bind with <->"},
			&cli.BoolFlag{Name: "text", Usage: "store VALUE as text without coercion"},
			&cli.StringSliceFlag{Name: "item", Usage: "list item, repeatable"},
		},
		Action: func(c *cli.Context) error {
			items := c.StringSlice("item")
			want := 3
			if len(items) > 0 {
				want = 2
			}
			if err := requireArgs(c, want); err != nil {
				return err
			}

			var value acf.Element
			switch {
			case len(items) > 0:
				list := acf.NewList()
				for _, item := range items {
					s, err := coerce(item, c.Bool("text"))
					if err != nil {
						return err
					}
					list.Append(s)
				}
				value = list
			default:
				s, err := coerce(c.Args().Get(2), c.Bool("text"))
				if err != nil {
					return err
				}
				value = s
			}

			name := c.Args().Get(0)
			doc, err := env.document(name)
			if err != nil {
				return err
			}
			if c.Bool("recursive") {
				doc.SetRecursive(c.Args().Get(1), value)
			} else {
				doc.Set(c.Args().Get(1), value)
			}
			return env.commit(name, doc)
		},
	}
}

func coerce(raw string, asText bool) (acf.Scalar, error) {
	if asText {
		return acf.Text(raw), nil
	}
	return acf.ParseScalar(raw)
}

func rmCommand(env *environment) *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "remove the binding at a path",
		ArgsUsage: "FILE PATH",
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 2); err != nil {
				return err
			}
			name := c.Args().Get(0)
			doc, err := env.document(name)
			if err != nil {
				return err
			}
			path := c.Args().Get(1)
			if doc.Get(path) == nil {
				return fmt.Errorf("%w: %s", acf.ErrNotFound, acf.Qualify(path))
			}
			doc.Remove(path)
			return env.commit(name, doc)
		},
	}
}

// maxValueWidth bounds the VALUE column of the keys table, in runes.
const maxValueWidth = 60

func keysCommand(env *environment) *cli.Command {
	return &cli.Command{
		Name:      "keys",
		Usage:     "list the bindings and subsections of a section",
		ArgsUsage: "FILE [SECTION]",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 || c.NArg() > 2 {
				return fmt.Errorf("keys: expected FILE [SECTION]")
			}
			doc, err := env.document(c.Args().Get(0))
			if err != nil {
				return err
			}
			section := doc.Section(c.Args().Get(1))
			if section == nil {
				return fmt.Errorf("%w: section %s", acf.ErrNotFound, acf.Qualify(c.Args().Get(1)))
			}

			t := table.NewWriter()
			t.SetOutputMirror(env.stdout)
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{
				text.FgHiCyan.Sprint("KEY"),
				text.FgHiCyan.Sprint("KIND"),
				text.FgHiCyan.Sprint("VALUE"),
			})
			for _, key := range section.Keys() {
				e := section.Get(key)
				kind := e.Kind().String()
				if section.IsRecursive(key) {
					kind += " <->"
				}
				value := e.String()
				if utf8.RuneCountInString(value) > maxValueWidth {
					value = text.Trim(value, maxValueWidth-3) + "..."
				}
				t.AppendRow(table.Row{key, kind, value})
			}
			for _, name := range section.Sections() {
				t.AppendRow(table.Row{name, "section", ""})
			}
			t.Render()
			return nil
		},
	}
}

func exportCommand(env *environment) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "print a document as YAML or JSON",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "yaml", Usage: "yaml or json"},
		},
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 1); err != nil {
				return err
			}
			doc, err := env.document(c.Args().Get(0))
			if err != nil {
				return err
			}
			switch c.String("format") {
			case "yaml":
				return doc.EncodeYAML(env.stdout)
			case "json":
				out, err := json.MarshalIndent(doc, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(env.stdout, string(out))
				return err
			default:
				return fmt.Errorf("unknown format %q", c.String("format"))
			}
		},
	}
}

func validateCommand(env *environment) *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "reconcile a document with a defaults template",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "defaults", Aliases: []string{"d"}, Required: true, Usage: "template `FILE`"},
			&cli.StringFlag{Name: "merge", Value: acf.MergeDeep, Usage: "keyed list merge: deep or shallow"},
			&cli.StringFlag{Name: "lists", Value: acf.ListKeep, Usage: "simple list merge: keep or unique"},
		},
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 1); err != nil {
				return err
			}
			defaults, err := os.ReadFile(c.String("defaults"))
			if err != nil {
				return err
			}
			engine, err := acf.NewTemplateEngine(defaults)
			if err != nil {
				return err
			}
			engine.WithOptions(acf.TemplateOptions{
				MergeStrategy: c.String("merge"),
				ListStrategy:  c.String("lists"),
			})

			name := c.Args().Get(0)
			doc, err := env.document(name)
			if err != nil {
				return err
			}
			changed, err := doc.ValidateWith(engine)
			if err != nil {
				return err
			}
			if name == stdinName {
				return env.commit(name, doc)
			}
			if changed {
				fmt.Fprintf(env.stdout, "updated %s\n", name)
			} else {
				fmt.Fprintf(env.stdout, "unchanged %s\n", name)
			}
			return nil
		},
	}
}

func fmtCommand(env *environment) *cli.Command {
	return &cli.Command{
		Name:      "fmt",
		Usage:     "render a document in canonical layout; comments are dropped",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "write", Aliases: []string{"w"}, Usage: "overwrite FILE instead of printing"},
			&cli.StringFlag{Name: "indent", Value: "\t", Usage: "indentation unit"},
		},
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 1); err != nil {
				return err
			}
			name := c.Args().Get(0)
			doc, err := env.document(name)
			if err != nil {
				return err
			}
			out, err := acf.NewWriter().WithIndent(c.String("indent")).Write(doc.Store(), nil)
			if err != nil {
				return err
			}
			if c.Bool("write") && name != stdinName {
				return os.WriteFile(name, out, 0o644)
			}
			_, err = env.stdout.Write(out)
			return err
		},
	}
}

func watchCommand(env *environment) *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "reload a document on every change and report its state",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "debounce", Value: acf.DefaultDebounce, Usage: "quiet period before reloading"},
		},
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 1); err != nil {
				return err
			}
			name := c.Args().Get(0)
			if name == stdinName {
				return errors.New("watch: standard input cannot be watched")
			}
			doc, err := env.document(name)
			if err != nil {
				return err
			}
			return acf.Watch(c.Context, doc,
				acf.WithDebounce(c.Duration("debounce")),
				acf.WithOnReload(func(doc *acf.Document, err error) {
					stamp := time.Now().Format(time.TimeOnly)
					if err != nil {
						fmt.Fprintf(env.stdout, "%s FAIL %s: %v\n", stamp, doc.Path(), err)
						return
					}
					fmt.Fprintf(env.stdout, "%s ok   %s (%d bindings)\n", stamp, doc.Path(), doc.Store().Len())
				}),
			)
		},
	}
}
