// Command sgmlcat parses one or more SGML/HTML-ish documents and writes
// the well-formed XML equivalent to stdout, exercising the forgiving
// document parser end to end.
//
// Grounded on the teacher's cmd/helium-lint: a go-flags option struct, a
// file-or-stdin input loop, and a final serialization pass.
package main

import (
	"fmt"
	"log/slog"
	"os"

	flags "github.com/jessevdk/go-flags"

	"github.com/sgml-go/sgml"
	"github.com/sgml-go/sgml/xmlwrite"
)

type cmdopts struct {
	HTML        bool `long:"html" description:"treat input as HTML and use the built-in HTML DTD"`
	IgnoreDTD   bool `long:"ignore-dtd" description:"skip DTD-driven tag inference entirely"`
	StripDTD    bool `long:"strip-doctype" description:"omit an inline DOCTYPE from the output"`
	Uppercase   bool `long:"uppercase" description:"fold element/attribute names to upper case"`
	Lowercase   bool `long:"lowercase" description:"fold element/attribute names to lower case"`
}

func main() {
	os.Exit(run())
}

func run() int {
	var opts cmdopts
	args, err := flags.ParseArgs(&opts, os.Args[1:])
	if err != nil {
		return 1
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	readerOpts := []sgml.Option{sgml.WithErrorLog(sgml.NewSlogErrorSink(logger))}
	if opts.HTML {
		readerOpts = append(readerOpts, sgml.WithDocType("html"))
	}
	if opts.IgnoreDTD {
		readerOpts = append(readerOpts, sgml.WithIgnoreDTD(true))
	}
	if opts.StripDTD {
		readerOpts = append(readerOpts, sgml.WithStripDocType(true))
	}
	switch {
	case opts.Uppercase:
		readerOpts = append(readerOpts, sgml.WithCaseFolding(sgml.CaseFoldingToUpper))
	case opts.Lowercase:
		readerOpts = append(readerOpts, sgml.WithCaseFolding(sgml.CaseFoldingToLower))
	}

	files := args
	if len(files) == 0 {
		files = []string{"-"}
	}

	for _, name := range files {
		if err := convertOne(name, readerOpts); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %s\n", name, err)
			return 1
		}
	}
	return 0
}

func convertOne(name string, opts []sgml.Option) error {
	in := os.Stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	r, err := sgml.NewReader(in, opts...)
	if err != nil {
		return err
	}
	if err := xmlwrite.Write(os.Stdout, r); err != nil {
		return err
	}
	if err := r.Err(); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout)
	return nil
}
