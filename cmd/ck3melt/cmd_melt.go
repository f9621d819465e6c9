// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/iotools"
	"go.chromium.org/luci/common/logging"

	"github.com/rakaly/ck3save/ck3"
	"github.com/rakaly/ck3save/ck3/ck3data/tokens"
	"github.com/rakaly/ck3save/ck3/melt"
)

var cmdMelt = &subcommands.Command{
	UsageLine: "melt [options] <save>",
	ShortDesc: "converts a save to plaintext",
	LongDesc: `Converts a save of any encoding to an uncompressed plaintext save.

The output is written next to the input as <name>_melted.ck3 unless -o is
given; "-o -" writes to stdout. Tokens which can't be resolved are listed on
stderr.`,
	CommandRun: func() subcommands.CommandRun {
		r := &meltRun{}
		r.registerCommon()
		r.Flags.StringVar(&r.out, "o", "", "Output path.")
		r.Flags.BoolVar(&r.preserveIronman, "preserve-ironman", false, "Keep ironman-only fields. Overrides the config file.")
		r.Flags.BoolVar(&r.strict, "strict", false, "Fail on unresolved tokens. Overrides the config file.")
		return r
	},
}

type meltRun struct {
	commonFlags

	out             string
	preserveIronman bool
	strict          bool
}

func (r *meltRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := cli.GetContext(a, r, env)
	if len(args) != 1 {
		fmt.Fprintln(a.GetErr(), "expected exactly one save")
		return 1
	}
	ctx, cfg, res, err := r.setup(ctx, env)
	if err != nil {
		logging.Errorf(ctx, "%s", err)
		return 1
	}
	r.Flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "preserve-ironman":
			cfg.PreserveIronman = r.preserveIronman
		case "strict":
			cfg.Strict = r.strict
		}
	})

	out := r.out
	if out == "" {
		out = meltedName(args[0])
	}
	unknown, err := meltFile(ctx, args[0], out, res, cfg.openOptions(), cfg.meltOptions()...)
	if err != nil {
		logging.Errorf(ctx, "%s", err)
		return 1
	}
	for _, id := range unknown {
		fmt.Fprintf(a.GetErr(), "unresolved token %s\n", tokens.TokenFallback(id))
	}
	return 0
}

// meltedName is the default output path for a melted save.
func meltedName(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_melted" + ext
}

// meltFile melts the save at in and writes it to out ("-" is stdout). It
// returns the unresolved token ids.
func meltFile(ctx context.Context, in, out string, r tokens.Resolver, open []ck3.OpenOption, opts ...melt.Option) ([]uint16, error) {
	data, err := os.ReadFile(in)
	if err != nil {
		return nil, errors.Annotate(err, "reading %q", in).Err()
	}
	return meltData(ctx, in, data, out, r, open, opts...)
}

func meltData(ctx context.Context, name string, data []byte, out string, r tokens.Resolver, open []ck3.OpenOption, opts ...melt.Option) ([]uint16, error) {
	f, err := ck3.Open(data, open...)
	if err != nil {
		return nil, errors.Annotate(err, "opening %q", name).Err()
	}
	melted, err := f.Melt(ctx, r, opts...)
	if err != nil {
		return nil, errors.Annotate(err, "melting %q", name).Err()
	}
	err = writeOutput(ctx, out, func(w io.Writer) error {
		_, err := w.Write(melted.Data)
		return err
	})
	return melted.UnknownTokens(), err
}

// writeOutput calls fn with a writer for path ("-" is stdout) and logs how much
// was written.
func writeOutput(ctx context.Context, path string, fn func(io.Writer) error) error {
	if path == "-" {
		return countedWrite(ctx, os.Stdout, "stdout", fn)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Annotate(err, "creating %q", path).Err()
	}
	if err := countedWrite(ctx, f, path, fn); err != nil {
		f.Close()
		return err
	}
	return errors.Annotate(f.Close(), "closing %q", path).Err()
}

func countedWrite(ctx context.Context, w io.Writer, name string, fn func(io.Writer) error) error {
	cw := &iotools.CountingWriter{Writer: w}
	if err := fn(cw); err != nil {
		return errors.Annotate(err, "writing %s", name).Err()
	}
	logging.Infof(ctx, "wrote %d bytes to %s", cw.Count, name)
	return nil
}
