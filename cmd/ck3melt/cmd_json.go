// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/rakaly/ck3save/ck3"
	"github.com/rakaly/ck3save/ck3/ck3data/tokens"
)

var cmdJSON = &subcommands.Command{
	UsageLine: "json [options] <save>",
	ShortDesc: "renders a save as JSON",
	LongDesc: `Renders a save of any encoding as JSON, written to stdout unless -o is
given. With -metadata only the metadata block is rendered.`,
	CommandRun: func() subcommands.CommandRun {
		r := &jsonRun{}
		r.registerCommon()
		r.Flags.StringVar(&r.out, "o", "-", "Output path.")
		r.Flags.BoolVar(&r.metadata, "metadata", false, "Only render the metadata block.")
		return r
	},
}

type jsonRun struct {
	commonFlags

	out      string
	metadata bool
}

func (r *jsonRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
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

	src, err := r.events(args[0], res, cfg.openOptions())
	if err == nil {
		err = writeOutput(ctx, r.out, func(w io.Writer) error {
			return ck3.WriteJSON(w, src, res)
		})
	}
	if err != nil {
		logging.Errorf(ctx, "%s", err)
		return 1
	}
	return 0
}

func (r *jsonRun) events(path string, res tokens.Resolver, open []ck3.OpenOption) (tokens.EventSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotate(err, "reading %q", path).Err()
	}
	f, err := ck3.Open(data, open...)
	if err != nil {
		return nil, errors.Annotate(err, "opening %q", path).Err()
	}
	if r.metadata {
		return f.Metadata(res)
	}
	return f.Tokens(res)
}
