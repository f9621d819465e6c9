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

var cmdHeader = &subcommands.Command{
	UsageLine: "header [options] <save>",
	ShortDesc: "describes a save without reading its gamestate",
	LongDesc: `Prints the encoding, header line, archive entries and metadata of a
save. Archive entries are listed with their declared sizes; nothing but the
metadata is inflated.`,
	CommandRun: func() subcommands.CommandRun {
		r := &headerRun{}
		r.registerCommon()
		return r
	},
}

type headerRun struct {
	commonFlags
}

func (r *headerRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
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
	if err := describe(a.GetOut(), args[0], res, cfg.openOptions()...); err != nil {
		logging.Errorf(ctx, "%s", err)
		return 1
	}
	return 0
}

func describe(w io.Writer, path string, res tokens.Resolver, open ...ck3.OpenOption) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Annotate(err, "reading %q", path).Err()
	}
	f, err := ck3.Open(data, open...)
	if err != nil {
		return errors.Annotate(err, "opening %q", path).Err()
	}

	fmt.Fprintf(w, "encoding:  %s\n", f.Encoding())
	if h, ok := f.Header(); ok {
		fmt.Fprintf(w, "header:    %s\n", h)
		fmt.Fprintf(w, "meta len:  %d\n", h.MetadataLen)
	}
	if ar := f.Archive(); ar != nil {
		for _, e := range ar.Entries() {
			fmt.Fprintf(w, "entry:     %s (%d bytes, %d compressed)\n", e.Name, e.DeclaredSize, e.CompressedSize)
		}
	}

	var hdr ck3.Header
	if err := f.ParseMetadata(res, &hdr); err != nil {
		return errors.Annotate(err, "reading metadata").Err()
	}
	md := hdr.MetaData
	fmt.Fprintf(w, "version:   %s (save version %d)\n", md.Version, md.SaveGameVersion)
	fmt.Fprintf(w, "date:      %s\n", md.MetaDate)
	if md.MetaPlayerName != "" {
		fmt.Fprintf(w, "player:    %s, %s\n", md.MetaPlayerName, md.MetaTitleName)
	}
	return nil
}
