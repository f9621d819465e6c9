// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/rakaly/ck3save/ck3"
	"github.com/rakaly/ck3save/ck3/ck3data/tokens"
	"github.com/rakaly/ck3save/ck3/melt"
)

const (
	saveExt      = ".ck3"
	meltedSuffix = "_melted" + saveExt

	// The game writes a save in several bursts; a file is melted once it's been
	// quiet this long.
	defaultSettle = 2 * time.Second

	seenCacheSize = 256
)

var cmdWatch = &subcommands.Command{
	UsageLine: "watch [options] [dir]",
	ShortDesc: "melts saves as the game writes them",
	LongDesc: `Watches a save directory and melts every save written to it. The
directory defaults to [watch] dir from the config file, and the output directory
to [watch] out (or the watched directory itself).

A save is melted again only if its content changed.`,
	CommandRun: func() subcommands.CommandRun {
		r := &watchRun{}
		r.registerCommon()
		r.Flags.StringVar(&r.out, "o", "", "Output directory.")
		r.Flags.DurationVar(&r.settle, "settle", defaultSettle, "How long a save must be left alone before it's melted.")
		return r
	},
}

type watchRun struct {
	commonFlags

	out    string
	settle time.Duration
}

func (r *watchRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := cli.GetContext(a, r, env)
	ctx, cfg, res, err := r.setup(ctx, env)
	if err != nil {
		logging.Errorf(ctx, "%s", err)
		return 1
	}

	dir := cfg.WatchDir
	switch {
	case len(args) == 1:
		dir = args[0]
	case len(args) > 1:
		fmt.Fprintln(a.GetErr(), "expected at most one directory")
		return 1
	}
	if dir == "" {
		fmt.Fprintln(a.GetErr(), "no directory to watch: pass one or set [watch] dir")
		return 1
	}
	out := r.out
	if out == "" {
		out = cfg.WatchOut
	}
	if out == "" {
		out = dir
	}

	w, err := newWatcher(out, res, cfg.meltOptions()...)
	if err != nil {
		logging.Errorf(ctx, "%s", err)
		return 1
	}
	w.settle = r.settle
	w.open = cfg.openOptions()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	if err := w.run(ctx, dir); err != nil {
		logging.Errorf(ctx, "%s", err)
		return 1
	}
	return 0
}

// watcher melts saves into out.
type watcher struct {
	out  string
	r    tokens.Resolver
	open []ck3.OpenOption
	opts []melt.Option

	settle time.Duration

	// seen maps a save's path to the hash of the content last melted from it.
	seen *lru.Cache[string, uint64]
}

func newWatcher(out string, r tokens.Resolver, opts ...melt.Option) (*watcher, error) {
	seen, err := lru.New[string, uint64](seenCacheSize)
	if err != nil {
		return nil, err
	}
	return &watcher{out: out, r: r, opts: opts, settle: defaultSettle, seen: seen}, nil
}

// wants returns true for saves which aren't our own output.
func wants(path string) bool {
	return strings.HasSuffix(path, saveExt) && !strings.HasSuffix(path, meltedSuffix)
}

// handle melts path unless its content was already melted. It returns true if
// a melted save was written.
func (w *watcher) handle(ctx context.Context, path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, errors.Annotate(err, "reading %q", path).Err()
	}
	sum := xxhash.Sum64(data)
	if prev, ok := w.seen.Get(path); ok && prev == sum {
		logging.Debugf(ctx, "%s is unchanged", path)
		return false, nil
	}

	dst := filepath.Join(w.out, meltedName(filepath.Base(path)))
	unknown, err := meltData(ctx, path, data, dst, w.r, w.open, w.opts...)
	if err != nil {
		return false, err
	}
	w.seen.Add(path, sum)
	if len(unknown) > 0 {
		logging.Warningf(ctx, "%s: %d unresolved token(s)", path, len(unknown))
	}
	return true, nil
}

// run watches dir until ctx is done.
func (w *watcher) run(ctx context.Context, dir string) error {
	if w.settle <= 0 {
		return errors.Reason("settle time must be positive, got %s", w.settle).Err()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Annotate(err, "creating watcher").Err()
	}
	defer fw.Close()
	if err := fw.Add(dir); err != nil {
		return errors.Annotate(err, "watching %q", dir).Err()
	}
	logging.Infof(ctx, "watching %s", dir)

	tick := time.NewTicker(w.settle / 2)
	defer tick.Stop()

	// pending maps paths to the time they were last written.
	pending := map[string]time.Time{}
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if (ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) && wants(ev.Name) {
				pending[ev.Name] = time.Now()
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logging.Warningf(ctx, "watcher: %s", err)

		case now := <-tick.C:
			for path, last := range pending {
				if now.Sub(last) < w.settle {
					continue
				}
				delete(pending, path)
				if _, err := w.handle(ctx, path); err != nil {
					logging.Errorf(ctx, "%s", err)
				}
			}
		}
	}
}
