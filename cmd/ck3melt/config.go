// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"os"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"gopkg.in/ini.v1"

	"github.com/rakaly/ck3save/ck3"
	"github.com/rakaly/ck3save/ck3/ck3data/tokens"
	"github.com/rakaly/ck3save/ck3/melt"
)

const (
	tokensEnvVar = "CK3_IRONMAN_TOKENS"

	defaultConfigFile = "ck3melt.ini"

	// Real gamestates are a few hundred MB uncompressed.
	defaultMaxEntrySize = 4 << 30
)

// config is the contents of the ini file.
//
//	tokens = /path/to/ck3.txt
//
//	[melt]
//	preserve_ironman = false
//	strict = false
//	max_entry_size = 4294967296
//
//	[watch]
//	dir = /path/to/save games
//	out = /path/to/melted
type config struct {
	Tokens string

	PreserveIronman bool
	Strict          bool

	// MaxEntrySize caps the declared size of archive entries. 0 is no limit.
	MaxEntrySize uint64

	WatchDir string
	WatchOut string
}

// loadConfig reads path. A missing file is an empty config unless the path
// was given explicitly.
func loadConfig(path string, explicit bool) (*config, error) {
	ret := &config{MaxEntrySize: defaultMaxEntrySize}
	if _, err := os.Stat(path); os.IsNotExist(err) && !explicit {
		return ret, nil
	}
	f, err := ini.Load(path)
	if err != nil {
		return nil, errors.Annotate(err, "loading config %q", path).Err()
	}

	ret.Tokens = f.Section("").Key("tokens").String()

	m := f.Section("melt")
	for name, dst := range map[string]*bool{"preserve_ironman": &ret.PreserveIronman, "strict": &ret.Strict} {
		if !m.HasKey(name) {
			continue
		}
		if *dst, err = m.Key(name).Bool(); err != nil {
			return nil, errors.Annotate(err, "[melt] %s", name).Err()
		}
	}
	if m.HasKey("max_entry_size") {
		if ret.MaxEntrySize, err = m.Key("max_entry_size").Uint64(); err != nil {
			return nil, errors.Annotate(err, "[melt] max_entry_size").Err()
		}
	}

	w := f.Section("watch")
	ret.WatchDir = w.Key("dir").String()
	ret.WatchOut = w.Key("out").String()
	return ret, nil
}

// commonFlags are shared by every subcommand.
type commonFlags struct {
	subcommands.CommandRunBase

	configPath   string
	tokensPath   string
	maxEntrySize uint64
	logConfig    logging.Config
}

func (c *commonFlags) registerCommon() {
	c.logConfig.Level = logging.Info
	c.logConfig.AddFlags(&c.Flags)
	c.Flags.StringVar(&c.configPath, "config", defaultConfigFile, "Path of the ini config file.")
	c.Flags.StringVar(&c.tokensPath, "tokens", "", "Path of the token table. Overrides the config file and $"+tokensEnvVar+".")
	c.Flags.Uint64Var(&c.maxEntrySize, "max-entry-size", defaultMaxEntrySize,
		"Refuse archive entries declaring more uncompressed bytes than this. 0 is no limit. Overrides the config file.")
}

func (c *commonFlags) visited(name string) bool {
	found := false
	c.Flags.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// setup applies the logging flags and loads the config and the token table.
func (c *commonFlags) setup(ctx context.Context, env subcommands.Env) (context.Context, *config, tokens.Resolver, error) {
	ctx = c.logConfig.Set(ctx)

	cfg, err := loadConfig(c.configPath, c.visited("config"))
	if err != nil {
		return ctx, nil, nil, err
	}
	if c.visited("max-entry-size") {
		cfg.MaxEntrySize = c.maxEntrySize
	}

	path := c.tokensPath
	if path == "" {
		path = cfg.Tokens
	}
	if path == "" {
		path = env[tokensEnvVar].Value
	}
	r, err := tokens.LoadResolver(path)
	if err != nil {
		return ctx, nil, nil, err
	}
	if _, none := r.(tokens.NoResolver); none {
		logging.Debugf(ctx, "no token table; binary fields will be named by id")
	}
	return ctx, cfg, r, nil
}

// openOptions are the ck3.OpenOptions the config asks for.
func (cfg *config) openOptions() []ck3.OpenOption {
	if cfg.MaxEntrySize == 0 {
		return nil
	}
	return []ck3.OpenOption{ck3.MaxEntrySize(cfg.MaxEntrySize)}
}

// meltOptions are the melt.Options the config asks for.
func (cfg *config) meltOptions() []melt.Option {
	return []melt.Option{
		melt.PreserveIronmanFields(cfg.PreserveIronman),
		melt.Strict(cfg.Strict),
	}
}
