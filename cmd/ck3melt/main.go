// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Command ck3melt converts Crusader Kings III saves to plaintext or JSON, and
// can watch a save directory to melt saves as the game writes them.
package main

import (
	"context"
	"os"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/logging/gologger"
)

func getApplication() *cli.Application {
	return &cli.Application{
		Name:  "ck3melt",
		Title: "Converts Crusader Kings III saves to plaintext and JSON.",
		Context: func(ctx context.Context) context.Context {
			return gologger.StdConfig.Use(ctx)
		},
		EnvVars: map[string]subcommands.EnvVarDefinition{
			tokensEnvVar: {
				ShortDesc: "Path of the token table used when neither -tokens nor the config file names one.",
			},
		},
		Commands: []*subcommands.Command{
			cmdMelt,
			cmdJSON,
			cmdHeader,
			cmdWatch,
			subcommands.CmdHelp,
		},
	}
}

func main() {
	os.Exit(subcommands.Run(getApplication(), nil))
}
