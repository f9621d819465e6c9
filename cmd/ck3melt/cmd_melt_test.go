// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"go.chromium.org/luci/common/errors"

	"github.com/rakaly/ck3save/ck3"

	. "github.com/smartystreets/goconvey/convey"
)

func zipped(gamestate string) []byte {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	w, err := zw.Create("gamestate")
	if err != nil {
		panic(err)
	}
	if _, err := w.Write([]byte(gamestate)); err != nil {
		panic(err)
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func TestMeltData(t *testing.T) {
	t.Parallel()

	Convey("meltData", t, func() {
		ctx := context.Background()
		out := filepath.Join(t.TempDir(), "out.ck3")
		data := zipped("a=b\nc={ 1 2 }\n")

		Convey("melts an archived save", func() {
			cfg := &config{MaxEntrySize: defaultMaxEntrySize}
			unknown, err := meltData(ctx, "in.ck3", data, out, nil, cfg.openOptions(), cfg.meltOptions()...)
			So(err, ShouldBeNil)
			So(unknown, ShouldBeEmpty)
			melted, err := os.ReadFile(out)
			So(err, ShouldBeNil)
			So(string(melted), ShouldEqual, "a=b\nc={ 1 2 }\n")
		})

		Convey("refuses entries over the size limit", func() {
			cfg := &config{MaxEntrySize: 4}
			_, err := meltData(ctx, "in.ck3", data, out, nil, cfg.openOptions(), cfg.meltOptions()...)
			So(errors.Is(err, ck3.ErrEntryTooLarge), ShouldBeTrue)
			_, err = os.Stat(out)
			So(os.IsNotExist(err), ShouldBeTrue)
		})
	})
}
