// Copyright 2023 The flatgeobuf (Go) Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Command fgbcat inspects a FlatGeobuf file or HTTP endpoint: it can
// print the file's header metadata, or run a bounding-box query and
// print the matching features as a GeoJSON FeatureCollection.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	flatgeobuf "github.com/flatgeobuf-go/rangereader"
	"github.com/flatgeobuf-go/rangereader/geojson"
	"github.com/flatgeobuf-go/rangereader/packedrtree"
)

func main() {
	logger := log.New(os.Stderr, "", log.Ldate|log.Ltime)

	if len(os.Args) < 2 {
		fmt.Println(`Usage: fgbcat [COMMAND] [ARGS]

Inspecting a file's metadata:
fgbcat header PATH_OR_URL

Querying features as GeoJSON:
fgbcat cat -bbox minx,miny,maxx,maxy PATH_OR_URL
fgbcat cat -bbox minx,miny,maxx,maxy -concurrent PATH_OR_URL`)
		os.Exit(1)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "header":
		headerCmd := flag.NewFlagSet("header", flag.ExitOnError)
		headerCmd.Parse(os.Args[2:])
		target := headerCmd.Arg(0)
		if target == "" {
			logger.Fatal("USAGE: fgbcat header PATH_OR_URL")
		}
		if err := runHeader(ctx, target); err != nil {
			logger.Fatalf("fgbcat header: %v", err)
		}
	case "cat":
		catCmd := flag.NewFlagSet("cat", flag.ExitOnError)
		bboxFlag := catCmd.String("bbox", "-180,-90,180,90", "minx,miny,maxx,maxy")
		concurrent := catCmd.Bool("concurrent", false, "fetch matching feature batches concurrently")
		catCmd.Parse(os.Args[2:])
		target := catCmd.Arg(0)
		if target == "" {
			logger.Fatal("USAGE: fgbcat cat [-bbox minx,miny,maxx,maxy] [-concurrent] PATH_OR_URL")
		}
		box, err := parseBBox(*bboxFlag)
		if err != nil {
			logger.Fatalf("fgbcat cat: %v", err)
		}
		if err := runCat(ctx, target, box, *concurrent); err != nil {
			logger.Fatalf("fgbcat cat: %v", err)
		}
	default:
		logger.Fatalf("unknown command %q", os.Args[1])
	}
}

func openTarget(ctx context.Context, target string) (*flatgeobuf.Reader, error) {
	cfg := flatgeobuf.DefaultConfig()
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return flatgeobuf.OpenHTTP(ctx, target, nil, cfg)
	}
	return flatgeobuf.OpenFile(ctx, target, cfg)
}

func runHeader(ctx context.Context, target string) error {
	r, err := openTarget(ctx, target)
	if err != nil {
		return err
	}
	defer r.Close()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(r.Header())
}

func runCat(ctx context.Context, target string, box packedrtree.Box, concurrent bool) error {
	r, err := openTarget(ctx, target)
	if err != nil {
		return err
	}
	defer r.Close()

	seq := r.Select(ctx, box)
	if concurrent {
		seq = r.SelectConcurrent(ctx, box)
	}

	fc, err := geojson.Collect(seq, r.Schema())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	return enc.Encode(fc)
}

func parseBBox(s string) (packedrtree.Box, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return packedrtree.Box{}, fmt.Errorf("bbox must have 4 comma-separated values, got %q", s)
	}
	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return packedrtree.Box{}, fmt.Errorf("bbox value %q: %w", p, err)
		}
		vals[i] = v
	}
	return packedrtree.Box{XMin: vals[0], YMin: vals[1], XMax: vals[2], YMax: vals[3]}, nil
}
