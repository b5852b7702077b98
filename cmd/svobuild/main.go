package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	svomarch "github.com/svomarch/svomarch"
	"github.com/svomarch/svomarch/volume"
)

func main() {
	var (
		fieldName = flag.String("field", "", "procedural field to voxelize (sphere, box, torus, gyroid)")
		dim       = flag.Uint("dim", 128, "voxel grid edge for procedural fields")
		out       = flag.String("o", "", "output .svo path (default: input name with .svo extension)")
		brickSize = flag.Uint("brick-size", 8, "brick edge in voxels")
		maxDepth  = flag.Uint("max-depth", 8, "octree subdivision limit")
		threshold = flag.Float64("threshold", 0.01, "surface band half-width in normalized units")
		debug     = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	log := svomarch.NewDefaultLogger("svobuild", *debug)

	var (
		field *volume.Field
		src   string
		err   error
	)
	switch {
	case flag.NArg() == 1:
		src = flag.Arg(0)
		field, err = volume.LoadSDF(src)
	case *fieldName != "":
		src = *fieldName
		field, err = volume.MakeDemoField(*fieldName, uint32(*dim))
	default:
		fmt.Fprintln(os.Stderr, "usage: svobuild [flags] input.sdf")
		fmt.Fprintln(os.Stderr, "       svobuild -field <name> [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if err != nil {
		log.Errorf("load field: %v", err)
		os.Exit(1)
	}

	log.Infof("field %s: %dx%dx%d voxels, dx %g",
		src, field.Dim[0], field.Dim[1], field.Dim[2], field.Dx)

	octree := volume.BuildOctree(field, volume.BuildOptions{
		BrickSize: uint32(*brickSize),
		MaxDepth:  uint32(*maxDepth),
		Threshold: float32(*threshold),
	})
	svo := volume.NewSvo(octree)

	outPath := *out
	if outPath == "" {
		outPath = strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + ".svo"
	}
	if err := svo.Save(outPath); err != nil {
		log.Errorf("save %s: %v", outPath, err)
		os.Exit(1)
	}

	brickBytes, nodeBytes, instanceBytes := svo.PayloadBytes()
	packed := brickBytes + nodeBytes + instanceBytes
	dense := svo.DenseBytes()
	log.Infof("build %s: %d nodes, %d bricks, %d instances",
		svo.BuildID, len(svo.Nodes), len(svo.Bricks), len(svo.Instances))
	log.Debugf("payload: bricks %s, nodes %s, instances %s",
		humanize.Bytes(uint64(brickBytes)), humanize.Bytes(uint64(nodeBytes)),
		humanize.Bytes(uint64(instanceBytes)))
	if packed > 0 {
		log.Infof("wrote %s: %s packed, %s dense (%.1fx smaller)",
			outPath, humanize.Bytes(uint64(packed)), humanize.Bytes(uint64(dense)),
			float64(dense)/float64(packed))
	} else {
		log.Warnf("wrote %s: no surface found, output is empty", outPath)
	}
}
