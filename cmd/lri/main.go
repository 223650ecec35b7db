// Command lri estimates LiDAR sensor intrinsics from point clouds and works
// with the resulting range images.
//
// Usage:
//
//	lri estimate [flags] cloud.bin [cloud2.bin ...]
//	lri project -intrinsics intr.json -out image.csv cloud.bin
//	lri unproject -intrinsics intr.json -image image.csv -out cloud.csv
//	lri report [flags] cloud.bin
//	lri runs -db runs.db [-limit n]
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/lri"
	"github.com/banshee-data/lri/internal/cloudio"
	"github.com/banshee-data/lri/internal/monitoring"
	"github.com/banshee-data/lri/internal/report"
	storage "github.com/banshee-data/lri/internal/storage/sqlite"
	"github.com/banshee-data/lri/internal/version"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "estimate":
		err = runEstimate(os.Args[2:])
	case "project":
		err = runProject(os.Args[2:])
	case "unproject":
		err = runUnproject(os.Args[2:])
	case "report":
		err = runReport(os.Args[2:])
	case "runs":
		err = runRuns(os.Args[2:])
	case "version":
		fmt.Printf("lri %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("lri %s: %v", os.Args[1], err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: lri <estimate|project|unproject|report|runs|version> [flags]")
}

// loadParams applies an optional params file over the defaults.
func loadParams(path string) (lri.Params, error) {
	if path == "" {
		return lri.DefaultParams(), nil
	}
	return lri.LoadParams(path)
}

func runEstimate(args []string) error {
	fs := flag.NewFlagSet("estimate", flag.ExitOnError)
	paramsPath := fs.String("params", "", "JSON parameter file (partial, overrides defaults)")
	out := fs.String("out", "", "output intrinsics file (single input only; default <input>.intrinsics.json)")
	indent := fs.Int("indent", 4, "JSON indent, -1 for compact")
	dbPath := fs.String("db", "", "record runs to this SQLite database")
	jobs := fs.Int("jobs", 1, "clouds to process concurrently")
	quiet := fs.Bool("quiet", false, "mute estimation trace logging")
	fs.Parse(args)

	inputs := fs.Args()
	if len(inputs) == 0 {
		return fmt.Errorf("no input clouds given")
	}
	if *out != "" && len(inputs) > 1 {
		return fmt.Errorf("-out only applies to a single input")
	}

	if *quiet {
		monitoring.SetLogger(nil)
	}

	params, err := loadParams(*paramsPath)
	if err != nil {
		return err
	}

	var store *storage.RunStore
	var storeMu sync.Mutex
	if *dbPath != "" {
		db, err := storage.Open(*dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		store = storage.NewRunStore(db)
	}

	// Each estimation is single-threaded and independent; batches fan out
	// across inputs, never inside one estimation.
	var g errgroup.Group
	g.SetLimit(*jobs)

	for _, input := range inputs {
		g.Go(func() error {
			start := time.Now()

			cloud, err := cloudio.ReadPointCloud(input)
			if err != nil {
				return err
			}

			detailed, err := lri.EstimateIntrinsicsDetailedWithParams(cloud, params)
			if err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}

			outPath := *out
			if outPath == "" {
				outPath = input + ".intrinsics.json"
			}
			if err := lri.IntrinsicsToJSONFile(detailed.Intrinsics(), outPath, *indent); err != nil {
				return err
			}

			if store != nil {
				storeMu.Lock()
				runID, err := store.InsertRun(detailed, input)
				storeMu.Unlock()
				if err != nil {
					return err
				}
				log.Printf("%s: recorded run %s", input, runID)
			}

			log.Printf("%s: %d scanlines from %d points in %s (%s) -> %s",
				input, len(detailed.Scanlines), detailed.PointsCount,
				time.Since(start).Round(time.Millisecond), detailed.EndReason, outPath)
			return nil
		})
	}

	return g.Wait()
}

func runProject(args []string) error {
	fs := flag.NewFlagSet("project", flag.ExitOnError)
	intrinsicsPath := fs.String("intrinsics", "", "intrinsics JSON file")
	out := fs.String("out", "image.csv", "output range image CSV")
	fs.Parse(args)

	if *intrinsicsPath == "" || fs.NArg() != 1 {
		return fmt.Errorf("want -intrinsics and exactly one cloud file")
	}

	intr, err := lri.IntrinsicsFromJSONFile(*intrinsicsPath)
	if err != nil {
		return err
	}

	cloud, err := cloudio.ReadPointCloud(fs.Arg(0))
	if err != nil {
		return err
	}

	image, err := lri.ProjectToRangeImage(intr, cloud)
	if err != nil {
		return err
	}

	if err := writeRangeImageCSV(*out, image); err != nil {
		return err
	}

	log.Printf("projected %d points to %dx%d image -> %s", cloud.Len(), image.Width, image.Height, *out)
	return nil
}

func runUnproject(args []string) error {
	fs := flag.NewFlagSet("unproject", flag.ExitOnError)
	intrinsicsPath := fs.String("intrinsics", "", "intrinsics JSON file")
	imagePath := fs.String("image", "", "range image CSV")
	out := fs.String("out", "cloud.csv", "output cloud (.csv or .bin)")
	fs.Parse(args)

	if *intrinsicsPath == "" || *imagePath == "" {
		return fmt.Errorf("want -intrinsics and -image")
	}

	intr, err := lri.IntrinsicsFromJSONFile(*intrinsicsPath)
	if err != nil {
		return err
	}

	image, err := readRangeImageCSV(*imagePath)
	if err != nil {
		return err
	}

	cloud := lri.UnprojectToPointCloud(intr, image)

	if strings.HasSuffix(*out, ".bin") {
		err = cloudio.WriteKITTIBin(*out, cloud)
	} else {
		err = cloudio.WriteCSV(*out, cloud)
	}
	if err != nil {
		return err
	}

	log.Printf("unprojected %dx%d image to %d points -> %s", image.Width, image.Height, cloud.Len(), *out)
	return nil
}

func runReport(args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	paramsPath := fs.String("params", "", "JSON parameter file")
	htmlPath := fs.String("html", "report.html", "output HTML report ('' to skip)")
	pngPath := fs.String("png", "", "output elevation scatter PNG ('' to skip)")
	quiet := fs.Bool("quiet", true, "mute estimation trace logging")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("want exactly one cloud file")
	}

	if *quiet {
		monitoring.SetLogger(nil)
	}

	params, err := loadParams(*paramsPath)
	if err != nil {
		return err
	}

	cloud, err := cloudio.ReadPointCloud(fs.Arg(0))
	if err != nil {
		return err
	}

	detailed, err := lri.EstimateIntrinsicsDetailedWithParams(cloud, params)
	if err != nil {
		return err
	}

	if *htmlPath != "" {
		f, err := os.Create(*htmlPath)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		if err := report.WriteHTML(f, detailed, cloud); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		log.Printf("wrote %s", *htmlPath)
	}

	if *pngPath != "" {
		if err := report.SaveElevationPNG(*pngPath, detailed, cloud); err != nil {
			return err
		}
		log.Printf("wrote %s", *pngPath)
	}

	return nil
}

func runRuns(args []string) error {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	dbPath := fs.String("db", "runs.db", "SQLite database file")
	limit := fs.Int("limit", 20, "maximum runs to list")
	fs.Parse(args)

	db, err := storage.Open(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := storage.NewRunStore(db).ListRuns(*limit)
	if err != nil {
		return err
	}

	for _, run := range runs {
		fmt.Printf("%s  %s  %d scanlines  %d points  %d unassigned  %s  %s\n",
			run.RunID,
			time.Unix(0, run.CreatedAtNs).Format(time.RFC3339),
			run.ScanlinesCount, run.PointsCount, run.UnassignedPoints,
			run.EndReason, run.SourceFile)
	}
	return nil
}

// writeRangeImageCSV stores a range image as one CSV row per image row.
func writeRangeImageCSV(path string, image lri.RangeImage) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for row := 0; row < image.Height; row++ {
		for col := 0; col < image.Width; col++ {
			if col > 0 {
				if _, err := w.WriteString(","); err != nil {
					return err
				}
			}
			if _, err := w.WriteString(strconv.FormatFloat(image.At(row, col), 'g', -1, 64)); err != nil {
				return err
			}
		}
		if _, err := w.WriteString("\n"); err != nil {
			return err
		}
	}
	return w.Flush()
}

// readRangeImageCSV loads a range image written by writeRangeImageCSV.
func readRangeImageCSV(path string) (lri.RangeImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return lri.RangeImage{}, fmt.Errorf("open image file: %w", err)
	}
	defer f.Close()

	var rows [][]float64
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 16*1024*1024), 16*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		row := make([]float64, len(parts))
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return lri.RangeImage{}, fmt.Errorf("image file %s row %d: %w", path, len(rows), err)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return lri.RangeImage{}, fmt.Errorf("read image file: %w", err)
	}

	if len(rows) == 0 {
		return lri.RangeImage{}, fmt.Errorf("image file %s is empty", path)
	}

	width := len(rows[0])
	image := lri.NewRangeImage(width, len(rows))
	for r, row := range rows {
		if len(row) != width {
			return lri.RangeImage{}, fmt.Errorf("image file %s: ragged row %d", path, r)
		}
		for c, v := range row {
			image.Set(r, c, v)
		}
	}
	return image, nil
}
