// Package cloudio reads and writes point clouds for the command-line tools.
// Two formats are supported: KITTI-style .bin dumps (little-endian float32
// quadruples x, y, z, intensity) and plain CSV with one x,y,z row per point.
package cloudio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/lri"
)

// kittiRecordSize is the size of one KITTI point record: four float32.
const kittiRecordSize = 16

// ReadPointCloud loads a cloud, picking the format from the file extension:
// .bin for KITTI dumps, anything else is parsed as CSV.
func ReadPointCloud(path string) (lri.PointCloud, error) {
	if strings.EqualFold(filepath.Ext(path), ".bin") {
		return ReadKITTIBin(path)
	}
	return ReadCSV(path)
}

// ReadKITTIBin loads a KITTI .bin dump. The intensity channel is discarded.
func ReadKITTIBin(path string) (lri.PointCloud, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return lri.PointCloud{}, fmt.Errorf("read cloud file: %w", err)
	}

	if len(data)%kittiRecordSize != 0 {
		return lri.PointCloud{}, fmt.Errorf("cloud file %s: size %d is not a multiple of %d-byte records", path, len(data), kittiRecordSize)
	}

	n := len(data) / kittiRecordSize
	cloud := lri.PointCloud{
		X: make([]float64, n),
		Y: make([]float64, n),
		Z: make([]float64, n),
	}

	for i := 0; i < n; i++ {
		base := i * kittiRecordSize
		cloud.X[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[base:])))
		cloud.Y[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[base+4:])))
		cloud.Z[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[base+8:])))
	}

	return cloud, nil
}

// ReadCSV loads a cloud from comma-separated x,y,z rows. Blank lines and a
// leading non-numeric header row are skipped.
func ReadCSV(path string) (lri.PointCloud, error) {
	f, err := os.Open(path)
	if err != nil {
		return lri.PointCloud{}, fmt.Errorf("open cloud file: %w", err)
	}
	defer f.Close()

	var cloud lri.PointCloud
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 3 {
			return lri.PointCloud{}, fmt.Errorf("cloud file %s line %d: want at least 3 fields, got %d", path, lineNo, len(parts))
		}

		x, errX := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		z, errZ := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if errX != nil || errY != nil || errZ != nil {
			if lineNo == 1 {
				continue // header row
			}
			return lri.PointCloud{}, fmt.Errorf("cloud file %s line %d: invalid number", path, lineNo)
		}

		cloud.X = append(cloud.X, x)
		cloud.Y = append(cloud.Y, y)
		cloud.Z = append(cloud.Z, z)
	}
	if err := scanner.Err(); err != nil {
		return lri.PointCloud{}, fmt.Errorf("read cloud file: %w", err)
	}

	return cloud, nil
}

// WriteCSV writes a cloud as x,y,z rows.
func WriteCSV(path string, cloud lri.PointCloud) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create cloud file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i := 0; i < cloud.Len(); i++ {
		if _, err := fmt.Fprintf(w, "%g,%g,%g\n", cloud.X[i], cloud.Y[i], cloud.Z[i]); err != nil {
			return fmt.Errorf("write cloud file: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush cloud file: %w", err)
	}
	return nil
}

// WriteKITTIBin writes a cloud as KITTI float32 records with zero
// intensity.
func WriteKITTIBin(path string, cloud lri.PointCloud) error {
	buf := make([]byte, cloud.Len()*kittiRecordSize)
	for i := 0; i < cloud.Len(); i++ {
		base := i * kittiRecordSize
		binary.LittleEndian.PutUint32(buf[base:], math.Float32bits(float32(cloud.X[i])))
		binary.LittleEndian.PutUint32(buf[base+4:], math.Float32bits(float32(cloud.Y[i])))
		binary.LittleEndian.PutUint32(buf[base+8:], math.Float32bits(float32(cloud.Z[i])))
		binary.LittleEndian.PutUint32(buf[base+12:], 0)
	}

	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("write cloud file: %w", err)
	}
	return nil
}
