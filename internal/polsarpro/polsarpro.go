// Package polsarpro reads and writes PolSARpro-style raster directories: a
// config.txt holding the dimensions next to one little-endian float32 .bin
// file per matrix band.
package polsarpro

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/wishart/internal/fsutil"
	"github.com/banshee-data/wishart/internal/polsar"
)

const (
	ConfigFile = "config.txt"
	ClassFile  = "wishart_class.bin"
)

// Dims is the content of config.txt we care about.
type Dims struct {
	Rows      int
	Cols      int
	PolarCase string
	PolarType string
}

// ParseConfig reads a config.txt body. Keys and values sit on alternating
// lines, separated by dashed lines.
func ParseConfig(data []byte) (Dims, error) {
	var d Dims
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "---") {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return d, err
	}
	for i := 0; i+1 < len(lines); i += 2 {
		key, val := lines[i], lines[i+1]
		switch strings.ToLower(key) {
		case "nrow":
			n, err := strconv.Atoi(val)
			if err != nil {
				return d, fmt.Errorf("invalid Nrow %q: %w", val, err)
			}
			d.Rows = n
		case "ncol":
			n, err := strconv.Atoi(val)
			if err != nil {
				return d, fmt.Errorf("invalid Ncol %q: %w", val, err)
			}
			d.Cols = n
		case "polarcase":
			d.PolarCase = val
		case "polartype":
			d.PolarType = val
		}
	}
	if d.Rows <= 0 || d.Cols <= 0 {
		return d, fmt.Errorf("config must give positive Nrow and Ncol, got %dx%d", d.Rows, d.Cols)
	}
	return d, nil
}

// Format renders d as a config.txt body.
func (d Dims) Format() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "Nrow\n%d\n---------\nNcol\n%d\n", d.Rows, d.Cols)
	if d.PolarCase != "" {
		fmt.Fprintf(&b, "---------\nPolarCase\n%s\n", d.PolarCase)
	}
	if d.PolarType != "" {
		fmt.Fprintf(&b, "---------\nPolarType\n%s\n", d.PolarType)
	}
	return []byte(b.String())
}

// Detect works out the matrix kind and order stored in dir from which band
// files exist. Full-pol T3/C3 wins over dual-pol C2.
func Detect(fsys fsutil.FileSystem, dir string) (polsar.MatrixKind, int, error) {
	candidates := []struct {
		kind  polsar.MatrixKind
		order int
	}{
		{polsar.Coherency, 3},
		{polsar.Covariance, 3},
		{polsar.Covariance, 2},
		{polsar.Coherency, 2},
	}
	for _, c := range candidates {
		if hasBands(fsys, dir, polsar.BandNames(c.kind, c.order)) {
			return c.kind, c.order, nil
		}
	}
	return 0, 0, fmt.Errorf("no T3, C3, C2 or T2 band set found in %s", dir)
}

func hasBands(fsys fsutil.FileSystem, dir string, names []string) bool {
	for _, n := range names {
		if !fsys.Exists(filepath.Join(dir, n+".bin")) {
			return false
		}
	}
	return true
}

// ReadDir loads the raster stored in dir.
func ReadDir(fsys fsutil.FileSystem, dir string) (*polsar.Raster, error) {
	cfgData, err := fsys.ReadFile(filepath.Join(dir, ConfigFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ConfigFile, err)
	}
	dims, err := ParseConfig(cfgData)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Join(dir, ConfigFile), err)
	}
	kind, order, err := Detect(fsys, dir)
	if err != nil {
		return nil, err
	}

	names := polsar.BandNames(kind, order)
	bands := make([][]float32, len(names))
	for i, name := range names {
		path := filepath.Join(dir, name+".bin")
		band, err := readBand(fsys, path, dims.Rows*dims.Cols)
		if err != nil {
			return nil, err
		}
		bands[i] = band
	}
	return polsar.NewRasterFromBands(dims.Cols, dims.Rows, order, kind, bands)
}

func readBand(fsys fsutil.FileSystem, path string, n int) ([]float32, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read band: %w", err)
	}
	if len(data) != 4*n {
		return nil, fmt.Errorf("%s: got %d bytes, want %d for %d pixels", path, len(data), 4*n, n)
	}
	band := make([]float32, n)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, band); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return band, nil
}

func writeBand(fsys fsutil.FileSystem, path string, band []float32) error {
	var buf bytes.Buffer
	buf.Grow(4 * len(band))
	if err := binary.Write(&buf, binary.LittleEndian, band); err != nil {
		return err
	}
	if err := fsys.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write band: %w", err)
	}
	return nil
}

// WriteDir stores r under dir, creating it if needed.
func WriteDir(fsys fsutil.FileSystem, dir string, r *polsar.Raster) error {
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	dims := Dims{Rows: r.Height(), Cols: r.Width(), PolarCase: "monostatic", PolarType: "full"}
	if r.Order() == 2 {
		dims.PolarType = "pp1"
	}
	if err := fsys.WriteFile(filepath.Join(dir, ConfigFile), dims.Format(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", ConfigFile, err)
	}
	for i, name := range polsar.BandNames(r.Kind(), r.Order()) {
		if err := writeBand(fsys, filepath.Join(dir, name+".bin"), r.Bands()[i]); err != nil {
			return err
		}
	}
	return nil
}

// WriteClassRaster writes a width×height class raster as float32 values to
// dir/name and makes sure dir has a config.txt.
func WriteClassRaster(fsys fsutil.FileSystem, dir, name string, width, height int, classes []uint16) error {
	if len(classes) != width*height {
		return fmt.Errorf("class raster has %d pixels, want %dx%d", len(classes), width, height)
	}
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	cfgPath := filepath.Join(dir, ConfigFile)
	if !fsys.Exists(cfgPath) {
		if err := fsys.WriteFile(cfgPath, Dims{Rows: height, Cols: width}.Format(), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", ConfigFile, err)
		}
	}
	band := make([]float32, len(classes))
	for i, c := range classes {
		band[i] = float32(c)
	}
	return writeBand(fsys, filepath.Join(dir, name), band)
}

// ReadClassRaster reads a class raster written by WriteClassRaster.
func ReadClassRaster(fsys fsutil.FileSystem, path string, width, height int) ([]uint16, error) {
	band, err := readBand(fsys, path, width*height)
	if err != nil {
		return nil, err
	}
	out := make([]uint16, len(band))
	for i, v := range band {
		if v < 0 || v != float32(uint16(v)) {
			return nil, fmt.Errorf("%s: pixel %d holds %v, not a class index", path, i, v)
		}
		out[i] = uint16(v)
	}
	return out, nil
}
