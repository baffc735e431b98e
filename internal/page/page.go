// Package page lays out QR symbols on a page-sized raster image and, on the
// decode side, locates them again under rotation, scan noise, and imperfect
// grid alignment.
//
// Writing a page is a direct tiling problem: symbols are pinned to a
// regular column/row grid with a fixed pixel gutter, so no inference is
// needed. Reading one back is harder — a rescanned page may be rotated,
// cropped, or resampled, so the decoder runs three passes: an unconstrained
// whole-image scan to seed an initial grid estimate, then two grid-inferred
// per-cell passes that each refine the estimate with anything the previous
// pass found. A coverage mask prevents re-decoding a cell that has already
// yielded a result.
package page

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sort"

	"gocv.io/x/gocv"

	"github.com/qrblock/qrb/internal/index"
	"github.com/qrblock/qrb/internal/qr"
)

const (
	tolerance = 1.0 / 16.0 // Fractional grid-pitch tolerance used by clustering.
	roiScale  = 1.15       // Per-cell ROI expansion factor for grid inference.
)

// Config describes one page's grid geometry, derived from a pinned QR
// Config and the archive's column/row counts.
type Config struct {
	NumCol, NumRow int
	Cap            int // Symbols per page.
	Width, Height  int // Page dimensions in pixels.

	qrCfg *qr.Config
}

// NewConfig validates the grid dimensions and derives page geometry from
// qrCfg.
func NewConfig(numCol, numRow int, qrCfg *qr.Config) (*Config, error) {
	if numCol < 1 || numRow < 1 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidGrid, numCol, numRow)
	}
	if uint64(numCol)*uint64(numRow) > index.MaxIndex {
		return nil, fmt.Errorf("%w: %dx%d exceeds the largest addressable block index %d", ErrInvalidGrid, numCol, numRow, index.MaxIndex)
	}

	return &Config{
		NumCol: numCol,
		NumRow: numRow,
		Cap:    numCol * numRow,
		Width:  numCol*(qrCfg.Px+qrCfg.Sp) + qrCfg.Sp,
		Height: numRow*(qrCfg.Px+qrCfg.Sp) + qrCfg.Sp,
		qrCfg:  qrCfg,
	}, nil
}

// WritePage tiles data across a single page's worth of QR symbols, at most
// cfg.Cap of them, returning the composed page image. data must be no
// larger than cfg.Cap*cfg.qrCfg.Cap bytes.
func (c *Config) WritePage(data []byte) (image.Image, error) {
	if len(data) == 0 || c.Cap*c.qrCfg.Cap < len(data) {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadExceedsPage, len(data))
	}

	canvas := image.NewGray(image.Rect(0, 0, c.Width, c.Height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.Gray{Y: 0xFF}), image.Point{}, draw.Src)

	offset := 0
	for offset < len(data) {
		idx := offset / c.qrCfg.Cap
		col := idx % c.NumCol
		row := idx / c.NumCol
		x := col*(c.qrCfg.Px+c.qrCfg.Sp) + c.qrCfg.Sp
		y := row*(c.qrCfg.Px+c.qrCfg.Sp) + c.qrCfg.Sp

		length := c.qrCfg.Cap
		if remain := len(data) - offset; remain < length {
			length = remain
		}

		cell, err := qr.Encode(data[offset:offset+length], c.qrCfg)
		if err != nil {
			return nil, fmt.Errorf("page: encode cell %d: %w", idx, err)
		}
		draw.Draw(canvas, image.Rect(x, y, x+c.qrCfg.Px, y+c.qrCfg.Px), cell, image.Point{}, draw.Src)

		offset += length
	}

	return canvas, nil
}

// EncodePNG renders img as a PNG, matching the original implementation's
// compression setting via gocv's encoder rather than the standard library's (the
// original archival format was produced with libpng compression level 4;
// matching it keeps archives produced by either implementation
// byte-comparable).
func EncodePNG(img image.Image) ([]byte, error) {
	mat, err := gocv.ImageToMatGray(img)
	if err != nil {
		return nil, fmt.Errorf("page: convert page image: %w", err)
	}
	defer mat.Close()

	buf, err := gocv.IMEncodeWithParams(gocv.PNGFileExt, mat, []int{gocv.IMWritePngCompression, 4})
	if err != nil {
		return nil, fmt.Errorf("page: encode PNG: %w", err)
	}
	defer buf.Close()

	return buf.GetBytes(), nil
}

// Reader locates and decodes QR symbols on rescanned page images.
type Reader struct {
	qrCfg   *qr.Config
	decoder *qr.Decoder
}

// NewReader returns a Reader for pages encoded at qrCfg's version/ECC.
func NewReader(qrCfg *qr.Config) *Reader {
	return &Reader{qrCfg: qrCfg, decoder: qr.NewDecoder()}
}

// ReadPage decodes every QR symbol locatable in raw, a PNG- (or any
// gocv-readable) encoded page image, returning each symbol's payload bytes
// in the order they were found.
func (r *Reader) ReadPage(raw []byte) ([][]byte, error) {
	mat, err := gocv.IMDecode(raw, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("page: decode image: %w", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, ErrEmptyPageImage
	}

	page, offsetX, offsetY, err := preprocess(mat)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	pageImg, err := page.ToImage()
	if err != nil {
		return nil, fmt.Errorf("page: convert preprocessed page: %w", err)
	}

	bounds := pageImg.Bounds()
	mask := newCoverageMask(bounds.Dx(), bounds.Dy())
	mask.fill(image.Rect(offsetX, offsetY, offsetX+mat.Cols(), offsetY+mat.Rows()), false)

	var result [][]byte
	var ref []image.Rectangle

	decodeAndUpdate := func(single bool) {
		if len(ref) == 0 {
			return
		}

		roi := segment(bounds.Dx(), bounds.Dy(), ref, !single, r.qrCfg.Ratio)
		if roi == nil {
			return
		}

		if single {
			for _, b := range ref {
				center := image.Pt((b.Min.X+b.Max.X)/2, (b.Min.Y+b.Max.Y)/2)
				for i := 0; i < len(roi); i += 16 {
					if !center.In(roi[i]) {
						continue
					}
					mask.fill(roi[i], true)
					break
				}
			}
		}

		for i := 0; i < len(roi); i += 16 {
			for j := i; j < len(roi) && j-i < 16; j++ {
				if mask.allCovered(roi[j]) {
					break
				}

				cell := cropImage(pageImg, roi[j])
				blocks, err := r.decoder.Decode(cell, single)
				if err != nil || len(blocks) == 0 {
					continue
				}

				for _, blk := range blocks {
					box := blk.Box.Add(roi[j].Min)
					result = append(result, blk.Data)
					ref = append(ref, box)
				}
				break
			}
		}
	}

	// Global pass: seed with the whole, unscaled source image as the first
	// candidate region, then discard that seed once used.
	ref = append(ref, image.Rect(offsetX, offsetY, offsetX+mat.Cols(), offsetY+mat.Rows()))
	decodeAndUpdate(false)
	ref = ref[1:]

	// Two grid-inferred per-cell passes: the second refines the grid
	// estimate with anything the first pass turned up, catching symbols
	// the initial estimate's pitch missed.
	decodeAndUpdate(true)
	decodeAndUpdate(true)

	return result, nil
}

func preprocess(mat gocv.Mat) (result gocv.Mat, offsetX, offsetY int, err error) {
	rows, cols := mat.Rows(), mat.Cols()
	resultRows := int(float64(rows) * roiScale)
	resultCols := int(float64(cols) * roiScale)

	result = gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), resultRows, resultCols, gocv.MatTypeCV8UC1)

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	denoise := gocv.NewMat()
	defer denoise.Close()
	gocv.BilateralFilter(gray, &denoise, 5, 30, 30)

	offsetX = (resultCols - cols) / 2
	offsetY = (resultRows - rows) / 2

	roi := result.Region(image.Rect(offsetX, offsetY, offsetX+cols, offsetY+rows))
	denoise.CopyTo(&roi)
	roi.Close()

	return result, offsetX, offsetY, nil
}

func cropImage(img image.Image, r image.Rectangle) image.Image {
	dst := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}

// segment infers a decode grid from the bounding boxes already found (ref)
// and returns 16 expanded region-of-interest candidates per grid cell:
// candidate 0 is unexpanded (used first, and used for mask bookkeeping
// since it exactly covers one cell with no overlap into its neighbors);
// the rest progressively expand to tolerate cells that are not perfectly
// aligned to the inferred pitch. scaleOnly skips pitch re-estimation and
// uses the boxes' average size directly, used on the very first pass where
// only one (whole-image) reference box exists.
func segment(pageW, pageH int, ref []image.Rectangle, scaleOnly bool, ratio float64) []image.Rectangle {
	if len(ref) == 0 {
		return nil
	}

	n := float64(len(ref))
	centerX := make([]float64, len(ref))
	centerY := make([]float64, len(ref))
	var sumW, sumH float64
	for i, b := range ref {
		centerX[i] = float64(b.Min.X+b.Max.X) / 2
		centerY[i] = float64(b.Min.Y+b.Max.Y) / 2
		sumW += float64(b.Dx())
		sumH += float64(b.Dy())
	}
	boxW, boxH := sumW/n, sumH/n

	clusterX := clusterCenters(centerX, boxW)
	clusterY := clusterCenters(centerY, boxH)

	var gridW, gridH int
	if scaleOnly {
		gridW, gridH = int(boxW), int(boxH)
	} else {
		gridW = estimateGridPitch(clusterX, boxW, ratio)
		gridH = estimateGridPitch(clusterY, boxH, ratio)
	}
	if gridW <= 0 || gridH <= 0 {
		return nil
	}

	tlX := int(clusterX[0]) % gridW
	tlY := int(clusterY[0]) % gridH

	roiW := [2]int{gridW, int(roiScale * float64(gridW))}
	roiH := [2]int{gridH, int(roiScale * float64(gridH))}

	var result []image.Rectangle
	for j := 0; j <= pageH/gridH; j++ {
		for i := 0; i <= pageW/gridW; i++ {
			cx := tlX + i*gridW
			cy := tlY + j*gridH

			if cx >= pageW || cy >= pageH {
				continue
			}
			if cx-int(boxW/2) < 0 || cy-int(boxH/2) < 0 {
				continue
			}
			if cx+int(boxW/2) >= pageW || cy+int(boxH/2) >= pageH {
				continue
			}

			for k := 0; k < 16; k++ {
				minX := max(0, cx-roiW[k&1]/2)
				minY := max(0, cy-roiH[(k>>1)&1]/2)
				maxX := min(pageW-1, cx+roiW[(k>>2)&1]/2)
				maxY := min(pageH-1, cy+roiH[(k>>3)&1]/2)
				result = append(result, image.Rect(minX, minY, maxX, maxY))
			}
		}
	}
	return result
}

// clusterCenters sorts values and merges consecutive ones whose gap (as a
// fraction of boxSize) is within tolerance, returning each cluster's mean —
// an estimate of one grid line's true center from several jittered
// observations of it.
func clusterCenters(values []float64, boxSize float64) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var clusters []float64
	for i := 0; i < len(sorted); {
		sum := sorted[i]
		j := i + 1
		for j < len(sorted) && (sorted[j]-sorted[j-1])/boxSize <= tolerance {
			sum += sorted[j]
			j++
		}
		clusters = append(clusters, sum/float64(j-i))
		i = j
	}
	return clusters
}

// estimateGridPitch averages the gaps between consecutive cluster centers
// that are consistent with one QR cell's expected pitch (boxSize*ratio),
// falling back to the nominal pitch when no gap qualifies.
func estimateGridPitch(clusters []float64, boxSize, ratio float64) int {
	var est float64
	count := 0
	for i := 1; i < len(clusters); i++ {
		gap := clusters[i] - clusters[i-1]
		r := gap / boxSize / ratio
		if r < 1.0-tolerance || r > 1.0+tolerance {
			continue
		}
		est += gap
		count++
	}
	if count != 0 {
		return int(est / float64(count))
	}
	return int(boxSize * ratio)
}

// coverageMask tracks which page pixels have already yielded a decoded
// symbol, so later passes skip regions with nothing left to find.
type coverageMask struct {
	w, h    int
	covered []bool
}

func newCoverageMask(w, h int) *coverageMask {
	m := &coverageMask{w: w, h: h, covered: make([]bool, w*h)}
	for i := range m.covered {
		m.covered[i] = true
	}
	return m
}

func (m *coverageMask) fill(r image.Rectangle, covered bool) {
	r = r.Intersect(image.Rect(0, 0, m.w, m.h))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m.covered[y*m.w+x] = covered
		}
	}
}

func (m *coverageMask) allCovered(r image.Rectangle) bool {
	r = r.Intersect(image.Rect(0, 0, m.w, m.h))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if !m.covered[y*m.w+x] {
				return false
			}
		}
	}
	return true
}
