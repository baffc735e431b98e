// Package qr adapts two off-the-shelf QR code libraries into the single
// primitive qrb needs: fixed-version, fixed-ECC Byte-mode symbols in, raw
// payload bytes (plus page position) out.
//
// Encoding reuses the teacher's trimmed qrcodegen package, since qrb always
// writes exactly one Byte-mode segment per symbol and that package already
// implements the Reed-Solomon and masking pipeline this needs. Decoding uses
// github.com/makiuchi-d/gozxing, whose detector tolerates the camera/scan
// noise and rotation a from-disk PNG render never has, and whose result
// type also reports the detected error correction level; together with the
// payload length that yields an estimate of the version — the two values
// qrb's decoder needs to bootstrap a capacity Config from images whose
// encode-time settings are otherwise unknown.
//
// Every value this package produces is returned explicitly to the caller.
// Nothing is stored in package-level state: two independent decode calls
// never interfere with each other, unlike the ZXing C++ global optionals
// the original implementation bootstrapped itself from.
package qr

import (
	"fmt"
	"image"
	"image/color"

	"github.com/makiuchi-d/gozxing"
	multiqrcode "github.com/makiuchi-d/gozxing/multi/qrcode"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/qrblock/qrb/internal/qr/qrcodegen"
)

var pixelBlack = color.Gray{Y: 0}

const (
	scale  = 4 // Pixel scale factor per module.
	margin = 2 // Quiet-zone width, in modules.
)

// Config pins the QR version and error correction level shared by every
// symbol in an archive, and precomputes the geometry page layout needs to
// tile symbols without re-deriving it per call.
type Config struct {
	Version qrcodegen.Version
	ECC     qrcodegen.ECC

	// Cap is the maximum payload, in bytes, a single symbol at this
	// version/ECC can carry.
	Cap int
	// Px is the side length, in pixels, of one rendered symbol including
	// its quiet zone.
	Px int
	// Sp is the pixel gutter to leave between adjacent symbols on a page.
	Sp int
	// Ratio is the ratio between the grid pitch (symbol plus gutter) and a
	// symbol's bare (no quiet zone) footprint, used by internal/page as the
	// expected grid pitch relative to a detected symbol's size.
	Ratio float64
}

// NewConfig validates version and ecc and derives the geometry fields.
func NewConfig(version qrcodegen.Version, ecc qrcodegen.ECC) (*Config, error) {
	if version < qrcodegen.MinVersion || version > qrcodegen.MaxVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersionOutOfRange, version)
	}
	if ecc < qrcodegen.Low || ecc > qrcodegen.High {
		return nil, fmt.Errorf("%w: %d", ErrECCOutOfRange, ecc)
	}

	px := (4*int(version) + 17 + 2*margin) * scale
	sp := (4*int(version)+17)/8*scale - margin*scale
	ratio := float64(px+sp) / float64(px-2*margin*scale)

	return &Config{
		Version: version,
		ECC:     ecc,
		Cap:     qrcodegen.DataCapacityBytes(version, ecc),
		Px:      px,
		Sp:      sp,
		Ratio:   ratio,
	}, nil
}

// Encode renders data (which must fit within cfg.Cap bytes) as a single
// Byte-mode QR symbol.
func Encode(data []byte, cfg *Config) (image.Image, error) {
	if len(data) > cfg.Cap {
		return nil, fmt.Errorf("qr: payload of %d bytes exceeds capacity %d", len(data), cfg.Cap)
	}

	code, err := qrcodegen.EncodeSegments(
		[]*qrcodegen.QRSegment{qrcodegen.MakeBytes(data)},
		cfg.ECC,
		qrcodegen.WithBoostECL(false),
		qrcodegen.WithMinVersion(cfg.Version),
		qrcodegen.WithMaxVersion(cfg.Version),
		qrcodegen.WithAutoMask(),
	)
	if err != nil {
		return nil, fmt.Errorf("qr: encode: %w", err)
	}

	return render(code, cfg), nil
}

func render(code *qrcodegen.QRCode, cfg *Config) image.Image {
	img := image.NewGray(image.Rect(0, 0, cfg.Px, cfg.Px))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}

	marginPx := margin * scale
	for y := 0; y < code.Size; y++ {
		for x := 0; x < code.Size; x++ {
			if code.Modules[y][x] == 0 {
				continue
			}
			baseX, baseY := marginPx+x*scale, marginPx+y*scale
			for dy := 0; dy < scale; dy++ {
				for dx := 0; dx < scale; dx++ {
					img.SetGray(baseX+dx, baseY+dy, pixelBlack)
				}
			}
		}
	}
	return img
}

// Block is one decoded QR symbol: its payload bytes and its bounding box
// within the page image it was found in.
type Block struct {
	Data []byte
	Box  image.Rectangle

	// DetectedVersion and DetectedECC report the version/ECC level ZXing
	// inferred from the symbol itself, letting a caller bootstrap its own
	// Config when the encode-time settings are not already known (see
	// spec.md §9 on avoiding ZXing's process-wide mutable last-decoded
	// slots: these are returned per call instead of cached globally).
	DetectedVersion int
	DetectedECC     int
}

// Decoder wraps the single- and multi-symbol gozxing readers.
type Decoder struct {
	single gozxing.Reader
	multi  *multiqrcode.QRCodeMultiReader
}

// NewDecoder returns a ready-to-use Decoder.
func NewDecoder() *Decoder {
	return &Decoder{
		single: qrcode.NewQRCodeReader(),
		multi:  multiqrcode.NewQRCodeMultiReader(),
	}
}

// Decode locates QR symbols in img. When single is true, it looks for
// exactly one symbol (used for the per-cell ROI passes); otherwise it scans
// the whole image for every symbol present (used for the initial whole-page
// pass). A page image with no locatable symbols is not an error: callers
// distinguish "found nothing yet" from a hard failure by checking len(blocks).
func (d *Decoder) Decode(img image.Image, single bool) ([]Block, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("qr: binarize image: %w", err)
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}

	if single {
		result, err := d.single.Decode(bmp, hints)
		if err != nil {
			return nil, nil
		}
		return []Block{blockFromResult(result)}, nil
	}

	results, err := d.multi.DecodeMultiple(bmp, hints)
	if err != nil {
		return nil, nil
	}

	blocks := make([]Block, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, blockFromResult(r))
	}
	return blocks, nil
}

func blockFromResult(r *gozxing.Result) Block {
	data := r.GetRawBytes()
	block := Block{
		Data: data,
		Box:  boundingBox(r.GetResultPoints()),
	}

	meta := r.GetResultMetadata()
	if v, ok := meta[gozxing.ResultMetadataType_ERROR_CORRECTION_LEVEL]; ok {
		if s, ok := v.(fmt.Stringer); ok {
			block.DetectedECC = eccFromLabel(s.String())
		}
	}
	block.DetectedVersion = detectVersion(len(data), qrcodegen.ECC(block.DetectedECC))

	return block
}

// detectVersion estimates the QR version a payload of dataLen bytes was
// encoded at, for the given error correction level. gozxing's result
// metadata does not report the symbol's version directly, so this picks
// the smallest version whose Byte-mode capacity at ecc can hold dataLen
// bytes. Encode renders every symbol at cfg.Version, so a payload that fills
// that version's capacity maps back to it; a shorter payload can map to a
// smaller version.
func detectVersion(dataLen int, ecc qrcodegen.ECC) int {
	for v := qrcodegen.MinVersion; v <= qrcodegen.MaxVersion; v++ {
		if qrcodegen.DataCapacityBytes(v, ecc) >= dataLen {
			return int(v)
		}
	}
	return int(qrcodegen.MaxVersion)
}

func eccFromLabel(label string) int {
	switch label {
	case "L":
		return int(qrcodegen.Low)
	case "M":
		return int(qrcodegen.Medium)
	case "Q":
		return int(qrcodegen.Quartile)
	case "H":
		return int(qrcodegen.High)
	default:
		return -1
	}
}

func boundingBox(points []gozxing.ResultPoint) image.Rectangle {
	if len(points) == 0 {
		return image.Rectangle{}
	}

	minX, minY := points[0].GetX(), points[0].GetY()
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		x, y := p.GetX(), p.GetY()
		if x < minX {
			minX = x
		}
		if y < minY {
			minY = y
		}
		if x > maxX {
			maxX = x
		}
		if y > maxY {
			maxY = y
		}
	}
	return image.Rect(int(minX), int(minY), int(maxX)+1, int(maxY)+1)
}
