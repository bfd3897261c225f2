package summary

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/fogleman/gg"
)

// Chart layout, rendered at 2x scale for Telegram clarity.
const (
	chartWidth    = 1400
	chartHeight   = 900
	marginLeft    = 120.0
	marginRight   = 60.0
	titlePadding  = 120.0
	labelPadding  = 190.0
	barGap        = 28.0
	titleFontSz   = 40
	labelFontSz   = 20
	valueFontSz   = 26
	footerFontSz  = 24
	gridLineCount = 5
)

var (
	bgColor     = color.RGBA{R: 245, G: 247, B: 250, A: 255}
	titleColor  = color.RGBA{R: 30, G: 41, B: 59, A: 255}
	gridColor   = color.RGBA{R: 203, G: 213, B: 225, A: 255}
	textColor   = color.RGBA{R: 30, G: 41, B: 59, A: 255}
	footerColor = color.RGBA{R: 100, G: 116, B: 139, A: 255}

	// One color per status, in workflow order.
	barColors = []color.RGBA{
		{R: 234, G: 179, B: 8, A: 255},
		{R: 249, G: 115, B: 22, A: 255},
		{R: 168, G: 85, B: 247, A: 255},
		{R: 37, G: 99, B: 235, A: 255},
		{R: 20, G: 184, B: 166, A: 255},
		{R: 34, G: 197, B: 94, A: 255},
		{R: 100, G: 116, B: 139, A: 255},
	}
)

// findFont locates a font file across Linux and Windows paths; "" when none
// exists.
func findFont(bold bool) string {
	var candidates []string
	if runtime.GOOS == "windows" {
		winRoot := os.Getenv("WINDIR")
		if winRoot == "" {
			winRoot = `C:\Windows`
		}
		if bold {
			candidates = []string{winRoot + `\Fonts\arialbd.ttf`}
		} else {
			candidates = []string{winRoot + `\Fonts\arial.ttf`}
		}
	} else if bold {
		candidates = []string{
			"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
			"/usr/share/fonts/TTF/DejaVuSans-Bold.ttf",
		}
	} else {
		candidates = []string{
			"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
			"/usr/share/fonts/TTF/DejaVuSans.ttf",
		}
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// useFont switches dc to the given font; without a font file gg keeps its
// built-in bitmap face.
func useFont(dc *gg.Context, path string, size float64) {
	if path == "" {
		return
	}
	if err := dc.LoadFontFace(path, size); err != nil {
		log.Printf("  ⚠️  Failed to load font %s: %v", path, err)
	}
}

// RenderChart draws counts as a vertical bar chart and returns PNG bytes.
func RenderChart(counts Counts, title string) ([]byte, error) {
	if len(counts) == 0 {
		return nil, fmt.Errorf("no statuses to render")
	}

	boldFont := findFont(true)
	regularFont := findFont(false)

	dc := gg.NewContext(chartWidth, chartHeight)
	dc.SetColor(bgColor)
	dc.Clear()

	// Title
	useFont(dc, boldFont, titleFontSz)
	dc.SetColor(titleColor)
	dc.DrawStringAnchored(
		fmt.Sprintf("%s  —  %s", title, time.Now().Format("02 Jan 2006, 15:04")),
		chartWidth/2, titlePadding/2, 0.5, 0.5,
	)

	plotTop := titlePadding
	plotBottom := float64(chartHeight) - labelPadding
	plotHeight := plotBottom - plotTop
	plotWidth := float64(chartWidth) - marginLeft - marginRight

	maxCount := counts.max()
	if maxCount == 0 {
		maxCount = 1
	}

	// Horizontal grid with scale labels
	useFont(dc, regularFont, labelFontSz)
	dc.SetLineWidth(1)
	for i := 0; i <= gridLineCount; i++ {
		y := plotBottom - plotHeight*float64(i)/gridLineCount
		dc.SetColor(gridColor)
		dc.DrawLine(marginLeft, y, marginLeft+plotWidth, y)
		dc.Stroke()

		value := float64(maxCount) * float64(i) / gridLineCount
		dc.SetColor(footerColor)
		dc.DrawStringAnchored(fmt.Sprintf("%.0f", value), marginLeft-16, y, 1, 0.5)
	}

	// Bars
	slot := plotWidth / float64(len(counts))
	barWidth := slot - barGap
	for i, sc := range counts {
		x := marginLeft + slot*float64(i) + barGap/2
		h := plotHeight * float64(sc.Count) / float64(maxCount)

		dc.SetColor(barColors[i%len(barColors)])
		dc.DrawRoundedRectangle(x, plotBottom-h, barWidth, h, 8)
		dc.Fill()

		useFont(dc, boldFont, valueFontSz)
		dc.SetColor(textColor)
		dc.DrawStringAnchored(fmt.Sprint(sc.Count), x+barWidth/2, plotBottom-h-18, 0.5, 0.5)

		useFont(dc, regularFont, labelFontSz)
		dc.DrawStringWrapped(string(sc.Status), x+barWidth/2, plotBottom+20, 0.5, 0, barWidth, 1.3, gg.AlignCenter)
	}

	// Footer
	useFont(dc, regularFont, footerFontSz)
	dc.SetColor(footerColor)
	dc.DrawStringAnchored(
		fmt.Sprintf("Total: %d laporan", counts.Total()),
		chartWidth/2, float64(chartHeight)-36, 0.5, 0.5,
	)

	return encodeImage(dc.Image())
}

// WriteFile renders counts and writes the PNG to path.
func WriteFile(path string, counts Counts, title string) ([]byte, error) {
	data, err := RenderChart(counts, title)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write summary chart: %w", err)
	}
	return data, nil
}

func encodeImage(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}
