package debugartifact

import (
	"image/color"
	"log/slog"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/highlightlab/clipline/internal/anchors"
	"github.com/highlightlab/clipline/internal/features"
	"github.com/highlightlab/clipline/internal/pipelineerr"
	"github.com/highlightlab/clipline/internal/windows"
)

func xy(times, values []float64) plotter.XYs {
	pts := make(plotter.XYs, len(times))
	for i := range times {
		pts[i].X = times[i]
		pts[i].Y = values[i]
	}
	return pts
}

func verticalLine(x float64, c color.Color) *plotter.Line {
	line, _ := plotter.NewLine(plotter.XYs{{X: x, Y: -1e9}, {X: x, Y: 1e9}})
	line.Color = c
	line.Width = vg.Points(0.5)
	return line
}

// WriteDebugPlot renders the four-panel timeline (audio z-score, motion
// z-score, excitement with anchor markers, final clip spans) to a single
// stacked PNG. A rendering or write failure is returned as an error —
// callers treat it the same as WriteDebugJSON's error: log it, skip the
// artifact, keep the run.
func WriteDebugPlot(outputPath string, f *features.ExtractedFeatures, anchorList []anchors.Anchor, finalClips []windows.ClipWindow) error {
	log := slog.Default()

	audioPanel := plot.New()
	audioPanel.Title.Text = "Feature Timeline"
	audioPanel.Y.Label.Text = "Audio (z-score)"
	audioLine, err := plotter.NewLine(xy(f.Times, f.AudioRMSZ))
	if err != nil {
		return pipelineerr.DebugWriteErr("debugartifact.write_plot", err)
	}
	audioLine.Color = color.RGBA{B: 200, A: 255}
	audioPanel.Add(audioLine)

	motionPanel := plot.New()
	motionPanel.Y.Label.Text = "Motion (z-score)"
	motionLine, err := plotter.NewLine(xy(f.Times, f.MotionScoreZ))
	if err != nil {
		return pipelineerr.DebugWriteErr("debugartifact.write_plot", err)
	}
	motionLine.Color = color.RGBA{G: 150, A: 255}
	motionPanel.Add(motionLine)

	excitementPanel := plot.New()
	excitementPanel.Y.Label.Text = "Excitement"
	excitementLine, err := plotter.NewLine(xy(f.Times, f.Excitement))
	if err != nil {
		return pipelineerr.DebugWriteErr("debugartifact.write_plot", err)
	}
	excitementLine.Color = color.RGBA{R: 200, A: 255}
	excitementPanel.Add(excitementLine)
	for _, a := range anchorList {
		excitementPanel.Add(verticalLine(a.TimeSec, color.RGBA{R: 150, B: 150, A: 100}))
	}

	clipsPanel := plot.New()
	clipsPanel.Y.Label.Text = "Clips"
	clipsPanel.X.Label.Text = "Time (seconds)"
	clipsPanel.Y.Min, clipsPanel.Y.Max = 0, 1
	for _, clip := range finalClips {
		box, err := plotter.NewPolygon(plotter.XYs{
			{X: clip.StartSec, Y: 0.1}, {X: clip.EndSec, Y: 0.1},
			{X: clip.EndSec, Y: 0.9}, {X: clip.StartSec, Y: 0.9},
		})
		if err != nil {
			continue
		}
		box.Color = color.RGBA{B: 200, A: 80}
		clipsPanel.Add(box)
		clipsPanel.Add(verticalLine(clip.AnchorTimeSec, color.RGBA{R: 200, A: 120}))
	}

	rows := [][]*plot.Plot{{audioPanel}, {motionPanel}, {excitementPanel}, {clipsPanel}}

	const width, height = 16 * vg.Inch, 10 * vg.Inch
	img := vgimg.New(width, height)
	dc := draw.New(img)

	tiles := draw.Tiles{Rows: len(rows), Cols: 1}
	canvases := plot.Align(rows, tiles, dc)
	for r, row := range rows {
		for c, p := range row {
			p.Draw(canvases[r][c])
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return pipelineerr.DebugWriteErr("debugartifact.write_plot", err)
	}
	out, err := os.Create(outputPath)
	if err != nil {
		return pipelineerr.DebugWriteErr("debugartifact.write_plot", err)
	}
	defer out.Close()

	pngCanvas := vgimg.PngCanvas{Canvas: img}
	if _, err := pngCanvas.WriteTo(out); err != nil {
		return pipelineerr.DebugWriteErr("debugartifact.write_plot", err)
	}

	log.Info("wrote debug plot", "path", outputPath)
	return nil
}
