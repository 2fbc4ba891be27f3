package slicer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penplot/penplot/layout"
	"github.com/penplot/penplot/svgcolor"
	"github.com/penplot/penplot/svgpath"
)

var a4 = layout.PaperConfig{Width: 210, Height: 297, MarginTop: 10, MarginRight: 10, MarginBottom: 10, MarginLeft: 10}

func fixedNow() time.Time { return time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC) }

func TestGenerateRect(t *testing.T) {
	const svg = `<svg viewBox="0 0 100 100"><rect x="10" y="10" width="20" height="20" stroke="#0000ff"/></svg>`
	res, err := Generate(context.Background(), strings.NewReader(svg), Config{Paper: a4, Now: fixedNow})
	require.NoError(t, err)

	assert.Equal(t, []svgcolor.Name{svgcolor.Blue}, res.Colors)
	require.Len(t, res.Outputs, 1)
	out := res.Outputs[svgcolor.Blue]
	require.NotNil(t, out)

	lines := out.Program.Lines
	assert.Contains(t, lines, "M0 blue pen and click")
	assert.Contains(t, lines, "; 2024-03-01 10:30:00")
	// (10,10) -> (-95+19, 95-19)
	assert.Contains(t, lines, "G0 X-76.000 Y76.000 F3000")
	assert.Contains(t, lines, "G1 X-38.000 Y76.000 F3000")
	assert.Equal(t, ";End of Gcode", lines[len(lines)-1])

	var draws int
	for _, l := range lines {
		if strings.HasPrefix(l, "G1") {
			draws++
		}
	}
	assert.Equal(t, 4, draws)
	assert.Equal(t, 1, out.Estimate.UserPauses)
	assert.Equal(t, 2, out.Estimate.PenOperations)
	assert.InDelta(t, 4*38, out.Estimate.DrawDistance, 1e-6)
	assert.Empty(t, res.Warnings)
}

func TestGenerateSplitsColors(t *testing.T) {
	const svg = `<svg viewBox="0 0 100 100">
		<line x2="10" stroke="red"/>
		<line y2="10" stroke="black"/>
		<line x1="5" x2="10" stroke="red"/>
	</svg>`
	res, err := Generate(context.Background(), strings.NewReader(svg), Config{Paper: a4, Now: fixedNow, Optimize: true, JoinRadius: 0.5})
	require.NoError(t, err)
	assert.Equal(t, []svgcolor.Name{svgcolor.Red, svgcolor.Black}, res.Colors)
	require.Len(t, res.Outputs, 2)
	assert.Contains(t, res.Outputs[svgcolor.Black].Program.Lines, "M0 black pen and click")

	var downs int
	for _, l := range res.Outputs[svgcolor.Red].Program.Lines {
		if strings.HasPrefix(l, "M280 P0 S25") {
			downs++
		}
	}
	assert.Equal(t, 2, downs)
}

func TestGenerateErrors(t *testing.T) {
	_, err := Generate(context.Background(), strings.NewReader(`<svg/>`), Config{})
	assert.Error(t, err, "missing paper")

	_, err = Generate(context.Background(), strings.NewReader(`<html/>`), Config{Paper: a4})
	assert.Error(t, err)

	_, err = Generate(context.Background(), strings.NewReader(`<svg/>`), Config{Paper: a4, Machine: layout.MachineConfig{BedWidth: -1, BedHeight: 1}})
	assert.Error(t, err)
}

func TestGenerateWarnings(t *testing.T) {
	const svg = `<svg viewBox="0 0 10 10"><text>hi</text><line x2="10"/></svg>`
	// a bed smaller than the paper
	res, err := Generate(context.Background(), strings.NewReader(svg), Config{
		Paper:   a4,
		Machine: layout.MachineConfig{BedWidth: 10, BedHeight: 10},
		Now:     fixedNow,
	})
	require.NoError(t, err)
	require.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[0], "<text>")
	assert.True(t, strings.HasPrefix(res.Warnings[1], "black: "))
}

func TestEmitSharesTimestamp(t *testing.T) {
	byColor := map[svgcolor.Name][]svgpath.Path{
		svgcolor.Red:  {svgpath.Line(svgpath.Point{}, svgpath.Point{X: 60})},
		svgcolor.Blue: {svgpath.Line(svgpath.Point{}, svgpath.Point{Y: 60})},
		svgcolor.Pink: nil,
	}
	outs, err := Emit(context.Background(), byColor, Config{Now: fixedNow, TravelSpeed: 3000})
	require.NoError(t, err)
	require.Len(t, outs, 3)
	for color, out := range outs {
		assert.Equal(t, color, out.Program.Color)
		assert.Contains(t, out.Program.Lines, "; 2024-03-01 10:30:00")
	}
	assert.InDelta(t, 1.2625, outs[svgcolor.Red].Estimate.DrawTime, 1e-9)
	assert.Equal(t, 0, outs[svgcolor.Pink].Estimate.PenOperations)
}

func TestEmitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Emit(ctx, map[svgcolor.Name][]svgpath.Path{svgcolor.Red: nil}, Config{})
	assert.Error(t, err)
}
