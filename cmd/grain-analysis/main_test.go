package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) string { return "" }

func writeFixture(t *testing.T, path string, rects ...image.Rectangle) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 300, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 300; x++ {
			img.Set(x, y, color.Black)
		}
	}
	for _, r := range rects {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				img.Set(x, y, color.White)
			}
		}
	}

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestRunInvalidConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-known-area", "-1", "-display", "none"}, noEnv, &stdout, &stderr)

	assert.Equal(t, exitInvalidConfig, code)
	assert.Contains(t, stderr.String(), "known area")
	assert.Empty(t, stdout.String())
}

func TestRunNaNKnownAreaIsInvalidConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-known-area", "NaN", "-display", "none"}, noEnv, &stdout, &stderr)

	assert.Equal(t, exitInvalidConfig, code)
	assert.Contains(t, stderr.String(), "known area")
}

func TestRunUnknownFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitInvalidConfig, run([]string{"-nope"}, noEnv, &stdout, &stderr))
}

func TestRunHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitOK, run([]string{"-h"}, noEnv, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "-calibration")
}

func TestRunBadLogLevelFromEnv(t *testing.T) {
	env := func(k string) string {
		if k == "LOG_LEVEL" {
			return "loud"
		}
		return ""
	}
	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitInvalidConfig, run(nil, env, &stdout, &stderr))
}

func TestRunMissingImage(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	code := run([]string{
		"-display", "none",
		"-calibration", filepath.Join(dir, "missing.jpg"),
		"-sample", filepath.Join(dir, "missing.jpg"),
	}, noEnv, &stdout, &stderr)

	assert.Equal(t, exitLoadFailed, code)
	assert.Contains(t, stderr.String(), "image load failed")
}

func TestRunWritesSurfacesToDirectory(t *testing.T) {
	dir := t.TempDir()
	cal := filepath.Join(dir, "calibration.png")
	sample := filepath.Join(dir, "grain.png")
	writeFixture(t, cal, image.Rect(100, 60, 150, 110))
	writeFixture(t, sample, image.Rect(20, 20, 50, 50), image.Rect(200, 120, 260, 180))

	outDir := filepath.Join(dir, "out")
	var stdout, stderr bytes.Buffer
	code := run([]string{
		"-calibration", cal,
		"-sample", sample,
		"-display", "dir",
		"-out-dir", outDir,
	}, noEnv, &stdout, &stderr)

	require.Equal(t, exitOK, code, stderr.String())
	assert.Contains(t, stdout.String(), "grains=2")

	for _, name := range []string{"Input", "Threshold", "Output", "Calibration"} {
		assert.FileExists(t, filepath.Join(outDir, name+".png"))
	}
}

func TestRunUncalibrated(t *testing.T) {
	dir := t.TempDir()
	cal := filepath.Join(dir, "blank.png")
	sample := filepath.Join(dir, "grain.png")
	writeFixture(t, cal)
	writeFixture(t, sample, image.Rect(20, 20, 50, 50))

	var stdout, stderr bytes.Buffer
	code := run([]string{"-calibration", cal, "-sample", sample, "-display", "none"}, noEnv, &stdout, &stderr)

	assert.Equal(t, exitAnalysis, code)
	assert.Contains(t, stdout.String(), "measurement: not run")
}
