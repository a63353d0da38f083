/*
DESCRIPTION
  lightness.go provides computation of the perceived lightness of an image
  from its raw pixel data.

AUTHORS
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package luma computes the perceived lightness of captured frames. The GPU
// pipeline reduces a full frame to a small mip level and the lightness of the
// remaining pixels is computed on the CPU; ambient light sources that capture
// camera frames use the CPU path directly on the full frame.
package luma

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Channel weights approximating ITU-R luminance perception, applied to the
// squared channel means.
const (
	weightR = 0.241
	weightG = 0.691
	weightB = 0.068
)

// PerceivedLightness returns the perceived lightness of the given pixel data
// as a percentage in [0,100]. The data is interpreted as tightly packed
// 3-byte RGB or 4-byte RGBA samples depending on hasAlpha, of which the first
// pixels samples are considered.
func PerceivedLightness(data []byte, hasAlpha bool, pixels int) uint8 {
	channels := 3
	if hasAlpha {
		channels = 4
	}
	if pixels > len(data)/channels {
		pixels = len(data) / channels
	}
	if pixels == 0 {
		return 0
	}

	rs := make([]float64, pixels)
	gs := make([]float64, pixels)
	bs := make([]float64, pixels)
	for i := 0; i < pixels; i++ {
		rs[i] = float64(data[i*channels])
		gs[i] = float64(data[i*channels+1])
		bs[i] = float64(data[i*channels+2])
	}

	r := stat.Mean(rs, nil)
	g := stat.Mean(gs, nil)
	b := stat.Mean(bs, nil)

	l := math.Sqrt(weightR*r*r+weightG*g*g+weightB*b*b) / 255.0 * 100.0
	return uint8(math.Round(l))
}
