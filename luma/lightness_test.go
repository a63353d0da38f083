/*
DESCRIPTION
  lightness_test.go tests the perceived lightness computation and the mip
  chain arithmetic.

AUTHORS
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package luma

import (
	"bytes"
	"testing"
)

func TestPerceivedLightness(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		hasAlpha bool
		pixels   int
		want     uint8
	}{
		{
			name:     "black",
			data:     []byte{0, 0, 0, 255, 0, 0, 0, 255},
			hasAlpha: true,
			pixels:   2,
			want:     0,
		},
		{
			name:     "white",
			data:     []byte{255, 255, 255, 255},
			hasAlpha: true,
			pixels:   1,
			want:     100,
		},
		{
			name:     "white no alpha",
			data:     []byte{255, 255, 255},
			hasAlpha: false,
			pixels:   1,
			want:     100,
		},
		{
			name:     "mid grey",
			data:     bytes.Repeat([]byte{128, 128, 128, 255}, 4),
			hasAlpha: true,
			pixels:   4,
			want:     50,
		},
		{
			name:     "pure green",
			data:     []byte{0, 255, 0},
			hasAlpha: false,
			pixels:   1,
			want:     83,
		},
		{
			name:     "no pixels",
			data:     nil,
			hasAlpha: true,
			pixels:   0,
			want:     0,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := PerceivedLightness(test.data, test.hasAlpha, test.pixels)
			if got != test.want {
				t.Errorf("got %d, want %d", got, test.want)
			}
		})
	}
}

func TestPerceivedLightnessShortData(t *testing.T) {
	// Declared pixel count beyond the available data must not panic; the
	// computation considers only the pixels actually present.
	got := PerceivedLightness([]byte{255, 255, 255, 255}, true, 10)
	if got != 100 {
		t.Errorf("got %d, want 100", got)
	}
}

func TestMipDimensions(t *testing.T) {
	tests := []struct {
		w, h           uint32
		levels, target uint32
	}{
		{3840, 2160, 12, 8},
		{1920, 1080, 11, 7},
		{16, 16, 4, 0},
		{2, 2, 1, 0},
		{1, 1, 1, 0},
	}

	for _, test := range tests {
		levels, target := mipDimensions(test.w, test.h)
		if levels != test.levels || target != test.target {
			t.Errorf("mipDimensions(%d,%d) = (%d,%d), want (%d,%d)", test.w, test.h, levels, target, test.levels, test.target)
		}
		if target >= levels {
			t.Errorf("mipDimensions(%d,%d): target level %d out of range for %d levels", test.w, test.h, target, levels)
		}
	}
}

func TestMipExtent(t *testing.T) {
	if got := mipExtent(3840, 8); got != 15 {
		t.Errorf("got %d, want 15", got)
	}
	if got := mipExtent(1, 5); got != 1 {
		t.Errorf("got %d, want 1", got)
	}
}

func TestFrameVkFormat(t *testing.T) {
	f := &Frame{Format: FormatXRGB8888}
	if _, err := f.vkFormat(); err != nil {
		t.Errorf("XR24 should be supported: %v", err)
	}
	f.Format = fourcc('N', 'V', '1', '2')
	if _, err := f.vkFormat(); err != ErrUnsupportedFormat {
		t.Errorf("NV12 should be unsupported, got %v", err)
	}
}
