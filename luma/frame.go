/*
DESCRIPTION
  frame.go provides the Frame type describing a compositor-exported surface,
  and the mapping from DRM pixel format tags to Vulkan formats.

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
	"errors"

	vk "github.com/goki/vulkan"
)

// Frame processing errors. ErrUnsupportedFormat and ErrUnsupportedFrameLayout
// indicate frames the pipeline cannot interpret and are terminal for the
// capture task that produced them; ErrUnavailable indicates a pipeline setup
// or import failure for which the caller decides the retry policy.
var (
	ErrUnsupportedFormat      = errors.New("unsupported DRM pixel format")
	ErrUnsupportedFrameLayout = errors.New("multi-plane frames are not supported")
	ErrUnavailable            = errors.New("luma value unavailable")
)

// DRM fourcc format tags for the frame formats the pipeline accepts.
var (
	FormatXRGB8888    = fourcc('X', 'R', '2', '4')
	FormatXRGB2101010 = fourcc('X', 'R', '3', '0')
)

// Frame describes a single surface exported by the compositor for one output.
// The pixel data is referenced by dma-buf file descriptors; a Frame does not
// own any GPU-side representation of the data. Frames are built up by the
// capture layer as the compositor delivers metadata and plane descriptors.
type Frame struct {
	Width  uint32
	Height uint32
	Format uint32 // DRM fourcc tag.
	FDs    []int
	Sizes  []uint32
}

// SetMetadata records the frame geometry and format and resizes the plane
// slices for the given plane count.
func (f *Frame) SetMetadata(width, height, planes, format uint32) {
	f.Width = width
	f.Height = height
	f.Format = format
	f.FDs = make([]int, planes)
	f.Sizes = make([]uint32, planes)
}

// SetPlane records the file descriptor and byte size of one plane.
func (f *Frame) SetPlane(index uint32, fd int, size uint32) {
	f.FDs[index] = fd
	f.Sizes[index] = size
}

// vkFormat maps the frame's DRM format tag to the Vulkan format used when
// importing it. Only single-plane XRGB layouts are mapped; anything else is
// reported as unsupported.
func (f *Frame) vkFormat() (vk.Format, error) {
	switch f.Format {
	case FormatXRGB8888:
		return vk.FormatB8g8r8a8Unorm, nil
	case FormatXRGB2101010:
		return vk.FormatA2r10g10b10UnormPack32, nil
	default:
		return vk.FormatUndefined, ErrUnsupportedFormat
	}
}

func fourcc(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}
