/*
DESCRIPTION
  vulkan.go provides the GPU-assisted perceived-lightness pipeline. Frames
  exported by the compositor are imported as external memory, reduced through
  a mipmap blit chain and the remaining pixels are downloaded for the CPU
  lightness computation.

AUTHORS
  Trek Hopton <trek@ausocean.org>
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package luma

import (
	"fmt"
	"math"
	"math/bits"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"

	"github.com/ausocean/utils/logging"
)

// Used to indicate package in logging.
const pkg = "luma: "

const (
	// Mipmap generation stops this many levels short of 1x1; the bilinear
	// reduction accumulates too much colour bias in the last few levels.
	finalMipLevel = 4

	// How long to wait for the GPU to finish one reduction.
	fenceTimeoutNS = 1_000_000_000
)

const (
	appName       = "lumen\x00"
	appVersion    = 1
	vulkanVersion = vk.ApiVersion11
)

// Processor reduces a captured frame to its perceived lightness percentage.
type Processor interface {
	LumaPercent(f *Frame) (uint8, error)
}

// Vulkan implements Processor on a persistent Vulkan device. A single
// graphics queue, command buffer and fence are reused for every frame; the
// intermediate work image and the host-visible download buffer are
// re-allocated only when the frame resolution changes. A Vulkan processor is
// owned by a single capture task and is not safe for concurrent use.
type Vulkan struct {
	log            logging.Logger
	instance       vk.Instance
	physicalDevice vk.PhysicalDevice
	device         vk.Device
	queue          vk.Queue
	queueFamily    uint32
	commandPool    vk.CommandPool
	commandBuffer  vk.CommandBuffer
	fence          vk.Fence

	// Resolution-keyed resources.
	workImage   vk.Image
	workMemory  vk.DeviceMemory
	workWidth   uint32
	workHeight  uint32
	mipLevels   uint32
	targetLevel uint32

	buffer       vk.Buffer
	bufferMemory vk.DeviceMemory
	bufferSize   vk.DeviceSize
}

// NewVulkan sets up a Vulkan instance, device and the persistent objects used
// by the reduction pipeline. The first enumerated physical device is used.
func NewVulkan(l logging.Logger) (*Vulkan, error) {
	if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		return nil, errors.Wrap(err, "could not load Vulkan loader")
	}
	if err := vk.Init(); err != nil {
		return nil, errors.Wrap(err, "could not initialise Vulkan")
	}

	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   appName,
		ApplicationVersion: appVersion,
		PEngineName:        appName,
		EngineVersion:      appVersion,
		ApiVersion:         vulkanVersion,
	}

	instExts := []string{
		"VK_KHR_external_memory_capabilities\x00",
		"VK_KHR_get_physical_device_properties2\x00",
	}

	instInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(instExts)),
		PpEnabledExtensionNames: instExts,
	}

	var instance vk.Instance
	if res := vk.CreateInstance(&instInfo, nil, &instance); res != vk.Success {
		return nil, fmt.Errorf("could not create Vulkan instance: %d", res)
	}
	vk.InitInstance(instance)

	v := &Vulkan{log: l, instance: instance}

	var deviceCount uint32
	vk.EnumeratePhysicalDevices(instance, &deviceCount, nil)
	if deviceCount == 0 {
		v.Close()
		return nil, errors.New("no Vulkan physical device found")
	}
	devices := make([]vk.PhysicalDevice, deviceCount)
	vk.EnumeratePhysicalDevices(instance, &deviceCount, devices)
	v.physicalDevice = devices[0]

	family, err := graphicsQueueFamily(v.physicalDevice)
	if err != nil {
		v.Close()
		return nil, err
	}
	v.queueFamily = family

	queueInfo := vk.DeviceQueueCreateInfo{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: family,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}

	devExts := []string{
		"VK_KHR_external_memory_fd\x00",
		"VK_EXT_external_memory_dma_buf\x00",
	}

	devInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    1,
		PQueueCreateInfos:       []vk.DeviceQueueCreateInfo{queueInfo},
		EnabledExtensionCount:   uint32(len(devExts)),
		PpEnabledExtensionNames: devExts,
	}

	var device vk.Device
	if res := vk.CreateDevice(v.physicalDevice, &devInfo, nil, &device); res != vk.Success {
		v.Close()
		return nil, fmt.Errorf("could not create Vulkan device: %d", res)
	}
	v.device = device

	var queue vk.Queue
	vk.GetDeviceQueue(device, family, 0, &queue)
	v.queue = queue

	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: family,
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(device, &poolInfo, nil, &pool); res != vk.Success {
		v.Close()
		return nil, fmt.Errorf("could not create command pool: %d", res)
	}
	v.commandPool = pool

	allocInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	cmds := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(device, &allocInfo, cmds); res != vk.Success {
		v.Close()
		return nil, fmt.Errorf("could not allocate command buffer: %d", res)
	}
	v.commandBuffer = cmds[0]

	fenceInfo := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	var fence vk.Fence
	if res := vk.CreateFence(device, &fenceInfo, nil, &fence); res != vk.Success {
		v.Close()
		return nil, fmt.Errorf("could not create fence: %d", res)
	}
	v.fence = fence

	return v, nil
}

// LumaPercent imports the frame, reduces it through the mipmap chain and
// returns the perceived lightness of the final mip level as a percentage in
// [0,100]. The frame's dma-buf descriptor is consumed by the import.
func (v *Vulkan) LumaPercent(f *Frame) (uint8, error) {
	if len(f.FDs) != 1 {
		return 0, ErrUnsupportedFrameLayout
	}
	format, err := f.vkFormat()
	if err != nil {
		return 0, err
	}

	if err := v.ensureResources(f.Width, f.Height); err != nil {
		return 0, err
	}

	frameImage, frameMemory, err := v.importFrame(f, format)
	if err != nil {
		return 0, errors.Wrap(ErrUnavailable, err.Error())
	}
	defer func() {
		vk.DestroyImage(v.device, frameImage, nil)
		vk.FreeMemory(v.device, frameMemory, nil)
	}()

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if res := vk.BeginCommandBuffer(v.commandBuffer, &beginInfo); res != vk.Success {
		return 0, fmt.Errorf("could not begin command buffer: %d", res)
	}

	v.barrier(frameImage, 0, 1,
		vk.ImageLayoutUndefined, vk.ImageLayoutTransferSrcOptimal,
		0, vk.AccessFlags(vk.AccessTransferReadBit),
		vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit))

	v.barrier(v.workImage, 0, v.mipLevels,
		vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal,
		0, vk.AccessFlags(vk.AccessTransferWriteBit),
		vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit))

	v.blit(frameImage, f.Width, f.Height, 0, v.workImage, f.Width, f.Height, 0)

	w, h := f.Width, f.Height
	for i := uint32(1); i <= v.targetLevel; i++ {
		v.barrier(v.workImage, i-1, 1,
			vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutTransferSrcOptimal,
			vk.AccessFlags(vk.AccessTransferWriteBit), vk.AccessFlags(vk.AccessTransferReadBit),
			vk.PipelineStageFlags(vk.PipelineStageTransferBit))

		nw, nh := halve(w), halve(h)
		v.blit(v.workImage, w, h, i-1, v.workImage, nw, nh, i)
		w, h = nw, nh
	}

	v.barrier(v.workImage, v.targetLevel, 1,
		vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutTransferSrcOptimal,
		vk.AccessFlags(vk.AccessTransferWriteBit), vk.AccessFlags(vk.AccessTransferReadBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit))

	region := vk.BufferImageCopy{
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:   v.targetLevel,
			LayerCount: 1,
		},
		ImageExtent: vk.Extent3D{Width: w, Height: h, Depth: 1},
	}
	vk.CmdCopyImageToBuffer(v.commandBuffer, v.workImage, vk.ImageLayoutTransferSrcOptimal, v.buffer, 1, []vk.BufferImageCopy{region})

	if res := vk.EndCommandBuffer(v.commandBuffer); res != vk.Success {
		return 0, fmt.Errorf("could not end command buffer: %d", res)
	}

	submit := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{v.commandBuffer},
	}
	if res := vk.QueueSubmit(v.queue, 1, []vk.SubmitInfo{submit}, v.fence); res != vk.Success {
		return 0, errors.Wrap(ErrUnavailable, fmt.Sprintf("queue submit failed: %d", res))
	}

	res := vk.WaitForFences(v.device, 1, []vk.Fence{v.fence}, vk.True, fenceTimeoutNS)
	vk.ResetFences(v.device, 1, []vk.Fence{v.fence})
	if res != vk.Success {
		return 0, errors.Wrap(ErrUnavailable, fmt.Sprintf("fence wait failed: %d", res))
	}

	pixels := int(w) * int(h)
	size := pixels * 4
	var ptr unsafe.Pointer
	if res := vk.MapMemory(v.device, v.bufferMemory, 0, vk.DeviceSize(size), 0, &ptr); res != vk.Success {
		return 0, errors.Wrap(ErrUnavailable, fmt.Sprintf("could not map download buffer: %d", res))
	}
	data := make([]byte, size)
	copy(data, (*[1 << 30]byte)(ptr)[:size])
	vk.UnmapMemory(v.device, v.bufferMemory)

	return PerceivedLightness(data, true, pixels), nil
}

// Close releases all device objects. The pipeline must not be used afterwards.
func (v *Vulkan) Close() {
	if v.device != nil {
		vk.DeviceWaitIdle(v.device)
		v.destroyWorkResources()
		if v.fence != vk.NullFence {
			vk.DestroyFence(v.device, v.fence, nil)
		}
		if v.commandPool != vk.NullCommandPool {
			vk.DestroyCommandPool(v.device, v.commandPool, nil)
		}
		vk.DestroyDevice(v.device, nil)
	}
	if v.instance != nil {
		vk.DestroyInstance(v.instance, nil)
	}
}

// ensureResources allocates, or re-allocates after a resolution change, the
// work image and the download buffer for frames of the given size.
func (v *Vulkan) ensureResources(width, height uint32) error {
	if v.workImage != vk.NullImage && v.workWidth == width && v.workHeight == height {
		return nil
	}
	v.destroyWorkResources()

	mipLevels, targetLevel := mipDimensions(width, height)

	imageInfo := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        vk.FormatB8g8r8a8Unorm,
		Extent:        vk.Extent3D{Width: width, Height: height, Depth: 1},
		MipLevels:     mipLevels,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(vk.ImageUsageTransferDstBit | vk.ImageUsageTransferSrcBit),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	var image vk.Image
	if res := vk.CreateImage(v.device, &imageInfo, nil, &image); res != vk.Success {
		return fmt.Errorf("could not create work image: %d", res)
	}

	var memReqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(v.device, image, &memReqs)
	memReqs.Deref()

	memType, err := v.findMemoryType(memReqs.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		vk.DestroyImage(v.device, image, nil)
		return err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memType,
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(v.device, &allocInfo, nil, &memory); res != vk.Success {
		vk.DestroyImage(v.device, image, nil)
		return fmt.Errorf("could not allocate work image memory: %d", res)
	}
	vk.BindImageMemory(v.device, image, memory, 0)

	dw := mipExtent(width, targetLevel)
	dh := mipExtent(height, targetLevel)
	bufSize := vk.DeviceSize(4 * dw * dh)

	bufInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        bufSize,
		Usage:       vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		SharingMode: vk.SharingModeExclusive,
	}
	var buffer vk.Buffer
	if res := vk.CreateBuffer(v.device, &bufInfo, nil, &buffer); res != vk.Success {
		vk.DestroyImage(v.device, image, nil)
		vk.FreeMemory(v.device, memory, nil)
		return fmt.Errorf("could not create download buffer: %d", res)
	}

	var bufReqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(v.device, buffer, &bufReqs)
	bufReqs.Deref()

	bufType, err := v.findMemoryType(bufReqs.MemoryTypeBits,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		vk.DestroyBuffer(v.device, buffer, nil)
		vk.DestroyImage(v.device, image, nil)
		vk.FreeMemory(v.device, memory, nil)
		return err
	}

	bufAllocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  bufReqs.Size,
		MemoryTypeIndex: bufType,
	}
	var bufMemory vk.DeviceMemory
	if res := vk.AllocateMemory(v.device, &bufAllocInfo, nil, &bufMemory); res != vk.Success {
		vk.DestroyBuffer(v.device, buffer, nil)
		vk.DestroyImage(v.device, image, nil)
		vk.FreeMemory(v.device, memory, nil)
		return fmt.Errorf("could not allocate download buffer memory: %d", res)
	}
	vk.BindBufferMemory(v.device, buffer, bufMemory, 0)

	v.workImage = image
	v.workMemory = memory
	v.workWidth = width
	v.workHeight = height
	v.mipLevels = mipLevels
	v.targetLevel = targetLevel
	v.buffer = buffer
	v.bufferMemory = bufMemory
	v.bufferSize = bufSize

	v.log.Debug(pkg+"allocated work resources", "width", width, "height", height, "mipLevels", mipLevels, "targetLevel", targetLevel)
	return nil
}

func (v *Vulkan) destroyWorkResources() {
	if v.buffer != vk.NullBuffer {
		vk.DestroyBuffer(v.device, v.buffer, nil)
		v.buffer = vk.NullBuffer
	}
	if v.bufferMemory != vk.NullDeviceMemory {
		vk.FreeMemory(v.device, v.bufferMemory, nil)
		v.bufferMemory = vk.NullDeviceMemory
	}
	if v.workImage != vk.NullImage {
		vk.DestroyImage(v.device, v.workImage, nil)
		v.workImage = vk.NullImage
	}
	if v.workMemory != vk.NullDeviceMemory {
		vk.FreeMemory(v.device, v.workMemory, nil)
		v.workMemory = vk.NullDeviceMemory
	}
}

// importFrame creates an image backed by the frame's dma-buf memory. The
// import must treat the memory as immutable; the image is only ever used as a
// blit source.
func (v *Vulkan) importFrame(f *Frame, format vk.Format) (vk.Image, vk.DeviceMemory, error) {
	extInfo := vk.ExternalMemoryImageCreateInfo{
		SType:       vk.StructureTypeExternalMemoryImageCreateInfo,
		HandleTypes: vk.ExternalMemoryHandleTypeFlags(vk.ExternalMemoryHandleTypeDmaBufBitExt),
	}

	imageInfo := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		PNext:         unsafe.Pointer(extInfo.Ref()),
		ImageType:     vk.ImageType2d,
		Format:        format,
		Extent:        vk.Extent3D{Width: f.Width, Height: f.Height, Depth: 1},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	var image vk.Image
	if res := vk.CreateImage(v.device, &imageInfo, nil, &image); res != vk.Success {
		return vk.NullImage, vk.NullDeviceMemory, fmt.Errorf("could not create frame image: %d", res)
	}

	dedReqs := vk.MemoryDedicatedRequirements{SType: vk.StructureTypeMemoryDedicatedRequirements}
	memReqs := vk.MemoryRequirements2{
		SType: vk.StructureTypeMemoryRequirements2,
		PNext: unsafe.Pointer(dedReqs.Ref()),
	}
	reqInfo := vk.ImageMemoryRequirementsInfo2{
		SType: vk.StructureTypeImageMemoryRequirementsInfo2,
		Image: image,
	}
	vk.GetImageMemoryRequirements2(v.device, &reqInfo, &memReqs)
	memReqs.Deref()
	memReqs.MemoryRequirements.Deref()
	dedReqs.Deref()

	importInfo := vk.ImportMemoryFdInfo{
		SType:      vk.StructureTypeImportMemoryFdInfo,
		HandleType: vk.ExternalMemoryHandleTypeDmaBufBitExt,
		Fd:         int32(f.FDs[0]),
	}

	if dedReqs.PrefersDedicatedAllocation == vk.True {
		dedAlloc := vk.MemoryDedicatedAllocateInfo{
			SType: vk.StructureTypeMemoryDedicatedAllocateInfo,
			Image: image,
		}
		importInfo.PNext = unsafe.Pointer(dedAlloc.Ref())
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		PNext:           unsafe.Pointer(importInfo.Ref()),
		AllocationSize:  memReqs.MemoryRequirements.Size,
		MemoryTypeIndex: uint32(bits.TrailingZeros32(memReqs.MemoryRequirements.MemoryTypeBits)),
	}

	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(v.device, &allocInfo, nil, &memory); res != vk.Success {
		vk.DestroyImage(v.device, image, nil)
		return vk.NullImage, vk.NullDeviceMemory, fmt.Errorf("could not import frame memory: %d", res)
	}
	if res := vk.BindImageMemory(v.device, image, memory, 0); res != vk.Success {
		vk.FreeMemory(v.device, memory, nil)
		vk.DestroyImage(v.device, image, nil)
		return vk.NullImage, vk.NullDeviceMemory, fmt.Errorf("could not bind frame memory: %d", res)
	}

	return image, memory, nil
}

func (v *Vulkan) barrier(image vk.Image, baseMip, mipCount uint32, oldLayout, newLayout vk.ImageLayout, srcAccess, dstAccess vk.AccessFlags, srcStage vk.PipelineStageFlags) {
	b := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       srcAccess,
		DstAccessMask:       dstAccess,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:   vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel: baseMip,
			LevelCount:   mipCount,
			LayerCount:   1,
		},
	}
	vk.CmdPipelineBarrier(v.commandBuffer, srcStage, vk.PipelineStageFlags(vk.PipelineStageTransferBit), 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{b})
}

func (v *Vulkan) blit(src vk.Image, srcW, srcH, srcMip uint32, dst vk.Image, dstW, dstH, dstMip uint32) {
	blit := vk.ImageBlit{
		SrcSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:   srcMip,
			LayerCount: 1,
		},
		SrcOffsets: [2]vk.Offset3D{{}, {X: int32(srcW), Y: int32(srcH), Z: 1}},
		DstSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:   dstMip,
			LayerCount: 1,
		},
		DstOffsets: [2]vk.Offset3D{{}, {X: int32(dstW), Y: int32(dstH), Z: 1}},
	}
	vk.CmdBlitImage(v.commandBuffer, src, vk.ImageLayoutTransferSrcOptimal, dst, vk.ImageLayoutTransferDstOptimal, 1, []vk.ImageBlit{blit}, vk.FilterLinear)
}

func (v *Vulkan) findMemoryType(typeBits uint32, properties vk.MemoryPropertyFlags) (uint32, error) {
	var memProps vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(v.physicalDevice, &memProps)
	memProps.Deref()

	for i := uint32(0); i < memProps.MemoryTypeCount; i++ {
		memProps.MemoryTypes[i].Deref()
		if typeBits&(1<<i) != 0 && memProps.MemoryTypes[i].PropertyFlags&properties == properties {
			return i, nil
		}
	}
	return 0, errors.New("no suitable memory type")
}

func graphicsQueueFamily(dev vk.PhysicalDevice) (uint32, error) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(dev, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(dev, &count, families)
	for i, qf := range families {
		qf.Deref()
		if qf.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			return uint32(i), nil
		}
	}
	return 0, errors.New("no graphics queue family")
}

// mipDimensions returns the mip chain length for a frame of the given size
// and the level the reduction stops at.
func mipDimensions(width, height uint32) (mipLevels, targetLevel uint32) {
	m := math.Ceil(math.Log2(math.Max(float64(width), float64(height))))
	mipLevels = uint32(m)
	if mipLevels < 1 {
		mipLevels = 1
	}
	if mipLevels > finalMipLevel {
		targetLevel = mipLevels - finalMipLevel
	}
	return mipLevels, targetLevel
}

// mipExtent returns the extent of the given mip level for a base extent,
// clamped at 1.
func mipExtent(base, level uint32) uint32 {
	e := base >> level
	if e < 1 {
		return 1
	}
	return e
}

func halve(e uint32) uint32 {
	if e > 1 {
		return e / 2
	}
	return 1
}
