package bridge

import (
	"errors"
	"fmt"
	"testing"

	"golang.org/x/sys/unix"
)

type fakeImage struct{ id int }
type fakeMemory struct{ id int }

// fakeDevice records calls and tracks live objects. Imported fds are closed
// on FreeMemory the way a driver would release them.
type fakeDevice struct {
	ids   DeviceIDs
	types []MemoryType
	req   Requirements

	createErr, allocErr, bindErr, exportErr error

	calls       []string
	nextID      int
	liveImages  map[int]bool
	liveMemory  map[int]bool
	importedFds map[int]int
	exportedFds []int
	offeredFd   int
	lastAlloc   struct {
		size      uint64
		typeIndex uint32
	}
	lastDesc ImageDesc
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		ids: DeviceIDs{Device: [16]byte{1}, Driver: [16]byte{2}},
		types: []MemoryType{
			{Properties: MemoryHostVisible | MemoryHostCoherent},
			{Properties: MemoryDeviceLocal},
			{Properties: MemoryDeviceLocal | MemoryHostVisible},
		},
		req:         Requirements{Size: 1 << 20, Alignment: 256, TypeBits: 0b111},
		liveImages:  map[int]bool{},
		liveMemory:  map[int]bool{},
		importedFds: map[int]int{},
	}
}

func (d *fakeDevice) IDs() DeviceIDs            { return d.ids }
func (d *fakeDevice) MemoryTypes() []MemoryType { return d.types }

func (d *fakeDevice) CreateImage(desc ImageDesc) (Image, Requirements, error) {
	d.calls = append(d.calls, "CreateImage")
	d.lastDesc = desc
	if d.createErr != nil {
		return nil, Requirements{}, d.createErr
	}
	d.nextID++
	d.liveImages[d.nextID] = true
	return fakeImage{d.nextID}, d.req, nil
}

func (d *fakeDevice) DestroyImage(img Image) {
	d.calls = append(d.calls, "DestroyImage")
	delete(d.liveImages, img.(fakeImage).id)
}

func (d *fakeDevice) allocate(size uint64, typeIndex uint32) (fakeMemory, error) {
	if d.allocErr != nil {
		return fakeMemory{}, d.allocErr
	}
	d.lastAlloc.size, d.lastAlloc.typeIndex = size, typeIndex
	d.nextID++
	d.liveMemory[d.nextID] = true
	return fakeMemory{d.nextID}, nil
}

func (d *fakeDevice) AllocateExportable(size uint64, typeIndex uint32, img Image) (Memory, error) {
	d.calls = append(d.calls, "AllocateExportable")
	m, err := d.allocate(size, typeIndex)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (d *fakeDevice) AllocateImported(size uint64, typeIndex uint32, img Image, fd int) (Memory, error) {
	d.calls = append(d.calls, "AllocateImported")
	d.offeredFd = fd
	m, err := d.allocate(size, typeIndex)
	if err != nil {
		return nil, err
	}
	d.importedFds[m.id] = fd
	return m, nil
}

func (d *fakeDevice) BindImageMemory(img Image, mem Memory) error {
	d.calls = append(d.calls, "BindImageMemory")
	return d.bindErr
}

func (d *fakeDevice) FreeMemory(mem Memory) {
	d.calls = append(d.calls, "FreeMemory")
	id := mem.(fakeMemory).id
	delete(d.liveMemory, id)
	if fd, ok := d.importedFds[id]; ok {
		unix.Close(fd)
		delete(d.importedFds, id)
	}
}

func (d *fakeDevice) ExportFd(mem Memory) (int, error) {
	d.calls = append(d.calls, "ExportFd")
	if d.exportErr != nil {
		return -1, d.exportErr
	}
	fd, err := unix.Open("/dev/null", unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, fmt.Errorf("open /dev/null: %w", err)
	}
	d.exportedFds = append(d.exportedFds, fd)
	return fd, nil
}

func (d *fakeDevice) leaks() string {
	if len(d.liveImages) == 0 && len(d.liveMemory) == 0 {
		return ""
	}
	return fmt.Sprintf("%d images, %d allocations still live", len(d.liveImages), len(d.liveMemory))
}

func fdOpen(fd int) bool {
	_, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	return err == nil
}

var errDriver = errors.New("driver said no")

func mustExport(t *testing.T, dev *fakeDevice, extent Extent) (*Exporter, Handle) {
	t.Helper()
	exp, h, err := Export(dev, extent)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	t.Cleanup(func() { exp.Destroy() })
	return exp, h
}
