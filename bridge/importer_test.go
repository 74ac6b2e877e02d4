package bridge

import (
	"errors"
	"reflect"
	"testing"

	"golang.org/x/sys/unix"
)

func TestImport(t *testing.T) {
	producer := newFakeDevice()
	consumer := newFakeDevice()
	extent := Extent{1280, 720}
	exp, h := mustExport(t, producer, extent)

	imp, err := Import(consumer, h, extent, FormatRGBA8SRGB)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	want := []string{"CreateImage", "AllocateImported", "BindImageMemory"}
	if !reflect.DeepEqual(consumer.calls, want) {
		t.Errorf("calls = %v, want %v", consumer.calls, want)
	}
	if consumer.lastDesc.Usage != UsageSampled|UsageTransferDst|UsageTransferSrc {
		t.Errorf("usage = %b", consumer.lastDesc.Usage)
	}
	if consumer.offeredFd == h.Fd() {
		t.Fatal("importer handed the exporter's own fd to the driver")
	}
	if !fdOpen(consumer.offeredFd) {
		t.Error("imported duplicate closed while in use")
	}
	if consumer.lastAlloc.size != h.Size {
		t.Errorf("import size = %d, want %d", consumer.lastAlloc.size, h.Size)
	}

	dup := consumer.offeredFd
	imp.Destroy()
	imp.Destroy()
	if fdOpen(dup) {
		t.Error("duplicate still open after importer teardown")
	}
	if leak := consumer.leaks(); leak != "" {
		t.Error(leak)
	}
	if !h.Valid() {
		t.Error("importer teardown closed the exporter's fd")
	}

	if err := exp.Destroy(); err != nil {
		t.Fatal(err)
	}
	if h.Valid() {
		t.Error("exporter fd open after exporter teardown")
	}
}

func TestImportRejectsBeforeTouchingDevice(t *testing.T) {
	extent := Extent{32, 32}

	tests := []struct {
		name   string
		mutate func(*Handle, *Extent, *Format, *fakeDevice)
	}{
		{"closed fd", func(h *Handle, _ *Extent, _ *Format, _ *fakeDevice) {
			fd, _ := unix.Open("/dev/null", unix.O_RDONLY, 0)
			unix.Close(fd)
			h.fd = fd
		}},
		{"negative fd", func(h *Handle, _ *Extent, _ *Format, _ *fakeDevice) { h.fd = -1 }},
		{"extent", func(_ *Handle, e *Extent, _ *Format, _ *fakeDevice) { e.Width++ }},
		{"format", func(_ *Handle, _ *Extent, f *Format, _ *fakeDevice) { *f = FormatUndefined }},
		{"device uuid", func(_ *Handle, _ *Extent, _ *Format, d *fakeDevice) { d.ids.Device[15] = 9 }},
		{"driver uuid", func(_ *Handle, _ *Extent, _ *Format, d *fakeDevice) { d.ids.Driver[0] = 9 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			producer := newFakeDevice()
			consumer := newFakeDevice()
			_, h := mustExport(t, producer, extent)

			reqExtent, reqFormat := extent, FormatRGBA8SRGB
			tt.mutate(&h, &reqExtent, &reqFormat, consumer)

			_, err := Import(consumer, h, reqExtent, reqFormat)
			var importErr *ImportError
			if !errors.As(err, &importErr) {
				t.Fatalf("err = %v, want *ImportError", err)
			}
			if len(consumer.calls) != 0 {
				t.Errorf("device touched: %v", consumer.calls)
			}
		})
	}
}

func TestImportFailuresRelease(t *testing.T) {
	extent := Extent{32, 32}

	tests := []struct {
		name        string
		setup       func(*fakeDevice)
		dupOffered  bool
		wantErrLike error
	}{
		{"create image", func(d *fakeDevice) { d.createErr = errDriver }, false, errDriver},
		{"requirement too large", func(d *fakeDevice) { d.req.Size = 2 << 20 }, false, nil},
		{"no device local", func(d *fakeDevice) { d.req.TypeBits = 0b001 }, false, ErrNoDeviceLocalMemory},
		{"allocate", func(d *fakeDevice) { d.allocErr = errDriver }, true, errDriver},
		{"bind", func(d *fakeDevice) { d.bindErr = errDriver }, true, errDriver},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			producer := newFakeDevice()
			consumer := newFakeDevice()
			consumer.offeredFd = -1
			_, h := mustExport(t, producer, extent)
			tt.setup(consumer)

			_, err := Import(consumer, h, extent, FormatRGBA8SRGB)
			var importErr *ImportError
			if !errors.As(err, &importErr) {
				t.Fatalf("err = %v, want *ImportError", err)
			}
			if tt.wantErrLike != nil && !errors.Is(err, tt.wantErrLike) {
				t.Errorf("err = %v, want it to wrap %v", err, tt.wantErrLike)
			}
			if leak := consumer.leaks(); leak != "" {
				t.Error(leak)
			}
			if tt.dupOffered {
				if consumer.offeredFd < 0 {
					t.Fatal("no fd was offered to the device")
				}
				if fdOpen(consumer.offeredFd) {
					t.Error("duplicate fd leaked after failed import")
				}
			} else if consumer.offeredFd >= 0 {
				t.Error("fd offered to the device before validation finished")
			}
			if !h.Valid() {
				t.Error("failed import closed the exporter's fd")
			}
		})
	}
}
