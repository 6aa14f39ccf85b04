package grub

import (
	"testing"

	"github.com/cockroachdb/errors"
)

const sampleGrubCfg = `#
# DO NOT EDIT THIS FILE
#
set default="${saved_entry}"

menuentry 'Fedora Linux (5.10-fastcall)' --class fedora {
	load_video
	linux /vmlinuz-5.10-fastcall root=/dev/sda1 ro quiet
	initrd /initramfs-5.10-fastcall.img
}
menuentry 'Fedora Linux (5.10-fccmp)' --class fedora {
	linux /vmlinuz-5.10-fccmp root=/dev/sda1 ro quiet
	initrd /initramfs-5.10-fccmp.img
}
submenu 'Advanced options' {
	menuentry 'Fedora Linux (5.8-stock)' {
		linux /vmlinuz-5.8-stock root=/dev/sda1 ro
		initrd /initramfs-5.8-stock.img
	}
	menuentry 'Fedora Linux (5.8-stock) recovery' {
		linux /vmlinuz-5.8-stock root=/dev/sda1 ro single
		initrd /initramfs-5.8-stock.img
	}
}
menuentry 'UEFI Firmware Settings' {
	fwsetup
}
`

func TestFindMenuEntryIn(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    string
		wantErr error
	}{
		{name: "first top-level entry", version: "5.10-fastcall", want: "0"},
		{name: "second top-level entry", version: "5.10-fccmp", want: "1"},
		{name: "submenu entry", version: "5.8-stock", want: "2>0"},
		{name: "missing version", version: "6.1-missing", wantErr: ErrEntryNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := findMenuEntryIn(sampleGrubCfg, tt.version)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("findMenuEntryIn(%q) error = %v, want %v", tt.version, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("findMenuEntryIn(%q) error = %v", tt.version, err)
			}
			if got != tt.want {
				t.Errorf("findMenuEntryIn(%q) = %q, want %q", tt.version, got, tt.want)
			}
		})
	}
}

func TestFindMenuEntryAfterSubmenu(t *testing.T) {
	cfg := `submenu 'Advanced' {
	menuentry 'old kernel' {
		linux /vmlinuz-4.19-old ro
	}
}
menuentry 'new kernel' {
	linux /vmlinuz-6.1-new ro
}
`
	got, err := findMenuEntryIn(cfg, "6.1-new")
	if err != nil {
		t.Fatalf("findMenuEntryIn() error = %v", err)
	}
	if got != "1" {
		t.Errorf("entry after submenu = %q, want %q", got, "1")
	}
}

func TestFindMenuEntryLinuxLineOnly(t *testing.T) {
	// Title without the version; only the linux directive carries it.
	cfg := `menuentry 'Fedora Linux' {
	linux /vmlinuz-5.10-fastcall ro quiet
}
`
	got, err := findMenuEntryIn(cfg, "5.10-fastcall")
	if err != nil {
		t.Fatalf("findMenuEntryIn() error = %v", err)
	}
	if got != "0" {
		t.Errorf("findMenuEntryIn() = %q, want %q", got, "0")
	}
}
