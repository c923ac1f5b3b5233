//go:build windows

package ui

import (
	"fmt"
	"syscall"
	"unsafe"
)

const swShowNormal = 1

var procShellExecuteW = syscall.NewLazyDLL("shell32.dll").NewProc("ShellExecuteW")

func utf16OrNil(s string) (*uint16, error) {
	if s == "" {
		return nil, nil
	}
	return syscall.UTF16PtrFromString(s)
}

// shellExecute performs verb on file. Return values above 32 mean success.
func shellExecute(hwnd uintptr, verb, file, params, dir string, showCmd int32) error {
	var ptrs [4]*uint16
	for i, s := range []string{verb, file, params, dir} {
		p, err := utf16OrNil(s)
		if err != nil {
			return fmt.Errorf("ShellExecuteW argument %d: %w", i, err)
		}
		ptrs[i] = p
	}
	ret, _, callErr := procShellExecuteW.Call(
		hwnd,
		uintptr(unsafe.Pointer(ptrs[0])),
		uintptr(unsafe.Pointer(ptrs[1])),
		uintptr(unsafe.Pointer(ptrs[2])),
		uintptr(unsafe.Pointer(ptrs[3])),
		uintptr(showCmd),
	)
	if ret > 32 {
		return nil
	}
	if errno, ok := callErr.(syscall.Errno); ok && errno != 0 {
		return fmt.Errorf("ShellExecuteW failed with code %d: %w", ret, errno)
	}
	return fmt.Errorf("ShellExecuteW failed with code %d", ret)
}
