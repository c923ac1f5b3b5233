//go:build windows

package actions

import (
	"fmt"
	"os/exec"
	"syscall"
	"unsafe"
)

const (
	inputKeyboard  = 1
	keyEventFKeyUp = 0x0002
	vkControl      = 0x11
	vkV            = 0x56
)

type keyboardInput struct {
	Type uint32
	Ki   struct {
		WVk         uint16
		WScan       uint16
		DwFlags     uint32
		Time        uint32
		DwExtraInfo uintptr
		Padding1    uint32
		Padding2    uint32
		Padding3    uint32
	}
}

var procSendInput = syscall.NewLazyDLL("user32.dll").NewProc("SendInput")

func sendCtrlV() error {
	inputs := make([]keyboardInput, 4)
	for i, step := range []struct {
		vk    uint16
		flags uint32
	}{{vkControl, 0}, {vkV, 0}, {vkV, keyEventFKeyUp}, {vkControl, keyEventFKeyUp}} {
		inputs[i].Type = inputKeyboard
		inputs[i].Ki.WVk = step.vk
		inputs[i].Ki.DwFlags = step.flags
	}
	ret, _, err := procSendInput.Call(
		uintptr(len(inputs)),
		uintptr(unsafe.Pointer(&inputs[0])),
		uintptr(unsafe.Sizeof(inputs[0])),
	)
	if ret != uintptr(len(inputs)) {
		return fmt.Errorf("SendInput sent %d of %d inputs: %w", ret, len(inputs), err)
	}
	return nil
}

// simulatePaste uses SendInput and falls back to PowerShell SendKeys.
func simulatePaste() error {
	if err := sendCtrlV(); err == nil {
		return nil
	}
	script := `Add-Type -AssemblyName System.Windows.Forms; [System.Windows.Forms.SendKeys]::SendWait("^v")`
	if err := exec.Command("powershell", "-NoProfile", "-Command", script).Run(); err != nil {
		return fmt.Errorf("powershell paste: %w", err)
	}
	return nil
}
