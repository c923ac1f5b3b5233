package app

import (
	"fmt"
	"io"

	"github.com/TanaroSch/hotkeyd/internal/hotkey"
)

// ProbeResult is the outcome of a trial registration.
type ProbeResult struct {
	Spec    hotkey.KeySpec
	Backend string
	Native  hotkey.NativeShortcut
	Err     error // registration error, nil when the shortcut is free
}

// Probe parses keys, registers them once and releases them again. Only a
// parse error is returned as error; registration failures land in the result.
func Probe(svc *hotkey.Service, keys string) (ProbeResult, error) {
	spec, err := hotkey.ParseKeySpec(keys)
	if err != nil {
		return ProbeResult{}, err
	}
	res := ProbeResult{Spec: spec, Backend: svc.BackendName()}
	hk := svc.NewHotkey(spec, hotkey.WithDescription(AppName+" probe"))
	if res.Err = hk.Register(); res.Err != nil {
		return res, nil
	}
	res.Native, _ = hk.Native()
	if err := hk.Unregister(); err != nil {
		return res, fmt.Errorf("release %s: %w", spec, err)
	}
	return res, nil
}

// Print writes r in the form used by the check command.
func (r ProbeResult) Print(w io.Writer) {
	fmt.Fprintf(w, "keys:    %s\n", r.Spec)
	fmt.Fprintf(w, "backend: %s\n", r.Backend)
	if r.Err != nil {
		fmt.Fprintf(w, "result:  %s (%s)\n", hotkey.KindOf(r.Err), r.Err)
		return
	}
	fmt.Fprintf(w, "native:  %s\n", r.Native)
	fmt.Fprintf(w, "result:  available\n")
}
