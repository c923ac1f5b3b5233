// Package resources renders the tray icon.
package resources

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"runtime"
)

// Health selects the icon colour.
type Health int

const (
	Healthy  Health = iota // every enabled hotkey is registered
	Degraded               // some hotkeys are not registered
	Failing                // nothing is registered or the backend is down
)

const iconSize = 32

var palette = map[Health]color.NRGBA{
	Healthy:  {R: 0x2e, G: 0x9e, B: 0x4f, A: 0xff},
	Degraded: {R: 0xe0, G: 0xa0, B: 0x20, A: 0xff},
	Failing:  {R: 0xc6, G: 0x28, B: 0x28, A: 0xff},
}

// Icon returns the tray icon for h in the format the platform tray expects.
func Icon(h Health) []byte {
	data := PNG(h)
	if runtime.GOOS == "windows" {
		return wrapICO(data)
	}
	return data
}

// PNG draws a rounded key cap: a filled square with a light inner border.
func PNG(h Health) []byte {
	fill, ok := palette[h]
	if !ok {
		fill = palette[Failing]
	}
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	edge := color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xd0}
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			if corner(x, y) {
				continue
			}
			c := fill
			if x == 4 || y == 4 || x == iconSize-5 || y == iconSize-5 {
				if x >= 4 && y >= 4 && x <= iconSize-5 && y <= iconSize-5 {
					c = edge
				}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img) // in-memory encode of a valid image
	return buf.Bytes()
}

func corner(x, y int) bool {
	const r = 3
	dx, dy := min(x, iconSize-1-x), min(y, iconSize-1-y)
	return dx < r && dy < r && dx+dy < r
}

// wrapICO stores a PNG as the single image of an ICO container.
func wrapICO(pngData []byte) []byte {
	var buf bytes.Buffer
	le := binary.LittleEndian
	_ = binary.Write(&buf, le, [3]uint16{0, 1, 1}) // reserved, type icon, count
	buf.Write([]byte{iconSize, iconSize, 0, 0})     // width, height, colors, reserved
	_ = binary.Write(&buf, le, uint16(1))           // planes
	_ = binary.Write(&buf, le, uint16(32))          // bit count
	_ = binary.Write(&buf, le, uint32(len(pngData)))
	_ = binary.Write(&buf, le, uint32(6+16)) // offset after the headers
	buf.Write(pngData)
	return buf.Bytes()
}
