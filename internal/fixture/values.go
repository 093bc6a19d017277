package fixture

import "math"

// All fractional math rounds half away from zero.
func round(v float64) int {
	return int(math.Round(v))
}

func maxOf(v ...int) int {
	m := v[0]
	for _, x := range v[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func minOf(v ...int) int {
	m := v[0]
	for _, x := range v[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func scaleToBrightness(rgb []int, brightness int) []int {
	scale := float64(brightness) / 255
	return []int{
		round(float64(rgb[0]) * scale),
		round(float64(rgb[1]) * scale),
		round(float64(rgb[2]) * scale),
	}
}

// rgbToRGBW moves the common part of r, g, b into a white channel and
// rescales so the brightest output matches the brightest input.
func rgbToRGBW(r, g, b int) []int {
	w := minOf(r, g, b)
	out := []int{r - w, g - w, b - w, w}

	factor := 0.0
	if maxOut := maxOf(out...); maxOut != 0 {
		factor = float64(maxOf(r, g, b)) / float64(maxOut)
	}
	for i, v := range out {
		out[i] = round(float64(v) * factor)
	}
	return out
}

// splitAmber derives an amber channel from red and green.
func splitAmber(rgb []int) []int {
	amber := rgb[0]
	if amber > rgb[1]*2 {
		amber = rgb[1] * 2
	}
	out := []int{
		rgb[0] - amber,
		round(float64(rgb[1]) - float64(amber)/2),
		rgb[2],
	}
	return append(out, amber)
}

func (f *Fixture) scaledWhite() int {
	return round(float64(f.white) * float64(f.brightness) / 255)
}

func (f *Fixture) valuesLocked() []byte {
	var v []int
	switch f.typ {
	case TypeRGB:
		v = scaleToBrightness(f.rgb, f.brightness)
	case TypeRGBA:
		v = splitAmber(scaleToBrightness(f.rgb, f.brightness))
	case TypeRGBAW:
		v = append(splitAmber(scaleToBrightness(f.rgb, f.brightness)), f.scaledWhite())
	case TypeRGBW:
		v = append(scaleToBrightness(f.rgb, f.brightness), f.scaledWhite())
	case TypeRGBWAuto:
		s := scaleToBrightness(f.rgb, f.brightness)
		v = rgbToRGBW(s[0], s[1], s[2])
	case TypeDRGB:
		v = append([]int{f.brightness}, f.rgb...)
	case TypeRGBD:
		v = append(append([]int(nil), f.rgb...), f.brightness)
	case TypeDRGBW:
		v = append(append([]int{f.brightness}, f.rgb...), f.white)
	case TypeRGBWD:
		v = append(append([]int(nil), f.rgb...), f.white, f.brightness)
	case TypeSwitch:
		v = []int{0}
		if f.on {
			v[0] = 255
		}
	case TypeCustomWhite:
		v = f.customWhite()
	default:
		v = []int{f.brightness}
	}

	out := make([]byte, len(v))
	for i, x := range v {
		out[i] = clampByte(x)
	}
	return out
}

// customWhite evaluates the channel setup letters:
// d dimmer, t/T temperature (0 warm / 0 cold), h/c warm/cold scaled by
// brightness, H/C warm/cold at full level.
func (f *Fixture) customWhite() []int {
	ww := float64(f.colorTemp-MinMireds) / float64(MaxMireds-MinMireds)
	cw := 1 - ww
	mx := math.Max(ww, cw)
	on := 0.0
	if f.on {
		on = 1
	}

	out := make([]int, 0, len(f.setup))
	for _, r := range f.setup {
		var v float64
		switch r {
		case 'd':
			v = float64(f.brightness)
		case 't':
			v = 255 - ww*255
		case 'T':
			v = ww * 255
		case 'h':
			v = on * float64(f.brightness) * (ww / mx)
		case 'c':
			v = on * float64(f.brightness) * (cw / mx)
		case 'H':
			v = on * 255 * (ww / mx)
		case 'C':
			v = on * 255 * (cw / mx)
		}
		out = append(out, round(v))
	}
	return out
}

func clampByte(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
