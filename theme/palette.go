package theme

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type RGB [3]uint8

type Palette struct {
	Name   string
	Colors []RGB
}

func LoadGPL(path string) (*Palette, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p := &Palette{}
	scanner := bufio.NewScanner(f)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, "Name:") {
			p.Name = strings.TrimSpace(strings.TrimPrefix(line, "Name:"))
			continue
		}

		// Skip headers and comments
		if line == "" || line[0] == '#' || strings.HasPrefix(line, "GIMP") || strings.HasPrefix(line, "Columns") {
			continue
		}

		// Parse RGB values (first 3 fields are R G B)
		fields := strings.Fields(line)
		if len(fields) >= 3 {
			r, err1 := strconv.Atoi(fields[0])
			g, err2 := strconv.Atoi(fields[1])
			b, err3 := strconv.Atoi(fields[2])
			if err1 == nil && err2 == nil && err3 == nil {
				p.Colors = append(p.Colors, RGB{uint8(r), uint8(g), uint8(b)})
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(p.Colors) == 0 {
		return nil, fmt.Errorf("no colors found in palette %s", path)
	}

	return p, nil
}

func MustLoadGPL(path string) *Palette {
	p, err := LoadGPL(path)
	if err != nil {
		panic(fmt.Sprintf("failed to load palette %s: %v", path, err))
	}
	return p
}

// Lookup returns interpolated color for normalized value 0-1
func (p *Palette) Lookup(norm float64) RGB {
	if norm <= 0 {
		return p.Colors[0]
	}
	if norm >= 1 {
		return p.Colors[len(p.Colors)-1]
	}

	// Find the two colors to interpolate between
	pos := norm * float64(len(p.Colors)-1)
	i := int(pos)
	frac := pos - float64(i)

	c0 := p.Colors[i]
	c1 := p.Colors[i+1]

	return RGB{
		lerp(c0[0], c1[0], frac),
		lerp(c0[1], c1[1], frac),
		lerp(c0[2], c1[2], frac),
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a)*(1-t) + float64(b)*t)
}

// Index returns color at specific index (no interpolation)
func (p *Palette) Index(i int) RGB {
	if i < 0 {
		return p.Colors[0]
	}
	if i >= len(p.Colors) {
		return p.Colors[len(p.Colors)-1]
	}
	return p.Colors[i]
}

// DefaultPalette is the built-in stand-in for a GPL file on disk;
// LoadNamed derives every built-in theme from it. It keeps the same deep-purple to
// bright-yellow ramp the role constants in theme.go were tuned against.
func DefaultPalette() *Palette {
	return &Palette{
		Name: "miditui-default",
		Colors: []RGB{
			{24, 12, 36},
			{56, 20, 72},
			{92, 28, 110},
			{132, 36, 132},
			{176, 48, 140},
			{214, 72, 132},
			{236, 112, 108},
			{244, 156, 84},
			{248, 202, 64},
			{252, 238, 60},
		},
	}
}

// LoadNamed resolves one of the built-in theme names ("default", "dark",
// "light") to a Palette, scaling DefaultPalette's ramp rather than
// keeping three independent color tables.
func LoadNamed(name string) *Palette {
	base := DefaultPalette()
	switch name {
	case "dark":
		return base.scaled(0.6, base.Name+"-dark")
	case "light":
		return base.scaled(1.0, base.Name+"-light").lightened(0.35)
	default:
		return base
	}
}

func (p *Palette) scaled(factor float64, name string) *Palette {
	out := &Palette{Name: name, Colors: make([]RGB, len(p.Colors))}
	for i, c := range p.Colors {
		out.Colors[i] = RGB{
			uint8(float64(c[0]) * factor),
			uint8(float64(c[1]) * factor),
			uint8(float64(c[2]) * factor),
		}
	}
	return out
}

func (p *Palette) lightened(amount float64) *Palette {
	out := &Palette{Name: p.Name, Colors: make([]RGB, len(p.Colors))}
	for i, c := range p.Colors {
		out.Colors[i] = RGB{
			lerp(c[0], 255, amount),
			lerp(c[1], 255, amount),
			lerp(c[2], 255, amount),
		}
	}
	return out
}
