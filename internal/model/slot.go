package model

import "fmt"

// Color identifies one of the two interchangeable deployment slots.
type Color string

const (
	SlotBlue  Color = "blue"
	SlotGreen Color = "green"
)

// Next returns the opposite slot, i.e. the target of the next deployment.
func (c Color) Next() Color {
	if c == SlotBlue {
		return SlotGreen
	}
	return SlotBlue
}

// Valid reports whether c is one of the two known slot colors.
func (c Color) Valid() bool {
	return c == SlotBlue || c == SlotGreen
}

// ParseColor parses a slot color from its string form.
func ParseColor(s string) (Color, error) {
	c := Color(s)
	if !c.Valid() {
		return "", fmt.Errorf("invalid slot color %q", s)
	}
	return c, nil
}

// SlotPort returns the fixed host port a slot's container listens on.
// Blue always serves on 8000 and green on 8001; the traffic router decides
// which one receives live traffic.
func SlotPort(c Color) int {
	if c == SlotGreen {
		return 8001
	}
	return 8000
}
