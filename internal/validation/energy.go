package validation

import (
	"errors"
	"regexp"
)

const maxEnergy = 100000

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ValidateEnergyValue checks the energy a habit awards per completion.
func ValidateEnergyValue(value int) error {
	if value <= 0 {
		return errors.New("energy value must be a positive integer")
	}
	if value > maxEnergy {
		return errors.New("energy value is too large (max 100000)")
	}
	return nil
}

// ValidateEnergyCost checks a reward's redemption threshold.
func ValidateEnergyCost(cost int) error {
	if cost <= 0 {
		return errors.New("energy cost must be a positive integer")
	}
	if cost > maxEnergy*100 {
		return errors.New("energy cost is too large (max 10000000)")
	}
	return nil
}

// ValidateColor accepts an empty string or a #rrggbb hex color.
func ValidateColor(color string) error {
	if color == "" || hexColor.MatchString(color) {
		return nil
	}
	return errors.New("color must be a hex value like #3b82f6")
}
