package ritornello

import (
	"math"
	"os"
)

// FillEnvVar returns the value of a runtime Environment Variable
func FillEnvVar(ev string) string {
	// If the EnvVar doesn't exist return a default string
	value := os.Getenv(ev)
	if value == "" {
		value = "ENOENT"
	}
	return value
}

// FloatPrecise rounds a float to a fixed number of decimal digits
func FloatPrecise(f float64, digits int) float64 {
	p := math.Pow10(digits)
	return math.Round(f*p) / p
}
