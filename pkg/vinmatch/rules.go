package vinmatch

import (
	"strconv"
	"strings"
)

const (
	displacementToleranceL = 0.1
	horsepowerToleranceHP  = 20.0

	// Absorbs float64 representation error so values exactly at the
	// tolerance still match: 2.1-2.0 evaluates to slightly more than 0.1.
	toleranceEpsilon = 1e-9
)

// ScoringRule is one weighted signal comparing a decoded VIN against a
// catalog candidate.
type ScoringRule struct {
	Name    string
	Weight  int
	Matches func(decoded DecodedVin, candidate CatalogSpec) bool
}

// scoringRules orders signals by reliability. Trim is the strongest signal
// when the provider supplies it (rarely), but displacement is the most
// dependable discriminator between trims of the same model-year, so it
// outweighs the noisier horsepower and drive-type signals.
var scoringRules = []ScoringRule{
	{
		Name:   "trim",
		Weight: 10,
		Matches: func(decoded DecodedVin, candidate CatalogSpec) bool {
			return decoded.Trim != "" && strings.EqualFold(decoded.Trim, candidate.Trim)
		},
	},
	{
		Name:   "engine_displacement",
		Weight: 8,
		Matches: func(decoded DecodedVin, candidate CatalogSpec) bool {
			return numbersWithin(decoded.EngineSizeL, candidate.EngineSizeL, displacementToleranceL)
		},
	},
	{
		Name:   "cylinders",
		Weight: 6,
		Matches: func(decoded DecodedVin, candidate CatalogSpec) bool {
			decodedValue, decodedOK := parseNumber(decoded.Cylinders)
			candidateValue, candidateOK := parseNumber(candidate.Cylinders)
			return decodedOK && candidateOK && decodedValue == candidateValue
		},
	},
	{
		Name:   "horsepower",
		Weight: 4,
		Matches: func(decoded DecodedVin, candidate CatalogSpec) bool {
			return numbersWithin(decoded.HorsepowerHP, candidate.HorsepowerHP, horsepowerToleranceHP)
		},
	},
	{
		Name:   "drive_type",
		Weight: 2,
		Matches: func(decoded DecodedVin, candidate CatalogSpec) bool {
			decodedDrive := strings.ToLower(strings.TrimSpace(decoded.DriveType))
			candidateDrive := strings.ToLower(strings.TrimSpace(candidate.DriveType))
			if decodedDrive == "" || candidateDrive == "" {
				return false
			}
			return strings.Contains(decodedDrive, candidateDrive) || strings.Contains(candidateDrive, decodedDrive)
		},
	},
}

// parseNumber extracts a float from free-form provider text such as "2.0" or
// "250 hp". Only the leading numeric token is considered.
func parseNumber(raw string) (float64, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, false
	}
	fields := strings.Fields(trimmed)
	value, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func numbersWithin(rawA string, rawB string, tolerance float64) bool {
	valueA, okA := parseNumber(rawA)
	valueB, okB := parseNumber(rawB)
	if !okA || !okB {
		return false
	}
	difference := valueA - valueB
	if difference < 0 {
		difference = -difference
	}
	return difference <= tolerance+toleranceEpsilon
}
