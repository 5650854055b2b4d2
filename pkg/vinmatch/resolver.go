package vinmatch

// Score totals the weights of every rule the candidate satisfies.
func Score(decoded DecodedVin, candidate CatalogSpec) int {
	total := 0
	for _, rule := range scoringRules {
		if rule.Matches(decoded, candidate) {
			total += rule.Weight
		}
	}
	return total
}

// Resolve picks the highest-scoring candidate. The first candidate in list
// order wins ties, so results are deterministic for a fixed candidate list.
// The second return is false when no candidates were supplied; the caller
// then falls back to a synthetic spec built purely from the decoded VIN.
func Resolve(decoded DecodedVin, candidates []CatalogSpec) (CatalogSpec, bool) {
	if len(candidates) == 0 {
		return CatalogSpec{}, false
	}
	bestMatch := candidates[0]
	bestScore := 0
	for _, candidate := range candidates {
		if score := Score(decoded, candidate); score > bestScore {
			bestMatch = candidate
			bestScore = score
		}
	}
	return bestMatch, true
}

// BuildEnrichedSpec copies the matched catalog row and overwrites a fixed
// field set with decoded values wherever the decode provided one. The VIN is
// ground truth for the as-built drivetrain and dimensions; descriptive
// catalog fields (pricing, seating, imagery) stay curated because the decode
// never carries them.
func BuildEnrichedSpec(bestMatch CatalogSpec, decoded DecodedVin) CatalogSpec {
	enriched := bestMatch
	overrideField(&enriched.EngineSizeL, decoded.EngineSizeL)
	overrideField(&enriched.Cylinders, decoded.Cylinders)
	overrideField(&enriched.HorsepowerHP, decoded.HorsepowerHP)
	overrideField(&enriched.TorqueFtLbs, decoded.TorqueFtLbs)
	overrideField(&enriched.FuelType, decoded.FuelType)
	overrideField(&enriched.DriveType, decoded.DriveType)
	overrideField(&enriched.Transmission, decoded.Transmission)
	overrideField(&enriched.BodyType, decoded.BodyType)
	overrideField(&enriched.EPACombinedMPG, decoded.EPACombinedMPG)
	overrideField(&enriched.EPACityHighwayMPG, decoded.EPACityHighwayMPG)
	overrideField(&enriched.CurbWeightLbs, decoded.CurbWeightLbs)
	overrideField(&enriched.LengthIn, decoded.LengthIn)
	overrideField(&enriched.WidthIn, decoded.WidthIn)
	overrideField(&enriched.HeightIn, decoded.HeightIn)
	return enriched
}

// BuildSyntheticSpec constructs a spec purely from decoded VIN data for
// vehicles absent from the catalog. A normal outcome for new or rare
// vehicles, not an error.
func BuildSyntheticSpec(decoded DecodedVin) CatalogSpec {
	trim := decoded.Trim
	if trim == "" {
		trim = "N/A"
	}
	return CatalogSpec{
		Make:              decoded.Make,
		Model:             decoded.Model,
		Year:              decoded.Year,
		Trim:              trim,
		EngineSizeL:       decoded.EngineSizeL,
		Cylinders:         decoded.Cylinders,
		HorsepowerHP:      decoded.HorsepowerHP,
		TorqueFtLbs:       decoded.TorqueFtLbs,
		FuelType:          decoded.FuelType,
		DriveType:         decoded.DriveType,
		Transmission:      decoded.Transmission,
		BodyType:          decoded.BodyType,
		EPACombinedMPG:    decoded.EPACombinedMPG,
		EPACityHighwayMPG: decoded.EPACityHighwayMPG,
		CurbWeightLbs:     decoded.CurbWeightLbs,
		LengthIn:          decoded.LengthIn,
		WidthIn:           decoded.WidthIn,
		HeightIn:          decoded.HeightIn,
	}
}

func overrideField(target *string, decodedValue string) {
	if decodedValue != "" {
		*target = decodedValue
	}
}
