package vinmatch

import "testing"

func TestResolvePrefersClosestDrivetrain(test *testing.T) {
	test.Parallel()
	decoded := DecodedVin{
		VIN:          "1HGCV1F34LA000001",
		Make:         "Honda",
		Model:        "Accord",
		Year:         2020,
		EngineSizeL:  "2.0",
		Cylinders:    "4",
		HorsepowerHP: "245",
		DriveType:    "FWD",
	}
	base := CatalogSpec{
		ID:           "cat-base",
		Trim:         "Base",
		EngineSizeL:  "1.5",
		Cylinders:    "4",
		HorsepowerHP: "192",
		DriveType:    "FWD",
	}
	sport := CatalogSpec{
		ID:           "cat-sport",
		Trim:         "Sport 2.0T",
		EngineSizeL:  "2.0",
		Cylinders:    "4",
		HorsepowerHP: "252",
		DriveType:    "FWD",
	}

	if score := Score(decoded, base); score != 8 {
		test.Fatalf("expected base score 8 (cylinders+drive), got %d", score)
	}
	if score := Score(decoded, sport); score != 20 {
		test.Fatalf("expected sport score 20 (displacement+cylinders+hp+drive), got %d", score)
	}

	bestMatch, found := Resolve(decoded, []CatalogSpec{base, sport})
	if !found {
		test.Fatalf("expected a match")
	}
	if bestMatch.ID != sport.ID {
		test.Fatalf("expected sport trim to win, got %s", bestMatch.ID)
	}
}

func TestResolveFirstSeenWinsTies(test *testing.T) {
	test.Parallel()
	decoded := DecodedVin{Make: "Honda", Model: "Accord", Year: 2020, Cylinders: "4"}
	first := CatalogSpec{ID: "cat-first", Trim: "EX", Cylinders: "4"}
	second := CatalogSpec{ID: "cat-second", Trim: "LX", Cylinders: "4"}

	bestMatch, found := Resolve(decoded, []CatalogSpec{first, second})
	if !found {
		test.Fatalf("expected a match")
	}
	if bestMatch.ID != first.ID {
		test.Fatalf("expected first candidate to win the tie, got %s", bestMatch.ID)
	}
}

func TestResolveIsDeterministic(test *testing.T) {
	test.Parallel()
	decoded := DecodedVin{Make: "Honda", Model: "Accord", Year: 2020, EngineSizeL: "2.0", Cylinders: "4"}
	candidates := []CatalogSpec{
		{ID: "cat-a", Trim: "LX", EngineSizeL: "1.5", Cylinders: "4"},
		{ID: "cat-b", Trim: "Sport", EngineSizeL: "2.0", Cylinders: "4"},
		{ID: "cat-c", Trim: "Touring", EngineSizeL: "2.0", Cylinders: "4"},
	}

	firstMatch, _ := Resolve(decoded, candidates)
	for attempt := 0; attempt < 10; attempt++ {
		nextMatch, _ := Resolve(decoded, candidates)
		if nextMatch.ID != firstMatch.ID {
			test.Fatalf("expected stable winner %s, got %s on attempt %d", firstMatch.ID, nextMatch.ID, attempt)
		}
	}
}

func TestResolveNoCandidates(test *testing.T) {
	test.Parallel()
	_, found := Resolve(DecodedVin{Make: "Koenigsegg", Model: "Jesko", Year: 2024}, nil)
	if found {
		test.Fatalf("expected no match for empty candidate list")
	}
}

func TestResolveZeroScoreFallsBackToFirstCandidate(test *testing.T) {
	test.Parallel()
	decoded := DecodedVin{Make: "Honda", Model: "Accord", Year: 2020}
	candidates := []CatalogSpec{
		{ID: "cat-a", Trim: "LX"},
		{ID: "cat-b", Trim: "EX"},
	}
	bestMatch, found := Resolve(decoded, candidates)
	if !found {
		test.Fatalf("expected a match")
	}
	if bestMatch.ID != "cat-a" {
		test.Fatalf("expected first candidate when nothing scores, got %s", bestMatch.ID)
	}
}

func TestScoringRuleTrimIsCaseInsensitive(test *testing.T) {
	test.Parallel()
	decoded := DecodedVin{Trim: "sport 2.0t"}
	candidate := CatalogSpec{Trim: "Sport 2.0T"}
	if score := Score(decoded, candidate); score != 10 {
		test.Fatalf("expected trim-only score 10, got %d", score)
	}
}

func TestScoringRuleDisplacementTolerance(test *testing.T) {
	test.Parallel()
	cases := []struct {
		name      string
		decoded   string
		candidate string
		want      bool
	}{
		{name: "exact", decoded: "2.0", candidate: "2.0", want: true},
		{name: "within tolerance", decoded: "1.995", candidate: "2.0", want: true},
		{name: "at tolerance", decoded: "2.1", candidate: "2.0", want: true},
		{name: "outside tolerance", decoded: "2.4", candidate: "2.0", want: false},
		{name: "missing decoded", decoded: "", candidate: "2.0", want: false},
		{name: "unparseable", decoded: "unknown", candidate: "2.0", want: false},
	}
	for _, tc := range cases {
		tc := tc
		test.Run(tc.name, func(test *testing.T) {
			test.Parallel()
			got := numbersWithin(tc.decoded, tc.candidate, displacementToleranceL)
			if got != tc.want {
				test.Fatalf("expected %v for %q vs %q, got %v", tc.want, tc.decoded, tc.candidate, got)
			}
		})
	}
}

func TestScoringRuleDisplacementScoresAdjacentTenths(test *testing.T) {
	test.Parallel()
	decoded := DecodedVin{EngineSizeL: "2.1"}
	candidate := CatalogSpec{EngineSizeL: "2.0"}
	if score := Score(decoded, candidate); score != 8 {
		test.Fatalf("expected displacement score 8 for adjacent tenths, got %d", score)
	}
	reversed := Score(DecodedVin{EngineSizeL: "2.0"}, CatalogSpec{EngineSizeL: "2.1"})
	if reversed != 8 {
		test.Fatalf("expected symmetric score 8, got %d", reversed)
	}
}

func TestScoringRuleHorsepowerTolerance(test *testing.T) {
	test.Parallel()
	if !numbersWithin("245", "252 hp", horsepowerToleranceHP) {
		test.Fatalf("expected 245 within 20 of 252")
	}
	if numbersWithin("192", "252", horsepowerToleranceHP) {
		test.Fatalf("expected 192 outside 20 of 252")
	}
}

func TestScoringRuleDriveTypeSubstring(test *testing.T) {
	test.Parallel()
	decoded := DecodedVin{DriveType: "FWD/Front-Wheel Drive"}
	candidate := CatalogSpec{DriveType: "FWD"}
	if score := Score(decoded, candidate); score != 2 {
		test.Fatalf("expected drive-type score 2, got %d", score)
	}
	missing := CatalogSpec{DriveType: ""}
	if score := Score(decoded, missing); score != 0 {
		test.Fatalf("expected no score for missing drive type, got %d", score)
	}
}

func TestParseNumberLeadingToken(test *testing.T) {
	test.Parallel()
	value, ok := parseNumber(" 250 hp ")
	if !ok || value != 250 {
		test.Fatalf("expected 250, got %v %v", value, ok)
	}
	if _, ok := parseNumber("hp 250"); ok {
		test.Fatalf("expected non-leading number to fail")
	}
}

func TestBuildEnrichedSpecOverridesDecodedFieldsOnly(test *testing.T) {
	test.Parallel()
	bestMatch := CatalogSpec{
		ID:                "cat-sport",
		Make:              "Honda",
		Model:             "Accord",
		Year:              2020,
		Trim:              "Sport 2.0T",
		TrimDescription:   "Sport 2.0T 4dr Sedan",
		EngineSizeL:       "2.0",
		Cylinders:         "4",
		HorsepowerHP:      "252",
		TorqueFtLbs:       "273",
		FuelType:          "Gasoline",
		DriveType:         "FWD",
		Transmission:      "10-speed automatic",
		BodyType:          "Sedan",
		EPACombinedMPG:    "26",
		EPACityHighwayMPG: "22/32",
		CurbWeightLbs:     "3428",
		SeatingCapacity:   "5",
		BaseMSRP:          "30860",
		ImageURL:          "https://img.example/accord.jpg",
	}
	decoded := DecodedVin{
		HorsepowerHP:  "245",
		CurbWeightLbs: "3450",
	}

	enriched := BuildEnrichedSpec(bestMatch, decoded)
	if enriched.HorsepowerHP != "245" {
		test.Fatalf("expected decoded horsepower to win, got %s", enriched.HorsepowerHP)
	}
	if enriched.CurbWeightLbs != "3450" {
		test.Fatalf("expected decoded curb weight to win, got %s", enriched.CurbWeightLbs)
	}
	if enriched.EngineSizeL != "2.0" || enriched.Transmission != "10-speed automatic" {
		test.Fatalf("expected catalog values kept when decode is silent")
	}
	if enriched.SeatingCapacity != "5" || enriched.BaseMSRP != "30860" || enriched.ImageURL != bestMatch.ImageURL {
		test.Fatalf("expected curated catalog fields untouched")
	}
	if enriched.ID != bestMatch.ID || enriched.Trim != bestMatch.Trim || enriched.TrimDescription != bestMatch.TrimDescription {
		test.Fatalf("expected identity fields untouched")
	}
}

func TestBuildSyntheticSpecTrimFallback(test *testing.T) {
	test.Parallel()
	decoded := DecodedVin{
		Make:        "Koenigsegg",
		Model:       "Jesko",
		Year:        2024,
		EngineSizeL: "5.0",
	}
	synthetic := BuildSyntheticSpec(decoded)
	if synthetic.Trim != "N/A" {
		test.Fatalf("expected trim fallback N/A, got %s", synthetic.Trim)
	}
	if synthetic.Make != "Koenigsegg" || synthetic.Model != "Jesko" || synthetic.Year != 2024 {
		test.Fatalf("unexpected identity on synthetic spec: %+v", synthetic)
	}
	if synthetic.EngineSizeL != "5.0" {
		test.Fatalf("expected decoded displacement carried over, got %s", synthetic.EngineSizeL)
	}

	withTrim := BuildSyntheticSpec(DecodedVin{Make: "Honda", Model: "Accord", Year: 2020, Trim: "Sport"})
	if withTrim.Trim != "Sport" {
		test.Fatalf("expected decoded trim kept, got %s", withTrim.Trim)
	}
}
