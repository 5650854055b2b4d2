package vinmatch

// DecodedVin is the normalized output of the external VIN decode provider.
// Specification fields arrive as free-form text (the provider reports
// everything as strings); absent fields are empty strings.
type DecodedVin struct {
	VIN   string
	Make  string
	Model string
	Year  int
	Trim  string

	EngineSizeL       string
	Cylinders         string
	HorsepowerHP      string
	TorqueFtLbs       string
	FuelType          string
	DriveType         string
	Transmission      string
	BodyType          string
	EPACombinedMPG    string
	EPACityHighwayMPG string
	CurbWeightLbs     string
	LengthIn          string
	WidthIn           string
	HeightIn          string

	// Raw holds every populated decode variable keyed by its snake_cased
	// name. It backs the synthetic snapshot when no catalog row matches.
	Raw map[string]string
}

// CatalogSpec is one curated trim of one model-year vehicle. Read-only
// reference data from this package's perspective.
type CatalogSpec struct {
	ID              string
	Make            string
	Model           string
	Year            int
	Trim            string
	TrimDescription string

	EngineSizeL       string
	Cylinders         string
	HorsepowerHP      string
	TorqueFtLbs       string
	FuelType          string
	DriveType         string
	Transmission      string
	BodyType          string
	EPACombinedMPG    string
	EPACityHighwayMPG string
	CurbWeightLbs     string
	LengthIn          string
	WidthIn           string
	HeightIn          string

	SeatingCapacity string
	BaseMSRP        string
	ImageURL        string
}
