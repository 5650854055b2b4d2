package vindecode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/garage/pkg/vinmatch"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public NHTSA vPIC endpoint.
const DefaultBaseURL = "https://vpic.nhtsa.dot.gov/api/vehicles"

const (
	defaultRequestTimeout = 10 * time.Second
	notApplicableValue    = "Not Applicable"

	variableMake              = "Make"
	variableModel             = "Model"
	variableModelYear         = "Model Year"
	variableTrim              = "Trim"
	variableDisplacementL     = "Displacement (L)"
	variableCylinders         = "Engine Number of Cylinders"
	variableHorsepower        = "Engine Brake (hp) From"
	variableTorque            = "Engine Torque (ft-lbs) From"
	variableFuelTypePrimary   = "Fuel Type - Primary"
	variableDriveType         = "Drive Type"
	variableTransmissionStyle = "Transmission Style"
	variableBodyClass         = "Body Class"
	variableEPACombinedMPG    = "EPA Combined City/Hwy MPG"
	variableCityHighwayMPG    = "City/Hwy MPG"
	variableCurbWeight        = "Curb Weight (lbs)"
	variableOverallLength     = "Overall Length (inches)"
	variableOverallWidth      = "Overall Width (inches)"
	variableOverallHeight     = "Overall Height (inches)"
)

// Provider errors. A VIN the provider rejects is a user-facing not-found
// condition, never retried automatically.
var (
	ErrEmptyVIN            = errors.New("vin is required")
	ErrProviderUnavailable = errors.New("vin decode provider unavailable")
	ErrVinNotDecodable     = errors.New("vin could not be decoded")
)

// Client queries the NHTSA vPIC DecodeVinExtended endpoint and normalizes the
// flat variable list into a vinmatch.DecodedVin.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient wires a Client. A nil httpClient falls back to a timeout-bounded
// default; a nil logger disables debug logging.
func NewClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient, logger: logger}
}

type decodeVariable struct {
	Variable  string  `json:"Variable"`
	Value     *string `json:"Value"`
	ErrorCode string  `json:"ErrorCode"`
}

type decodeResponse struct {
	Results []decodeVariable `json:"Results"`
}

// Decode resolves a VIN into normalized attributes.
func (client *Client) Decode(ctx context.Context, vin string) (vinmatch.DecodedVin, error) {
	trimmedVIN := strings.TrimSpace(vin)
	if trimmedVIN == "" {
		return vinmatch.DecodedVin{}, ErrEmptyVIN
	}

	requestURL := fmt.Sprintf("%s/DecodeVinExtended/%s?format=json", client.baseURL, trimmedVIN)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return vinmatch.DecodedVin{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	response, err := client.httpClient.Do(request)
	if err != nil {
		return vinmatch.DecodedVin{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer func() { _ = response.Body.Close() }()
	if response.StatusCode != http.StatusOK {
		return vinmatch.DecodedVin{}, fmt.Errorf("%w: status %d", ErrProviderUnavailable, response.StatusCode)
	}

	var payload decodeResponse
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return vinmatch.DecodedVin{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	if len(payload.Results) == 0 {
		return vinmatch.DecodedVin{}, fmt.Errorf("%w: empty result set", ErrVinNotDecodable)
	}
	for _, result := range payload.Results {
		if result.ErrorCode != "" && result.ErrorCode != "0" {
			return vinmatch.DecodedVin{}, fmt.Errorf("%w: provider error code %s", ErrVinNotDecodable, result.ErrorCode)
		}
	}

	decoded := normalize(trimmedVIN, payload.Results)
	if decoded.Make == "" || decoded.Model == "" || decoded.Year == 0 {
		return vinmatch.DecodedVin{}, fmt.Errorf("%w: missing make, model, or year", ErrVinNotDecodable)
	}

	client.logger.Debug("vin decoded",
		zap.String("vin", trimmedVIN),
		zap.String("make", decoded.Make),
		zap.String("model", decoded.Model),
		zap.Int("year", decoded.Year),
	)
	return decoded, nil
}

func normalize(vin string, results []decodeVariable) vinmatch.DecodedVin {
	values := make(map[string]string, len(results))
	raw := make(map[string]string, len(results))
	for _, result := range results {
		if result.Variable == "" || result.Value == nil {
			continue
		}
		value := strings.TrimSpace(*result.Value)
		if value == "" || value == notApplicableValue {
			continue
		}
		values[result.Variable] = value
		rawKey := strings.ToLower(strings.ReplaceAll(result.Variable, " ", "_"))
		raw[rawKey] = value
	}

	year, _ := strconv.Atoi(values[variableModelYear])
	return vinmatch.DecodedVin{
		VIN:               vin,
		Make:              values[variableMake],
		Model:             values[variableModel],
		Year:              year,
		Trim:              values[variableTrim],
		EngineSizeL:       values[variableDisplacementL],
		Cylinders:         values[variableCylinders],
		HorsepowerHP:      values[variableHorsepower],
		TorqueFtLbs:       values[variableTorque],
		FuelType:          values[variableFuelTypePrimary],
		DriveType:         values[variableDriveType],
		Transmission:      values[variableTransmissionStyle],
		BodyType:          values[variableBodyClass],
		EPACombinedMPG:    values[variableEPACombinedMPG],
		EPACityHighwayMPG: values[variableCityHighwayMPG],
		CurbWeightLbs:     values[variableCurbWeight],
		LengthIn:          values[variableOverallLength],
		WidthIn:           values[variableOverallWidth],
		HeightIn:          values[variableOverallHeight],
		Raw:               raw,
	}
}
