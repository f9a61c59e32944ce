package options

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
)

var _ IOptions = (*AwsOptions)(nil)

// AwsOptions holds the connection settings the tracking agent needs. The
// fields tagged required must all be set before tracking can start.
type AwsOptions struct {
	IdentityPoolID        string `json:"identity-pool-id" mapstructure:"identity-pool-id" validate:"required"`
	TrackerName           string `json:"tracker-name" mapstructure:"tracker-name" validate:"required"`
	GeofenceCollectionArn string `json:"geofence-collection-arn" mapstructure:"geofence-collection-arn" validate:"required"`
	IotEndpoint           string `json:"iot-endpoint" mapstructure:"iot-endpoint" validate:"required"`

	// APIKey and APIKeyRegion enable reverse geocoding.
	APIKey       string `json:"api-key" mapstructure:"api-key"`
	APIKeyRegion string `json:"api-key-region" mapstructure:"api-key-region"`

	// CallTimeout bounds every tracker, geofence and geocode request.
	CallTimeout time.Duration `json:"call-timeout" mapstructure:"call-timeout"`
}

// NewAwsOptions creates an AwsOptions with default values.
func NewAwsOptions() *AwsOptions {
	return &AwsOptions{
		CallTimeout: 15 * time.Second,
	}
}

// Validate checks the option values that are always required to be sane.
// Missing connection fields are not reported here; see Missing.
func (o *AwsOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.CallTimeout <= 0 {
		errs = append(errs, fmt.Errorf("--aws.call-timeout must be positive"))
	}
	if o.IdentityPoolID != "" && !strings.Contains(o.IdentityPoolID, ":") {
		errs = append(errs, fmt.Errorf("--aws.identity-pool-id %q must be of the form <region>:<id>", o.IdentityPoolID))
	}
	return errs
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Missing returns the names of the required connection fields that are blank.
func (o *AwsOptions) Missing() []string {
	trimmed := *o
	trimmed.IdentityPoolID = strings.TrimSpace(o.IdentityPoolID)
	trimmed.TrackerName = strings.TrimSpace(o.TrackerName)
	trimmed.GeofenceCollectionArn = strings.TrimSpace(o.GeofenceCollectionArn)
	trimmed.IotEndpoint = strings.TrimSpace(o.IotEndpoint)

	err := validate.Struct(&trimmed)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fe.Field())
	}
	return missing
}

// Region returns the region encoded as the prefix of the identity pool id.
func (o *AwsOptions) Region() string {
	region, _, _ := strings.Cut(o.IdentityPoolID, ":")
	return strings.TrimSpace(region)
}

// AddFlags adds flags for AwsOptions to the specified FlagSet.
func (o *AwsOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.IdentityPoolID, join(prefixes, "aws", "identity-pool-id"), o.IdentityPoolID, "Cognito identity pool id used for unauthenticated access, <region>:<uuid>.")
	fs.StringVar(&o.TrackerName, join(prefixes, "aws", "tracker-name"), o.TrackerName, "Name of the Location tracker that stores device positions.")
	fs.StringVar(&o.GeofenceCollectionArn, join(prefixes, "aws", "geofence-collection-arn"), o.GeofenceCollectionArn, "ARN of the geofence collection positions are evaluated against.")
	fs.StringVar(&o.IotEndpoint, join(prefixes, "aws", "iot-endpoint"), o.IotEndpoint, "IoT data endpoint host delivering geofence events.")
	fs.StringVar(&o.APIKey, join(prefixes, "aws", "api-key"), o.APIKey, "Location API key used for reverse geocoding.")
	fs.StringVar(&o.APIKeyRegion, join(prefixes, "aws", "api-key-region"), o.APIKeyRegion, "Region of the Location API key.")
	fs.DurationVar(&o.CallTimeout, join(prefixes, "aws", "call-timeout"), o.CallTimeout, "Timeout applied to each tracker, geofence and geocode request.")
}
