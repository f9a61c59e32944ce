package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/autopeer-io/geotrack/pkg/mqtt"
)

var _ IOptions = (*MqttOptions)(nil)

// MqttOptions contains configuration for the geofence event channel.
type MqttOptions struct {
	// Broker overrides the broker URL derived from the IoT endpoint. When it
	// is set the connection is a plain MQTT/TLS one using Username/Password.
	Broker   string `json:"broker" mapstructure:"broker"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`

	// Client behavior
	KeepAlive      time.Duration `json:"keep-alive" mapstructure:"keep-alive"`
	ConnectTimeout time.Duration `json:"connect-timeout" mapstructure:"connect-timeout"`
	SessionExpiry  uint32        `json:"session-expiry" mapstructure:"session-expiry"`
	CleanStart     bool          `json:"clean-start" mapstructure:"clean-start"`
	BackoffMin     time.Duration `json:"backoff-min" mapstructure:"backoff-min"`
	BackoffMax     time.Duration `json:"backoff-max" mapstructure:"backoff-max"`

	// InsecureSkipVerify controls whether a client verifies the server's certificate chain and host name.
	// This should be used only for testing.
	InsecureSkipVerify bool `json:"insecure-skip-verify" mapstructure:"insecure-skip-verify"`

	// TopicSuffix is appended to the device id to build the event topic: {deviceId}/{suffix}.
	TopicSuffix string `json:"topic-suffix" mapstructure:"topic-suffix"`

	Debug bool `json:"debug" mapstructure:"debug"`
}

// NewMqttOptions creates a new MqttOptions with default values.
func NewMqttOptions() *MqttOptions {
	return &MqttOptions{
		KeepAlive:      60 * time.Second,
		ConnectTimeout: 5 * time.Second,
		SessionExpiry:  60,
		CleanStart:     true,
		BackoffMin:     time.Second,
		BackoffMax:     2 * time.Minute,
		TopicSuffix:    "tracker",
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *MqttOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.ConnectTimeout <= 0 {
		errs = append(errs, fmt.Errorf("--mqtt.connect-timeout must be positive"))
	}
	if o.KeepAlive < 0 || o.KeepAlive.Seconds() > 65535 {
		errs = append(errs, fmt.Errorf("--mqtt.keep-alive must be between 0 and 65535s"))
	}
	if o.BackoffMin <= 0 || o.BackoffMax < o.BackoffMin {
		errs = append(errs, fmt.Errorf("--mqtt.backoff-min must be positive and not exceed --mqtt.backoff-max"))
	}
	return errs
}

// AddFlags adds flags for MqttOptions to the specified FlagSet.
func (o *MqttOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Broker, join(prefixes, "mqtt", "broker"), o.Broker, "Broker URL overriding the IoT endpoint (e.g. ssl://localhost:8883).")
	fs.StringVar(&o.Username, join(prefixes, "mqtt", "username"), o.Username, "The username for MQTT authentication when --mqtt.broker is set.")
	fs.StringVar(&o.Password, join(prefixes, "mqtt", "password"), o.Password, "The password for MQTT authentication when --mqtt.broker is set.")

	fs.DurationVar(&o.KeepAlive, join(prefixes, "mqtt", "keep-alive"), o.KeepAlive, "MQTT Keep Alive interval.")
	fs.DurationVar(&o.ConnectTimeout, join(prefixes, "mqtt", "connect-timeout"), o.ConnectTimeout, "Time to wait for the connection acknowledgement on connect and disconnect.")
	fs.Uint32Var(&o.SessionExpiry, join(prefixes, "mqtt", "session-expiry"), o.SessionExpiry, "MQTT Session Expiry Interval in seconds.")
	fs.BoolVar(&o.CleanStart, join(prefixes, "mqtt", "clean-start"), o.CleanStart, "Start a clean MQTT session on the first connection.")
	fs.DurationVar(&o.BackoffMin, join(prefixes, "mqtt", "backoff-min"), o.BackoffMin, "Initial reconnect backoff.")
	fs.DurationVar(&o.BackoffMax, join(prefixes, "mqtt", "backoff-max"), o.BackoffMax, "Maximum reconnect backoff.")
	fs.BoolVar(&o.InsecureSkipVerify, join(prefixes, "mqtt", "insecure-skip-verify"), o.InsecureSkipVerify, "If true, skips the TLS certificate verification.")
	fs.StringVar(&o.TopicSuffix, join(prefixes, "mqtt", "topic-suffix"), o.TopicSuffix, "Suffix of the per-device geofence event topic.")
	fs.BoolVar(&o.Debug, join(prefixes, "mqtt", "debug"), o.Debug, "Log MQTT protocol traffic at debug level.")
}

// ToClientConfig builds a client configuration for the given client id.
// BrokerURL is left to the caller when no broker override is configured.
func (o *MqttOptions) ToClientConfig(clientID string) *mqtt.ClientConfig {
	return &mqtt.ClientConfig{
		BrokerURL:          o.Broker,
		Username:           o.Username,
		Password:           o.Password,
		ClientID:           clientID,
		KeepAlive:          uint16(o.KeepAlive.Seconds()),
		SessionExpiry:      o.SessionExpiry,
		ConnectTimeout:     o.ConnectTimeout,
		CleanStart:         o.CleanStart,
		BackoffMin:         o.BackoffMin,
		BackoffMax:         o.BackoffMax,
		InsecureSkipVerify: o.InsecureSkipVerify,
		Debug:              o.Debug,
	}
}
