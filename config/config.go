package config

type Config struct {
	Application Application `yaml:"application" json:"application"`
}

type Application struct {
	DisplayName  string       `yaml:"display-name" json:"display_name"`
	Server       Server       `yaml:"server" json:"server"`
	Datasource   Datasource   `yaml:"datasource" json:"datasource"`
	Migration    string       `yaml:"migration"`
	Redis        Redis        `yaml:"redis" json:"redis"`
	RelyingParty RelyingParty `yaml:"relying-party" json:"relying_party"`
	Metadata     Metadata     `yaml:"metadata" json:"metadata"`
	Kafka        Kafka        `yaml:"kafka" json:"kafka"`
}

type Server struct {
	ContextPath string `yaml:"context-path" json:"context_path"`
	ApiVersion  string `yaml:"api-version" json:"api_version"`
	Port        string `yaml:"port"`
}

type Datasource struct {
	PrimaryURL            string `yaml:"primary-url" json:"primary_url"`
	MaxIdleConnections    int    `yaml:"max-idle-connections" json:"max_idle_connections"`
	MaxOpenConnections    int    `yaml:"max-open-connections" json:"max_open_connections"`
	ConnectionMaxLifetime int    `yaml:"connection-max-lifetime" json:"connection_max_lifetime"`
}

type Redis struct {
	Host                  string `yaml:"address" json:"address"`
	ChallengeTTLInSeconds int    `yaml:"challenge-ttl-in-seconds" json:"challenge_ttl_in_seconds"`
}

type RelyingParty struct {
	ID               string  `yaml:"id" json:"id"`
	Name             string  `yaml:"name" json:"name"`
	Origin           string  `yaml:"origin" json:"origin"`
	Algorithms       []int64 `yaml:"algorithms" json:"algorithms"`
	TimeoutInSeconds int     `yaml:"timeout-in-seconds" json:"timeout_in_seconds"`
}

type Metadata struct {
	Dir                   string `yaml:"dir" json:"dir"`
	ServiceURL            string `yaml:"service-url" json:"service_url"`
	FetchTimeoutInSeconds int    `yaml:"fetch-timeout-in-seconds" json:"fetch_timeout_in_seconds"`
}

type Kafka struct {
	Enabled bool     `yaml:"enabled" json:"enabled"`
	Brokers []string `yaml:"brokers" json:"brokers"`
	Topic   string   `yaml:"topic" json:"topic"`
}

// ChallengeTTL and RP timeout fall back to the values the ceremony protocol
// assumes when the yaml omits them.
const (
	DefaultChallengeTTLSeconds = 300
	DefaultCeremonyTimeoutSecs = 60
)
