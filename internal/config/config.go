package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ClassifierConfig lists the networks used to tag traffic origin. Events
// from a baseline network are counted as legitimate, events from an attack
// network as hostile; everything else stays unknown.
type ClassifierConfig struct {
	BaselineNetworks []string `yaml:"baseline_networks"`
	AttackNetworks   []string `yaml:"attack_networks"`
}

// EngineConfig holds the detection engine settings. Durations are strings
// parsed with time.ParseDuration at startup.
type EngineConfig struct {
	NumWorkers          int      `yaml:"num_workers"`
	SizeOfEventChannel  int      `yaml:"size_of_event_channel"`
	WorkerQueueSize     int      `yaml:"worker_queue_size"`
	DetectionInterval   string   `yaml:"detection_interval"`
	MinWindow           string   `yaml:"min_window"`
	SketchResetInterval string   `yaml:"sketch_reset_interval"`
	SampleRate          uint32   `yaml:"sample_rate"`
	WindowSampleEvery   int      `yaml:"window_sample_every"`
	ListenAddr          string   `yaml:"listen_addr"`
	HTTPPorts           []uint16 `yaml:"http_ports"`

	Classifier ClassifierConfig `yaml:"classifier"`
}

// SketchConfig holds the dimensions of the attack source sketches.
type SketchConfig struct {
	Width                uint32 `yaml:"width"`
	Depth                uint32 `yaml:"depth"`
	HeavyHitterThreshold uint64 `yaml:"heavy_hitter_threshold"`
	TopK                 int    `yaml:"top_k"`
}

// SYNRuleConfig parameterizes the SYN flood rule.
type SYNRuleConfig struct {
	TCPRatio    float64 `yaml:"tcp_ratio"`
	SYNRatio    float64 `yaml:"syn_ratio"`
	HighPPS     float64 `yaml:"high_pps"`
	CriticalPPS float64 `yaml:"critical_pps"`
}

// VolumeRuleConfig parameterizes a single-protocol volumetric rule.
type VolumeRuleConfig struct {
	Ratio       float64 `yaml:"ratio"`
	HighPPS     float64 `yaml:"high_pps"`
	CriticalPPS float64 `yaml:"critical_pps"`
}

// MultiVectorRuleConfig parameterizes the multi-vector rule; the rule fires
// when at least two of the per-protocol rates are exceeded.
type MultiVectorRuleConfig struct {
	UDPPPS  float64 `yaml:"udp_pps"`
	SYNPPS  float64 `yaml:"syn_pps"`
	ICMPPPS float64 `yaml:"icmp_pps"`
}

// FragRuleConfig parameterizes the fragmentation anomaly rule.
type FragRuleConfig struct {
	Ratio  float64 `yaml:"ratio"`
	MinPPS float64 `yaml:"min_pps"`
}

// SmallPacketRuleConfig parameterizes the small packet anomaly rule, which
// works from the average packet size of the window.
type SmallPacketRuleConfig struct {
	MaxAvgSize float64 `yaml:"max_avg_size"`
	MinPPS     float64 `yaml:"min_pps"`
}

// ConcentrationRuleConfig parameterizes the source concentration rule.
type ConcentrationRuleConfig struct {
	Ratio        float64 `yaml:"ratio"`
	MinAttackPPS float64 `yaml:"min_attack_pps"`
}

// BotnetRuleConfig parameterizes the distributed-source rule.
type BotnetRuleConfig struct {
	MinSources      float64 `yaml:"min_sources"`
	MaxPPSPerSource float64 `yaml:"max_pps_per_source"`
	MinAttackPPS    float64 `yaml:"min_attack_pps"`
}

// HeavyHitterRuleConfig parameterizes the heavy hitter count rule.
type HeavyHitterRuleConfig struct {
	MinCount int `yaml:"min_count"`
}

// RulesConfig gathers the thresholds of the rule table. Zero values select
// the built-in defaults.
type RulesConfig struct {
	MinPackets          uint64                  `yaml:"min_packets"`
	SYN                 SYNRuleConfig           `yaml:"syn"`
	UDP                 VolumeRuleConfig        `yaml:"udp"`
	ICMP                VolumeRuleConfig        `yaml:"icmp"`
	HTTP                VolumeRuleConfig        `yaml:"http"`
	MultiVector         MultiVectorRuleConfig   `yaml:"multi_vector"`
	Frag                FragRuleConfig          `yaml:"frag"`
	SmallPacket         SmallPacketRuleConfig   `yaml:"small_packet"`
	SourceConcentration ConcentrationRuleConfig `yaml:"source_concentration"`
	Botnet              BotnetRuleConfig        `yaml:"botnet"`
	HeavyHitters        HeavyHitterRuleConfig   `yaml:"heavy_hitters"`
}

// MLConfig holds the classifier settings.
type MLConfig struct {
	Enabled             bool    `yaml:"enabled"`
	ModelPath           string  `yaml:"model_path"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
}

// NATSConfig holds a NATS connection target.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// SMTPConfig holds the settings for the email notifier.
type SMTPConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"` // comma-separated recipients
}

// AIConfig holds the settings for the LLM alert analyzer.
type AIConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// AlerterConfig holds the alert pipeline settings.
type AlerterConfig struct {
	Cooldown string     `yaml:"cooldown"`
	NATS     NATSConfig `yaml:"nats"`
	SMTP     SMTPConfig `yaml:"smtp"`
	AI       AIConfig   `yaml:"ai"`
}

// ClickHouseConfig holds the connection settings for a ClickHouse database.
type ClickHouseConfig struct {
	Addr     string `yaml:"addr"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// WriterDef defines a single detection output writer.
type WriterDef struct {
	Type          string           `yaml:"type"` // "text" or "clickhouse"
	Enabled       bool             `yaml:"enabled"`
	FlushInterval string           `yaml:"flush_interval"`
	RootPath      string           `yaml:"root_path"`
	ClickHouse    ClickHouseConfig `yaml:"clickhouse"`
}

// RecordConfig holds the optional on-disk capture recorder of fs-probe.
type RecordConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Path              string `yaml:"path"`
	Encoding          string `yaml:"encoding"` // "gob", "text" or "pcap"
	ChannelBufferSize int    `yaml:"channel_buffer_size"`
}

// ProbeConfig holds the capture and transport settings of fs-probe. The
// engine's NATS subscriber reads the same block.
type ProbeConfig struct {
	NATSURL    string           `yaml:"nats_url"`
	Subject    string           `yaml:"subject"`
	Interface  string           `yaml:"iface"`
	BPF        string           `yaml:"bpf"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Record     RecordConfig     `yaml:"record"`
}

// APIConfig holds the settings of the alert history API server.
type APIConfig struct {
	ListenAddr string           `yaml:"listen_addr"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Sketch  SketchConfig  `yaml:"sketch"`
	Rules   RulesConfig   `yaml:"rules"`
	ML      MLConfig      `yaml:"ml"`
	Alerter AlerterConfig `yaml:"alerter"`
	Writers []WriterDef   `yaml:"writers"`
	Probe   ProbeConfig   `yaml:"probe"`
	API     APIConfig     `yaml:"api"`
}

// LoadConfig reads the configuration from a YAML file and returns a Config struct.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	return &cfg, nil
}
