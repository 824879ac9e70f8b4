package types

// AgentSpec describes one replication agent: where its packages live, which
// queue backs it and how it talks to its endpoints.
type AgentSpec struct {
	APIVersion string        `yaml:"api_version"`
	Name       string        `yaml:"name"`
	Queue      QueueSpec     `yaml:"queue"`
	Packages   PackagesSpec  `yaml:"packages"`
	Transport  TransportSpec `yaml:"transport"`
}

type QueueSpec struct {
	Backend     QueueBackend `yaml:"backend"`
	Name        string       `yaml:"name"`
	RedisAddr   string       `yaml:"redis_addr"`
	RedisDB     int          `yaml:"redis_db"`
	RedisPrefix string       `yaml:"redis_prefix"`
}

type PackagesSpec struct {
	Dir         string `yaml:"dir"`
	ContentRoot string `yaml:"content_root"`
	// ArchiveDir holds packages kept by the content system itself. They
	// are found by id when Dir does not have them.
	ArchiveDir   string `yaml:"archive_dir"`
	Type         string `yaml:"type"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	MaxPeekBytes int64  `yaml:"max_peek_bytes"`
}

type TransportSpec struct {
	Endpoints      []string         `yaml:"endpoints"`
	Properties     []string         `yaml:"properties"`
	Strategy       EndpointStrategy `yaml:"strategy"`
	Auth           AuthSpec         `yaml:"auth"`
	TimeoutSec     int              `yaml:"timeout_sec"`
	PollItems      int              `yaml:"poll_items"`
	PollIntervalMs int              `yaml:"poll_interval_ms"`
}

type AuthSpec struct {
	Type     AuthType `yaml:"type"`
	User     string   `yaml:"user"`
	Password string   `yaml:"password"`
	Token    string   `yaml:"token"`
}
