package cfg

const (
	CommandAnalyze = "analyze"
	CommandServe   = "serve"
)

type Cfg struct {
	Command string

	// Job store and HTTP API
	DBPath            string
	Port              string
	APIAccessKey      string
	WorkerCount       int
	SchedulerInterval int
	CallbackURL       string

	// Analysis runs
	LogsDir        string
	LogTimeout     int
	ProfilesDir    string
	QueueSize      int
	MaxRecordBytes int
	SpoolDir       string

	// Blob storage
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Region    string
	S3UseSSL    bool

	PushgatewayURL string

	// One-shot analyze arguments
	PartnerID     string
	Source        string
	Destination   string
	DistinguishID string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
