package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	WaitForServices   string  // duration to wait for other services to be ready
	LogLevel          string  // sets the log level (zap log level values)
	LogFormat         string  // text vs json
	LogFilter         string  // zapfilter rules applied to the log output
	EnableTelemetry   bool    // enable telemetry
	TelemetryEndpoint string  // endpoint for telemetry ("stdout" prints to console)
	ProfilingPort     int     // port for profiling
	WSAddr            string  // listen addr for websocket clients
	HTTPAddr          string  // listen addr for the settings API
	Codec             string  // codec used for outgoing messages
	QueueSize         int     // max number of pending messages per subscriber
	NatsURL           string  // URL of NATS server (empty disables NATS)
	NatsSubject       string  // subject prefix for NATS publishing and control
	SourceKind        string  // where samples come from (file, nats)
	SourceFile        string  // path to a recorded sample file
	SampleSubject     string  // NATS subject delivering samples
	ReplaySpeed       float64 // replay speed factor for file sources (0 = as fast as possible)
	SettingsDB        string  // path to the sqlite settings database
	TickInterval      string  // duration between two ticks
	SlowTickEvery     int     // every n-th tick processes slow changing values
	MaxLapTimes       int     // number of lap times kept for the player
	WaitForSession    string  // duration to wait for the first sample
	MinClientVersion  string  // minimum version a client has to announce
)

// Config holds the configuration values which are used by the application
type Config struct {
	MaxDrivers int // standings window size, 0 means unlimited
	TopDrivers int // number of leading drivers always shown in standings
}
