package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client.
var UserAgent = "Birthday-Tracker/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "Birthday Tracker"
	AppID             = "com.github.tartampluch.birthday-tracker"
	KeyringService    = "com.github.tartampluch.birthday-tracker"
	LocalhostBindAddr = "127.0.0.1"
	LogFileName       = "app.log"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	// Used for persisted birthday data and logs.
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	// Used for creating the data and cache directories.
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagVersion      = "version"
	FlagDebug        = "debug"
	FlagConfig       = "config"
	FlagDescVersion  = "Show application version and exit"
	FlagDescDebug    = "Enable debug logging to stdout"
	FlagDescConfig   = "Path to the YAML settings file"
	MsgVersionOutput = "%s version %s (%s/%s)\n"
)

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	DefaultPort             = "18080"
	DefaultLanguage         = "en"
	DefaultSettingsPath     = "./birthday-tracker.yaml"
	DefaultStorageDriver    = "file"
	DefaultStoragePath      = "./data/birthdays.json"
	DefaultNotificationTime = "12:00"
	DefaultReminderDaysCSV  = "7,1,0"
	DefaultLeapYear         = 2000 // Leap year reference for validating MM-DD dates

	// RecordIDLength is the number of hex characters kept from a generated UUID.
	RecordIDLength = 8

	// MaxCatchUpDays bounds how many missed calendar days the daily trigger
	// replays after downtime. Older missed days are dropped.
	MaxCatchUpDays = 7

	// TriggerTickSpec drives the periodic trigger check (robfig/cron syntax).
	TriggerTickSpec = "* * * * *"
)

// DefaultReminderDays is the built-in reminder offset list (days before).
// Kept sorted descending for display; firing is independent per offset.
var DefaultReminderDays = []int{7, 1, 0}

// SupportedLanguages defines the list of available message languages (ISO 639-1).
var SupportedLanguages = []string{"en", "fr"}

// -----------------------------------------------------------------------------
// Storage Drivers
// -----------------------------------------------------------------------------

const (
	StorageDriverFile   = "file"
	StorageDriverSQLite = "sqlite"

	StateFileSuffix = ".state.json"
	StateKeyFired   = "last_fired"
)

// -----------------------------------------------------------------------------
// Import Sources
// -----------------------------------------------------------------------------

const (
	ImportModeLocal = "local"
	ImportModeWeb   = "web"
)

// -----------------------------------------------------------------------------
// Event Bus
// -----------------------------------------------------------------------------

const (
	EventReminder = "birthday_reminder"
	EventUpdated  = "birthdays_updated"

	EventBusBuffer = 16
)

// -----------------------------------------------------------------------------
// Notification Sinks
// -----------------------------------------------------------------------------

const (
	SinkNameLog      = "log"
	SinkNameTelegram = "telegram"

	// TelegramRatePerSec caps outgoing messages per chat.
	TelegramRatePerSec = 1
)

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyEvtSummary      = "event_summary"       // Requires Possessive/Name
	TKeyEvtSummaryAge   = "event_summary_age"   // Requires Possessive/Name, Age, Ordinal
	TKeyEvtSummaryBirth = "event_summary_birth" // Requires Possessive/Name (age 0)
	TKeyRemToday        = "reminder_today"
	TKeyRemTodayAge     = "reminder_today_age"
	TKeyRemUpcoming     = "reminder_upcoming"
	TKeyRemUpcomingAge  = "reminder_upcoming_age"
)

// -----------------------------------------------------------------------------
// Standards: iCalendar & vCard
// -----------------------------------------------------------------------------

const (
	// iCal Properties
	ICalVersion   = "2.0"
	ICalProdid    = "-//Birthday Tracker//Calendar//EN"
	ICalCalName   = "Birthdays"
	ICalMethod    = "PUBLISH"
	ICalScale     = "GREGORIAN"
	ICalComponent = "VALARM"
	ICalAction    = "DISPLAY"
	ICalDomain    = "birthday-tracker"

	// iCal/vCard Fields
	PropUID         = "UID"
	PropSummary     = "SUMMARY"
	PropDescription = "DESCRIPTION"
	PropDTStart     = "DTSTART"
	PropDTStamp     = "DTSTAMP"
	PropRefresh     = "REFRESH-INTERVAL"
	PropAction      = "ACTION"
	PropTrigger     = "TRIGGER"
	PropVersion     = "VERSION"
	PropProdid      = "PRODID"
	PropXWRCalName  = "X-WR-CALNAME"
	PropCalScale    = "CALSCALE"
	PropMethod      = "METHOD"

	VCardBDAY = "BDAY"
	VCardFN   = "FN"
	VCardN    = "N"

	DefaultICalRefresh = 1 * time.Hour

	// FormatUID expects record id, year, domain.
	FormatUID = "%s-%d@%s"

	// ISO8601 duration templates for VALARM triggers.
	FormatTriggerBefore = "-P%dD"
	TriggerSameDay      = "P0D"

	// StubVCalendar is the minimal valid iCalendar object used when no events exist.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"
)

// -----------------------------------------------------------------------------
// Data Formats, Limits & File Extensions
// -----------------------------------------------------------------------------

const (
	// Date layout for stored dates and the persisted fired marker.
	DateFormatFull = "2006-01-02"

	// vCard BDAY layouts (RFC 6350 forms plus common variants).
	DateFormatFullBasic = "20060102"
	DateFormatRFC3339   = time.RFC3339
	DateFormatFullT     = "2006-01-02T15:04:05Z"
	DateFormatVCardNoYD = "--01-02"
	DateFormatVCardNoYB = "--0102"

	// Limits
	MinPort = 1
	MaxPort = 65535

	MaxNameLength  = 200
	MaxNotesLength = 2000
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout         = 30 * time.Second
	ShutdownTimeout     = 5 * time.Second
	ServerReadTimeout   = 10 * time.Second
	ServerWriteTimeout  = 30 * time.Second
	ServerIdleTimeout   = 60 * time.Second
	PersistTimeout      = 10 * time.Second
	SinkSendTimeout     = 15 * time.Second
	RetryAfterSeconds   = "10"
	AllowedMethods      = "GET, HEAD"
	MaxHTTPResponseSize = 256 * 1024 * 1024 // 256MB
	MaxRequestBodySize  = 1 << 20           // 1MB
	SchemeHTTP          = "http"
	SchemeHTTPS         = "https"
	AddrSeparator       = ":"
)

// -----------------------------------------------------------------------------
// HTTP Routes
// -----------------------------------------------------------------------------

const (
	RouteAPI       = "/api"
	RouteBirthdays = "/birthdays"
	RouteBirthday  = "/birthdays/{id}"
	RouteOptions   = "/options"
	RouteCheck     = "/check"
	RouteImport    = "/import"
	RouteCalendar  = "/calendar.ics"
	RouteMetrics   = "/metrics"
	RouteHealth    = "/healthz"

	URLParamID = "id"
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType     = "Content-Type"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderRetryAfter      = "Retry-After"
	HeaderAllow           = "Allow"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderUserAgent       = "User-Agent"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"

	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeJSON            = "application/json; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrSettingsLoad     = "failed to load settings file"
	ErrOptionsTime      = "invalid notification time (expected HH:MM)"
	ErrOptionsDays      = "invalid reminder days (expected comma-separated non-negative integers)"
	ErrStorageOpen      = "failed to open storage backend"
	ErrStorageDriver    = "unknown storage driver"
	ErrStoragePath      = "storage path is required"
	ErrStorageLoad      = "failed to load persisted birthdays"
	ErrStorageSave      = "failed to persist birthdays"
	ErrMarkerLoad       = "failed to load last-fired marker"
	ErrMarkerSave       = "failed to persist last-fired marker"
	ErrNameRequired     = "name must not be empty"
	ErrNameTooLong      = "name is too long"
	ErrNotesTooLong     = "notes are too long"
	ErrDateParse        = "unable to parse date (expected YYYY-MM-DD or MM-DD)"
	ErrDateInvalid      = "no such calendar date"
	ErrReminderNegative = "reminder day offsets must be non-negative"
	ErrRecordNotFound   = "birthday not found"
	ErrServerStartup    = "server startup failed"
	ErrServerShutdown   = "server shutdown failed"
	ErrPortRequired     = "server port is required"
	ErrPortNumber       = "server port must be a number"
	ErrPortRange        = "server port must be between 1 and 65535"
	ErrInvalidURL       = "invalid URL structure"
	ErrProtocol         = "unsupported protocol scheme (http/https only)"
	ErrICalEncode       = "failed to encode iCalendar data"
	ErrImportMode       = "unsupported import mode"
	ErrImportDisabled   = "import source is not configured"
	ErrImportPathEmpty  = "import path is empty"
	ErrImportURLEmpty   = "import URL is empty"
	ErrFetcherMissing   = "internal error: network fetcher is not initialized"
	ErrTelegramToken    = "telegram token is empty"
	ErrTelegramChat     = "telegram chat id is required"
	ErrTelegramInit     = "failed to initialize telegram bot"
	ErrLogFile          = "failed to open log file"
	ErrCacheDir         = "could not determine user cache dir"
	ErrCreateDir        = "could not create app directory"
	ErrAppFailed        = "application failed unexpectedly"
	ErrWriteResp        = "failed to write response body"
	ErrLocalesAccess    = "failed to access embedded locales"
	ErrLocaleLoad       = "failed to load locale file"
	ErrRequestBody      = "invalid request body"
	ErrKeyringLookup    = "keyring lookup failed (password treated as empty)"
	ErrSinkSend         = "reminder sink delivery failed"
	ErrCalendarGenerate = "calendar generation failed"
	ErrSettingsWatch    = "settings watch failed"
	ErrSettingsReload   = "settings reload rejected, previous config retained"
	ErrTriggerCheck     = "trigger check failed"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInitializing = "Calendar initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
	HTTPMsgInternalErr  = "Internal Server Error"
)

// -----------------------------------------------------------------------------
// Fallbacks & Messages
// -----------------------------------------------------------------------------

const (
	FallbackSummary  = "Birthday: %s"
	FallbackReminder = "Birthday reminder: %s in %d day(s)"
	FallbackName     = "Unknown"

	MsgAppStarting    = "Starting application"
	MsgAppStop        = "Application stopped gracefully"
	MsgServerListen   = "HTTP server listening"
	MsgServerStop     = "Shutting down HTTP server..."
	MsgStoreLoaded    = "Birthday store loaded"
	MsgStorageReady   = "Storage backend opened"
	MsgStoreSkipped   = "Skipping invalid persisted record"
	MsgRecordAdded    = "Birthday added"
	MsgRecordEdited   = "Birthday edited"
	MsgRecordRemoved  = "Birthday removed"
	MsgCheckStarted   = "Daily reminder check"
	MsgCheckIdle      = "Reminder check idle"
	MsgCheckCatchUp   = "Replaying missed reminder day"
	MsgReminderFired  = "Reminder fired"
	MsgMarkerStored   = "Last-fired marker updated"
	MsgOptionsUpdated = "Options updated"
	MsgSettingsReload = "Settings file reloaded"
	MsgCacheUpdated   = "Calendar cache updated"
	MsgCalendarStub   = "No birthdays, serving stub calendar"
	MsgCalendarBuilt  = "Calendar generated"
	MsgImportStarted  = "vCard import started"
	MsgImportDone     = "vCard import finished"
	MsgImportSkipCard = "Skipping malformed vCard"
	MsgImportSkipDate = "Skipping invalid date format"
	MsgImportSkipDup  = "Skipping duplicate contact"
	MsgLocaleSkip     = "Skipping non-locale file"
	MsgLocaleBadName  = "Skipping malformed locale filename"
	MsgLocaleLoaded   = "Locale loaded successfully"
	MsgTransMissing   = "Missing translation key"
	MsgSinkDelivered  = "Reminder delivered"
	MsgDispatchStart  = "Reminder dispatcher started"
	MsgDispatchStop   = "Reminder dispatcher stopped"
	MsgLogWarning     = "Warning: %s at %s: %v\n"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyPort      = "port"
	LogKeyDriver    = "driver"
	LogKeyPath      = "path"
	LogKeyMode      = "mode"
	LogKeyID        = "id"
	LogKeyName      = "name"
	LogKeyDate      = "date"
	LogKeyDay       = "day"
	LogKeyDays      = "days_until"
	LogKeyCount     = "count"
	LogKeyEvents    = "events"
	LogKeySkipped   = "skipped"
	LogKeyImported  = "imported"
	LogKeyValue     = "value"
	LogKeySink      = "sink"
	LogKeyTime      = "time"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompMain     = "main"
	CompConfig   = "config"
	CompStore    = "store"
	CompTrigger  = "trigger"
	CompServer   = "server"
	CompCalendar = "calendar"
	CompImport   = "import"
	CompFetcher  = "fetcher"
	CompNotify   = "notify"
	CompI18n     = "i18n"
)
