package globals

// FirmwareVersion is set at build time via -ldflags
var FirmwareVersion = "dev"

// Writable data directory
var DataDir = "/data"

// Firmware data
var FirmwareDataDir = DataDir + "/.firmware-data"

// Config
var ConfigPath = FirmwareDataDir + "/config.json"

// Logs captured by the logger ring
var LogsPath = FirmwareDataDir + "/logs.json"

// Primary medium mount point (SD card)
var SDRoot = DataDir + "/sd"

// Fallback medium mount point (onboard flash)
var FlashRoot = DataDir + "/flash"

// Logical storage categories, relative to a medium root
var (
	ImagePath = "images"
	AudioPath = "audio"
	LogPath   = "logs"
	DataPath  = "data"
)

// Artifact index filename, stored under the data category
var ArtifactIndexFile = "artifacts.json"
