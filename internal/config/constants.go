package config

// Application constants
const (
	AppName = "Image to Excel Converter"

	// EnvPrefix namespaces every environment variable, e.g. IMG2XLSX_SERVER_PORT
	EnvPrefix = "IMG2XLSX"

	DefaultLogFile        = "logs/app.log"
	DefaultBaseName       = "extracted_text"
	DefaultSheetName      = "Extracted Data"
	DefaultMaxUploadBytes = 20 << 20 // 20MB
)
